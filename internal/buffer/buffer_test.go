package buffer

import (
	"runtime"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	b := New("print('hi')")

	assert.Equal(t, "print('hi')", b.Text())
	assert.Equal(t, uint64(0), b.Version())
}

func TestSetText(t *testing.T) {
	tests := []struct {
		name        string
		initial     string
		next        string
		wantVersion uint64
	}{
		{name: "replaces content", initial: "a", next: "b", wantVersion: 1},
		{name: "accepts empty text", initial: "a", next: "", wantVersion: 1},
		{name: "accepts invalid program text", initial: "", next: "def (:\n", wantVersion: 1},
		{name: "accepts multibyte text", initial: "", next: "print('héllo 世界')", wantVersion: 1},
		{name: "identical text is not a change", initial: "same", next: "same", wantVersion: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New(tt.initial)
			b.SetText(tt.next)

			assert.Equal(t, tt.next, b.Text())
			assert.Equal(t, tt.wantVersion, b.Version())
		})
	}
}

func TestOnChange(t *testing.T) {
	b := New("")

	var got []Change
	cancel := b.OnChange(func(ch Change) { got = append(got, ch) })

	b.SetText("x = 1")
	b.SetText("x = 1") // no-op
	b.SetText("x = 2")

	require.Len(t, got, 2)
	assert.Equal(t, Change{VersionBefore: 0, VersionAfter: 1, Text: "x = 1"}, got[0])
	assert.Equal(t, Change{VersionBefore: 1, VersionAfter: 2, Text: "x = 2"}, got[1])

	cancel()
	cancel() // idempotent
	b.SetText("x = 3")
	assert.Len(t, got, 2, "cancelled listener must not be called")
}

func TestOnChange_ListenerCanReadBuffer(t *testing.T) {
	b := New("")

	var seen string
	b.OnChange(func(Change) { seen = b.Text() })
	b.SetText("hello")

	assert.Equal(t, "hello", seen)
}

func TestConcurrentSetText(t *testing.T) {
	b := New("")

	var mu sync.Mutex
	calls := 0
	b.OnChange(func(Change) {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b.SetText(string(rune('a' + i%26)) + "-" + string(rune('0'+i%10)))
			_ = b.Text()
		}(i)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, uint64(calls), b.Version(), "every effective change notifies exactly once")
}

func TestConcurrentSetText_NotifiesInVersionOrder(t *testing.T) {
	b := New("")

	var versions []uint64
	b.OnChange(func(ch Change) {
		versions = append(versions, ch.VersionAfter)
		// Widen the window between concurrent writers.
		runtime.Gosched()
	})

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b.SetText(strconv.Itoa(i))
		}(i)
	}
	wg.Wait()

	require.Len(t, versions, int(b.Version()))
	for i, v := range versions {
		assert.Equal(t, uint64(i+1), v, "change %d delivered out of order", i)
	}
}
