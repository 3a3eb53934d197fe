// Package buffer holds the source text the user is composing.
//
// A Buffer is a plain value holder: it never validates, never parses and
// never talks to the execution layer. Every effective SetText bumps Version
// and fans a Change out to the registered listeners.
package buffer

import "sync"

// Change describes one effective replacement of the buffer text.
type Change struct {
	VersionBefore uint64
	VersionAfter  uint64
	// Text is the full content after the change; listeners diff if needed.
	Text string
}

// Buffer is safe for concurrent use.
type Buffer struct {
	// notifyMu orders listener calls by version. It is held across a whole
	// SetText, so listeners must not call SetText.
	notifyMu sync.Mutex

	mu      sync.RWMutex
	text    string
	version uint64

	nextID    int
	listeners map[int]func(Change)
}

func New(text string) *Buffer {
	return &Buffer{
		text:      text,
		listeners: make(map[int]func(Change)),
	}
}

// Text returns the current content.
func (b *Buffer) Text() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.text
}

func (b *Buffer) Version() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.version
}

// SetText replaces the content. Any string is accepted, including the empty
// string. Replacing text with an identical value is not a change.
func (b *Buffer) SetText(text string) {
	b.notifyMu.Lock()
	defer b.notifyMu.Unlock()

	b.mu.Lock()
	if text == b.text {
		b.mu.Unlock()
		return
	}
	ch := Change{
		VersionBefore: b.version,
		VersionAfter:  b.version + 1,
		Text:          text,
	}
	b.text = text
	b.version = ch.VersionAfter

	listeners := make([]func(Change), 0, len(b.listeners))
	for _, fn := range b.listeners {
		listeners = append(listeners, fn)
	}
	b.mu.Unlock()

	// Listeners run outside mu so they may read the buffer back.
	for _, fn := range listeners {
		fn(ch)
	}
}

// OnChange registers fn to be called after every effective SetText. The
// returned function unregisters it.
func (b *Buffer) OnChange(fn func(Change)) (cancel func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.listeners[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.listeners, id)
			b.mu.Unlock()
		})
	}
}
