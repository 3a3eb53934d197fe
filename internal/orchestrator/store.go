package orchestrator

import (
	"fmt"
	"strings"
	"sync"
)

// Policy decides which completions may overwrite the displayed outcome when
// submissions overlap.
type Policy int

const (
	// PolicySequenceGated drops completions of superseded submissions, so the
	// last submission always wins.
	PolicySequenceGated Policy = iota
	// PolicyCompletionOrder applies every completion as it arrives. A slow
	// earlier call can overwrite the result of a faster later one.
	PolicyCompletionOrder
)

func (p Policy) String() string {
	switch p {
	case PolicySequenceGated:
		return "sequence-gated"
	case PolicyCompletionOrder:
		return "completion-order"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParsePolicy accepts the names produced by Policy.String. The empty string
// selects PolicySequenceGated.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sequence-gated", "gated":
		return PolicySequenceGated, nil
	case "completion-order", "naive":
		return PolicyCompletionOrder, nil
	default:
		return 0, fmt.Errorf("invalid orchestrator policy %q", s)
	}
}

// Store is the single container for the displayed Outcome. The orchestrator
// writes it through Begin and Resolve; the presentation layer reads it through
// Snapshot and Subscribe. All writes go through commit.
type Store struct {
	policy Policy

	mu      sync.RWMutex
	outcome Outcome
	issued  uint64 // last sequence number handed out by Begin
	applied uint64 // highest sequence number whose outcome is displayed

	nextSub int
	subs    map[int]chan Outcome
}

func NewStore(policy Policy) *Store {
	return &Store{
		policy:  policy,
		outcome: Idle(),
		subs:    make(map[int]chan Outcome),
	}
}

func (s *Store) Policy() Policy { return s.policy }

// Snapshot returns the current outcome. The returned value shares no mutable
// state with the store.
func (s *Store) Snapshot() Outcome {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.outcome
}

// Begin allocates the next submission number and replaces whatever is
// displayed with Pending.
func (s *Store) Begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.issued++
	seq := s.issued
	s.commit(seq, Pending(seq))
	return seq
}

// Resolve applies the completion of submission seq. It reports false when
// the completion was discarded because a later submission has already been
// applied (sequence-gated policy only).
func (s *Store) Resolve(seq uint64, o Outcome) bool {
	if !o.Resolved() {
		panic(fmt.Sprintf("orchestrator: Resolve called with %s outcome", o.Kind))
	}
	o.Seq = seq

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.policy == PolicySequenceGated && seq < s.applied {
		return false
	}
	s.commit(seq, o)
	return true
}

// Subscribe returns a channel that receives the current outcome immediately
// and every committed outcome afterwards. A subscriber that falls behind
// sees the latest outcome rather than blocking writers. The returned
// function unsubscribes and closes the channel.
func (s *Store) Subscribe(buffer int) (<-chan Outcome, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Outcome, buffer)

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	ch <- s.outcome
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			close(ch)
			s.mu.Unlock()
		})
	}
}

// commit is the only place the outcome changes. Callers hold s.mu.
func (s *Store) commit(seq uint64, o Outcome) {
	if seq > s.applied {
		s.applied = seq
	}
	s.outcome = o

	for _, ch := range s.subs {
		select {
		case ch <- o:
		default:
			// Drop the oldest queued snapshot to make room for the newest.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- o:
			default:
			}
		}
	}
}
