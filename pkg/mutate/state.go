// Package mutate holds the optimistic mutation controllers: one small
// state machine per mutable interaction. A controller applies a
// deterministic provisional guess before its network call resolves,
// then either installs the server's authoritative response or rolls
// the visible state back to a known-good configuration. Supersede is
// resolved by generation counters, not locks: a settling call whose
// generation is stale never overrides a newer provisional guess.
package mutate

import "sync"

// Phase is the visible position in the mutation state machine.
type Phase int

const (
	// PhaseIdle is the last known confirmed state from a repository read.
	PhaseIdle Phase = iota
	// PhaseProvisional is a locally-guessed state awaiting its network call.
	PhaseProvisional
	// PhaseConfirmed is the server's authoritative response installed.
	PhaseConfirmed
	// PhaseRolledBack is a restored known-good state after a failed call.
	PhaseRolledBack
)

func (p Phase) String() string {
	switch p {
	case PhaseProvisional:
		return "provisional"
	case PhaseConfirmed:
		return "confirmed"
	case PhaseRolledBack:
		return "rolled_back"
	default:
		return "idle"
	}
}

// Snapshot is one observable state value with its phase and generation.
type Snapshot[T any] struct {
	Phase Phase
	Value T
	Gen   uint64
}

// State is an observable value consumed by a rendering layer. It never
// depends on a UI framework: Get for pulls, Watch for a subscription.
type State[T any] struct {
	mu   sync.Mutex
	cur  Snapshot[T]
	subs map[int]chan Snapshot[T]
	next int
}

// NewState starts at PhaseIdle with the given confirmed value.
func NewState[T any](initial T) *State[T] {
	return &State[T]{
		cur:  Snapshot[T]{Phase: PhaseIdle, Value: initial},
		subs: map[int]chan Snapshot[T]{},
	}
}

// Get returns the current snapshot.
func (s *State[T]) Get() Snapshot[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur
}

// Watch subscribes to snapshot updates. The channel is buffered and
// drops the oldest pending snapshot under backpressure; the latest
// state always arrives. The cancel func closes the subscription.
func (s *State[T]) Watch() (<-chan Snapshot[T], func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.next
	s.next++
	ch := make(chan Snapshot[T], 16)
	s.subs[id] = ch
	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if sub, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

func (s *State[T]) notifyLocked() {
	for _, ch := range s.subs {
		select {
		case ch <- s.cur:
		default:
			// full: drop the oldest so the latest still lands
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- s.cur:
			default:
			}
		}
	}
}

// begin installs a provisional value under a fresh generation and
// returns that generation. This is the synchronous transition taken
// before any network I/O.
func (s *State[T]) begin(v T) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur = Snapshot[T]{Phase: PhaseProvisional, Value: v, Gen: s.cur.Gen + 1}
	s.notifyLocked()
	return s.cur.Gen
}

// settle installs v and phase only when gen is still the current
// generation; a stale settle leaves a newer provisional guess alone.
// Reports whether the install happened.
func (s *State[T]) settle(gen uint64, phase Phase, v T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur.Gen != gen {
		return false
	}
	s.cur = Snapshot[T]{Phase: phase, Value: v, Gen: gen}
	s.notifyLocked()
	return true
}

// amend applies f to the current value regardless of generation (a
// targeted merge that must not wait for supersede resolution, e.g.
// swapping one chat message row). phase is taken only when gen is
// still current; a stale amend keeps the newer guess's phase.
func (s *State[T]) amend(gen uint64, phase Phase, f func(T) T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur.Value = f(s.cur.Value)
	if s.cur.Gen == gen {
		s.cur.Phase = phase
	}
	s.notifyLocked()
}

// refresh replaces the value with a fresh repository read, returning
// the machine to PhaseIdle under a new generation.
func (s *State[T]) refresh(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur = Snapshot[T]{Phase: PhaseIdle, Value: v, Gen: s.cur.Gen + 1}
	s.notifyLocked()
}
