package appstate

import "sync"

// Store holds the current snapshot. Dispatch swaps it wholesale.
type Store struct {
	mu   sync.RWMutex
	cur  State
	next int
	subs map[int]func(State)
}

func NewStore(initial State) *Store {
	return &Store{cur: initial, subs: make(map[int]func(State))}
}

func (s *Store) Get() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

// Dispatch applies fn to the current snapshot and installs the result.
// Subscribers are notified after the lock is released.
func (s *Store) Dispatch(fn func(State) State) State {
	s.mu.Lock()
	s.cur = fn(s.cur)
	next := s.cur
	subs := make([]func(State), 0, len(s.subs))
	for _, f := range s.subs {
		subs = append(subs, f)
	}
	s.mu.Unlock()

	for _, f := range subs {
		f(next)
	}
	return next
}

// Subscribe registers fn for every future Dispatch and returns a cancel func.
func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}
