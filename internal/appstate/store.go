package appstate

import (
	"slices"
	"sync"
)

// Listener is called with the new state after every dispatch.
type Listener func(State)

// Store owns the application state. All writes go through Dispatch.
type Store struct {
	// dispatchMu orders whole dispatches so listeners observe states in
	// the order they were produced.
	dispatchMu sync.Mutex

	mu        sync.Mutex
	state     State
	listeners map[int]Listener
	nextID    int
}

// NewStore creates a store seeded with initial.
func NewStore(initial State) *Store {
	return &Store{
		state:     initial,
		listeners: make(map[int]Listener),
	}
}

// State returns a snapshot of the current state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Token returns the session token or "". It satisfies apiclient.TokenSource.
func (s *Store) Token() string {
	st := s.State()
	if st.Session == nil {
		return ""
	}
	return st.Session.Token
}

// Dispatch applies a and notifies listeners synchronously, in subscription
// order, before returning. Concurrent dispatches are serialized. Listeners
// must not call Dispatch.
func (s *Store) Dispatch(a Action) State {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	s.mu.Lock()
	s.state = Reduce(s.state, a)
	next := s.state
	listeners := s.snapshotListeners()
	s.mu.Unlock()

	for _, l := range listeners {
		l(next)
	}
	return next
}

// Subscribe registers l and returns a function that removes it.
func (s *Store) Subscribe(l Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *Store) snapshotListeners() []Listener {
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([]Listener, len(ids))
	for i, id := range ids {
		out[i] = s.listeners[id]
	}
	return out
}
