// Package navigation tracks the breadcrumb trail of the console.
package navigation

import (
	"maps"
	"slices"
	"sync"

	"github.com/ashureev/teamconsole/internal/domain"
)

// Listener receives the trail after every change.
type Listener func([]domain.PathEntry)

// Tracker owns the ordered breadcrumb trail. Entries are only changed
// through Append, Replace and Reset.
type Tracker struct {
	mu        sync.Mutex
	entries   []domain.PathEntry
	listeners map[int]Listener
	nextID    int
}

// NewTracker creates a tracker with an empty trail.
func NewTracker() *Tracker {
	return &Tracker{listeners: make(map[int]Listener)}
}

// Append adds entry at the end unless an entry with the same label is
// already anywhere in the trail. It reports whether the trail changed.
func (t *Tracker) Append(entry domain.PathEntry) bool {
	t.mu.Lock()
	if slices.ContainsFunc(t.entries, func(e domain.PathEntry) bool { return e.Label == entry.Label }) {
		t.mu.Unlock()
		return false
	}
	t.entries = append(t.entries, cloneEntry(entry))
	t.commitLocked()
	return true
}

// Replace substitutes the whole trail with entries.
func (t *Tracker) Replace(entries []domain.PathEntry) {
	t.mu.Lock()
	t.entries = cloneEntries(entries)
	t.commitLocked()
}

// Reset empties the trail.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.entries = nil
	t.commitLocked()
}

// Entries returns a copy of the trail.
func (t *Tracker) Entries() []domain.PathEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return cloneEntries(t.entries)
}

// Len returns the trail length.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Previous returns the entry before the last one, the target of a "back"
// action.
func (t *Tracker) Previous() (domain.PathEntry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.entries) < 2 {
		return domain.PathEntry{}, false
	}
	return cloneEntry(t.entries[len(t.entries)-2]), true
}

// Subscribe registers l and returns a function that removes it.
func (t *Tracker) Subscribe(l Listener) func() {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.nextID
	t.nextID++
	t.listeners[id] = l
	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		delete(t.listeners, id)
	}
}

// commitLocked unlocks and then notifies listeners in subscription order.
func (t *Tracker) commitLocked() {
	snapshot := cloneEntries(t.entries)
	ids := slices.Sorted(maps.Keys(t.listeners))
	listeners := make([]Listener, 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, t.listeners[id])
	}
	t.mu.Unlock()

	for _, l := range listeners {
		l(snapshot)
	}
}

func cloneEntry(e domain.PathEntry) domain.PathEntry {
	e.ExtraData = maps.Clone(e.ExtraData)
	return e
}

func cloneEntries(entries []domain.PathEntry) []domain.PathEntry {
	if len(entries) == 0 {
		return nil
	}
	out := make([]domain.PathEntry, len(entries))
	for i, e := range entries {
		out[i] = cloneEntry(e)
	}
	return out
}
