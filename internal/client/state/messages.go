package state

import (
	"sync"

	"github.com/dmitrijs2005/medchat/internal/client/models"
)

// ChangeKind enumerates message list mutations reported to observers.
type ChangeKind int

const (
	ChangeReplaced ChangeKind = iota
	ChangeAdded
	ChangeUpdated
	ChangeRemoved
	ChangeCleared
)

// Change describes one mutation. PrevID is set for ChangeUpdated when the
// entry's id was rewritten.
type Change struct {
	Kind    ChangeKind
	Message models.Message
	PrevID  string
}

// Messages is the message list of the active conversation, keyed by id and
// kept in display order.
type Messages struct {
	mu        sync.RWMutex
	order     []string
	byID      map[string]models.Message
	observers []func(Change)
}

// NewMessages returns an empty list.
func NewMessages() *Messages {
	return &Messages{byID: make(map[string]models.Message)}
}

// Observe registers fn to be called after every mutation. Observers run
// outside the lock and must not block.
func (s *Messages) Observe(fn func(Change)) {
	s.mu.Lock()
	s.observers = append(s.observers, fn)
	s.mu.Unlock()
}

// Replace swaps the whole list. Duplicate ids in msgs keep their first copy.
func (s *Messages) Replace(msgs []models.Message) {
	s.mu.Lock()
	s.order = make([]string, 0, len(msgs))
	s.byID = make(map[string]models.Message, len(msgs))
	for _, m := range msgs {
		if _, dup := s.byID[m.ID]; dup {
			continue
		}
		s.order = append(s.order, m.ID)
		s.byID[m.ID] = m
	}
	s.mu.Unlock()
	s.notify(Change{Kind: ChangeReplaced})
}

// Reset empties the list, discarding any optimistic entries.
func (s *Messages) Reset() {
	s.mu.Lock()
	s.order = nil
	s.byID = make(map[string]models.Message)
	s.mu.Unlock()
	s.notify(Change{Kind: ChangeCleared})
}

// AppendPending appends an optimistic entry. It reports false when m does
// not carry a temporary id or the id is already taken.
func (s *Messages) AppendPending(m models.Message) bool {
	if !m.Pending() {
		return false
	}
	return s.Merge(m)
}

// Merge appends m unless an entry with the same id already exists.
func (s *Messages) Merge(m models.Message) bool {
	s.mu.Lock()
	if _, ok := s.byID[m.ID]; ok || m.ID == "" {
		s.mu.Unlock()
		return false
	}
	s.order = append(s.order, m.ID)
	s.byID[m.ID] = m
	s.mu.Unlock()
	s.notify(Change{Kind: ChangeAdded, Message: m})
	return true
}

// Confirm reconciles the optimistic entry tmpID with its server copy.
//
// When tmpID is gone (the list was reset or the entry discarded) the
// response belongs to an abandoned send and Confirm reports false. When the
// server copy already arrived through another path, the temporary entry is
// dropped so exactly one copy remains. Otherwise the entry is rewritten in
// place, keeping its position.
func (s *Messages) Confirm(tmpID string, m models.Message) bool {
	s.mu.Lock()
	idx := s.indexOf(tmpID)
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	if _, exists := s.byID[m.ID]; exists && m.ID != tmpID {
		s.removeAt(idx)
		s.mu.Unlock()
		s.notify(Change{Kind: ChangeRemoved, Message: models.Message{ID: tmpID}})
		return true
	}
	s.order[idx] = m.ID
	delete(s.byID, tmpID)
	s.byID[m.ID] = m
	s.mu.Unlock()
	s.notify(Change{Kind: ChangeUpdated, Message: m, PrevID: tmpID})
	return true
}

// Retarget gives the optimistic entry tmpID the server id newID while keeping
// its content. An empty newID leaves the entry untouched. The same
// convergence rules as Confirm apply.
func (s *Messages) Retarget(tmpID, newID string) bool {
	s.mu.RLock()
	m, ok := s.byID[tmpID]
	s.mu.RUnlock()
	if !ok {
		return false
	}
	if newID == "" {
		return true
	}
	m.ID = newID
	return s.Confirm(tmpID, m)
}

// Remove deletes the entry with id. Removing an absent id is a no-op.
func (s *Messages) Remove(id string) bool {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	m := s.byID[id]
	s.removeAt(idx)
	s.mu.Unlock()
	s.notify(Change{Kind: ChangeRemoved, Message: m})
	return true
}

// Has reports whether id is stored.
func (s *Messages) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byID[id]
	return ok
}

// Get returns the entry with id.
func (s *Messages) Get(id string) (models.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.byID[id]
	return m, ok
}

// Len returns the number of stored entries, optimistic ones included.
func (s *Messages) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// PendingCount returns the number of optimistic entries.
func (s *Messages) PendingCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, id := range s.order {
		if models.IsTemporaryID(id) {
			n++
		}
	}
	return n
}

// Snapshot returns a copy of the list in display order.
func (s *Messages) Snapshot() []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Message, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

func (s *Messages) indexOf(id string) int {
	if _, ok := s.byID[id]; !ok {
		return -1
	}
	for i, v := range s.order {
		if v == id {
			return i
		}
	}
	return -1
}

func (s *Messages) removeAt(idx int) {
	id := s.order[idx]
	s.order = append(s.order[:idx], s.order[idx+1:]...)
	delete(s.byID, id)
}

func (s *Messages) notify(c Change) {
	s.mu.RLock()
	obs := append(make([]func(Change), 0, len(s.observers)), s.observers...)
	s.mu.RUnlock()
	for _, fn := range obs {
		fn(c)
	}
}
