package state

import (
	"sync"

	"github.com/dmitrijs2005/medchat/internal/client/models"
)

// Conversations is the conversation directory as delivered by the server
// (newest first) plus the active selection.
type Conversations struct {
	mu       sync.RWMutex
	list     []models.Conversation
	activeID string
}

// NewConversations returns an empty directory.
func NewConversations() *Conversations {
	return &Conversations{}
}

// Replace swaps the list. The active selection survives only if the active
// conversation is still listed.
func (s *Conversations) Replace(list []models.Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.list = append([]models.Conversation(nil), list...)
	if s.activeID != "" && s.find(s.activeID) < 0 {
		s.activeID = ""
	}
}

// Prepend unshifts c unless a conversation with its id is already listed.
// It reports whether c was inserted.
func (s *Conversations) Prepend(c models.Conversation) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.find(c.ID) >= 0 {
		return false
	}
	s.list = append([]models.Conversation{c}, s.list...)
	return true
}

// Remove drops the conversation with id and reports whether it was the
// active one, in which case the selection is cleared.
func (s *Conversations) Remove(id string) (wasActive bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx := s.find(id); idx >= 0 {
		s.list = append(s.list[:idx], s.list[idx+1:]...)
	}
	if s.activeID == id {
		s.activeID = ""
		return true
	}
	return false
}

// Get returns the listed conversation with id.
func (s *Conversations) Get(id string) (models.Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if idx := s.find(id); idx >= 0 {
		return s.list[idx], true
	}
	return models.Conversation{}, false
}

// FindAI returns the first AI conversation of the list.
func (s *Conversations) FindAI() (models.Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.list {
		if c.Mode == models.ModeAI {
			return c, true
		}
	}
	return models.Conversation{}, false
}

// FindWithDoctor returns the first non-archived conversation held with
// doctorID.
func (s *Conversations) FindWithDoctor(doctorID string) (models.Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.list {
		if c.Mode == models.ModeDoctor && c.DoctorID == doctorID && !c.Archived() {
			return c, true
		}
	}
	return models.Conversation{}, false
}

// SetActive selects a listed conversation.
func (s *Conversations) SetActive(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.find(id) < 0 {
		return false
	}
	s.activeID = id
	return true
}

// ClearActive drops the selection.
func (s *Conversations) ClearActive() {
	s.mu.Lock()
	s.activeID = ""
	s.mu.Unlock()
}

// Active returns the selected conversation.
func (s *Conversations) Active() (models.Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.activeID == "" {
		return models.Conversation{}, false
	}
	if idx := s.find(s.activeID); idx >= 0 {
		return s.list[idx], true
	}
	return models.Conversation{}, false
}

// ActiveID returns the selected conversation id, or "".
func (s *Conversations) ActiveID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeID
}

// Snapshot returns a copy of the list.
func (s *Conversations) Snapshot() []models.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Conversation(nil), s.list...)
}

// Len returns the number of listed conversations.
func (s *Conversations) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.list)
}

func (s *Conversations) find(id string) int {
	for i, c := range s.list {
		if c.ID == id {
			return i
		}
	}
	return -1
}
