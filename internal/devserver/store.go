package devserver

import (
	"errors"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/medchat/internal/common"
	"github.com/google/uuid"
)

// Roles stored on users and messages.
const (
	RolePatient   = "patient"
	RoleDoctor    = "doctor"
	RoleAssistant = "assistant"
)

// Conversation modes and status.
const (
	ModeAI       = "ai"
	ModeDoctor   = "doctor"
	StatusActive = "active"
)

var (
	// ErrForbidden is returned when a user touches a conversation or
	// message that is not theirs.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalid is returned for requests that name an unknown doctor, a
	// wrong mode or an empty message.
	ErrInvalid = errors.New("invalid request")
)

type User struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	PatientID string `json:"patient_id,omitempty"`
	Role      string `json:"role"`
	Name      string `json:"name"`
}

type Doctor struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Specialty         string `json:"specialty,omitempty"`
	YearsOfExperience *int   `json:"years_of_experience,omitempty"`
	PracticeStartDate string `json:"practice_start_date,omitempty"`
	GraduationYear    int    `json:"graduation_year,omitempty"`
}

type Conversation struct {
	ID        string    `json:"id"`
	Mode      string    `json:"mode"`
	PatientID string    `json:"patient_id"`
	DoctorID  string    `json:"doctor_id,omitempty"`
	Title     string    `json:"title,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Role           string    `json:"role"`
	SenderID       string    `json:"sender_id,omitempty"`
	Content        string    `json:"content"`
	FileURL        string    `json:"file_url,omitempty"`
	FileName       string    `json:"file_name,omitempty"`
	FileType       string    `json:"file_type,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type File struct {
	ID   string
	Name string
	Type string
	Data []byte
}

// Store keeps users, doctors, conversations, messages and uploads in
// memory. All methods are safe for concurrent use.
type Store struct {
	now func() time.Time

	mu            sync.RWMutex
	users         map[string]User
	doctors       []Doctor
	conversations map[string]Conversation
	messages      map[string][]Message
	files         map[string]File
}

// NewStore returns a store seeded with the demo accounts.
func NewStore() *Store {
	s := &Store{
		now:           time.Now,
		users:         make(map[string]User),
		conversations: make(map[string]Conversation),
		messages:      make(map[string][]Message),
		files:         make(map[string]File),
	}
	s.seed()
	return s
}

func (s *Store) seed() {
	ten := 10
	for _, u := range []User{
		{ID: "u-ann", Username: "ann", PatientID: "p-ann", Role: RolePatient, Name: "Ann Lee"},
		{ID: "u-ben", Username: "ben", PatientID: "p-ben", Role: RolePatient, Name: "Ben Ortiz"},
		{ID: "d-house", Username: "house", Role: RoleDoctor, Name: "Dr. Gregory House"},
		{ID: "d-grey", Username: "grey", Role: RoleDoctor, Name: "Dr. Meredith Grey"},
	} {
		s.users[u.ID] = u
	}
	s.doctors = []Doctor{
		{ID: "d-house", Name: "Dr. Gregory House", Specialty: "Diagnostics", YearsOfExperience: &ten},
		{ID: "d-grey", Name: "Dr. Meredith Grey", Specialty: "General Surgery", GraduationYear: 2012},
	}
}

// Users returns the accounts ordered by username.
func (s *Store) Users() []User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}

func (s *Store) User(id string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return User{}, common.ErrNotFound
	}
	return u, nil
}

func (s *Store) UserByName(username string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Username, username) {
			return u, nil
		}
	}
	return User{}, common.ErrNotFound
}

func (s *Store) Doctors() []Doctor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.doctors)
}

func (s *Store) hasDoctor(id string) bool {
	for _, d := range s.doctors {
		if d.ID == id {
			return true
		}
	}
	return false
}

// CreateConversation opens a conversation for patient u. A patient has at
// most one active AI conversation; asking for another returns it with
// existing set.
func (s *Store) CreateConversation(u User, mode, doctorID, title string) (Conversation, bool, error) {
	if u.Role != RolePatient {
		return Conversation{}, false, ErrForbidden
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	switch mode {
	case ModeAI:
		for _, c := range s.conversations {
			if c.PatientID == u.PatientID && c.Mode == ModeAI && c.Status == StatusActive {
				return c, true, nil
			}
		}
		doctorID = ""
	case ModeDoctor:
		if !s.hasDoctor(doctorID) {
			return Conversation{}, false, ErrInvalid
		}
	default:
		return Conversation{}, false, ErrInvalid
	}

	c := Conversation{
		ID:        uuid.NewString(),
		Mode:      mode,
		PatientID: u.PatientID,
		DoctorID:  doctorID,
		Title:     title,
		Status:    StatusActive,
		CreatedAt: s.now().UTC(),
	}
	s.conversations[c.ID] = c
	return c, false, nil
}

// Conversations lists what u takes part in, oldest first.
func (s *Store) Conversations(u User) []Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Conversation
	for _, c := range s.conversations {
		if participant(u, c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Conversation returns conversation id with its messages.
func (s *Store) Conversation(u User, id string) (Conversation, []Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, err := s.conversation(u, id)
	if err != nil {
		return Conversation{}, nil, err
	}
	return c, slices.Clone(s.messages[id]), nil
}

// CanAccess reports whether u may join the room of conversation id.
func (s *Store) CanAccess(u User, id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, err := s.conversation(u, id)
	return err == nil
}

func (s *Store) conversation(u User, id string) (Conversation, error) {
	c, ok := s.conversations[id]
	if !ok {
		return Conversation{}, common.ErrNotFound
	}
	if !participant(u, c) {
		return Conversation{}, ErrForbidden
	}
	return c, nil
}

// DeleteConversation removes a conversation of patient u and its messages.
func (s *Store) DeleteConversation(u User, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.conversation(u, id)
	if err != nil {
		return err
	}
	if c.PatientID != u.PatientID {
		return ErrForbidden
	}
	delete(s.conversations, id)
	delete(s.messages, id)
	return nil
}

// AddMessage appends m to its conversation on behalf of u. The role comes
// from m unless it is empty, in which case u's role is used.
func (s *Store) AddMessage(u User, m Message) (Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.conversation(u, m.ConversationID)
	if err != nil {
		return Message{}, err
	}
	if strings.TrimSpace(m.Content) == "" && m.FileURL == "" {
		return Message{}, ErrInvalid
	}
	if m.Role == "" {
		m.Role = u.Role
	}
	m.ID = uuid.NewString()
	m.ConversationID = c.ID
	m.CreatedAt = s.now().UTC()
	s.messages[c.ID] = append(s.messages[c.ID], m)
	return m, nil
}

// DeleteMessage removes message id. Only its sender may delete it.
func (s *Store) DeleteMessage(u User, id string) (Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for convID, msgs := range s.messages {
		for i, m := range msgs {
			if m.ID != id {
				continue
			}
			if m.SenderID != u.ID {
				return Message{}, ErrForbidden
			}
			s.messages[convID] = slices.Delete(msgs, i, i+1)
			return m, nil
		}
	}
	return Message{}, common.ErrNotFound
}

func (s *Store) SaveFile(name, contentType string, data []byte) File {
	f := File{ID: uuid.NewString(), Name: name, Type: contentType, Data: data}
	s.mu.Lock()
	s.files[f.ID] = f
	s.mu.Unlock()
	return f
}

func (s *Store) File(id string) (File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.files[id]
	if !ok {
		return File{}, common.ErrNotFound
	}
	return f, nil
}

func participant(u User, c Conversation) bool {
	switch u.Role {
	case RolePatient:
		return u.PatientID != "" && c.PatientID == u.PatientID
	case RoleDoctor:
		return c.DoctorID == u.ID
	}
	return false
}
