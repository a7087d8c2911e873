// Package consent implements the one-time question asked before the first
// message of a fresh AI conversation: may the assistant see the patient's
// medical context?
//
// The decision lives in memory only and is scoped to one conversation; a
// conversation or mode change resets it.
package consent

import (
	"sync"
	"time"

	"github.com/dmitrijs2005/medchat/internal/client/models"
)

// State of the gate.
type State int

const (
	NotAsked State = iota
	Pending
	Granted
	Declined
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Granted:
		return "granted"
	case Declined:
		return "declined"
	}
	return "not_asked"
}

// Decision is attached to AI sends once the user answered.
type Decision struct {
	ShareContext bool
	GrantedAt    time.Time
}

// Gate tracks the consent question for the active conversation.
type Gate struct {
	mu        sync.Mutex
	state     State
	convID    string
	held      string
	grantedAt time.Time
	now       func() time.Time
}

func NewGate() *Gate {
	return &Gate{now: time.Now}
}

// Required reports whether a send into conv, which currently holds
// messageCount messages, must ask first. Only an empty AI conversation
// without a prior decision asks.
func (g *Gate) Required(conv models.Conversation, messageCount int) bool {
	if conv.Mode != models.ModeAI || conv.ID == "" || messageCount > 0 {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.convID != conv.ID {
		return true
	}
	return g.state == NotAsked
}

// Begin moves the gate to Pending and holds text until the user answers.
// It returns false, holding nothing, when a question is already pending.
func (g *Gate) Begin(convID, text string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == Pending {
		return false
	}
	g.state = Pending
	g.convID = convID
	g.held = text
	return true
}

// Grant records consent and returns the held text for re-sending.
func (g *Gate) Grant() (text string, d Decision, ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != Pending {
		return "", Decision{}, false
	}
	g.state = Granted
	g.grantedAt = g.now().UTC()
	text, g.held = g.held, ""
	return text, Decision{ShareContext: true, GrantedAt: g.grantedAt}, true
}

// Decline records refusal and hands the held text back unsent.
func (g *Gate) Decline() (text string, ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != Pending {
		return "", false
	}
	g.state = Declined
	text, g.held = g.held, ""
	return text, true
}

// Decision returns what to attach to sends in convID. The zero Decision
// means no context sharing.
func (g *Gate) Decision(convID string) Decision {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.convID == convID && g.state == Granted {
		return Decision{ShareContext: true, GrantedAt: g.grantedAt}
	}
	return Decision{}
}

// State returns the current state.
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Held returns the text waiting for an answer.
func (g *Gate) Held() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.held
}

// Reset forgets any decision and pending text.
func (g *Gate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = NotAsked
	g.convID = ""
	g.held = ""
	g.grantedAt = time.Time{}
}
