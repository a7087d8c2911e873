package cli

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/medchat/internal/client/models"
	"github.com/dmitrijs2005/medchat/internal/client/state"
)

// render prints live changes of the active conversation. The user's own
// sends are echoed by the terminal already, so only the counterpart's
// messages and deletions are shown.
func (a *App) render(c state.Change) {
	switch c.Kind {
	case state.ChangeAdded:
		if c.Message.Pending() || c.Message.Role == a.viewer().ChatRole() {
			return
		}
		printlnFn(formatMessage(c.Message))
	case state.ChangeRemoved:
		if c.Message.Pending() {
			return
		}
		printlnFn(fmt.Sprintf("(message #%s was deleted)", c.Message.ID))
	}
}

func (a *App) printConversations(list []models.Conversation) {
	a.mu.Lock()
	a.listed = list
	a.mu.Unlock()

	if len(list) == 0 {
		printlnFn("No conversations yet. Type 'new' to start one.")
		return
	}
	for i, c := range list {
		printlnFn(formatConversation(i+1, c))
	}
}

func (a *App) printHistory() {
	msgs := a.messages.Snapshot()
	if len(msgs) == 0 {
		printlnFn("(no messages yet)")
		return
	}
	for _, m := range msgs {
		printlnFn(formatMessage(m))
	}
}

func formatConversation(n int, c models.Conversation) string {
	title := c.Title
	if title == "" {
		if c.Mode == models.ModeAI {
			title = "AI assistant"
		} else {
			title = "Doctor " + c.DoctorID
		}
	}
	line := fmt.Sprintf("%2d. %s  #%s", n, title, c.ID)
	if c.Archived() {
		line += "  [archived]"
	}
	if !c.CreatedAt.IsZero() {
		line += "  " + c.CreatedAt.Local().Format("2006-01-02")
	}
	return line
}

func formatMessage(m models.Message) string {
	var b strings.Builder
	ts := "--:--"
	if !m.Timestamp.IsZero() {
		ts = m.Timestamp.Local().Format("15:04")
	}
	fmt.Fprintf(&b, "[%s] %s: ", ts, roleLabel(m.Role))

	lines := strings.Split(m.Text, "\n")
	b.WriteString(lines[0])
	for _, l := range lines[1:] {
		b.WriteString("\n        ")
		b.WriteString(l)
	}
	if m.HasFile() {
		fmt.Fprintf(&b, "\n        [file] %s %s", m.FileName, m.FileURL)
	}
	if m.Pending() {
		b.WriteString("  (sending)")
	} else {
		b.WriteString("  #" + m.ID)
	}
	return b.String()
}

func roleLabel(r models.Role) string {
	switch r {
	case models.RoleAI:
		return "assistant"
	case "":
		return "unknown"
	}
	return string(r)
}
