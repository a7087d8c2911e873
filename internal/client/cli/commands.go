package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/medchat/internal/client/chat"
	"github.com/dmitrijs2005/medchat/internal/client/client"
	"github.com/dmitrijs2005/medchat/internal/client/models"
	"github.com/dmitrijs2005/medchat/internal/client/services"
	"github.com/dmitrijs2005/medchat/internal/filex"
)

// SwitchMode changes between "ai" and "doctor" conversations.
func (a *App) SwitchMode(ctx context.Context, arg string) error {
	mode, ok := models.ParseMode(arg)
	if !ok {
		printlnFn("Usage: mode ai|doctor")
		return nil
	}
	list, err := a.session.SetMode(ctx, mode)
	if err != nil {
		return a.report(ctx, err)
	}
	log.Printf("Switched to %s mode", mode)
	a.printConversations(list)
	return nil
}

// List refreshes and prints the conversations of the current mode.
func (a *App) List(ctx context.Context) error {
	list, err := a.session.Refresh(ctx)
	if err != nil {
		return a.report(ctx, err)
	}
	a.printConversations(list)
	return nil
}

// New starts a conversation, or resumes the one the directory reuses.
func (a *App) New(ctx context.Context) error {
	conv, reused, err := a.session.New(ctx)
	if err != nil {
		return a.report(ctx, err)
	}
	if reused {
		printlnFn("Continuing conversation " + conv.ID)
		a.printHistory()
		return nil
	}
	printlnFn("Started conversation " + conv.ID)
	return nil
}

// Doctors lists the doctors a conversation can be opened with.
func (a *App) Doctors(ctx context.Context) error {
	docs, err := a.session.LoadDoctors(ctx)
	if err != nil {
		return a.report(ctx, err)
	}
	a.mu.Lock()
	a.doctors = docs
	a.mu.Unlock()

	if len(docs) == 0 {
		printlnFn("No doctors available.")
		return nil
	}
	for i, d := range docs {
		line := fmt.Sprintf("%2d. %s", i+1, d.Name)
		if d.Specialty != "" {
			line += ", " + d.Specialty
		}
		line += fmt.Sprintf(" (%d yrs)", d.ExperienceYears)
		printlnFn(line)
	}
	printlnFn("Type 'pick <n>' to choose.")
	return nil
}

// Pick selects a doctor from the last 'doctors' listing.
func (a *App) Pick(ctx context.Context, arg string) error {
	a.mu.RLock()
	docs := a.doctors
	a.mu.RUnlock()

	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > len(docs) {
		printlnFn("Usage: pick <n> (run 'doctors' first)")
		return nil
	}
	d := docs[n-1]
	a.session.PickDoctor(d)
	if a.session.Mode() != models.ModeDoctor {
		if _, err := a.session.SetMode(ctx, models.ModeDoctor); err != nil {
			return a.report(ctx, err)
		}
	}
	printlnFn(fmt.Sprintf("Selected %s. Type 'new' to start the conversation.", d.Name))
	return nil
}

// Open activates a conversation by list position or id and prints its
// history.
func (a *App) Open(ctx context.Context, arg string) error {
	id := a.resolveConversation(arg)
	if id == "" {
		printlnFn("Usage: open <n|id>")
		return nil
	}
	if _, err := a.session.Open(ctx, id); err != nil {
		return a.report(ctx, err)
	}
	a.printHistory()
	return nil
}

// History prints the messages of the active conversation.
func (a *App) History(ctx context.Context) error {
	if _, ok := a.session.Active(); !ok {
		return a.report(ctx, services.ErrNoConversation)
	}
	a.printHistory()
	return nil
}

// Send submits text to the active conversation.
func (a *App) Send(ctx context.Context, text string) error {
	out, err := a.session.Submit(ctx, text)
	if out.Declined {
		printlnFn("Your records will not be shared. Message not sent yet:")
		printlnFn("  " + out.Restored)
		printlnFn("Send it again to continue without sharing.")
	}
	if err != nil {
		if out.Restored != "" && !out.Declined {
			printlnFn("Message not sent: " + out.Restored)
		}
		return a.report(ctx, err)
	}
	return nil
}

// Attach uploads the file at path and sends it with an optional caption.
func (a *App) Attach(ctx context.Context, path, caption string) error {
	if path == "" {
		printlnFn("Usage: attach <path> [caption]")
		return nil
	}
	att, err := filex.OpenAttachment(path, a.config.MaxUploadSize)
	if err != nil {
		if errors.Is(err, filex.ErrTooLarge) {
			return a.report(ctx, client.ErrFileTooLarge)
		}
		printlnFn("Cannot read file: " + err.Error())
		return err
	}
	body, err := att.Open()
	if err != nil {
		printlnFn("Cannot read file: " + err.Error())
		return err
	}
	defer body.Close()

	_, err = a.session.SubmitFile(ctx, caption, &services.Attachment{
		Name:        att.Name,
		ContentType: att.Type,
		Body:        body,
	})
	if err != nil {
		return a.report(ctx, err)
	}
	return nil
}

// Typing tells the counterpart the user is typing.
func (a *App) Typing(ctx context.Context) error {
	if err := a.session.Typing(ctx); err != nil {
		a.log.Debug(ctx, "typing not sent", "error", err)
	}
	return nil
}

// Remove deletes a message by id.
func (a *App) Remove(ctx context.Context, id string) error {
	if id == "" {
		printlnFn("Usage: rm <message id>")
		return nil
	}
	if err := a.session.Delete(ctx, strings.TrimPrefix(id, "#")); err != nil {
		return a.report(ctx, err)
	}
	return nil
}

// Close deletes a conversation by list position or id.
func (a *App) Close(ctx context.Context, arg string) error {
	id := a.resolveConversation(arg)
	if id == "" {
		printlnFn("Usage: close <n|id>")
		return nil
	}
	if err := a.session.CloseConversation(ctx, id); err != nil {
		return a.report(ctx, err)
	}
	printlnFn("Conversation " + id + " closed.")
	return nil
}

// resolveConversation maps a 1-based position in the last listing to an id.
// Anything else is taken as an id.
func (a *App) resolveConversation(arg string) string {
	arg = strings.TrimPrefix(strings.TrimSpace(arg), "#")
	if n, err := strconv.Atoi(arg); err == nil {
		a.mu.RLock()
		defer a.mu.RUnlock()
		if n >= 1 && n <= len(a.listed) {
			return a.listed[n-1].ID
		}
	}
	return arg
}

// report prints err for the user and returns it. Validation failures are
// shown as hints or not at all.
func (a *App) report(ctx context.Context, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, services.ErrAttachmentInAI):
		printlnFn("Attachments can only be sent to doctors.")
	case errors.Is(err, services.ErrNoConversation):
		printlnFn("Open a conversation first ('list', 'open <n>' or 'new').")
	case errors.Is(err, chat.ErrNoDoctor):
		printlnFn("Pick a doctor first ('doctors', then 'pick <n>').")
	case errors.Is(err, services.ErrUnconfirmed):
		printlnFn("That message is still being sent.")
	case services.IsSilent(err):
		a.log.Debug(ctx, "ignored", "reason", err)
	default:
		a.log.Warn(ctx, "command failed", "error", err)
		printlnFn(client.Describe(err))
	}
	return err
}
