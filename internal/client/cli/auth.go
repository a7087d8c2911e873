package cli

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/dmitrijs2005/medchat/internal/client/auth"
	"github.com/dmitrijs2005/medchat/internal/client/client"
	"github.com/dmitrijs2005/medchat/internal/client/models"
	"github.com/dmitrijs2005/medchat/internal/client/repositories/metadata"
)

// getToken and getYesNo are indirections used to facilitate testing.
var getToken = GetToken
var getYesNo = GetYesNo

// Login asks for an access token, derives the user from it and starts a
// session: the token is saved locally, the push channel opened and the
// conversation list of the last used mode fetched.
func (a *App) Login(ctx context.Context) error {
	token, err := getToken(a.reader, a.out)
	if err != nil {
		return err
	}
	user, err := auth.UserFromToken(token)
	if err != nil {
		log.Printf("Login unsuccessful: %s", err.Error())
		return err
	}

	a.api.SetToken(token)
	me, err := a.api.Me(ctx)
	switch {
	case errors.Is(err, client.ErrUnauthorized):
		a.api.SetToken("")
		log.Printf("Login unsuccessful: the server rejected the token")
		return err
	case err != nil:
		a.log.Warn(ctx, "profile not loaded", "error", err)
	default:
		user = auth.FillProfile(user, me)
	}

	mode := models.ModeAI
	if user.Role == models.RoleDoctor {
		mode = models.ModeDoctor
	}
	if err := a.sessions.Save(ctx, metadata.Session{Token: token, User: user, Mode: mode}); err != nil {
		a.log.Warn(ctx, "session not saved", "error", err)
	}

	a.begin(ctx, user, mode)
	log.Printf("Login successful")
	return nil
}

// restore resumes the session saved by a previous run, if any.
func (a *App) restore(ctx context.Context) {
	sess, ok, err := a.sessions.Load(ctx)
	if err != nil {
		a.log.Warn(ctx, "saved session unreadable", "error", err)
		return
	}
	if !ok {
		printlnFn("Type 'login' to sign in.")
		return
	}
	a.api.SetToken(sess.Token)
	a.begin(ctx, sess.User, sess.Mode)
	log.Printf("Resumed session of %s", displayName(sess.User))
}

func (a *App) begin(ctx context.Context, user models.User, mode models.Mode) {
	a.mu.Lock()
	a.user = user
	a.mu.Unlock()

	a.connect(ctx)
	if mode == "" {
		mode = models.ModeAI
	}
	list, err := a.session.SetMode(ctx, mode)
	if err != nil {
		a.report(ctx, err)
		return
	}
	a.printConversations(list)
}

// Logout forgets the saved session and every piece of chat state.
func (a *App) Logout(ctx context.Context) error {
	if err := a.sessions.Clear(ctx); err != nil {
		return err
	}
	a.session.Reset(ctx)
	a.disconnect()
	a.api.SetToken("")

	a.mu.Lock()
	a.user = models.User{}
	a.listed, a.doctors = nil, nil
	a.mu.Unlock()

	log.Printf("Logged out")
	return nil
}

// Whoami prints the signed-in user.
func (a *App) Whoami(ctx context.Context) error {
	u := a.viewer()
	printlnFn(fmt.Sprintf("%s (%s), id %s", displayName(u), u.Role, u.ID))
	return nil
}

func displayName(u models.User) string {
	if u.Name != "" {
		return u.Name
	}
	return u.ID
}
