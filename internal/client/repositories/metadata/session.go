package metadata

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/medchat/internal/client/models"
	"github.com/dmitrijs2005/medchat/internal/dbx"
)

// Keys used by SessionStore.
const (
	KeyToken = "session.token"
	KeyUser  = "session.user"
	KeyMode  = "session.mode"
)

// Session is what survives a CLI restart: the bearer token, the identity
// decoded from it and the last chat mode.
type Session struct {
	Token string
	User  models.User
	Mode  models.Mode
}

type storedUser struct {
	ID        string `json:"id"`
	PatientID string `json:"patient_id,omitempty"`
	Role      string `json:"role"`
	Name      string `json:"name,omitempty"`
}

// SessionStore reads and writes Session atomically on top of the metadata
// table.
type SessionStore struct {
	db *sql.DB
}

func NewSessionStore(db *sql.DB) *SessionStore {
	return &SessionStore{db: db}
}

// Save replaces the stored session.
func (s *SessionStore) Save(ctx context.Context, sess Session) error {
	user, err := json.Marshal(storedUser{
		ID: sess.User.ID, PatientID: sess.User.PatientID, Role: string(sess.User.Role), Name: sess.User.Name,
	})
	if err != nil {
		return err
	}
	return dbx.WithTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		repo := NewSQLiteRepository(tx)
		if err := repo.Set(ctx, KeyToken, []byte(sess.Token)); err != nil {
			return err
		}
		if err := repo.Set(ctx, KeyUser, user); err != nil {
			return err
		}
		if sess.Mode == "" {
			return repo.Delete(ctx, KeyMode)
		}
		return repo.Set(ctx, KeyMode, []byte(sess.Mode))
	})
}

// SaveMode updates only the remembered chat mode.
func (s *SessionStore) SaveMode(ctx context.Context, mode models.Mode) error {
	return NewSQLiteRepository(s.db).Set(ctx, KeyMode, []byte(mode))
}

// Load returns the stored session; ok is false when nobody is signed in.
func (s *SessionStore) Load(ctx context.Context) (sess Session, ok bool, err error) {
	repo := NewSQLiteRepository(s.db)

	token, err := repo.Get(ctx, KeyToken)
	if err != nil || len(token) == 0 {
		return Session{}, false, err
	}
	sess.Token = string(token)

	raw, err := repo.Get(ctx, KeyUser)
	if err != nil {
		return Session{}, false, err
	}
	if raw != nil {
		var su storedUser
		if err := json.Unmarshal(raw, &su); err != nil {
			return Session{}, false, fmt.Errorf("decode stored user: %w", err)
		}
		role, _ := models.ParseRole(su.Role)
		sess.User = models.User{ID: su.ID, PatientID: su.PatientID, Role: role, Name: su.Name}
	}

	mode, err := repo.Get(ctx, KeyMode)
	if err != nil {
		return Session{}, false, err
	}
	if m, ok := models.ParseMode(string(mode)); ok {
		sess.Mode = m
	}
	return sess, true, nil
}

// Clear removes the stored session.
func (s *SessionStore) Clear(ctx context.Context) error {
	return dbx.WithTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		repo := NewSQLiteRepository(tx)
		for _, k := range []string{KeyToken, KeyUser, KeyMode} {
			if err := repo.Delete(ctx, k); err != nil {
				return err
			}
		}
		return nil
	})
}
