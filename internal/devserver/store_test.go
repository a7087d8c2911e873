package devserver

import (
	"testing"

	"github.com/dmitrijs2005/medchat/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func users(t *testing.T, s *Store) (ann, ben, house User) {
	t.Helper()
	var err error
	ann, err = s.UserByName("ann")
	require.NoError(t, err)
	ben, err = s.UserByName("BEN")
	require.NoError(t, err)
	house, err = s.UserByName("house")
	require.NoError(t, err)
	return ann, ben, house
}

func TestStore_OneAIConversationPerPatient(t *testing.T) {
	s := NewStore()
	ann, ben, _ := users(t, s)

	first, existing, err := s.CreateConversation(ann, ModeAI, "", "")
	require.NoError(t, err)
	require.False(t, existing)

	again, existing, err := s.CreateConversation(ann, ModeAI, "", "")
	require.NoError(t, err)
	require.True(t, existing)
	require.Equal(t, first.ID, again.ID)

	other, existing, err := s.CreateConversation(ben, ModeAI, "", "")
	require.NoError(t, err)
	require.False(t, existing)
	require.NotEqual(t, first.ID, other.ID)
}

func TestStore_CreateConversation_Validation(t *testing.T) {
	s := NewStore()
	ann, _, house := users(t, s)

	_, _, err := s.CreateConversation(ann, ModeDoctor, "d-nobody", "")
	require.ErrorIs(t, err, ErrInvalid)

	_, _, err = s.CreateConversation(ann, "video", "", "")
	require.ErrorIs(t, err, ErrInvalid)

	_, _, err = s.CreateConversation(house, ModeAI, "", "")
	require.ErrorIs(t, err, ErrForbidden)
}

func TestStore_ParticipantsOnly(t *testing.T) {
	s := NewStore()
	ann, ben, house := users(t, s)

	c, _, err := s.CreateConversation(ann, ModeDoctor, house.ID, "rash")
	require.NoError(t, err)

	assert.Len(t, s.Conversations(ann), 1)
	assert.Len(t, s.Conversations(house), 1)
	assert.Empty(t, s.Conversations(ben))

	assert.True(t, s.CanAccess(house, c.ID))
	assert.False(t, s.CanAccess(ben, c.ID))

	_, _, err = s.Conversation(ben, c.ID)
	require.ErrorIs(t, err, ErrForbidden)
	_, _, err = s.Conversation(ann, "missing")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestStore_Messages(t *testing.T) {
	s := NewStore()
	ann, _, house := users(t, s)
	c, _, err := s.CreateConversation(ann, ModeDoctor, house.ID, "")
	require.NoError(t, err)

	_, err = s.AddMessage(ann, Message{ConversationID: c.ID, Content: "  "})
	require.ErrorIs(t, err, ErrInvalid)

	q, err := s.AddMessage(ann, Message{ConversationID: c.ID, SenderID: ann.ID, Content: "hello"})
	require.NoError(t, err)
	assert.Equal(t, RolePatient, q.Role)
	assert.NotEmpty(t, q.ID)

	a, err := s.AddMessage(house, Message{ConversationID: c.ID, SenderID: house.ID, Content: "hi"})
	require.NoError(t, err)

	_, msgs, err := s.Conversation(ann, c.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	_, err = s.DeleteMessage(ann, a.ID)
	require.ErrorIs(t, err, ErrForbidden)

	deleted, err := s.DeleteMessage(ann, q.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, deleted.ConversationID)

	_, err = s.DeleteMessage(ann, q.ID)
	require.ErrorIs(t, err, common.ErrNotFound)

	_, msgs, _ = s.Conversation(ann, c.ID)
	require.Len(t, msgs, 1)
	assert.Equal(t, a.ID, msgs[0].ID)
}

func TestStore_DeleteConversation(t *testing.T) {
	s := NewStore()
	ann, _, house := users(t, s)
	c, _, err := s.CreateConversation(ann, ModeDoctor, house.ID, "")
	require.NoError(t, err)

	require.ErrorIs(t, s.DeleteConversation(house, c.ID), ErrForbidden)
	require.NoError(t, s.DeleteConversation(ann, c.ID))
	require.Empty(t, s.Conversations(ann))
}

func TestStore_Files(t *testing.T) {
	s := NewStore()
	f := s.SaveFile("a.txt", "text/plain", []byte("x"))

	got, err := s.File(f.ID)
	require.NoError(t, err)
	assert.Equal(t, f, got)

	_, err = s.File("nope")
	require.ErrorIs(t, err, common.ErrNotFound)
}
