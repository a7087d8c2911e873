package common

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFrame(t *testing.T) {
	f, err := NewFrame(EventJoinRoom, RoomPayload{Room: RoomFor("c1")})
	require.NoError(t, err)

	b, err := json.Marshal(f)
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"join_room","data":{"room":"room:c1"}}`, string(b))

	f, err = NewFrame("ping", nil)
	require.NoError(t, err)
	b, _ = json.Marshal(f)
	assert.JSONEq(t, `{"event":"ping"}`, string(b))
}

func TestConversationOfRoom(t *testing.T) {
	id, ok := ConversationOfRoom(RoomFor("42"))
	require.True(t, ok)
	assert.Equal(t, "42", id)

	for _, room := range []string{"", "room:", "lobby", "42"} {
		_, ok := ConversationOfRoom(room)
		assert.False(t, ok, room)
	}
}
