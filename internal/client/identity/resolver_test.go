package identity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/medchat/internal/client/models"
)

var (
	doctorConv = models.Conversation{ID: "c1", Mode: models.ModeDoctor, PatientID: "p1", DoctorID: "d1"}
	aiConv     = models.Conversation{ID: "c2", Mode: models.ModeAI, PatientID: "p1"}
	viewer     = models.User{ID: "u1", PatientID: "p1", Role: models.RolePatient}
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name string
		raw  models.RawRecord
		conv models.Conversation
		user models.User
		want models.Role
	}{
		{"explicit role", models.RawRecord{"role": "doctor", "sender_id": "p1"}, doctorConv, viewer, models.RoleDoctor},
		{"assistant alias", models.RawRecord{"role": "assistant"}, doctorConv, viewer, models.RoleAI},
		{"sender label", models.RawRecord{"sender": "system"}, aiConv, viewer, models.RoleSystem},
		{"author_type label", models.RawRecord{"author_type": "patient"}, aiConv, viewer, models.RolePatient},
		{"unrecognized label falls through to next key", models.RawRecord{"role": "user", "sender": "doctor"}, aiConv, viewer, models.RoleDoctor},
		{"conversation patient id", models.RawRecord{"sender_id": "p1"}, doctorConv, models.User{ID: "x"}, models.RolePatient},
		{"conversation doctor id", models.RawRecord{"author_id": "d1"}, doctorConv, viewer, models.RoleDoctor},
		{"numeric author id", models.RawRecord{"user_id": 42}, models.Conversation{Mode: models.ModeDoctor, DoctorID: "42"}, viewer, models.RoleDoctor},
		{"viewer account id", models.RawRecord{"sender_id": "u1"}, models.Conversation{Mode: models.ModeDoctor}, viewer, models.RolePatient},
		{"viewer patient record id", models.RawRecord{"sender_id": "p1"}, models.Conversation{Mode: models.ModeAI}, viewer, models.RolePatient},
		{"unknown author in ai mode", models.RawRecord{"sender_id": "zzz"}, aiConv, viewer, models.RoleAI},
		{"no identifiers in doctor mode", models.RawRecord{"content": "hi"}, doctorConv, viewer, models.RoleDoctor},
		{"no identifiers in ai mode", models.RawRecord{}, aiConv, viewer, models.RoleAI},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.raw, tt.conv, tt.user))
		})
	}
}

func TestResolve_IsPure(t *testing.T) {
	raw := models.RawRecord{"sender_id": "d1", "content": "x"}
	first := Resolve(raw, doctorConv, viewer)
	for i := 0; i < 10; i++ {
		require.Equal(t, first, Resolve(raw, doctorConv, viewer))
	}
}

func TestResolve_ExplicitRoleAlwaysWins(t *testing.T) {
	// The author id points at the viewer, the explicit label says otherwise.
	raw := models.RawRecord{"role": "ai", "sender_id": "u1"}
	assert.Equal(t, models.RoleAI, Resolve(raw, doctorConv, viewer))
}

func TestResolve_MissingRoleNeverDefaultsToViewer(t *testing.T) {
	raw := models.RawRecord{"content": "no author at all"}
	assert.NotEqual(t, models.RolePatient, Resolve(raw, doctorConv, viewer))
}

func TestToMessage(t *testing.T) {
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	now := func() time.Time { return fixed }

	raw := models.RawRecord{
		"id":         "m9",
		"content":    "Tôi bị sốt  \r\n\r\n\r\nhôm qua",
		"role":       "patient",
		"created_at": "2024-06-01T08:00:00Z",
		"file_url":   "https://files/x.png",
		"file_name":  "x.png",
		"file_type":  "image/png",
	}

	m := ToMessage(raw, doctorConv, viewer, now)
	assert.Equal(t, "m9", m.ID)
	assert.Equal(t, "c1", m.ConversationID)
	assert.Equal(t, models.RolePatient, m.Role)
	assert.Equal(t, "Tôi bị sốt\n\nhôm qua", m.Text)
	assert.Equal(t, time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC), m.Timestamp)
	assert.Equal(t, "x.png", m.FileName)
	assert.True(t, m.HasFile())

	m = ToMessage(models.RawRecord{"id": 5, "conv_id": "c7"}, doctorConv, viewer, now)
	assert.Equal(t, "5", m.ID)
	assert.Equal(t, "c7", m.ConversationID)
	assert.Equal(t, fixed, m.Timestamp)
}

func TestToMessages_SkipsRecordsWithoutID(t *testing.T) {
	raws := []models.RawRecord{{"id": "a"}, {"content": "orphan"}, {"message_id": "b"}}
	got := ToMessages(raws, aiConv, viewer, time.Now)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
}
