// Package identity decides who authored a message and turns raw server
// message records into client messages.
//
// Resolution order, first match wins:
//
//  1. an explicit, recognized role label on the record;
//  2. an author id equal to the conversation's patient or doctor id;
//  3. an author id owned by the local viewer (account or patient-record id);
//  4. the conversation mode's default counterpart.
//
// The order matters: a record is never attributed to the viewer only because
// the server omitted its role, and records without any identifiers still get
// a sensible author.
package identity

import "github.com/dmitrijs2005/medchat/internal/client/models"

// Ordered extraction rules for the fields the resolver reads.
var (
	RoleKeys     = []string{"role", "sender", "sender_role", "author_type"}
	AuthorIDKeys = []string{"sender_id", "author_id", "user_id"}
)

// Resolve returns the role that authored raw within conv, as seen by user.
// It is a pure function of its arguments.
func Resolve(raw models.RawRecord, conv models.Conversation, user models.User) models.Role {
	if role, ok := explicitRole(raw); ok {
		return role
	}

	authorID, _ := raw.String(AuthorIDKeys...)
	if authorID != "" {
		if conv.PatientID != "" && authorID == conv.PatientID {
			return models.RolePatient
		}
		if conv.DoctorID != "" && authorID == conv.DoctorID {
			return models.RoleDoctor
		}
		if user.Owns(authorID) {
			return models.RolePatient
		}
	}

	if conv.Mode == models.ModeAI {
		return models.RoleAI
	}
	return models.RoleDoctor
}

// explicitRole walks RoleKeys and returns the first recognized label.
// An unrecognized value under one key does not stop the search.
func explicitRole(raw models.RawRecord) (models.Role, bool) {
	for _, k := range RoleKeys {
		s, ok := raw.String(k)
		if !ok {
			continue
		}
		if role, ok := models.ParseRole(s); ok {
			return role, true
		}
	}
	return "", false
}
