package models

import "strings"

// Role is the resolved author of a message.
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleAI      Role = "ai"
	RoleSystem  Role = "system"
)

// ParseRole maps a server-provided role label onto a Role.
// "assistant" and "bot" are aliases of RoleAI. Unknown labels report ok=false.
func ParseRole(s string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "patient":
		return RolePatient, true
	case "doctor":
		return RoleDoctor, true
	case "ai", "assistant", "bot":
		return RoleAI, true
	case "system":
		return RoleSystem, true
	}
	return "", false
}

// Mode is the kind of counterpart a conversation is held with.
type Mode string

const (
	ModeAI     Mode = "ai"
	ModeDoctor Mode = "doctor"
)

// ParseMode accepts "ai" and "doctor"; "patient" is treated as doctor mode
// because patient/doctor threads are listed together.
func ParseMode(s string) (Mode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ai", "assistant":
		return ModeAI, true
	case "doctor", "patient":
		return ModeDoctor, true
	}
	return "", false
}
