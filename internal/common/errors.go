package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Auth errors (missing, invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrUnauthorized = errors.New("unauthorized")
	ErrTokenExpired = errors.New("token expired")

	// ErrAlreadyExists is returned when a uniqueness rule (one AI
	// conversation per patient) would be violated.
	ErrAlreadyExists = errors.New("already exists")
)
