package client

import (
	"errors"
	"fmt"
)

var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrTimeout      = errors.New("request timed out")
	ErrUnauthorized = errors.New("unauthorized")
	ErrFileTooLarge = errors.New("file too large")
	ErrAIOverloaded = errors.New("ai assistant overloaded")
	ErrNotFound     = errors.New("not found")
	ErrRejected     = errors.New("request rejected")
	ErrBadResponse  = errors.New("malformed server response")
)

// APIError is a non-2xx answer from the API. It unwraps to the sentinel the
// status was classified as.
type APIError struct {
	Status  int
	Code    string
	Message string
	kind    error
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api error %d", e.Status)
}

func (e *APIError) Unwrap() error {
	return e.kind
}

// IsRetryable reports whether err is transient and the same request may
// succeed when repeated.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrUnavailable) || errors.Is(err, ErrTimeout) || errors.Is(err, ErrAIOverloaded)
}

// Describe returns a human-readable message for err.
func Describe(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTimeout):
		return "The request took too long. Please try again."
	case errors.Is(err, ErrUnavailable):
		return "Cannot reach the server. Check your connection and try again."
	case errors.Is(err, ErrFileTooLarge):
		return "The file is too large to upload."
	case errors.Is(err, ErrAIOverloaded):
		return "The AI assistant is busy right now. Please try again in a moment."
	case errors.Is(err, ErrUnauthorized):
		return "Your session has expired. Please log in again."
	case errors.Is(err, ErrNotFound):
		return "The conversation or message no longer exists."
	default:
		return "Something went wrong. Please try again."
	}
}
