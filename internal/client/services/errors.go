package services

import (
	"errors"
	"fmt"
)

// ErrValidation marks requests rejected before any network call. Callers
// treat it as silent.
var ErrValidation = errors.New("validation failed")

var (
	ErrEmptyMessage   = fmt.Errorf("%w: nothing to send", ErrValidation)
	ErrNoConversation = fmt.Errorf("%w: no active conversation", ErrValidation)
	ErrSendInFlight   = fmt.Errorf("%w: a send is already in progress", ErrValidation)
	ErrUnconfirmed    = fmt.Errorf("%w: message is not confirmed yet", ErrValidation)
)

// ErrAttachmentInAI is returned for file sends into AI conversations. Unlike
// other validation errors it is meant to be shown to the user.
var ErrAttachmentInAI = fmt.Errorf("%w: attachments are not supported in AI conversations", ErrValidation)

// IsSilent reports whether err should not be shown to the user.
func IsSilent(err error) bool {
	return errors.Is(err, ErrValidation) && !errors.Is(err, ErrAttachmentInAI)
}
