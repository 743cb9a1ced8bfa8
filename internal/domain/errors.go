package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds shared across services and the HTTP layer. Services return
// these unwrapped or wrapped with context; callers classify with errors.Is.
var (
	// ErrNotFound indicates a record lookup by id or unique key found nothing.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a uniqueness violation (username, email).
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidCredential indicates a password mismatch on login.
	ErrInvalidCredential = errors.New("invalid credential")
	// ErrUnauthorized indicates the operation requires an authenticated session.
	ErrUnauthorized = errors.New("authentication required")
	// ErrForbidden indicates the session lacks the required role or ownership.
	ErrForbidden = errors.New("insufficient privileges")
	// ErrCommentsDisabled indicates the target meme has its comment section closed.
	ErrCommentsDisabled = errors.New("comments are disabled")
)

// ValidationError aggregates one or more field rule violations.
type ValidationError struct {
	Messages []string
}

// NewValidationError builds a ValidationError from the provided messages.
func NewValidationError(messages ...string) *ValidationError {
	return &ValidationError{Messages: messages}
}

func (e *ValidationError) Error() string {
	if len(e.Messages) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.Messages, ", "))
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}
