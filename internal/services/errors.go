package services

import "errors"

var (
	// ErrNotFound covers every scope miss: a task that does not exist, belongs
	// to another user, or is on the wrong side of the soft-delete flag. The
	// cases are deliberately indistinguishable to the caller.
	ErrNotFound = errors.New("not found")

	ErrEmailTaken         = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// ValidationError reports malformed or out-of-range input detected before any
// store access.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidationError(message string) error {
	return &ValidationError{Message: message}
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
