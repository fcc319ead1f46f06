package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds surfaced by the credential service. Callers match them with Is
// and the HTTP layer maps each kind to a status code.
var (
	// ErrUnauthorized covers bad credentials and bad, expired or missing tokens.
	// It is deliberately uniform and never says which check failed.
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrBadRequest   = errors.New("bad request")
	ErrConflict     = errors.New("conflict")
	ErrInternal     = errors.New("internal error")
)

// ValidationError aggregates every violated input rule of a request.
type ValidationError struct {
	Messages []string
}

func NewValidationError(messages ...string) *ValidationError {
	return &ValidationError{Messages: messages}
}

func (v *ValidationError) Error() string {
	return "validation failed: " + strings.Join(v.Messages, "; ")
}

func (v *ValidationError) Unwrap() error {
	return ErrBadRequest
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
