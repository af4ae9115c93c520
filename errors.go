package confdata

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions
var (
	// Data errors
	ErrNotFound    = errors.New("object not found")
	ErrConflict    = errors.New("concurrent modification detected")
	ErrInvalidData = errors.New("invalid data format")

	// Domain errors
	ErrMalformedID        = errors.New("malformed identifier")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrBadFilename        = errors.New("invalid filename")

	// Backend errors
	ErrBackendUnavailable = errors.New("backend unavailable")
	ErrUnauthorized       = errors.New("unauthorized access")

	// Configuration errors
	ErrInvalidConfig = errors.New("invalid configuration")
)

// ErrorWithContext adds additional context to errors for better debugging and logging
type ErrorWithContext struct {
	Err     error
	Context map[string]interface{}
}

func (e *ErrorWithContext) Error() string {
	if len(e.Context) == 0 {
		return e.Err.Error()
	}
	return fmt.Sprintf("%v (context: %+v)", e.Err, e.Context)
}

func (e *ErrorWithContext) Unwrap() error {
	return e.Err
}

// WithContext adds context to an error
func WithContext(err error, context map[string]interface{}) error {
	if err == nil {
		return nil
	}
	return &ErrorWithContext{
		Err:     err,
		Context: context,
	}
}

// IsNotFound checks if an error is a "not found" error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict checks if an error is a conflict/concurrent modification error
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsValidation checks if an error was rejected before any mutation took place
func IsValidation(err error) bool {
	return errors.Is(err, ErrMalformedID) ||
		errors.Is(err, ErrBadFilename) ||
		errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrInvalidData)
}
