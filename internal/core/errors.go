package core

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound covers both a missing record and one owned by another user.
	ErrNotFound = errors.New("not found")

	ErrDuplicateUsername  = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionExpired     = errors.New("session expired")
)

// ValidationError reports bad or missing user input for a single field.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// LimitExceededError is returned when an expense would push a category total
// past its configured limit.
type LimitExceededError struct {
	Category string
	Limit    Money
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("Expense limit exceeded for %s. Limit: %s", e.Category, e.Limit)
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
