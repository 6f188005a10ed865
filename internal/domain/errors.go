package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by repositories when a record does not exist
	ErrNotFound = errors.New("not found")

	// ErrValidation is wrapped by every Validate failure
	ErrValidation = errors.New("invalid")

	// ErrInvalidTransition is wrapped by InvalidTransitionError
	ErrInvalidTransition = errors.New("invalid stage transition")

	// ErrDuplicate is returned when a uniqueness constraint would be violated
	ErrDuplicate = errors.New("already exists")
)

// InvalidTransitionError names the rejected (from, to) stage pair
// Legal holds the stages the deal could have moved to instead, empty when From is terminal.
type InvalidTransitionError struct {
	From  Stage
	To    Stage
	Legal []Stage
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid stage transition from %s to %s", e.From, e.To)
}

// Unwrap lets callers match the error with errors.Is(err, ErrInvalidTransition)
func (e *InvalidTransitionError) Unwrap() error {
	return ErrInvalidTransition
}

func validationError(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}
