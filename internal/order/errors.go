package order

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("order not found")

	// ErrInvalidTransition is returned when a status change is not in the
	// lifecycle graph, including any change away from a terminal status.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrConflict is returned when a compare-and-swap status update lost a
	// race against a concurrent writer.
	ErrConflict = errors.New("order was modified concurrently")
)

// ValidationError rejects a checkout payload before anything is written.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "invalid order: " + e.Reason }

func validationErrorf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// IsValidationError reports whether err is a payload validation failure.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
