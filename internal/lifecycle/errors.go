package lifecycle

import (
	"errors"
	"fmt"
)

// Error classes returned by Scheduler operations. Check with errors.Is.
//
//   - ErrNotFound, ErrInvalidTransition, ErrInvalidArgument: business-rule
//     failures. The flight record is left unmodified; show them to the user.
//   - ErrPersistence: the store rejected a read or write. Not retried here;
//     in-memory state may be stale until the caller retries.
var (
	ErrNotFound          = errors.New("flight not found")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrPersistence       = errors.New("persistence error")
)

func notFound(flightNumber string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, flightNumber)
}

func invalidTransitionf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidTransition, fmt.Sprintf(format, args...))
}

func invalidArgumentf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

func persistence(op string, err error) error {
	return fmt.Errorf("%w: failed to %s: %w", ErrPersistence, op, err)
}
