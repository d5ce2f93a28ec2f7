package bookings

import "errors"

var (
	// ErrValidation wraps malformed or out-of-range input, caught before
	// any state mutation.
	ErrValidation = errors.New("invalid input")
	// ErrNotFound means no booking exists with the given code.
	ErrNotFound = errors.New("booking not found")
	// ErrInvalidTransition means the operation is not permitted from the
	// booking's current status, including lost accept races.
	ErrInvalidTransition = errors.New("invalid booking state for this operation")
)
