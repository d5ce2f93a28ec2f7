package users

import "errors"

var (
	// ErrValidation wraps malformed or out-of-range input.
	ErrValidation = errors.New("invalid input")
	// ErrNotFound means no user exists with the given id or email.
	ErrNotFound = errors.New("user not found")
	// ErrEmailTaken / ErrPhoneTaken are registration conflicts.
	ErrEmailTaken = errors.New("email already exists")
	ErrPhoneTaken = errors.New("phone already exists")
	// ErrInvalidCredentials is a failed login.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrLocationRequired means a proximity query was attempted for a
	// user who has never reported a position.
	ErrLocationRequired = errors.New("location not available")
)
