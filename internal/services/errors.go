package services

import "errors"

// Operation-boundary errors. Store, cipher, and hash failures are converted
// to one of these before reaching handlers; no raw pgx or crypto error
// crosses the service boundary.
var (
	// ErrEmailExists is returned when registering with an email that is
	// already taken.
	ErrEmailExists = errors.New("email already registered")

	// ErrInvalidCredentials is returned for any failed login. It covers both
	// unknown email and wrong password so callers cannot probe which
	// accounts exist.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrCurrentPasswordIncorrect is returned when a password change supplies
	// the wrong current password.
	ErrCurrentPasswordIncorrect = errors.New("current password is incorrect")

	// ErrEntryNotFound is returned when a vault entry does not exist.
	ErrEntryNotFound = errors.New("entry not found")

	// ErrForbidden is returned when a caller operates on a vault entry owned
	// by someone else.
	ErrForbidden = errors.New("not the owner of this entry")
)
