package users

import "errors"

// Credential store errors
var (
	// ErrUserNotFound indicates that no user with the given username exists
	ErrUserNotFound = errors.New("user not found")

	// ErrUserAlreadyExists indicates an exact duplicate registration:
	// same username, same password
	ErrUserAlreadyExists = errors.New("user already exists")

	// ErrInvalidCredentials is returned uniformly for unknown username and
	// wrong password so the API never discloses which one failed
	ErrInvalidCredentials = errors.New("invalid username or password")
)
