package services

import "errors"

var (
	// ErrConflict is returned when a username or e-mail is already taken.
	ErrConflict = errors.New("already exists")
	// ErrInvalidCredentials is returned for any failed login.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrCardNotFound is returned when a card does not exist or is not owned by the caller.
	ErrCardNotFound = errors.New("card not found")
)
