// Package errs holds sentinel errors shared by repositories, services and handlers.
package errs

import "errors"

var (
	// ErrNotFound is returned when the requested entity or stored object does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized is returned when the actor may not see or change the entity.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrAlreadyExists is returned on a unique constraint violation (username or email taken).
	ErrAlreadyExists = errors.New("already exists")

	// ErrNoNamespace is returned when a user has no secret key and therefore no private folder.
	ErrNoNamespace = errors.New("no namespace")

	// ErrInvalidToken is returned for malformed, expired, reused or foreign request tokens and sessions.
	ErrInvalidToken = errors.New("invalid token")

	// ErrUploadFailed marks a batch where at least one file could not be stored.
	ErrUploadFailed = errors.New("upload failed")
)
