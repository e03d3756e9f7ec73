package store

import "errors"

var (
	// ErrUnknownUser is returned when an operation references a user
	// that was never registered. Callers must upsert the user first.
	ErrUnknownUser = errors.New("unknown user")

	// ErrReferentialIntegrity is returned when a write references a
	// row that does not exist (dangling foreign key).
	ErrReferentialIntegrity = errors.New("referential integrity violation")
)
