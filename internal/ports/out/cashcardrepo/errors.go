package cashcardrepo

import "errors"

var (
	// ErrNotFound indicates the requested cash card does not exist (or, for owner-scoped
	// lookups, is not owned by the given owner).
	ErrNotFound = errors.New("cash card not found")

	// ErrInvalidRecord indicates a record is missing a server-controlled field (owner).
	ErrInvalidRecord = errors.New("invalid cash card record")
)
