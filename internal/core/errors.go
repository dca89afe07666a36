package core

import "errors"

// Sentinel errors shared across services, storage, and the HTTP layer.
// Validation sentinels map to 400, ErrNotFound to 404, ErrConflict to 409.
var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidType   = errors.New("invalid transaction type")
	ErrInvalidDate   = errors.New("invalid date")
	ErrEmptyOwner    = errors.New("empty owner")
	ErrEmptyCategory = errors.New("empty category")
	ErrEmptyUser     = errors.New("empty user id")

	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")

	// ErrNotFound covers both a missing row and a row owned by someone
	// else: callers must not be able to tell the two apart.
	ErrNotFound = errors.New("not found")

	// ErrConflict reports a uniqueness violation, e.g. a second budget
	// for the same (owner, category) pair.
	ErrConflict = errors.New("already exists")
)
