package mutator

import "errors"

var (
	// ErrStoreRequired indicates a missing triple store.
	ErrStoreRequired = errors.New("triple store is required")

	// ErrInvalidCategory indicates a category that cannot be written.
	ErrInvalidCategory = errors.New("invalid category")
)
