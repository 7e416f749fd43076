package vectorstore

import "errors"

var (
	// ErrStoreRequired indicates that a triple store was not provided.
	ErrStoreRequired = errors.New("triple store is required")

	// ErrMalformedVector indicates an embedding literal that is not a numeric array.
	ErrMalformedVector = errors.New("malformed embedding vector")

	// ErrInvalidArtifact indicates an embedding artifact that is not index aligned
	// or mixes dimensionalities.
	ErrInvalidArtifact = errors.New("invalid embedding artifact")
)
