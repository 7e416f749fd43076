package enrich

import "errors"

var (
	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrStoreRequired indicates a missing triple store.
	ErrStoreRequired = errors.New("triple store is required")

	// ErrEmbedderRequired indicates a missing embedder.
	ErrEmbedderRequired = errors.New("embedder is required")

	// ErrInvalidLocations indicates a location file that cannot be parsed.
	ErrInvalidLocations = errors.New("invalid location file")
)
