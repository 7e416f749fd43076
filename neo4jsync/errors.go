package neo4jsync

import "errors"

var (
	// ErrURIRequired is returned when no connection URI is configured.
	ErrURIRequired = errors.New("neo4j uri is required")
	// ErrRunnerRequired is returned when an exporter has nothing to write to.
	ErrRunnerRequired = errors.New("neo4j runner is required")
	// ErrStoreRequired is returned when exporting without a triple store.
	ErrStoreRequired = errors.New("triple store is required")
)
