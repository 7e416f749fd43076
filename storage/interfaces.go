package storage

import (
	"context"

	"github.com/poiesic/agrikg/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// WithTransaction executes a function within a single read-write transaction.
	// Every repository call made with the context passed to fn joins that
	// transaction. If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close releases resources held by the repository.
	Close() error
}

// TripleStore is a persistent set of RDF triples.
//
// Edge identity is the (subject, predicate, object) tuple: adding a triple that
// is already present is a no-op.
type TripleStore interface {
	Repository

	// Add inserts triples and returns how many were not already present.
	Add(ctx context.Context, triples ...core.Triple) (int, error)

	// Remove deletes triples and returns how many were present.
	Remove(ctx context.Context, triples ...core.Triple) (int, error)

	// Has reports whether the exact triple is stored.
	Has(ctx context.Context, triple core.Triple) (bool, error)

	// Match returns all triples satisfying the pattern in the store's
	// natural iteration order.
	Match(ctx context.Context, pattern core.Pattern) ([]core.Triple, error)

	// Objects returns the objects of all triples with the given subject and predicate.
	Objects(ctx context.Context, subject, predicate core.Term) ([]core.Term, error)

	// Subjects returns the subjects of all triples with the given predicate and object.
	Subjects(ctx context.Context, predicate, object core.Term) ([]core.Term, error)

	// Count returns the number of stored triples.
	Count(ctx context.Context) (int, error)
}

// RunRepository keeps the history of taxonomy builds applied to the graph.
type RunRepository interface {
	Repository

	// SaveRun persists a run. Runs with ID=0 get a new ID from a sequence.
	SaveRun(ctx context.Context, run *core.Run) (*core.Run, error)

	// LatestRun returns the most recently saved run.
	// Returns ErrNotFound if no run has been saved.
	LatestRun(ctx context.Context) (*core.Run, error)

	// ListRuns returns up to limit runs, most recent first.
	ListRuns(ctx context.Context, limit int) ([]*core.Run, error)
}
