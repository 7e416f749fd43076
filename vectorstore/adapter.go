// Package vectorstore extracts (entity, embedding) pairs from the knowledge
// graph and moves them between pipeline stages.
package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/agrikg/core"
	"github.com/poiesic/agrikg/storage"
)

// Adapter reads stored embeddings out of the triple store.
type Adapter struct {
	store     storage.TripleStore
	predicate core.Term
	logger    *slog.Logger
}

// Option configures an Adapter.
type Option func(*Adapter) error

// WithEmbeddingPredicate sets the predicate holding embeddings.
// Defaults to ns2:embedding_value.
func WithEmbeddingPredicate(p core.Term) Option {
	return func(a *Adapter) error {
		if !p.IsIRI() {
			return fmt.Errorf("embedding predicate must be an IRI, got %s", p)
		}
		a.predicate = p
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Adapter) error {
		a.logger = logger
		return nil
	}
}

// NewAdapter creates a vector store adapter over a triple store.
func NewAdapter(store storage.TripleStore, opts ...Option) (*Adapter, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	a := &Adapter{
		store:     store,
		predicate: core.EmbeddingValue,
		logger:    slog.Default().With("component", "vectorstore"),
	}
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// FetchEntitiesWithEmbeddings returns every entity typed as kind that carries
// a parseable embedding, in the store's natural iteration order. Entities with
// malformed or empty vectors are skipped with a warning, as are vectors whose
// length differs from the dominant dimensionality of the result.
func (a *Adapter) FetchEntitiesWithEmbeddings(ctx context.Context, kind core.Term) ([]core.Embedded, error) {
	subjects, err := a.store.Subjects(ctx, core.RDFType, kind)
	if err != nil {
		return nil, fmt.Errorf("list %s entities: %w", kind.LocalName(), err)
	}

	entries := make([]core.Embedded, 0, len(subjects))
	for _, s := range subjects {
		objects, err := a.store.Objects(ctx, s, a.predicate)
		if err != nil {
			return nil, err
		}
		if len(objects) == 0 {
			continue
		}
		vector, err := firstVector(objects)
		if err != nil {
			a.logger.Warn("skipping entity with unusable embedding", "entity", s.Value, "err", err)
			continue
		}
		entries = append(entries, core.Embedded{ID: s.Value, Vector: vector})
	}

	entries = a.dropOddDimensions(entries)
	a.logger.Debug("fetched embeddings", "kind", kind.LocalName(), "entities", len(subjects), "embedded", len(entries))
	return entries, nil
}

// SourceText returns the text an entity was embedded from: rdf:value, or
// schema:name when no value is present.
func (a *Adapter) SourceText(ctx context.Context, id string) (string, bool, error) {
	for _, p := range []core.Term{core.RDFValue, core.SchemaName} {
		objects, err := a.store.Objects(ctx, core.IRI(id), p)
		if err != nil {
			return "", false, err
		}
		for _, o := range objects {
			if o.IsLiteral() && strings.TrimSpace(o.Value) != "" {
				return o.Value, true, nil
			}
		}
	}
	return "", false, nil
}

// SourceTexts resolves SourceText for many ids. Ids without text are logged
// and left out of the map.
func (a *Adapter) SourceTexts(ctx context.Context, ids []string) (map[string]string, error) {
	texts := make(map[string]string, len(ids))
	for _, id := range ids {
		text, ok, err := a.SourceText(ctx, id)
		if err != nil {
			return nil, err
		}
		if !ok {
			a.logger.Warn("entity has no source text", "entity", id)
			continue
		}
		texts[id] = text
	}
	return texts, nil
}

func (a *Adapter) dropOddDimensions(entries []core.Embedded) []core.Embedded {
	if len(entries) == 0 {
		return entries
	}
	counts := make(map[int]int)
	dominant, best := 0, 0
	for _, e := range entries {
		counts[len(e.Vector)]++
		if c := counts[len(e.Vector)]; c > best {
			dominant, best = len(e.Vector), c
		}
	}
	if best == len(entries) {
		return entries
	}
	kept := entries[:0]
	for _, e := range entries {
		if len(e.Vector) != dominant {
			a.logger.Warn("skipping entity with mismatched embedding dimension",
				"entity", e.ID, "dimension", len(e.Vector), "expected", dominant)
			continue
		}
		kept = append(kept, e)
	}
	return kept
}

func firstVector(objects []core.Term) ([]float32, error) {
	var lastErr error
	for _, o := range objects {
		if !o.IsLiteral() {
			lastErr = fmt.Errorf("%w: object is not a literal", ErrMalformedVector)
			continue
		}
		v, err := ParseVector(o.Value)
		if err != nil {
			lastErr = err
			continue
		}
		return v, nil
	}
	return nil, lastErr
}

// ParseVector decodes a JSON array literal into a vector.
func ParseVector(s string) ([]float32, error) {
	var v []float32
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedVector, err)
	}
	if len(v) == 0 {
		return nil, fmt.Errorf("%w: empty vector", ErrMalformedVector)
	}
	return v, nil
}

// FormatVector encodes a vector as the JSON array literal stored in the graph.
func FormatVector(v []float32) string {
	data, _ := json.Marshal(v)
	return string(data)
}

// VectorLiteral builds the literal term that stores v.
func VectorLiteral(v []float32) core.Term {
	return core.Literal(FormatVector(v))
}
