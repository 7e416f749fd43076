package mutator

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/poiesic/agrikg/core"
	"github.com/poiesic/agrikg/storage"
	"github.com/poiesic/agrikg/vectorstore"
)

// Relation is the kind of membership edge from a specialty to a category.
type Relation int

const (
	// RelationMacro links a specialty to its macrocategory.
	RelationMacro Relation = iota
	// RelationMicro links a specialty to its microcategory.
	RelationMicro
)

// Predicate returns the edge predicate of the relation.
func (r Relation) Predicate() core.Term {
	if r == RelationMicro {
		return core.IsSpecializedIn
	}
	return core.BelongsToMacrocategory
}

// Mutator materializes taxonomy nodes and membership edges.
type Mutator struct {
	store           storage.TripleStore
	vectorPredicate core.Term
	writeVectors    bool
	logger          *slog.Logger
}

// Option configures a Mutator.
type Option func(*Mutator)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Mutator) {
		m.logger = logger
	}
}

// WithCategoryVectors controls whether category representative vectors are
// stored on category nodes. Enabled by default.
func WithCategoryVectors(enabled bool) Option {
	return func(m *Mutator) {
		m.writeVectors = enabled
	}
}

// New creates a mutator over store.
func New(store storage.TripleStore, opts ...Option) (*Mutator, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	m := &Mutator{
		store:           store,
		vectorPredicate: core.EmbeddingValue,
		writeVectors:    true,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With("component", "mutator")
	return m, nil
}

type nodeOptions struct {
	parent string
	vector []float32
}

// NodeOption sets optional properties of a category node.
type NodeOption func(*nodeOptions)

// WithParent sets the owning macrocategory of a microcategory.
func WithParent(macro string) NodeOption {
	return func(o *nodeOptions) {
		o.parent = macro
	}
}

// WithVector sets the representative vector of a category.
func WithVector(v []float32) NodeOption {
	return func(o *nodeOptions) {
		o.vector = v
	}
}

// EnsureCategoryNode creates the category node if absent and reports whether
// it did. An existing node is never duplicated; its label, parent and vector
// are replaced when they differ. A microcategory keeps exactly one parent.
func (m *Mutator) EnsureCategoryNode(ctx context.Context, kind core.CategoryKind, id, label string, opts ...NodeOption) (bool, error) {
	var o nodeOptions
	for _, opt := range opts {
		opt(&o)
	}
	if id == "" {
		return false, fmt.Errorf("%w: empty identity", ErrInvalidCategory)
	}
	if kind == core.CategoryMicro && o.parent == "" {
		return false, fmt.Errorf("%w: microcategory %s has no parent", ErrInvalidCategory, id)
	}

	node := core.IRI(id)
	var created bool
	err := m.store.WithTransaction(ctx, func(ctx context.Context) error {
		typed := core.T(node, core.RDFType, kind.TypeTerm())
		exists, err := m.store.Has(ctx, typed)
		if err != nil {
			return err
		}
		if !exists {
			if _, err := m.store.Add(ctx, typed); err != nil {
				return err
			}
			created = true
		}

		if label != "" {
			if err := m.replaceObjects(ctx, node, core.RDFSLabel, core.Literal(label)); err != nil {
				return err
			}
		}
		if kind == core.CategoryMicro {
			if err := m.replaceObjects(ctx, node, core.BelongsToMacrocategory, core.IRI(o.parent)); err != nil {
				return err
			}
		}
		if m.writeVectors && len(o.vector) > 0 {
			if err := m.replaceObjects(ctx, node, m.vectorPredicate, vectorstore.VectorLiteral(o.vector)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("ensure %s %s: %w", kind, id, err)
	}
	if created {
		m.logger.Debug("created category", "kind", kind.String(), "category", id, "label", label)
	}
	return created, nil
}

// replaceObjects makes value the only object of (subject, predicate).
func (m *Mutator) replaceObjects(ctx context.Context, subject, predicate, value core.Term) error {
	current, err := m.store.Objects(ctx, subject, predicate)
	if err != nil {
		return err
	}
	if len(current) == 1 && current[0] == value {
		return nil
	}
	stale := make([]core.Triple, 0, len(current))
	for _, o := range current {
		if o != value {
			stale = append(stale, core.T(subject, predicate, o))
		}
	}
	if _, err := m.store.Remove(ctx, stale...); err != nil {
		return err
	}
	if !slices.Contains(current, value) {
		_, err = m.store.Add(ctx, core.T(subject, predicate, value))
	}
	return err
}

// LinkSpecialtyToCategory adds the membership edge from specialty to category
// unless it already exists, and reports whether it was added. A specialty
// missing from the graph is logged and skipped.
func (m *Mutator) LinkSpecialtyToCategory(ctx context.Context, specialty, category string, rel Relation) (bool, error) {
	s := core.IRI(specialty)
	ok, err := m.known(ctx, s)
	if err != nil || !ok {
		return false, err
	}
	return m.addIfAbsent(ctx, core.T(s, rel.Predicate(), core.IRI(category)))
}

// known reports whether the entity has a type in the graph, warning when not.
func (m *Mutator) known(ctx context.Context, entity core.Term) (bool, error) {
	types, err := m.store.Objects(ctx, entity, core.RDFType)
	if err != nil {
		return false, err
	}
	if len(types) == 0 {
		m.logger.Warn("entity not found, membership not written", "entity", entity.Value)
		return false, nil
	}
	return true, nil
}

// addIfAbsent checks for the edge before inserting it.
func (m *Mutator) addIfAbsent(ctx context.Context, t core.Triple) (bool, error) {
	exists, err := m.store.Has(ctx, t)
	if err != nil || exists {
		return false, err
	}
	n, err := m.store.Add(ctx, t)
	return n > 0, err
}
