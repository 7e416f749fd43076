package taxonomy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/agrikg/core"
)

// MicroPolicy controls how anchor assignment relates micro to macro choices.
type MicroPolicy string

const (
	// MicroConstrained picks the nearest microcategory among the children of
	// the chosen macrocategory, so hierarchies are always consistent.
	MicroConstrained MicroPolicy = "constrained"

	// MicroIndependent picks the nearest microcategory overall. The chosen
	// micro may belong to another macro; such mismatches are counted and logged.
	MicroIndependent MicroPolicy = "independent"
)

// Config holds the per-run taxonomy parameters.
type Config struct {
	Strategy core.Strategy

	// MacroCount is K, the number of macrocategories (kmeans only).
	MacroCount int

	// MicroCount is M, the number of microcategories per macro group
	// (kmeans only). Groups smaller than M get no microcategory.
	MicroCount int

	Seed          uint64
	MaxIterations int
	NInit         int
	Tolerance     float64

	// MicroPolicy applies to the anchors strategy.
	MicroPolicy MicroPolicy

	// DeriveMicroLabels names kmeans microcategories from member text instead
	// of the positional "Microcategory m_j" label.
	DeriveMicroLabels bool
}

// DefaultConfig returns the parameters used for the provider graph.
func DefaultConfig() Config {
	return Config{
		Strategy:      core.StrategyKMeans,
		MacroCount:    6,
		MicroCount:    8,
		Seed:          42,
		MaxIterations: 300,
		NInit:         10,
		Tolerance:     1e-4,
		MicroPolicy:   MicroConstrained,
	}
}

// Validate checks the parameters.
func (c Config) Validate() error {
	switch c.Strategy {
	case core.StrategyKMeans:
		if c.MacroCount < 1 {
			return fmt.Errorf("%w: macro count must be at least 1, got %d", ErrInvalidConfig, c.MacroCount)
		}
		if c.MicroCount < 1 {
			return fmt.Errorf("%w: micro count must be at least 1, got %d", ErrInvalidConfig, c.MicroCount)
		}
	case core.StrategyAnchors:
		switch c.MicroPolicy {
		case MicroConstrained, MicroIndependent:
		default:
			return fmt.Errorf("%w: unknown micro policy %q", ErrInvalidConfig, c.MicroPolicy)
		}
	default:
		return fmt.Errorf("%w: unknown strategy %q", ErrInvalidConfig, c.Strategy)
	}
	if c.MaxIterations < 1 {
		return fmt.Errorf("%w: max iterations must be at least 1", ErrInvalidConfig)
	}
	if c.NInit < 1 {
		return fmt.Errorf("%w: n_init must be at least 1", ErrInvalidConfig)
	}
	if c.Tolerance < 0 {
		return fmt.Errorf("%w: tolerance cannot be negative", ErrInvalidConfig)
	}
	return nil
}

func (c Config) kmeans(k int) KMeans {
	return KMeans{
		K:             k,
		Seed:          c.Seed,
		MaxIterations: c.MaxIterations,
		NInit:         c.NInit,
		Tolerance:     c.Tolerance,
	}
}

// Builder partitions embedded specialties into a two-level taxonomy.
type Builder interface {
	Build(ctx context.Context, entries []core.Embedded) (*core.Taxonomy, error)
}

// TextSource resolves the source text of specialties for labeling.
type TextSource interface {
	SourceTexts(ctx context.Context, ids []string) (map[string]string, error)
}

type options struct {
	logger *slog.Logger
	texts  TextSource
}

// Option configures a Builder.
type Option func(*options)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithTextSource sets where specialty text comes from for derived labels.
// Without one every derived label uses its positional fallback.
func WithTextSource(texts TextSource) Option {
	return func(o *options) {
		o.texts = texts
	}
}

func buildOptions(component string, opts []Option) options {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = o.logger.With("component", component)
	return o
}
