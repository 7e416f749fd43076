package taxonomy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/agrikg/core"
)

// ClusterBuilder derives the taxonomy from the data: K macrocategories by
// k-means over the standardized embeddings, then M microcategories inside
// every macro group that has at least M members.
type ClusterBuilder struct {
	cfg     Config
	labeler *Labeler
	texts   TextSource
	logger  *slog.Logger
}

var _ Builder = (*ClusterBuilder)(nil)

// NewClusterBuilder creates a clustering builder.
func NewClusterBuilder(cfg Config, opts ...Option) (*ClusterBuilder, error) {
	cfg.Strategy = core.StrategyKMeans
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := buildOptions("taxonomy.cluster", opts)
	return &ClusterBuilder{
		cfg:     cfg,
		labeler: NewLabeler(),
		texts:   o.texts,
		logger:  o.logger,
	}, nil
}

// ClusterMacroIRI returns the node identity of clustered macrocategory m.
func ClusterMacroIRI(m int) string {
	return core.SpecialtyIRI(fmt.Sprintf("macrocategory_%d", m)).Value
}

// ClusterMicroIRI returns the node identity of microcategory j of macro m.
func ClusterMicroIRI(m, j int) string {
	return core.SpecialtyIRI(fmt.Sprintf("microcategory_%d_%d", m, j)).Value
}

// Build clusters entries into a taxonomy. Assignments follow input order.
func (b *ClusterBuilder) Build(ctx context.Context, entries []core.Embedded) (*core.Taxonomy, error) {
	if len(entries) < b.cfg.MacroCount {
		return nil, fmt.Errorf("%w: %d specialties for %d macrocategories", ErrTooFewVectors, len(entries), b.cfg.MacroCount)
	}
	raw, err := NewMatrix(entries)
	if err != nil {
		return nil, err
	}
	scaled := Standardize(raw)

	macroRes, err := b.cfg.kmeans(b.cfg.MacroCount).Fit(ctx, scaled)
	if err != nil {
		return nil, fmt.Errorf("macro clustering: %w", err)
	}
	b.logger.Info("macro clustering done",
		"specialties", len(entries),
		"k", b.cfg.MacroCount,
		"inertia", macroRes.Inertia,
		"iterations", macroRes.Iterations)

	texts := b.sourceTexts(ctx, entries)

	tax := &core.Taxonomy{
		Strategy:    core.StrategyKMeans,
		Assignments: make([]core.Assignment, len(entries)),
	}
	for i, e := range entries {
		tax.Assignments[i] = core.Assignment{
			Specialty: e.ID,
			Macro:     ClusterMacroIRI(macroRes.Labels[i]),
		}
	}

	for m, group := range macroRes.Groups() {
		macroID := ClusterMacroIRI(m)
		tax.Macros = append(tax.Macros, core.Category{
			ID:      macroID,
			Kind:    core.CategoryMacro,
			Label:   b.labeler.Label(collectTexts(entries, group, texts), macroFallback(m)),
			Vector:  meanOf(entries, group),
			Members: memberIDs(entries, group),
		})

		if len(group) < b.cfg.MicroCount {
			b.logger.Debug("macro group below micro count, no microcategories",
				"macro", macroID, "size", len(group), "m", b.cfg.MicroCount)
			continue
		}

		microRes, err := b.cfg.kmeans(b.cfg.MicroCount).Fit(ctx, scaled.rows(group))
		if err != nil {
			return nil, fmt.Errorf("micro clustering of %s: %w", macroID, err)
		}
		for j, local := range microRes.Groups() {
			if len(local) == 0 {
				continue
			}
			members := make([]int, len(local))
			for x, l := range local {
				members[x] = group[l]
			}
			microID := ClusterMicroIRI(m, j)
			label := microFallback(m, j)
			if b.cfg.DeriveMicroLabels {
				label = b.labeler.Label(collectTexts(entries, members, texts), label)
			}
			tax.Micros = append(tax.Micros, core.Category{
				ID:      microID,
				Kind:    core.CategoryMicro,
				Label:   label,
				Parent:  macroID,
				Vector:  meanOf(entries, members),
				Members: memberIDs(entries, members),
			})
			for _, idx := range members {
				tax.Assignments[idx].Micro = microID
			}
		}
	}
	return tax, nil
}

// sourceTexts fetches member text for labeling. Failure only costs labels.
func (b *ClusterBuilder) sourceTexts(ctx context.Context, entries []core.Embedded) map[string]string {
	if b.texts == nil {
		return nil
	}
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	texts, err := b.texts.SourceTexts(ctx, ids)
	if err != nil {
		b.logger.Warn("source text lookup failed, using positional labels", "error", err)
		return nil
	}
	for _, id := range ids {
		if _, ok := texts[id]; !ok {
			b.logger.Warn("specialty has no source text", "entity", id)
		}
	}
	return texts
}

func collectTexts(entries []core.Embedded, indices []int, texts map[string]string) []string {
	out := make([]string, 0, len(indices))
	for _, i := range indices {
		if t, ok := texts[entries[i].ID]; ok {
			out = append(out, t)
		}
	}
	return out
}

func memberIDs(entries []core.Embedded, indices []int) []string {
	out := make([]string, len(indices))
	for x, i := range indices {
		out[x] = entries[i].ID
	}
	return out
}

func meanOf(entries []core.Embedded, indices []int) []float32 {
	vecs := make([][]float32, len(indices))
	for x, i := range indices {
		vecs[x] = entries[i].Vector
	}
	return meanVector(vecs)
}
