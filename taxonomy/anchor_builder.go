package taxonomy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/agrikg/ai"
	"github.com/poiesic/agrikg/core"
)

// AnchorBuilder assigns every specialty to the most similar curated anchor
// category. Categories are fixed in advance; only membership comes from data.
type AnchorBuilder struct {
	policy  MicroPolicy
	anchors *AnchorEmbeddings
	dims    int
	logger  *slog.Logger
}

var _ Builder = (*AnchorBuilder)(nil)

// NewAnchorBuilder creates an anchor builder over an embedded anchor set.
func NewAnchorBuilder(cfg Config, anchors *AnchorEmbeddings, opts ...Option) (*AnchorBuilder, error) {
	cfg.Strategy = core.StrategyAnchors
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if anchors == nil || len(anchors.Macros) == 0 {
		return nil, fmt.Errorf("%w: no embedded anchors", ErrInvalidAnchors)
	}
	dims := len(anchors.Macros[0].Average)
	for _, m := range anchors.Macros {
		if len(m.Average) != dims {
			return nil, fmt.Errorf("%w: %q has %d dimensions, want %d", ErrDimensionMismatch, m.Name, len(m.Average), dims)
		}
		for _, micro := range m.Micros {
			if len(micro.Average) != dims {
				return nil, fmt.Errorf("%w: %q/%q has %d dimensions, want %d", ErrDimensionMismatch, m.Name, micro.Name, len(micro.Average), dims)
			}
		}
	}
	o := buildOptions("taxonomy.anchors", opts)
	return &AnchorBuilder{
		policy:  cfg.MicroPolicy,
		anchors: anchors,
		dims:    dims,
		logger:  o.logger,
	}, nil
}

type microRef struct {
	macro, micro int
}

// Build assigns entries to anchor categories. Entries whose dimension differs
// from the anchors are skipped and reported in Taxonomy.Skipped.
func (b *AnchorBuilder) Build(ctx context.Context, entries []core.Embedded) (*core.Taxonomy, error) {
	macros := b.anchors.Macros
	macroMembers := make([][]string, len(macros))
	microMembers := make(map[microRef][]string)

	var all []microRef
	for m, macro := range macros {
		for j := range macro.Micros {
			all = append(all, microRef{m, j})
		}
	}

	tax := &core.Taxonomy{Strategy: core.StrategyAnchors}
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(e.Vector) != b.dims {
			b.logger.Warn("skipping specialty with mismatched dimension",
				"entity", e.ID, "dims", len(e.Vector), "want", b.dims)
			tax.Skipped = append(tax.Skipped, e.ID)
			continue
		}

		m := nearestMacro(e.Vector, macros)
		a := core.Assignment{Specialty: e.ID, Macro: MacroIRI(macros[m].Name)}
		macroMembers[m] = append(macroMembers[m], e.ID)

		var ref microRef
		found := false
		switch b.policy {
		case MicroIndependent:
			ref, found = nearestMicro(e.Vector, macros, all)
			if found && ref.macro != m {
				tax.Mismatches++
				b.logger.Warn("microcategory outside assigned macrocategory",
					"entity", e.ID,
					"macro", macros[m].Name,
					"micro", macros[ref.macro].Micros[ref.micro].Name,
					"micro_parent", macros[ref.macro].Name)
			}
		default:
			children := make([]microRef, len(macros[m].Micros))
			for j := range children {
				children[j] = microRef{m, j}
			}
			ref, found = nearestMicro(e.Vector, macros, children)
		}
		if found {
			micro := macros[ref.macro].Micros[ref.micro]
			a.Micro = MicroIRI(macros[ref.macro].Name, micro.Name)
			microMembers[ref] = append(microMembers[ref], e.ID)
		}
		tax.Assignments = append(tax.Assignments, a)
	}

	for m, macro := range macros {
		tax.Macros = append(tax.Macros, core.Category{
			ID:      MacroIRI(macro.Name),
			Kind:    core.CategoryMacro,
			Label:   macro.Name,
			Vector:  macro.Average,
			Members: macroMembers[m],
		})
	}
	for _, ref := range all {
		members := microMembers[ref]
		if len(members) == 0 {
			continue
		}
		macro := macros[ref.macro]
		micro := macro.Micros[ref.micro]
		tax.Micros = append(tax.Micros, core.Category{
			ID:      MicroIRI(macro.Name, micro.Name),
			Kind:    core.CategoryMicro,
			Label:   micro.Name,
			Parent:  MacroIRI(macro.Name),
			Vector:  micro.Average,
			Members: members,
		})
	}

	b.logger.Info("anchor assignment done",
		"specialties", len(entries),
		"assigned", len(tax.Assignments),
		"skipped", len(tax.Skipped),
		"micros", len(tax.Micros),
		"mismatches", tax.Mismatches)
	return tax, nil
}

// nearestMacro returns the index of the most similar macro; the first
// declared wins ties.
func nearestMacro(v []float32, macros []MacroEmbedding) int {
	best, bestSim := 0, float32(0)
	for i, m := range macros {
		sim := ai.CosineSimilarity(v, m.Average)
		if i == 0 || sim > bestSim {
			best, bestSim = i, sim
		}
	}
	return best
}

func nearestMicro(v []float32, macros []MacroEmbedding, candidates []microRef) (microRef, bool) {
	if len(candidates) == 0 {
		return microRef{}, false
	}
	best, bestSim := candidates[0], float32(0)
	for i, ref := range candidates {
		sim := ai.CosineSimilarity(v, macros[ref.macro].Micros[ref.micro].Average)
		if i == 0 || sim > bestSim {
			best, bestSim = ref, sim
		}
	}
	return best, true
}
