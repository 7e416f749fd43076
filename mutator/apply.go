package mutator

import (
	"context"
	"fmt"

	"github.com/poiesic/agrikg/core"
)

// Report summarizes one Apply call.
type Report struct {
	MacrosCreated     int
	MicrosCreated     int
	LinksAdded        int
	MissingSpecialty  int
	EdgesPruned       int
	ViolationsRemoved int
	Propagation       PropagationStats
}

type applyOptions struct {
	prune bool
}

// ApplyOption configures Apply.
type ApplyOption func(*applyOptions)

// WithPrune removes membership edges of assigned specialties that point to
// categories other than the ones assigned now, then drops organization
// memberships no specialty supports. Without it edges are only ever added.
func WithPrune() ApplyOption {
	return func(o *applyOptions) {
		o.prune = true
	}
}

// Apply writes a taxonomy to the graph: category nodes first, then
// specialty memberships, a structural cleanup and finally propagation to
// organizations.
func (m *Mutator) Apply(ctx context.Context, tax *core.Taxonomy, opts ...ApplyOption) (*Report, error) {
	var o applyOptions
	for _, opt := range opts {
		opt(&o)
	}
	if err := core.ValidateTaxonomy(tax); err != nil {
		return nil, err
	}

	report := &Report{}
	for _, c := range tax.Macros {
		created, err := m.EnsureCategoryNode(ctx, core.CategoryMacro, c.ID, c.Label, WithVector(c.Vector))
		if err != nil {
			return report, err
		}
		if created {
			report.MacrosCreated++
		}
	}
	for _, c := range tax.Micros {
		created, err := m.EnsureCategoryNode(ctx, core.CategoryMicro, c.ID, c.Label,
			WithParent(c.Parent), WithVector(c.Vector))
		if err != nil {
			return report, err
		}
		if created {
			report.MicrosCreated++
		}
	}

	for _, a := range tax.Assignments {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := m.link(ctx, a, o.prune, report); err != nil {
			return report, fmt.Errorf("link %s: %w", a.Specialty, err)
		}
	}

	removed, err := m.CleanupStructuralViolations(ctx)
	if err != nil {
		return report, err
	}
	report.ViolationsRemoved = removed

	if o.prune {
		n, err := m.PruneOrganizations(ctx)
		if err != nil {
			return report, err
		}
		report.EdgesPruned += n
	}

	report.Propagation, err = m.PropagateToOrganizations(ctx)
	if err != nil {
		return report, err
	}

	m.logger.Info("applied taxonomy",
		"strategy", string(tax.Strategy),
		"macros_created", report.MacrosCreated,
		"micros_created", report.MicrosCreated,
		"links_added", report.LinksAdded,
		"missing", report.MissingSpecialty,
		"pruned", report.EdgesPruned)
	return report, nil
}

func (m *Mutator) link(ctx context.Context, a core.Assignment, prune bool, report *Report) error {
	s := core.IRI(a.Specialty)
	ok, err := m.known(ctx, s)
	if err != nil {
		return err
	}
	if !ok {
		report.MissingSpecialty++
		return nil
	}

	targets := []struct {
		rel      Relation
		category string
	}{
		{RelationMacro, a.Macro},
		{RelationMicro, a.Micro},
	}
	for _, t := range targets {
		if prune {
			n, err := m.pruneMemberships(ctx, s, t.rel.Predicate(), t.category)
			if err != nil {
				return err
			}
			report.EdgesPruned += n
		}
		if t.category == "" {
			continue
		}
		added, err := m.addIfAbsent(ctx, core.T(s, t.rel.Predicate(), core.IRI(t.category)))
		if err != nil {
			return err
		}
		if added {
			report.LinksAdded++
		}
	}
	return nil
}

// pruneMemberships removes every (s, predicate, x) edge with x != keep.
func (m *Mutator) pruneMemberships(ctx context.Context, s, predicate core.Term, keep string) (int, error) {
	current, err := m.store.Objects(ctx, s, predicate)
	if err != nil {
		return 0, err
	}
	var stale []core.Triple
	for _, c := range current {
		if c.Value != keep {
			stale = append(stale, core.T(s, predicate, c))
		}
	}
	return m.store.Remove(ctx, stale...)
}
