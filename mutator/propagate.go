package mutator

import (
	"context"
	"fmt"

	"github.com/poiesic/agrikg/core"
)

// PropagationStats summarizes one propagation pass.
type PropagationStats struct {
	Organizations int
	EdgesAdded    int
	EdgesExisting int
}

// orgEdges maps specialty membership predicates to organization ones. The
// legacy specialties:hasMicrocategory edge is read as a micro membership.
var orgEdges = []struct {
	from, to core.Term
}{
	{core.BelongsToMacrocategory, core.HasMacrocategory},
	{core.IsSpecializedIn, core.HasMicrocategory},
	{core.SpecialtyMicrocategory, core.HasMicrocategory},
}

// PropagateToOrganizations copies the macro and micro memberships of every
// specialty onto the organizations holding it. Each organization is visited
// once and edges are inserted only when absent, so a second pass over an
// unchanged graph adds nothing.
func (m *Mutator) PropagateToOrganizations(ctx context.Context) (PropagationStats, error) {
	var stats PropagationStats
	orgs, err := m.store.Subjects(ctx, core.RDFType, core.SchemaOrganization)
	if err != nil {
		return stats, fmt.Errorf("list organizations: %w", err)
	}

	visited := make(map[core.Term]bool, len(orgs))
	for _, org := range orgs {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if visited[org] {
			continue
		}
		visited[org] = true
		stats.Organizations++

		edges, err := m.derivedEdges(ctx, org)
		if err != nil {
			return stats, fmt.Errorf("derive memberships of %s: %w", org.Value, err)
		}
		for _, e := range edges {
			added, err := m.addIfAbsent(ctx, e)
			if err != nil {
				return stats, err
			}
			if added {
				stats.EdgesAdded++
			} else {
				stats.EdgesExisting++
			}
		}
	}

	m.logger.Info("propagated memberships to organizations",
		"organizations", stats.Organizations,
		"added", stats.EdgesAdded,
		"existing", stats.EdgesExisting)
	return stats, nil
}

// derivedEdges returns the distinct membership edges an organization should
// carry according to its specialties.
func (m *Mutator) derivedEdges(ctx context.Context, org core.Term) ([]core.Triple, error) {
	specialties, err := m.store.Objects(ctx, org, core.HasSpecialty)
	if err != nil {
		return nil, err
	}
	seen := make(map[core.Triple]bool)
	var edges []core.Triple
	for _, s := range specialties {
		for _, rel := range orgEdges {
			categories, err := m.store.Objects(ctx, s, rel.from)
			if err != nil {
				return nil, err
			}
			for _, c := range categories {
				e := core.T(org, rel.to, c)
				if !seen[e] {
					seen[e] = true
					edges = append(edges, e)
				}
			}
		}
	}
	return edges, nil
}

// PruneOrganizations removes organization membership edges that none of the
// organization's specialties supports any more. It returns the number of
// edges removed.
func (m *Mutator) PruneOrganizations(ctx context.Context) (int, error) {
	orgs, err := m.store.Subjects(ctx, core.RDFType, core.SchemaOrganization)
	if err != nil {
		return 0, fmt.Errorf("list organizations: %w", err)
	}
	pruned := 0
	for _, org := range orgs {
		edges, err := m.derivedEdges(ctx, org)
		if err != nil {
			return pruned, err
		}
		want := make(map[core.Triple]bool, len(edges))
		for _, e := range edges {
			want[e] = true
		}
		var stale []core.Triple
		for _, p := range []core.Term{core.HasMacrocategory, core.HasMicrocategory} {
			current, err := m.store.Objects(ctx, org, p)
			if err != nil {
				return pruned, err
			}
			for _, c := range current {
				if e := core.T(org, p, c); !want[e] {
					stale = append(stale, e)
				}
			}
		}
		n, err := m.store.Remove(ctx, stale...)
		if err != nil {
			return pruned, err
		}
		pruned += n
	}
	return pruned, nil
}

// CleanupStructuralViolations removes every edge from a macrocategory
// straight to a specialty. Such edges bypass the microcategory level and are
// not expected in normal operation.
func (m *Mutator) CleanupStructuralViolations(ctx context.Context) (int, error) {
	macros, err := m.store.Subjects(ctx, core.RDFType, core.Macrocategory)
	if err != nil {
		return 0, fmt.Errorf("list macrocategories: %w", err)
	}

	var violations []core.Triple
	for _, macro := range macros {
		out, err := m.store.Match(ctx, core.Pattern{Subject: core.Bind(macro)})
		if err != nil {
			return 0, err
		}
		for _, t := range out {
			if !t.Object.IsIRI() {
				continue
			}
			isSpecialty, err := m.store.Has(ctx, core.T(t.Object, core.RDFType, core.Specialty))
			if err != nil {
				return 0, err
			}
			if isSpecialty {
				m.logger.Warn("removing macrocategory to specialty edge",
					"macro", macro.Value, "predicate", t.Predicate.Value, "entity", t.Object.Value)
				violations = append(violations, t)
			}
		}
	}
	return m.store.Remove(ctx, violations...)
}
