package mutator

import (
	"context"
	"strings"

	"github.com/poiesic/agrikg/core"
)

const specialtyMarker = "example.org/specialties/"

// NormalizeSpecialties rewrites specialty IRIs into canonical
// http://example.org/specialties/<local> form and replaces schema:name on
// specialties with an rdf:value holding the local name. It returns the
// number of triples rewritten.
func (m *Mutator) NormalizeSpecialties(ctx context.Context) (int, error) {
	all, err := m.store.Match(ctx, core.Pattern{})
	if err != nil {
		return 0, err
	}

	var stale, fresh []core.Triple
	for _, t := range all {
		n := normalizeTriple(t)
		if n != t {
			stale = append(stale, t)
			fresh = append(fresh, n)
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}

	if _, err := m.store.Remove(ctx, stale...); err != nil {
		return 0, err
	}
	if _, err := m.store.Add(ctx, fresh...); err != nil {
		return 0, err
	}
	m.logger.Info("normalized specialties", "rewritten", len(stale))
	return len(stale), nil
}

func normalizeTriple(t core.Triple) core.Triple {
	t.Subject = normalizeIRI(t.Subject)
	t.Object = normalizeIRI(t.Object)
	if t.Predicate == core.SchemaName && strings.HasPrefix(t.Subject.Value, core.NSSpecialties) {
		t.Predicate = core.RDFValue
		t.Object = core.Literal(strings.TrimPrefix(t.Subject.Value, core.NSSpecialties))
	}
	return t
}

func normalizeIRI(term core.Term) core.Term {
	if !term.IsIRI() {
		return term
	}
	i := strings.LastIndex(term.Value, specialtyMarker)
	if i < 0 {
		return term
	}
	return core.SpecialtyIRI(strings.Trim(term.Value[i+len(specialtyMarker):], "/"))
}
