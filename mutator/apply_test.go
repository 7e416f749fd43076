package mutator

import (
	"context"
	"testing"

	"github.com/poiesic/agrikg/core"
	"github.com/poiesic/agrikg/storage"
	"github.com/poiesic/agrikg/taxonomy"
	"github.com/poiesic/agrikg/vectorstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedProviders stores six embedded specialties forming two obvious groups
// and two organizations, one per group.
func seedProviders(t *testing.T, store storage.TripleStore) {
	t.Helper()
	specs := []struct {
		local  string
		vector []float32
		org    string
	}{
		{"soil_testing", []float32{1.0, 0.0}, "agrico"},
		{"soil_carbon", []float32{0.9, 0.1}, "agrico"},
		{"organic_soil", []float32{0.8, 0.0}, "agrico"},
		{"drone_mapping", []float32{0.0, 1.0}, "skyfarm"},
		{"drone_imaging", []float32{0.1, 0.9}, "skyfarm"},
		{"satellite", []float32{0.0, 0.8}, "skyfarm"},
	}
	for _, s := range specs {
		iri := core.SpecialtyIRI(s.local)
		org := core.IRI("http://example.org/org/" + s.org)
		addTriples(t, store,
			core.T(org, core.RDFType, core.SchemaOrganization),
			core.T(org, core.HasSpecialty, iri),
			core.T(iri, core.RDFType, core.Specialty),
			core.T(iri, core.RDFValue, core.Literal(s.local)),
			core.T(iri, core.EmbeddingValue, vectorstore.VectorLiteral(s.vector)),
		)
	}
}

func buildClusters(t *testing.T, store storage.TripleStore, k, micro int) *core.Taxonomy {
	t.Helper()
	ctx := context.Background()
	adapter, err := vectorstore.NewAdapter(store)
	require.NoError(t, err)
	entries, err := adapter.FetchEntitiesWithEmbeddings(ctx, core.Specialty)
	require.NoError(t, err)
	require.Len(t, entries, 6)

	cfg := taxonomy.DefaultConfig()
	cfg.MacroCount = k
	cfg.MicroCount = micro
	builder, err := taxonomy.NewClusterBuilder(cfg, taxonomy.WithTextSource(adapter))
	require.NoError(t, err)
	tax, err := builder.Build(ctx, entries)
	require.NoError(t, err)
	return tax
}

func categoryMembers(t *testing.T, store storage.TripleStore, kind core.Term, rel core.Term) map[core.Term][]core.Term {
	t.Helper()
	ctx := context.Background()
	nodes, err := store.Subjects(ctx, core.RDFType, kind)
	require.NoError(t, err)
	out := make(map[core.Term][]core.Term, len(nodes))
	for _, n := range nodes {
		members, err := store.Subjects(ctx, rel, n)
		require.NoError(t, err)
		var specialties []core.Term
		for _, s := range members {
			if ok, _ := store.Has(ctx, core.T(s, core.RDFType, core.Specialty)); ok {
				specialties = append(specialties, s)
			}
		}
		out[n] = specialties
	}
	return out
}

func TestApply_TwoGroupsBelowMicroCount(t *testing.T) {
	m, store := newTestMutator(t)
	ctx := context.Background()
	seedProviders(t, store)

	report, err := m.Apply(ctx, buildClusters(t, store, 2, 4))
	require.NoError(t, err)
	assert.Equal(t, 2, report.MacrosCreated)
	assert.Zero(t, report.MicrosCreated)
	assert.Equal(t, 6, report.LinksAdded)

	macros := categoryMembers(t, store, core.Macrocategory, core.BelongsToMacrocategory)
	require.Len(t, macros, 2)
	for _, members := range macros {
		assert.Len(t, members, 3)
	}
	micros, err := store.Subjects(ctx, core.RDFType, core.Microcategory)
	require.NoError(t, err)
	assert.Empty(t, micros)

	labels := map[string]bool{}
	for node := range macros {
		ls, err := store.Objects(ctx, node, core.RDFSLabel)
		require.NoError(t, err)
		require.Len(t, ls, 1)
		labels[ls[0].Value] = true
	}
	assert.Equal(t, map[string]bool{"Soil-related": true, "Drone-related": true}, labels)

	// Each organization holds one group and so one macrocategory.
	for _, org := range []string{"agrico", "skyfarm"} {
		got, err := store.Objects(ctx, core.IRI("http://example.org/org/"+org), core.HasMacrocategory)
		require.NoError(t, err)
		assert.Len(t, got, 1, org)
	}
}

func TestApply_GroupsOfExactlyMicroCount(t *testing.T) {
	m, store := newTestMutator(t)
	ctx := context.Background()
	seedProviders(t, store)

	report, err := m.Apply(ctx, buildClusters(t, store, 2, 3))
	require.NoError(t, err)
	assert.Equal(t, 2, report.MacrosCreated)
	assert.Equal(t, 6, report.MicrosCreated)

	micros := categoryMembers(t, store, core.Microcategory, core.IsSpecializedIn)
	require.Len(t, micros, 6)
	for node, members := range micros {
		assert.Len(t, members, 1, node.Value)
		parents, err := store.Objects(ctx, node, core.BelongsToMacrocategory)
		require.NoError(t, err)
		assert.Len(t, parents, 1)
	}

	orgMicros, err := store.Objects(ctx, core.IRI("http://example.org/org/agrico"), core.HasMicrocategory)
	require.NoError(t, err)
	assert.Len(t, orgMicros, 3)
}

func TestApply_Idempotent(t *testing.T) {
	m, store := newTestMutator(t)
	ctx := context.Background()
	seedProviders(t, store)

	tax := buildClusters(t, store, 2, 3)
	_, err := m.Apply(ctx, tax)
	require.NoError(t, err)
	before := count(t, store)

	report, err := m.Apply(ctx, tax)
	require.NoError(t, err)
	assert.Zero(t, report.MacrosCreated)
	assert.Zero(t, report.MicrosCreated)
	assert.Zero(t, report.LinksAdded)
	assert.Zero(t, report.Propagation.EdgesAdded)
	assert.Equal(t, before, count(t, store))
}

func TestApply_Prune(t *testing.T) {
	m, store := newTestMutator(t)
	ctx := context.Background()
	seedProviders(t, store)

	_, err := m.Apply(ctx, buildClusters(t, store, 2, 3))
	require.NoError(t, err)

	// A coarser rebuild without microcategories replaces the old memberships.
	report, err := m.Apply(ctx, buildClusters(t, store, 2, 4), WithPrune())
	require.NoError(t, err)
	assert.Equal(t, 6+3+3, report.EdgesPruned, "specialty micros plus organization micros")

	org := core.IRI("http://example.org/org/agrico")
	micros, err := store.Objects(ctx, org, core.HasMicrocategory)
	require.NoError(t, err)
	assert.Empty(t, micros)
	macros, err := store.Objects(ctx, org, core.HasMacrocategory)
	require.NoError(t, err)
	assert.Len(t, macros, 1)
}

func TestApply_SkipsMissingSpecialty(t *testing.T) {
	m, store := newTestMutator(t)
	macro := taxonomy.ClusterMacroIRI(0)
	tax := &core.Taxonomy{
		Strategy:    core.StrategyKMeans,
		Macros:      []core.Category{{ID: macro, Kind: core.CategoryMacro, Label: "Macrocategory 0"}},
		Assignments: []core.Assignment{{Specialty: "http://example.org/specialties/ghost", Macro: macro}},
	}
	report, err := m.Apply(context.Background(), tax)
	require.NoError(t, err)
	assert.Equal(t, 1, report.MissingSpecialty)
	assert.Zero(t, report.LinksAdded)
	assert.Equal(t, 2, count(t, store))
}

func TestApply_RejectsInvalidTaxonomy(t *testing.T) {
	m, _ := newTestMutator(t)
	tax := &core.Taxonomy{Micros: []core.Category{{ID: "u", Kind: core.CategoryMicro, Parent: "nowhere"}}}
	_, err := m.Apply(context.Background(), tax)
	assert.ErrorIs(t, err, core.ErrInvalidTaxonomy)
}
