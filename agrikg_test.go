package agrikg

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/agrikg/ai"
	"github.com/poiesic/agrikg/ai/cache"
	"github.com/poiesic/agrikg/ai/mock"
	"github.com/poiesic/agrikg/config"
	"github.com/poiesic/agrikg/core"
	"github.com/poiesic/agrikg/mutator"
	"github.com/poiesic/agrikg/taxonomy"
	"github.com/poiesic/agrikg/vectorstore"
)

func seedSpecialties(t *testing.T, g *Graph) {
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
	var triples []core.Triple
	for _, s := range specs {
		iri := core.SpecialtyIRI(s.local)
		org := core.IRI("http://example.org/org/" + s.org)
		triples = append(triples,
			core.T(org, core.RDFType, core.SchemaOrganization),
			core.T(org, core.SchemaName, core.Literal(s.org)),
			core.T(org, core.HasSpecialty, iri),
			core.T(iri, core.RDFType, core.Specialty),
			core.T(iri, core.RDFValue, core.Literal(s.local)),
			core.T(iri, core.EmbeddingValue, vectorstore.VectorLiteral(s.vector)),
		)
	}
	_, err := g.Store().Add(context.Background(), triples...)
	require.NoError(t, err)
}

func openMemory(t *testing.T, opts ...Option) *Graph {
	t.Helper()
	g, err := Open("", append([]Option{InMemory()}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { g.Close() })
	return g
}

func TestOpen(t *testing.T) {
	t.Run("create new graph", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "test_db")
		g, err := Open(dir)
		require.NoError(t, err)
		defer g.Close()

		assert.NotNil(t, g.Store())
		assert.NotNil(t, g.Runs())
		assert.Nil(t, g.Provider())
		assert.NotNil(t, g.logger)
	})

	t.Run("error with invalid path", func(t *testing.T) {
		tmpFile := filepath.Join(t.TempDir(), "not_a_dir")
		require.NoError(t, os.WriteFile(tmpFile, []byte("test"), 0644))

		g, err := Open(tmpFile)
		assert.Error(t, err)
		assert.Nil(t, g)
	})

	t.Run("invalid ai config", func(t *testing.T) {
		cfg := ai.NewConfig(ai.WithBackend(ai.BackendOpenAI))
		_, err := Open("", InMemory(), WithAIConfig(cfg))
		assert.ErrorIs(t, err, ai.ErrMissingCredential)
	})

	t.Run("close", func(t *testing.T) {
		g, err := Open(t.TempDir(), WithProvider(mock.NewMockProvider()))
		require.NoError(t, err)
		p := g.Provider().(*mock.MockProvider)
		assert.NoError(t, g.Close())
		assert.True(t, p.Closed())
	})
}

func TestNewAIProvider(t *testing.T) {
	p, err := NewAIProvider(ai.NewConfig(ai.WithBackend(ai.BackendMock), ai.WithDimensions(16)))
	require.NoError(t, err)
	v, err := p.Embedder().EmbedText(context.Background(), "hydroponics")
	require.NoError(t, err)
	assert.Len(t, v, 16)

	_, err = NewAIProvider(ai.NewConfig(ai.WithBackend("acme")))
	assert.Error(t, err)
}

func TestFactoryMethods(t *testing.T) {
	t.Run("without provider", func(t *testing.T) {
		g := openMemory(t)
		_, err := g.NewSearcher()
		assert.ErrorIs(t, err, ErrProviderRequired)
		_, err = g.NewEnricher()
		assert.ErrorIs(t, err, ErrProviderRequired)
		_, err = g.EmbedAnchors(context.Background(), &taxonomy.AnchorSet{})
		assert.ErrorIs(t, err, ErrProviderRequired)

		m, err := g.NewMutator()
		require.NoError(t, err)
		assert.NotNil(t, m)
		a, err := g.NewVectorStore()
		require.NoError(t, err)
		assert.NotNil(t, a)
	})

	t.Run("with provider", func(t *testing.T) {
		g := openMemory(t, WithProvider(mock.NewMockProvider()))
		s, err := g.NewSearcher()
		require.NoError(t, err)
		assert.NotNil(t, s)
		e, err := g.NewEnricher()
		require.NoError(t, err)
		assert.NotNil(t, e)
	})

	t.Run("embedding cache", func(t *testing.T) {
		db, _ := redismock.NewClientMock()
		g := openMemory(t, WithProvider(mock.NewMockProvider()), WithEmbeddingCache(db, 0))
		_, ok := g.Provider().Embedder().(*cache.Embedder)
		assert.True(t, ok)
	})
}

func TestBuildTaxonomy_KMeans(t *testing.T) {
	ctx := context.Background()
	g := openMemory(t)
	seedSpecialties(t, g)

	cfg := taxonomy.DefaultConfig()
	cfg.MacroCount = 2
	cfg.MicroCount = 3
	builder, err := g.NewClusterBuilder(cfg)
	require.NoError(t, err)

	res, err := g.BuildTaxonomy(ctx, builder, cfg)
	require.NoError(t, err)
	assert.Len(t, res.Taxonomy.Macros, 2)
	assert.Len(t, res.Taxonomy.Micros, 6)
	assert.Equal(t, 2, res.Report.MacrosCreated)
	assert.Equal(t, 2, res.Report.Propagation.Organizations)

	labels := []string{res.Taxonomy.Macros[0].Label, res.Taxonomy.Macros[1].Label}
	assert.ElementsMatch(t, []string{"Soil-related", "Drone-related"}, labels)

	latest, err := g.Runs().LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, res.Run.ID, latest.ID)
	assert.Equal(t, core.StrategyKMeans, latest.Strategy)
	assert.Equal(t, 6, latest.Specialties)
	assert.Equal(t, "2", latest.Params["k"])
	assert.Equal(t, "3", latest.Params["m"])

	// A second identical build adds no edges.
	res, err = g.BuildTaxonomy(ctx, builder, cfg)
	require.NoError(t, err)
	assert.Zero(t, res.Run.EdgesAdded)
	runs, err := g.Runs().ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

const testAnchors = `
version: "test"
macrocategories:
  Soil Health:
    - soil testing
    - soil carbon
  Aerial Imaging:
    - drone mapping
`

func TestBuildTaxonomy_Anchors(t *testing.T) {
	ctx := context.Background()
	embedder := mock.NewMockEmbedder().WithVectors(map[string][]float32{
		"soil testing":  {1, 0},
		"soil carbon":   {0.9, 0.1},
		"drone mapping": {0, 1},
	})
	g := openMemory(t, WithProvider(mock.NewMockProviderWithEmbedder(embedder)))
	seedSpecialties(t, g)

	set, err := taxonomy.ParseAnchors(strings.NewReader(testAnchors))
	require.NoError(t, err)
	anchors, err := g.EmbedAnchors(ctx, set)
	require.NoError(t, err)

	cfg := taxonomy.DefaultConfig()
	cfg.Strategy = core.StrategyAnchors
	builder, err := g.NewAnchorBuilder(cfg, anchors)
	require.NoError(t, err)

	res, err := g.BuildTaxonomy(ctx, builder, cfg, mutator.WithPrune())
	require.NoError(t, err)
	assert.Len(t, res.Taxonomy.Macros, 2)
	assert.Equal(t, "constrained", res.Run.Params["micro_policy"])

	orgMacros, err := g.Store().Objects(ctx, core.IRI("http://example.org/org/skyfarm"), core.HasMacrocategory)
	require.NoError(t, err)
	assert.Equal(t, []core.Term{core.IRI(taxonomy.MacroIRI("Aerial Imaging"))}, orgMacros)
}

func TestFromConfig(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Store.Path = filepath.Join(t.TempDir(), "db")
	cfg.Embedding.Provider = "mock"

	g, err := FromConfig(cfg)
	require.NoError(t, err)
	defer g.Close()
	assert.NotNil(t, g.Provider())

	cfg.Taxonomy.MacroCount = 0
	_, err = FromConfig(cfg)
	assert.ErrorIs(t, err, config.ErrInvalid)
}
