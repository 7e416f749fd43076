package taxonomy

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/poiesic/agrikg/ai/mock"
	"github.com/poiesic/agrikg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultAnchors(t *testing.T) {
	set, err := DefaultAnchors()
	require.NoError(t, err)

	require.Len(t, set.Macros, 19)
	assert.Equal(t, "Agriculture & Crop Management", set.Macros[0].Name)
	assert.Equal(t, "Improved Nutrient Management", set.Macros[18].Name)
	assert.Contains(t, set.Macros[0].Phrases, "no_till")

	// fermentation is an anchor of two macros and must map to two nodes.
	var ids []string
	for _, macro := range set.Macros {
		for _, micro := range set.MicroAnchors(macro) {
			if micro.Name == "fermentation" {
				ids = append(ids, MicroIRI(macro.Name, micro.Name))
			}
		}
	}
	require.Len(t, ids, 2)
	assert.NotEqual(t, ids[0], ids[1])
}

func TestAnchorIRIs(t *testing.T) {
	assert.Equal(t, "http://example.org/specialties/macrocategory/Carbon_Credits", MacroIRI("Carbon Credits"))
	assert.Equal(t, "http://example.org/specialties/microcategory/Carbon_Credits/gold_standard",
		MicroIRI("Carbon Credits", "gold standard"))
}

func TestParseAnchors(t *testing.T) {
	doc := `
version: "test"
macrocategories:
  Zeta: [z1, z2]
  Alpha: [a1]
microcategories:
  Zeta:
    Z group: [z1, z2]
`
	set, err := ParseAnchors(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, "test", set.Version)
	require.Len(t, set.Macros, 2)
	assert.Equal(t, "Zeta", set.Macros[0].Name, "declared order is kept")
	assert.Equal(t, []AnchorCategory{{Name: "Z group", Phrases: []string{"z1", "z2"}}}, set.MicroAnchors(set.Macros[0]))
	assert.Equal(t, []AnchorCategory{{Name: "a1", Phrases: []string{"a1"}}}, set.MicroAnchors(set.Macros[1]))
}

func TestParseAnchors_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty", ``},
		{"no macros", "version: x\nmacrocategories: {}\n"},
		{"not a mapping", "macrocategories: [a, b]\n"},
		{"no phrases", "macrocategories:\n  A: []\n"},
		{"empty phrase", "macrocategories:\n  A: [\"\"]\n"},
		{"duplicate", "macrocategories:\n  A: [x]\n  A: [y]\n"},
		{"undeclared micro parent", "macrocategories:\n  A: [x]\nmicrocategories:\n  B:\n    b: [y]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseAnchors(strings.NewReader(tt.doc))
			assert.ErrorIs(t, err, ErrInvalidAnchors)
		})
	}
}

func TestEmbedAnchors(t *testing.T) {
	set := &AnchorSet{
		Version: "v1",
		Macros: []AnchorCategory{
			{Name: "Soil", Phrases: []string{"soil", "compost"}},
			{Name: "Water", Phrases: []string{"irrigation"}},
		},
	}
	embedder := mock.NewMockEmbedder().WithVectors(map[string][]float32{
		"soil":       {1, 0},
		"compost":    {0, 1},
		"irrigation": {1, 1},
	})

	ae, err := EmbedAnchors(context.Background(), set, embedder)
	require.NoError(t, err)
	assert.Equal(t, 1, embedder.CallCount(), "all phrases go in one batch")

	require.Len(t, ae.Macros, 2)
	soil := ae.Macros[0]
	assert.Equal(t, []string{"soil", "compost"}, soil.Anchors)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, soil.AnchorEmbeddings)
	assert.Equal(t, []float32{0.5, 0.5}, soil.Average)
	require.Len(t, soil.Micros, 2)
	assert.Equal(t, []float32{0, 1}, soil.Micros[1].Average)

	path := filepath.Join(t.TempDir(), "anchors.json")
	require.NoError(t, SaveAnchorEmbeddings(path, ae))
	loaded, err := LoadAnchorEmbeddings(path)
	require.NoError(t, err)
	assert.Equal(t, ae, loaded)
}

func TestEmbedAnchors_Errors(t *testing.T) {
	set, err := DefaultAnchors()
	require.NoError(t, err)

	_, err = EmbedAnchors(context.Background(), set, nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)

	failing := mock.NewMockEmbedder()
	failing.EmbedTextsFunc = func(context.Context, []string) ([][]float32, error) {
		return nil, errors.New("quota exceeded")
	}
	_, err = EmbedAnchors(context.Background(), set, failing)
	assert.ErrorContains(t, err, "quota exceeded")

	_, err = ReadAnchorEmbeddings(bytes.NewBufferString(`{"macrocategories": []}`))
	assert.ErrorIs(t, err, ErrInvalidAnchors)
}

// threeAnchors has one macro per axis; every macro owns one micro on its axis,
// and Alpha owns a second micro leaning towards Beta.
func threeAnchors() *AnchorEmbeddings {
	return &AnchorEmbeddings{Macros: []MacroEmbedding{
		{Name: "Alpha", Average: []float32{1, 0, 0}, Micros: []MicroEmbedding{
			{Name: "alpha core", Average: []float32{1, 0, 0}},
			{Name: "alpha edge", Average: []float32{0.6, 0.8, 0}},
		}},
		{Name: "Beta", Average: []float32{0, 1, 0}, Micros: []MicroEmbedding{
			{Name: "beta core", Average: []float32{0, 1, 0}},
		}},
		{Name: "Gamma", Average: []float32{0, 0, 1}, Micros: []MicroEmbedding{
			{Name: "gamma core", Average: []float32{0, 0, 1}},
		}},
	}}
}

func anchorConfig(policy MicroPolicy) Config {
	cfg := DefaultConfig()
	cfg.Strategy = core.StrategyAnchors
	cfg.MicroPolicy = policy
	return cfg
}

func TestAnchorBuilder_NearestMacro(t *testing.T) {
	b, err := NewAnchorBuilder(anchorConfig(MicroConstrained), threeAnchors())
	require.NoError(t, err)

	entries := []core.Embedded{
		{ID: "s-gamma", Vector: []float32{0.1, 0.2, 0.9}},
		{ID: "s-alpha", Vector: []float32{0.9, 0.1, 0.1}},
		{ID: "s-beta", Vector: []float32{0.2, 0.95, 0}},
	}
	tax, err := b.Build(context.Background(), entries)
	require.NoError(t, err)
	require.NoError(t, core.ValidateTaxonomy(tax))

	require.Len(t, tax.Assignments, 3)
	assert.Equal(t, MacroIRI("Gamma"), tax.Assignments[0].Macro)
	assert.Equal(t, MacroIRI("Alpha"), tax.Assignments[1].Macro)
	assert.Equal(t, MacroIRI("Beta"), tax.Assignments[2].Macro)
	assert.Equal(t, MicroIRI("Alpha", "alpha core"), tax.Assignments[1].Micro)

	// Every declared macro exists; only populated micros do.
	assert.Len(t, tax.Macros, 3)
	assert.Len(t, tax.Micros, 3)
	alpha, ok := tax.Macro(MacroIRI("Alpha"))
	require.True(t, ok)
	assert.Equal(t, "Alpha", alpha.Label)
	assert.Equal(t, []string{"s-alpha"}, alpha.Members)
}

func TestAnchorBuilder_TieGoesToFirstDeclared(t *testing.T) {
	b, err := NewAnchorBuilder(anchorConfig(MicroConstrained), threeAnchors())
	require.NoError(t, err)

	tax, err := b.Build(context.Background(), []core.Embedded{{ID: "s", Vector: []float32{0, 1, 1}}})
	require.NoError(t, err)
	assert.Equal(t, MacroIRI("Beta"), tax.Assignments[0].Macro)
}

func TestAnchorBuilder_MicroPolicy(t *testing.T) {
	// Alpha is the closest macro (0.8 vs 0.6) while Beta's only micro is
	// the closest micro overall (0.96).
	entries := []core.Embedded{{ID: "s", Vector: []float32{0.8, 0.6, 0}}}
	anchors := threeAnchors()
	anchors.Macros[1].Micros[0].Average = []float32{0.6, 0.8, 0}
	anchors.Macros[0].Micros = anchors.Macros[0].Micros[:1]

	constrained, err := NewAnchorBuilder(anchorConfig(MicroConstrained), anchors)
	require.NoError(t, err)
	tax, err := constrained.Build(context.Background(), entries)
	require.NoError(t, err)
	assert.Equal(t, MacroIRI("Alpha"), tax.Assignments[0].Macro)
	assert.Equal(t, MicroIRI("Alpha", "alpha core"), tax.Assignments[0].Micro)
	assert.Zero(t, tax.Mismatches)
	require.NoError(t, core.ValidateTaxonomy(tax))

	independent, err := NewAnchorBuilder(anchorConfig(MicroIndependent), anchors)
	require.NoError(t, err)
	tax, err = independent.Build(context.Background(), entries)
	require.NoError(t, err)
	assert.Equal(t, MacroIRI("Alpha"), tax.Assignments[0].Macro)
	assert.Equal(t, MicroIRI("Beta", "beta core"), tax.Assignments[0].Micro)
	assert.Equal(t, 1, tax.Mismatches)
	require.NoError(t, core.ValidateTaxonomy(tax))
}

func TestAnchorBuilder_SkipsDimensionMismatch(t *testing.T) {
	b, err := NewAnchorBuilder(anchorConfig(MicroConstrained), threeAnchors())
	require.NoError(t, err)

	tax, err := b.Build(context.Background(), []core.Embedded{
		{ID: "short", Vector: []float32{1, 0}},
		{ID: "ok", Vector: []float32{1, 0, 0}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"short"}, tax.Skipped)
	require.Len(t, tax.Assignments, 1)
	assert.Equal(t, "ok", tax.Assignments[0].Specialty)
}

func TestNewAnchorBuilder_Errors(t *testing.T) {
	_, err := NewAnchorBuilder(anchorConfig(MicroConstrained), nil)
	assert.ErrorIs(t, err, ErrInvalidAnchors)

	_, err = NewAnchorBuilder(anchorConfig("sideways"), threeAnchors())
	assert.ErrorIs(t, err, ErrInvalidConfig)

	ragged := threeAnchors()
	ragged.Macros[2].Average = []float32{0, 1}
	_, err = NewAnchorBuilder(anchorConfig(MicroConstrained), ragged)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}
