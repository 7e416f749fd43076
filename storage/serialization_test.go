package storage

import (
	"testing"
	"time"

	"github.com/poiesic/agrikg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalTriple(t *testing.T) {
	tests := []struct {
		name   string
		triple core.Triple
	}{
		{"iri object", core.T(core.IRI("http://example.org/org/a"), core.HasSpecialty, core.SpecialtyIRI("soil_testing"))},
		{"typed literal", core.T(core.IRI("http://example.org/org/a"), core.SchemaLatitude, core.DoubleLiteral(44.5))},
		{"language literal", core.T(core.IRI("http://example.org/org/a"), core.SchemaName, core.LangLiteral("Granja", "es"))},
		{"blank subject", core.T(core.Blank("b0"), core.RDFValue, core.Literal(""))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := MarshalTriple(tt.triple)
			require.NoError(t, err)

			decoded, err := UnmarshalTriple(data)
			require.NoError(t, err)
			assert.Equal(t, tt.triple, decoded)
			assert.Equal(t, tt.triple.Key(), decoded.Key())
		})
	}
}

func TestUnmarshalTriple_Invalid(t *testing.T) {
	_, err := UnmarshalTriple(nil)
	assert.ErrorIs(t, err, ErrTruncatedData)

	_, err = UnmarshalTriple([]byte{0xc1})
	assert.ErrorIs(t, err, ErrSerializationFailed)
}

func TestMarshalUnmarshalRun(t *testing.T) {
	started := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	run := &core.Run{
		ID:          7,
		Strategy:    core.StrategyKMeans,
		Params:      map[string]string{"k": "6", "m": "8"},
		Specialties: 120,
		Macros:      6,
		Micros:      40,
		EdgesAdded:  300,
		StartedAt:   started,
		FinishedAt:  started.Add(3 * time.Second),
	}

	data, err := MarshalRun(run)
	require.NoError(t, err)
	decoded, err := UnmarshalRun(data)
	require.NoError(t, err)

	assert.Equal(t, run.ID, decoded.ID)
	assert.Equal(t, run.Params, decoded.Params)
	assert.Equal(t, run.Micros, decoded.Micros)
	assert.True(t, run.StartedAt.Equal(decoded.StartedAt))
	assert.Equal(t, 3*time.Second, decoded.FinishedAt.Sub(decoded.StartedAt))

	_, err = UnmarshalRun(nil)
	assert.ErrorIs(t, err, ErrTruncatedData)
}
