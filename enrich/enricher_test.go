package enrich

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/agrikg/ai/mock"
	"github.com/poiesic/agrikg/core"
	"github.com/poiesic/agrikg/storage"
	"github.com/poiesic/agrikg/storage/badger"
	"github.com/poiesic/agrikg/vectorstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) storage.TripleStore {
	t.Helper()
	store, backend, err := badger.NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })
	return store
}

func seedTexts(t *testing.T, store storage.TripleStore) (org, soil, drones core.Term) {
	t.Helper()
	org = core.IRI("http://example.org/org/agrico")
	soil = core.SpecialtyIRI("soil_testing")
	drones = core.SpecialtyIRI("drone_mapping")
	_, err := store.Add(context.Background(),
		core.T(org, core.RDFType, core.SchemaOrganization),
		core.T(org, core.SchemaDescription, core.Literal("Soil labs and crop drones")),
		core.T(soil, core.RDFType, core.Specialty),
		core.T(soil, core.RDFValue, core.Literal("soil_testing")),
		core.T(drones, core.RDFType, core.Specialty),
		core.T(drones, core.RDFValue, core.Literal("drone_mapping")),
	)
	require.NoError(t, err)
	return org, soil, drones
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.BatchSize = 2
	cfg.PoolSize = 2
	cfg.RetryDelay = time.Millisecond
	return cfg
}

func TestNewEnricher(t *testing.T) {
	_, err := NewEnricher(nil, mock.NewMockEmbedder())
	assert.ErrorIs(t, err, ErrStoreRequired)
	_, err = NewEnricher(newStore(t), nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)
}

func TestEnricher_Run(t *testing.T) {
	store := newStore(t)
	org, soil, drones := seedTexts(t, store)
	embedder := mock.NewMockEmbedder()
	var progress bytes.Buffer

	e, err := NewEnricher(store, embedder, WithConfig(testConfig()), WithProgress(&progress))
	require.NoError(t, err)

	stats, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{Items: 3, Embedded: 3}, stats)
	assert.Contains(t, progress.String(), "3/3")

	ctx := context.Background()
	for _, c := range []struct {
		subject   core.Term
		predicate core.Term
	}{
		{org, core.EmbeddingDescription},
		{soil, core.EmbeddingValue},
		{drones, core.EmbeddingValue},
	} {
		objects, err := store.Objects(ctx, c.subject, c.predicate)
		require.NoError(t, err)
		require.Len(t, objects, 1, c.subject.Value)
		v, err := vectorstore.ParseVector(objects[0].Value)
		require.NoError(t, err)
		assert.Len(t, v, mock.DefaultDimensions)
	}

	// A second run finds everything embedded already.
	stats, err = e.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Skipped: 3}, stats)
}

func TestEnricher_Force(t *testing.T) {
	store := newStore(t)
	_, soil, _ := seedTexts(t, store)
	ctx := context.Background()

	first, err := NewEnricher(store, mock.NewMockEmbedder(), WithConfig(testConfig()))
	require.NoError(t, err)
	_, err = first.Run(ctx)
	require.NoError(t, err)

	cfg := testConfig()
	cfg.Force = true
	other := mock.NewMockEmbedder()
	other.Dimensions = 8
	forced, err := NewEnricher(store, other, WithConfig(cfg))
	require.NoError(t, err)
	stats, err := forced.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Embedded)

	objects, err := store.Objects(ctx, soil, core.EmbeddingValue)
	require.NoError(t, err)
	require.Len(t, objects, 1, "old embedding is replaced")
	v, err := vectorstore.ParseVector(objects[0].Value)
	require.NoError(t, err)
	assert.Len(t, v, 8)
}

func TestEnricher_PerItemFallback(t *testing.T) {
	store := newStore(t)
	_, soil, drones := seedTexts(t, store)

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(_ context.Context, text string) ([]float32, error) {
		if strings.Contains(text, "drone") {
			return nil, errors.New("content filtered")
		}
		return []float32{1, 0, 0}, nil
	}
	cfg := testConfig()
	cfg.Sources = []core.Term{core.RDFValue}
	cfg.MaxRetries = 2

	e, err := NewEnricher(store, embedder, WithConfig(cfg))
	require.NoError(t, err)
	stats, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{Items: 2, Embedded: 1, Failed: 1}, stats)

	ctx := context.Background()
	ok, err := store.Objects(ctx, soil, core.EmbeddingValue)
	require.NoError(t, err)
	assert.Len(t, ok, 1)
	missing, err := store.Objects(ctx, drones, core.EmbeddingValue)
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestEnricher_Cancelled(t *testing.T) {
	store := newStore(t)
	seedTexts(t, store)
	e, err := NewEnricher(store, mock.NewMockEmbedder(), WithConfig(testConfig()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
