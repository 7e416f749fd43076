package badger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/poiesic/agrikg/core"
	"github.com/poiesic/agrikg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenBackend_InMemory(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	require.NotNil(t, backend)
	defer backend.Close()

	assert.False(t, backend.IsClosed())
}

func TestOpenBackend_FileSystem(t *testing.T) {
	tmpDir := t.TempDir()
	backend, err := OpenBackend(tmpDir+"/graph", false)
	require.NoError(t, err)
	require.NotNil(t, backend)
	defer backend.Close()

	assert.False(t, backend.IsClosed())
}

func TestBackendClose(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)

	require.NoError(t, backend.Close())
	assert.True(t, backend.IsClosed())

	store, err := NewTripleStore(backend)
	require.NoError(t, err)
	_, err = store.Count(context.Background())
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}

func TestWithTransaction_CommitsAndRollsBack(t *testing.T) {
	store, backend, err := NewMemoryStore()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	org := core.IRI("http://example.org/org/1")

	err = store.WithTransaction(ctx, func(ctx context.Context) error {
		n, err := store.Add(ctx, core.T(org, core.RDFType, core.SchemaOrganization))
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		// Reads inside the transaction see pending writes.
		has, err := store.Has(ctx, core.T(org, core.RDFType, core.SchemaOrganization))
		require.NoError(t, err)
		assert.True(t, has)
		return nil
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = store.WithTransaction(ctx, func(ctx context.Context) error {
		_, err := store.Add(ctx, core.T(org, core.SchemaName, core.Literal("Acme")))
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "rolled back write must not be visible")
}

func TestBadgerLoggerAdapter_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	adapter := &badgerLoggerAdapter{logger: logger}

	adapter.Infof("Lifetime L0 stalled for: %s", "0s")
	adapter.Debugf("flushing memtable")
	assert.Empty(t, buf.String())

	adapter.Warningf("value log %d truncated", 3)
	adapter.Errorf("compaction failed: %v", "disk full")
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "value log 3 truncated")
	assert.Contains(t, buf.String(), "level=ERROR")
	assert.Contains(t, buf.String(), "compaction failed: disk full")
}
