package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/poiesic/agrikg/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newServer answers /v1/embeddings with one 3-dimensional vector per input,
// the first component being the input length.
func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var req struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		data := make([]map[string]any, len(req.Input))
		for i, in := range req.Input {
			data[i] = map[string]any{
				"object":    "embedding",
				"index":     i,
				"embedding": []float32{float32(len(in)), 1, 0},
			}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"model":  req.Model,
			"data":   data,
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(host, key string, dims int) *ai.Config {
	return ai.NewConfig(
		ai.WithEmbeddingHost(host),
		ai.WithAPIKey(key),
		ai.WithDimensions(dims),
	)
}

func TestEmbedder(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()

	t.Run("single text", func(t *testing.T) {
		embedder, err := NewEmbedder(testConfig(srv.URL, "test-key", 3))
		require.NoError(t, err)
		vector, err := embedder.EmbedText(ctx, "soil")
		require.NoError(t, err)
		assert.Equal(t, []float32{4, 1, 0}, vector)
	})

	t.Run("batch keeps order", func(t *testing.T) {
		embedder, err := NewEmbedder(testConfig(srv.URL, "test-key", 3))
		require.NoError(t, err)
		vectors, err := embedder.EmbedTexts(ctx, []string{"a", "drone"})
		require.NoError(t, err)
		require.Len(t, vectors, 2)
		assert.Equal(t, float32(1), vectors[0][0])
		assert.Equal(t, float32(5), vectors[1][0])
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		embedder, err := NewEmbedder(testConfig(srv.URL, "test-key", 512))
		require.NoError(t, err)
		_, err = embedder.EmbedText(ctx, "soil")
		assert.ErrorIs(t, err, ai.ErrDimensionMismatch)
	})

	t.Run("rejected credential", func(t *testing.T) {
		embedder, err := NewEmbedder(testConfig(srv.URL, "wrong", 3))
		require.NoError(t, err)
		_, err = embedder.EmbedText(ctx, "soil")
		assert.Error(t, err)
	})
}

func TestNewProvider_MissingKey(t *testing.T) {
	_, err := NewProvider(testConfig("http://localhost:1", "", 3))
	assert.ErrorIs(t, err, ai.ErrMissingCredential)
}
