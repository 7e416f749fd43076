package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/poiesic/agrikg/ai"
	"github.com/poiesic/agrikg/core"
	"github.com/poiesic/agrikg/taxonomy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agrikg.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("OPENAI_API_KEY", "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "./agrikg.db", cfg.Store.Path)
	assert.Equal(t, "openai", cfg.Embedding.Provider)
	assert.Equal(t, 512, cfg.Embedding.Dimensions)
	assert.Equal(t, "kmeans", cfg.Taxonomy.Strategy)
	assert.Equal(t, 6, cfg.Taxonomy.MacroCount)
	assert.Equal(t, 8, cfg.Taxonomy.MicroCount)
	assert.Equal(t, uint64(42), cfg.Taxonomy.Seed)
	assert.Equal(t, "constrained", cfg.Taxonomy.MicroPolicy)
	assert.Equal(t, 168*time.Hour, cfg.Cache.TTL)
	assert.False(t, cfg.CacheEnabled())
	assert.Empty(t, cfg.Neo4j.URI)

	assert.ErrorIs(t, cfg.Validate(), ErrMissingCredential)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
store:
  path: /data/providers.db
embedding:
  provider: ollama
  model: nomic-embed-text
  dimensions: 768
  retry_delay: 250ms
taxonomy:
  strategy: anchors
  micro_policy: independent
  seed: 7
cache:
  address: localhost:6379
  ttl: 1h
neo4j:
  uri: neo4j://localhost:7687
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "/data/providers.db", cfg.Store.Path)
	assert.Equal(t, 250*time.Millisecond, cfg.Embedding.RetryDelay)
	assert.True(t, cfg.CacheEnabled())
	assert.Equal(t, time.Hour, cfg.Cache.TTL)

	aiCfg := cfg.AIConfig()
	assert.Equal(t, ai.BackendOllama, aiCfg.Backend)
	assert.Equal(t, "nomic-embed-text", aiCfg.EmbeddingModel)
	assert.Equal(t, 768, aiCfg.Dimensions)

	tax := cfg.TaxonomyConfig()
	assert.Equal(t, core.StrategyAnchors, tax.Strategy)
	assert.Equal(t, taxonomy.MicroIndependent, tax.MicroPolicy)
	assert.Equal(t, uint64(7), tax.Seed)

	enrichCfg := cfg.EnrichConfig()
	assert.Equal(t, 250*time.Millisecond, enrichCfg.RetryDelay)
	assert.Equal(t, 64, enrichCfg.BatchSize)

	neo := cfg.Neo4jConfig()
	assert.Equal(t, "neo4j://localhost:7687", neo.URI)
	assert.Equal(t, "neo4j", neo.User)
}

func TestLoadEnvironment(t *testing.T) {
	path := writeConfig(t, "taxonomy:\n  macro_count: 4\n")
	t.Setenv("AGRIKG_TAXONOMY_MACRO_COUNT", "9")
	t.Setenv("AGRIKG_EMBEDDING_PROVIDER", "mock")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Taxonomy.MacroCount)
	assert.Equal(t, "mock", cfg.Embedding.Provider)
	assert.Equal(t, "sk-test", cfg.Embedding.APIKey)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		t.Chdir(t.TempDir())
		cfg, err := Load("")
		require.NoError(t, err)
		cfg.Embedding.Provider = "mock"
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero macro count", func(c *Config) { c.Taxonomy.MacroCount = 0 }},
		{"zero micro count", func(c *Config) { c.Taxonomy.MicroCount = 0 }},
		{"unknown strategy", func(c *Config) { c.Taxonomy.Strategy = "spectral" }},
		{"unknown micro policy", func(c *Config) {
			c.Taxonomy.Strategy = "anchors"
			c.Taxonomy.MicroPolicy = "loose"
		}},
		{"unknown provider", func(c *Config) { c.Embedding.Provider = "acme" }},
		{"empty store path", func(c *Config) { c.Store.Path = "" }},
		{"zero batch size", func(c *Config) { c.Embedding.BatchSize = 0 }},
		{"unknown log level", func(c *Config) { c.Log.Level = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			require.NoError(t, cfg.Validate())
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}

	t.Run("openai without key", func(t *testing.T) {
		cfg := valid()
		cfg.Embedding.Provider = "openai"
		cfg.Embedding.APIKey = ""
		assert.ErrorIs(t, cfg.Validate(), ErrMissingCredential)
	})
}
