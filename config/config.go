// Package config loads agrikg settings from a YAML file and the environment.
//
// Every key can be overridden by an AGRIKG_ variable named after its path,
// e.g. AGRIKG_TAXONOMY_MACRO_COUNT. The embedding API key also reads
// OPENAI_API_KEY.
package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/poiesic/agrikg/ai"
	"github.com/poiesic/agrikg/core"
	"github.com/poiesic/agrikg/enrich"
	"github.com/poiesic/agrikg/neo4jsync"
	"github.com/poiesic/agrikg/taxonomy"
)

const envPrefix = "AGRIKG"

var (
	// ErrMissingCredential is returned when the openai provider has no API key.
	ErrMissingCredential = ai.ErrMissingCredential

	// ErrInvalid wraps every other validation failure.
	ErrInvalid = errors.New("invalid configuration")
)

// Config is the full application configuration.
type Config struct {
	Store     StoreConfig     `mapstructure:"store"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Taxonomy  TaxonomyConfig  `mapstructure:"taxonomy"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Neo4j     Neo4jConfig     `mapstructure:"neo4j"`
	Log       LogConfig       `mapstructure:"log"`
}

type StoreConfig struct {
	Path string `mapstructure:"path"`
}

type EmbeddingConfig struct {
	Provider   string        `mapstructure:"provider"`
	Host       string        `mapstructure:"host"`
	Model      string        `mapstructure:"model"`
	APIKey     string        `mapstructure:"api_key"`
	Dimensions int           `mapstructure:"dimensions"`
	BatchSize  int           `mapstructure:"batch_size"`
	PoolSize   int           `mapstructure:"pool_size"`
	MaxRetries int           `mapstructure:"max_retries"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`
}

type TaxonomyConfig struct {
	Strategy             string  `mapstructure:"strategy"`
	MacroCount           int     `mapstructure:"macro_count"`
	MicroCount           int     `mapstructure:"micro_count"`
	Seed                 uint64  `mapstructure:"seed"`
	MaxIterations        int     `mapstructure:"max_iterations"`
	NInit                int     `mapstructure:"n_init"`
	Tolerance            float64 `mapstructure:"tolerance"`
	MicroPolicy          string  `mapstructure:"micro_policy"`
	DeriveMicroLabels    bool    `mapstructure:"derive_micro_labels"`
	AnchorsFile          string  `mapstructure:"anchors_file"`
	AnchorEmbeddingsFile string  `mapstructure:"anchor_embeddings_file"`
}

// CacheConfig configures the Redis embedding cache. An empty address
// disables it.
type CacheConfig struct {
	Address  string        `mapstructure:"address"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// Neo4jConfig configures the graph mirror. An empty URI disables it.
type Neo4jConfig struct {
	URI         string        `mapstructure:"uri"`
	User        string        `mapstructure:"user"`
	Password    string        `mapstructure:"password"`
	Database    string        `mapstructure:"database"`
	MaxPoolSize int           `mapstructure:"max_pool_size"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

func setDefaults(v *viper.Viper) {
	aiDefaults := ai.DefaultConfig()
	enrichDefaults := enrich.DefaultConfig()
	taxDefaults := taxonomy.DefaultConfig()

	v.SetDefault("store.path", "./agrikg.db")

	v.SetDefault("embedding.provider", string(aiDefaults.Backend))
	v.SetDefault("embedding.host", "")
	v.SetDefault("embedding.model", aiDefaults.EmbeddingModel)
	v.SetDefault("embedding.api_key", "")
	v.SetDefault("embedding.dimensions", aiDefaults.Dimensions)
	v.SetDefault("embedding.batch_size", enrichDefaults.BatchSize)
	v.SetDefault("embedding.pool_size", max(runtime.NumCPU()/2, 1))
	v.SetDefault("embedding.max_retries", enrichDefaults.MaxRetries)
	v.SetDefault("embedding.retry_delay", enrichDefaults.RetryDelay)

	v.SetDefault("taxonomy.strategy", string(taxDefaults.Strategy))
	v.SetDefault("taxonomy.macro_count", taxDefaults.MacroCount)
	v.SetDefault("taxonomy.micro_count", taxDefaults.MicroCount)
	v.SetDefault("taxonomy.seed", taxDefaults.Seed)
	v.SetDefault("taxonomy.max_iterations", taxDefaults.MaxIterations)
	v.SetDefault("taxonomy.n_init", taxDefaults.NInit)
	v.SetDefault("taxonomy.tolerance", taxDefaults.Tolerance)
	v.SetDefault("taxonomy.micro_policy", string(taxDefaults.MicroPolicy))
	v.SetDefault("taxonomy.derive_micro_labels", false)
	v.SetDefault("taxonomy.anchors_file", "")
	v.SetDefault("taxonomy.anchor_embeddings_file", "anchor_embeddings.json")

	v.SetDefault("cache.address", "")
	v.SetDefault("cache.password", "")
	v.SetDefault("cache.db", 0)
	v.SetDefault("cache.ttl", 168*time.Hour)

	v.SetDefault("neo4j.uri", "")
	v.SetDefault("neo4j.user", "neo4j")
	v.SetDefault("neo4j.password", "")
	v.SetDefault("neo4j.database", "")
	v.SetDefault("neo4j.max_pool_size", 50)
	v.SetDefault("neo4j.timeout", 10*time.Second)

	v.SetDefault("log.level", "info")
}

// Load reads the configuration. With an empty path it looks for agrikg.yaml
// in the working directory and ./config, and runs on defaults when none exists.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("embedding.api_key", envPrefix+"_EMBEDDING_API_KEY", "OPENAI_API_KEY"); err != nil {
		return nil, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("agrikg")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// Validate checks every section. Missing credentials are reported as
// ErrMissingCredential, anything else wraps ErrInvalid.
func (c *Config) Validate() error {
	if c.Store.Path == "" {
		return fmt.Errorf("%w: store.path is required", ErrInvalid)
	}
	if err := c.AIConfig().Validate(); err != nil {
		if errors.Is(err, ErrMissingCredential) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if c.Embedding.BatchSize < 1 || c.Embedding.PoolSize < 1 || c.Embedding.MaxRetries < 1 {
		return fmt.Errorf("%w: embedding batch_size, pool_size and max_retries must be positive", ErrInvalid)
	}
	if c.Taxonomy.MacroCount < 1 || c.Taxonomy.MicroCount < 1 {
		return fmt.Errorf("%w: taxonomy macro_count and micro_count must be at least 1", ErrInvalid)
	}
	if err := c.TaxonomyConfig().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("%w: cache.ttl cannot be negative", ErrInvalid)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log level %q", ErrInvalid, c.Log.Level)
	}
	return nil
}

// AIConfig returns the embedding provider settings.
func (c *Config) AIConfig() *ai.Config {
	return ai.NewConfig(
		ai.WithBackend(ai.Backend(c.Embedding.Provider)),
		ai.WithEmbeddingHost(c.Embedding.Host),
		ai.WithEmbeddingModel(c.Embedding.Model),
		ai.WithAPIKey(c.Embedding.APIKey),
		ai.WithDimensions(c.Embedding.Dimensions),
	)
}

// EnrichConfig returns the embedding pipeline settings.
func (c *Config) EnrichConfig() enrich.Config {
	cfg := enrich.DefaultConfig()
	cfg.BatchSize = c.Embedding.BatchSize
	cfg.PoolSize = c.Embedding.PoolSize
	cfg.MaxRetries = c.Embedding.MaxRetries
	cfg.RetryDelay = c.Embedding.RetryDelay
	return cfg
}

// TaxonomyConfig returns the taxonomy build parameters.
func (c *Config) TaxonomyConfig() taxonomy.Config {
	return taxonomy.Config{
		Strategy:          core.Strategy(strings.ToLower(c.Taxonomy.Strategy)),
		MacroCount:        c.Taxonomy.MacroCount,
		MicroCount:        c.Taxonomy.MicroCount,
		Seed:              c.Taxonomy.Seed,
		MaxIterations:     c.Taxonomy.MaxIterations,
		NInit:             c.Taxonomy.NInit,
		Tolerance:         c.Taxonomy.Tolerance,
		MicroPolicy:       taxonomy.MicroPolicy(strings.ToLower(c.Taxonomy.MicroPolicy)),
		DeriveMicroLabels: c.Taxonomy.DeriveMicroLabels,
	}
}

// Neo4jConfig returns the mirror connection settings.
func (c *Config) Neo4jConfig() neo4jsync.Config {
	return neo4jsync.Config{
		URI:         c.Neo4j.URI,
		User:        c.Neo4j.User,
		Password:    c.Neo4j.Password,
		Database:    c.Neo4j.Database,
		MaxPoolSize: c.Neo4j.MaxPoolSize,
		Timeout:     c.Neo4j.Timeout,
	}
}

// CacheEnabled reports whether a Redis address is configured.
func (c *Config) CacheEnabled() bool {
	return c.Cache.Address != ""
}
