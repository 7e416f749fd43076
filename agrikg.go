// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package agrikg bundles the provider knowledge graph with the embedding
// provider and exposes factories for every pipeline stage.
package agrikg

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/poiesic/agrikg/ai"
	"github.com/poiesic/agrikg/ai/cache"
	"github.com/poiesic/agrikg/ai/mock"
	"github.com/poiesic/agrikg/ai/ollama"
	"github.com/poiesic/agrikg/ai/openai"
	"github.com/poiesic/agrikg/config"
	"github.com/poiesic/agrikg/core"
	"github.com/poiesic/agrikg/enrich"
	"github.com/poiesic/agrikg/mutator"
	"github.com/poiesic/agrikg/search"
	"github.com/poiesic/agrikg/storage"
	"github.com/poiesic/agrikg/storage/badger"
	"github.com/poiesic/agrikg/taxonomy"
	"github.com/poiesic/agrikg/vectorstore"
)

// ErrProviderRequired is returned by factories that need embeddings when the
// graph was opened without an AI provider.
var ErrProviderRequired = errors.New("agrikg: AI provider is required")

// Graph is an open provider graph.
type Graph struct {
	backend  *badger.Backend
	store    storage.TripleStore
	runs     storage.RunRepository
	provider ai.AIProvider
	redis    *redis.Client
	logger   *slog.Logger
}

// Option configures Open.
type Option func(*options)

type options struct {
	aiConfig    *ai.Config
	provider    ai.AIProvider
	cacheClient redis.Cmdable
	cacheTTL    time.Duration
	inMemory    bool
	logger      *slog.Logger
}

// WithAIConfig creates the embedding provider from cfg.
func WithAIConfig(cfg *ai.Config) Option {
	return func(o *options) {
		o.aiConfig = cfg
	}
}

// WithProvider uses an existing provider. It takes precedence over WithAIConfig.
func WithProvider(p ai.AIProvider) Option {
	return func(o *options) {
		o.provider = p
	}
}

// WithEmbeddingCache puts a Redis cache in front of the provider.
func WithEmbeddingCache(client redis.Cmdable, ttl time.Duration) Option {
	return func(o *options) {
		o.cacheClient = client
		o.cacheTTL = ttl
	}
}

// InMemory keeps the graph in memory; the path is ignored.
func InMemory() Option {
	return func(o *options) {
		o.inMemory = true
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// NewAIProvider creates the provider selected by cfg.Backend.
func NewAIProvider(cfg *ai.Config) (ai.AIProvider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case ai.BackendOpenAI:
		return openai.NewProvider(cfg)
	case ai.BackendOllama:
		return ollama.NewProvider(cfg)
	case ai.BackendMock:
		return mock.NewProvider(cfg)
	default:
		return nil, fmt.Errorf("unknown AI backend %q", cfg.Backend)
	}
}

// Open opens the graph stored at path. Without WithAIConfig or WithProvider
// the graph has no provider and only the embedding-free stages work.
func Open(path string, opts ...Option) (*Graph, error) {
	o := &options{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	backend, err := badger.OpenBackend(path, o.inMemory)
	if err != nil {
		return nil, err
	}

	store, err := badger.NewTripleStore(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	runs, err := badger.NewRunRepository(backend)
	if err != nil {
		store.Close()
		backend.Close()
		return nil, err
	}

	provider := o.provider
	if provider == nil && o.aiConfig != nil {
		provider, err = NewAIProvider(o.aiConfig)
		if err != nil {
			runs.Close()
			store.Close()
			backend.Close()
			return nil, err
		}
	}
	if provider != nil && o.cacheClient != nil {
		model, dims := "", 0
		if o.aiConfig != nil {
			model, dims = o.aiConfig.EmbeddingModel, o.aiConfig.Dimensions
		}
		cached, err := cache.WrapProvider(provider, o.cacheClient, model,
			cache.WithTTL(o.cacheTTL), cache.WithDimensions(dims),
			cache.WithLogger(o.logger.With("component", "embedding-cache")))
		if err != nil {
			provider.Close()
			runs.Close()
			store.Close()
			backend.Close()
			return nil, err
		}
		provider = cached
	}

	return &Graph{
		backend:  backend,
		store:    store,
		runs:     runs,
		provider: provider,
		logger:   o.logger,
	}, nil
}

// FromConfig opens the graph described by cfg, including the embedding
// cache when one is configured.
func FromConfig(cfg *config.Config, opts ...Option) (*Graph, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	all := []Option{WithAIConfig(cfg.AIConfig())}
	var client *redis.Client
	if cfg.CacheEnabled() {
		client = redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.Address,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
		})
		all = append(all, WithEmbeddingCache(client, cfg.Cache.TTL))
	}
	g, err := Open(cfg.Store.Path, append(all, opts...)...)
	if err != nil {
		if client != nil {
			client.Close()
		}
		return nil, err
	}
	g.redis = client
	return g, nil
}

// Close releases the provider, the repositories and the backend.
func (g *Graph) Close() error {
	if g.provider != nil {
		if err := g.provider.Close(); err != nil {
			g.logger.Error("error closing AI provider", "err", err)
		}
	}
	if g.redis != nil {
		if err := g.redis.Close(); err != nil {
			g.logger.Error("error closing redis client", "err", err)
		}
	}

	if err := g.runs.Close(); err != nil {
		g.logger.Error("error closing run repository", "err", err)
		return err
	}
	if err := g.store.Close(); err != nil {
		g.logger.Error("error closing triple store", "err", err)
		return err
	}

	if err := g.backend.Close(); err != nil {
		g.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

func (g *Graph) Store() storage.TripleStore {
	return g.store
}

func (g *Graph) Runs() storage.RunRepository {
	return g.runs
}

// Provider returns the embedding provider, or nil when none was configured.
func (g *Graph) Provider() ai.AIProvider {
	return g.provider
}

func (g *Graph) NewEnricher(opts ...enrich.Option) (*enrich.Enricher, error) {
	if g.provider == nil {
		return nil, ErrProviderRequired
	}
	return enrich.NewEnricher(g.store, g.provider.Embedder(), append([]enrich.Option{enrich.WithLogger(g.logger)}, opts...)...)
}

func (g *Graph) NewVectorStore(opts ...vectorstore.Option) (*vectorstore.Adapter, error) {
	return vectorstore.NewAdapter(g.store, append([]vectorstore.Option{vectorstore.WithLogger(g.logger)}, opts...)...)
}

func (g *Graph) NewMutator(opts ...mutator.Option) (*mutator.Mutator, error) {
	return mutator.New(g.store, append([]mutator.Option{mutator.WithLogger(g.logger)}, opts...)...)
}

func (g *Graph) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	if g.provider == nil {
		return nil, ErrProviderRequired
	}
	return search.NewSearcher(g.store, g.provider, append([]search.Option{search.WithLogger(g.logger)}, opts...)...)
}

// NewClusterBuilder returns a k-means builder labeling clusters from the
// specialties' rdf:value text.
func (g *Graph) NewClusterBuilder(cfg taxonomy.Config) (*taxonomy.ClusterBuilder, error) {
	adapter, err := g.NewVectorStore()
	if err != nil {
		return nil, err
	}
	return taxonomy.NewClusterBuilder(cfg, taxonomy.WithTextSource(adapter), taxonomy.WithLogger(g.logger))
}

// NewAnchorBuilder returns an anchor builder over precomputed anchor embeddings.
func (g *Graph) NewAnchorBuilder(cfg taxonomy.Config, anchors *taxonomy.AnchorEmbeddings) (*taxonomy.AnchorBuilder, error) {
	return taxonomy.NewAnchorBuilder(cfg, anchors, taxonomy.WithLogger(g.logger))
}

// EmbedAnchors embeds an anchor set with the graph's provider.
func (g *Graph) EmbedAnchors(ctx context.Context, set *taxonomy.AnchorSet) (*taxonomy.AnchorEmbeddings, error) {
	if g.provider == nil {
		return nil, ErrProviderRequired
	}
	return taxonomy.EmbedAnchors(ctx, set, g.provider.Embedder())
}

// BuildResult is the outcome of one taxonomy build.
type BuildResult struct {
	Taxonomy *core.Taxonomy
	Report   *mutator.Report
	Run      *core.Run
}

// BuildTaxonomy reads the embedded specialties, partitions them with builder,
// writes the result to the graph and records the run.
func (g *Graph) BuildTaxonomy(ctx context.Context, builder taxonomy.Builder, cfg taxonomy.Config, opts ...mutator.ApplyOption) (*BuildResult, error) {
	adapter, err := g.NewVectorStore()
	if err != nil {
		return nil, err
	}
	entries, err := adapter.FetchEntitiesWithEmbeddings(ctx, core.Specialty)
	if err != nil {
		return nil, fmt.Errorf("fetch embeddings: %w", err)
	}
	return g.BuildTaxonomyFrom(ctx, entries, builder, cfg, opts...)
}

// BuildTaxonomyFrom is BuildTaxonomy over entries read elsewhere, e.g. from
// an embeddings artifact.
func (g *Graph) BuildTaxonomyFrom(ctx context.Context, entries []core.Embedded, builder taxonomy.Builder, cfg taxonomy.Config, opts ...mutator.ApplyOption) (*BuildResult, error) {
	started := time.Now()
	g.logger.Info("building taxonomy", "strategy", string(cfg.Strategy), "specialties", len(entries))

	tax, err := builder.Build(ctx, entries)
	if err != nil {
		return nil, fmt.Errorf("build taxonomy: %w", err)
	}

	m, err := g.NewMutator()
	if err != nil {
		return nil, err
	}
	report, err := m.Apply(ctx, tax, opts...)
	if err != nil {
		return nil, fmt.Errorf("apply taxonomy: %w", err)
	}

	run, err := g.runs.SaveRun(ctx, &core.Run{
		Strategy:    tax.Strategy,
		Params:      runParams(cfg),
		Specialties: len(entries),
		Macros:      len(tax.Macros),
		Micros:      len(tax.Micros),
		Skipped:     len(tax.Skipped),
		EdgesAdded:  report.LinksAdded + report.Propagation.EdgesAdded,
		EdgesPruned: report.EdgesPruned,
		StartedAt:   started,
		FinishedAt:  time.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("save run: %w", err)
	}
	return &BuildResult{Taxonomy: tax, Report: report, Run: run}, nil
}

func runParams(cfg taxonomy.Config) map[string]string {
	params := map[string]string{
		"seed": strconv.FormatUint(cfg.Seed, 10),
	}
	switch cfg.Strategy {
	case core.StrategyKMeans:
		params["k"] = strconv.Itoa(cfg.MacroCount)
		params["m"] = strconv.Itoa(cfg.MicroCount)
		params["n_init"] = strconv.Itoa(cfg.NInit)
	case core.StrategyAnchors:
		params["micro_policy"] = string(cfg.MicroPolicy)
	}
	return params
}
