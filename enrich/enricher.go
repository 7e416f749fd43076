package enrich

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/agrikg/ai"
	"github.com/poiesic/agrikg/core"
	"github.com/poiesic/agrikg/storage"
	"github.com/poiesic/agrikg/vectorstore"
)

// Config holds the enrichment parameters.
type Config struct {
	// Sources are the text predicates to embed.
	Sources []core.Term

	// BatchSize is the number of texts per embedding call.
	BatchSize int

	// PoolSize is the number of batches embedded concurrently.
	PoolSize int

	// MaxRetries is the number of attempts per batch before falling back to
	// per-item embedding.
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff.
	RetryDelay time.Duration

	// ReportInterval is how often progress is printed, in items.
	ReportInterval int

	// Force re-embeds subjects that already carry an embedding.
	Force bool
}

// DefaultConfig embeds descriptions and specialty values.
func DefaultConfig() Config {
	return Config{
		Sources:        []core.Term{core.SchemaDescription, core.RDFValue},
		BatchSize:      64,
		PoolSize:       max(runtime.NumCPU()/2, 1),
		MaxRetries:     3,
		RetryDelay:     time.Second,
		ReportInterval: 100,
	}
}

// Stats summarizes one enrichment run.
type Stats struct {
	Items    int // texts selected for embedding
	Embedded int
	Failed   int
	Skipped  int // subjects that already had an embedding
}

// item is one text to embed.
type item struct {
	subject core.Term
	target  core.Term
	text    string
}

// Enricher embeds graph texts and writes the vectors back.
type Enricher struct {
	store    storage.TripleStore
	embedder ai.Embedder
	cfg      Config
	progress io.Writer
	logger   *slog.Logger
	writeMu  sync.Mutex
}

// Option configures an Enricher.
type Option func(*Enricher)

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) Option {
	return func(e *Enricher) {
		e.cfg = cfg
	}
}

// WithProgress sets where progress is printed. Default discards it.
func WithProgress(w io.Writer) Option {
	return func(e *Enricher) {
		e.progress = w
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Enricher) {
		e.logger = logger
	}
}

// NewEnricher creates an enricher.
func NewEnricher(store storage.TripleStore, embedder ai.Embedder, opts ...Option) (*Enricher, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	e := &Enricher{
		store:    store,
		embedder: embedder,
		cfg:      DefaultConfig(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.cfg.BatchSize = max(e.cfg.BatchSize, 1)
	e.cfg.PoolSize = max(e.cfg.PoolSize, 1)
	e.cfg.MaxRetries = max(e.cfg.MaxRetries, 1)
	e.logger = e.logger.With("component", "enrich")
	return e, nil
}

// Run embeds every pending text. Individual failures are logged and counted;
// only store errors and cancellation abort the run.
func (e *Enricher) Run(ctx context.Context) (Stats, error) {
	items, skipped, err := e.collect(ctx)
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{Items: len(items), Skipped: skipped}
	if len(items) == 0 {
		e.logger.Info("nothing to embed", "skipped", skipped)
		return stats, nil
	}

	pool, err := ants.NewPool(e.cfg.PoolSize)
	if err != nil {
		return stats, err
	}
	defer pool.Release()

	tracker := NewProgressTracker(e.progress, "Embedding", len(items), e.cfg.ReportInterval)
	tracker.Start()

	var (
		wg       sync.WaitGroup
		errMu    sync.Mutex
		firstErr error
	)
	fail := func(err error) {
		errMu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		errMu.Unlock()
	}

	for start := 0; start < len(items); start += e.cfg.BatchSize {
		batch := items[start:min(start+e.cfg.BatchSize, len(items))]
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			written, failed, err := e.processBatch(ctx, batch)
			if err != nil {
				fail(err)
			}
			tracker.Add(written+failed, failed)
		})
		if submitErr != nil {
			wg.Done()
			fail(submitErr)
			break
		}
	}
	wg.Wait()
	tracker.Finish()

	done, failed := tracker.Current()
	stats.Failed = failed
	stats.Embedded = done - failed
	if firstErr != nil {
		return stats, firstErr
	}
	e.logger.Info("embedding complete",
		"embedded", stats.Embedded,
		"failed", stats.Failed,
		"skipped", stats.Skipped,
		"elapsed", tracker.Elapsed().Round(time.Millisecond))
	return stats, nil
}

// collect lists the texts to embed, one per (subject, source). Subjects that
// already carry the target embedding are skipped unless forced.
func (e *Enricher) collect(ctx context.Context) ([]item, int, error) {
	var items []item
	skipped := 0
	for _, source := range e.cfg.Sources {
		triples, err := e.store.Match(ctx, core.Pattern{Predicate: core.Bind(source)})
		if err != nil {
			return nil, 0, fmt.Errorf("list %s texts: %w", source.LocalName(), err)
		}
		target := core.EmbeddingPredicate(source)
		seen := make(map[core.Term]bool, len(triples))
		for _, t := range triples {
			if !t.Object.IsLiteral() || t.Object.Value == "" || seen[t.Subject] {
				continue
			}
			seen[t.Subject] = true
			if !e.cfg.Force {
				existing, err := e.store.Objects(ctx, t.Subject, target)
				if err != nil {
					return nil, 0, err
				}
				if len(existing) > 0 {
					skipped++
					continue
				}
			}
			items = append(items, item{subject: t.Subject, target: target, text: t.Object.Value})
		}
	}
	return items, skipped, nil
}

// processBatch embeds a batch, falling back to single items when the batch
// call keeps failing, and writes the vectors that were produced.
func (e *Enricher) processBatch(ctx context.Context, batch []item) (written, failed int, err error) {
	texts := make([]string, len(batch))
	for i, it := range batch {
		texts[i] = it.text
	}

	var vectors [][]float32
	batchErr := RetryWithBackoff(ctx, func() error {
		var err error
		vectors, err = e.embedder.EmbedTexts(ctx, texts)
		if err == nil && len(vectors) != len(texts) {
			err = fmt.Errorf("embedding count mismatch: expected %d, got %d", len(texts), len(vectors))
		}
		return err
	}, e.cfg.MaxRetries, e.cfg.RetryDelay)

	if batchErr != nil {
		if ctx.Err() != nil {
			return 0, len(batch), ctx.Err()
		}
		e.logger.Warn("batch embedding failed, embedding items one by one",
			"items", len(batch), "error", batchErr)
		vectors = make([][]float32, len(batch))
		for i, it := range batch {
			v, err := e.embedder.EmbedText(ctx, it.text)
			if err != nil {
				e.logger.Warn("embedding failed", "entity", it.subject.Value, "source", it.target.LocalName(), "error", err)
				continue
			}
			vectors[i] = v
		}
	}

	triples := make([]core.Triple, 0, len(batch))
	var stale []core.Triple
	for i, it := range batch {
		if len(vectors[i]) == 0 {
			failed++
			continue
		}
		if e.cfg.Force {
			old, err := e.store.Objects(ctx, it.subject, it.target)
			if err != nil {
				return written, failed, err
			}
			for _, o := range old {
				stale = append(stale, core.T(it.subject, it.target, o))
			}
		}
		triples = append(triples, core.T(it.subject, it.target, vectorstore.VectorLiteral(ai.NormalizeVector(vectors[i]))))
	}

	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	if _, err := e.store.Remove(ctx, stale...); err != nil {
		return written, failed, err
	}
	if _, err := e.store.Add(ctx, triples...); err != nil {
		return written, failed, err
	}
	return len(triples), failed, nil
}
