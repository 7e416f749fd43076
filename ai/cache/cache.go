// Package cache memoizes embeddings in Redis so repeated pipeline runs and
// repeated search queries do not pay for the same embedding twice.
package cache

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-crypt/x/blake2b"
	"github.com/poiesic/agrikg/ai"
	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultTTL keeps embeddings for a week.
	DefaultTTL = 168 * time.Hour

	keyPrefix = "agrikg:embedding"
)

var (
	// ErrEmbedderRequired indicates a nil inner embedder.
	ErrEmbedderRequired = errors.New("cache: embedder is required")

	// ErrClientRequired indicates a nil redis client.
	ErrClientRequired = errors.New("cache: redis client is required")
)

// Embedder wraps another ai.Embedder with a Redis read-through cache.
// Cache failures are logged and never fail an embedding request.
type Embedder struct {
	inner  ai.Embedder
	client redis.Cmdable
	model  string
	dims   int
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger
}

var _ ai.Embedder = (*Embedder)(nil)

// Option configures an Embedder.
type Option func(*Embedder) error

// WithTTL sets the cache entry lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(e *Embedder) error {
		if ttl < 0 {
			return errors.New("cache: ttl cannot be negative")
		}
		e.ttl = ttl
		return nil
	}
}

// WithDimensions adds the configured vector size to every key.
func WithDimensions(dims int) Option {
	return func(e *Embedder) error {
		if dims < 0 {
			return errors.New("cache: dimensions cannot be negative")
		}
		e.dims = dims
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Embedder) error {
		e.logger = logger
		return nil
	}
}

// NewEmbedder creates a caching decorator. The model name and the
// dimensions are part of every key.
func NewEmbedder(inner ai.Embedder, client redis.Cmdable, model string, opts ...Option) (*Embedder, error) {
	if inner == nil {
		return nil, ErrEmbedderRequired
	}
	if client == nil {
		return nil, ErrClientRequired
	}
	e := &Embedder{
		inner:  inner,
		client: client,
		model:  model,
		ttl:    DefaultTTL,
		logger: slog.Default().With("component", "embedding-cache"),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Key returns the cache key for a text.
func (e *Embedder) Key(text string) string {
	h, _ := blake2b.New(16, nil)
	h.Write([]byte(text))
	return fmt.Sprintf("%s:%s:%d:%s", keyPrefix, e.model, e.dims, hex.EncodeToString(h.Sum(nil)))
}

// EmbedText returns a cached vector or embeds and caches it. Concurrent
// requests for the same text share one upstream call.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	key := e.Key(text)
	if v, ok := e.get(ctx, key); ok {
		return v, nil
	}

	res, err, _ := e.group.Do(key, func() (any, error) {
		v, err := e.inner.EmbedText(ctx, text)
		if err != nil {
			return nil, err
		}
		e.set(ctx, key, v)
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	return res.([]float32), nil
}

// EmbedTexts serves hits from the cache and embeds all misses in one batch.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var (
		missTexts []string
		missIdx   []int
	)
	for i, text := range texts {
		if v, ok := e.get(ctx, e.Key(text)); ok {
			out[i] = v
			continue
		}
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}
	if len(missTexts) == 0 {
		return out, nil
	}

	e.logger.Debug("embedding cache misses", "hits", len(texts)-len(missTexts), "misses", len(missTexts))
	vectors, err := e.inner.EmbedTexts(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(missTexts) {
		return nil, fmt.Errorf("cache: embedder returned %d vectors for %d texts", len(vectors), len(missTexts))
	}
	for j, v := range vectors {
		out[missIdx[j]] = v
		e.set(ctx, e.Key(missTexts[j]), v)
	}
	return out, nil
}

func (e *Embedder) get(ctx context.Context, key string) ([]float32, bool) {
	data, err := e.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			e.logger.Warn("embedding cache read failed", "key", key, "err", err)
		}
		return nil, false
	}
	var v []float32
	if err := msgpack.Unmarshal(data, &v); err != nil || len(v) == 0 {
		e.logger.Warn("discarding undecodable cache entry", "key", key, "err", err)
		return nil, false
	}
	return v, true
}

func (e *Embedder) set(ctx context.Context, key string, v []float32) {
	data, err := msgpack.Marshal(v)
	if err != nil {
		e.logger.Warn("failed to encode embedding for cache", "key", key, "err", err)
		return
	}
	if err := e.client.Set(ctx, key, data, e.ttl).Err(); err != nil {
		e.logger.Warn("embedding cache write failed", "key", key, "err", err)
	}
}
