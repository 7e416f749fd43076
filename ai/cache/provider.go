package cache

import (
	"github.com/poiesic/agrikg/ai"
	"github.com/redis/go-redis/v9"
)

// Provider serves a cached embedder in front of another provider.
type Provider struct {
	inner    ai.AIProvider
	embedder *Embedder
}

var _ ai.AIProvider = (*Provider)(nil)

// WrapProvider caches every embedding the inner provider computes.
func WrapProvider(inner ai.AIProvider, client redis.Cmdable, model string, opts ...Option) (*Provider, error) {
	if inner == nil {
		return nil, ErrEmbedderRequired
	}
	embedder, err := NewEmbedder(inner.Embedder(), client, model, opts...)
	if err != nil {
		return nil, err
	}
	return &Provider{inner: inner, embedder: embedder}, nil
}

// Embedder returns the caching embedder.
func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

// Close closes the inner provider. The redis client belongs to the caller.
func (p *Provider) Close() error {
	return p.inner.Close()
}
