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


package ai

import (
	"errors"
	"fmt"
	"strings"
)

// Backend selects the embedding service implementation.
type Backend string

const (
	BackendOpenAI Backend = "openai"
	BackendOllama Backend = "ollama"
	BackendMock   Backend = "mock"
)

const (
	defaultOpenAIHost = "https://api.openai.com/v1"
	defaultOllamaHost = "http://localhost:11434"
)

var (
	// ErrMissingCredential indicates a backend that needs an API key has none.
	ErrMissingCredential = errors.New("ai config: API key is required for the openai backend")

	// ErrDimensionMismatch indicates an embedding shorter than the configured dimensionality.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// Config holds configuration for AI service providers.
type Config struct {
	// Backend is the embedding service implementation.
	Backend Backend

	// EmbeddingHost is the base URL for the embedding service API.
	// Example: "https://api.openai.com/v1", "http://localhost:11434"
	EmbeddingHost string

	// EmbeddingModel is the model identifier to use for text embeddings.
	// Example: "text-embedding-3-small", "nomic-embed-text"
	EmbeddingModel string

	// APIKey authenticates against the embedding service.
	APIKey string

	// Dimensions is the fixed vector length for this deployment. Longer
	// vectors are truncated and renormalized; shorter ones are rejected.
	// Zero disables the check.
	Dimensions int
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithBackend sets the embedding backend.
func WithBackend(backend Backend) ConfigOption {
	return func(c *Config) {
		c.Backend = backend
	}
}

// WithEmbeddingHost sets the embedding service host URL.
func WithEmbeddingHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
	}
}

// WithEmbeddingModel sets the embedding model identifier.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithDimensions sets the expected embedding dimensionality.
func WithDimensions(dims int) ConfigOption {
	return func(c *Config) {
		c.Dimensions = dims
	}
}

// DefaultConfig returns a Config for OpenAI text-embedding-3-small at 512 dimensions.
func DefaultConfig() *Config {
	return &Config{
		Backend:        BackendOpenAI,
		EmbeddingHost:  defaultOpenAIHost,
		EmbeddingModel: "text-embedding-3-small",
		Dimensions:     512,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithBackend(BackendOllama),
//	    WithEmbeddingHost("http://localhost:11434"),
//	    WithEmbeddingModel("nomic-embed-text"),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// OpenAI-compatible hosts get the /v1 suffix; Ollama hosts lose it, since the
// native Ollama API is served from the root.
func (c *Config) Normalize() {
	c.Backend = Backend(strings.ToLower(string(c.Backend)))
	host := strings.TrimSuffix(c.EmbeddingHost, "/")
	switch c.Backend {
	case BackendOpenAI:
		if host == "" {
			host = defaultOpenAIHost
		}
		if !strings.HasSuffix(host, "/v1") {
			host += "/v1"
		}
	case BackendOllama:
		if host == "" {
			host = defaultOllamaHost
		}
		host = strings.TrimSuffix(host, "/v1")
	}
	c.EmbeddingHost = host
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	switch c.Backend {
	case BackendOpenAI:
		if c.APIKey == "" {
			return ErrMissingCredential
		}
	case BackendOllama, BackendMock:
	default:
		return fmt.Errorf("ai config: unknown backend %q", c.Backend)
	}
	if c.EmbeddingModel == "" {
		return errors.New("ai config: EmbeddingModel is required")
	}
	if c.Dimensions < 0 {
		return errors.New("ai config: Dimensions cannot be negative")
	}
	return nil
}
