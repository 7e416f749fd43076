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


// Package ai provides abstractions for the embedding services used by agrikg.
//
// Specialty values, organization descriptions, taxonomy anchors and search
// queries are all turned into vectors through the Embedder interface. The
// core packages depend only on these interfaces.
//
// # Implementation Packages
//
//   - ai/openai: OpenAI-compatible APIs through langchaingo
//   - ai/ollama: a local Ollama server through langchaingo
//   - ai/cache: a Redis-backed decorator that memoizes embeddings
//   - ai/mock: deterministic test doubles
//
// # Constructor Return Type Pattern
//
// Public constructors (openai.NewProvider, ollama.NewEmbedder, etc.) return
// interface types. Test utility constructors (mock.NewMockEmbedder) return
// concrete types so tests can inject behavior and count calls.
//
// # Dimensions
//
// A deployment uses one embedding dimensionality (512 by default). Backends
// pass every vector through FitDimensions so stored vectors stay comparable.
//
// # Usage Example
//
//	config := ai.NewConfig(ai.WithAPIKey(key))
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vector, err := provider.Embedder().EmbedText(ctx, "biochar production")
package ai
