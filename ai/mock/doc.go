// Package mock provides test doubles for the AI service interfaces.
//
// The mocks let tests run without a network embedding service and give
// deterministic vectors.
//
// # Usage in Tests
//
//	provider := mock.NewMockProvider()
//	vector, err := provider.Embedder().EmbedText(ctx, "test")
//
//	// Pin vectors for known texts
//	embedder := mock.NewMockEmbedder().WithVectors(map[string][]float32{
//	    "biochar": {1, 0, 0},
//	})
//
//	// Inject failures
//	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
//	    return nil, errors.New("rate limited")
//	}
//
// # Default Behavior
//
// MockEmbedder returns unit vectors derived from an FNV hash of the text,
// DefaultDimensions long unless Dimensions is set.
package mock
