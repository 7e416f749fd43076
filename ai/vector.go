package ai

import (
	"fmt"
	"math"
)

// NormalizeVector normalizes a vector to unit length.
// Returns a new vector. If the input is a zero vector, returns a zero vector.
func NormalizeVector(v []float32) []float32 {
	if len(v) == 0 {
		return v
	}

	var magnitude float32
	for _, val := range v {
		magnitude += val * val
	}
	magnitude = float32(math.Sqrt(float64(magnitude)))

	result := make([]float32, len(v))
	if magnitude == 0 {
		return result
	}
	for i, val := range v {
		result[i] = val / magnitude
	}
	return result
}

// FitDimensions enforces the deployment dimensionality on a vector.
// Matryoshka-style models (text-embedding-3) keep their meaning when
// truncated and renormalized, which is what the API does for its own
// dimensions parameter.
func FitDimensions(v []float32, dims int) ([]float32, error) {
	switch {
	case dims <= 0 || len(v) == dims:
		return v, nil
	case len(v) > dims:
		return NormalizeVector(v[:dims]), nil
	default:
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(v), dims)
	}
}

// FitAll applies FitDimensions to every vector.
func FitAll(vs [][]float32, dims int) ([][]float32, error) {
	out := make([][]float32, len(vs))
	for i, v := range vs {
		fitted, err := FitDimensions(v, dims)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		out[i] = fitted
	}
	return out, nil
}

// CosineSimilarity returns the cosine of the angle between a and b.
// Returns 0 when either vector is zero or lengths differ.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
