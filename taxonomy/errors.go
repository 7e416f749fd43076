package taxonomy

import "errors"

var (
	// ErrInvalidK indicates a non-positive cluster count.
	ErrInvalidK = errors.New("cluster count must be positive")

	// ErrTooFewVectors indicates fewer input vectors than requested clusters.
	ErrTooFewVectors = errors.New("fewer vectors than clusters")

	// ErrDimensionMismatch indicates vectors of differing lengths.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrInvalidConfig indicates taxonomy parameters that cannot be used.
	ErrInvalidConfig = errors.New("invalid taxonomy config")

	// ErrInvalidAnchors indicates an anchor set that cannot be used.
	ErrInvalidAnchors = errors.New("invalid anchor set")

	// ErrEmbedderRequired indicates a missing embedding service.
	ErrEmbedderRequired = errors.New("embedder is required")
)
