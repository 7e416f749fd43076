package taxonomy

import (
	"fmt"
	"math"

	"github.com/poiesic/agrikg/core"
)

// Matrix is a dense row-major matrix of float64 rows.
type Matrix [][]float64

// NewMatrix copies embeddings into a matrix, checking every row has the same length.
func NewMatrix(entries []core.Embedded) (Matrix, error) {
	m := make(Matrix, len(entries))
	dims := -1
	for i, e := range entries {
		if dims == -1 {
			dims = len(e.Vector)
		}
		if len(e.Vector) != dims || dims == 0 {
			return nil, fmt.Errorf("%w: %s has %d dimensions, want %d", ErrDimensionMismatch, e.ID, len(e.Vector), dims)
		}
		row := make([]float64, dims)
		for j, v := range e.Vector {
			row[j] = float64(v)
		}
		m[i] = row
	}
	return m, nil
}

// Standardize rescales every column to zero mean and unit variance using the
// population standard deviation. Constant columns are only centered.
func Standardize(m Matrix) Matrix {
	if len(m) == 0 {
		return Matrix{}
	}
	n := float64(len(m))
	dims := len(m[0])
	mean := make([]float64, dims)
	for _, row := range m {
		for j, v := range row {
			mean[j] += v
		}
	}
	for j := range mean {
		mean[j] /= n
	}

	scale := make([]float64, dims)
	for _, row := range m {
		for j, v := range row {
			d := v - mean[j]
			scale[j] += d * d
		}
	}
	for j := range scale {
		scale[j] = math.Sqrt(scale[j] / n)
		if scale[j] == 0 {
			scale[j] = 1
		}
	}

	out := make(Matrix, len(m))
	for i, row := range m {
		r := make([]float64, dims)
		for j, v := range row {
			r[j] = (v - mean[j]) / scale[j]
		}
		out[i] = r
	}
	return out
}

// rows returns the sub-matrix of the given row indices, sharing row storage.
func (m Matrix) rows(indices []int) Matrix {
	out := make(Matrix, len(indices))
	for i, idx := range indices {
		out[i] = m[idx]
	}
	return out
}

// meanVector averages embeddings in their original float32 space.
func meanVector(vectors [][]float32) []float32 {
	if len(vectors) == 0 {
		return nil
	}
	sum := make([]float64, len(vectors[0]))
	for _, v := range vectors {
		for j, x := range v {
			sum[j] += float64(x)
		}
	}
	out := make([]float32, len(sum))
	for j, s := range sum {
		out[j] = float32(s / float64(len(vectors)))
	}
	return out
}

func squaredEuclidean(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
