package taxonomy

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
)

// KMeans partitions rows into K clusters minimizing the within-cluster sum of
// squared distances. Results depend only on the input and Seed.
type KMeans struct {
	K             int
	Seed          uint64
	MaxIterations int
	NInit         int     // independent k-means++ restarts; the lowest inertia wins
	Tolerance     float64 // stop when total squared centroid shift falls below this
}

// Result is the outcome of a clustering.
type Result struct {
	Labels     []int
	Centroids  [][]float64
	Inertia    float64
	Iterations int
}

// Sizes returns the number of members per cluster.
func (r *Result) Sizes() []int {
	sizes := make([]int, len(r.Centroids))
	for _, l := range r.Labels {
		sizes[l]++
	}
	return sizes
}

// Groups returns member row indices per cluster in input order.
func (r *Result) Groups() [][]int {
	groups := make([][]int, len(r.Centroids))
	for i, l := range r.Labels {
		groups[l] = append(groups[l], i)
	}
	return groups
}

// Fit clusters the rows of m.
func (km KMeans) Fit(ctx context.Context, m Matrix) (*Result, error) {
	if km.K < 1 {
		return nil, ErrInvalidK
	}
	if len(m) < km.K {
		return nil, fmt.Errorf("%w: %d vectors for %d clusters", ErrTooFewVectors, len(m), km.K)
	}
	dims := len(m[0])
	for i, row := range m {
		if len(row) != dims {
			return nil, fmt.Errorf("%w: row %d has %d dimensions, want %d", ErrDimensionMismatch, i, len(row), dims)
		}
	}

	maxIter := max(km.MaxIterations, 1)
	nInit := max(km.NInit, 1)

	var best *Result
	for run := range nInit {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rng := rand.New(rand.NewPCG(km.Seed, uint64(run)))
		res, err := km.fitOnce(ctx, m, rng, maxIter)
		if err != nil {
			return nil, err
		}
		if best == nil || res.Inertia < best.Inertia {
			best = res
		}
	}
	return best, nil
}

func (km KMeans) fitOnce(ctx context.Context, m Matrix, rng *rand.Rand, maxIter int) (*Result, error) {
	n, k, dims := len(m), km.K, len(m[0])
	centroids := initPlusPlus(m, k, rng)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = -1
	}

	iterations := 0
	for iter := 0; iter < maxIter; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		iterations++
		changed := assign(m, centroids, labels)
		reseedEmpty(m, centroids, labels, k)
		shift := update(m, centroids, labels, k, dims)
		if changed == 0 || shift <= km.Tolerance {
			break
		}
	}
	// Labels must agree with the final centroids.
	assign(m, centroids, labels)
	reseedEmpty(m, centroids, labels, k)

	return &Result{
		Labels:     labels,
		Centroids:  centroids,
		Inertia:    inertia(m, centroids, labels),
		Iterations: iterations,
	}, nil
}

// initPlusPlus picks initial centroids with k-means++ seeding.
func initPlusPlus(m Matrix, k int, rng *rand.Rand) [][]float64 {
	n := len(m)
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, clone(m[rng.IntN(n)]))

	minDist := make([]float64, n)
	for i, row := range m {
		minDist[i] = squaredEuclidean(row, centroids[0])
	}

	for len(centroids) < k {
		var total float64
		for _, d := range minDist {
			total += d
		}
		next := rng.IntN(n)
		if total > 0 {
			target := rng.Float64() * total
			var cum float64
			next = n - 1
			for i, d := range minDist {
				cum += d
				if cum >= target && d > 0 {
					next = i
					break
				}
			}
		}
		c := clone(m[next])
		centroids = append(centroids, c)
		for i, row := range m {
			if d := squaredEuclidean(row, c); d < minDist[i] {
				minDist[i] = d
			}
		}
	}
	return centroids
}

// assign moves every row to its nearest centroid, ties to the lowest index.
// Returns the number of rows whose label changed.
func assign(m Matrix, centroids [][]float64, labels []int) int {
	changed := 0
	for i, row := range m {
		nearest := nearestCentroid(row, centroids)
		if labels[i] != nearest {
			labels[i] = nearest
			changed++
		}
	}
	return changed
}

func nearestCentroid(row []float64, centroids [][]float64) int {
	nearest, minDist := 0, math.MaxFloat64
	for c, centroid := range centroids {
		if d := squaredEuclidean(row, centroid); d < minDist {
			nearest, minDist = c, d
		}
	}
	return nearest
}

// reseedEmpty gives every empty cluster the row farthest from its current
// centroid, taken from a cluster with more than one member.
func reseedEmpty(m Matrix, centroids [][]float64, labels []int, k int) {
	for {
		sizes := make([]int, k)
		for _, l := range labels {
			sizes[l]++
		}
		empty := -1
		for c, s := range sizes {
			if s == 0 {
				empty = c
				break
			}
		}
		if empty == -1 {
			return
		}

		far, farDist := -1, -1.0
		for i, row := range m {
			if sizes[labels[i]] < 2 {
				continue
			}
			if d := squaredEuclidean(row, centroids[labels[i]]); d > farDist {
				far, farDist = i, d
			}
		}
		if far == -1 {
			return
		}
		labels[far] = empty
		centroids[empty] = clone(m[far])
	}
}

// update recomputes centroids as member means and returns the total squared shift.
func update(m Matrix, centroids [][]float64, labels []int, k, dims int) float64 {
	sums := make([][]float64, k)
	counts := make([]int, k)
	for c := range sums {
		sums[c] = make([]float64, dims)
	}
	for i, row := range m {
		l := labels[i]
		counts[l]++
		for d, v := range row {
			sums[l][d] += v
		}
	}

	var shift float64
	for c := range centroids {
		if counts[c] == 0 {
			continue
		}
		for d := range sums[c] {
			sums[c][d] /= float64(counts[c])
		}
		shift += squaredEuclidean(centroids[c], sums[c])
		centroids[c] = sums[c]
	}
	return shift
}

func inertia(m Matrix, centroids [][]float64, labels []int) float64 {
	var total float64
	for i, row := range m {
		total += squaredEuclidean(row, centroids[labels[i]])
	}
	return total
}

func clone(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}

// ElbowPoint is the inertia reached with K clusters.
type ElbowPoint struct {
	K       int
	Inertia float64
}

// Elbow clusters the standardized rows for every k in [kMin, kMax] so a
// human can pick K where inertia stops dropping sharply. Values of k larger
// than the number of rows are skipped.
func Elbow(ctx context.Context, m Matrix, kMin, kMax int, base KMeans) ([]ElbowPoint, error) {
	if kMin < 1 || kMax < kMin {
		return nil, fmt.Errorf("%w: k range [%d, %d]", ErrInvalidK, kMin, kMax)
	}
	scaled := Standardize(m)
	points := make([]ElbowPoint, 0, kMax-kMin+1)
	for k := kMin; k <= kMax && k <= len(scaled); k++ {
		km := base
		km.K = k
		res, err := km.Fit(ctx, scaled)
		if err != nil {
			return nil, err
		}
		points = append(points, ElbowPoint{K: k, Inertia: res.Inertia})
	}
	return points, nil
}
