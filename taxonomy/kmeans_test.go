package taxonomy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoBlobs() Matrix {
	return Matrix{
		{0, 0}, {0, 1}, {1, 0},
		{10, 10}, {10, 11}, {11, 10},
	}
}

func testKMeans(k int) KMeans {
	return DefaultConfig().kmeans(k)
}

func TestKMeans_SeparatesBlobs(t *testing.T) {
	res, err := testKMeans(2).Fit(context.Background(), twoBlobs())
	require.NoError(t, err)

	assert.Equal(t, res.Labels[0], res.Labels[1])
	assert.Equal(t, res.Labels[0], res.Labels[2])
	assert.Equal(t, res.Labels[3], res.Labels[4])
	assert.Equal(t, res.Labels[3], res.Labels[5])
	assert.NotEqual(t, res.Labels[0], res.Labels[3])
	assert.Equal(t, []int{3, 3}, res.Sizes())
	// Each blob contributes 2/9 + 5/9 + 5/9 around its centroid.
	assert.InDelta(t, 8.0/3.0, res.Inertia, 1e-9)
}

func TestKMeans_Deterministic(t *testing.T) {
	m := Matrix{
		{0.1, 0.2}, {0.3, 0.1}, {0.9, 0.8}, {0.7, 0.9},
		{0.5, 0.5}, {0.2, 0.9}, {0.8, 0.1}, {0.4, 0.6},
	}
	first, err := testKMeans(3).Fit(context.Background(), m)
	require.NoError(t, err)
	for range 5 {
		again, err := testKMeans(3).Fit(context.Background(), m)
		require.NoError(t, err)
		assert.Equal(t, first.Labels, again.Labels)
		assert.Equal(t, first.Centroids, again.Centroids)
		assert.Equal(t, first.Inertia, again.Inertia)
	}
}

func TestKMeans_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := testKMeans(0).Fit(ctx, twoBlobs())
	assert.ErrorIs(t, err, ErrInvalidK)

	_, err = testKMeans(7).Fit(ctx, twoBlobs())
	assert.ErrorIs(t, err, ErrTooFewVectors)

	_, err = testKMeans(2).Fit(ctx, Matrix{{0, 0}, {1}})
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = testKMeans(2).Fit(cancelled, twoBlobs())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestKMeans_NoEmptyClusters(t *testing.T) {
	// Identical points leave k-means++ nothing to spread over, so clusters
	// can only be filled by reseeding.
	res, err := testKMeans(3).Fit(context.Background(), Matrix{{1, 1}, {1, 1}, {1, 1}})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1, 1}, res.Sizes())
	assert.Zero(t, res.Inertia)
}

func TestStandardize(t *testing.T) {
	out := Standardize(Matrix{{1, 5}, {3, 5}})
	assert.Equal(t, Matrix{{-1, 0}, {1, 0}}, out)
	assert.Empty(t, Standardize(nil))
}

func TestElbow(t *testing.T) {
	points, err := Elbow(context.Background(), twoBlobs(), 1, 4, testKMeans(0))
	require.NoError(t, err)
	require.Len(t, points, 4)
	for i, p := range points {
		assert.Equal(t, i+1, p.K)
	}
	assert.Less(t, points[1].Inertia, points[0].Inertia)

	// k beyond the number of rows is not evaluated.
	points, err = Elbow(context.Background(), twoBlobs(), 5, 12, testKMeans(0))
	require.NoError(t, err)
	assert.Len(t, points, 2)

	_, err = Elbow(context.Background(), twoBlobs(), 4, 3, testKMeans(0))
	assert.ErrorIs(t, err, ErrInvalidK)
}
