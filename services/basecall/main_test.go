package basecall

import (
	"errors"
	"math/rand"
	"testing"

	"spatools/api/models"
	n "spatools/api/models/constants/nucleotide"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCall(t *testing.T) {
	opts := DefaultOptions()

	t.Run("should call a clean homozygous locus", func(t *testing.T) {
		bc, err := Call(DepthVector{A: 30}, opts)
		require.NoError(t, err)

		assert.Equal(t, n.A, bc.Symbol)
		assert.Equal(t, 1.0, bc.Quality)
	})

	t.Run("should break ties in A, C, G, T order", func(t *testing.T) {
		bc, err := Call(DepthVector{A: 10, C: 10, G: 3, T: 2}, opts)
		require.NoError(t, err)

		assert.Equal(t, n.A, bc.Symbol)
		assert.InDelta(t, 0.4, bc.Quality, 1e-12)

		bc, err = Call(DepthVector{G: 20, T: 20}, opts)
		require.NoError(t, err)
		assert.Equal(t, n.G, bc.Symbol)
	})

	t.Run("should not call below the minimum total depth", func(t *testing.T) {
		bc, err := Call(DepthVector{A: 5, C: 5, G: 5, T: 5}, opts)
		require.NoError(t, err)

		assert.Equal(t, n.NoCall, bc.Symbol)
		assert.Equal(t, 0.25, bc.Quality)
	})

	t.Run("should report zero quality for an empty vector", func(t *testing.T) {
		bc, err := Call(DepthVector{}, opts)
		require.NoError(t, err)

		assert.Equal(t, n.NoCall, bc.Symbol)
		assert.Equal(t, 0.0, bc.Quality)
	})

	t.Run("should call N when the top base does not clear the ambiguity quality", func(t *testing.T) {
		bc, err := Call(DepthVector{A: 10, C: 10, G: 10, T: 10}, Options{MinTotalDepth: 25, AmbiguityQuality: 0.25})
		require.NoError(t, err)

		assert.Equal(t, n.N, bc.Symbol)
		assert.Equal(t, 0.25, bc.Quality)
	})

	t.Run("should call exactly at the minimum total depth", func(t *testing.T) {
		bc, err := Call(DepthVector{T: 25}, opts)
		require.NoError(t, err)
		assert.Equal(t, n.T, bc.Symbol)
	})

	t.Run("should reject negative depths", func(t *testing.T) {
		_, err := Call(DepthVector{A: 40, C: -1}, opts)
		assert.True(t, errors.Is(err, models.ErrInvalidInput))
	})

	t.Run("should reject out of range options", func(t *testing.T) {
		_, err := Call(DepthVector{A: 40}, Options{MinTotalDepth: -1})
		assert.True(t, errors.Is(err, models.ErrInvalidInput))

		_, err = Call(DepthVector{A: 40}, Options{MinTotalDepth: 25, AmbiguityQuality: 1.5})
		assert.True(t, errors.Is(err, models.ErrInvalidInput))
	})
}

func TestCallProperties(t *testing.T) {
	opts := DefaultOptions()
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 2000; i++ {
		d := DepthVector{A: rng.Intn(60), C: rng.Intn(60), G: rng.Intn(60), T: rng.Intn(60)}
		bc, err := Call(d, opts)
		require.NoError(t, err)

		assert.GreaterOrEqual(t, bc.Quality, 0.0)
		assert.LessOrEqual(t, bc.Quality, 1.0)

		if d.Total() < opts.MinTotalDepth {
			assert.Equal(t, n.NoCall, bc.Symbol, "%+v", d)
			continue
		}

		// with a unique maximum the dominant base is always called
		counts := map[int]int{}
		top := 0
		for _, nuc := range n.CallOrder {
			counts[d.Of(nuc)]++
			if d.Of(nuc) > top {
				top = d.Of(nuc)
			}
		}
		if counts[top] == 1 {
			assert.Equal(t, top, d.Of(bc.Symbol), "%+v", d)
		}
	}
}

func TestCallAll(t *testing.T) {
	t.Run("should preserve input order across parallel halves", func(t *testing.T) {
		ds := make([]DepthVector, 5000)
		for i := range ds {
			switch i % 4 {
			case 0:
				ds[i] = DepthVector{A: 30}
			case 1:
				ds[i] = DepthVector{C: 30}
			case 2:
				ds[i] = DepthVector{G: 30}
			default:
				ds[i] = DepthVector{T: 3}
			}
		}

		calls, err := CallAll(ds, DefaultOptions())
		require.NoError(t, err)
		require.Len(t, calls, len(ds))

		for i, bc := range calls {
			single, _ := Call(ds[i], DefaultOptions())
			assert.Equal(t, single, bc)
		}
	})

	t.Run("should fail the batch on one invalid vector", func(t *testing.T) {
		_, err := CallAll([]DepthVector{{A: 30}, {G: -4}}, DefaultOptions())
		assert.True(t, errors.Is(err, models.ErrInvalidInput))
	})
}
