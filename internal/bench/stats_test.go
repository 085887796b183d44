package bench

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrimmedStats(t *testing.T) {
	t.Run("drops min and max", func(t *testing.T) {
		// Sorted: [1 2 3 4 100] -> trimmed [2 3 4]
		result, err := TrimmedStats([]float64{3, 100, 1, 4, 2})
		require.NoError(t, err)
		assert.InDelta(t, 3.0, result.Average, 1e-12)
		assert.InDelta(t, math.Sqrt(2.0/3.0), result.Stddev, 1e-12)
	})

	t.Run("identical middle values give zero stddev", func(t *testing.T) {
		result, err := TrimmedStats([]float64{9, 5, 5, 5, 1})
		require.NoError(t, err)
		assert.Equal(t, 5.0, result.Average)
		assert.Equal(t, 0.0, result.Stddev)
	})

	t.Run("three samples reduce to the median", func(t *testing.T) {
		result, err := TrimmedStats([]float64{0.5, 2.5, 1.5})
		require.NoError(t, err)
		assert.Equal(t, 1.5, result.Average)
		assert.Equal(t, 0.0, result.Stddev)
	})

	t.Run("does not mutate its input", func(t *testing.T) {
		samples := []float64{3, 1, 2}
		_, err := TrimmedStats(samples)
		require.NoError(t, err)
		assert.Equal(t, []float64{3, 1, 2}, samples)
	})

	t.Run("rejects fewer than three samples", func(t *testing.T) {
		_, err := TrimmedStats([]float64{1, 2})
		assert.Error(t, err)
	})
}

func TestBandwidthStats(t *testing.T) {
	t.Run("constant durations", func(t *testing.T) {
		result, err := BandwidthStats([]float64{2, 2, 2, 2}, 1024)
		require.NoError(t, err)
		assert.InDelta(t, 512.0, result.Average, 1e-9)
		assert.Equal(t, 0.0, result.Stddev)
	})

	t.Run("propagates stddev to first order", func(t *testing.T) {
		// Trimmed durations: [1 2 3], mean 2, pop stddev sqrt(2/3).
		durations := []float64{0.5, 1, 2, 3, 10}
		result, err := BandwidthStats(durations, 1<<20)
		require.NoError(t, err)

		size := float64(uint64(1 << 20))
		sigma := math.Sqrt(2.0 / 3.0)
		assert.InDelta(t, size/2.0, result.Average, 1e-6)
		assert.InDelta(t, size*sigma/4.0, result.Stddev, 1e-6)
	})

	t.Run("rejects short vectors", func(t *testing.T) {
		_, err := BandwidthStats([]float64{1}, 1024)
		assert.Error(t, err)
	})
}
