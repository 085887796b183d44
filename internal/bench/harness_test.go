package bench

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatency(t *testing.T) {
	t.Run("divides by loop size and ops per pass", func(t *testing.T) {
		result, err := Latency(3, 0, 100, 4, func() (time.Duration, error) {
			return 400 * time.Microsecond, nil
		})
		require.NoError(t, err)
		// 400us / (100 * 4) = 1us per operation.
		assert.InDelta(t, 1e-6, result.Average, 1e-12)
		assert.Equal(t, 0.0, result.Stddev)
	})

	t.Run("discards warmup rounds", func(t *testing.T) {
		calls := 0
		result, err := Latency(3, 2, 10, 1, func() (time.Duration, error) {
			calls++
			if calls <= 2 {
				return time.Hour, nil
			}
			return 10 * time.Millisecond, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 5, calls)
		assert.InDelta(t, 1e-3, result.Average, 1e-9)
	})

	t.Run("propagates round errors", func(t *testing.T) {
		_, err := Latency(3, 0, 10, 1, func() (time.Duration, error) {
			return 0, errors.New("boom")
		})
		assert.Error(t, err)
	})

	t.Run("rejects a zero loop size", func(t *testing.T) {
		_, err := Latency(3, 0, 0, 1, func() (time.Duration, error) { return 0, nil })
		assert.Error(t, err)
	})
}

func TestSampleSet(t *testing.T) {
	set := NewSampleSet(3, 2)

	assert.True(t, set.IsWarmup(0))
	assert.True(t, set.IsWarmup(1))
	assert.False(t, set.IsWarmup(2))

	for i := 0; i < 5; i++ {
		set.Record(i, time.Second)
	}
	assert.Len(t, set.Durations(), 3)
	assert.Equal(t, 1.0, set.Durations()[0])
}
