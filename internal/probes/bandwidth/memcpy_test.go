package bandwidth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/sysperf/internal/config"
	"github.com/GriffinCanCode/sysperf/internal/logging"
)

func quickConfig(payload uint64) *config.Config {
	cfg := config.Default()
	cfg.Iterations = 3
	cfg.Warmups = 0
	cfg.PayloadBytes = payload
	return cfg
}

func TestMemcpy(t *testing.T) {
	result, err := Memcpy(quickConfig(1024), logging.NewDefault())
	require.NoError(t, err)
	assert.Positive(t, result.Average)
	assert.GreaterOrEqual(t, result.Stddev, 0.0)
}

func TestMemcpyMT(t *testing.T) {
	t.Run("thread counts divide or straddle the payload", func(t *testing.T) {
		for _, threads := range []uint64{1, 2, 3, 4} {
			result, err := MemcpyMT(quickConfig(1000), logging.NewDefault(), threads)
			require.NoError(t, err, "threads %d", threads)
			assert.Positive(t, result.Average, "threads %d", threads)
		}
	})

	t.Run("last worker copies the remainder of an uneven split", func(t *testing.T) {
		result, err := MemcpyMT(quickConfig(130), logging.NewDefault(), 4)
		require.NoError(t, err)
		assert.Positive(t, result.Average)
	})
}

func TestStreamHelpers(t *testing.T) {
	t.Run("pipeline tick count", func(t *testing.T) {
		assert.Equal(t, uint64(2), pipelineTicks(100, 100))
		assert.Equal(t, uint64(3), pipelineTicks(101, 100))
		assert.Equal(t, uint64(11), pipelineTicks(1000, 100))
	})

	t.Run("region size covers header and both slots", func(t *testing.T) {
		assert.Equal(t, slotHeaderSize+2*1024, regionSize(1024))
	})
}
