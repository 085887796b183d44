package bandwidth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/sysperf/internal/bench"
	"github.com/GriffinCanCode/sysperf/internal/shmem"
)

// TestPipelineHandOff drives the double-buffered transport between two
// goroutines, each with its own mapping and barrier handle, the way the two
// probe processes use it.
func TestPipelineHandOff(t *testing.T) {
	const payloadSize = 1000
	const chunk = 256

	name := bench.UniqueName("/sysperf_test_pipeline")
	id := bench.UniqueName("/sysperf_test_pipeline_barrier")
	shmem.Unlink(name)
	shmem.ClearBarrier(id)
	defer shmem.Unlink(name)
	defer shmem.ClearBarrier(id)

	payload, err := bench.GeneratePayload(payloadSize)
	require.NoError(t, err)

	sendErr := make(chan error, 1)
	go func() {
		sendErr <- func() error {
			region, err := shmem.OpenOrCreate(name, regionSize(chunk))
			if err != nil {
				return err
			}
			defer region.Close()

			b, err := shmem.NewBarrier(id, 2, nil)
			if err != nil {
				return err
			}
			defer b.Close()

			buffer := slotBuffer{region: region, chunk: chunk}
			buffer.zero()
			if err := b.Wait(); err != nil {
				return err
			}
			return buffer.pumpOut(b, payload)
		}()
	}()

	region, err := shmem.OpenOrCreate(name, regionSize(chunk))
	require.NoError(t, err)
	defer region.Close()

	b, err := shmem.NewBarrier(id, 2, nil)
	require.NoError(t, err)
	defer b.Close()

	buffer := slotBuffer{region: region, chunk: chunk}
	require.NoError(t, b.Wait())

	dst := make([]byte, payloadSize)
	require.NoError(t, buffer.pumpIn(b, dst))
	require.NoError(t, <-sendErr)

	assert.Equal(t, payload, dst)
	assert.True(t, bench.VerifyPayload(dst, payloadSize))
}
