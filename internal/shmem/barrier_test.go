package shmem

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/sysperf/internal/bench"
)

func TestBarrier(t *testing.T) {
	t.Run("rejects fewer than two participants", func(t *testing.T) {
		_, err := NewBarrier(bench.UniqueName("/sysperf_test_barrier"), 1, nil)
		assert.Error(t, err)
	})

	t.Run("is reusable across rounds", func(t *testing.T) {
		const participants = 2
		const rounds = 20

		id := bench.UniqueName("/sysperf_test_barrier")
		ClearBarrier(id)
		defer ClearBarrier(id)

		var arrived atomic.Uint64
		var wg sync.WaitGroup
		errs := make(chan error, participants)

		for p := 0; p < participants; p++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				b, err := NewBarrier(id, participants, nil)
				if err != nil {
					errs <- err
					return
				}
				for round := 1; round <= rounds; round++ {
					arrived.Add(1)
					if err := b.Wait(); err != nil {
						errs <- err
						return
					}
					// Everyone entered this round's Wait before anyone left it.
					if got := arrived.Load(); got < uint64(round*participants) {
						errs <- assert.AnError
						return
					}
				}
				errs <- b.Close()
			}()
		}

		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}
	})

	t.Run("last holder unlinks the backing resources", func(t *testing.T) {
		const participants = 3

		id := bench.UniqueName("/sysperf_test_barrier")
		ClearBarrier(id)

		var wg sync.WaitGroup
		barriers := make([]*Barrier, participants)
		errs := make([]error, participants)
		for p := 0; p < participants; p++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				barriers[i], errs[i] = NewBarrier(id, participants, nil)
			}(p)
		}
		wg.Wait()
		for _, err := range errs {
			require.NoError(t, err)
		}

		assert.True(t, BarrierResourcesExist(id))
		for _, b := range barriers {
			require.NoError(t, b.Close())
		}
		assert.False(t, BarrierResourcesExist(id))
	})

	t.Run("clear removes stale state", func(t *testing.T) {
		id := bench.UniqueName("/sysperf_test_barrier")

		region, err := CreateExclusive(barrierShmName(id), barrierStateSize)
		require.NoError(t, err)
		require.NoError(t, region.Close())
		require.True(t, BarrierResourcesExist(id))

		ClearBarrier(id)
		assert.False(t, BarrierResourcesExist(id))
	})
}

func TestRegion(t *testing.T) {
	t.Run("two mappings see one another's writes", func(t *testing.T) {
		name := bench.UniqueName("/sysperf_test_region")
		defer Unlink(name)

		a, err := CreateExclusive(name, 4096)
		require.NoError(t, err)
		defer a.Close()

		b, err := Open(name, 0)
		require.NoError(t, err)
		defer b.Close()

		copy(a.Data, []byte("ping"))
		assert.Equal(t, []byte("ping"), b.Data[:4])
	})

	t.Run("create is exclusive", func(t *testing.T) {
		name := bench.UniqueName("/sysperf_test_region")
		defer Unlink(name)

		first, err := CreateExclusive(name, 64)
		require.NoError(t, err)
		defer first.Close()

		_, err = CreateExclusive(name, 64)
		assert.Error(t, err)
	})
}
