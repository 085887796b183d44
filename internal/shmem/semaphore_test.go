package shmem

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/sysperf/internal/bench"
)

func TestSemaphore(t *testing.T) {
	t.Run("counts down from its initial value", func(t *testing.T) {
		name := bench.UniqueName("sysperf_test_sem")
		defer UnlinkSemaphore(name)

		sem, err := OpenSemaphore(name, 2)
		require.NoError(t, err)
		defer sem.Close()

		require.NoError(t, sem.Wait())
		require.NoError(t, sem.Wait())
	})

	t.Run("post wakes a blocked waiter", func(t *testing.T) {
		name := bench.UniqueName("sysperf_test_sem")
		defer UnlinkSemaphore(name)

		sem, err := OpenSemaphore(name, 0)
		require.NoError(t, err)
		defer sem.Close()

		released := make(chan error, 1)
		go func() {
			released <- sem.Wait()
		}()

		time.Sleep(10 * time.Millisecond)
		require.NoError(t, sem.Post())

		select {
		case err := <-released:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("waiter was never released")
		}
	})

	t.Run("two handles share one count", func(t *testing.T) {
		name := bench.UniqueName("sysperf_test_sem")
		defer UnlinkSemaphore(name)

		a, err := OpenSemaphore(name, 0)
		require.NoError(t, err)
		defer a.Close()
		b, err := OpenSemaphore(name, 0)
		require.NoError(t, err)
		defer b.Close()

		require.NoError(t, a.Post())
		require.NoError(t, b.Wait())
	})

	t.Run("ping-pong between two goroutines", func(t *testing.T) {
		pingName := bench.UniqueName("sysperf_test_ping")
		pongName := bench.UniqueName("sysperf_test_pong")
		defer UnlinkSemaphore(pingName)
		defer UnlinkSemaphore(pongName)

		ping, err := OpenSemaphore(pingName, 0)
		require.NoError(t, err)
		defer ping.Close()
		pong, err := OpenSemaphore(pongName, 0)
		require.NoError(t, err)
		defer pong.Close()

		const rounds = 100
		done := make(chan error, 1)
		go func() {
			for i := 0; i < rounds; i++ {
				if err := ping.Wait(); err != nil {
					done <- err
					return
				}
				if err := pong.Post(); err != nil {
					done <- err
					return
				}
			}
			done <- nil
		}()

		for i := 0; i < rounds; i++ {
			require.NoError(t, ping.Post())
			require.NoError(t, pong.Wait())
		}
		require.NoError(t, <-done)
	})

	t.Run("unlink removes the backing object", func(t *testing.T) {
		name := bench.UniqueName("sysperf_test_sem")
		sem, err := OpenSemaphore(name, 0)
		require.NoError(t, err)
		sem.Close()

		assert.True(t, SemaphoreExists(name))
		require.NoError(t, UnlinkSemaphore(name))
		assert.False(t, SemaphoreExists(name))
	})
}
