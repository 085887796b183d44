package probes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/sysperf/internal/config"
)

func TestLookup(t *testing.T) {
	t.Run("resolves every registered name", func(t *testing.T) {
		for _, p := range All() {
			got, err := Lookup(p.Name)
			require.NoError(t, err)
			assert.Same(t, p, got)
		}
	})

	t.Run("rejects unknown names", func(t *testing.T) {
		_, err := Lookup("latency_quantum")
		assert.Error(t, err)
	})
}

func TestRegistryShape(t *testing.T) {
	t.Run("latency probes carry loop defaults", func(t *testing.T) {
		for _, p := range ByKind(KindLatency) {
			assert.Positive(t, p.DefaultLoopSize, p.Name)
			assert.False(t, p.Requirements.Bandwidth, p.Name)
		}
	})

	t.Run("bandwidth probes require a payload", func(t *testing.T) {
		for _, p := range ByKind(KindBandwidth) {
			assert.True(t, p.Requirements.Bandwidth, p.Name)
		}
	})

	t.Run("only the MT memcpy probe is threaded", func(t *testing.T) {
		for _, p := range All() {
			if p.Name == "bandwidth_memcpy_mt" {
				assert.True(t, p.Threaded())
				assert.True(t, p.Requirements.UsesThread)
			} else {
				assert.False(t, p.Threaded(), p.Name)
				assert.False(t, p.Requirements.UsesThread, p.Name)
			}
		}
	})

	t.Run("memcpy probes take no chunk size", func(t *testing.T) {
		for _, name := range []string{"bandwidth_memcpy", "bandwidth_memcpy_mt"} {
			p, err := Lookup(name)
			require.NoError(t, err)
			assert.False(t, p.Requirements.UsesChunk, name)
		}
	})
}

func TestLoopSize(t *testing.T) {
	p, err := Lookup("latency_getpid")
	require.NoError(t, err)

	cfg := config.Default()
	assert.Equal(t, p.DefaultLoopSize, p.LoopSize(cfg))

	cfg.LoopSize = 42
	assert.Equal(t, uint64(42), p.LoopSize(cfg))
}

func TestRunThreadsGuards(t *testing.T) {
	mt, err := Lookup("bandwidth_memcpy_mt")
	require.NoError(t, err)
	_, err = mt.RunThreads(config.Default(), nil, 0)
	assert.Error(t, err)

	plain, err := Lookup("bandwidth_memcpy")
	require.NoError(t, err)
	_, err = plain.RunThreads(config.Default(), nil, 2)
	assert.Error(t, err)

	_, err = mt.Run(config.Default(), nil)
	assert.Error(t, err)
}
