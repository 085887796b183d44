package worker

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	t.Run("registered roles run", func(t *testing.T) {
		var got Params
		Register("test_role", func(p Params) error {
			got = p
			return nil
		})

		err := Run("test_role", Params{Iterations: 7, Resource: "/res"})
		require.NoError(t, err)
		assert.Equal(t, 7, got.Iterations)
		assert.Equal(t, "/res", got.Resource)
	})

	t.Run("unknown roles error", func(t *testing.T) {
		assert.Error(t, Run("no_such_role", Params{}))
	})

	t.Run("role errors propagate", func(t *testing.T) {
		Register("test_failing_role", func(p Params) error {
			return errors.New("boom")
		})
		assert.Error(t, Run("test_failing_role", Params{}))
	})

	t.Run("duplicate registration panics", func(t *testing.T) {
		Register("test_dup_role", func(p Params) error { return nil })
		assert.Panics(t, func() {
			Register("test_dup_role", func(p Params) error { return nil })
		})
	})
}

func TestArgs(t *testing.T) {
	args := Args("bandwidth_pipe_send", Params{
		Iterations:   3,
		Warmups:      1,
		LoopSize:     100,
		PayloadBytes: 1024,
		ChunkBytes:   256,
		Resource:     "/sysperf_pipe_0a1b2c3d",
		Aux:          "aux",
	}, "debug")

	assert.Equal(t, "worker", args[0])
	assert.Equal(t, "bandwidth_pipe_send", args[1])
	assert.Contains(t, args, "--iterations")
	assert.Contains(t, args, "3")
	assert.Contains(t, args, "--payload-bytes")
	assert.Contains(t, args, "1024")
	assert.Contains(t, args, "/sysperf_pipe_0a1b2c3d")
	assert.Contains(t, args, "debug")
}
