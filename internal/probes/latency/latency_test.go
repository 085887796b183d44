package latency

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/sysperf/internal/bench"
	"github.com/GriffinCanCode/sysperf/internal/config"
	"github.com/GriffinCanCode/sysperf/internal/logging"
)

func quickConfig() *config.Config {
	cfg := config.Default()
	cfg.Iterations = 3
	cfg.Warmups = 0
	return cfg
}

func assertSane(t *testing.T, result bench.Result, err error) {
	t.Helper()
	require.NoError(t, err)
	assert.Positive(t, result.Average)
	assert.GreaterOrEqual(t, result.Stddev, 0.0)
}

func TestAtomic(t *testing.T) {
	result, err := Atomic(quickConfig(), logging.NewDefault(), 10)
	assertSane(t, result, err)
}

func TestAtomicRelAcq(t *testing.T) {
	result, err := AtomicRelAcq(quickConfig(), logging.NewDefault(), 10)
	assertSane(t, result, err)
}

func TestConditionVariable(t *testing.T) {
	result, err := ConditionVariable(quickConfig(), logging.NewDefault(), 10)
	assertSane(t, result, err)
}

func TestStatfs(t *testing.T) {
	result, err := Statfs(quickConfig(), logging.NewDefault(), 10)
	assertSane(t, result, err)
}

func TestFstatfs(t *testing.T) {
	result, err := Fstatfs(quickConfig(), logging.NewDefault(), 10)
	assertSane(t, result, err)
}

func TestGetpid(t *testing.T) {
	result, err := Getpid(quickConfig(), logging.NewDefault(), 1000)
	assertSane(t, result, err)
}
