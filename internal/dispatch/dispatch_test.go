package dispatch

import (
	"bytes"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/sysperf/internal/config"
	"github.com/GriffinCanCode/sysperf/internal/logging"
)

func quickConfig() *config.Config {
	cfg := config.Default()
	cfg.Iterations = 3
	cfg.Warmups = 0
	cfg.LoopSize = 10
	return cfg
}

func TestValidate(t *testing.T) {
	log := logging.NewDefault()

	t.Run("rejects unknown types", func(t *testing.T) {
		r := New(quickConfig(), log, &bytes.Buffer{})
		assert.Error(t, r.Validate("latency_warp"))
	})

	t.Run("accepts registered types and every aggregate", func(t *testing.T) {
		for _, typ := range []string{
			"latency_getpid", "bandwidth_pipe", "latency_all", "bandwidth_all", "all",
		} {
			r := New(quickConfig(), log, &bytes.Buffer{})
			assert.NoError(t, r.Validate(typ), typ)
		}
	})

	t.Run("rejects chunk bytes for memcpy", func(t *testing.T) {
		cfg := quickConfig()
		cfg.ChunkBytes = 64
		cfg.PayloadBytes = 1024
		r := New(cfg, log, &bytes.Buffer{})
		assert.Error(t, r.Validate("bandwidth_memcpy"))
	})

	t.Run("rejects threads outside the MT memcpy probe", func(t *testing.T) {
		cfg := quickConfig()
		cfg.Threads = 2
		r := New(cfg, log, &bytes.Buffer{})
		assert.Error(t, r.Validate("bandwidth_all"))
		assert.Error(t, r.Validate("latency_getpid"))
	})

	t.Run("rejects too few iterations", func(t *testing.T) {
		cfg := quickConfig()
		cfg.Iterations = 2
		r := New(cfg, log, &bytes.Buffer{})
		assert.Error(t, r.Validate("latency_getpid"))
	})
}

func TestRunHuman(t *testing.T) {
	var out bytes.Buffer
	r := New(quickConfig(), logging.NewDefault(), &out)

	require.NoError(t, r.Run("latency_getpid"))

	line := strings.TrimSpace(out.String())
	assert.Regexp(t, `^latency_getpid: \d+\.\d{3} ± \d+\.\d{3} ns$`, line)
}

func TestRunJSON(t *testing.T) {
	cfg := quickConfig()
	cfg.OutputFormat = config.FormatJSON
	var out bytes.Buffer
	r := New(cfg, logging.NewDefault(), &out)

	require.NoError(t, r.Run("latency_getpid"))

	var report struct {
		RunID   string `json:"run_id"`
		Results map[string]struct {
			Average float64 `json:"average"`
			Stddev  float64 `json:"stddev"`
			Unit    string  `json:"unit"`
		} `json:"results"`
	}
	require.NoError(t, sonic.Unmarshal(out.Bytes(), &report))

	assert.NotEmpty(t, report.RunID)
	result, ok := report.Results["latency_getpid"]
	require.True(t, ok)
	assert.Positive(t, result.Average)
	assert.GreaterOrEqual(t, result.Stddev, 0.0)
	assert.Equal(t, "sec", result.Unit)
}

func TestRunMemcpy(t *testing.T) {
	cfg := quickConfig()
	cfg.PayloadBytes = 1024
	var out bytes.Buffer
	r := New(cfg, logging.NewDefault(), &out)

	require.NoError(t, r.Run("bandwidth_memcpy"))
	assert.Contains(t, out.String(), "bandwidth_memcpy:")
	assert.Contains(t, out.String(), "GiByte/sec")
}

func TestRunMemcpyMTSweep(t *testing.T) {
	cfg := quickConfig()
	cfg.PayloadBytes = 1024
	var out bytes.Buffer
	r := New(cfg, logging.NewDefault(), &out)

	require.NoError(t, r.Run("bandwidth_memcpy_mt"))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)
	for n, line := range lines {
		assert.Contains(t, line, "bandwidth_memcpy_mt")
		assert.Contains(t, line, "threads)")
		_ = n
	}
}

func TestRunUnknownType(t *testing.T) {
	r := New(quickConfig(), logging.NewDefault(), &bytes.Buffer{})
	assert.Error(t, r.Run("bandwidth_telepathy"))
}
