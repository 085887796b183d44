package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"info":    zapcore.InfoLevel,
		"warning": zapcore.WarnLevel,
		"warn":    zapcore.WarnLevel,
		"WARNING": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		" info ":  zapcore.InfoLevel,
	}
	for input, want := range cases {
		got, err := ParseLevel(input)
		require.NoError(t, err, "input %q", input)
		assert.Equal(t, want, got, "input %q", input)
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	t.Run("builds at every severity", func(t *testing.T) {
		for _, level := range []string{"debug", "info", "warning", "error"} {
			log, err := NewAtLevel(level)
			require.NoError(t, err)
			assert.NotNil(t, log.Logger)
		}
	})

	t.Run("rejects unknown severities", func(t *testing.T) {
		_, err := NewAtLevel("loud")
		assert.Error(t, err)
	})

	t.Run("default never panics", func(t *testing.T) {
		assert.NotNil(t, NewDefault().Logger)
	})
}
