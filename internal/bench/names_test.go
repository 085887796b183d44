package bench

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUniqueName(t *testing.T) {
	t.Run("appends an eight-digit hex suffix", func(t *testing.T) {
		name := UniqueName("/sysperf_pipe")
		assert.Regexp(t, regexp.MustCompile(`^/sysperf_pipe_[0-9a-f]{8}$`), name)
	})

	t.Run("keeps a file extension last", func(t *testing.T) {
		name := UniqueName("sysperf_mmap.dat")
		assert.Regexp(t, regexp.MustCompile(`^sysperf_mmap_[0-9a-f]{8}\.dat$`), name)
	})

	t.Run("names do not collide", func(t *testing.T) {
		seen := make(map[string]bool)
		for i := 0; i < 64; i++ {
			name := UniqueName("base")
			assert.False(t, seen[name])
			seen[name] = true
		}
	})
}
