package latency

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"github.com/GriffinCanCode/sysperf/internal/bench"
	"github.com/GriffinCanCode/sysperf/internal/config"
	"github.com/GriffinCanCode/sysperf/internal/logging"
)

// Statfs measures the statfs syscall against the working directory.
func Statfs(cfg *config.Config, log *logging.Logger, loopSize uint64) (bench.Result, error) {
	var buf unix.Statfs_t

	return bench.Latency(cfg.Iterations, cfg.Warmups, loopSize, 1, func() (time.Duration, error) {
		start := time.Now()
		for j := uint64(0); j < loopSize; j++ {
			if err := unix.Statfs(".", &buf); err != nil {
				return 0, fmt.Errorf("statfs: %w", err)
			}
		}
		return time.Since(start), nil
	})
}

// Fstatfs measures the fstatfs syscall against an open directory descriptor.
func Fstatfs(cfg *config.Config, log *logging.Logger, loopSize uint64) (bench.Result, error) {
	fd, err := unix.Open(".", unix.O_RDONLY, 0)
	if err != nil {
		return bench.Result{}, fmt.Errorf("failed to open working directory: %w", err)
	}
	defer unix.Close(fd)

	var buf unix.Statfs_t
	return bench.Latency(cfg.Iterations, cfg.Warmups, loopSize, 1, func() (time.Duration, error) {
		start := time.Now()
		for j := uint64(0); j < loopSize; j++ {
			if err := unix.Fstatfs(fd, &buf); err != nil {
				return 0, fmt.Errorf("fstatfs: %w", err)
			}
		}
		return time.Since(start), nil
	})
}

// Getpid measures the getpid syscall.
func Getpid(cfg *config.Config, log *logging.Logger, loopSize uint64) (bench.Result, error) {
	sink := 0

	result, err := bench.Latency(cfg.Iterations, cfg.Warmups, loopSize, 1, func() (time.Duration, error) {
		start := time.Now()
		for j := uint64(0); j < loopSize; j++ {
			sink = unix.Getpid()
		}
		return time.Since(start), nil
	})
	_ = sink
	return result, err
}
