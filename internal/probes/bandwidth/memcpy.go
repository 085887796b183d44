package bandwidth

import (
	"sync"
	"time"

	"github.com/GriffinCanCode/sysperf/internal/bench"
	"github.com/GriffinCanCode/sysperf/internal/config"
	"github.com/GriffinCanCode/sysperf/internal/logging"
)

// Memcpy measures a single-threaded in-process copy of the payload. The
// destination is zeroed between rounds so the copy cannot be elided.
func Memcpy(cfg *config.Config, log *logging.Logger) (bench.Result, error) {
	src, err := bench.GeneratePayload(cfg.PayloadBytes)
	if err != nil {
		return bench.Result{}, err
	}
	dst := make([]byte, cfg.PayloadBytes)

	set := bench.NewSampleSet(cfg.Iterations, cfg.Warmups)
	for i := 0; i < cfg.Iterations+cfg.Warmups; i++ {
		clear(dst)

		start := time.Now()
		copy(dst, src)
		elapsed := time.Since(start)

		if !set.IsWarmup(i) {
			set.Record(i, elapsed)
			if err := verifyRound(dst, cfg.PayloadBytes, i); err != nil {
				return bench.Result{}, err
			}
		}
	}

	return bench.BandwidthStats(set.Durations(), cfg.PayloadBytes)
}

// MemcpyMT measures the same copy split across threads contiguous slices.
// The last slice absorbs any remainder. Worker startup and join are part of
// the timed region.
func MemcpyMT(cfg *config.Config, log *logging.Logger, threads uint64) (bench.Result, error) {
	src, err := bench.GeneratePayload(cfg.PayloadBytes)
	if err != nil {
		return bench.Result{}, err
	}
	dst := make([]byte, cfg.PayloadBytes)
	sliceSize := cfg.PayloadBytes / threads

	copySlice := func(worker uint64) {
		start := worker * sliceSize
		end := start + sliceSize
		if worker == threads-1 {
			end = cfg.PayloadBytes
		}
		copy(dst[start:end], src[start:end])
	}

	set := bench.NewSampleSet(cfg.Iterations, cfg.Warmups)
	for i := 0; i < cfg.Iterations+cfg.Warmups; i++ {
		clear(dst)

		start := time.Now()
		var wg sync.WaitGroup
		for j := uint64(0); j < threads; j++ {
			wg.Add(1)
			go func(worker uint64) {
				defer wg.Done()
				copySlice(worker)
			}(j)
		}
		wg.Wait()
		elapsed := time.Since(start)

		if !set.IsWarmup(i) {
			set.Record(i, elapsed)
			if err := verifyRound(dst, cfg.PayloadBytes, i); err != nil {
				return bench.Result{}, err
			}
		}
	}

	return bench.BandwidthStats(set.Durations(), cfg.PayloadBytes)
}
