// Package latency implements the latency probes: each runs
// iterations+warmups outer rounds of a tight inner loop and reports the
// per-single-operation time through the trimmed statistic.
package latency

import (
	"sync/atomic"
	"time"

	"github.com/GriffinCanCode/sysperf/internal/bench"
	"github.com/GriffinCanCode/sysperf/internal/config"
	"github.com/GriffinCanCode/sysperf/internal/logging"
)

// atomicOpsPerPass: each inner-loop pass performs four flag stores across
// the two threads (parent up, child up, parent down, child down).
const atomicOpsPerPass = 4

func parentFlip(parent, child *atomic.Bool, loopSize uint64) {
	for i := uint64(0); i < loopSize; i++ {
		parent.Store(true)
		for !child.Load() {
		}
		parent.Store(false)
		for child.Load() {
		}
	}
}

func childFlip(child, parent *atomic.Bool, loopSize uint64) {
	for i := uint64(0); i < loopSize; i++ {
		for !parent.Load() {
		}
		child.Store(true)
		for parent.Load() {
		}
		child.Store(false)
	}
}

// Atomic measures a sequentially consistent two-thread flag flip round trip.
func Atomic(cfg *config.Config, log *logging.Logger, loopSize uint64) (bench.Result, error) {
	var parent, child atomic.Bool

	return bench.Latency(cfg.Iterations, cfg.Warmups, loopSize, atomicOpsPerPass, func() (time.Duration, error) {
		done := make(chan struct{})
		go func() {
			childFlip(&child, &parent, loopSize)
			close(done)
		}()

		start := time.Now()
		parentFlip(&parent, &child, loopSize)
		elapsed := time.Since(start)

		<-done
		parent.Store(false)
		child.Store(false)
		return elapsed, nil
	})
}

func parentFlipU32(parent, child *atomic.Uint32, loopSize uint64) {
	for i := uint64(0); i < loopSize; i++ {
		parent.Store(1)
		for child.Load() == 0 {
		}
		parent.Store(0)
		for child.Load() != 0 {
		}
	}
}

func childFlipU32(child, parent *atomic.Uint32, loopSize uint64) {
	for i := uint64(0); i < loopSize; i++ {
		for parent.Load() == 0 {
		}
		child.Store(1)
		for parent.Load() != 0 {
		}
		child.Store(0)
	}
}

// AtomicRelAcq is the release/acquire ordering variant of the flag flip.
// Go's sync/atomic exposes sequentially consistent operations only, which
// subsume release stores paired with acquire loads; both probes therefore
// run seq-cst operations, and this one is kept separate (uint32 flags) so
// the variant stays individually reportable.
func AtomicRelAcq(cfg *config.Config, log *logging.Logger, loopSize uint64) (bench.Result, error) {
	var parent, child atomic.Uint32

	return bench.Latency(cfg.Iterations, cfg.Warmups, loopSize, atomicOpsPerPass, func() (time.Duration, error) {
		done := make(chan struct{})
		go func() {
			childFlipU32(&child, &parent, loopSize)
			close(done)
		}()

		start := time.Now()
		parentFlipU32(&parent, &child, loopSize)
		elapsed := time.Since(start)

		<-done
		parent.Store(0)
		child.Store(0)
		return elapsed, nil
	})
}
