package latency

import (
	"sync"
	"time"

	"github.com/GriffinCanCode/sysperf/internal/bench"
	"github.com/GriffinCanCode/sysperf/internal/config"
	"github.com/GriffinCanCode/sysperf/internal/logging"
)

// condOpsPerPass: one notify plus one wakeup per half round trip.
const condOpsPerPass = 2

// pingPongState pairs two flags, each guarded by its own mutex and
// condition variable.
type pingPongState struct {
	parentMu    sync.Mutex
	parentCond  *sync.Cond
	parentReady bool
	childMu     sync.Mutex
	childCond   *sync.Cond
	childReady  bool
}

func newPingPongState() *pingPongState {
	s := &pingPongState{}
	s.parentCond = sync.NewCond(&s.parentMu)
	s.childCond = sync.NewCond(&s.childMu)
	return s
}

func (s *pingPongState) parentLoop(loopSize uint64) {
	for i := uint64(0); i < loopSize; i++ {
		s.parentMu.Lock()
		s.parentReady = true
		s.parentMu.Unlock()
		s.parentCond.Signal()

		s.childMu.Lock()
		for !s.childReady {
			s.childCond.Wait()
		}
		s.childReady = false
		s.childMu.Unlock()
	}
}

func (s *pingPongState) childLoop(loopSize uint64) {
	for i := uint64(0); i < loopSize; i++ {
		s.parentMu.Lock()
		for !s.parentReady {
			s.parentCond.Wait()
		}
		s.parentReady = false
		s.parentMu.Unlock()

		s.childMu.Lock()
		s.childReady = true
		s.childMu.Unlock()
		s.childCond.Signal()
	}
}

// ConditionVariable measures a two-thread condition-variable ping-pong.
func ConditionVariable(cfg *config.Config, log *logging.Logger, loopSize uint64) (bench.Result, error) {
	state := newPingPongState()

	return bench.Latency(cfg.Iterations, cfg.Warmups, loopSize, condOpsPerPass, func() (time.Duration, error) {
		done := make(chan struct{})
		go func() {
			state.childLoop(loopSize)
			close(done)
		}()

		start := time.Now()
		state.parentLoop(loopSize)
		elapsed := time.Since(start)

		<-done
		state.parentReady = false
		state.childReady = false
		return elapsed, nil
	})
}
