package latency

import (
	"fmt"
	"time"

	"github.com/GriffinCanCode/sysperf/internal/bench"
	"github.com/GriffinCanCode/sysperf/internal/config"
	"github.com/GriffinCanCode/sysperf/internal/logging"
	"github.com/GriffinCanCode/sysperf/internal/shmem"
	"github.com/GriffinCanCode/sysperf/internal/worker"
)

// BarrierPeerRole is the worker role name for the barrier probe's second
// process.
const BarrierPeerRole = "latency_barrier_peer"

const barrierParticipants = 2

func init() {
	worker.Register(BarrierPeerRole, runBarrierPeer)
}

func runBarrierPeer(p worker.Params) error {
	b, err := shmem.NewBarrier(p.Resource, barrierParticipants, p.Log)
	if err != nil {
		return err
	}
	for i := uint64(0); i < p.LoopSize; i++ {
		if err := b.Wait(); err != nil {
			return err
		}
	}
	return b.Close()
}

// Barrier measures one cross-process barrier round: two processes
// constructing Barrier(id, 2) and calling Wait loopSize times per outer
// iteration. Barrier state is rebuilt from scratch every iteration.
func Barrier(cfg *config.Config, log *logging.Logger, loopSize uint64) (bench.Result, error) {
	id := bench.UniqueName("/sysperf_barrier_latency")

	return bench.Latency(cfg.Iterations, cfg.Warmups, loopSize, 1, func() (time.Duration, error) {
		shmem.ClearBarrier(id)

		cmd, err := worker.Spawn(BarrierPeerRole, worker.Params{
			LoopSize: loopSize,
			Resource: id,
		}, cfg.LogLevel)
		if err != nil {
			return 0, err
		}

		b, err := shmem.NewBarrier(id, barrierParticipants, log)
		if err != nil {
			return 0, err
		}

		start := time.Now()
		for i := uint64(0); i < loopSize; i++ {
			if err := b.Wait(); err != nil {
				return 0, err
			}
		}
		elapsed := time.Since(start)

		if err := cmd.Wait(); err != nil {
			return 0, fmt.Errorf("barrier peer: %w", err)
		}
		if err := b.Close(); err != nil {
			return 0, err
		}
		shmem.ClearBarrier(id)
		return elapsed, nil
	})
}
