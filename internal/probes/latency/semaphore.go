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

// SemaphorePeerRole is the worker role name for the semaphore probe's
// second process.
const SemaphorePeerRole = "latency_semaphore_peer"

func init() {
	worker.Register(SemaphorePeerRole, runSemaphorePeer)
}

// runSemaphorePeer answers the parent's posts: one wait on its own
// semaphore, one post to the parent's, per half round trip.
func runSemaphorePeer(p worker.Params) error {
	parentSem, err := shmem.OpenSemaphore(p.Resource, 0)
	if err != nil {
		return err
	}
	defer parentSem.Close()

	childSem, err := shmem.OpenSemaphore(p.Aux, 0)
	if err != nil {
		return err
	}
	defer childSem.Close()

	rounds := p.Iterations + p.Warmups
	for i := 0; i < rounds; i++ {
		for j := uint64(0); j < p.LoopSize; j++ {
			if err := childSem.Wait(); err != nil {
				return err
			}
			if err := parentSem.Post(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Semaphore measures a named-semaphore ping-pong between two processes: one
// post plus one wait per half round trip (k=2). Both semaphores exist
// before the peer starts, so the first timed post has a live responder.
func Semaphore(cfg *config.Config, log *logging.Logger, loopSize uint64) (bench.Result, error) {
	parentName := bench.UniqueName("sysperf_sem_parent")
	childName := bench.UniqueName("sysperf_sem_child")
	shmem.UnlinkSemaphore(parentName)
	shmem.UnlinkSemaphore(childName)

	parentSem, err := shmem.OpenSemaphore(parentName, 0)
	if err != nil {
		return bench.Result{}, err
	}
	childSem, err := shmem.OpenSemaphore(childName, 0)
	if err != nil {
		parentSem.Close()
		return bench.Result{}, err
	}

	cleanup := func() {
		parentSem.Close()
		childSem.Close()
		shmem.UnlinkSemaphore(parentName)
		shmem.UnlinkSemaphore(childName)
	}

	cmd, err := worker.Spawn(SemaphorePeerRole, worker.Params{
		Iterations: cfg.Iterations,
		Warmups:    cfg.Warmups,
		LoopSize:   loopSize,
		Resource:   parentName,
		Aux:        childName,
	}, cfg.LogLevel)
	if err != nil {
		cleanup()
		return bench.Result{}, err
	}

	result, err := bench.Latency(cfg.Iterations, cfg.Warmups, loopSize, 2, func() (time.Duration, error) {
		start := time.Now()
		for j := uint64(0); j < loopSize; j++ {
			if err := childSem.Post(); err != nil {
				return 0, err
			}
			if err := parentSem.Wait(); err != nil {
				return 0, err
			}
		}
		return time.Since(start), nil
	})

	waitErr := cmd.Wait()
	cleanup()
	if err != nil {
		return bench.Result{}, err
	}
	if waitErr != nil {
		return bench.Result{}, fmt.Errorf("semaphore peer: %w", waitErr)
	}
	return result, nil
}
