package bandwidth

import (
	"fmt"
	"time"

	"github.com/GriffinCanCode/sysperf/internal/bench"
	"github.com/GriffinCanCode/sysperf/internal/config"
	"github.com/GriffinCanCode/sysperf/internal/logging"
	"github.com/GriffinCanCode/sysperf/internal/shmem"
	"github.com/GriffinCanCode/sysperf/internal/worker"
)

// ShmSendRole is the worker role for the shm probe's sender. The shared
// memory object name travels in Resource, the barrier id in Aux.
const ShmSendRole = "bandwidth_shm_send"

func init() {
	worker.Register(ShmSendRole, runShmSender)
}

func runShmSender(p worker.Params) error {
	b, err := shmem.NewBarrier(p.Aux, 2, p.Log)
	if err != nil {
		return err
	}
	if err := b.Wait(); err != nil {
		return err
	}

	payload, err := bench.GeneratePayload(p.PayloadBytes)
	if err != nil {
		return err
	}

	set := bench.NewSampleSet(p.Iterations, p.Warmups)
	for i := 0; i < p.Iterations+p.Warmups; i++ {
		region, err := shmem.OpenOrCreate(p.Resource, regionSize(p.ChunkBytes))
		if err != nil {
			return fmt.Errorf("send: %w", err)
		}
		buffer := slotBuffer{region: region, chunk: p.ChunkBytes}

		if err := b.Wait(); err != nil {
			return err
		}
		buffer.zero()

		if err := b.Wait(); err != nil {
			return err
		}
		start := time.Now()
		if err := buffer.pumpOut(b, payload); err != nil {
			return err
		}
		elapsed := time.Since(start)
		if err := b.Wait(); err != nil {
			return err
		}
		set.Record(i, elapsed)

		if err := region.Close(); err != nil {
			return err
		}
	}

	logBandwidth(p.Log, "send", set, p.PayloadBytes)
	return b.Close()
}

// Shm measures transfer through a POSIX shared memory object, using the
// same double-buffered, barrier-ticked hand-off as the mmap probe. The
// object is unlinked on return.
func Shm(cfg *config.Config, log *logging.Logger) (bench.Result, error) {
	name := bench.UniqueName("/sysperf_shm")
	shmem.Unlink(name)
	defer shmem.Unlink(name)

	id := bench.UniqueName("/sysperf_shm_barrier")
	chunk := cfg.EffectiveChunkBytes()
	shmem.ClearBarrier(id)

	cmd, err := worker.Spawn(ShmSendRole, worker.Params{
		Iterations:   cfg.Iterations,
		Warmups:      cfg.Warmups,
		PayloadBytes: cfg.PayloadBytes,
		ChunkBytes:   chunk,
		Resource:     name,
		Aux:          id,
	}, cfg.LogLevel)
	if err != nil {
		return bench.Result{}, err
	}

	b, err := shmem.NewBarrier(id, 2, log)
	if err != nil {
		abortWorker(cmd)
		return bench.Result{}, err
	}
	if err := b.Wait(); err != nil {
		abortWorker(cmd)
		return bench.Result{}, err
	}

	set := bench.NewSampleSet(cfg.Iterations, cfg.Warmups)
	for i := 0; i < cfg.Iterations+cfg.Warmups; i++ {
		if err := b.Wait(); err != nil {
			abortWorker(cmd)
			return bench.Result{}, err
		}
		region, err := shmem.OpenOrCreate(name, regionSize(chunk))
		if err != nil {
			abortWorker(cmd)
			return bench.Result{}, fmt.Errorf("receive: %w", err)
		}
		buffer := slotBuffer{region: region, chunk: chunk}
		dst := make([]byte, cfg.PayloadBytes)

		if err := b.Wait(); err != nil {
			abortWorker(cmd)
			return bench.Result{}, err
		}
		start := time.Now()
		if err := buffer.pumpIn(b, dst); err != nil {
			abortWorker(cmd)
			return bench.Result{}, err
		}
		elapsed := time.Since(start)
		if err := b.Wait(); err != nil {
			abortWorker(cmd)
			return bench.Result{}, err
		}
		set.Record(i, elapsed)

		if err := verifyRound(dst, cfg.PayloadBytes, i); err != nil {
			abortWorker(cmd)
			return bench.Result{}, err
		}
		if err := region.Close(); err != nil {
			return bench.Result{}, err
		}
	}

	if err := cmd.Wait(); err != nil {
		return bench.Result{}, fmt.Errorf("shm sender: %w", err)
	}
	if err := b.Close(); err != nil {
		return bench.Result{}, err
	}
	shmem.ClearBarrier(id)

	logBandwidth(log, "receive", set, cfg.PayloadBytes)
	return bench.BandwidthStats(set.Durations(), cfg.PayloadBytes)
}
