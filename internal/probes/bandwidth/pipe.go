package bandwidth

import (
	"fmt"
	"os"
	"time"

	"github.com/GriffinCanCode/sysperf/internal/bench"
	"github.com/GriffinCanCode/sysperf/internal/config"
	"github.com/GriffinCanCode/sysperf/internal/logging"
	"github.com/GriffinCanCode/sysperf/internal/shmem"
	"github.com/GriffinCanCode/sysperf/internal/worker"
)

// PipeSendRole is the worker role for the pipe probe's sender. The pipe's
// write end is inherited as descriptor 3.
const PipeSendRole = "bandwidth_pipe_send"

func init() {
	worker.Register(PipeSendRole, runPipeSender)
}

func runPipeSender(p worker.Params) error {
	pipe := os.NewFile(3, "pipe-write")
	if pipe == nil {
		return fmt.Errorf("pipe write end was not inherited")
	}
	defer pipe.Close()

	b, err := shmem.NewBarrier(p.Resource, 2, p.Log)
	if err != nil {
		return err
	}

	payload, err := bench.GeneratePayload(p.PayloadBytes)
	if err != nil {
		return err
	}

	set := bench.NewSampleSet(p.Iterations, p.Warmups)
	for i := 0; i < p.Iterations+p.Warmups; i++ {
		if err := b.Wait(); err != nil {
			return err
		}

		start := time.Now()
		if err := sendChunks(pipe, payload, p.ChunkBytes); err != nil {
			return err
		}
		elapsed := time.Since(start)

		if err := b.Wait(); err != nil {
			return err
		}
		set.Record(i, elapsed)
	}

	logBandwidth(p.Log, "send", set, p.PayloadBytes)
	return b.Close()
}

// Pipe measures transfer through an anonymous pipe. The parent receives; the
// reported bandwidth is the receiver's.
func Pipe(cfg *config.Config, log *logging.Logger) (bench.Result, error) {
	reader, writer, err := os.Pipe()
	if err != nil {
		return bench.Result{}, fmt.Errorf("pipe: %w", err)
	}
	defer reader.Close()

	id := bench.UniqueName("/sysperf_pipe")
	chunk := cfg.EffectiveChunkBytes()
	shmem.ClearBarrier(id)

	cmd, err := worker.Spawn(PipeSendRole, worker.Params{
		Iterations:   cfg.Iterations,
		Warmups:      cfg.Warmups,
		PayloadBytes: cfg.PayloadBytes,
		ChunkBytes:   chunk,
		Resource:     id,
	}, cfg.LogLevel, writer)
	writer.Close()
	if err != nil {
		return bench.Result{}, err
	}

	b, err := shmem.NewBarrier(id, 2, log)
	if err != nil {
		abortWorker(cmd)
		return bench.Result{}, err
	}

	set := bench.NewSampleSet(cfg.Iterations, cfg.Warmups)
	for i := 0; i < cfg.Iterations+cfg.Warmups; i++ {
		dst := make([]byte, cfg.PayloadBytes)

		if err := b.Wait(); err != nil {
			abortWorker(cmd)
			return bench.Result{}, err
		}

		start := time.Now()
		if _, err := recvAll(reader, dst, chunk); err != nil {
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
	}

	if err := cmd.Wait(); err != nil {
		return bench.Result{}, fmt.Errorf("pipe sender: %w", err)
	}
	if err := b.Close(); err != nil {
		return bench.Result{}, err
	}
	shmem.ClearBarrier(id)

	logBandwidth(log, "receive", set, cfg.PayloadBytes)
	return bench.BandwidthStats(set.Durations(), cfg.PayloadBytes)
}
