package bandwidth

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"

	"github.com/GriffinCanCode/sysperf/internal/bench"
	"github.com/GriffinCanCode/sysperf/internal/config"
	"github.com/GriffinCanCode/sysperf/internal/logging"
	"github.com/GriffinCanCode/sysperf/internal/shmem"
	"github.com/GriffinCanCode/sysperf/internal/worker"
)

// FifoSendRole is the worker role for the FIFO probe's sender. The FIFO path
// travels in Resource, the barrier id in Aux.
const FifoSendRole = "bandwidth_fifo_send"

func init() {
	worker.Register(FifoSendRole, runFifoSender)
}

func runFifoSender(p worker.Params) error {
	b, err := shmem.NewBarrier(p.Aux, 2, p.Log)
	if err != nil {
		return err
	}

	payload, err := bench.GeneratePayload(p.PayloadBytes)
	if err != nil {
		return err
	}

	set := bench.NewSampleSet(p.Iterations, p.Warmups)
	for i := 0; i < p.Iterations+p.Warmups; i++ {
		// Blocks until the receiver has the read side open.
		fifo, err := os.OpenFile(p.Resource, os.O_WRONLY, 0)
		if err != nil {
			return fmt.Errorf("send: open fifo: %w", err)
		}

		if err := b.Wait(); err != nil {
			return err
		}

		start := time.Now()
		if err := sendChunks(fifo, payload, p.ChunkBytes); err != nil {
			return err
		}
		elapsed := time.Since(start)

		if err := b.Wait(); err != nil {
			return err
		}
		set.Record(i, elapsed)
		fifo.Close()
	}

	logBandwidth(p.Log, "send", set, p.PayloadBytes)
	return b.Close()
}

// Fifo measures transfer through a named pipe created under the OS temp
// directory. Endpoints are re-opened every round; the path is removed on
// return.
func Fifo(cfg *config.Config, log *logging.Logger) (bench.Result, error) {
	path := filepath.Join(os.TempDir(), bench.UniqueName("sysperf_fifo"))
	os.Remove(path)
	if err := unix.Mkfifo(path, 0o666); err != nil {
		return bench.Result{}, fmt.Errorf("mkfifo %q: %w", path, err)
	}
	defer os.Remove(path)

	id := bench.UniqueName("/sysperf_fifo")
	chunk := cfg.EffectiveChunkBytes()
	shmem.ClearBarrier(id)

	cmd, err := worker.Spawn(FifoSendRole, worker.Params{
		Iterations:   cfg.Iterations,
		Warmups:      cfg.Warmups,
		PayloadBytes: cfg.PayloadBytes,
		ChunkBytes:   chunk,
		Resource:     path,
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

	set := bench.NewSampleSet(cfg.Iterations, cfg.Warmups)
	for i := 0; i < cfg.Iterations+cfg.Warmups; i++ {
		fifo, err := os.OpenFile(path, os.O_RDONLY, 0)
		if err != nil {
			abortWorker(cmd)
			return bench.Result{}, fmt.Errorf("receive: open fifo: %w", err)
		}

		dst := make([]byte, cfg.PayloadBytes)
		if err := b.Wait(); err != nil {
			abortWorker(cmd)
			return bench.Result{}, err
		}

		start := time.Now()
		if _, err := recvAll(fifo, dst, chunk); err != nil {
			abortWorker(cmd)
			return bench.Result{}, err
		}
		elapsed := time.Since(start)

		if err := b.Wait(); err != nil {
			abortWorker(cmd)
			return bench.Result{}, err
		}
		set.Record(i, elapsed)
		fifo.Close()

		if err := verifyRound(dst, cfg.PayloadBytes, i); err != nil {
			abortWorker(cmd)
			return bench.Result{}, err
		}
	}

	if err := cmd.Wait(); err != nil {
		return bench.Result{}, fmt.Errorf("fifo sender: %w", err)
	}
	if err := b.Close(); err != nil {
		return bench.Result{}, err
	}
	shmem.ClearBarrier(id)

	logBandwidth(log, "receive", set, cfg.PayloadBytes)
	return bench.BandwidthStats(set.Durations(), cfg.PayloadBytes)
}
