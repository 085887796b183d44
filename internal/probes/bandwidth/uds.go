package bandwidth

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/GriffinCanCode/sysperf/internal/bench"
	"github.com/GriffinCanCode/sysperf/internal/config"
	"github.com/GriffinCanCode/sysperf/internal/logging"
	"github.com/GriffinCanCode/sysperf/internal/shmem"
	"github.com/GriffinCanCode/sysperf/internal/worker"
)

// UDSSendRole is the worker role for the Unix-domain socket probe's sender.
// The socket path travels in Resource, the barrier id in Aux.
const UDSSendRole = "bandwidth_uds_send"

func init() {
	worker.Register(UDSSendRole, runUDSSender)
}

func runUDSSender(p worker.Params) error {
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
		if err := b.Wait(); err != nil {
			return err
		}
		conn, err := net.Dial("unix", p.Resource)
		if err != nil {
			return fmt.Errorf("send: dial: %w", err)
		}

		if err := b.Wait(); err != nil {
			return err
		}

		start := time.Now()
		if err := sendChunks(conn, payload, p.ChunkBytes); err != nil {
			return err
		}
		elapsed := time.Since(start)

		if err := b.Wait(); err != nil {
			return err
		}
		set.Record(i, elapsed)
		conn.Close()
	}

	logBandwidth(p.Log, "send", set, p.PayloadBytes)
	return b.Close()
}

// UDS measures transfer through a Unix-domain stream socket under the OS
// temp directory, re-established every round. The socket path is gone after
// return.
func UDS(cfg *config.Config, log *logging.Logger) (bench.Result, error) {
	path := filepath.Join(os.TempDir(), bench.UniqueName("sysperf_uds.sock"))
	os.Remove(path)
	defer os.Remove(path)

	id := bench.UniqueName("/sysperf_uds")
	chunk := cfg.EffectiveChunkBytes()
	shmem.ClearBarrier(id)

	cmd, err := worker.Spawn(UDSSendRole, worker.Params{
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
		listener, err := net.Listen("unix", path)
		if err != nil {
			abortWorker(cmd)
			return bench.Result{}, fmt.Errorf("receive: listen: %w", err)
		}

		if err := b.Wait(); err != nil {
			abortWorker(cmd)
			return bench.Result{}, err
		}
		conn, err := listener.Accept()
		if err != nil {
			abortWorker(cmd)
			return bench.Result{}, fmt.Errorf("receive: accept: %w", err)
		}

		dst := make([]byte, cfg.PayloadBytes)
		if err := b.Wait(); err != nil {
			abortWorker(cmd)
			return bench.Result{}, err
		}

		start := time.Now()
		if _, err := recvAll(conn, dst, chunk); err != nil {
			abortWorker(cmd)
			return bench.Result{}, err
		}
		elapsed := time.Since(start)

		if err := b.Wait(); err != nil {
			abortWorker(cmd)
			return bench.Result{}, err
		}
		set.Record(i, elapsed)
		conn.Close()
		listener.Close()

		if err := verifyRound(dst, cfg.PayloadBytes, i); err != nil {
			abortWorker(cmd)
			return bench.Result{}, err
		}
	}

	if err := cmd.Wait(); err != nil {
		return bench.Result{}, fmt.Errorf("uds sender: %w", err)
	}
	if err := b.Close(); err != nil {
		return bench.Result{}, err
	}
	shmem.ClearBarrier(id)

	logBandwidth(log, "receive", set, cfg.PayloadBytes)
	return bench.BandwidthStats(set.Durations(), cfg.PayloadBytes)
}
