// Package bandwidth implements the bandwidth probes. Multi-process
// transports fork a sender via the worker registry and report the receiver's
// observed rate; the sender's rate is logged informationally.
package bandwidth

import (
	"fmt"
	"io"
	"os/exec"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/sysperf/internal/bench"
	"github.com/GriffinCanCode/sysperf/internal/logging"
)

// sendChunks writes data through w in chunks of at most chunk bytes. Short
// writes are completed by the io.Writer contract; a write error is fatal to
// the round.
func sendChunks(w io.Writer, data []byte, chunk uint64) error {
	total := uint64(len(data))
	for sent := uint64(0); sent < total; {
		n := min(chunk, total-sent)
		written, err := w.Write(data[sent : sent+n])
		if err != nil {
			return fmt.Errorf("send: write: %w", err)
		}
		sent += uint64(written)
	}
	return nil
}

// recvAll reads into dst, in chunk-bounded reads, until dst is full. A clean
// EOF before completion returns what arrived; the round's verification then
// fails.
func recvAll(r io.Reader, dst []byte, chunk uint64) (uint64, error) {
	total := uint64(len(dst))
	received := uint64(0)
	for received < total {
		n := min(chunk, total-received)
		read, err := r.Read(dst[received : received+n])
		received += uint64(read)
		if err == io.EOF {
			return received, nil
		}
		if err != nil {
			return received, fmt.Errorf("receive: read: %w", err)
		}
		if read == 0 {
			return received, nil
		}
	}
	return received, nil
}

// logBandwidth reports a side's computed rate at info severity.
func logBandwidth(log *logging.Logger, side string, set *bench.SampleSet, payloadBytes uint64) {
	result, err := bench.BandwidthStats(set.Durations(), payloadBytes)
	if err != nil {
		log.Warn("not enough samples for bandwidth", zap.String("side", side), zap.Error(err))
		return
	}
	avg, stddev := result.GiBPerSec()
	log.Info("side bandwidth",
		zap.String("side", side),
		zap.Float64("gib_per_sec", avg),
		zap.Float64("stddev", stddev))
}

// abortWorker kills a spawned sender after an unrecoverable receiver error
// so it does not spin against a barrier nobody will enter again.
func abortWorker(cmd *exec.Cmd) {
	if cmd != nil && cmd.Process != nil {
		cmd.Process.Kill()
		cmd.Wait()
	}
}

// verifyRound checks a received payload; corruption means the measurement
// cannot be trusted and the probe dies.
func verifyRound(data []byte, payloadBytes uint64, iteration int) error {
	if !bench.VerifyPayload(data, payloadBytes) {
		return fmt.Errorf("data verification failed on iteration %d", iteration)
	}
	return nil
}
