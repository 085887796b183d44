package bandwidth

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"github.com/GriffinCanCode/sysperf/internal/bench"
	"github.com/GriffinCanCode/sysperf/internal/config"
	"github.com/GriffinCanCode/sysperf/internal/logging"
	"github.com/GriffinCanCode/sysperf/internal/mqueue"
	"github.com/GriffinCanCode/sysperf/internal/shmem"
	"github.com/GriffinCanCode/sysperf/internal/worker"
)

// MQSendRole is the worker role for the message queue probe's sender. The
// queue name travels in Resource, the barrier id in Aux.
const MQSendRole = "bandwidth_mq_send"

// mqMaxMsgSize is the kernel's customary per-message ceiling; chunk sizes
// are capped here.
const mqMaxMsgSize = 8192

// mqBacklog is the queue's maximum number of in-flight messages.
const mqBacklog = 10

func init() {
	worker.Register(MQSendRole, runMQSender)
}

func runMQSender(p worker.Params) error {
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
		queue, err := mqueue.Open(p.Resource, unix.O_WRONLY, 0, nil)
		if err != nil {
			return fmt.Errorf("send: %w", err)
		}

		if err := b.Wait(); err != nil {
			return err
		}

		start := time.Now()
		total := uint64(len(payload))
		for sent := uint64(0); sent < total; {
			n := min(p.ChunkBytes, total-sent)
			if err := queue.Send(payload[sent:sent+n], 0); err != nil {
				return err
			}
			sent += n
		}
		elapsed := time.Since(start)

		if err := b.Wait(); err != nil {
			return err
		}
		set.Record(i, elapsed)
		queue.Close()
	}

	logBandwidth(p.Log, "send", set, p.PayloadBytes)
	return b.Close()
}

// MQ measures transfer through a POSIX message queue. The chunk size is
// capped at the kernel's per-message limit; EAGAIN or ETIMEDOUT on receive
// means the sender finished and ends the round.
func MQ(cfg *config.Config, log *logging.Logger) (bench.Result, error) {
	name := bench.UniqueName("/sysperf_mq")
	chunk := min(cfg.EffectiveChunkBytes(), mqMaxMsgSize)

	mqueue.Unlink(name)
	queue, err := mqueue.Open(name, unix.O_CREAT|unix.O_EXCL|unix.O_RDWR, 0o666, &mqueue.Attr{
		MaxMsg:  mqBacklog,
		MsgSize: int64(chunk),
	})
	if err != nil {
		return bench.Result{}, err
	}
	queue.Close()
	defer mqueue.Unlink(name)

	id := bench.UniqueName("/sysperf_mq_barrier")
	shmem.ClearBarrier(id)

	cmd, err := worker.Spawn(MQSendRole, worker.Params{
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

	set := bench.NewSampleSet(cfg.Iterations, cfg.Warmups)
	buf := make([]byte, chunk)
	for i := 0; i < cfg.Iterations+cfg.Warmups; i++ {
		recvQueue, err := mqueue.Open(name, unix.O_RDONLY, 0, nil)
		if err != nil {
			abortWorker(cmd)
			return bench.Result{}, fmt.Errorf("receive: %w", err)
		}

		dst := make([]byte, cfg.PayloadBytes)
		if err := b.Wait(); err != nil {
			abortWorker(cmd)
			return bench.Result{}, err
		}

		start := time.Now()
		received := uint64(0)
		for received < cfg.PayloadBytes {
			n, err := recvQueue.Receive(buf)
			if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.ETIMEDOUT) {
				break
			}
			if err != nil {
				abortWorker(cmd)
				return bench.Result{}, err
			}
			copy(dst[received:], buf[:n])
			received += uint64(n)
		}
		elapsed := time.Since(start)

		if err := b.Wait(); err != nil {
			abortWorker(cmd)
			return bench.Result{}, err
		}
		set.Record(i, elapsed)
		recvQueue.Close()

		if err := verifyRound(dst[:received], cfg.PayloadBytes, i); err != nil {
			abortWorker(cmd)
			return bench.Result{}, err
		}
	}

	if err := cmd.Wait(); err != nil {
		return bench.Result{}, fmt.Errorf("mq sender: %w", err)
	}
	if err := b.Close(); err != nil {
		return bench.Result{}, err
	}
	shmem.ClearBarrier(id)

	logBandwidth(log, "receive", set, cfg.PayloadBytes)
	return bench.BandwidthStats(set.Durations(), cfg.PayloadBytes)
}
