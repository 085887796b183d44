package shmem

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"unsafe"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/sysperf/internal/logging"
)

// barrierState is the flat record every participant maps. It must stay
// plain-old-data: processes map it at different addresses.
type barrierState struct {
	nRequired    uint64
	nJoined      uint64
	countWaiting uint64
	sense        uint32
	_            uint32
	refCount     uint64
}

const barrierStateSize = int(unsafe.Sizeof(barrierState{}))

// Barrier is a reusable sense-reversing barrier for n independently started
// processes. Each participant constructs Barrier with the same id;
// construction blocks until all n have joined. Every Wait call blocks until
// all n participants have entered the same round's Wait.
//
// The state record lives in a named shared memory region (id + "_shm"),
// guarded by a named binary semaphore (id + "_shm_sem").
type Barrier struct {
	id     string
	n      uint64
	sem    *Semaphore
	region *Region
	state  *barrierState
	sense  bool
	log    *logging.Logger
}

func barrierShmName(id string) string {
	return id + "_shm"
}

func barrierSemName(id string) string {
	return id + "_shm_sem"
}

// ClearBarrier unlinks the named semaphore and shared memory region backing
// the barrier, discarding stale state from a crashed run.
func ClearBarrier(id string) {
	UnlinkSemaphore(barrierSemName(id))
	Unlink(barrierShmName(id))
}

// BarrierResourcesExist reports whether any backing object for the barrier
// id is still present on the system.
func BarrierResourcesExist(id string) bool {
	return SemaphoreExists(barrierSemName(id)) || Exists(barrierShmName(id))
}

// NewBarrier constructs the barrier and blocks until n participants have
// constructed with the same id.
func NewBarrier(id string, n int, log *logging.Logger) (*Barrier, error) {
	if n < 2 {
		return nil, fmt.Errorf("barrier requires at least 2 participants, got: %d", n)
	}
	if log == nil {
		log = &logging.Logger{Logger: zap.NewNop()}
	}

	sem, err := OpenSemaphore(barrierSemName(id), 1)
	if err != nil {
		return nil, fmt.Errorf("barrier %q: %w", id, err)
	}

	b := &Barrier{id: id, n: uint64(n), sem: sem, log: log}
	if err := b.attach(); err != nil {
		sem.Close()
		return nil, fmt.Errorf("barrier %q: %w", id, err)
	}
	if err := b.join(); err != nil {
		b.region.Close()
		sem.Close()
		return nil, fmt.Errorf("barrier %q: %w", id, err)
	}
	return b, nil
}

// attach creates or opens the shared state region under the semaphore, so
// every participant observes a fully initialized record.
func (b *Barrier) attach() error {
	if err := b.sem.Wait(); err != nil {
		return err
	}
	defer b.sem.Post()

	region, err := CreateExclusive(barrierShmName(b.id), barrierStateSize)
	switch {
	case err == nil:
		b.log.Debug("created barrier state region", zap.String("id", b.id))
	case errors.Is(err, os.ErrExist):
		b.log.Debug("barrier state region exists, opening", zap.String("id", b.id))
		region, err = Open(barrierShmName(b.id), barrierStateSize)
		if err != nil {
			return err
		}
	default:
		return err
	}

	b.region = region
	b.state = (*barrierState)(unsafe.Pointer(&region.Data[0]))
	return nil
}

// join registers this participant and spins until all n have joined.
func (b *Barrier) join() error {
	if err := b.sem.Wait(); err != nil {
		return err
	}
	b.state.refCount++
	b.state.nJoined++
	if b.state.nRequired == 0 {
		b.state.nRequired = b.n
	}
	mismatch := b.state.nRequired != b.n
	if err := b.sem.Post(); err != nil {
		return err
	}
	if mismatch {
		return fmt.Errorf("participant count mismatch: barrier created for %d", b.state.nRequired)
	}

	b.log.Debug("waiting for barrier participants",
		zap.String("id", b.id), zap.Uint64("required", b.n))
	for {
		if err := b.sem.Wait(); err != nil {
			return err
		}
		joined := b.state.nJoined >= b.n
		if err := b.sem.Post(); err != nil {
			return err
		}
		if joined {
			break
		}
		runtime.Gosched()
	}
	b.log.Debug("all barrier participants joined", zap.String("id", b.id))
	return nil
}

// Wait blocks until all participants have entered this round's Wait, then
// releases them. The barrier is reusable for an unbounded number of rounds.
func (b *Barrier) Wait() error {
	last := false
	if err := b.sem.Wait(); err != nil {
		return err
	}
	b.state.countWaiting++
	if b.state.countWaiting == b.n {
		last = true
		b.state.sense = 1 - b.state.sense
		b.state.countWaiting = 0
	}
	if err := b.sem.Post(); err != nil {
		return err
	}

	if !last {
		mySense := uint32(0)
		if b.sense {
			mySense = 1
		}
		for {
			if err := b.sem.Wait(); err != nil {
				return err
			}
			released := b.state.sense != mySense
			if err := b.sem.Post(); err != nil {
				return err
			}
			if released {
				break
			}
			runtime.Gosched()
		}
	}

	b.sense = !b.sense
	return nil
}

// ID returns the barrier's identifier.
func (b *Barrier) ID() string {
	return b.id
}

// Close releases this participant's handles. The last participant to close
// unlinks the named semaphore and the shared memory region.
func (b *Barrier) Close() error {
	if err := b.sem.Wait(); err != nil {
		return err
	}
	remaining := b.state.refCount
	b.state.refCount--
	if err := b.sem.Post(); err != nil {
		return err
	}

	if err := b.region.Close(); err != nil {
		return err
	}
	if err := b.sem.Close(); err != nil {
		return err
	}

	if remaining == 1 {
		b.log.Debug("last barrier holder exiting, unlinking resources", zap.String("id", b.id))
		if err := UnlinkSemaphore(barrierSemName(b.id)); err != nil {
			return err
		}
		if err := Unlink(barrierShmName(b.id)); err != nil {
			return err
		}
	}
	return nil
}
