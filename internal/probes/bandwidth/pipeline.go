package bandwidth

import (
	"unsafe"

	"github.com/GriffinCanCode/sysperf/internal/shmem"
)

// The mmap and shm probes share one transport: a region holding two
// chunk-sized slots behind a small header of two slot-length fields. Each
// barrier wait is one pipeline tick; the sender fills slot i%2 while the
// receiver drains slot (i+1)%2, so one slot is always in flight.

// slotHeaderSize covers the two uint64 slot-length fields.
const slotHeaderSize = 16

// regionSize is the shared region's total footprint for a chunk size.
func regionSize(chunk uint64) int {
	return slotHeaderSize + 2*int(chunk)
}

// pipelineTicks is ceil(payload/chunk)+1: the extra tick covers the initial
// fill, where the receiver's slot is still empty, and the final drain.
func pipelineTicks(payload, chunk uint64) uint64 {
	return (payload+chunk-1)/chunk + 1
}

// slotBuffer views a shared region as the two-slot hand-off record.
type slotBuffer struct {
	region *shmem.Region
	chunk  uint64
}

func (s slotBuffer) length(tick uint64) *uint64 {
	return (*uint64)(unsafe.Pointer(&s.region.Data[8*(tick%2)]))
}

func (s slotBuffer) slot(tick uint64) []byte {
	offset := uint64(slotHeaderSize) + (tick%2)*s.chunk
	return s.region.Data[offset : offset+s.chunk]
}

// zero clears the header and both slots before a round.
func (s slotBuffer) zero() {
	clear(s.region.Data)
}

// pumpOut drives the sender side: at tick i it fills slot i%2 and publishes
// the slot's length. The barrier wait opening each tick is the "slot is
// free" edge.
func (s slotBuffer) pumpOut(b *shmem.Barrier, payload []byte) error {
	total := uint64(len(payload))
	ticks := pipelineTicks(total, s.chunk)
	sent := uint64(0)
	for i := uint64(0); i < ticks; i++ {
		if err := b.Wait(); err != nil {
			return err
		}
		n := min(s.chunk, total-sent)
		copy(s.slot(i), payload[sent:sent+n])
		*s.length(i) = n
		sent += n
	}
	return nil
}

// pumpIn drives the receiver side, offset one tick behind the sender: at
// tick i it drains slot (i+1)%2, which the sender filled at tick i-1. The
// first tick drains the still-empty slot; that is the pipeline's wasted
// transfer.
func (s slotBuffer) pumpIn(b *shmem.Barrier, dst []byte) error {
	ticks := pipelineTicks(uint64(len(dst)), s.chunk)
	received := uint64(0)
	for i := uint64(0); i < ticks; i++ {
		if err := b.Wait(); err != nil {
			return err
		}
		n := *s.length(i + 1)
		copy(dst[received:], s.slot(i + 1)[:n])
		received += n
	}
	return nil
}
