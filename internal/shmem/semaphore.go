package shmem

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// semPrefix namespaces semaphore backing objects under /dev/shm, mirroring
// what sem_open does for its own objects.
const semPrefix = "sem."

// Semaphore is a named, process-shared counting semaphore: a single 32-bit
// word in a shared memory object, waited on through futexes. Independently
// started processes open the same semaphore by name.
type Semaphore struct {
	name   string
	region *Region
	value  *uint32
}

func semName(name string) string {
	return semPrefix + strings.TrimPrefix(name, "/")
}

// OpenSemaphore opens the named semaphore, creating it with the given
// initial value if it does not exist. Creation is made atomic with
// initialization by building the object under a temporary name and linking
// it into place, so a concurrent opener never observes an uninitialized
// count.
func OpenSemaphore(name string, initial uint32) (*Semaphore, error) {
	path := shmPath(semName(name))

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := publishSemaphore(path, initial); err != nil {
			return nil, err
		}
	}

	region, err := Open(semName(name), 4)
	if err != nil {
		return nil, err
	}
	return &Semaphore{
		name:   name,
		region: region,
		value:  (*uint32)(unsafe.Pointer(&region.Data[0])),
	}, nil
}

// publishSemaphore initializes a semaphore object under a temporary name and
// links it to path. Losing the link race to another creator is not an error.
func publishSemaphore(path string, initial uint32) error {
	var nonce [4]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return fmt.Errorf("failed to generate semaphore nonce: %w", err)
	}
	tmp := path + ".tmp" + hex.EncodeToString(nonce[:])

	file, err := os.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create semaphore backing %q: %w", tmp, err)
	}
	defer os.Remove(tmp)

	if err := file.Truncate(4); err != nil {
		file.Close()
		return fmt.Errorf("failed to size semaphore backing %q: %w", tmp, err)
	}
	data, err := unix.Mmap(int(file.Fd()), 0, 4, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		file.Close()
		return fmt.Errorf("failed to map semaphore backing %q: %w", tmp, err)
	}
	atomic.StoreUint32((*uint32)(unsafe.Pointer(&data[0])), initial)
	unix.Munmap(data)
	file.Close()

	if err := os.Link(tmp, path); err != nil && !os.IsExist(err) {
		return fmt.Errorf("failed to publish semaphore %q: %w", path, err)
	}
	return nil
}

// Wait decrements the semaphore, blocking while the count is zero.
func (s *Semaphore) Wait() error {
	for {
		v := atomic.LoadUint32(s.value)
		if v > 0 {
			if atomic.CompareAndSwapUint32(s.value, v, v-1) {
				return nil
			}
			continue
		}
		if err := futexWait(s.value, 0); err != nil {
			return fmt.Errorf("semaphore %q wait: %w", s.name, err)
		}
	}
}

// Post increments the semaphore and wakes one waiter.
func (s *Semaphore) Post() error {
	atomic.AddUint32(s.value, 1)
	if err := futexWake(s.value, 1); err != nil {
		return fmt.Errorf("semaphore %q post: %w", s.name, err)
	}
	return nil
}

// Close releases this process's handle. The named object remains until
// unlinked.
func (s *Semaphore) Close() error {
	return s.region.Close()
}

// UnlinkSemaphore removes the named semaphore's backing object.
func UnlinkSemaphore(name string) error {
	if err := os.Remove(shmPath(semName(name))); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to unlink semaphore %q: %w", name, err)
	}
	return nil
}

// SemaphoreExists reports whether the named semaphore is present.
func SemaphoreExists(name string) bool {
	_, err := os.Stat(shmPath(semName(name)))
	return err == nil
}
