// Package shmem provides the process-shared primitives the probes coordinate
// through: POSIX shared memory objects, file-backed shared mappings, a named
// futex-based semaphore, and the reusable sense-reversing barrier.
//
// The shared records are flat, fixed-layout byte regions free of pointers:
// cooperating processes map them at different addresses.
package shmem

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// shmDir is where the kernel exposes POSIX shared memory objects on Linux.
const shmDir = "/dev/shm"

// Region is a shared mapping backed by a POSIX shm object or a regular file.
type Region struct {
	name string
	file *os.File
	Data []byte
}

func shmPath(name string) string {
	return filepath.Join(shmDir, strings.TrimPrefix(name, "/"))
}

// CreateExclusive creates a new shared memory object of the given size. It
// fails with unix.EEXIST (wrapped) when the name is already taken.
func CreateExclusive(name string, size int) (*Region, error) {
	file, err := os.OpenFile(shmPath(name), os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to create shared memory %q: %w", name, err)
	}
	if err := file.Truncate(int64(size)); err != nil {
		file.Close()
		os.Remove(shmPath(name))
		return nil, fmt.Errorf("failed to size shared memory %q: %w", name, err)
	}
	return mapRegion(name, file, size)
}

// OpenOrCreate maps the named shared memory object, creating it at the
// given size when absent. Both sides of a shared-buffer transport call this;
// whichever arrives first creates the object.
func OpenOrCreate(name string, size int) (*Region, error) {
	file, err := os.OpenFile(shmPath(name), os.O_CREATE|os.O_RDWR, 0o666)
	if err != nil {
		return nil, fmt.Errorf("failed to open shared memory %q: %w", name, err)
	}
	if err := file.Truncate(int64(size)); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to size shared memory %q: %w", name, err)
	}
	return mapRegion(name, file, size)
}

// Open maps an existing shared memory object. With size 0 the object's
// current size is used.
func Open(name string, size int) (*Region, error) {
	file, err := os.OpenFile(shmPath(name), os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open shared memory %q: %w", name, err)
	}
	if size == 0 {
		info, err := file.Stat()
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to stat shared memory %q: %w", name, err)
		}
		size = int(info.Size())
	}
	return mapRegion(name, file, size)
}

// MapFile creates (or truncates) a regular file of the given size and maps
// it shared. The mmap bandwidth probe transports through such a mapping.
func MapFile(path string, size int) (*Region, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0o666)
	if err != nil {
		return nil, fmt.Errorf("failed to open %q: %w", path, err)
	}
	if err := file.Truncate(int64(size)); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to size %q: %w", path, err)
	}
	return mapRegion(path, file, size)
}

// OpenFile maps an existing regular file shared, at its current size.
func OpenFile(path string) (*Region, error) {
	file, err := os.OpenFile(path, os.O_RDWR, 0o666)
	if err != nil {
		return nil, fmt.Errorf("failed to open %q: %w", path, err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat %q: %w", path, err)
	}
	return mapRegion(path, file, int(info.Size()))
}

func mapRegion(name string, file *os.File, size int) (*Region, error) {
	data, err := unix.Mmap(int(file.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to map %q: %w", name, err)
	}
	return &Region{name: name, file: file, Data: data}, nil
}

// Close unmaps the region and closes the backing descriptor. The backing
// object stays on the system until unlinked.
func (r *Region) Close() error {
	if r.Data != nil {
		if err := unix.Munmap(r.Data); err != nil {
			return fmt.Errorf("failed to unmap %q: %w", r.name, err)
		}
		r.Data = nil
	}
	if r.file != nil {
		if err := r.file.Close(); err != nil {
			return fmt.Errorf("failed to close %q: %w", r.name, err)
		}
		r.file = nil
	}
	return nil
}

// Unlink removes a named shared memory object. Missing objects are not an
// error; stale names from a crashed run are cleared the same way.
func Unlink(name string) error {
	if err := os.Remove(shmPath(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to unlink shared memory %q: %w", name, err)
	}
	return nil
}

// Exists reports whether a named shared memory object is present.
func Exists(name string) bool {
	_, err := os.Stat(shmPath(name))
	return err == nil
}
