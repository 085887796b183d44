package shmem

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// Linux futex(2) operation numbers. golang.org/x/sys/unix does not export
// these as named constants, so they are defined here directly from
// linux/futex.h.
const (
	futexWaitOp = 0
	futexWakeOp = 1
)

// futexWait blocks until the word at addr no longer holds val, or a wake is
// delivered. Spurious returns (EAGAIN, EINTR) are fine: callers re-check the
// word in a loop. The non-private futex ops work across processes sharing
// the mapping.
func futexWait(addr *uint32, val uint32) error {
	_, _, errno := unix.Syscall6(unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)), uintptr(futexWaitOp), uintptr(val), 0, 0, 0)
	if errno != 0 && errno != unix.EAGAIN && errno != unix.EINTR {
		return errno
	}
	return nil
}

// futexWake wakes up to n waiters blocked on the word at addr.
func futexWake(addr *uint32, n int) error {
	_, _, errno := unix.Syscall6(unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)), uintptr(futexWakeOp), uintptr(n), 0, 0, 0)
	if errno != 0 {
		return errno
	}
	return nil
}
