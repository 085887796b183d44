// Package mqueue is a thin wrapper over the Linux POSIX message queue
// syscalls. The kernel enforces a per-message size limit, so the bandwidth
// probe caps its chunk size accordingly.
package mqueue

import (
	"fmt"
	"strings"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Attr mirrors the kernel's mq_attr record.
type Attr struct {
	Flags   int64
	MaxMsg  int64
	MsgSize int64
	CurMsgs int64
	_       [4]int64
}

// Queue is an open message queue descriptor.
type Queue struct {
	fd   int
	name string
}

// kernelName strips the leading slash: the syscalls take the name without it.
func kernelName(name string) (*byte, error) {
	return unix.BytePtrFromString(strings.TrimPrefix(name, "/"))
}

// Open opens (or with unix.O_CREAT creates) the named queue. attr may be nil
// when opening an existing queue.
func Open(name string, flags int, mode uint32, attr *Attr) (*Queue, error) {
	namePtr, err := kernelName(name)
	if err != nil {
		return nil, fmt.Errorf("invalid queue name %q: %w", name, err)
	}
	fd, _, errno := unix.Syscall6(unix.SYS_MQ_OPEN,
		uintptr(unsafe.Pointer(namePtr)), uintptr(flags), uintptr(mode),
		uintptr(unsafe.Pointer(attr)), 0, 0)
	if errno != 0 {
		return nil, fmt.Errorf("failed to open message queue %q: %w", name, errno)
	}
	return &Queue{fd: int(fd), name: name}, nil
}

// Send enqueues one message with the given priority, blocking while the
// queue is full.
func (q *Queue) Send(data []byte, priority uint) error {
	_, _, errno := unix.Syscall6(unix.SYS_MQ_TIMEDSEND,
		uintptr(q.fd), uintptr(unsafe.Pointer(&data[0])), uintptr(len(data)),
		uintptr(priority), 0, 0)
	if errno != 0 {
		return fmt.Errorf("failed to send on message queue %q: %w", q.name, errno)
	}
	return nil
}

// Receive dequeues one message into buf, blocking while the queue is empty.
// buf must be at least the queue's message size limit. It returns the number
// of bytes received; unix.EAGAIN and unix.ETIMEDOUT pass through unwrapped
// so callers can treat them as end of stream.
func (q *Queue) Receive(buf []byte) (int, error) {
	n, _, errno := unix.Syscall6(unix.SYS_MQ_TIMEDRECEIVE,
		uintptr(q.fd), uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)),
		0, 0, 0)
	if errno != 0 {
		if errno == unix.EAGAIN || errno == unix.ETIMEDOUT {
			return 0, errno
		}
		return 0, fmt.Errorf("failed to receive on message queue %q: %w", q.name, errno)
	}
	return int(n), nil
}

// Close releases the descriptor.
func (q *Queue) Close() error {
	if err := unix.Close(q.fd); err != nil {
		return fmt.Errorf("failed to close message queue %q: %w", q.name, err)
	}
	return nil
}

// Unlink removes the named queue. A missing queue is not an error.
func Unlink(name string) error {
	namePtr, err := kernelName(name)
	if err != nil {
		return fmt.Errorf("invalid queue name %q: %w", name, err)
	}
	_, _, errno := unix.Syscall(unix.SYS_MQ_UNLINK, uintptr(unsafe.Pointer(namePtr)), 0, 0)
	if errno != 0 && errno != unix.ENOENT {
		return fmt.Errorf("failed to unlink message queue %q: %w", name, errno)
	}
	return nil
}
