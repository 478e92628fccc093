package termsnap

import (
	"time"

	"golang.org/x/sys/unix"
)

// This file implements a readiness poller over up to N optional
// (fd, direction) slots: a thin wrapper around poll(2) via
// golang.org/x/sys/unix that preserves the caller's slot order in its
// per-slot ready flags.

// PollDirection selects which readiness condition a slot watches.
type PollDirection int

const (
	PollIn PollDirection = iota
	PollOut
)

// PollSlot is one optional (descriptor, direction) pair. A slot with FD < 0
// is treated as empty: it is excluded from the underlying poll(2) call and
// always reports not-ready.
type PollSlot struct {
	FD        int
	Direction PollDirection
}

// EmptySlot returns a disabled slot, preserving its position in the Poll
// input/output arrays without watching any descriptor.
func EmptySlot() PollSlot { return PollSlot{FD: -1} }

// Poll blocks until any populated slot in slots is ready or timeout elapses
// (nil means block indefinitely). It returns a per-slot ready flag in input
// order; empty slots always report false. A timeout is clamped to the
// 32-bit millisecond range poll(2) accepts. EINTR is returned to the caller
// (unlike the ring buffer, which swallows it) so the proxy loop can decide
// whether to re-poll.
func Poll(slots []PollSlot, timeout *time.Duration) ([]bool, error) {
	ready := make([]bool, len(slots))

	pollFds := make([]unix.PollFd, 0, len(slots))
	indices := make([]int, 0, len(slots))
	for i, s := range slots {
		if s.FD < 0 {
			continue
		}
		var events int16
		switch s.Direction {
		case PollIn:
			events = unix.POLLIN
		case PollOut:
			events = unix.POLLOUT
		}
		pollFds = append(pollFds, unix.PollFd{Fd: int32(s.FD), Events: events})
		indices = append(indices, i)
	}

	ms := -1
	if timeout != nil {
		ms64 := timeout.Milliseconds()
		switch {
		case ms64 < 0:
			ms = 0
		case ms64 > int64(^uint32(0)>>1):
			ms = int(^uint32(0) >> 1)
		default:
			ms = int(ms64)
		}
	}

	if len(pollFds) == 0 {
		if ms < 0 {
			// Nothing to wait on and no timeout: there is nothing that will
			// ever wake this caller, so return immediately rather than hang.
			return ready, nil
		}
		time.Sleep(time.Duration(ms) * time.Millisecond)
		return ready, nil
	}

	_, err := unix.Poll(pollFds, ms)
	if err != nil {
		return ready, err
	}

	for i, pfd := range pollFds {
		if pfd.Revents != 0 {
			ready[indices[i]] = true
		}
	}
	return ready, nil
}
