package termsnap

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// This file implements the PTY proxy loop that drives a child process
// through a pseudo-terminal in either non-interactive or interactive mode:
// a single-threaded, readiness-driven event loop over bounded ring buffers,
// with the terminal emulator observing every byte the child writes.

const (
	stdinRingCapacity         = 4096
	stdoutRingCapacity        = 4096
	pollTimeoutNonInteractive = 500 * time.Millisecond
	ptyReadScratchSize        = 4096
)

// fdReadWriter adapts a raw, non-blocking file descriptor to io.Reader and
// io.Writer via direct syscalls, so RingBuffer's read/write paths observe
// EAGAIN/EINTR directly rather than through *os.File's runtime poller
// integration, which would block instead of surfacing them.
type fdReadWriter struct {
	fd int
}

func (f fdReadWriter) Read(p []byte) (int, error) {
	n, err := unix.Read(f.fd, p)
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (f fdReadWriter) Write(p []byte) (int, error) {
	n, err := unix.Write(f.fd, p)
	if err != nil {
		return 0, err
	}
	return n, nil
}

func setNonblocking(fd int) error {
	return unix.SetNonblock(fd, true)
}

// Proxy owns the PTY master and the child process it drives, and wires
// RingBuffer, Poll, and Terminal together into the event loops below.
type Proxy struct {
	cmd  *exec.Cmd
	ptmx *os.File
	term *Terminal
	sink *QueueSink

	childDone chan struct{}
	waitErr   error
}

// StartProxy launches name/args under a PTY of the given size, with LINES,
// COLUMNS, and TERM set in its environment. sink receives the
// terminal's outgoing responses; pass a *QueueSink for non-interactive mode
// (so the loop can drain them back into the child's stdin) or NoopSink{}
// for interactive mode (the real terminal handles them instead).
func StartProxy(name string, args []string, lines, cols int, termName string, sink ResponseSink) (*Proxy, error) {
	cmd := exec.Command(name, args...)
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("LINES=%d", lines),
		fmt.Sprintf("COLUMNS=%d", cols),
		fmt.Sprintf("TERM=%s", termName),
	)

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: uint16(lines), Cols: uint16(cols)})
	if err != nil {
		return nil, fmt.Errorf("start command under pty: %w", err)
	}

	queue, _ := sink.(*QueueSink)
	term := New(lines, cols, sink)

	p := &Proxy{
		cmd:       cmd,
		ptmx:      ptmx,
		term:      term,
		sink:      queue,
		childDone: make(chan struct{}),
	}

	go func() {
		p.waitErr = p.cmd.Wait()
		close(p.childDone)
	}()

	return p, nil
}

func (p *Proxy) childExited() bool {
	select {
	case <-p.childDone:
		return true
	default:
		return false
	}
}

// WaitErr returns the error (if any) the child process's exec.Cmd.Wait
// reported, valid only after the proxy's Run* method has returned.
func (p *Proxy) WaitErr() error { return p.waitErr }

// RunNonInteractive drives the child without a controlling user terminal:
// parent stdin is shuttled to the PTY through a bounded ring, PTY output is
// fed byte-by-byte to the terminal emulator, and an EOT byte sequence is
// retransmitted every 500ms once parent stdin closes, until the child exits.
func (p *Proxy) RunNonInteractive() (Screen, error) {
	defer p.ptmx.Close()

	stdinFD := int(os.Stdin.Fd())
	ptyFD := int(p.ptmx.Fd())
	if err := setNonblocking(stdinFD); err != nil {
		return p.term.CurrentScreen(), fmt.Errorf("set stdin nonblocking: %w", err)
	}
	if err := setNonblocking(ptyFD); err != nil {
		return p.term.CurrentScreen(), fmt.Errorf("set pty nonblocking: %w", err)
	}

	stdinSrc := fdReadWriter{fd: stdinFD}
	ptyRW := fdReadWriter{fd: ptyFD}

	stdinRing := NewRingBuffer(stdinRingCapacity)
	scratch := make([]byte, ptyReadScratchSize)

	var eot EotState
	lastByteWasCR := false
	timeout := pollTimeoutNonInteractive

	for {
		if p.childExited() {
			break
		}

		now := time.Now()
		sendEOT := eot.ShouldSend(now)

		if stdinRing.IsEmpty() {
			if text, ok := p.popResponse(); ok {
				stdinRing.PushString(text)
			} else if sendEOT {
				stdinRing.PushString(eotSequence(lastByteWasCR))
				eot.MarkSent(now)
			}
		}

		slots := []PollSlot{
			{FD: stdinFD, Direction: PollIn},
			{FD: ptyFD, Direction: PollIn},
			{FD: ptyFD, Direction: PollOut},
		}
		if stdinRing.IsFull() || eot.phase != eotNone || !p.responsesEmpty() {
			slots[0] = EmptySlot()
		}
		if stdinRing.IsEmpty() {
			slots[2] = EmptySlot()
		}

		ready, err := Poll(slots, &timeout)
		if err != nil {
			if errors.Is(err, syscall.EINTR) {
				continue
			}
			return p.term.CurrentScreen(), fmt.Errorf("poll: %w", err)
		}

		if ready[0] {
			status := stdinRing.Read(stdinSrc)
			if status == StatusEOF || status == StatusErr {
				eot.TriggerSend()
			}
		}

		if ready[1] {
			n, rerr := unix.Read(ptyFD, scratch)
			for i := 0; i < n; i++ {
				p.term.Process(scratch[i])
			}
			if rerr != nil && !isTransient(rerr) {
				break
			}
			if rerr == nil && n == 0 {
				break
			}
		}

		if ready[2] {
			tailByte, hadTail := stdinRing.PeekTail()
			stdinRing.Write(ptyRW)
			if hadTail && stdinRing.IsEmpty() {
				lastByteWasCR = tailByte == '\r'
			}
		}
	}

	return p.term.CurrentScreen(), nil
}

func (p *Proxy) popResponse() (string, bool) {
	if p.sink == nil {
		return "", false
	}
	return p.sink.Pop()
}

func (p *Proxy) responsesEmpty() bool {
	if p.sink == nil {
		return true
	}
	return p.sink.Empty()
}

// RunInteractive drives the child with the user at the keyboard: parent
// stdin/stdout and the PTY are proxied transparently in both
// directions, with the emulator observing PTY output only to stay in sync
// (its responses are not sent anywhere — the real terminal handles those).
// Raw mode is engaged on parentOut for the duration of the call and restored
// on every exit path.
func (p *Proxy) RunInteractive(parentIn, parentOut *os.File) (Screen, error) {
	inFD := int(parentIn.Fd())
	outFD := int(parentOut.Fd())

	oldState, err := term.MakeRaw(outFD)
	if err != nil {
		return Screen{}, fmt.Errorf("set raw mode: %w", err)
	}
	defer term.Restore(outFD, oldState)
	defer p.ptmx.Close()

	if err := setNonblocking(inFD); err != nil {
		return p.term.CurrentScreen(), fmt.Errorf("set stdin nonblocking: %w", err)
	}
	if err := setNonblocking(outFD); err != nil {
		return p.term.CurrentScreen(), fmt.Errorf("set stdout nonblocking: %w", err)
	}
	ptyFD := int(p.ptmx.Fd())
	if err := setNonblocking(ptyFD); err != nil {
		return p.term.CurrentScreen(), fmt.Errorf("set pty nonblocking: %w", err)
	}

	var resized atomic.Bool
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGWINCH)
	defer signal.Stop(sigCh)
	go func() {
		for range sigCh {
			resized.Store(true)
		}
	}()

	inRW := fdReadWriter{fd: inFD}
	outRW := fdReadWriter{fd: outFD}
	ptyRW := fdReadWriter{fd: ptyFD}

	stdinRing := NewRingBuffer(stdinRingCapacity)
	stdoutRing := NewRingBuffer(stdoutRingCapacity)

	for {
		if p.childExited() {
			break
		}

		if resized.CompareAndSwap(true, false) {
			p.applyResize(outFD)
		}

		slots := []PollSlot{
			{FD: inFD, Direction: PollIn},
			{FD: ptyFD, Direction: PollIn},
			{FD: ptyFD, Direction: PollOut},
			{FD: outFD, Direction: PollOut},
		}
		if stdinRing.IsFull() {
			slots[0] = EmptySlot()
		}
		if stdoutRing.IsFull() {
			slots[1] = EmptySlot()
		}
		if stdinRing.IsEmpty() {
			slots[2] = EmptySlot()
		}
		if stdoutRing.IsEmpty() {
			slots[3] = EmptySlot()
		}

		ready, err := Poll(slots, nil)
		if err != nil {
			if errors.Is(err, syscall.EINTR) {
				continue
			}
			return p.term.CurrentScreen(), fmt.Errorf("poll: %w", err)
		}

		if ready[0] {
			stdinRing.Read(inRW)
		}
		if ready[1] {
			status := stdoutRing.ReadTap(ptyRW, p.term.Process)
			if status == StatusEOF || status == StatusErr {
				break
			}
		}
		if ready[2] {
			stdinRing.Write(ptyRW)
		}
		if ready[3] {
			stdoutRing.Write(outRW)
		}
	}

	return p.term.CurrentScreen(), nil
}

// applyResize reads the parent tty's current window size and propagates it
// to both the PTY master and the emulator in the same iteration, so no
// redraw bytes arrive at a stale geometry.
func (p *Proxy) applyResize(outFD int) {
	ws, err := unix.IoctlGetWinsize(outFD, unix.TIOCGWINSZ)
	if err != nil {
		return
	}
	lines, cols := int(ws.Row), int(ws.Col)
	if lines <= 0 || cols <= 0 {
		return
	}
	_ = pty.Setsize(p.ptmx, &pty.Winsize{Rows: uint16(lines), Cols: uint16(cols)})
	p.term.Resize(lines, cols)
}

// RunFallback handles the no-command case: the byte stream on r is treated
// as an already-recorded transcript and fed directly into a fresh emulator,
// with no PTY or child process involved.
func RunFallback(r io.Reader, lines, cols int) (Screen, error) {
	t := New(lines, cols, NoopSink{})
	buf := make([]byte, ptyReadScratchSize)
	for {
		n, err := r.Read(buf)
		for i := 0; i < n; i++ {
			t.Process(buf[i])
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			return t.CurrentScreen(), err
		}
		if n == 0 {
			break
		}
	}
	return t.CurrentScreen(), nil
}
