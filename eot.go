package termsnap

import "time"

// This file implements the EOT (End-of-Transmission) retransmission state
// machine used by the non-interactive proxy loop. The PTY stdin stays open
// for the whole proxy run, so a child blocked reading its own stdin would
// never see EOF; once parent stdin closes, ASCII EOT (0x04) is re-sent every
// 500ms until the child exits, which also covers children that buffer their
// stdin parse past the first delivery.

// eotRetransmitInterval is how often EOT is resent while waiting for the
// child to read it.
const eotRetransmitInterval = 500 * time.Millisecond

// eotPhase distinguishes the states of the retransmission machine: nothing
// pending, a send due now, and sent-and-waiting on the retransmit clock.
type eotPhase int

const (
	eotNone eotPhase = iota
	eotSend
	eotSent
)

// EotState tracks whether parent stdin has closed/errored and, if so,
// whether (and when) an EOT byte sequence has been sent to the child.
type EotState struct {
	phase  eotPhase
	sentAt time.Time
}

// TriggerSend transitions None -> SendEot: called when parent stdin hits
// EOF or a non-ignored error.
func (e *EotState) TriggerSend() {
	if e.phase == eotNone {
		e.phase = eotSend
	}
}

// ShouldSend reports whether an EOT sequence should be (re)transmitted right
// now: true for a fresh SendEot, and true for SentEot once the retransmit
// interval has elapsed since the last send.
func (e *EotState) ShouldSend(now time.Time) bool {
	switch e.phase {
	case eotSend:
		return true
	case eotSent:
		return now.Sub(e.sentAt) >= eotRetransmitInterval
	default:
		return false
	}
}

// MarkSent transitions to SentEot(now), recording the retransmit clock.
func (e *EotState) MarkSent(now time.Time) {
	e.phase = eotSent
	e.sentAt = now
}

// eotSequence returns the bytes to push for an EOT transmission: "\r\x04",
// or just "\x04" if the last byte already written to the PTY's stdin was a
// carriage return.
func eotSequence(lastByteWasCR bool) string {
	if lastByteWasCR {
		return "\x04"
	}
	return "\r\x04"
}
