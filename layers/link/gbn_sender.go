package link

import (
	"time"
)

// gbnSender keeps a single timer for the whole window. When it expires
// every in-flight frame is sent again.
type gbnSender struct {
	timeout             time.Duration
	maxLastFrameResends int
	timerStart          time.Time
	lastFrameResends    int
}

func (g *gbnSender) admitted(w *senderWindow, f *inFlightFrame) {
	// the timer only runs while something is in flight
	if len(w.frames) == 1 {
		g.timerStart = f.sentAt
	}
}

// acknowledge treats ack as cumulative: every frame below it was received.
func (g *gbnSender) acknowledge(w *senderWindow, ack int, now time.Time) bool {
	if !(w.base < ack && ack <= w.next) {
		return false
	}
	w.slide(ack - w.base)
	g.timerStart = now
	return true
}

func (g *gbnSender) retransmit(w *senderWindow, now time.Time, resend func(f *inFlightFrame) error) (int, error) {
	if len(w.frames) == 0 || now.Sub(g.timerStart) <= g.timeout {
		return 0, nil
	}
	for _, f := range w.frames {
		if err := resend(f); err != nil {
			return 0, err
		}
	}
	g.timerStart = now

	// only the tail frame is left
	if w.draining && len(w.frames) == 1 {
		g.lastFrameResends++
		if g.lastFrameResends >= g.maxLastFrameResends {
			return len(w.frames), ErrLastFrameResendLimit
		}
	}
	return len(w.frames), nil
}
