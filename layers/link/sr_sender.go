package link

import (
	"time"
)

// srSender keeps one timer per in-flight frame (its sentAt) and only
// resends the frames whose own timer expired.
type srSender struct {
	timeout time.Duration
}

func (*srSender) admitted(*senderWindow, *inFlightFrame) {}

// acknowledge treats ack as selective: it satisfies exactly frame ack-1.
func (*srSender) acknowledge(w *senderWindow, ack int, now time.Time) bool {
	f, ok := w.frame(ack - 1)
	if !ok || f.acked {
		return false
	}
	f.acked = true

	// slide past the contiguous run of acknowledged slots
	n := 0
	for n < len(w.frames) && w.frames[n].acked {
		n++
	}
	if n > 0 {
		w.slide(n)
	}
	return true
}

func (s *srSender) retransmit(w *senderWindow, now time.Time, resend func(f *inFlightFrame) error) (int, error) {
	n := 0
	for _, f := range w.frames {
		if f.acked || now.Sub(f.sentAt) <= s.timeout {
			continue
		}
		if err := resend(f); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
