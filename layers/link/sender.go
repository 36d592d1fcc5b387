package link

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

type (
	// Sender is the transmitting end of a link. It first establishes a
	// session with WaitForConnection() and then transfers an ordered
	// sequence of records with Send(), retransmitting on timeouts
	// according to the configured discipline.
	//
	// A Sender runs one session at a time and is not safe for concurrent
	// use. Stats() must not be called while Send() is running.
	Sender struct {
		ch        Channel
		conf      Config
		corrupter Corrupter
		l         logrus.FieldLogger
		stats     SenderStats
		metrics   senderMetrics
	}

	// senderWindow is the window state of a single Send() call.
	// frames[i] holds the frame with sequence number base+i.
	senderWindow struct {
		records  [][]byte
		base     int
		next     int
		size     int
		draining bool
		frames   []*inFlightFrame
	}

	inFlightFrame struct {
		frame  Frame
		sentAt time.Time
		acked  bool
	}

	// senderDiscipline holds the algorithms that differ between Go-Back-N
	// and Selective-Repeat on the sending side. A fresh value is created
	// for every session, so implementations may keep per-session timers.
	senderDiscipline interface {
		// admitted is called after a new frame entered the window.
		admitted(w *senderWindow, f *inFlightFrame)
		// acknowledge applies a non-corrupted ack and tells whether it
		// was accepted.
		acknowledge(w *senderWindow, ack int, now time.Time) bool
		// retransmit resends the frames whose timers expired and returns
		// how many were resent.
		retransmit(w *senderWindow, now time.Time, resend func(f *inFlightFrame) error) (int, error)
	}
)

// NewSender creates a Sender transmitting on ch.
func NewSender(ch Channel, conf Config, opts ...Option) (*Sender, error) {
	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("invalid sender config: %w", err)
	}
	o := newOptions(&conf, "sender", conf.CorruptionProbability, conf.Seed, opts)
	return &Sender{
		ch:        ch,
		conf:      conf,
		corrupter: o.corrupter,
		l:         o.logger,
		metrics:   newSenderMetrics(&conf),
	}, nil
}

func newSenderDiscipline(conf *Config) senderDiscipline {
	if conf.Discipline == SelectiveRepeat {
		return &srSender{timeout: conf.SRTimeout}
	}
	return &gbnSender{
		timeout:             conf.GBNTimeout,
		maxLastFrameResends: conf.MaxLastFrameResends,
	}
}

// Stats returns the counters accumulated over all sessions.
func (s *Sender) Stats() SenderStats {
	return s.stats
}

// Send transfers records in order and returns nil once every record was
// acknowledged. It fails with ErrTransmissionTimeout when the window could
// not be drained within the transmission timeout and, on Go-Back-N, with
// ErrLastFrameResendLimit when the tail frame alone was retransmitted too
// many times. Records acknowledged before a failure are not reported:
// the whole transfer must be retried.
func (s *Sender) Send(ctx context.Context, records [][]byte) error {
	if len(records) == 0 {
		return ErrEmptyRecords
	}

	w := &senderWindow{
		records: records,
		size:    s.conf.WindowSize,
		frames:  make([]*inFlightFrame, 0, s.conf.WindowSize),
	}
	d := newSenderDiscipline(&s.conf)
	l := s.l.WithField("records", len(records))
	l.Debug("start transmission")

	deadline := time.Now().Add(s.conf.TransmissionTimeout)
	resend := func(f *inFlightFrame) error {
		sent, err := s.transmit(f.frame)
		if err != nil {
			return err
		}
		f.frame, f.sentAt = sent, time.Now()
		s.stats.Retransmissions++
		s.metrics.retransmissions.Inc()
		l.
			WithField("seq_num", sent.SeqNum).
			WithField("is_corrupted", sent.IsCorrupted).
			Debug("timeout, retransmit frame")
		return nil
	}

	for {
		progress := false

		// admit new frames while the window has room
		for w.hasRoom() {
			frame := w.nextFrame()
			sent, err := s.transmit(frame)
			if err != nil {
				return err
			}
			f := w.push(sent, time.Now())
			d.admitted(w, f)
			progress = true
			l.
				WithField("seq_num", sent.SeqNum).
				WithField("is_corrupted", sent.IsCorrupted).
				Debug("send frame")
			if w.draining {
				l.Debug("wait last ack, no new frame")
			}
		}

		// process one acknowledgment, if any
		if ack, ok := s.ch.TryRecv(); ok {
			progress = true
			switch {
			case ack.IsControl():
				// late handshake reply, the session is already established
			case ack.IsCorrupted:
				s.stats.CorruptedAcks++
				s.metrics.corruptedAcks.Inc()
				l.
					WithField("seq_num", ack.SeqNum).
					Debug("corrupted ack, ignoring")
			case d.acknowledge(w, ack.SeqNum, time.Now()):
				s.stats.AcksReceived++
				s.metrics.acksReceived.Inc()
				l.
					WithField("seq_num", ack.SeqNum).
					Debug("received ack")
			default:
				s.stats.AcksReceived++
				s.metrics.acksReceived.Inc()
				s.stats.StrayAcks++
				s.metrics.strayAcks.Inc()
			}
		}

		// all records were admitted and acknowledged
		if w.draining && len(w.frames) == 0 {
			l.Debug("received last ack, terminate transmission")
			return nil
		}

		// retransmit expired frames
		n, err := d.retransmit(w, time.Now(), resend)
		if err != nil {
			l.
				WithError(err).
				Info("transmission failed")
			return err
		}
		if n > 0 {
			progress = true
		}

		if time.Now().After(deadline) {
			l.
				WithField("base", w.base).
				WithField("next", w.next).
				Info("transmission timeout")
			return ErrTransmissionTimeout
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("context done while transmitting frames: %w", err)
		}
		if !progress {
			idle(s.conf.IdleBackoff)
		}
	}
}

// transmit rolls the corruption of a copy of frame and sends it.
func (s *Sender) transmit(frame Frame) (Frame, error) {
	frame = frame.withCorruption(s.corrupter)
	if err := s.ch.Send(frame); err != nil {
		return frame, fmt.Errorf("error sending frame %d: %w", frame.SeqNum, err)
	}
	s.stats.FramesSent++
	s.metrics.framesSent.Inc()
	return frame, nil
}

func (w *senderWindow) hasRoom() bool {
	return !w.draining && w.next < w.base+w.size
}

// nextFrame builds the frame of the next unsent record.
func (w *senderWindow) nextFrame() Frame {
	return Frame{
		SeqNum: w.next,
		Data:   w.records[w.next],
		IsLast: w.next == len(w.records)-1,
	}
}

func (w *senderWindow) push(frame Frame, now time.Time) *inFlightFrame {
	f := &inFlightFrame{frame: frame, sentAt: now}
	w.frames = append(w.frames, f)
	w.next++
	if w.next == len(w.records) {
		w.draining = true
	}
	if w.next-w.base > w.size {
		panic(fmt.Sprintf("window bound violated: base=%d next=%d size=%d", w.base, w.next, w.size))
	}
	return f
}

// slide moves base forward by n slots, discarding their frames.
func (w *senderWindow) slide(n int) {
	for i := 0; i < n; i++ {
		w.frames[i] = nil
	}
	w.frames = w.frames[n:]
	w.base += n
}

// frame returns the in-flight frame with the given sequence number.
func (w *senderWindow) frame(seq int) (*inFlightFrame, bool) {
	if seq < w.base || w.next <= seq {
		return nil, false
	}
	return w.frames[seq-w.base], true
}

// inFlight returns the number of frames still waiting for an ack.
func (w *senderWindow) inFlight() int {
	n := 0
	for _, f := range w.frames {
		if !f.acked {
			n++
		}
	}
	return n
}
