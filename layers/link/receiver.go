package link

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

type (
	// Receiver is the receiving end of a link. After WaitForConnection()
	// it reassembles the ordered stream of records with Receive(), which
	// terminates on its own once the tail frame was delivered and the
	// link stayed silent for the drain timeout.
	//
	// A Receiver runs one session at a time and is not safe for
	// concurrent use. Stats() must not be called while Receive() is
	// running.
	Receiver struct {
		ch        Channel
		conf      Config
		corrupter Corrupter
		l         logrus.FieldLogger
		stats     ReceiverStats
		metrics   receiverMetrics
	}

	// receiverState is the state of a single Receive() call.
	receiverState struct {
		expected int
		output   [][]byte
		tailSeen bool
		// buffer holds out-of-order frames sorted by sequence number.
		// Only Selective-Repeat uses it.
		buffer []Frame
	}

	// receiverDiscipline holds the algorithms that differ between
	// Go-Back-N and Selective-Repeat on the receiving side.
	receiverDiscipline interface {
		// accept processes a non-corrupted data frame and returns the
		// acknowledgment number to reply with.
		accept(r *receiverState, frame Frame) (ack int)
	}
)

// NewReceiver creates a Receiver consuming frames from ch.
func NewReceiver(ch Channel, conf Config, opts ...Option) (*Receiver, error) {
	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("invalid receiver config: %w", err)
	}
	seed := conf.Seed
	if seed != 0 {
		seed++
	}
	o := newOptions(&conf, "receiver", conf.AckCorruptionProbability, seed, opts)
	return &Receiver{
		ch:        ch,
		conf:      conf,
		corrupter: o.corrupter,
		l:         o.logger,
		metrics:   newReceiverMetrics(&conf),
	}, nil
}

func newReceiverDiscipline(conf *Config) receiverDiscipline {
	if conf.Discipline == SelectiveRepeat {
		return srReceiver{}
	}
	return gbnReceiver{}
}

// Stats returns the counters accumulated over all sessions.
func (r *Receiver) Stats() ReceiverStats {
	return r.stats
}

// Receive consumes frames until the stream is complete and returns the
// records in order. After the tail frame is delivered the Receiver keeps
// acknowledging every inbound frame, so a lost final ack is healed by the
// sender's retransmission, and returns once no frame arrived for the
// receiver drain timeout.
func (r *Receiver) Receive(ctx context.Context) ([][]byte, error) {
	st := &receiverState{}
	d := newReceiverDiscipline(&r.conf)
	var lastActivity time.Time
	r.l.Debug("start receiving")

	for {
		frame, ok := r.ch.TryRecv()
		now := time.Now()

		// drain mode: re-ack whatever arrives until the link goes silent
		if st.tailSeen {
			if ok && !frame.IsCorrupted && !frame.IsControl() {
				r.countReceived()
				lastActivity = now
				r.l.
					WithField("seq_num", frame.SeqNum).
					WithField("ack", st.expected).
					Debug("resend ack after obtaining all frames")
				if err := r.sendAck(st.expected); err != nil {
					return nil, err
				}
			} else if ok && frame.IsCorrupted {
				r.countCorrupted()
			}
			if now.Sub(lastActivity) > r.conf.ReceiverDrainTimeout {
				r.l.
					WithField("records", len(st.output)).
					Debug("drain timeout, terminate receiving")
				return st.output, nil
			}
		} else if ok {
			switch {
			case frame.IsCorrupted:
				r.countCorrupted()
				r.l.
					WithField("seq_num", frame.SeqNum).
					Debug("corrupted frame, ignoring")
			case frame.IsControl():
				// late handshake retry, the session is already established
			default:
				r.countReceived()
				delivered, buffered := len(st.output), len(st.buffer)
				ack := d.accept(st, frame)
				r.countDelivered(len(st.output) - delivered)
				if len(st.buffer) > buffered {
					r.stats.Buffered++
				}
				r.l.
					WithField("seq_num", frame.SeqNum).
					WithField("ack", ack).
					Debug("received frame, send ack")
				if err := r.sendAck(ack); err != nil {
					return nil, err
				}
				if st.tailSeen {
					lastActivity = now
					r.l.
						WithField("expected", st.expected).
						Debug("last frame is received")
				}
			}
		}

		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("context done while receiving frames: %w", err)
		}
		if !ok {
			idle(r.conf.IdleBackoff)
		}
	}
}

func (r *Receiver) sendAck(ack int) error {
	frame := newAckFrame(ack).withCorruption(r.corrupter)
	if err := r.ch.Send(frame); err != nil {
		return fmt.Errorf("error sending ack %d: %w", ack, err)
	}
	r.stats.AcksSent++
	r.metrics.acksSent.Inc()
	return nil
}

func (r *Receiver) countReceived() {
	r.stats.FramesReceived++
	r.metrics.framesReceived.Inc()
}

func (r *Receiver) countCorrupted() {
	r.stats.CorruptedFrames++
	r.metrics.corruptedFrames.Inc()
}

func (r *Receiver) countDelivered(n int) {
	r.stats.Delivered += n
	r.metrics.delivered.Add(float64(n))
}

// deliver appends frame to the output stream and advances expected.
func (st *receiverState) deliver(frame Frame) {
	st.output = append(st.output, frame.Data)
	st.expected++
	if frame.IsLast {
		st.tailSeen = true
	}
}
