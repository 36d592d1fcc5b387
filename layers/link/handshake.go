package link

import (
	"context"
	"fmt"
	"time"
)

// WaitForConnection establishes a session with the peer Receiver. A control
// frame is sent right away and then once every connect retry interval until
// the peer echoes it. Control frames skip the corruption model, and one
// damaged by the wire is covered by the retry interval. Any other inbound
// frame is a leftover of an earlier session and is discarded.
//
// Returns ErrConnectionTimeout if no echo arrives within the connection
// timeout.
func (s *Sender) WaitForConnection(ctx context.Context) error {
	parent := ctx
	ctx, cancel := context.WithTimeout(ctx, s.conf.ConnectionTimeout)
	defer cancel()

	var lastTry time.Time
	for {
		progress := false

		// retry
		if now := time.Now(); lastTry.IsZero() || now.Sub(lastTry) > s.conf.ConnectRetryInterval {
			s.l.Debug("trying to connect")
			if err := s.ch.Send(newControlFrame()); err != nil {
				return fmt.Errorf("error sending connection request: %w", err)
			}
			lastTry = now
			progress = true
		}

		// check echo
		if frame, ok := s.ch.TryRecv(); ok {
			if frame.IsControl() {
				s.l.Debug("connection established")
				return nil
			}
			progress = true
		}

		if ctx.Err() != nil {
			if err := parent.Err(); err != nil {
				return fmt.Errorf("context done while waiting for connection: %w", err)
			}
			s.l.Debug("connection timeout")
			return ErrConnectionTimeout
		}
		if !progress {
			idle(s.conf.IdleBackoff)
		}
	}
}

// WaitForConnection blocks until the peer Sender requests a session and
// replies to the request once. Data frames of earlier sessions found on
// the way are discarded. It only returns an error when ctx is done, so
// callers wanting a bound must pass a ctx with a deadline.
func (r *Receiver) WaitForConnection(ctx context.Context) error {
	for {
		frame, ok := r.ch.TryRecv()
		if ok && frame.IsControl() {
			if err := r.ch.Send(newControlFrame()); err != nil {
				return fmt.Errorf("error replying connection request: %w", err)
			}
			r.l.Debug("connection established")
			return nil
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("context done while waiting for connection: %w", err)
		}
		if !ok {
			idle(r.conf.IdleBackoff)
		}
	}
}
