package link

import (
	"sync"
)

type (
	// Channel is one endpoint of a duplex link. Each direction is a FIFO:
	// a Channel never drops, duplicates or reorders frames on its own.
	// All the loss the engines observe comes from the corruption model.
	//
	// TryRecv never blocks. Send enqueues the frame and only fails if the
	// channel was closed.
	Channel interface {
		TryRecv() (Frame, bool)
		Send(frame Frame) error
		Close() error
	}

	pipe struct {
		done      chan struct{}
		closeOnce sync.Once
	}

	pipeEnd struct {
		p   *pipe
		in  <-chan Frame
		out chan<- Frame
	}
)

// NewPipe creates an in-process duplex channel and returns its two
// endpoints. Frames sent on one endpoint are received on the other.
// Closing any of the endpoints closes the pipe. A non-positive size
// falls back to the default buffer size.
func NewPipe(size int) (Channel, Channel) {
	if size <= 0 {
		size = channelSize
	}
	p := &pipe{done: make(chan struct{})}
	aToB := make(chan Frame, size)
	bToA := make(chan Frame, size)
	return &pipeEnd{p: p, in: bToA, out: aToB},
		&pipeEnd{p: p, in: aToB, out: bToA}
}

func (e *pipeEnd) TryRecv() (Frame, bool) {
	select {
	case frame := <-e.in:
		return frame, true
	default:
		return Frame{}, false
	}
}

func (e *pipeEnd) Send(frame Frame) error {
	// a closed pipe wins over a free buffer slot
	select {
	case <-e.p.done:
		return ErrChannelClosed
	default:
	}

	select {
	case <-e.p.done:
		return ErrChannelClosed
	case e.out <- frame:
		return nil
	}
}

func (e *pipeEnd) Close() error {
	e.p.closeOnce.Do(func() { close(e.p.done) })
	return nil
}
