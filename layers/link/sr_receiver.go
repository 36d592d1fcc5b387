package link

import (
	"sort"
)

// srReceiver buffers frames that arrive ahead of expected and acks each of
// them individually with seq+1.
type srReceiver struct{}

func (srReceiver) accept(r *receiverState, frame Frame) int {
	switch seq := frame.SeqNum; {
	// duplicate from before the window, the sender is already satisfied
	case seq < r.expected:
		return r.expected

	// in order: deliver, then cascade through the buffer. the cascaded
	// deliveries ride on this single ack
	case seq == r.expected:
		r.deliver(frame)
		ack := r.expected
		for len(r.buffer) > 0 && r.buffer[0].SeqNum == r.expected {
			r.deliver(r.buffer[0])
			r.buffer[0] = Frame{}
			r.buffer = r.buffer[1:]
		}
		if len(r.buffer) == 0 {
			r.buffer = nil
		}
		return ack

	// ahead of expected: buffer at its sorted position
	default:
		i := sort.Search(len(r.buffer), func(i int) bool {
			return r.buffer[i].SeqNum >= seq
		})
		if i == len(r.buffer) || r.buffer[i].SeqNum != seq {
			r.buffer = append(r.buffer, Frame{})
			copy(r.buffer[i+1:], r.buffer[i:])
			r.buffer[i] = frame
		}
		return seq + 1
	}
}
