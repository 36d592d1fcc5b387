package link

// gbnReceiver only accepts the exact next expected frame and never buffers.
// Any other frame is dropped and answered with the cumulative ack, which
// makes the sender go back to the first missing frame.
type gbnReceiver struct{}

func (gbnReceiver) accept(r *receiverState, frame Frame) int {
	if frame.SeqNum == r.expected {
		r.deliver(frame)
	}
	return r.expected
}
