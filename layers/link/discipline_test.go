package link

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dataFrame(seq int, last bool) Frame {
	return Frame{SeqNum: seq, Data: []byte{byte('a' + seq)}, IsLast: last}
}

func TestSelectiveRepeatReceiverReordering(t *testing.T) {
	st := &receiverState{}
	d := srReceiver{}

	// 1 arrives ahead of 0 and is buffered
	assert.Equal(t, 2, d.accept(st, dataFrame(1, false)))
	assert.Equal(t, 0, st.expected)
	assert.Empty(t, st.output)
	assert.Equal(t, []int{1}, bufferedSeqs(st))

	// 0 delivers itself and cascades 1, acking 0 only
	assert.Equal(t, 1, d.accept(st, dataFrame(0, false)))
	assert.Equal(t, [][]byte{[]byte("a"), []byte("b")}, st.output)
	assert.Equal(t, 2, st.expected)
	assert.Empty(t, st.buffer)

	assert.Equal(t, 3, d.accept(st, dataFrame(2, true)))
	assert.Equal(t, [][]byte{[]byte("a"), []byte("b"), []byte("c")}, st.output)
	assert.True(t, st.tailSeen)
}

func TestSelectiveRepeatReceiverDuplicates(t *testing.T) {
	st := &receiverState{}
	d := srReceiver{}

	assert.Equal(t, 4, d.accept(st, dataFrame(3, false)))
	assert.Equal(t, 2, d.accept(st, dataFrame(1, false)))
	assert.Equal(t, 4, d.accept(st, dataFrame(3, false)))
	assert.Equal(t, []int{1, 3}, bufferedSeqs(st))

	assert.Equal(t, 1, d.accept(st, dataFrame(0, false)))
	assert.Equal(t, 2, st.expected)
	assert.Equal(t, []int{3}, bufferedSeqs(st))

	// behind expected: re-ack expected, nothing delivered
	assert.Equal(t, 2, d.accept(st, dataFrame(0, false)))
	assert.Len(t, st.output, 2)
}

func TestSelectiveRepeatReceiverTailIsSeenOnlyOnDelivery(t *testing.T) {
	st := &receiverState{}
	d := srReceiver{}

	assert.Equal(t, 3, d.accept(st, dataFrame(2, true)))
	assert.False(t, st.tailSeen)
	d.accept(st, dataFrame(1, false))
	assert.False(t, st.tailSeen)
	d.accept(st, dataFrame(0, false))
	assert.True(t, st.tailSeen)
	assert.Equal(t, 3, st.expected)
	assert.Len(t, st.output, 3)
}

func TestGoBackNReceiverDiscardsOutOfOrder(t *testing.T) {
	st := &receiverState{}
	d := gbnReceiver{}

	assert.Equal(t, 0, d.accept(st, dataFrame(1, false)))
	assert.Empty(t, st.output)
	assert.Empty(t, st.buffer)

	assert.Equal(t, 1, d.accept(st, dataFrame(0, false)))
	assert.Equal(t, 1, d.accept(st, dataFrame(0, false)))
	assert.Equal(t, 1, d.accept(st, dataFrame(2, true)))
	assert.False(t, st.tailSeen)
	assert.Equal(t, 2, d.accept(st, dataFrame(1, false)))
	assert.Equal(t, 3, d.accept(st, dataFrame(2, true)))
	assert.True(t, st.tailSeen)
	assert.Equal(t, [][]byte{[]byte("a"), []byte("b"), []byte("c")}, st.output)
}

func fillWindow(w *senderWindow, d senderDiscipline, now time.Time) {
	for w.hasRoom() {
		f := w.push(w.nextFrame(), now)
		d.admitted(w, f)
	}
}

func newTestWindow(records, size int) *senderWindow {
	w := &senderWindow{size: size}
	for i := 0; i < records; i++ {
		w.records = append(w.records, []byte{byte(i)})
	}
	return w
}

func TestSenderWindow(t *testing.T) {
	w := newTestWindow(4, 3)
	t0 := time.Now()

	fillWindow(w, &srSender{}, t0)
	assert.Equal(t, 0, w.base)
	assert.Equal(t, 3, w.next)
	assert.False(t, w.hasRoom())
	assert.False(t, w.draining)
	assert.Equal(t, 3, w.inFlight())

	f, ok := w.frame(2)
	require.True(t, ok)
	assert.Equal(t, 2, f.frame.SeqNum)
	_, ok = w.frame(3)
	assert.False(t, ok)

	w.slide(2)
	assert.Equal(t, 2, w.base)
	assert.True(t, w.hasRoom())
	fillWindow(w, &srSender{}, t0)
	assert.Equal(t, 4, w.next)
	assert.True(t, w.draining)
	assert.False(t, w.hasRoom())
	f, ok = w.frame(3)
	require.True(t, ok)
	assert.True(t, f.frame.IsLast)
}

func TestSenderWindowBoundPanics(t *testing.T) {
	w := newTestWindow(4, 1)
	w.push(w.nextFrame(), time.Now())
	assert.Panics(t, func() { w.push(w.nextFrame(), time.Now()) })
}

func TestGoBackNSenderCumulativeAck(t *testing.T) {
	w := newTestWindow(5, 3)
	d := &gbnSender{timeout: time.Second, maxLastFrameResends: 10}
	t0 := time.Now()
	fillWindow(w, d, t0)
	assert.Equal(t, t0, d.timerStart)

	assert.False(t, d.acknowledge(w, 0, t0))
	assert.False(t, d.acknowledge(w, 4, t0))

	t1 := t0.Add(time.Millisecond)
	assert.True(t, d.acknowledge(w, 2, t1))
	assert.Equal(t, 2, w.base)
	assert.Equal(t, t1, d.timerStart)
	assert.Len(t, w.frames, 1)

	// duplicate cumulative ack
	assert.False(t, d.acknowledge(w, 2, t1))
}

func TestGoBackNSenderRetransmitsWholeWindow(t *testing.T) {
	w := newTestWindow(5, 3)
	d := &gbnSender{timeout: time.Second, maxLastFrameResends: 10}
	t0 := time.Now()
	fillWindow(w, d, t0)

	var resent []int
	resend := func(f *inFlightFrame) error {
		resent = append(resent, f.frame.SeqNum)
		return nil
	}

	n, err := d.retransmit(w, t0.Add(time.Second), resend)
	require.NoError(t, err)
	assert.Zero(t, n)

	t1 := t0.Add(time.Second + time.Millisecond)
	n, err = d.retransmit(w, t1, resend)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []int{0, 1, 2}, resent)
	assert.Equal(t, t1, d.timerStart)
}

func TestGoBackNSenderLastFrameResendLimit(t *testing.T) {
	w := newTestWindow(1, 3)
	d := &gbnSender{timeout: time.Millisecond, maxLastFrameResends: 2}
	now := time.Now()
	fillWindow(w, d, now)
	require.True(t, w.draining)

	resend := func(*inFlightFrame) error { return nil }
	now = now.Add(time.Second)
	_, err := d.retransmit(w, now, resend)
	require.NoError(t, err)
	now = now.Add(time.Second)
	_, err = d.retransmit(w, now, resend)
	assert.ErrorIs(t, err, ErrLastFrameResendLimit)
}

func TestSelectiveRepeatSenderSelectiveAck(t *testing.T) {
	w := newTestWindow(5, 3)
	d := &srSender{timeout: time.Second}
	t0 := time.Now()
	fillWindow(w, d, t0)

	assert.True(t, d.acknowledge(w, 2, t0))
	assert.True(t, d.acknowledge(w, 3, t0))
	assert.False(t, d.acknowledge(w, 3, t0))
	assert.False(t, d.acknowledge(w, 6, t0))
	assert.Equal(t, 0, w.base)
	assert.Equal(t, 1, w.inFlight())

	var resent []int
	n, err := d.retransmit(w, t0.Add(2*time.Second), func(f *inFlightFrame) error {
		resent = append(resent, f.frame.SeqNum)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []int{0}, resent)

	assert.True(t, d.acknowledge(w, 1, t0))
	assert.Equal(t, 3, w.base)
	assert.Empty(t, w.frames)
	assert.True(t, w.hasRoom())
}

func bufferedSeqs(st *receiverState) []int {
	seqs := make([]int, len(st.buffer))
	for i := range st.buffer {
		seqs[i] = st.buffer[i].SeqNum
	}
	return seqs
}
