package link_test

import (
	"testing"

	"github.com/PozigunMikhail/GoBackNAndSelectiveRepeat/layers/link"
	"github.com/PozigunMikhail/GoBackNAndSelectiveRepeat/test"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipeIsDuplexFIFO(t *testing.T) {
	a, b := link.NewPipe(0)
	defer a.Close()

	_, ok := a.TryRecv()
	assert.False(t, ok)

	for i := 0; i < 3; i++ {
		require.NoError(t, a.Send(link.Frame{SeqNum: i}))
	}
	require.NoError(t, b.Send(link.Frame{SeqNum: 100}))

	assert.Equal(t, []int{0, 1, 2}, test.SeqNums(test.DrainFrames(b)))
	assert.Equal(t, []int{100}, test.SeqNums(test.DrainFrames(a)))
}

func TestPipeClose(t *testing.T) {
	a, b := link.NewPipe(1)
	require.NoError(t, a.Send(link.Frame{SeqNum: 1}))
	require.NoError(t, b.Close())
	require.NoError(t, a.Close())

	assert.ErrorIs(t, a.Send(link.Frame{}), link.ErrChannelClosed)
	assert.ErrorIs(t, b.Send(link.Frame{}), link.ErrChannelClosed)

	// frames queued before the close are still readable
	frame, ok := b.TryRecv()
	assert.True(t, ok)
	assert.Equal(t, 1, frame.SeqNum)
}

func TestPipeSendUnblocksOnClose(t *testing.T) {
	a, _ := link.NewPipe(1)
	require.NoError(t, a.Send(link.Frame{}))

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Send(link.Frame{})
	}()
	require.NoError(t, a.Close())
	assert.ErrorIs(t, <-errCh, link.ErrChannelClosed)
}
