package link_test

import (
	"bytes"
	"testing"

	"github.com/PozigunMikhail/GoBackNAndSelectiveRepeat/layers/link"

	"github.com/google/gopacket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeFrame(t *testing.T) {
	for _, tt := range []struct {
		name  string
		frame link.Frame
	}{
		{
			name:  "data",
			frame: link.Frame{SeqNum: 42, Data: []byte("hello")},
		},
		{
			name:  "last",
			frame: link.Frame{SeqNum: 7, Data: []byte("tail"), IsLast: true},
		},
		{
			name:  "ack",
			frame: link.Frame{SeqNum: 3},
		},
		{
			name:  "control",
			frame: link.Frame{SeqNum: link.ConnectionSeqNum},
		},
		{
			name:  "corrupted",
			frame: link.Frame{SeqNum: 1, Data: []byte("x"), IsCorrupted: true},
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			buf, err := link.EncodeFrame(tt.frame)
			require.NoError(t, err)
			assert.Len(t, buf, link.HeaderLength+len(tt.frame.Data)+link.ChecksumLength)

			frame, err := link.DecodeFrame(buf)
			require.NoError(t, err)
			assert.Equal(t, tt.frame, frame)
		})
	}
}

func TestDecodeFrameChecksumMismatch(t *testing.T) {
	buf, err := link.EncodeFrame(link.Frame{SeqNum: 5, Data: []byte("payload")})
	require.NoError(t, err)

	buf[link.HeaderLength] ^= 0xff
	frame, err := link.DecodeFrame(buf)
	require.NoError(t, err)
	assert.True(t, frame.IsCorrupted)
	assert.Equal(t, 5, frame.SeqNum)
}

func TestDecodeFrameTooShort(t *testing.T) {
	_, err := link.DecodeFrame(make([]byte, link.HeaderLength+link.ChecksumLength-1))
	assert.Error(t, err)
}

func TestEncodeFramePayloadTooLarge(t *testing.T) {
	_, err := link.EncodeFrame(link.Frame{Data: bytes.Repeat([]byte{1}, link.MTU+1)})
	assert.ErrorIs(t, err, link.ErrPayloadTooLarge)

	_, err = link.EncodeFrame(link.Frame{Data: bytes.Repeat([]byte{1}, link.MTU)})
	assert.NoError(t, err)
}

func TestFrameLayerDecodesAsGopacketLayer(t *testing.T) {
	buf, err := link.EncodeFrame(link.Frame{SeqNum: 9, Data: []byte("abc"), IsLast: true})
	require.NoError(t, err)

	pkt := gopacket.NewPacket(buf[:len(buf)-link.ChecksumLength], link.LayerTypeFrame, gopacket.Default)
	layer, ok := pkt.Layer(link.LayerTypeFrame).(*link.FrameLayer)
	require.True(t, ok)
	assert.Equal(t, int64(9), layer.SeqNum)
	assert.Equal(t, []byte("abc"), layer.Payload)
	require.NotNil(t, pkt.ApplicationLayer())
	assert.Equal(t, []byte("abc"), pkt.ApplicationLayer().Payload())
}

func TestIsControl(t *testing.T) {
	assert.True(t, link.Frame{SeqNum: link.ConnectionSeqNum}.IsControl())
	assert.False(t, link.Frame{SeqNum: 0}.IsControl())
	assert.False(t, link.Frame{SeqNum: link.ConnectionSeqNum, IsCorrupted: true}.IsControl())
}
