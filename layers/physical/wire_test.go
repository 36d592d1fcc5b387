package physical_test

import (
	"bytes"
	"context"
	"fmt"
	"math/bits"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/PozigunMikhail/GoBackNAndSelectiveRepeat/layers/physical"

	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newWirePair connects two wires listening on the given local ports.
// configure, if given, is applied to the config of the first wire.
func newWirePair(
	t *testing.T,
	port1, port2 int,
	configure func(conf *physical.FullDuplexUnreliableWireConfig),
) (physical.FullDuplexUnreliableWire, physical.FullDuplexUnreliableWire) {
	t.Helper()
	conf1 := physical.FullDuplexUnreliableWireConfig{
		RecvUDPEndpoint: fmt.Sprintf(":%d", port1),
		SendUDPEndpoint: fmt.Sprintf(":%d", port2),
	}
	if configure != nil {
		configure(&conf1)
	}
	wire1, err := physical.NewFullDuplexUnreliableWire(context.Background(), conf1)
	require.NoError(t, err)
	wire2, err := physical.NewFullDuplexUnreliableWire(context.Background(), physical.FullDuplexUnreliableWireConfig{
		RecvUDPEndpoint: fmt.Sprintf(":%d", port2),
		SendUDPEndpoint: fmt.Sprintf(":%d", port1),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, wire1.Close())
		assert.NoError(t, wire2.Close())
	})
	return wire1, wire2
}

func send(t *testing.T, wire physical.FullDuplexUnreliableWire, payload []byte) {
	t.Helper()
	n, err := wire.Send(context.Background(), payload)
	require.NoError(t, err)
	require.Equal(t, len(payload), n)
}

func recv(t *testing.T, wire physical.FullDuplexUnreliableWire, bufSize int) []byte {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	buf := make([]byte, bufSize)
	n, err := wire.Recv(ctx, buf)
	require.NoError(t, err)
	return buf[:n]
}

func TestConnectedWires(t *testing.T) {
	wire1, wire2 := newWirePair(t, 50001, 50002, nil)

	send(t, wire1, []byte("hello wire2"))
	send(t, wire2, []byte("hello wire1"))
	assert.Equal(t, []byte("hello wire2"), recv(t, wire2, len("hello wire2")))
	assert.Equal(t, []byte("hello wire1"), recv(t, wire1, len("hello wire1")))
}

func TestRecvIntoLargerBuffer(t *testing.T) {
	wire1, wire2 := newWirePair(t, 50011, 50012, nil)

	send(t, wire1, []byte("frame"))
	assert.Equal(t, []byte("frame"), recv(t, wire2, physical.MTU))
}

func TestSendValidation(t *testing.T) {
	wire, err := physical.NewFullDuplexUnreliableWire(context.Background(), physical.FullDuplexUnreliableWireConfig{
		RecvUDPEndpoint: ":50031",
		SendUDPEndpoint: ":50032",
	})
	require.NoError(t, err)

	_, err = wire.Send(context.Background(), nil)
	assert.ErrorIs(t, err, physical.ErrCannotSendEmpty)
	_, err = wire.Send(context.Background(), bytes.Repeat([]byte{1}, physical.MTU+1))
	assert.ErrorIs(t, err, physical.ErrPayloadTooLarge)

	require.NoError(t, wire.Close())
	require.NoError(t, wire.Close())
	_, err = wire.Send(context.Background(), []byte("x"))
	assert.ErrorIs(t, err, physical.ErrWireClosed)
	_, err = wire.Recv(context.Background(), make([]byte, 1))
	assert.ErrorIs(t, err, physical.ErrWireClosed)
}

func TestRecvCancelledByContext(t *testing.T) {
	wire, err := physical.NewFullDuplexUnreliableWire(context.Background(), physical.FullDuplexUnreliableWireConfig{
		RecvUDPEndpoint: ":50041",
		SendUDPEndpoint: ":50042",
	})
	require.NoError(t, err)
	defer wire.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = wire.Recv(ctx, make([]byte, 10))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRecvUnblockedByClose(t *testing.T) {
	wire, err := physical.NewFullDuplexUnreliableWire(context.Background(), physical.FullDuplexUnreliableWireConfig{
		RecvUDPEndpoint: ":50061",
		SendUDPEndpoint: ":50062",
	})
	require.NoError(t, err)

	errs := make(chan error, 1)
	go func() {
		_, err := wire.Recv(context.Background(), make([]byte, 10))
		errs <- err
	}()
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, wire.Close())

	select {
	case err := <-errs:
		assert.ErrorIs(t, err, physical.ErrWireClosed)
	case <-time.After(5 * time.Second):
		t.Fatal("recv was not unblocked by close")
	}
}

func TestNoiseFlipsOneBit(t *testing.T) {
	wire1, wire2 := newWirePair(t, 50071, 50072, func(conf *physical.FullDuplexUnreliableWireConfig) {
		conf.Noise = &physical.NoiseConfig{BitErrorProbability: 1, Seed: 3}
	})

	payload := []byte("some frame bytes")
	for i := 0; i < 5; i++ {
		send(t, wire1, payload)
		got := recv(t, wire2, physical.MTU)
		require.Len(t, got, len(payload))
		flipped := 0
		for j := range got {
			flipped += bits.OnesCount8(got[j] ^ payload[j])
		}
		assert.Equal(t, 1, flipped)
	}
	assert.Equal(t, []byte("some frame bytes"), payload)

	// the other direction has no noise
	send(t, wire2, payload)
	assert.Equal(t, payload, recv(t, wire1, physical.MTU))
}

func TestInvalidNoise(t *testing.T) {
	wire, err := physical.NewFullDuplexUnreliableWire(context.Background(), physical.FullDuplexUnreliableWireConfig{
		RecvUDPEndpoint: ":50081",
		SendUDPEndpoint: ":50082",
		Noise:           &physical.NoiseConfig{BitErrorProbability: 2},
	})
	assert.Nil(t, wire)
	assert.ErrorContains(t, err, "bit error probability must be in [0, 1], got 2")
}

func TestCapture(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "wire.pcapng")
	wire1, wire2 := newWirePair(t, 50051, 50052, func(conf *physical.FullDuplexUnreliableWireConfig) {
		conf.Capture = &physical.CaptureConfig{Filename: filename}
	})

	send(t, wire1, []byte("captured"))
	require.Equal(t, []byte("captured"), recv(t, wire2, physical.MTU))

	// the capture thread runs asynchronously
	var captured []byte
	assert.Eventually(t, func() bool {
		captured = readFirstCapturedPacket(filename)
		return captured != nil
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, []byte("captured"), captured)
}

func readFirstCapturedPacket(filename string) []byte {
	f, err := os.Open(filename)
	if err != nil {
		return nil
	}
	defer f.Close()
	r, err := pcapgo.NewNgReader(f, pcapgo.DefaultNgReaderOptions)
	if err != nil {
		return nil
	}
	data, _, err := r.ReadPacketData()
	if err != nil {
		return nil
	}
	return data
}
