package test

import (
	"context"
	"runtime/debug"
	"sync"
	"testing"
	"time"

	"github.com/PozigunMikhail/GoBackNAndSelectiveRepeat/layers/link"

	petname "github.com/dustinkirkland/golang-petname"
	"github.com/stretchr/testify/require"
)

type (
	// TransferResult holds the outcome of both ends of a transfer.
	TransferResult struct {
		SenderErr     error
		ReceiverErr   error
		Output        [][]byte
		SenderStats   link.SenderStats
		ReceiverStats link.ReceiverStats
	}
)

// FastLinkConfig returns link configs with timeouts short enough for tests
// but long enough for the scheduler not to fire timers spuriously.
func FastLinkConfig(discipline link.Discipline) link.Config {
	conf := link.DefaultConfig()
	conf.Name = "test"
	conf.Discipline = discipline
	conf.GBNTimeout = 30 * time.Millisecond
	conf.SRTimeout = 30 * time.Millisecond
	conf.ConnectRetryInterval = 10 * time.Millisecond
	conf.ConnectionTimeout = time.Second
	conf.TransmissionTimeout = 20 * time.Second
	conf.ReceiverDrainTimeout = 200 * time.Millisecond
	conf.MaxLastFrameResends = 1000
	conf.Seed = 42
	return conf
}

// RandomRecords generates n human readable records.
func RandomRecords(n int) [][]byte {
	records := make([][]byte, n)
	for i := range records {
		records[i] = []byte(petname.Generate(2, "-"))
	}
	return records
}

// StringRecords converts strings to records.
func StringRecords(s ...string) [][]byte {
	records := make([][]byte, len(s))
	for i := range s {
		records[i] = []byte(s[i])
	}
	return records
}

// RunTransfer connects a Sender and a Receiver through an in-process pipe,
// transfers records and waits for both ends to terminate.
func RunTransfer(
	t *testing.T,
	conf link.Config,
	records [][]byte,
	senderOpts []link.Option,
	receiverOpts []link.Option,
) *TransferResult {
	senderCh, receiverCh := link.NewPipe(0)
	defer senderCh.Close()

	sender, err := link.NewSender(senderCh, conf, senderOpts...)
	require.NoError(t, err)
	receiver, err := link.NewReceiver(receiverCh, conf, receiverOpts...)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	res := &TransferResult{}
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if res.ReceiverErr = receiver.WaitForConnection(ctx); res.ReceiverErr != nil {
			return
		}
		res.Output, res.ReceiverErr = receiver.Receive(ctx)
	}()

	if res.SenderErr = sender.WaitForConnection(ctx); res.SenderErr == nil {
		res.SenderErr = sender.Send(ctx, records)
	}
	if res.SenderErr != nil {
		cancel()
	}
	wg.Wait()

	res.SenderStats = sender.Stats()
	res.ReceiverStats = receiver.Stats()
	return res
}

// CollectFrames polls ch until n frames arrived or the timeout elapsed.
func CollectFrames(t *testing.T, ch link.Channel, n int, timeout time.Duration) []link.Frame {
	frames := make([]link.Frame, 0, n)
	deadline := time.Now().Add(timeout)
	for len(frames) < n {
		if time.Now().After(deadline) {
			t.Errorf("timeout collecting frames, want %d, got %d.\n%s", n, len(frames), string(debug.Stack()))
			return frames
		}
		if frame, ok := ch.TryRecv(); ok {
			frames = append(frames, frame)
			continue
		}
		time.Sleep(100 * time.Microsecond)
	}
	return frames
}

// DrainFrames returns every frame currently queued on ch.
func DrainFrames(ch link.Channel) []link.Frame {
	var frames []link.Frame
	for {
		frame, ok := ch.TryRecv()
		if !ok {
			return frames
		}
		frames = append(frames, frame)
	}
}

// SeqNums maps frames to their sequence numbers.
func SeqNums(frames []link.Frame) []int {
	seqs := make([]int, len(frames))
	for i := range frames {
		seqs[i] = frames[i].SeqNum
	}
	return seqs
}
