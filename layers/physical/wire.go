package physical

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"syscall"
	"time"

	pkgcontext "github.com/PozigunMikhail/GoBackNAndSelectiveRepeat/pkg/context"

	"github.com/sirupsen/logrus"
)

type (
	// FullDuplexUnreliableWire represents a hypothetical guided
	// medium where you can send and receive bytes at the same time.
	// No guarantee is provided about the delivery/integrity.
	FullDuplexUnreliableWire interface {
		Send(ctx context.Context, payload []byte) (n int, err error)
		Recv(ctx context.Context, payload []byte) (n int, err error)
		Close() error
	}

	// FullDuplexUnreliableWireConfig contains the UDP configs for
	// the concrete implementation of FullDuplexUnreliableWire.
	FullDuplexUnreliableWireConfig struct {
		RecvUDPEndpoint string         `yaml:"recvUDPEndpoint"`
		SendUDPEndpoint string         `yaml:"sendUDPEndpoint"`
		Capture         *CaptureConfig `yaml:"capture"`
		Noise           *NoiseConfig   `yaml:"noise"`
		MetricLabels    struct {
			LinkName string `yaml:"linkName"`
		} `yaml:"metricLabels"`
	}

	// udpWire is a FullDuplexUnreliableWire on a connected UDP socket
	// bound to the recv endpoint.
	udpWire struct {
		ctx       context.Context
		cancelCtx context.CancelFunc
		conn      net.Conn
		metrics   wireMetrics
		noise     *noise
		capture   *capturer
		closeOnce sync.Once
		closeErr  error
	}
)

// NewFullDuplexUnreliableWire creates a FullDuplexUnreliableWire from config.
func NewFullDuplexUnreliableWire(
	ctx context.Context,
	conf FullDuplexUnreliableWireConfig,
) (FullDuplexUnreliableWire, error) {
	metrics := newWireMetrics(&conf)
	wireNoise, err := newNoise(conf.Noise, metrics.flippedPayloads)
	if err != nil {
		return nil, err
	}

	// bind the recv endpoint and connect to the send endpoint
	recvAddr, err := net.ResolveUDPAddr("udp", conf.RecvUDPEndpoint)
	if err != nil {
		return nil, fmt.Errorf("error resolving udp address of recv endpoint: %w", err)
	}
	dialer := &net.Dialer{LocalAddr: recvAddr}
	conn, err := dialer.DialContext(ctx, "udp", conf.SendUDPEndpoint)
	if err != nil {
		return nil, fmt.Errorf("error dialing udp: %w", err)
	}

	wireCtx, cancel := context.WithCancel(context.Background())
	w := &udpWire{
		ctx:       wireCtx,
		cancelCtx: cancel,
		conn:      conn,
		metrics:   metrics,
		noise:     wireNoise,
	}
	if conf.Capture != nil {
		l := logrus.
			WithField("recv_udp_endpoint", conf.RecvUDPEndpoint).
			WithField("send_udp_endpoint", conf.SendUDPEndpoint)
		w.capture, err = startCapture(wireCtx, conf.Capture.Filename, l, metrics.pendingCaptures)
		if err != nil {
			cancel()
			conn.Close()
			return nil, err
		}
	}

	return w, nil
}

func (w *udpWire) Send(ctx context.Context, payload []byte) (int, error) {
	if len(payload) == 0 {
		return 0, ErrCannotSendEmpty
	}
	if len(payload) > MTU {
		return 0, ErrPayloadTooLarge
	}
	if w.ctx.Err() != nil {
		return 0, ErrWireClosed
	}

	onWire := w.noise.apply(payload)
	n, err := w.interruptible(ctx, w.conn.SetWriteDeadline, func() (int, error) {
		t0 := time.Now()
		n, err := w.conn.Write(onWire)
		w.metrics.sendLatencyNs.Observe(float64(time.Since(t0).Nanoseconds()))
		return n, err
	})
	if err != nil {
		return 0, err
	}
	w.metrics.sentBytes.Add(float64(n))
	w.capture.add(onWire[:n])
	return n, nil
}

func (w *udpWire) Recv(ctx context.Context, payload []byte) (int, error) {
	if w.ctx.Err() != nil {
		return 0, ErrWireClosed
	}

	n, err := w.interruptible(ctx, w.conn.SetReadDeadline, func() (int, error) {
		t0 := time.Now()
		n, err := w.conn.Read(payload)
		w.metrics.recvLatencyNs.Observe(float64(time.Since(t0).Nanoseconds()))
		if errors.Is(err, syscall.ECONNREFUSED) {
			// the peer socket is not bound yet. from the point of view
			// of the wire this is just silence
			return 0, nil
		}
		return n, err
	})
	if err != nil || n == 0 {
		return 0, err
	}
	w.metrics.recvdBytes.Add(float64(n))
	w.capture.add(payload[:n])
	return n, nil
}

// interruptible runs op on a separate thread. If ctx is done or the wire
// is closed first, op is unblocked by expiring its deadline.
func (w *udpWire) interruptible(
	ctx context.Context,
	setDeadline func(t time.Time) error,
	op func() (int, error),
) (int, error) {
	if err := setDeadline(time.Time{}); err != nil {
		return 0, fmt.Errorf("error clearing deadline: %w", err)
	}

	var n int
	var err error
	done := make(chan struct{})
	go func() {
		defer close(done)
		n, err = op()
	}()

	opCtx, cancel := pkgcontext.WithCancelOnAnotherContext(ctx, w.ctx)
	defer cancel()
	select {
	case <-done:
		return n, err
	case <-opCtx.Done():
	}

	dErr := setDeadline(time.Now())
	<-done
	if dErr != nil {
		return 0, fmt.Errorf("error expiring deadline after context done: %w", dErr)
	}
	if ctx.Err() != nil {
		return 0, ctx.Err()
	}
	return 0, ErrWireClosed
}

func (w *udpWire) Close() error {
	w.closeOnce.Do(func() {
		w.cancelCtx()
		w.capture.wait()
		w.closeErr = w.conn.Close()
	})
	return w.closeErr
}
