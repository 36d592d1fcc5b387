package link

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/PozigunMikhail/GoBackNAndSelectiveRepeat/layers/physical"

	"github.com/sirupsen/logrus"
)

type (
	// WireChannelConfig contains the configs for NewWireChannel().
	WireChannelConfig struct {
		Medium physical.FullDuplexUnreliableWireConfig `yaml:"fullDuplexUnreliableWire"`
	}

	// wireChannel carries frames over a physical wire. A send thread
	// drains the outbound queue into the wire and a recv thread decodes
	// inbound buffers into the inbound queue, so TryRecv() and Send()
	// never touch the wire directly.
	wireChannel struct {
		ctx       context.Context
		cancelCtx context.CancelFunc
		conf      *WireChannelConfig
		l         logrus.FieldLogger
		medium    physical.FullDuplexUnreliableWire
		out       chan []byte
		in        chan Frame
		wg        sync.WaitGroup
		closeOnce sync.Once
		closeErr  error
	}
)

// NewWireChannel creates a Channel on top of a FullDuplexUnreliableWire
// created from config.
func NewWireChannel(ctx context.Context, conf WireChannelConfig) (Channel, error) {
	medium, err := physical.NewFullDuplexUnreliableWire(ctx, conf.Medium)
	if err != nil {
		return nil, fmt.Errorf("error creating medium: %w", err)
	}
	return newWireChannel(medium, &conf), nil
}

func newWireChannel(medium physical.FullDuplexUnreliableWire, conf *WireChannelConfig) *wireChannel {
	ctx, cancel := context.WithCancel(context.Background())
	w := &wireChannel{
		ctx:       ctx,
		cancelCtx: cancel,
		conf:      conf,
		l: logrus.
			WithField("recv_udp_endpoint", conf.Medium.RecvUDPEndpoint).
			WithField("send_udp_endpoint", conf.Medium.SendUDPEndpoint),
		medium: medium,
		out:    make(chan []byte, channelSize),
		in:     make(chan Frame, channelSize),
	}
	w.startThreads()
	return w
}

func (w *wireChannel) startThreads() {
	// send
	ctxDone := w.ctx.Done()
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case <-ctxDone:
				return
			case buf := <-w.out:
				got, err := w.medium.Send(w.ctx, buf)
				if err != nil {
					if errors.Is(err, context.Canceled) {
						return
					}
					w.l.
						WithError(err).
						Error("error sending frame")
				} else if want := len(buf); got < want {
					w.l.
						WithField("want", want).
						WithField("got", got).
						Error("wrong number of bytes sent for frame")
				}
			}
		}
	}()

	// recv
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			buf := make([]byte, 2*physical.MTU)
			n, err := w.medium.Recv(w.ctx, buf)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, physical.ErrWireClosed) {
					return
				}
				w.l.
					WithError(err).
					Error("error receiving frame")
				continue
			}
			if n == 0 {
				continue
			}
			w.decap(buf[:n])
		}
	}()
}

func (w *wireChannel) decap(frameBuf []byte) {
	frame, err := DecodeFrame(frameBuf)
	if err != nil {
		w.l.
			WithError(err).
			WithField("frame_buf", frameBuf).
			Error("error decapsulating frame")
		return
	}

	select {
	case <-w.ctx.Done():
	case w.in <- frame:
	}
}

func (w *wireChannel) TryRecv() (Frame, bool) {
	select {
	case frame := <-w.in:
		return frame, true
	default:
		return Frame{}, false
	}
}

func (w *wireChannel) Send(frame Frame) error {
	buf, err := EncodeFrame(frame)
	if err != nil {
		return err
	}
	if w.ctx.Err() != nil {
		return ErrChannelClosed
	}
	select {
	case <-w.ctx.Done():
		return ErrChannelClosed
	case w.out <- buf:
		return nil
	}
}

func (w *wireChannel) Close() error {
	w.closeOnce.Do(func() {
		// cancel ctx and wait threads
		w.cancelCtx()
		w.wg.Wait()
		w.closeErr = w.medium.Close()
	})
	return w.closeErr
}
