package physical

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcapgo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

type (
	// CaptureConfig allows specifying configurations for capturing
	// traffic in the pcapng format.
	CaptureConfig struct {
		Filename string `yaml:"filename"`
	}

	// capturer writes every payload crossing the wire, in both directions,
	// to a pcapng file from a single thread.
	capturer struct {
		ch      chan []byte
		pending prometheus.Gauge
		wg      sync.WaitGroup
	}
)

func startCapture(ctx context.Context, filename string, l logrus.FieldLogger, pending prometheus.Gauge) (*capturer, error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("error creating capture file %s: %w", filename, err)
	}
	w, err := pcapgo.NewNgWriter(file, captureLinkType)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("error creating pcapng writer: %w", err)
	}

	c := &capturer{
		ch:      make(chan []byte, channelSize),
		pending: pending,
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer file.Close()
		defer w.Flush()

		ctxDone := ctx.Done()
		for {
			select {
			case <-ctxDone:
				return
			case b := <-c.ch:
				c.pending.Dec()
				ci := gopacket.CaptureInfo{
					Timestamp:     time.Now(),
					CaptureLength: len(b),
					Length:        len(b),
				}
				if err := w.WritePacket(ci, b); err != nil {
					l.
						WithError(err).
						Error("error capturing payload")
					continue
				}
				if err := w.Flush(); err != nil {
					l.
						WithError(err).
						Error("error flushing capture")
				}
			}
		}
	}()

	return c, nil
}

// add queues a copy of b. Payloads are dropped from the capture when the
// queue is full, the wire itself is never slowed down by the capture.
func (c *capturer) add(b []byte) {
	if c == nil {
		return
	}
	c.pending.Inc()
	select {
	case c.ch <- append([]byte(nil), b...):
	default:
		c.pending.Dec()
	}
}

func (c *capturer) wait() {
	if c != nil {
		c.wg.Wait()
	}
}
