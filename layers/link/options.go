package link

import (
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
)

type (
	// Option customizes a Sender or a Receiver.
	Option func(*options)

	options struct {
		corrupter Corrupter
		logger    logrus.FieldLogger
	}
)

// WithCorrupter replaces the corruption model built from the configs.
// For a Sender it applies to data frames, for a Receiver to acknowledgments.
func WithCorrupter(c Corrupter) Option {
	return func(o *options) {
		o.corrupter = c
	}
}

// WithLogger replaces the logger built from the configs.
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *options) {
		o.logger = l
	}
}

func newOptions(conf *Config, role string, p float64, seed int64, opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.corrupter == nil {
		o.corrupter = NewBernoulliCorrupter(p, seed)
	}
	if o.logger == nil {
		o.logger = logrus.
			WithField("link", conf.Name).
			WithField("discipline", conf.Discipline.String())
	}
	o.logger = o.logger.WithField("role", role)
	return o
}

// idle backs off a polling loop that made no progress in its last iteration.
func idle(d time.Duration) {
	if d <= 0 {
		runtime.Gosched()
		return
	}
	time.Sleep(d)
}
