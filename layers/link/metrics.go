package link

import (
	"github.com/PozigunMikhail/GoBackNAndSelectiveRepeat/observability"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type (
	// SenderStats are the diagnostic counters of a Sender. FramesSent
	// counts every physical transmission of a data frame, retransmissions
	// included.
	SenderStats struct {
		FramesSent      int
		Retransmissions int
		AcksReceived    int
		CorruptedAcks   int
		StrayAcks       int
	}

	// ReceiverStats are the diagnostic counters of a Receiver.
	ReceiverStats struct {
		FramesReceived  int
		CorruptedFrames int
		AcksSent        int
		Delivered       int
		Buffered        int
	}

	senderMetrics struct {
		framesSent      prometheus.Counter
		retransmissions prometheus.Counter
		acksReceived    prometheus.Counter
		corruptedAcks   prometheus.Counter
		strayAcks       prometheus.Counter
	}

	receiverMetrics struct {
		framesReceived  prometheus.Counter
		corruptedFrames prometheus.Counter
		acksSent        prometheus.Counter
		delivered       prometheus.Counter
	}
)

const (
	promSubsystemSender   = "sender"
	promSubsystemReceiver = "receiver"
)

var (
	metricLabels = []string{
		observability.LinkName,
		observability.Discipline,
	}
	framesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: promNamespace,
		Subsystem: promSubsystemSender,
		Name:      "frames_sent",
		Help:      "Total number of transmitted data frames, retransmissions included.",
	}, metricLabels)
	retransmissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: promNamespace,
		Subsystem: promSubsystemSender,
		Name:      "retransmissions",
		Help:      "Total number of data frames retransmitted after a timeout.",
	}, metricLabels)
	acksReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: promNamespace,
		Subsystem: promSubsystemSender,
		Name:      "acks_received",
		Help:      "Total number of received acknowledgments that were not corrupted.",
	}, metricLabels)
	corruptedAcks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: promNamespace,
		Subsystem: promSubsystemSender,
		Name:      "corrupted_acks",
		Help:      "Total number of discarded corrupted acknowledgments.",
	}, metricLabels)
	strayAcks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: promNamespace,
		Subsystem: promSubsystemSender,
		Name:      "stray_or_delayed_acks",
		Help:      "Total number of acknowledgments that did not move the window.",
	}, metricLabels)
	framesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: promNamespace,
		Subsystem: promSubsystemReceiver,
		Name:      "frames_received",
		Help:      "Total number of received data frames that were not corrupted.",
	}, metricLabels)
	corruptedFrames = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: promNamespace,
		Subsystem: promSubsystemReceiver,
		Name:      "corrupted_frames",
		Help:      "Total number of discarded corrupted data frames.",
	}, metricLabels)
	acksSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: promNamespace,
		Subsystem: promSubsystemReceiver,
		Name:      "acks_sent",
		Help:      "Total number of transmitted acknowledgments.",
	}, metricLabels)
	deliveredRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: promNamespace,
		Subsystem: promSubsystemReceiver,
		Name:      "delivered_records",
		Help:      "Total number of records delivered to the output stream.",
	}, metricLabels)
)

func newMetricLabels(conf *Config) prometheus.Labels {
	name := conf.Name
	if name == "" {
		name = "default"
	}
	return prometheus.Labels{
		observability.LinkName:   name,
		observability.Discipline: conf.Discipline.String(),
	}
}

func newSenderMetrics(conf *Config) senderMetrics {
	labels := newMetricLabels(conf)
	return senderMetrics{
		framesSent:      framesSent.With(labels),
		retransmissions: retransmissions.With(labels),
		acksReceived:    acksReceived.With(labels),
		corruptedAcks:   corruptedAcks.With(labels),
		strayAcks:       strayAcks.With(labels),
	}
}

func newReceiverMetrics(conf *Config) receiverMetrics {
	labels := newMetricLabels(conf)
	return receiverMetrics{
		framesReceived:  framesReceived.With(labels),
		corruptedFrames: corruptedFrames.With(labels),
		acksSent:        acksSent.With(labels),
		delivered:       deliveredRecords.With(labels),
	}
}
