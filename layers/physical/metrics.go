package physical

import (
	"github.com/PozigunMikhail/GoBackNAndSelectiveRepeat/observability"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type wireMetrics struct {
	recvdBytes      prometheus.Counter
	sentBytes       prometheus.Counter
	recvLatencyNs   prometheus.Observer
	sendLatencyNs   prometheus.Observer
	flippedPayloads prometheus.Counter
	pendingCaptures prometheus.Gauge
}

const (
	promSubsystemWire        = "wire"
	labelNameRecvUDPEndpoint = "recv_udp_endpoint"
	labelNameSendUDPEndpoint = "send_udp_endpoint"
)

var (
	wireMetricLabels = []string{
		observability.LinkName,
		labelNameRecvUDPEndpoint,
		labelNameSendUDPEndpoint,
	}
	recvdBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: promNamespace,
		Subsystem: promSubsystemWire,
		Name:      "recvd_bytes",
		Help:      "Total number of received bytes.",
	}, wireMetricLabels)
	sentBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: promNamespace,
		Subsystem: promSubsystemWire,
		Name:      "sent_bytes",
		Help:      "Total number of sent bytes.",
	}, wireMetricLabels)
	recvLatencyNs = promauto.NewSummaryVec(prometheus.SummaryOpts{
		Namespace: promNamespace,
		Subsystem: promSubsystemWire,
		Name:      "recv_latency_ns",
		Help:      "Latency in nanoseconds of FullDuplexUnreliableWire.Recv().",
	}, wireMetricLabels)
	sendLatencyNs = promauto.NewSummaryVec(prometheus.SummaryOpts{
		Namespace: promNamespace,
		Subsystem: promSubsystemWire,
		Name:      "send_latency_ns",
		Help:      "Latency in nanoseconds of FullDuplexUnreliableWire.Send().",
	}, wireMetricLabels)
	flippedPayloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: promNamespace,
		Subsystem: promSubsystemWire,
		Name:      "flipped_payloads",
		Help:      "Total number of sent payloads that had a bit flipped by the noise model.",
	}, wireMetricLabels)
	pendingCaptures = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: promNamespace,
		Subsystem: promSubsystemWire,
		Name:      "pending_captures",
		Help:      "Number of payloads waiting to be written to the capture file.",
	}, wireMetricLabels)
)

func newWireMetrics(conf *FullDuplexUnreliableWireConfig) wireMetrics {
	linkName := conf.MetricLabels.LinkName
	if linkName == "" {
		linkName = "default"
	}
	labels := prometheus.Labels{
		observability.LinkName:   linkName,
		labelNameRecvUDPEndpoint: conf.RecvUDPEndpoint,
		labelNameSendUDPEndpoint: conf.SendUDPEndpoint,
	}
	return wireMetrics{
		recvdBytes:      recvdBytes.With(labels),
		sentBytes:       sentBytes.With(labels),
		recvLatencyNs:   recvLatencyNs.With(labels),
		sendLatencyNs:   sendLatencyNs.With(labels),
		flippedPayloads: flippedPayloads.With(labels),
		pendingCaptures: pendingCaptures.With(labels),
	}
}
