package network

import (
	"strconv"

	"github.com/PozigunMikhail/GoBackNAndSelectiveRepeat/observability"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type (
	nodeMetrics struct {
		hellosReceived      prometheus.Counter
		neighbors           prometheus.Gauge
		neighborUpdatesSent prometheus.Counter
		topologiesReceived  prometheus.Counter
	}
)

const (
	promSubsystemNode           = "node"
	promSubsystemDesignatedNode = "designated_node"
)

var (
	metricLabels = []string{
		observability.NodeID,
	}
	hellosReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: promNamespace,
		Subsystem: promSubsystemNode,
		Name:      "hellos_received",
		Help:      "Total number of hello transfers received from neighbors.",
	}, metricLabels)
	neighborsGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: promNamespace,
		Subsystem: promSubsystemNode,
		Name:      "neighbors",
		Help:      "Number of neighbors currently considered alive.",
	}, metricLabels)
	neighborUpdatesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: promNamespace,
		Subsystem: promSubsystemNode,
		Name:      "neighbor_updates_sent",
		Help:      "Total number of neighbor lists delivered to the designated node.",
	}, metricLabels)
	topologiesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: promNamespace,
		Subsystem: promSubsystemNode,
		Name:      "topologies_received",
		Help:      "Total number of topologies received from the designated node.",
	}, metricLabels)
	neighborUpdatesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Subsystem: promSubsystemDesignatedNode,
		Name:      "neighbor_updates_received",
		Help:      "Total number of neighbor lists merged into the global topology.",
	})
	topologiesSent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Subsystem: promSubsystemDesignatedNode,
		Name:      "topologies_sent",
		Help:      "Total number of topologies delivered to the nodes.",
	})
)

func newNodeMetrics(id int) nodeMetrics {
	labels := prometheus.Labels{observability.NodeID: strconv.Itoa(id)}
	return nodeMetrics{
		hellosReceived:      hellosReceived.With(labels),
		neighbors:           neighborsGauge.With(labels),
		neighborUpdatesSent: neighborUpdatesSent.With(labels),
		topologiesReceived:  topologiesReceived.With(labels),
	}
}
