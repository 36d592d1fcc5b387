package network

import (
	"context"
	"io"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PozigunMikhail/GoBackNAndSelectiveRepeat/layers/link"
	pkgcontext "github.com/PozigunMikhail/GoBackNAndSelectiveRepeat/pkg/context"

	petname "github.com/dustinkirkland/golang-petname"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/sirupsen/logrus"
)

type (
	// NodeReport is the state of a node when it stopped.
	NodeReport struct {
		ID            int           `yaml:"id"`
		Neighbors     []int         `yaml:"neighbors"`
		Adjacency     AdjacencyList `yaml:"adjacency"`
		ShortestPaths map[int][]int `yaml:"shortestPaths"`
	}

	// node discovers its neighbors with hello transfers, reports them to
	// the designated node and builds its routing table from the topology
	// the designated node broadcasts back.
	node struct {
		id      int
		conf    *NetworkConfig
		l       logrus.FieldLogger
		metrics nodeMetrics

		neighbors *xsync.MapOf[int, Neighbor]
		// version is bumped on every change of neighbors
		version atomic.Int64
		routes  *RoutingTable

		helloSenders     map[int]*link.Sender
		helloReceivers   map[int]*link.Receiver
		updateSender     *link.Sender
		topologyReceiver *link.Receiver
		links            []io.Closer
	}
)

func newNode(id int, conf *NetworkConfig) *node {
	return &node{
		id:   id,
		conf: conf,
		l: logrus.
			WithField("node_id", id).
			WithField("node_name", petname.Generate(2, "-")),
		metrics:        newNodeMetrics(id),
		neighbors:      xsync.NewMapOf[int, Neighbor](),
		routes:         NewRoutingTable(id),
		helloSenders:   make(map[int]*link.Sender),
		helloReceivers: make(map[int]*link.Receiver),
	}
}

// run blocks until ctx is done and returns the final state of the node.
func (n *node) run(ctx context.Context) NodeReport {
	var wg sync.WaitGroup
	start := func(f func(ctx context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f(ctx)
		}()
	}

	for id, s := range n.helloSenders {
		id, s := id, s
		start(func(ctx context.Context) { n.sendHellos(ctx, id, s) })
	}
	for id, r := range n.helloReceivers {
		id, r := id, r
		start(func(ctx context.Context) { n.receiveHellos(ctx, id, r) })
	}
	start(n.sendNeighborUpdates)
	start(n.receiveTopologies)

	n.l.Info("node started")
	wg.Wait()
	n.l.Info("node stopped, saving paths and topology")

	return NodeReport{
		ID:            n.id,
		Neighbors:     neighborIDs(n.neighborList()),
		Adjacency:     n.routes.Adjacency(),
		ShortestPaths: n.routes.Paths(),
	}
}

func (n *node) sendHellos(ctx context.Context, neighborID int, s *link.Sender) {
	l := n.l.WithField("neighbor_id", neighborID)
	for ctx.Err() == nil {
		if err := s.WaitForConnection(ctx); err != nil {
			logTransferError(ctx, l, err, "error connecting to neighbor")
		} else if err := s.Send(ctx, [][]byte{[]byte(helloRecord)}); err != nil {
			logTransferError(ctx, l, err, "error sending hello")
		}
		sleep(ctx, n.conf.HelloInterval)
	}
}

func (n *node) receiveHellos(ctx context.Context, neighborID int, r *link.Receiver) {
	l := n.l.WithField("neighbor_id", neighborID)
	lastHello := time.Now()
	for ctx.Err() == nil {
		records, err := receive(ctx, r, n.conf.HelloTimeout, &n.conf.Link)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if time.Since(lastHello) > n.conf.HelloTimeout && n.removeNeighbor(neighborID) {
				l.Info("neighbor seems to be dead, excluding from neighbors")
			}
			continue
		}
		if len(records) != 1 || string(records[0]) != helloRecord {
			l.
				WithField("records", len(records)).
				Warn("unexpected hello")
			continue
		}
		lastHello = time.Now()
		n.metrics.hellosReceived.Inc()
		if n.addNeighbor(neighborID) {
			l.Info("neighbor discovered, appending to neighbors")
		}
	}
}

func (n *node) sendNeighborUpdates(ctx context.Context) {
	ticker := time.NewTicker(n.conf.PollInterval)
	defer ticker.Stop()

	var sent int64
	ctxDone := ctx.Done()
	for {
		select {
		case <-ctxDone:
			return
		case <-ticker.C:
		}

		version := n.version.Load()
		if version == sent {
			continue
		}
		records, err := encodeRecords(neighborsRecord{
			Node:      n.id,
			Neighbors: n.neighborList(),
		})
		if err != nil {
			n.l.
				WithError(err).
				Error("error encoding neighbors list")
			continue
		}

		n.l.Info("send neighbors list update to the designated node")
		if err := n.updateSender.WaitForConnection(ctx); err != nil {
			logTransferError(ctx, n.l, err, "error connecting to the designated node")
			continue
		}
		if err := n.updateSender.Send(ctx, records); err != nil {
			logTransferError(ctx, n.l, err, "error sending neighbors list")
			continue
		}
		sent = version
		n.metrics.neighborUpdatesSent.Inc()
	}
}

func (n *node) receiveTopologies(ctx context.Context) {
	for ctx.Err() == nil {
		records, err := receive(ctx, n.topologyReceiver, n.conf.GraphSyncInterval, &n.conf.Link)
		if err != nil {
			continue
		}
		var rec topologyRecord
		if err := decodeRecords(records, &rec); err != nil {
			n.l.
				WithError(err).
				Error("error decoding topology")
			continue
		}
		n.metrics.topologiesReceived.Inc()

		if n.routes.Update(rec.Adjacency) {
			n.l.Info("received updated topology, shortest paths have been rebuilt")
		} else {
			n.l.Info("received updated topology, node isolated from others, can't determine paths")
		}
	}
}

func (n *node) addNeighbor(id int) bool {
	if _, loaded := n.neighbors.LoadOrStore(id, Neighbor{ID: id, Weight: edgeWeight}); loaded {
		return false
	}
	n.version.Add(1)
	n.metrics.neighbors.Inc()
	return true
}

func (n *node) removeNeighbor(id int) bool {
	if _, loaded := n.neighbors.LoadAndDelete(id); !loaded {
		return false
	}
	n.version.Add(1)
	n.metrics.neighbors.Dec()
	return true
}

// neighborList returns the current neighbors sorted by id.
func (n *node) neighborList() []Neighbor {
	neighbors := make([]Neighbor, 0, n.neighbors.Size())
	n.neighbors.Range(func(_ int, neighbor Neighbor) bool {
		neighbors = append(neighbors, neighbor)
		return true
	})
	sort.Slice(neighbors, func(i, j int) bool {
		return neighbors[i].ID < neighbors[j].ID
	})
	return neighbors
}

// receive runs one session on r. The handshake is bounded by
// handshakeTimeout and the transfer by the transmission timeout plus
// the drain timeout of the link.
func receive(
	ctx context.Context,
	r *link.Receiver,
	handshakeTimeout time.Duration,
	conf *link.Config,
) ([][]byte, error) {
	handshakeCtx, cancel := context.WithTimeout(ctx, handshakeTimeout)
	err := r.WaitForConnection(handshakeCtx)
	cancel()
	if err != nil {
		return nil, err
	}

	recvCtx, cancel := context.WithTimeout(ctx, conf.TransmissionTimeout+conf.ReceiverDrainTimeout)
	defer cancel()
	return r.Receive(recvCtx)
}

// logTransferError logs failed sessions that were not caused by the
// shutdown of ctx. Peers going silent is expected, hence Debug.
func logTransferError(ctx context.Context, l logrus.FieldLogger, err error, msg string) {
	if pkgcontext.IsContextError(ctx, err) {
		return
	}
	l.
		WithError(err).
		Debug(msg)
}

func sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func neighborIDs(neighbors []Neighbor) []int {
	ids := make([]int, len(neighbors))
	for i := range neighbors {
		ids[i] = neighbors[i].ID
	}
	return ids
}
