package network

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PozigunMikhail/GoBackNAndSelectiveRepeat/layers/link"

	"github.com/sirupsen/logrus"
)

type (
	// designatedNode merges the neighbor lists reported by all the nodes
	// into the global adjacency list and periodically broadcasts it back,
	// during sync windows.
	designatedNode struct {
		conf *NetworkConfig
		l    logrus.FieldLogger

		adjacency AdjacencyList
		mu        sync.Mutex

		// window is the generation of the last sync window and open
		// tells whether it is still open.
		window atomic.Int64
		open   atomic.Bool

		senders   map[int]*link.Sender
		receivers map[int]*link.Receiver
		links     []io.Closer
	}
)

func newDesignatedNode(conf *NetworkConfig) *designatedNode {
	return &designatedNode{
		conf:      conf,
		l:         logrus.WithField("node_id", "designated"),
		adjacency: make(AdjacencyList),
		senders:   make(map[int]*link.Sender),
		receivers: make(map[int]*link.Receiver),
	}
}

// run blocks until ctx is done and returns the final global topology.
func (d *designatedNode) run(ctx context.Context) AdjacencyList {
	var wg sync.WaitGroup
	for id, r := range d.receivers {
		id, r := id, r
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.receiveNeighborUpdates(ctx, id, r)
		}()
	}
	for id, s := range d.senders {
		id, s := id, s
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.sendTopologies(ctx, id, s)
		}()
	}

	// open a sync window once every interval
	d.l.Info("designated node started")
	ticker := time.NewTicker(d.conf.GraphSyncInterval)
	ctxDone := ctx.Done()
	for done := false; !done; {
		select {
		case <-ctxDone:
			done = true
		case <-ticker.C:
			d.l.Info("sending current topology to the nodes")
			d.window.Add(1)
			d.open.Store(true)
			sleep(ctx, d.conf.GraphSyncDuration)
			d.open.Store(false)
		}
	}
	ticker.Stop()
	wg.Wait()
	d.l.Info("designated node stopped")

	return d.snapshot()
}

func (d *designatedNode) receiveNeighborUpdates(ctx context.Context, nodeID int, r *link.Receiver) {
	l := d.l.WithField("from_node_id", nodeID)
	for ctx.Err() == nil {
		records, err := receive(ctx, r, d.conf.GraphSyncInterval, &d.conf.Link)
		if err != nil {
			continue
		}
		var rec neighborsRecord
		if err := decodeRecords(records, &rec); err != nil {
			l.
				WithError(err).
				Error("error decoding neighbors list")
			continue
		}
		if rec.Node != nodeID {
			l.
				WithField("record_node_id", rec.Node).
				Warn("neighbors list carries the id of another node, using the id of the link")
		}
		d.merge(nodeID, rec.Neighbors)
		neighborUpdatesReceived.Inc()
		l.
			WithField("neighbors", neighborIDs(rec.Neighbors)).
			Info("received neighbors list update")
	}
}

func (d *designatedNode) sendTopologies(ctx context.Context, nodeID int, s *link.Sender) {
	l := d.l.WithField("to_node_id", nodeID)
	ticker := time.NewTicker(d.conf.PollInterval)
	defer ticker.Stop()

	var sent int64
	ctxDone := ctx.Done()
	for {
		select {
		case <-ctxDone:
			return
		case <-ticker.C:
		}

		window := d.window.Load()
		if !d.open.Load() || window == sent {
			continue
		}
		records, err := encodeRecords(topologyRecord{Adjacency: d.snapshot()})
		if err != nil {
			l.
				WithError(err).
				Error("error encoding topology")
			continue
		}
		if err := s.WaitForConnection(ctx); err != nil {
			logTransferError(ctx, l, err, "error connecting to node")
			continue
		}
		if err := s.Send(ctx, records); err != nil {
			logTransferError(ctx, l, err, "error sending topology")
			continue
		}
		sent = window
		topologiesSent.Inc()
	}
}

// merge replaces every edge of node from with the reported neighbors.
// Edges are symmetric: each neighbor also gets an edge back to from.
func (d *designatedNode) merge(from int, neighbors []Neighbor) {
	d.mu.Lock()
	defer d.mu.Unlock()
	mergeNeighbors(d.adjacency, from, neighbors)
}

func (d *designatedNode) snapshot() AdjacencyList {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.adjacency.Clone()
}

func mergeNeighbors(adjacency AdjacencyList, from int, neighbors []Neighbor) {
	for id, list := range adjacency {
		kept := list[:0]
		for _, n := range list {
			if n.ID != from {
				kept = append(kept, n)
			}
		}
		adjacency[id] = kept
	}
	adjacency[from] = append([]Neighbor{}, neighbors...)
	for _, n := range neighbors {
		adjacency[n.ID] = append(adjacency[n.ID], Neighbor{ID: from, Weight: n.Weight})
	}
}
