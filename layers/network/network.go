package network

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/PozigunMikhail/GoBackNAndSelectiveRepeat/layers/link"
	pkgio "github.com/PozigunMikhail/GoBackNAndSelectiveRepeat/pkg/io"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

type (
	// Result is the outcome of Run().
	Result struct {
		Topology Topology
		// Reports holds the report of node i at index i.
		Reports []NodeReport
		// Adjacency is the global topology known by the designated node
		// when it stopped.
		Adjacency AdjacencyList
	}
)

// Run simulates the network described by conf: one node per vertex of the
// generated topology plus the designated node, every pair of adjacent
// nodes and every node and the designated node connected by one
// in-process pipe per direction. Each pipe carries exactly one
// Sender/Receiver pair. Run blocks until every node reached its lifetime
// or ctx is done.
func Run(ctx context.Context, conf NetworkConfig) (*Result, error) {
	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("invalid network config: %w", err)
	}
	topology, err := NewTopology(&conf)
	if err != nil {
		return nil, err
	}
	logrus.
		WithField("topology", conf.Topology).
		WithField("coordinates", topology.Coordinates).
		WithField("edges", topology.Edges).
		Info("network launch")

	// create nodes and links
	nodes := make([]*node, conf.Nodes)
	for i := range nodes {
		nodes[i] = newNode(i, &conf)
	}
	dn := newDesignatedNode(&conf)
	var closers []io.Closer
	defer func() {
		if err := pkgio.Close(closers...); err != nil {
			logrus.
				WithError(err).
				Error("error closing links")
		}
	}()
	var setupErr error
	newLink := func(name string) (*link.Sender, *link.Receiver, io.Closer) {
		senderCh, receiverCh := link.NewPipe(0)
		closers = append(closers, senderCh)
		linkConf := conf.linkConfig(name, len(closers))
		s, err := link.NewSender(senderCh, linkConf)
		if err != nil {
			setupErr = multierror.Append(setupErr, fmt.Errorf("error creating sender of link %s: %w", name, err))
		}
		r, err := link.NewReceiver(receiverCh, linkConf)
		if err != nil {
			setupErr = multierror.Append(setupErr, fmt.Errorf("error creating receiver of link %s: %w", name, err))
		}
		return s, r, senderCh
	}
	for _, e := range topology.Edges {
		for _, dir := range [][2]int{{e.A, e.B}, {e.B, e.A}} {
			from, to := dir[0], dir[1]
			s, r, ch := newLink(fmt.Sprintf("hello-%d-%d", from, to))
			nodes[from].helloSenders[to] = s
			nodes[to].helloReceivers[from] = r
			nodes[from].links = append(nodes[from].links, ch)
			nodes[to].links = append(nodes[to].links, ch)
		}
	}
	for i, n := range nodes {
		s, r, updateCh := newLink(fmt.Sprintf("update-%d", i))
		n.updateSender = s
		dn.receivers[i] = r

		s, r, topologyCh := newLink(fmt.Sprintf("topology-%d", i))
		dn.senders[i] = s
		n.topologyReceiver = r

		n.links = append(n.links, updateCh, topologyCh)
		dn.links = append(dn.links, updateCh, topologyCh)
	}
	if setupErr != nil {
		return nil, setupErr
	}

	// run
	res := &Result{
		Topology: topology,
		Reports:  make([]NodeReport, len(nodes)),
	}
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		dnCtx, cancel := context.WithTimeout(ctx, conf.designatedNodeLifetime())
		defer cancel()
		res.Adjacency = dn.run(dnCtx)
		stopLinks(dn.l, dn.links)
	}()
	for i, n := range nodes {
		i, n := i, n
		wg.Add(1)
		go func() {
			defer wg.Done()
			nodeCtx, cancel := context.WithTimeout(ctx, conf.nodeLifetime(i))
			defer cancel()
			res.Reports[i] = n.run(nodeCtx)
			stopLinks(n.l, n.links)
		}()
	}
	wg.Wait()
	logrus.Info("network stopped")

	return res, nil
}

// stopLinks closes the links of a stopped node, so its peers fail fast
// instead of filling the pipes with frames nobody will ever read.
func stopLinks(l logrus.FieldLogger, links []io.Closer) {
	if err := pkgio.Close(links...); err != nil {
		l.
			WithError(err).
			Error("error closing links")
	}
}

// WriteReports writes the report of every node as YAML to
// <dir>/<id>_outfile.yaml.
func WriteReports(dir string, reports []NodeReport) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("error creating output directory: %w", err)
	}
	var err error
	for i := range reports {
		if wErr := writeReport(dir, &reports[i]); wErr != nil {
			err = multierror.Append(err, wErr)
		}
	}
	return err
}

func writeReport(dir string, report *NodeReport) error {
	b, err := yaml.Marshal(report)
	if err != nil {
		return fmt.Errorf("error encoding report of node %d: %w", report.ID, err)
	}
	file := filepath.Join(dir, fmt.Sprintf("%d_outfile.yaml", report.ID))
	if err := os.WriteFile(file, b, 0o644); err != nil {
		return fmt.Errorf("error writing report of node %d: %w", report.ID, err)
	}
	return nil
}

// ReadReport reads a report written by WriteReports.
func ReadReport(file string) (*NodeReport, error) {
	b, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("error reading report: %w", err)
	}
	var report NodeReport
	if err := yaml.Unmarshal(b, &report); err != nil {
		return nil, fmt.Errorf("error decoding report: %w", err)
	}
	return &report, nil
}

// Destinations returns the destinations of the report in increasing order.
func (r *NodeReport) Destinations() []int {
	dsts := make([]int, 0, len(r.ShortestPaths))
	for dst := range r.ShortestPaths {
		dsts = append(dsts, dst)
	}
	sort.Ints(dsts)
	return dsts
}
