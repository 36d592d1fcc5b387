package network

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"
)

type (
	// Point is the position of a node on the plane.
	Point struct {
		X int `yaml:"x"`
		Y int `yaml:"y"`
	}

	// Edge is an undirected edge between two nodes, with A < B.
	Edge struct {
		A int `yaml:"a"`
		B int `yaml:"b"`
	}

	// Topology is the physical graph of the network: node i sits at
	// Coordinates[i].
	Topology struct {
		Coordinates []Point `yaml:"coordinates"`
		Edges       []Edge  `yaml:"edges"`
	}
)

// NewTopology generates the topology described by conf.
func NewTopology(conf *NetworkConfig) (Topology, error) {
	switch TopologyKind(strings.ToLower(string(conf.Topology))) {
	case TopologyRing:
		return Ring(conf.Nodes), nil
	case TopologyStar:
		return Star(conf.Nodes), nil
	case TopologyRandom:
		seed := conf.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		return Random(conf.Nodes, conf.DistanceThreshold, rand.New(rand.NewSource(seed))), nil
	}
	return Topology{}, fmt.Errorf("unknown topology '%s'", conf.Topology)
}

// Ring places n nodes on a circle and connects each one to the next.
func Ring(n int) Topology {
	t := Topology{Coordinates: circle(n, 3)}
	for i := 0; i+1 < n; i++ {
		t.Edges = append(t.Edges, Edge{A: i, B: i + 1})
	}
	if n > 2 {
		t.Edges = append(t.Edges, Edge{A: 0, B: n - 1})
	}
	return t
}

// Star connects node 0, at the center, to n-1 nodes placed around it.
func Star(n int) Topology {
	if n < 1 {
		return Topology{}
	}
	t := Topology{Coordinates: append([]Point{{}}, circle(n-1, 4)...)}
	for i := 1; i < n; i++ {
		t.Edges = append(t.Edges, Edge{A: 0, B: i})
	}
	return t
}

// Random scatters n nodes over a square and connects every pair of
// nodes not farther apart than threshold.
func Random(n int, threshold float64, rnd *rand.Rand) Topology {
	t := Topology{Coordinates: make([]Point, n)}
	for i := range t.Coordinates {
		t.Coordinates[i] = Point{
			X: rnd.Intn(coordinateRange + 1),
			Y: rnd.Intn(coordinateRange + 1),
		}
	}
	for i := range t.Coordinates {
		for j := i + 1; j < n; j++ {
			if distance(t.Coordinates[i], t.Coordinates[j]) <= threshold {
				t.Edges = append(t.Edges, Edge{A: i, B: j})
			}
		}
	}
	return t
}

// Neighbors returns the ids of the nodes adjacent to every node.
func (t *Topology) Neighbors() map[int][]int {
	neighbors := make(map[int][]int, len(t.Coordinates))
	for _, e := range t.Edges {
		neighbors[e.A] = append(neighbors[e.A], e.B)
		neighbors[e.B] = append(neighbors[e.B], e.A)
	}
	return neighbors
}

func circle(n int, radius float64) []Point {
	if n < 1 {
		return nil
	}
	points := make([]Point, n)
	delta, phi := 2*math.Pi/float64(n), 0.0
	for i := range points {
		points[i] = Point{
			X: int(radius * math.Cos(phi)),
			Y: int(radius * math.Sin(phi)),
		}
		phi += delta
	}
	return points
}

func distance(a, b Point) float64 {
	return math.Hypot(float64(a.X-b.X), float64(a.Y-b.Y))
}
