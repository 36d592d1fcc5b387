package network

import (
	"container/heap"
	"math"
	"sort"
)

type (
	// Neighbor is an entry of an adjacency list.
	Neighbor struct {
		ID     int `yaml:"id"`
		Weight int `yaml:"weight"`
	}

	// AdjacencyList maps every known node to its neighbors.
	AdjacencyList map[int][]Neighbor

	// distanceQueue is a min-heap of tentative distances.
	distanceQueue []*queuedNode

	queuedNode struct {
		id       int
		distance int
		index    int
	}
)

// Clone returns a deep copy of a.
func (a AdjacencyList) Clone() AdjacencyList {
	c := make(AdjacencyList, len(a))
	for id, neighbors := range a {
		c[id] = append([]Neighbor{}, neighbors...)
	}
	return c
}

// Nodes returns the ids of all the nodes of a in increasing order,
// including the ones only seen as neighbors.
func (a AdjacencyList) Nodes() []int {
	seen := make(map[int]struct{}, len(a))
	for id, neighbors := range a {
		seen[id] = struct{}{}
		for _, n := range neighbors {
			seen[n.ID] = struct{}{}
		}
	}
	ids := make([]int, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// ShortestPath runs Dijkstra's algorithm over a and returns the nodes
// of a shortest path from src to dst, both included. An unreachable
// dst yields an empty path.
func ShortestPath(a AdjacencyList, src, dst int) []int {
	if src == dst {
		return []int{src}
	}

	dist := map[int]int{src: 0}
	prev := make(map[int]int)
	visited := make(map[int]bool)
	q := &distanceQueue{}
	heap.Push(q, &queuedNode{id: src})
	for q.Len() > 0 {
		u := heap.Pop(q).(*queuedNode)
		if visited[u.id] {
			continue
		}
		if u.id == dst {
			break
		}
		visited[u.id] = true
		for _, v := range a[u.id] {
			if visited[v.ID] {
				continue
			}
			d, ok := dist[v.ID]
			if !ok {
				d = math.MaxInt
			}
			if alt := u.distance + v.Weight; alt < d {
				dist[v.ID] = alt
				prev[v.ID] = u.id
				heap.Push(q, &queuedNode{id: v.ID, distance: alt})
			}
		}
	}

	if _, ok := prev[dst]; !ok {
		return nil
	}
	path := []int{dst}
	for u := dst; u != src; {
		u = prev[u]
		path = append(path, u)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// ShortestPaths computes the shortest paths from src to every other
// node of a. It returns nil when src has no neighbors, because an
// isolated node cannot determine any path.
func ShortestPaths(a AdjacencyList, src int) map[int][]int {
	if len(a[src]) == 0 {
		return nil
	}
	paths := make(map[int][]int)
	for _, dst := range a.Nodes() {
		if dst != src {
			paths[dst] = ShortestPath(a, src, dst)
		}
	}
	return paths
}

func (q distanceQueue) Len() int { return len(q) }

func (q distanceQueue) Less(i, j int) bool {
	if q[i].distance != q[j].distance {
		return q[i].distance < q[j].distance
	}
	return q[i].id < q[j].id
}

func (q distanceQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *distanceQueue) Push(x any) {
	n := x.(*queuedNode)
	n.index = len(*q)
	*q = append(*q, n)
}

func (q *distanceQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*q = old[:n-1]
	return item
}
