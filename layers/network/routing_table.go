package network

import (
	"sync"
)

type (
	// RoutingTable holds the view of the network of a node: the last
	// adjacency list received from the designated node and the shortest
	// paths from the node to every other node computed from it.
	// It is safe for concurrent use.
	RoutingTable struct {
		owner     int
		adjacency AdjacencyList
		paths     map[int][]int
		updates   int
		mu        sync.RWMutex
	}
)

// NewRoutingTable creates an empty RoutingTable for node owner.
func NewRoutingTable(owner int) *RoutingTable {
	return &RoutingTable{owner: owner}
}

// Update replaces the adjacency list and recomputes all the shortest
// paths. It returns false when the owner is isolated, in which case no
// path can be determined and the paths are cleared.
func (r *RoutingTable) Update(adjacency AdjacencyList) bool {
	adjacency = adjacency.Clone()
	paths := ShortestPaths(adjacency, r.owner)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.adjacency = adjacency
	r.paths = paths
	r.updates++
	return paths != nil
}

// FindPath returns the shortest path to dst. ok is false when dst is
// unknown. A known but unreachable dst yields an empty path.
func (r *RoutingTable) FindPath(dst int) (path []int, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	path, ok = r.paths[dst]
	return append([]int(nil), path...), ok
}

// NextHop returns the neighbor a message to dst should be sent to.
func (r *RoutingTable) NextHop(dst int) (int, bool) {
	path, ok := r.FindPath(dst)
	if !ok || len(path) < 2 {
		return 0, false
	}
	return path[1], true
}

// Adjacency returns a copy of the current adjacency list.
func (r *RoutingTable) Adjacency() AdjacencyList {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.adjacency.Clone()
}

// Paths returns a copy of the current shortest paths.
func (r *RoutingTable) Paths() map[int][]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	paths := make(map[int][]int, len(r.paths))
	for dst, path := range r.paths {
		paths[dst] = append([]int{}, path...)
	}
	return paths
}

// Updates returns how many times the table was updated.
func (r *RoutingTable) Updates() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.updates
}
