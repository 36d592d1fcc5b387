package network

import (
	"bytes"
	"testing"

	"github.com/PozigunMikhail/GoBackNAndSelectiveRepeat/layers/link"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func neighborsOf(ids ...int) []Neighbor {
	neighbors := make([]Neighbor, len(ids))
	for i, id := range ids {
		neighbors[i] = Neighbor{ID: id, Weight: edgeWeight}
	}
	return neighbors
}

func TestMergeNeighbors(t *testing.T) {
	a := make(AdjacencyList)

	mergeNeighbors(a, 0, neighborsOf(1, 2))
	assert.Equal(t, AdjacencyList{
		0: neighborsOf(1, 2),
		1: neighborsOf(0),
		2: neighborsOf(0),
	}, a)

	mergeNeighbors(a, 1, neighborsOf(0, 2))
	assert.Equal(t, neighborsOf(2, 1), a[0])
	assert.Equal(t, neighborsOf(0, 2), a[1])
	assert.Equal(t, neighborsOf(0, 1), a[2])

	// node 0 lost every neighbor
	mergeNeighbors(a, 0, nil)
	assert.Empty(t, a[0])
	assert.Equal(t, neighborsOf(2), a[1])
	assert.Equal(t, neighborsOf(1), a[2])
}

func TestRecordsAreSplitToFitFrames(t *testing.T) {
	adjacency := make(AdjacencyList)
	for i := 0; i < 30; i++ {
		adjacency[i] = neighborsOf((i+1)%30, (i+29)%30)
	}

	records, err := encodeRecords(topologyRecord{Adjacency: adjacency})
	require.NoError(t, err)
	require.Greater(t, len(records), 1)
	for _, r := range records {
		assert.LessOrEqual(t, len(r), link.MTU)
	}

	var rec topologyRecord
	require.NoError(t, decodeRecords(records, &rec))
	assert.Equal(t, adjacency, rec.Adjacency)

	assert.Error(t, decodeRecords([][]byte{bytes.Repeat([]byte("["), 3)}, &rec))
}

func TestNodeNeighbors(t *testing.T) {
	conf := DefaultNetworkConfig()
	n := newNode(3, &conf)

	assert.True(t, n.addNeighbor(5))
	assert.True(t, n.addNeighbor(1))
	assert.False(t, n.addNeighbor(5))
	assert.Equal(t, int64(2), n.version.Load())
	assert.Equal(t, neighborsOf(1, 5), n.neighborList())

	assert.True(t, n.removeNeighbor(5))
	assert.False(t, n.removeNeighbor(5))
	assert.Equal(t, int64(3), n.version.Load())
	assert.Equal(t, []int{1}, neighborIDs(n.neighborList()))
}
