package network_test

import (
	"sync"
	"testing"

	"github.com/PozigunMikhail/GoBackNAndSelectiveRepeat/layers/network"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoutingTable(t *testing.T) {
	table := network.NewRoutingTable(0)

	_, ok := table.FindPath(1)
	assert.False(t, ok)

	a := adjacencyOf([3]int{0, 1, 1}, [3]int{1, 2, 1}, [3]int{2, 3, 1}, [3]int{3, 0, 1})
	a[4] = nil
	require.True(t, table.Update(a))
	assert.Equal(t, 1, table.Updates())

	path, ok := table.FindPath(1)
	assert.True(t, ok)
	assert.Equal(t, []int{0, 1}, path)
	path, ok = table.FindPath(2)
	assert.True(t, ok)
	assert.Len(t, path, 3)
	path, ok = table.FindPath(4)
	assert.True(t, ok)
	assert.Empty(t, path)

	hop, ok := table.NextHop(3)
	assert.True(t, ok)
	assert.Equal(t, 3, hop)
	_, ok = table.NextHop(4)
	assert.False(t, ok)

	// the table keeps its own copy
	a[0] = nil
	assert.Len(t, table.Adjacency()[0], 2)

	// isolated owner
	assert.False(t, table.Update(network.AdjacencyList{0: nil, 1: {{ID: 2, Weight: 1}}}))
	assert.Empty(t, table.Paths())
	_, ok = table.FindPath(1)
	assert.False(t, ok)
}

func TestRoutingTableConcurrentAccess(t *testing.T) {
	table := network.NewRoutingTable(0)
	a := adjacencyOf([3]int{0, 1, 1}, [3]int{1, 2, 1})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			table.Update(a)
		}()
		go func() {
			defer wg.Done()
			table.FindPath(2)
			table.Paths()
		}()
	}
	wg.Wait()
	assert.Equal(t, 8, table.Updates())
	path, ok := table.FindPath(2)
	assert.True(t, ok)
	assert.Equal(t, []int{0, 1, 2}, path)
}
