package network

import (
	"bytes"
	"fmt"

	"github.com/PozigunMikhail/GoBackNAndSelectiveRepeat/layers/link"

	"gopkg.in/yaml.v3"
)

type (
	// neighborsRecord is what a node reports to the designated node.
	neighborsRecord struct {
		Node      int        `yaml:"node"`
		Neighbors []Neighbor `yaml:"neighbors"`
	}

	// topologyRecord is what the designated node broadcasts.
	topologyRecord struct {
		Adjacency AdjacencyList `yaml:"adjacency"`
	}
)

// encodeRecords marshals v as YAML and splits the document into records
// that fit in a link frame.
func encodeRecords(v interface{}) ([][]byte, error) {
	b, err := yaml.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("error encoding record to yaml: %w", err)
	}
	count := (len(b) + link.MTU - 1) / link.MTU
	return link.SplitRecords(b, count), nil
}

// decodeRecords joins records back into a YAML document and unmarshals it.
func decodeRecords(records [][]byte, v interface{}) error {
	if err := yaml.Unmarshal(bytes.Join(records, nil), v); err != nil {
		return fmt.Errorf("error decoding record from yaml: %w", err)
	}
	return nil
}
