package network

import (
	"fmt"
	"strings"
	"time"

	"github.com/PozigunMikhail/GoBackNAndSelectiveRepeat/config"
	"github.com/PozigunMikhail/GoBackNAndSelectiveRepeat/layers/link"
)

type (
	// TopologyKind selects the generator of the network graph.
	TopologyKind string

	// NetworkConfig contains the configs for Run().
	NetworkConfig struct {
		Topology TopologyKind `yaml:"topology"`
		Nodes    int          `yaml:"nodes"`
		// DistanceThreshold is the maximum distance between two nodes
		// connected by an edge in a random topology.
		DistanceThreshold float64 `yaml:"distanceThreshold"`
		// Seed seeds the random topology. Zero means seeded from the clock.
		Seed int64 `yaml:"seed"`

		// Link is the template of every link of the network. Each link
		// gets its own name and, for a non-zero seed, its own seed.
		Link link.Config `yaml:"link"`

		NodeLifetime time.Duration `yaml:"nodeLifetime"`
		// NodeLifetimes overrides NodeLifetime for some nodes, which
		// allows simulating nodes going down.
		NodeLifetimes          map[int]time.Duration `yaml:"nodeLifetimes"`
		DesignatedNodeLifetime time.Duration         `yaml:"designatedNodeLifetime"`

		HelloInterval time.Duration `yaml:"helloInterval"`
		// HelloTimeout is how long a neighbor may stay silent before it
		// is excluded from the neighbors.
		HelloTimeout time.Duration `yaml:"helloTimeout"`

		// The designated node broadcasts the topology once every
		// GraphSyncInterval, during a window of GraphSyncDuration.
		GraphSyncInterval time.Duration `yaml:"graphSyncInterval"`
		GraphSyncDuration time.Duration `yaml:"graphSyncDuration"`

		// PollInterval is how often the update loops look for changes.
		PollInterval time.Duration `yaml:"pollInterval"`

		// OutputDir is where the CLI writes the node reports.
		OutputDir string `yaml:"outputDir"`
	}
)

const (
	TopologyRing   TopologyKind = "ring"
	TopologyStar   TopologyKind = "star"
	TopologyRandom TopologyKind = "random"
)

// DefaultNetworkConfig returns the configs used when nothing else is
// specified.
func DefaultNetworkConfig() NetworkConfig {
	linkConf := link.DefaultConfig()
	linkConf.Discipline = link.SelectiveRepeat
	return NetworkConfig{
		Topology:          TopologyRing,
		Nodes:             5,
		DistanceThreshold: 4,
		Link:              linkConf,
		NodeLifetime:      10 * time.Second,
		HelloInterval:     100 * time.Millisecond,
		HelloTimeout:      time.Second,
		GraphSyncInterval: time.Second,
		GraphSyncDuration: 300 * time.Millisecond,
		PollInterval:      10 * time.Millisecond,
		OutputDir:         ".",
	}
}

// ReadConfigFile decodes a YAML network config file on top of the
// default configs.
func ReadConfigFile(file string) (NetworkConfig, error) {
	conf := DefaultNetworkConfig()
	if err := config.ReadYAML(file, &conf); err != nil {
		return NetworkConfig{}, fmt.Errorf("error reading yaml network config file: %w", err)
	}
	return conf, nil
}

// Validate checks the ranges of all the configs.
func (c *NetworkConfig) Validate() error {
	switch TopologyKind(strings.ToLower(string(c.Topology))) {
	case TopologyRing, TopologyStar, TopologyRandom:
	default:
		return fmt.Errorf("unknown topology '%s'", c.Topology)
	}
	if c.Nodes < 1 {
		return fmt.Errorf("number of nodes must be at least 1, got %d", c.Nodes)
	}
	if err := c.Link.Validate(); err != nil {
		return fmt.Errorf("invalid link config: %w", err)
	}
	for id, lifetime := range c.NodeLifetimes {
		if id < 0 || c.Nodes <= id {
			return fmt.Errorf("lifetime configured for unknown node %d", id)
		}
		if lifetime <= 0 {
			return fmt.Errorf("lifetime of node %d must be positive, got %s", id, lifetime)
		}
	}
	for _, d := range []struct {
		name  string
		value time.Duration
	}{
		{"node lifetime", c.NodeLifetime},
		{"hello interval", c.HelloInterval},
		{"hello timeout", c.HelloTimeout},
		{"graph sync interval", c.GraphSyncInterval},
		{"graph sync duration", c.GraphSyncDuration},
		{"poll interval", c.PollInterval},
	} {
		if d.value <= 0 {
			return fmt.Errorf("%s must be positive, got %s", d.name, d.value)
		}
	}
	if c.DesignatedNodeLifetime < 0 {
		return fmt.Errorf("designated node lifetime must not be negative, got %s", c.DesignatedNodeLifetime)
	}
	return nil
}

func (c *NetworkConfig) nodeLifetime(id int) time.Duration {
	if lifetime, ok := c.NodeLifetimes[id]; ok {
		return lifetime
	}
	return c.NodeLifetime
}

func (c *NetworkConfig) designatedNodeLifetime() time.Duration {
	if c.DesignatedNodeLifetime > 0 {
		return c.DesignatedNodeLifetime
	}
	return c.NodeLifetime
}

// linkConfig derives the config of a single link from the template.
func (c *NetworkConfig) linkConfig(name string, index int) link.Config {
	conf := c.Link
	conf.Name = name
	if conf.Seed != 0 {
		// receivers use seed+1
		conf.Seed += int64(2 * index)
	}
	return conf
}
