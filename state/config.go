package state

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

type EdgeCfg struct {
	From       NodeId  `yaml:"from"`
	To         NodeId  `yaml:"to"`
	Throughput float64 `yaml:"throughput"`
}

// SimCfg holds the knobs of a simulation run. Zero values are replaced by defaults in ExpandTopology.
type SimCfg struct {
	Seed           uint64        `yaml:"seed,omitempty"`
	Jitter         time.Duration `yaml:"jitter,omitempty"`       // upper bound of the delivery delay
	OgmInterval    time.Duration `yaml:"ogm_interval,omitempty"` // period between two broadcasts of a node
	Rounds         int           `yaml:"rounds,omitempty"`       // broadcasts per node in a virtual run
	RateLimit      float64       `yaml:"rate_limit,omitempty"`   // bits per second per node, 0 disables the gate
	TicksPerSecond int           `yaml:"ticks_per_second,omitempty"`
}

// TopologyCfg is the on-disk description of a network.
type TopologyCfg struct {
	Nodes []NodeId  `yaml:"nodes"`
	Edges []EdgeCfg `yaml:"edges,omitempty"`
	// Links is a compact edge syntax, see ParseLink
	Links []string `yaml:"links,omitempty"`
	Sim   SimCfg   `yaml:"sim,omitempty"`
}

/*
ParseLink parses the compact link syntax:

	a -> b = 10   // directed edge from a to b with throughput 10
	a <-> b = 10  // two directed edges, one in each direction, both with throughput 10
*/
func ParseLink(line string) ([]EdgeCfg, error) {
	spl := strings.Split(line, "=")
	if len(spl) != 2 {
		return nil, fmt.Errorf("invalid link %q: expected exactly one '='", line)
	}
	throughput, err := strconv.ParseFloat(strings.TrimSpace(spl[1]), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid link %q: %w", line, err)
	}
	lhs := strings.TrimSpace(spl[0])
	bidirectional := strings.Contains(lhs, "<->")
	sep := "->"
	if bidirectional {
		sep = "<->"
	}
	ends := strings.Split(lhs, sep)
	if len(ends) != 2 {
		return nil, fmt.Errorf("invalid link %q: expected \"a -> b\" or \"a <-> b\"", line)
	}
	a := NodeId(strings.TrimSpace(ends[0]))
	b := NodeId(strings.TrimSpace(ends[1]))
	if a == "" || b == "" {
		return nil, fmt.Errorf("invalid link %q: missing node", line)
	}
	edges := []EdgeCfg{{From: a, To: b, Throughput: throughput}}
	if bidirectional {
		edges = append(edges, EdgeCfg{From: b, To: a, Throughput: throughput})
	}
	return edges, nil
}

// ExpandTopology folds Links into Edges and fills in simulation defaults.
func ExpandTopology(cfg *TopologyCfg) error {
	for _, line := range cfg.Links {
		edges, err := ParseLink(line)
		if err != nil {
			return err
		}
		cfg.Edges = append(cfg.Edges, edges...)
	}
	cfg.Links = nil
	if cfg.Sim.Jitter == 0 {
		cfg.Sim.Jitter = DeliveryJitter
	}
	if cfg.Sim.OgmInterval == 0 {
		cfg.Sim.OgmInterval = OgmInterval
	}
	if cfg.Sim.Rounds == 0 {
		cfg.Sim.Rounds = 1
	}
	if cfg.Sim.TicksPerSecond == 0 {
		cfg.Sim.TicksPerSecond = DefaultTicksPerSecond
	}
	return nil
}

func ReadTopology(path string) (*TopologyCfg, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &TopologyCfg{}
	err = yaml.Unmarshal(file, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return cfg, nil
}

func WriteTopology(path string, cfg *TopologyCfg) error {
	bytes, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, bytes, 0600)
}

// BuildTopology expands, validates and builds cfg.
func BuildTopology(cfg *TopologyCfg) (*Network, error) {
	err := ExpandTopology(cfg)
	if err != nil {
		return nil, &InvalidTopologyError{Reason: err.Error()}
	}
	err = TopologyValidator(cfg)
	if err != nil {
		return nil, err
	}
	return Build(cfg.Nodes, cfg.Edges)
}

// SampleTopologies are the networks written by `batsim new`.
var SampleTopologies = map[string]func() TopologyCfg{
	//   A--B
	"pair": func() TopologyCfg {
		return TopologyCfg{
			Nodes: []NodeId{"A", "B"},
			Links: []string{
				"A <-> B = 10",
			},
		}
	},
	//  /- B --> C -\
	// A             F
	//  \- D <-- E -/
	"diamond": func() TopologyCfg {
		return TopologyCfg{
			Nodes: []NodeId{"A", "B", "C", "D", "E", "F"},
			Links: []string{
				"B -> A = 10",
				"A -> B = 10",
				"A -> D = 10",
				"D -> A = 10",
				"B -> C = 10",
				"C -> B = 5",
				"D -> E = 5",
				"E -> D = 10",
				"C -> F = 10",
				"F -> C = 10",
				"E -> F = 10",
				"F -> E = 10",
			},
		}
	},
}
