package state

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
)

var namePattern, _ = regexp.Compile("^[0-9A-Za-z._-]+$")

func PathValidator(s string) error {
	_, err := os.Stat(path.Dir(s))
	if err != nil {
		return err
	}
	_, err = filepath.Abs(s)
	return err
}

func NameValidator(s string) error {
	if !namePattern.MatchString(s) {
		return fmt.Errorf("%s is not a valid name, must match pattern %s", s, namePattern.String())
	}
	if len(s) > 100 {
		return fmt.Errorf("len(\"%s\") = %d > 100 is too long", s, len(s))
	}
	return nil
}

// TopologyValidator checks node names and simulation settings. Structural checks (undeclared
// nodes, duplicate edges, throughput) are done by Build.
func TopologyValidator(cfg *TopologyCfg) error {
	if len(cfg.Nodes) == 0 {
		return invalidTopology("no nodes declared")
	}
	for _, node := range cfg.Nodes {
		err := NameValidator(string(node))
		if err != nil {
			return &InvalidTopologyError{Reason: err.Error()}
		}
	}
	if cfg.Sim.Jitter < 0 || cfg.Sim.OgmInterval < 0 {
		return invalidTopology("sim durations must not be negative")
	}
	if cfg.Sim.Rounds < 0 {
		return invalidTopology("sim.rounds must not be negative")
	}
	if cfg.Sim.RateLimit < 0 || cfg.Sim.TicksPerSecond < 0 {
		return invalidTopology("sim rate limiter settings must not be negative")
	}
	return nil
}
