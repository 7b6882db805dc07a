package core

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/encodeous/batsim/state"
	"github.com/goccy/go-yaml"
)

// QueryOriginatorTable reads the originator table of a node from a running realtime simulation.
func QueryOriginatorTable(env *state.Env, id state.NodeId) (map[state.NodeId]state.OriginatorView, error) {
	res, err := env.DispatchWait(func(s *state.State) (any, error) {
		return s.OriginatorTable(id)
	})
	if err != nil {
		return nil, err
	}
	return res.(map[state.NodeId]state.OriginatorView), nil
}

func FormatTable(table map[state.NodeId]state.OriginatorView) string {
	if len(table) == 0 {
		return "    (none)"
	}
	rt := make([]string, 0, len(table))
	for orig, view := range table {
		rt = append(rt, fmt.Sprintf("    - %s via %s, throughput: %.4f, seqno: %d", orig, view.NextHop, view.Throughput, view.LastSeenSeqno))
	}
	slices.Sort(rt)
	return strings.Join(rt, "\n")
}

// FormatTables renders the originator table of every node, in declaration order.
func FormatTables(net *state.Network) string {
	sb := strings.Builder{}
	for _, id := range net.Order {
		node := net.Nodes[id]
		sb.WriteString(fmt.Sprintf("Node %s:\n", id))
		sb.WriteString(fmt.Sprintf("  Seqno: %d\n", node.OgmSeqno))
		neighs := make([]string, 0, len(node.Neighbours))
		for _, n := range node.Neighbours {
			tp, _ := net.LinkThroughput(id, n)
			neighs = append(neighs, fmt.Sprintf("%s (%g)", n, tp))
		}
		sb.WriteString(fmt.Sprintf("  Neighbours: %s\n", strings.Join(neighs, ", ")))
		sb.WriteString("  Originators:\n")
		table, _ := net.OriginatorTable(id)
		sb.WriteString(FormatTable(table) + "\n")
	}
	return sb.String()
}

// TablesYaml renders every originator table as a YAML document keyed by node.
func TablesYaml(net *state.Network) ([]byte, error) {
	out := yaml.MapSlice{}
	for _, id := range net.Order {
		table, err := net.OriginatorTable(id)
		if err != nil {
			return nil, err
		}
		entries := yaml.MapSlice{}
		for _, orig := range slices.Sorted(maps.Keys(table)) {
			entries = append(entries, yaml.MapItem{Key: string(orig), Value: table[orig]})
		}
		out = append(out, yaml.MapItem{Key: string(id), Value: entries})
	}
	return yaml.Marshal(out)
}
