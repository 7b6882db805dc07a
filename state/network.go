package state

import (
	"fmt"
	"math"
	"slices"
)

type NodeId string

// EdgeKey is the ordered (from, to) pair identifying a directed link.
type EdgeKey = Pair[NodeId, NodeId]

func Link(from, to NodeId) EdgeKey {
	return EdgeKey{V1: from, V2: to}
}

// Edge is the capacity of a directed link, in abstract bandwidth units.
type Edge struct {
	Throughput float64
}

type NextHop struct {
	Address    NodeId
	Throughput float64
}

// OriginatorEntry is a node's current best route towards an originator.
type OriginatorEntry struct {
	Originator    NodeId
	NextHop       NextHop
	LastSeenSeqno uint64
}

func (e OriginatorEntry) String() string {
	return fmt.Sprintf("(nh: %s, throughput: %.4f, seqno: %d)", e.NextHop.Address, e.NextHop.Throughput, e.LastSeenSeqno)
}

// Node state must only be mutated by deliveries addressed to it, on the scheduler's thread.
type Node struct {
	Address     NodeId
	Neighbours  []NodeId // in declaration order
	Originators map[NodeId]*OriginatorEntry
	OgmSeqno    uint64 // incremented once per broadcast initiated by this node
}

func (n *Node) IsNeighbour(id NodeId) bool {
	return slices.Contains(n.Neighbours, id)
}

type Network struct {
	Nodes map[NodeId]*Node
	Edges map[EdgeKey]Edge
	// Order is the declaration order of the nodes
	Order []NodeId
}

// Build creates the network described by the node list and directed edge list. The result must be
// treated as read-only apart from the per-node protocol state.
func Build(nodes []NodeId, edges []EdgeCfg) (*Network, error) {
	net := &Network{
		Nodes: make(map[NodeId]*Node, len(nodes)),
		Edges: make(map[EdgeKey]Edge, len(edges)),
		Order: make([]NodeId, 0, len(nodes)),
	}
	for _, addr := range nodes {
		if addr == "" {
			return nil, invalidTopology("node address must not be empty")
		}
		if _, ok := net.Nodes[addr]; ok {
			return nil, invalidTopology("duplicate node %s", addr)
		}
		net.Nodes[addr] = &Node{
			Address:     addr,
			Neighbours:  make([]NodeId, 0),
			Originators: make(map[NodeId]*OriginatorEntry),
		}
		net.Order = append(net.Order, addr)
	}
	for _, edge := range edges {
		from, ok := net.Nodes[edge.From]
		if !ok {
			return nil, invalidTopology("edge %s -> %s references undeclared node %s", edge.From, edge.To, edge.From)
		}
		if _, ok := net.Nodes[edge.To]; !ok {
			return nil, invalidTopology("edge %s -> %s references undeclared node %s", edge.From, edge.To, edge.To)
		}
		if edge.From == edge.To {
			return nil, invalidTopology("edge %s -> %s is a self loop", edge.From, edge.To)
		}
		if !(edge.Throughput > 0) || math.IsInf(edge.Throughput, 0) {
			return nil, invalidTopology("edge %s -> %s has invalid throughput %v", edge.From, edge.To, edge.Throughput)
		}
		key := Link(edge.From, edge.To)
		if _, ok := net.Edges[key]; ok {
			return nil, invalidTopology("duplicate edge %s -> %s", edge.From, edge.To)
		}
		net.Edges[key] = Edge{Throughput: edge.Throughput}
		from.Neighbours = append(from.Neighbours, edge.To)
	}
	return net, nil
}

func (n *Network) GetNode(id NodeId) (*Node, error) {
	node, ok := n.Nodes[id]
	if !ok {
		return nil, &UnknownAddressError{Address: id}
	}
	return node, nil
}

// LinkThroughput returns the capacity of the directed link from -> to.
func (n *Network) LinkThroughput(from, to NodeId) (float64, bool) {
	edge, ok := n.Edges[Link(from, to)]
	return edge.Throughput, ok
}

type OriginatorView struct {
	NextHop       NodeId  `yaml:"next_hop"`
	Throughput    float64 `yaml:"throughput"`
	LastSeenSeqno uint64  `yaml:"last_seen_seqno"`
}

// OriginatorTable returns a snapshot of the originator table of addr.
func (n *Network) OriginatorTable(addr NodeId) (map[NodeId]OriginatorView, error) {
	node, err := n.GetNode(addr)
	if err != nil {
		return nil, err
	}
	table := make(map[NodeId]OriginatorView, len(node.Originators))
	for orig, entry := range node.Originators {
		table[orig] = OriginatorView{
			NextHop:       entry.NextHop.Address,
			Throughput:    entry.NextHop.Throughput,
			LastSeenSeqno: entry.LastSeenSeqno,
		}
	}
	return table, nil
}
