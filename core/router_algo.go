package core

import (
	"fmt"
	"time"

	"github.com/encodeous/batsim/state"
)

// Router is an interface that defines the side effects of the protocol engine
type Router interface {
	// SendOgm hands a copy of ogm to the transport, addressed to the neighbour to.
	SendOgm(from *state.Node, to state.NodeId, ogm state.Ogm) error
	Log(event RouterEvent, desc string, args ...any)
}

type UpdateResult struct {
	SequenceTooLow bool
	Created        bool
	NextHopChanged bool
}

// Broadcast starts a new OGM chain at node, one copy per neighbour edge.
func Broadcast(node *state.Node, now time.Time, r Router) error {
	node.OgmSeqno++
	for _, neigh := range node.Neighbours {
		ogm := state.Ogm{
			Seqno:      node.OgmSeqno,
			Originator: node.Address,
			Sender:     node.Address,
			Throughput: state.MaxMetric,
			Timestamp:  now.UnixMilli(),
		}
		if err := r.SendOgm(node, neigh, ogm); err != nil {
			return err
		}
	}
	return nil
}

// HandleMessage dispatches a delivered packet to the handler of its kind.
func HandleMessage(net *state.Network, node *state.Node, msg state.Message, r Router) error {
	switch m := msg.(type) {
	case state.Ogm:
		return Receive(net, node, m, r)
	case *state.Ogm:
		if m == nil {
			return fmt.Errorf("nil ogm delivered to %s", node.Address)
		}
		return Receive(net, node, *m, r)
	case nil:
		return fmt.Errorf("nil message delivered to %s", node.Address)
	default:
		return fmt.Errorf("no handler for message kind %s", msg.Kind())
	}
}

// Receive processes an OGM delivered to node, relaying it unless it is suppressed.
func Receive(net *state.Network, node *state.Node, ogm state.Ogm, r Router) error {
	// a node never processes its own advertisement coming back around a cycle
	if ogm.Originator == node.Address {
		r.Log(OgmDroppedSelfOrigin, "dropped own ogm", "node", node.Address, "ogm", ogm)
		return nil
	}

	if !AdjustThroughput(net, node, &ogm) {
		r.Log(OgmDroppedNoLink, "no link back to sender, cannot measure throughput", "node", node.Address, "ogm", ogm)
		return nil
	}

	res := UpdateOriginator(node, ogm)
	if res.SequenceTooLow {
		r.Log(OgmDroppedStale, "dropped stale ogm", "node", node.Address, "ogm", ogm)
		return nil
	}
	if res.Created {
		r.Log(OriginatorAdded, "new originator", "node", node.Address, "entry", *node.Originators[ogm.Originator])
	} else if res.NextHopChanged {
		r.Log(NextHopUpdated, "next hop improved", "node", node.Address, "entry", *node.Originators[ogm.Originator])
	}

	return Relay(node, ogm, r)
}

// Relay forwards ogm to every neighbour of node, including the one it came from.
func Relay(node *state.Node, ogm state.Ogm, r Router) error {
	ogm.Sender = node.Address
	for _, neigh := range node.Neighbours {
		if err := r.SendOgm(node, neigh, ogm); err != nil {
			return err
		}
	}
	return nil
}

// AdjustThroughput rewrites the path metric of ogm as seen from node. It returns false when node
// has no link towards the sender.
func AdjustThroughput(net *state.Network, node *state.Node, ogm *state.Ogm) bool {
	// Update the received throughput metric to match the link characteristic:
	//  - If the originator is a direct neighbour, the path metric is exactly the link throughput.
	//  - Otherwise the path metric is the bottleneck: the smaller of the path and link throughput.
	link, ok := net.LinkThroughput(node.Address, ogm.Sender)
	if !ok {
		return false
	}
	if node.IsNeighbour(ogm.Originator) {
		ogm.Throughput = link
	} else {
		ogm.Throughput = min(link, ogm.Throughput)
	}

	// forward penalty, compounds once per hop
	ogm.Throughput = ogm.Throughput * (1 - state.HopPenalty)
	return true
}

// UpdateOriginator records ogm in node's originator table.
func UpdateOriginator(node *state.Node, ogm state.Ogm) UpdateResult {
	entry, ok := node.Originators[ogm.Originator]
	if !ok {
		node.Originators[ogm.Originator] = &state.OriginatorEntry{
			Originator:    ogm.Originator,
			LastSeenSeqno: ogm.Seqno,
			NextHop: state.NextHop{
				Address:    ogm.Sender,
				Throughput: ogm.Throughput,
			},
		}
		return UpdateResult{Created: true}
	}

	if ogm.Seqno <= entry.LastSeenSeqno {
		return UpdateResult{SequenceTooLow: true}
	}

	// freshness always advances, but the route only ever moves to a strictly better next hop
	entry.LastSeenSeqno = ogm.Seqno
	if ogm.Throughput > entry.NextHop.Throughput {
		entry.NextHop = state.NextHop{
			Address:    ogm.Sender,
			Throughput: ogm.Throughput,
		}
		return UpdateResult{NextHopChanged: true}
	}
	return UpdateResult{}
}
