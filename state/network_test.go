package state

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild(t *testing.T) {
	net, err := Build([]NodeId{"A", "B", "C"}, []EdgeCfg{
		{From: "A", To: "B", Throughput: 10},
		{From: "B", To: "A", Throughput: 7},
		{From: "A", To: "C", Throughput: 3},
	})
	require.NoError(t, err)

	assert.Equal(t, []NodeId{"A", "B", "C"}, net.Order)
	assert.Len(t, net.Edges, 3)
	a, err := net.GetNode("A")
	require.NoError(t, err)
	assert.Equal(t, []NodeId{"B", "C"}, a.Neighbours)
	assert.Empty(t, a.Originators)
	assert.Zero(t, a.OgmSeqno)
	assert.True(t, a.IsNeighbour("C"))

	// C has no outgoing edge, so no neighbours even though A can reach it
	c, err := net.GetNode("C")
	require.NoError(t, err)
	assert.Empty(t, c.Neighbours)
	assert.False(t, c.IsNeighbour("A"))

	tp, ok := net.LinkThroughput("B", "A")
	assert.True(t, ok)
	assert.Equal(t, 7.0, tp)
	_, ok = net.LinkThroughput("C", "A")
	assert.False(t, ok)
}

func TestBuildRejectsInvalidTopology(t *testing.T) {
	nodes := []NodeId{"A", "B"}
	cases := map[string]struct {
		nodes []NodeId
		edges []EdgeCfg
	}{
		"duplicate node":  {[]NodeId{"A", "A"}, nil},
		"empty node":      {[]NodeId{""}, nil},
		"undeclared from": {nodes, []EdgeCfg{{From: "Z", To: "A", Throughput: 1}}},
		"undeclared to":   {nodes, []EdgeCfg{{From: "A", To: "Z", Throughput: 1}}},
		"self loop":       {nodes, []EdgeCfg{{From: "A", To: "A", Throughput: 1}}},
		"zero throughput": {nodes, []EdgeCfg{{From: "A", To: "B", Throughput: 0}}},
		"negative":        {nodes, []EdgeCfg{{From: "A", To: "B", Throughput: -1}}},
		"nan throughput":  {nodes, []EdgeCfg{{From: "A", To: "B", Throughput: math.NaN()}}},
		"infinite":        {nodes, []EdgeCfg{{From: "A", To: "B", Throughput: math.Inf(1)}}},
		"duplicate edge":  {nodes, []EdgeCfg{{From: "A", To: "B", Throughput: 1}, {From: "A", To: "B", Throughput: 2}}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Build(tc.nodes, tc.edges)
			var topoErr *InvalidTopologyError
			assert.ErrorAs(t, err, &topoErr)
		})
	}
}

func TestGetNodeUnknown(t *testing.T) {
	net, err := Build([]NodeId{"A"}, nil)
	require.NoError(t, err)

	_, err = net.GetNode("B")
	var addrErr *UnknownAddressError
	require.ErrorAs(t, err, &addrErr)
	assert.Equal(t, NodeId("B"), addrErr.Address)

	_, err = net.OriginatorTable("B")
	assert.ErrorAs(t, err, &addrErr)
}

func TestOriginatorTableIsSnapshot(t *testing.T) {
	net, err := Build([]NodeId{"A", "B"}, []EdgeCfg{
		{From: "A", To: "B", Throughput: 10},
		{From: "B", To: "A", Throughput: 10},
	})
	require.NoError(t, err)
	b, _ := net.GetNode("B")
	b.Originators["A"] = &OriginatorEntry{
		Originator:    "A",
		NextHop:       NextHop{Address: "A", Throughput: 9.42},
		LastSeenSeqno: 1,
	}

	table, err := net.OriginatorTable("B")
	require.NoError(t, err)
	assert.Equal(t, map[NodeId]OriginatorView{
		"A": {NextHop: "A", Throughput: 9.42, LastSeenSeqno: 1},
	}, table)

	b.Originators["A"].LastSeenSeqno = 2
	assert.Equal(t, uint64(1), table["A"].LastSeenSeqno)
	assert.Equal(t, "(nh: A, throughput: 9.4200, seqno: 2)", b.Originators["A"].String())
}
