package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/encodeous/batsim/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pairNetwork(t *testing.T) *state.Network {
	cfg := state.SampleTopologies["pair"]()
	net, err := state.BuildTopology(&cfg)
	require.NoError(t, err)
	net.Nodes["B"].Originators["A"] = &state.OriginatorEntry{
		Originator:    "A",
		NextHop:       state.NextHop{Address: "A", Throughput: 9.42},
		LastSeenSeqno: 3,
	}
	net.Nodes["A"].Originators["B"] = &state.OriginatorEntry{
		Originator:    "B",
		NextHop:       state.NextHop{Address: "B", Throughput: 9.42},
		LastSeenSeqno: 3,
	}
	return net
}

func TestSaveRun(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "runs", "batsim.db")
	s, err := Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	finished := time.UnixMilli(1_700_000_000_000)
	id, err := s.SaveRun(ctx, Run{
		Topology: "pair",
		Seed:     ^uint64(0),
		Rounds:   3,
		Nodes:    2,
		Edges:    2,
		Finished: finished,
	}, pairNetwork(t))
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	runs, err := s.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, Run{
		Id:       id,
		Topology: "pair",
		Seed:     ^uint64(0),
		Rounds:   3,
		Nodes:    2,
		Edges:    2,
		Finished: finished,
	}, runs[0])

	routes, err := s.Routes(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []Route{
		{Node: "A", Originator: "B", NextHop: "B", Throughput: 9.42, LastSeenSeqno: 3},
		{Node: "B", Originator: "A", NextHop: "A", Throughput: 9.42, LastSeenSeqno: 3},
	}, routes)

	routes, err = s.Routes(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, routes)
}

func TestSaveRunDuplicateId(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, filepath.Join(t.TempDir(), "batsim.db"))
	require.NoError(t, err)
	defer s.Close()

	net := pairNetwork(t)
	_, err = s.SaveRun(ctx, Run{Id: "run-1"}, net)
	require.NoError(t, err)
	_, err = s.SaveRun(ctx, Run{Id: "run-1"}, net)
	assert.Error(t, err)

	// the failed run left nothing behind
	runs, err := s.Runs(ctx)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
	routes, err := s.Routes(ctx, "run-1")
	require.NoError(t, err)
	assert.Len(t, routes, 2)
}

func TestReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "batsim.db")
	s, err := Open(ctx, path)
	require.NoError(t, err)
	_, err = s.SaveRun(ctx, Run{Topology: "pair"}, pairNetwork(t))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()
	runs, err := s.Runs(ctx)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}
