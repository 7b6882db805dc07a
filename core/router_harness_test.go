package core

import (
	"fmt"
	"slices"
	"strings"
	"testing"

	"github.com/encodeous/batsim/state"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

type HarnessEvent struct {
	Message string
	Args    []any
}

func MakeEvent(msg string, args ...any) HarnessEvent {
	return HarnessEvent{
		Message: msg,
		Args:    args,
	}
}

// RouterHarness records every side effect of the engine instead of delivering anything.
type RouterHarness struct {
	actions []HarnessEvent
}

func (h *RouterHarness) SendOgm(from *state.Node, to state.NodeId, ogm state.Ogm) error {
	h.actions = append(h.actions, MakeEvent("SEND_OGM", from.Address, to, ogm))
	return nil
}

func (h *RouterHarness) Log(event RouterEvent, desc string, args ...any) {
	x := make([]any, 0)
	x = append(x, event)
	x = append(x, desc)
	x = append(x, args...)
	h.actions = append(h.actions, MakeEvent("LOG", x...))
}

type HarnessEvents []HarnessEvent

func (h HarnessEvents) String() string {
	out := make([]string, 0)
	for _, action := range h {
		cur := action.Message
		for _, arg := range action.Args {
			cur += " " + fmt.Sprint(arg)
		}
		out = append(out, cur)
	}
	slices.Sort(out)
	return strings.Join(out, "\n")
}

// GetActions returns the recorded sends and clears the log.
func (h *RouterHarness) GetActions() HarnessEvents {
	x := make([]HarnessEvent, 0)
	for _, action := range h.actions {
		if action.Message != "LOG" {
			x = append(x, action)
		}
	}

	h.actions = make([]HarnessEvent, 0)
	return x
}

// GetLogs returns the recorded router events, leaving the log untouched.
func (h *RouterHarness) GetLogs() []RouterEvent {
	x := make([]RouterEvent, 0)
	for _, action := range h.actions {
		if action.Message == "LOG" {
			x = append(x, action.Args[0].(RouterEvent))
		}
	}
	return x
}

func (e HarnessEvents) contains(msg string, args ...any) bool {
	for _, event := range e {
		if event.Message != msg || len(event.Args) < len(args) {
			continue
		}
		match := true
		for i, arg := range args {
			if !cmp.Equal(event.Args[i], arg) {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func (e HarnessEvents) AssertContains(t *testing.T, msg string, args ...any) {
	if e.contains(msg, args...) {
		return
	}
	t.Fatal("Expected event not found: ", msg, " with args: ", args, " in ", e)
}

func (e HarnessEvents) AssertNotContains(t *testing.T, msg string, args ...any) {
	if e.contains(msg, args...) {
		t.Fatal("Unexpected event found: ", msg, " with args: ", args, " in ", e)
	}
}

// MakeNetwork builds a network from link lines such as "A <-> B = 10".
func MakeNetwork(t *testing.T, nodes []state.NodeId, links ...string) *state.Network {
	t.Helper()
	edges := make([]state.EdgeCfg, 0)
	for _, line := range links {
		parsed, err := state.ParseLink(line)
		require.NoError(t, err)
		edges = append(edges, parsed...)
	}
	net, err := state.Build(nodes, edges)
	require.NoError(t, err)
	return net
}

func MakeOgm(originator, sender state.NodeId, seqno uint64, throughput float64) state.Ogm {
	return state.Ogm{
		Seqno:      seqno,
		Originator: originator,
		Sender:     sender,
		Throughput: throughput,
	}
}

// penalise applies the per hop penalty n times.
func penalise(throughput float64, n int) float64 {
	for range n {
		throughput *= 1 - state.HopPenalty
	}
	return throughput
}
