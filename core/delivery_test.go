package core

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/encodeous/batsim/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDelivery(t *testing.T, delay DelayFunc) (*Delivery, *state.State, *state.VirtualClock, *[]state.Message) {
	net := MakeNetwork(t, []state.NodeId{"A", "B"}, "A <-> B = 10")
	clock := state.NewVirtualClock(time.UnixMilli(0))
	received := make([]state.Message, 0)
	d := &Delivery{
		Network:   net,
		Scheduler: clock,
		Delay:     delay,
		Handler: func(s *state.State, node *state.Node, msg state.Message) error {
			assert.Equal(t, state.NodeId("B"), node.Address)
			received = append(received, msg)
			return nil
		},
	}
	return d, &state.State{Network: net}, clock, &received
}

func fixedDelay(d time.Duration) DelayFunc {
	return func(_, _ state.NodeId) time.Duration {
		return d
	}
}

func TestDeliveryDeliversDecodedCopy(t *testing.T) {
	d, s, clock, received := newTestDelivery(t, fixedDelay(25*time.Millisecond))
	ogm := MakeOgm("A", "A", 4, state.MaxMetric)
	ogm.Timestamp = 1234

	require.NoError(t, d.Schedule("A", "B", ogm))
	assert.Equal(t, int64(1), d.InFlight())
	assert.Empty(t, *received)

	require.NoError(t, clock.Run(context.Background(), s))
	assert.Equal(t, int64(0), d.InFlight())
	assert.Equal(t, []state.Message{ogm}, *received)
	assert.Equal(t, time.UnixMilli(25), clock.Now())
}

func TestDeliveryUnknownAddress(t *testing.T) {
	d, _, clock, _ := newTestDelivery(t, fixedDelay(0))

	err := d.Schedule("A", "Z", MakeOgm("A", "A", 1, state.MaxMetric))
	var addrErr *state.UnknownAddressError
	require.ErrorAs(t, err, &addrErr)
	assert.Equal(t, state.NodeId("Z"), addrErr.Address)
	assert.Zero(t, d.InFlight())
	assert.Zero(t, clock.Pending())
}

func TestDeliveryCorruptPacket(t *testing.T) {
	d, s, clock, received := newTestDelivery(t, fixedDelay(0))

	require.NoError(t, d.SchedulePacket("A", "B", []byte{0xff}))
	require.Error(t, clock.Run(context.Background(), s))
	assert.Empty(t, *received)
}

func TestDeliveryReordering(t *testing.T) {
	// later sends can overtake earlier ones
	delays := []time.Duration{30 * time.Millisecond, 10 * time.Millisecond}
	d, s, clock, received := newTestDelivery(t, func(_, _ state.NodeId) time.Duration {
		next := delays[0]
		delays = delays[1:]
		return next
	})
	first := MakeOgm("A", "A", 1, state.MaxMetric)
	second := MakeOgm("A", "A", 2, state.MaxMetric)
	require.NoError(t, d.Schedule("A", "B", first))
	require.NoError(t, d.Schedule("A", "B", second))

	require.NoError(t, clock.Run(context.Background(), s))
	assert.Equal(t, []state.Message{second, first}, *received)
}

func TestUniformDelay(t *testing.T) {
	maxDelay := 100 * time.Millisecond
	delay := UniformDelay(rand.New(rand.NewPCG(1, 2)), maxDelay)
	for range 1000 {
		d := delay("A", "B")
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.Less(t, d, maxDelay)
	}

	// same seed, same sequence
	a := UniformDelay(rand.New(rand.NewPCG(9, 9)), maxDelay)
	b := UniformDelay(rand.New(rand.NewPCG(9, 9)), maxDelay)
	for range 100 {
		assert.Equal(t, a("A", "B"), b("B", "A"))
	}

	assert.Zero(t, UniformDelay(rand.New(rand.NewPCG(1, 1)), 0)("A", "B"))
}

type refuseAll struct {
	asked []int
}

func (g *refuseAll) Admit(bits int) bool {
	g.asked = append(g.asked, bits)
	return false
}

func TestDeliveryGateRejects(t *testing.T) {
	d, s, clock, received := newTestDelivery(t, fixedDelay(0))
	gate := &refuseAll{}
	d.Gates = map[state.NodeId]Gate{"A": gate}
	ogm := MakeOgm("A", "A", 1, state.MaxMetric)
	pkt, err := state.MarshalMessage(ogm)
	require.NoError(t, err)

	require.ErrorIs(t, d.Schedule("A", "B", ogm), ErrSendRejected)
	assert.Equal(t, []int{8 * len(pkt)}, gate.asked)
	assert.Zero(t, d.InFlight())

	// B has no gate
	require.NoError(t, d.Schedule("B", "B", ogm))
	require.NoError(t, clock.Run(context.Background(), s))
	assert.Len(t, *received, 1)
}
