package core

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/encodeous/batsim/perf"
	"github.com/encodeous/batsim/state"
)

// DelayFunc picks the transit time of a single delivery over the link from -> to
type DelayFunc func(from, to state.NodeId) time.Duration

// UniformDelay draws delays uniformly from [0, maxDelay), regardless of the link
func UniformDelay(rng *rand.Rand, maxDelay time.Duration) DelayFunc {
	return func(_, _ state.NodeId) time.Duration {
		if maxDelay <= 0 {
			return 0
		}
		return time.Duration(rng.Int64N(int64(maxDelay)))
	}
}

// ErrSendRejected is returned by Schedule when the sender's gate refuses the packet.
var ErrSendRejected = errors.New("send rejected by rate limiter")

// MessageHandler is invoked on the scheduler's thread for every delivered packet.
type MessageHandler func(s *state.State, node *state.Node, msg state.Message) error

// Delivery simulates the transport between neighbours: every packet is encoded, held for a random
// delay, decoded and handed to the receiving node. There is no loss and no ordering guarantee.
type Delivery struct {
	Network   *state.Network
	Scheduler state.Scheduler
	Delay     DelayFunc
	Handler   MessageHandler
	// Gates rate-limit the sends of each node. A node without a gate sends freely.
	Gates    map[state.NodeId]Gate
	inFlight atomic.Int64
}

// InFlight is the number of scheduled packets that have not been delivered yet
func (d *Delivery) InFlight() int64 {
	return d.inFlight.Load()
}

// Schedule encodes msg and, if the sender's gate admits it, schedules its delivery to the node at
// address to.
func (d *Delivery) Schedule(from, to state.NodeId, msg state.Message) error {
	pkt, err := state.MarshalMessage(msg)
	if err != nil {
		return err
	}
	if gate, ok := d.Gates[from]; ok && !gate.Admit(8*len(pkt)) {
		return ErrSendRejected
	}
	err = d.SchedulePacket(from, to, pkt)
	if err != nil {
		return err
	}
	perf.OgmSentBytes.Add(float64(len(pkt)))
	return nil
}

// SchedulePacket schedules delivery of an already encoded packet.
func (d *Delivery) SchedulePacket(from, to state.NodeId, pkt []byte) error {
	if _, err := d.Network.GetNode(to); err != nil {
		return fmt.Errorf("cannot schedule delivery from %s: %w", from, err)
	}
	delay := d.Delay(from, to)
	d.inFlight.Add(1)
	d.Scheduler.ScheduleTask(func(s *state.State) error {
		d.inFlight.Add(-1)
		perf.DeliveryDelay.Add(float64(delay.Milliseconds()))
		perf.OgmRecvPerSecond.Add(1)
		msg, err := state.UnmarshalMessage(pkt)
		if err != nil {
			return fmt.Errorf("corrupt packet from %s to %s: %w", from, to, err)
		}
		node, err := s.Network.GetNode(to)
		if err != nil {
			return fmt.Errorf("cannot deliver packet from %s: %w", from, err)
		}
		return d.Handler(s, node, msg)
	}, delay)
	return nil
}
