package core

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/encodeous/batsim/perf"
	"github.com/encodeous/batsim/state"
)

// SimRouter runs the OGM engine for every node of the network on top of the simulated transport.
type SimRouter struct {
	*state.State
	Delivery *Delivery
	// Seed is the seed the delivery jitter was drawn with
	Seed  uint64
	trace *SimTrace
}

func (r *SimRouter) Init(s *state.State) error {
	s.Log.Debug("init router")
	r.State = s
	r.trace, _ = Lookup[*SimTrace](s)

	cfg := s.Topology.Sim
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	r.Seed = seed
	s.Log.Debug("delivery jitter", "max", cfg.Jitter, "seed", seed)
	r.Delivery = &Delivery{
		Network:   s.Network,
		Scheduler: s.Scheduler,
		Delay:     UniformDelay(rand.New(rand.NewPCG(seed, seed)), cfg.Jitter),
		Handler: func(s *state.State, node *state.Node, msg state.Message) error {
			return HandleMessage(s.Network, node, msg, r)
		},
	}

	if cfg.RateLimit > 0 {
		s.Log.Info("rate limiting enabled", "bps", cfg.RateLimit, "ticks", cfg.TicksPerSecond)
		r.Delivery.Gates = make(map[state.NodeId]Gate)
		for _, id := range s.Order {
			bucket := NewLeakyBucket(cfg.RateLimit, cfg.TicksPerSecond)
			bucket.Start(s.Scheduler)
			r.Delivery.Gates[id] = bucket
		}
	}
	return nil
}

func (r *SimRouter) Cleanup(s *state.State) error {
	r.State = nil
	r.trace = nil
	return nil
}

func (r *SimRouter) SendOgm(from *state.Node, to state.NodeId, ogm state.Ogm) error {
	err := r.Delivery.Schedule(from.Address, to, ogm)
	if errors.Is(err, ErrSendRejected) {
		r.Log(OgmSendRejected, "rate limited", "node", from.Address, "to", to, "ogm", ogm)
		return nil
	}
	if err != nil {
		return err
	}
	r.Log(OgmSent, "sent ogm", "node", from.Address, "to", to, "ogm", ogm)
	return nil
}

func (r *SimRouter) Log(event RouterEvent, desc string, args ...any) {
	switch event {
	case OgmSent:
		perf.OgmSentPerSecond.Add(1)
	case OgmDroppedSelfOrigin, OgmDroppedStale, OgmDroppedNoLink:
		perf.OgmDropped.Add(1)
	case OgmSendRejected:
		perf.OgmRejected.Add(1)
	case NextHopUpdated:
		perf.NextHopChanges.Add(1)
	case OriginatorAdded:
		perf.OriginatorsLearnt.Add(1)
	}
	if r.trace != nil {
		r.trace.Publish(TraceEvent{
			At:    r.Scheduler.Now(),
			Event: event,
			Desc:  desc,
			Args:  args,
		})
	}
	if event.IsWarning() {
		r.Env.Log.Warn(fmt.Sprintf("%s %s", event.String(), desc), args...)
	} else {
		r.Env.Log.Debug(fmt.Sprintf("%s %s", event.String(), desc), args...)
	}
}

// BroadcastTask returns a task that makes node originate a new OGM.
func (r *SimRouter) BroadcastTask(id state.NodeId) func(*state.State) error {
	return func(s *state.State) error {
		node, err := s.GetNode(id)
		if err != nil {
			return err
		}
		return Broadcast(node, s.Scheduler.Now(), r)
	}
}

// ScheduleRounds makes every node broadcast rounds times, interval apart, starting now.
func (r *SimRouter) ScheduleRounds(rounds int, interval time.Duration) {
	for round := range rounds {
		for _, id := range r.Order {
			r.Scheduler.ScheduleTask(r.BroadcastTask(id), time.Duration(round)*interval)
		}
	}
}

// RepeatBroadcasts makes every node broadcast every interval until the run is cancelled.
func (r *SimRouter) RepeatBroadcasts(interval time.Duration) {
	for _, id := range r.Order {
		r.Env.RepeatTask(r.BroadcastTask(id), interval)
	}
}
