package core

import (
	"time"

	"github.com/encodeous/batsim/state"
)

// Gate admits or refuses a transmission of the given size.
type Gate interface {
	Admit(bits int) bool
}

// LeakyBucket limits a sender to capacity bits per second. The bucket level rises on every admitted
// transmission and drains by capacity/ticksPerSecond on every tick, never below zero.
//
// LeakyBucket is driven from the scheduler's thread and is not safe for concurrent use.
type LeakyBucket struct {
	capacity       float64
	ticksPerSecond int
	level          float64
	sched          state.Scheduler
	ticking        bool
}

func NewLeakyBucket(capacityPerSecond float64, ticksPerSecond int) *LeakyBucket {
	if ticksPerSecond <= 0 {
		ticksPerSecond = state.DefaultTicksPerSecond
	}
	return &LeakyBucket{
		capacity:       capacityPerSecond,
		ticksPerSecond: ticksPerSecond,
	}
}

func (b *LeakyBucket) Level() float64 {
	return b.level
}

func (b *LeakyBucket) TickPeriod() time.Duration {
	return time.Second / time.Duration(b.ticksPerSecond)
}

// Admit reports whether bits may be sent now. A refused send fills the bucket.
func (b *LeakyBucket) Admit(bits int) bool {
	defer b.ensureTicking()
	next := b.level + float64(bits)
	if next > b.capacity {
		b.level = b.capacity
		return false
	}
	b.level = next
	return true
}

func (b *LeakyBucket) Tick() {
	b.level = max(b.level-b.capacity/float64(b.ticksPerSecond), 0)
}

// Start drives the bucket's ticks from sched. Ticks are only scheduled while the bucket holds
// something, so an idle bucket leaves no pending work behind.
func (b *LeakyBucket) Start(sched state.Scheduler) {
	b.sched = sched
	b.ensureTicking()
}

func (b *LeakyBucket) ensureTicking() {
	if b.sched == nil || b.ticking || b.level <= 0 {
		return
	}
	b.ticking = true
	b.sched.ScheduleTask(func(s *state.State) error {
		b.ticking = false
		b.Tick()
		b.ensureTicking()
		return nil
	}, b.TickPeriod())
}
