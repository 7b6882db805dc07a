package state

import (
	"context"
	"time"

	"github.com/google/btree"
)

type clockTask struct {
	at  time.Time
	seq uint64
	fun func(*State) error
}

func clockTaskLess(a, b clockTask) bool {
	if a.at.Equal(b.at) {
		return a.seq < b.seq
	}
	return a.at.Before(b.at)
}

// VirtualClock is a discrete-event Scheduler. Tasks run in order of due time (ties in scheduling
// order) and time jumps straight to the next due task. It is not safe for concurrent use.
type VirtualClock struct {
	now   time.Time
	seq   uint64
	queue *btree.BTreeG[clockTask]
}

func NewVirtualClock(start time.Time) *VirtualClock {
	return &VirtualClock{
		now:   start,
		queue: btree.NewG[clockTask](8, clockTaskLess),
	}
}

func (c *VirtualClock) Now() time.Time {
	return c.now
}

func (c *VirtualClock) ScheduleTask(fun func(*State) error, delay time.Duration) {
	c.seq++
	c.queue.ReplaceOrInsert(clockTask{
		at:  c.now.Add(max(delay, 0)),
		seq: c.seq,
		fun: fun,
	})
}

// Pending is the number of tasks that have not run yet
func (c *VirtualClock) Pending() int {
	return c.queue.Len()
}

// Step runs the next due task. It returns false when the queue is empty.
func (c *VirtualClock) Step(s *State) (bool, error) {
	next, ok := c.queue.DeleteMin()
	if !ok {
		return false, nil
	}
	c.now = next.at
	return true, next.fun(s)
}

// Run executes tasks until the queue drains, ctx is cancelled, or a task fails.
func (c *VirtualClock) Run(ctx context.Context, s *State) error {
	for {
		if err := ctx.Err(); err != nil {
			return context.Cause(ctx)
		}
		ok, err := c.Step(s)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}
}

// RunUntil is like Run but leaves tasks due after deadline in the queue.
func (c *VirtualClock) RunUntil(ctx context.Context, s *State, deadline time.Time) error {
	for {
		if err := ctx.Err(); err != nil {
			return context.Cause(ctx)
		}
		next, ok := c.queue.Min()
		if !ok || next.at.After(deadline) {
			if deadline.After(c.now) {
				c.now = deadline
			}
			return nil
		}
		_, err := c.Step(s)
		if err != nil {
			return err
		}
	}
}
