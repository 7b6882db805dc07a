package core

import (
	"context"
	"testing"
	"time"

	"github.com/encodeous/batsim/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeakyBucketAdmit(t *testing.T) {
	b := NewLeakyBucket(1000, 10)
	assert.Equal(t, 100*time.Millisecond, b.TickPeriod())

	assert.True(t, b.Admit(600))
	assert.Equal(t, 600.0, b.Level())
	assert.False(t, b.Admit(500))
	assert.Equal(t, 1000.0, b.Level())

	b.Tick()
	assert.Equal(t, 900.0, b.Level())
	assert.True(t, b.Admit(100))
	assert.False(t, b.Admit(1))
}

func TestLeakyBucketClampsAtZero(t *testing.T) {
	b := NewLeakyBucket(1000, 4)
	assert.True(t, b.Admit(100))
	b.Tick()
	assert.Equal(t, 0.0, b.Level())
	b.Tick()
	assert.Equal(t, 0.0, b.Level())
}

func TestLeakyBucketDefaultTicks(t *testing.T) {
	b := NewLeakyBucket(1000, 0)
	assert.Equal(t, time.Second/time.Duration(state.DefaultTicksPerSecond), b.TickPeriod())
}

func TestLeakyBucketDrainsOnScheduler(t *testing.T) {
	start := time.UnixMilli(0)
	clock := state.NewVirtualClock(start)
	b := NewLeakyBucket(1000, 10)
	b.Start(clock)
	// an empty bucket does not tick
	assert.Zero(t, clock.Pending())

	assert.True(t, b.Admit(1000))
	assert.Equal(t, 1, clock.Pending())
	assert.True(t, b.Admit(0))
	assert.Equal(t, 1, clock.Pending())

	require.NoError(t, clock.Run(context.Background(), &state.State{}))
	assert.Equal(t, 0.0, b.Level())
	assert.Equal(t, time.Second, clock.Now().Sub(start))
	assert.Zero(t, clock.Pending())
}
