package state

import (
	"context"
	"log/slog"
	"sync/atomic"
)

type SimModule interface {
	Init(s *State) error
	Cleanup(s *State) error
}

// State access must be done only from the scheduler's thread of control
type State struct {
	*Env
	*Network
	Modules map[string]SimModule
}

// Env can be read from any Goroutine
type Env struct {
	DispatchChannel chan<- func(s *State) error
	Topology        TopologyCfg
	// Scheduler runs deferred work. It is either the Env itself (realtime) or a VirtualClock.
	Scheduler Scheduler
	Context   context.Context
	Cancel    context.CancelCauseFunc
	Log       *slog.Logger
	Started   atomic.Bool
	Stopping  atomic.Bool
}
