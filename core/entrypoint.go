package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path"
	"syscall"
	"time"

	"github.com/encodeous/batsim/state"
	"github.com/encodeous/tint"
	slogmulti "github.com/samber/slog-multi"
)

var (
	ErrRunComplete    = errors.New("run duration elapsed")
	ErrShutdownSignal = errors.New("received shutdown signal")
)

type Options struct {
	Level   slog.Level
	LogPath string // if not empty, logs are also written to this file
	// Logger overrides Level and LogPath
	Logger *slog.Logger
	// Delay overrides the seeded uniform delivery delay
	Delay DelayFunc
	// Trace receives every TraceEvent published during the run, in order. Sends block, so it must be
	// read concurrently or be large enough. The caller may close it once the run returns.
	Trace chan<- any
	// Duration bounds the run, in wall clock or virtual time. 0 runs until cancelled, or in a virtual
	// run until no delivery is pending.
	Duration time.Duration
	// OnReady is called once the modules are initialised, right before the simulation starts
	OnReady func(s *state.State)

	// realtime only
	Watch         state.NodeId // periodically log the originator table of this node
	HandleSignals bool
}

func NewLogger(level slog.Level, logPath string) (*slog.Logger, error) {
	handlers := make([]slog.Handler, 0)
	handlers = append(handlers,
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:        level,
			AddSource:    false,
			CustomPrefix: "batsim",
			ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
				if attr.Key == "time" {
					return slog.Attr{}
				}
				return attr
			},
		}))

	if logPath != "" {
		err := os.MkdirAll(path.Dir(logPath), 0700)
		if err != nil {
			return nil, err
		}
		f, err := os.OpenFile(logPath, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0600)
		if err != nil {
			return nil, err
		}
		handlers = append(handlers, slog.NewTextHandler(f, &slog.HandlerOptions{Level: level}))
	}

	return slog.New(slogmulti.Fanout(handlers...)), nil
}

func newState(ctx context.Context, cancel context.CancelCauseFunc, cfg *state.TopologyCfg, opts Options) (*state.State, error) {
	network, err := state.BuildTopology(cfg)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger, err = NewLogger(opts.Level, opts.LogPath)
		if err != nil {
			return nil, err
		}
	}
	return &state.State{
		Network: network,
		Modules: make(map[string]state.SimModule),
		Env: &state.Env{
			Context:  ctx,
			Cancel:   cancel,
			Topology: *cfg,
			Log:      logger,
		},
	}, nil
}

func setupModules(s *state.State, opts Options) error {
	s.Log.Debug("init modules")
	err := initModules(s)
	if err != nil {
		return err
	}
	if opts.Delay != nil {
		Get[*SimRouter](s).Delivery.Delay = opts.Delay
	}
	if opts.Trace != nil {
		Get[*SimTrace](s).Collect(opts.Trace)
	}
	s.Log.Debug("init modules complete")
	return nil
}

// RunVirtual floods cfg.Sim.Rounds rounds of OGMs over a virtual clock and returns once no delivery
// is pending, or once opts.Duration of virtual time has passed. The returned state holds the
// originator tables at that point.
func RunVirtual(ctx context.Context, cfg state.TopologyCfg, opts Options) (*state.State, error) {
	ctx, cancel := context.WithCancelCause(ctx)
	s, err := newState(ctx, cancel, &cfg, opts)
	if err != nil {
		cancel(err)
		return nil, err
	}
	start := time.Now()
	clock := state.NewVirtualClock(start)
	s.Scheduler = clock
	err = setupModules(s, opts)
	if err != nil {
		cancel(err)
		return nil, err
	}

	sim := s.Topology.Sim
	Get[*SimRouter](s).ScheduleRounds(sim.Rounds, sim.OgmInterval)
	s.Log.Info("simulation started", "nodes", len(s.Nodes), "edges", len(s.Edges), "rounds", sim.Rounds)
	s.Started.Store(true)
	if opts.OnReady != nil {
		opts.OnReady(s)
	}

	if opts.Duration > 0 {
		err = clock.RunUntil(ctx, s, start.Add(opts.Duration))
	} else {
		err = clock.Run(ctx, s)
	}
	if err != nil {
		s.Log.Error("simulation failed", "error", err)
		cancel(err)
	} else if clock.Pending() > 0 {
		s.Log.Info("virtual duration elapsed", "virtual_elapsed", clock.Now().Sub(start), "pending", clock.Pending())
	} else {
		s.Log.Info("simulation quiescent", "virtual_elapsed", clock.Now().Sub(start))
	}
	Stop(s)
	return s, err
}

// Start runs the simulation against the wall clock. Every node broadcasts every OgmInterval until
// opts.Duration elapses, a signal arrives, or a task fails.
func Start(cfg state.TopologyCfg, opts Options) (*state.State, error) {
	ctx, cancel := context.WithCancelCause(context.Background())

	dispatch := make(chan func(env *state.State) error, 128)

	s, err := newState(ctx, cancel, &cfg, opts)
	if err != nil {
		cancel(err)
		return nil, err
	}
	s.DispatchChannel = dispatch
	s.Scheduler = s.Env

	err = setupModules(s, opts)
	if err != nil {
		cancel(err)
		return nil, err
	}

	if opts.HandleSignals {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(c)
		go func() {
			select {
			case <-c:
				s.Cancel(ErrShutdownSignal)
			case <-ctx.Done():
				return
			}
		}()
		s.Log.Info("Simulation started. To gracefully exit, send SIGINT or Ctrl+C.")
	}

	if opts.Duration > 0 {
		timer := time.AfterFunc(opts.Duration, func() {
			cancel(ErrRunComplete)
		})
		defer timer.Stop()
	}

	if opts.Watch != "" {
		go watchTable(s.Env, opts.Watch, s.Topology.Sim.OgmInterval)
	}

	Get[*SimRouter](s).RepeatBroadcasts(s.Topology.Sim.OgmInterval)
	if opts.OnReady != nil {
		opts.OnReady(s)
	}

	err = MainLoop(s, dispatch)
	if err != nil {
		return s, err
	}
	cause := context.Cause(ctx)
	if errors.Is(cause, ErrRunComplete) || errors.Is(cause, ErrShutdownSignal) {
		return s, nil
	}
	return s, fmt.Errorf("simulation stopped: %w", cause)
}

func watchTable(env *state.Env, id state.NodeId, interval time.Duration) {
	for {
		select {
		case <-env.Context.Done():
			return
		case <-time.After(interval):
		}
		table, err := QueryOriginatorTable(env, id)
		if err != nil {
			if env.Context.Err() == nil {
				env.Log.Error("failed to query originator table", "node", id, "error", err)
			}
			return
		}
		env.Log.Info("originator table", "node", id, "table", FormatTable(table))
	}
}
