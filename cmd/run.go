package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/pprof"
	"sync"
	"time"

	"github.com/encodeous/batsim/core"
	"github.com/encodeous/batsim/perf"
	"github.com/encodeous/batsim/state"
	"github.com/encodeous/batsim/store"
	"github.com/spf13/cobra"
)

type runFlags struct {
	verbose   bool
	logPath   string
	seed      uint64
	rounds    int
	jitter    time.Duration
	interval  time.Duration
	rateLimit float64
	realtime  bool
	duration  time.Duration
	watch     string
	trace     bool
	asYaml    bool
	debug     string
	db        string
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "Verbose output, logs every router event")
	cmd.Flags().StringVar(&f.logPath, "log", "", "Also write logs to this file")
	cmd.Flags().Uint64Var(&f.seed, "seed", 0, "Seed for delivery jitter, 0 picks a random seed")
	cmd.Flags().IntVarP(&f.rounds, "rounds", "r", 0, "Broadcasts per node (virtual clock only)")
	cmd.Flags().DurationVar(&f.jitter, "jitter", 0, "Upper bound of the delivery delay")
	cmd.Flags().DurationVar(&f.interval, "interval", 0, "Period between two broadcasts of a node")
	cmd.Flags().Float64Var(&f.rateLimit, "rate-limit", 0, "Leaky bucket capacity in bits per second per node, 0 disables")
	cmd.Flags().BoolVar(&f.realtime, "realtime", false, "Run against the wall clock instead of a virtual clock")
	cmd.Flags().DurationVarP(&f.duration, "duration", "d", 5*time.Second, "How long a run lasts, 0 runs until interrupted. Virtual runs are unbounded unless set")
	cmd.Flags().StringVarP(&f.watch, "watch", "w", "", "Periodically log the originator table of this node (realtime only)")
	cmd.Flags().BoolVar(&f.trace, "trace", false, "Print every router event to stdout")
	cmd.Flags().BoolVar(&f.asYaml, "yaml", false, "Print originator tables as yaml")
	cmd.Flags().StringVar(&f.debug, "debug", "", "Serve /debug/metrics, /debug/trace and pprof on this address")
	cmd.Flags().StringVar(&f.db, "db", "", "Record the resulting originator tables in this sqlite database")
}

// apply overrides the sim block of cfg with every flag the user set explicitly
func (f *runFlags) apply(cmd *cobra.Command, cfg *state.TopologyCfg) {
	if cmd.Flags().Changed("seed") {
		cfg.Sim.Seed = f.seed
	}
	if cmd.Flags().Changed("rounds") {
		cfg.Sim.Rounds = f.rounds
	}
	if cmd.Flags().Changed("jitter") {
		cfg.Sim.Jitter = f.jitter
	}
	if cmd.Flags().Changed("interval") {
		cfg.Sim.OgmInterval = f.interval
	}
	if cmd.Flags().Changed("rate-limit") {
		cfg.Sim.RateLimit = f.rateLimit
	}
}

func (f *runFlags) simulate(cmd *cobra.Command) (*state.State, error) {
	cfg, err := state.ReadTopology(topologyPath)
	if err != nil {
		return nil, err
	}
	f.apply(cmd, cfg)

	level := slog.LevelInfo
	if f.verbose {
		level = slog.LevelDebug
	}
	logger, err := core.NewLogger(level, f.logPath)
	if err != nil {
		return nil, err
	}

	opts := core.Options{
		Logger:        logger,
		Duration:      f.duration,
		Watch:         state.NodeId(f.watch),
		HandleSignals: true,
	}
	if !f.realtime && !cmd.Flags().Changed("duration") {
		// virtual runs go until the flood settles unless asked otherwise
		opts.Duration = 0
	}

	var debugSrv *http.Server
	if f.debug != "" {
		opts.OnReady = func(s *state.State) {
			debugSrv = debugServer(f.debug, core.Get[*core.SimTrace](s))
			go func() {
				err := debugSrv.ListenAndServe()
				if !errors.Is(err, http.ErrServerClosed) {
					logger.Error("debug server stopped", "error", err)
				}
			}()
		}
	}

	var printed sync.WaitGroup
	if f.trace {
		events := make(chan any, 1024)
		opts.Trace = events
		printed.Add(1)
		go func() {
			defer printed.Done()
			for ev := range events {
				fmt.Println(ev)
			}
		}()
		defer func() {
			close(events)
			printed.Wait()
		}()
	}

	var s *state.State
	if f.realtime {
		s, err = core.Start(*cfg, opts)
	} else {
		s, err = core.RunVirtual(context.Background(), *cfg, opts)
	}
	if debugSrv != nil {
		_ = debugSrv.Close()
	}
	if err != nil {
		return s, err
	}
	if f.db != "" {
		err = f.record(s)
	}
	return s, err
}

func debugServer(addr string, trace http.Handler) *http.Server {
	mux := http.NewServeMux()
	perf.Mount(mux)
	mux.Handle("/debug/trace", trace)
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	return &http.Server{Addr: addr, Handler: mux}
}

func (f *runFlags) record(s *state.State) error {
	ctx := context.Background()
	db, err := store.Open(ctx, f.db)
	if err != nil {
		return err
	}
	defer db.Close()
	sim := s.Topology.Sim
	id, err := db.SaveRun(ctx, store.Run{
		Topology: topologyPath,
		Seed:     core.Get[*core.SimRouter](s).Seed,
		Rounds:   sim.Rounds,
		Nodes:    len(s.Nodes),
		Edges:    len(s.Edges),
	}, s.Network)
	if err != nil {
		return err
	}
	s.Log.Info("recorded run", "id", id, "db", f.db)
	return nil
}

// runCmd represents the run command
var runFlag = &runFlags{}
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a simulation and print the resulting originator tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := runFlag.simulate(cmd)
		if err != nil {
			return err
		}
		if runFlag.asYaml {
			out, err := core.TablesYaml(s.Network)
			if err != nil {
				return err
			}
			fmt.Print(string(out))
			return nil
		}
		fmt.Print(core.FormatTables(s.Network))
		return nil
	},
	GroupID: "sim",
}

func init() {
	rootCmd.AddCommand(runCmd)
	runFlag.register(runCmd)
}
