package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/nodeplay/internal/engine"
	"github.com/roach88/nodeplay/internal/ir"
	"github.com/roach88/nodeplay/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database    string
	Name        string
	Duration    time.Duration
	TickRate    time.Duration
	UpdateLimit int
	Debugging   bool
	Silent      bool

	// RunIDs allows overriding the run id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs engine.RunIDGenerator
}

// RunSummary describes a finished run.
type RunSummary struct {
	RunID      string               `json:"run_id"`
	Script     string               `json:"script"`
	ScriptHash string               `json:"script_hash"`
	Ticks      int64                `json:"ticks"`
	Events     int                  `json:"events"`
	Skipped    int                  `json:"skipped_nodes"`
	Counts     map[ir.TraceKind]int `json:"counts"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <graph.json>",
		Short: "Run a graph and record its trace",
		Long: `Run a graph on the activation engine and record its trace.

The graph is saved to the script library under --name (default: the file
name without extension) and every trace event of the run is recorded in
the SQLite database. Without --db an in-memory database is used and
only the summary survives.

With --duration the run uses the virtual clock: it starts, advances the
given engine time in steps of the tick rate, and stops. Runs made this
way can be checked with the replay command. Without --duration the
engine runs in real time until interrupted.

Examples:
  nodeplay run --db ./nodeplay.db graphs/blink.json
  nodeplay run --db ./nodeplay.db --duration 10s --tick 50ms graphs/blink.json
  nodeplay run --config engine.yaml graphs/blink.json --verbose`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraph(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default in-memory)")
	cmd.Flags().StringVar(&opts.Name, "name", "", "script library name for the graph")
	cmd.Flags().DurationVar(&opts.Duration, "duration", 0, "run for this much engine time on the virtual clock")
	cmd.Flags().DurationVar(&opts.TickRate, "tick", engine.DefaultTickRate, "engine tick rate")
	cmd.Flags().IntVar(&opts.UpdateLimit, "update-limit", engine.DefaultUpdateLimit, "max work items per tick (0 = unlimited)")
	cmd.Flags().BoolVar(&opts.Debugging, "debug", false, "arm node breakpoints")
	cmd.Flags().BoolVar(&opts.Silent, "silent", false, "suppress per-node debug logging")

	return cmd
}

// mergeRunFlags lets explicitly set flags override the config file.
func mergeRunFlags(cfg *Config, opts *RunOptions, cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("tick") || cfg.TickRate == 0 {
		cfg.TickRate = opts.TickRate
	}
	if flags.Changed("update-limit") || cfg.UpdateLimit == nil {
		limit := opts.UpdateLimit
		cfg.UpdateLimit = &limit
	}
	if flags.Changed("debug") {
		cfg.Debugging = opts.Debugging
	}
	if flags.Changed("silent") {
		cfg.Silent = opts.Silent
	}
	if flags.Changed("db") || cfg.Database == "" {
		cfg.Database = opts.Database
	}
}

func runGraph(opts *RunOptions, path string, cmd *cobra.Command) error {
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())
	formatter := newFormatter(opts.RootOptions, cmd)

	cfg, err := LoadConfig(opts.Config)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	mergeRunFlags(cfg, opts, cmd)

	logger.Info("loading graph", "path", path)
	loaded, loadErrors := LoadGraph(path, LoadModeFailFast)
	if len(loadErrors) > 0 {
		return WrapExitError(ExitCommandError, "failed to load graph", loadErrors[0])
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}

	dbPath := cfg.Database
	if dbPath == "" {
		dbPath = ":memory:"
	}
	logger.Info("opening database", "path", dbPath)
	st, err := store.Open(dbPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	name := opts.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	hash, err := st.SaveScript(parentCtx, name, loaded.Graph)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to save script", err)
	}

	reg, err := newRegistry(cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to register node types", err)
	}

	runIDs := opts.RunIDs
	if runIDs == nil {
		runIDs = engine.UUIDv7Generator{}
	}
	engineOpts := append(cfg.EngineOptions(),
		engine.WithLogger(logger),
		engine.WithRegistry(reg),
		engine.WithRecorder(store.NewRecorder(parentCtx, st, hash)),
		engine.WithRunIDGenerator(runIDs),
	)
	eng := engine.New(engineOpts...)
	defer eng.Close()

	skipped := eng.Load(loaded.Graph)
	for _, e := range skipped {
		logger.Warn("node skipped", "error", e)
	}

	eng.Start()
	runID := eng.RunID()

	if opts.Duration > 0 {
		logger.Info("running on virtual clock", "run_id", runID, "duration", opts.Duration.String(), "tick_rate", cfg.TickRate.String())
		eng.Update(0)
		eng.Advance(opts.Duration, cfg.TickRate)
	} else if err := runRealTime(parentCtx, eng, logger, cmd); err != nil {
		eng.Stop()
		return WrapExitError(ExitFailure, "engine error", err)
	}
	eng.Stop()

	state, err := st.GetRunState(parentCtx, runID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}
	summary := RunSummary{
		RunID:      runID,
		Script:     name,
		ScriptHash: hash,
		Ticks:      state.LastTick,
		Events:     state.Events,
		Skipped:    len(skipped),
		Counts:     state.Counts,
	}
	text := fmt.Sprintf("Run %s finished: %d events over %d ticks (script %s)", runID, summary.Events, summary.Ticks, name)
	return formatter.SuccessRun(runID, summary, text)
}

// runRealTime drives the engine until ctx is cancelled or SIGINT/SIGTERM
// arrives.
func runRealTime(parent context.Context, eng *engine.Engine, logger *slog.Logger, cmd *cobra.Command) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	logger.Info("engine starting", "run_id", eng.RunID())
	fmt.Fprintln(cmd.ErrOrStderr(), "Engine running. Press Ctrl-C to stop.")

	err := eng.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	logger.Info("engine stopped gracefully")
	return nil
}
