package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/nodeplay/internal/engine"
	"github.com/roach88/nodeplay/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database    string
	RunID       string // optional - specific run only
	TickRate    time.Duration
	UpdateLimit int
}

// ReplayRunResult holds the replay result for a single run.
type ReplayRunResult struct {
	RunID         string `json:"run_id"`
	ScriptHash    string `json:"script_hash"`
	Events        int    `json:"events"`
	Ticks         int64  `json:"ticks"`
	Deterministic bool   `json:"deterministic"`
	Divergence    string `json:"divergence,omitempty"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Runs             []ReplayRunResult `json:"runs"`
	TotalRuns        int               `json:"total_runs"`
	AllDeterministic bool              `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Re-run recorded runs and verify determinism",
		Long: `Re-run recorded runs from their stored script and compare traces.

Each run is replayed on a fresh engine on the virtual clock, for as many
ticks as the stored trace spans, and the new trace is compared event by
event with the recorded one. Only runs made with "run --duration" at the
same tick rate and update limit are expected to match.

Exit codes:
  0 - All runs are deterministic
  1 - A replayed trace diverged from the recorded one
  2 - Command error (database not found, unknown run, etc.)

Examples:
  nodeplay replay --db ./nodeplay.db
  nodeplay replay --db ./nodeplay.db --run 0192...
  nodeplay replay --db ./nodeplay.db --tick 50ms --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "replay specific run only")
	cmd.Flags().DurationVar(&opts.TickRate, "tick", engine.DefaultTickRate, "tick rate the runs were recorded at")
	cmd.Flags().IntVar(&opts.UpdateLimit, "update-limit", engine.DefaultUpdateLimit, "update limit the runs were recorded with")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	cfg, err := LoadConfig(opts.Config)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	// Get runs to process
	var runIDs []string
	if opts.RunID != "" {
		runIDs = []string{opts.RunID}
	} else {
		runs, err := st.ListRuns(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
		for _, r := range runs {
			runIDs = append(runIDs, r.ID)
		}
	}

	if len(runIDs) == 0 {
		if opts.Format == "json" {
			return outputReplayJSON(cmd, ReplayResult{Runs: []ReplayRunResult{}, AllDeterministic: true})
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No runs found in database.")
		return nil
	}

	result := ReplayResult{
		Runs:             make([]ReplayRunResult, 0, len(runIDs)),
		TotalRuns:        len(runIDs),
		AllDeterministic: true,
	}

	logger := newLogger(opts.RootOptions, io.Discard)
	if opts.Verbose {
		logger = newLogger(opts.RootOptions, cmd.ErrOrStderr())
	}

	for _, id := range runIDs {
		runResult, err := replayAndVerifyRun(ctx, st, cfg, opts, id, logger)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return WrapExitError(ExitCommandError, fmt.Sprintf("run %s", id), err)
			}
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay run %s", id), err)
		}
		result.Runs = append(result.Runs, runResult)
		if !runResult.Deterministic {
			result.AllDeterministic = false
		}
	}

	var outErr error
	if opts.Format == "json" {
		outErr = outputReplayJSON(cmd, result)
	} else {
		outputReplayText(cmd, result)
	}
	if outErr != nil {
		return outErr
	}
	if !result.AllDeterministic {
		return NewExitError(ExitFailure, "replay diverged from the recorded trace")
	}
	return nil
}

// replayAndVerifyRun replays one stored run and compares traces.
//
// The recorded trace ends at its last tick; a virtual-clock run reaches
// tick 1 on its first update and one more tick per step after that, so
// the replay advances (last tick - 1) steps.
func replayAndVerifyRun(ctx context.Context, st *store.Store, cfg *Config, opts *ReplayOptions, runID string, logger *slog.Logger) (ReplayRunResult, error) {
	state, err := st.GetRunState(ctx, runID)
	if err != nil {
		return ReplayRunResult{}, err
	}
	g, err := st.ReadScript(ctx, state.Run.ScriptHash)
	if err != nil {
		return ReplayRunResult{}, err
	}
	recorded, err := st.ReadTrace(ctx, runID)
	if err != nil {
		return ReplayRunResult{}, err
	}

	reg, err := newRegistry(cfg)
	if err != nil {
		return ReplayRunResult{}, err
	}
	steps := max(state.LastTick-1, 0)
	total := time.Duration(steps) * opts.TickRate
	logger.Info("replaying run", "run_id", runID, "ticks", state.LastTick, "total", total.String())

	replayed, err := engine.Replay(g, nil, runID, total, opts.TickRate,
		engine.WithRegistry(reg),
		engine.WithUpdateLimit(opts.UpdateLimit),
		engine.WithSilent(true),
	)
	if err != nil {
		return ReplayRunResult{}, err
	}

	result := ReplayRunResult{
		RunID:         runID,
		ScriptHash:    state.Run.ScriptHash,
		Events:        state.Events,
		Ticks:         state.LastTick,
		Deterministic: true,
	}
	if d := store.CompareTraces(recorded, replayed); d != nil {
		result.Deterministic = false
		result.Divergence = d.String()
	}
	return result, nil
}

func outputReplayJSON(cmd *cobra.Command, result ReplayResult) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func outputReplayText(cmd *cobra.Command, result ReplayResult) {
	w := cmd.OutOrStdout()
	for _, r := range result.Runs {
		if r.Deterministic {
			fmt.Fprintf(w, "\u2713 %s: %d events over %d ticks\n", r.RunID, r.Events, r.Ticks)
			continue
		}
		fmt.Fprintf(w, "\u2717 %s: %s\n", r.RunID, r.Divergence)
	}
	fmt.Fprintf(w, "\n%d run(s) replayed", result.TotalRuns)
	if result.AllDeterministic {
		fmt.Fprintln(w, ", all deterministic")
	} else {
		fmt.Fprintln(w, ", divergence detected")
	}
}
