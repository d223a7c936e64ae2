package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/nodeplay/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Filter string // scenario filter (glob pattern on the file name)
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenario-path>...",
		Short: "Run conformance scenarios",
		Long: `Run conformance scenarios using the harness.

Each path is a scenario file or a directory searched recursively for
.yaml and .yml files. Every scenario loads its graph, drives a fresh
engine through its steps on the virtual clock, and checks trace and
final state assertions.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  nodeplay test ./scenarios
  nodeplay test ./scenarios --filter "delay*"
  nodeplay test ./scenarios/counter.yaml --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runTests(opts *TestOptions, paths []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	if opts.Filter != "" {
		if _, err := filepath.Match(opts.Filter, ""); err != nil {
			return WrapExitError(ExitCommandError, "invalid filter pattern", err)
		}
	}

	var files []string
	for _, p := range paths {
		found, err := harness.DiscoverScenarios(p)
		var notFound *harness.ScenarioNotFoundError
		if errors.As(err, &notFound) {
			return NewExitError(ExitCommandError, notFound.Error())
		}
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to find scenarios", err)
		}
		for _, f := range found {
			if matchesFilter(f, opts.Filter) {
				files = append(files, f)
			}
		}
	}
	formatter.VerboseLog("Found %d scenario(s)", len(files))

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	summary, err := harness.RunScenarios(ctx, files)
	if err != nil {
		return WrapExitError(ExitCommandError, "scenario run interrupted", err)
	}

	if opts.Format == "json" {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(summary); err != nil {
			return err
		}
	} else {
		outputTestText(cmd, summary, len(files) == 0)
	}

	if summary.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d scenario(s) failed", summary.Failed, summary.Total))
	}
	return nil
}

// matchesFilter checks a scenario's file name against the glob.
func matchesFilter(path, filter string) bool {
	if filter == "" {
		return true
	}
	base := filepath.Base(path)
	ok, _ := filepath.Match(filter, base)
	if !ok {
		ok, _ = filepath.Match(filter, base[:len(base)-len(filepath.Ext(base))])
	}
	return ok
}

func outputTestText(cmd *cobra.Command, summary *harness.Summary, empty bool) {
	w := cmd.OutOrStdout()
	if empty {
		fmt.Fprintln(w, "No scenarios found.")
		return
	}

	for _, f := range summary.Failures {
		name := f.Name
		if name == "" {
			name = filepath.Base(f.Path)
		}
		fmt.Fprintf(w, "\u2717 %s (%s)\n", name, f.Path)
		for _, e := range f.Errors {
			fmt.Fprintf(w, "    %s\n", e)
		}
	}

	fmt.Fprintf(w, "\n%d passed, %d failed, %d total\n", summary.Passed, summary.Failed, summary.Total)
}
