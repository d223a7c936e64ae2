package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/nodeplay/internal/ir"
	"github.com/roach88/nodeplay/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string
	Kinds    []string // optional - filter to these kinds
	Node     string   // optional - filter to one node name
}

// ActivationEdge is an exit-to-entry activation seen in a trace: which
// exit caused which entry, and how often.
type ActivationEdge struct {
	FromID   int64  `json:"from_id"`
	FromNode string `json:"from_node"`
	FromLink string `json:"from_link"`
	ToID     int64  `json:"to_id"`
	ToNode   string `json:"to_node"`
	ToLink   string `json:"to_link"`
	Count    int    `json:"count"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	RunID      string           `json:"run_id"`
	ScriptHash string           `json:"script_hash"`
	Timeline   []ir.TraceEvent  `json:"timeline"`
	Edges      []ActivationEdge `json:"edges"`
	Stats      TraceStats       `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	TotalEvents int                  `json:"total_events"`
	Shown       int                  `json:"shown"`
	LastTick    int64                `json:"last_tick"`
	Stopped     bool                 `json:"stopped"`
	Counts      map[ir.TraceKind]int `json:"counts"`
}

// RunListItem summarises one stored run.
type RunListItem struct {
	RunID      string `json:"run_id"`
	ScriptHash string `json:"script_hash"`
	Events     int    `json:"events"`
	LastTick   int64  `json:"last_tick"`
	Stopped    bool   `json:"stopped"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show the recorded trace of a run",
		Long: `Show the recorded trace of a run.

Without --run, lists every run in the database. With --run, shows:
- Timeline: every trace event in seq order, optionally filtered
- Activations: which exit activated which entry, and how often
- Stats: event counts per kind

Examples:
  nodeplay trace --db ./nodeplay.db
  nodeplay trace --db ./nodeplay.db --run 0192...
  nodeplay trace --db ./nodeplay.db --run 0192... --kind entry,exit --node Delay
  nodeplay trace --db ./nodeplay.db --run 0192... --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run id to show")
	cmd.Flags().StringSliceVar(&opts.Kinds, "kind", nil, "filter to these event kinds")
	cmd.Flags().StringVar(&opts.Node, "node", "", "filter to events of this node")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if opts.RunID == "" {
		return listRuns(ctx, st, opts, cmd)
	}

	kinds := make([]ir.TraceKind, 0, len(opts.Kinds))
	for _, k := range opts.Kinds {
		kinds = append(kinds, ir.TraceKind(strings.TrimSpace(k)))
	}

	state, err := st.GetRunState(ctx, opts.RunID)
	if errors.Is(err, store.ErrNotFound) {
		return NewExitError(ExitCommandError, fmt.Sprintf("%s: run not found: %s", ErrCodeNoRun, opts.RunID))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to get run state", err)
	}

	events, err := st.ReadTrace(ctx, opts.RunID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read trace", err)
	}

	timeline := filterTimeline(events, kinds, opts.Node)
	result := TraceResult{
		RunID:      opts.RunID,
		ScriptHash: state.Run.ScriptHash,
		Timeline:   timeline,
		Edges:      buildEdges(events),
		Stats: TraceStats{
			TotalEvents: state.Events,
			Shown:       len(timeline),
			LastTick:    state.LastTick,
			Stopped:     state.Stopped,
			Counts:      state.Counts,
		},
	}

	if opts.Format == "json" {
		return outputTraceJSON(cmd, result)
	}
	return outputTraceText(cmd, result, opts.Verbose)
}

func listRuns(ctx context.Context, st *store.Store, opts *TraceOptions, cmd *cobra.Command) error {
	runs, err := st.ListRuns(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}
	items := make([]RunListItem, 0, len(runs))
	for _, r := range runs {
		state, err := st.GetRunState(ctx, r.ID)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to get run state", err)
		}
		items = append(items, RunListItem{
			RunID:      r.ID,
			ScriptHash: r.ScriptHash,
			Events:     state.Events,
			LastTick:   state.LastTick,
			Stopped:    state.Stopped,
		})
	}

	if opts.Format == "json" {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(items)
	}

	w := cmd.OutOrStdout()
	if len(items) == 0 {
		fmt.Fprintln(w, "No runs found in database.")
		return nil
	}
	for _, it := range items {
		status := "running"
		if it.Stopped {
			status = "stopped"
		}
		fmt.Fprintf(w, "%s  script %s  %d events  %d ticks  %s\n", it.RunID, shortHash(it.ScriptHash), it.Events, it.LastTick, status)
	}
	return nil
}

// filterTimeline keeps the events matching every given filter.
func filterTimeline(events []ir.TraceEvent, kinds []ir.TraceKind, node string) []ir.TraceEvent {
	out := []ir.TraceEvent{}
	for _, ev := range events {
		if len(kinds) > 0 && !slices.Contains(kinds, ev.Kind) {
			continue
		}
		if node != "" && ev.NodeName != node {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// buildEdges collects exit-to-entry activations from entry events, in
// order of first occurrence.
func buildEdges(events []ir.TraceEvent) []ActivationEdge {
	names := make(map[int64]string)
	for _, ev := range events {
		if ev.NodeID != 0 {
			names[ev.NodeID] = ev.NodeName
		}
	}

	type key struct {
		from     int64
		fromLink string
		to       int64
		toLink   string
	}
	index := make(map[key]int)
	edges := []ActivationEdge{}
	for _, ev := range events {
		if ev.Kind != ir.TraceEntry || ev.FromID == 0 {
			continue
		}
		k := key{ev.FromID, ev.FromLink, ev.NodeID, ev.Link}
		if i, ok := index[k]; ok {
			edges[i].Count++
			continue
		}
		index[k] = len(edges)
		edges = append(edges, ActivationEdge{
			FromID:   ev.FromID,
			FromNode: names[ev.FromID],
			FromLink: ev.FromLink,
			ToID:     ev.NodeID,
			ToNode:   ev.NodeName,
			ToLink:   ev.Link,
			Count:    1,
		})
	}
	return edges
}

// formatEvent renders one event on a line.
func formatEvent(ev ir.TraceEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%d] t%d %s", ev.Seq, ev.Tick, ev.Kind)
	if ev.NodeName != "" || ev.Link != "" {
		b.WriteByte(' ')
		b.WriteString(ev.NodeName)
		if ev.Link != "" {
			b.WriteByte('.')
			b.WriteString(ev.Link)
		}
	}
	if ev.Value != nil {
		data, err := ir.MarshalIRValue(ev.Value.Value)
		if err == nil {
			fmt.Fprintf(&b, " = %s", data)
		}
	}
	if ev.Upstream {
		b.WriteString(" (upstream)")
	}
	if ev.FromID != 0 {
		fmt.Fprintf(&b, " <- #%d.%s", ev.FromID, ev.FromLink)
	}
	return b.String()
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

func outputTraceJSON(cmd *cobra.Command, result TraceResult) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func outputTraceText(cmd *cobra.Command, result TraceResult, verbose bool) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Run: %s (script %s)\n\n", result.RunID, shortHash(result.ScriptHash))

	fmt.Fprintln(w, "Timeline:")
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  (no matching events)")
	}
	for _, ev := range result.Timeline {
		line := formatEvent(ev)
		if verbose && ev.ClassName != "" {
			line += fmt.Sprintf("  [%s #%d]", ev.ClassName, ev.NodeID)
		}
		fmt.Fprintf(w, "  %s\n", line)
	}

	if len(result.Edges) > 0 {
		fmt.Fprintln(w, "\nActivations:")
		for _, e := range result.Edges {
			fmt.Fprintf(w, "  %s.%s -> %s.%s (x%d)\n", e.FromNode, e.FromLink, e.ToNode, e.ToLink, e.Count)
		}
	}

	fmt.Fprintln(w, "\nStats:")
	fmt.Fprintf(w, "  Events: %d (%d shown)\n", result.Stats.TotalEvents, result.Stats.Shown)
	fmt.Fprintf(w, "  Last tick: %d\n", result.Stats.LastTick)
	kinds := make([]string, 0, len(result.Stats.Counts))
	for k := range result.Stats.Counts {
		kinds = append(kinds, string(k))
	}
	slices.Sort(kinds)
	for _, k := range kinds {
		fmt.Fprintf(w, "  %s: %d\n", k, result.Stats.Counts[ir.TraceKind(k)])
	}
	if result.Stats.Stopped {
		fmt.Fprintln(w, "  Status: stopped")
	} else {
		fmt.Fprintln(w, "  Status: running")
	}
	return nil
}
