package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nodeplay/internal/engine"
	"github.com/roach88/nodeplay/internal/graph"
	"github.com/roach88/nodeplay/internal/ir"
	"github.com/roach88/nodeplay/internal/testutil"
)

// delayGraph is Start -> Delay(ms).
func delayGraph(ms int64) ir.GraphRecord {
	return testutil.NewGraphBuilder().
		Node("EntryStart", "Start").
		Node("ProcessDelay", "Delay", testutil.Prop("milliseconds", ir.IRInt(ms))).
		Exit("Start", "out", "Delay", "in").
		Build()
}

// counterGraph ticks every 100ms and adds one to Counter.
func counterGraph() ir.GraphRecord {
	return testutil.NewGraphBuilder().
		Node("EntryUpdate", "Tick", testutil.Prop("milliseconds", ir.IRInt(100))).
		Node("ProcessOperation", "Add", testutil.Prop("valueB", ir.IRInt(1))).
		Node("StorageNumber", "Counter", testutil.Prop("value", ir.IRInt(0))).
		Exit("Tick", "out", "Add", "add").
		Output("Add", "result", "Counter", "value").
		Output("Counter", "value", "Add", "valueA").
		Build()
}

// compositeGraph wraps a delay in a composite named Blinker.
func compositeGraph() ir.GraphRecord {
	g := delayGraph(10)
	g.Nodes = append(g.Nodes, ir.NodeRecord{
		ClassName:    graph.ClassCompositeScript,
		ID:           10,
		Name:         "Blinker",
		Properties:   []ir.PropertyRecord{},
		ExitChains:   []ir.ChainRecord{},
		OutputChains: []ir.ChainRecord{},
		Nodes: []ir.NodeRecord{{
			ClassName:    "ProcessDelay",
			ID:           11,
			Name:         "Inner",
			Properties:   []ir.PropertyRecord{testutil.Prop("milliseconds", ir.IRInt(250))},
			ExitChains:   []ir.ChainRecord{},
			OutputChains: []ir.ChainRecord{},
		}},
	})
	return g
}

func writeGraph(t *testing.T, dir, name string, g ir.GraphRecord) string {
	t.Helper()
	data, err := json.Marshal(g)
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// execute runs cmd with args and returns stdout and stderr.
func execute(cmd *cobra.Command, args ...string) (string, string, error) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// recordVirtualRun runs g for d on the virtual clock into a database at
// dbPath, with a fixed run id.
func recordVirtualRun(t *testing.T, dir string, g ir.GraphRecord, runID string, d string) string {
	t.Helper()
	graphPath := writeGraph(t, dir, "graph.json", g)
	dbPath := filepath.Join(dir, "runs.db")

	opts := &RunOptions{RootOptions: &RootOptions{Format: "text"}, RunIDs: engine.NewFixedGenerator(runID)}
	cmd := newRunCommand(opts)
	_, _, err := execute(cmd, "--db", dbPath, "--duration", d, "--tick", "100ms", graphPath)
	require.NoError(t, err)
	return dbPath
}
