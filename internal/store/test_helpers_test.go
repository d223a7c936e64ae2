package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/nodeplay/internal/ir"
)

// createTestStore creates a new store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestGraph returns a small graph: a start entry wired to a delay.
func createTestGraph() ir.GraphRecord {
	return ir.GraphRecord{
		Version: ir.FormatVersion,
		Properties: []ir.GlobalRecord{
			{Name: "score", InitialValue: ir.L(ir.IRInt(0))},
		},
		Nodes: []ir.NodeRecord{
			{
				ClassName: "EntryStart",
				ID:        1,
				Name:      "Start",
				Properties: []ir.PropertyRecord{
					{Name: "enabled", InitialValue: ir.L(ir.IRBool(true))},
				},
				ExitChains: []ir.ChainRecord{{OutName: "out", OutNodeID: 1, InName: "in", InNodeID: 2}},
			},
			{
				ClassName: "ProcessDelay",
				ID:        2,
				Name:      "Delay",
				Properties: []ir.PropertyRecord{
					{Name: "enabled", InitialValue: ir.L(ir.IRBool(true))},
					{Name: "milliseconds", InitialValue: ir.L(ir.IRInt(250))},
				},
			},
		},
	}
}

// createTestEvent creates a trace event with minimal required fields.
func createTestEvent(runID string, seq int64, kind ir.TraceKind) ir.TraceEvent {
	return ir.TraceEvent{
		RunID: runID,
		Seq:   seq,
		Tick:  seq / 2,
		Kind:  kind,
	}
}
