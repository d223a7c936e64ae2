package store

import (
	"context"
	"fmt"

	"github.com/roach88/nodeplay/internal/ir"
)

// RunRecord is one engine run.
type RunRecord struct {
	ID            string
	ScriptHash    string
	EngineVersion string
	FormatVersion string
}

// SaveScript stores g under its content hash and points name at it.
// Returns the hash. Saving identical content twice stores one body; an
// empty name stores the body without tagging it.
func (s *Store) SaveScript(ctx context.Context, name string, g ir.GraphRecord) (string, error) {
	if g.Version == "" {
		g.Version = ir.FormatVersion
	}
	hash, err := ir.ScriptHash(g)
	if err != nil {
		return "", fmt.Errorf("save script: %w", err)
	}
	body, err := marshalGraph(g)
	if err != nil {
		return "", fmt.Errorf("save script: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("save script: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO scripts (hash, format_version, body)
		VALUES (?, ?, ?)
		ON CONFLICT(hash) DO NOTHING
	`, hash, g.Version, body); err != nil {
		return "", fmt.Errorf("save script: %w", err)
	}

	if name != "" {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO script_names (name, hash)
			VALUES (?, ?)
			ON CONFLICT(name) DO UPDATE SET hash = excluded.hash
		`, name, hash); err != nil {
			return "", fmt.Errorf("save script: tag %q: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("save script: commit: %w", err)
	}
	return hash, nil
}

// WriteRun inserts a run record. Duplicate ids are silently ignored.
func (s *Store) WriteRun(ctx context.Context, run RunRecord) error {
	if run.EngineVersion == "" {
		run.EngineVersion = ir.EngineVersion
	}
	if run.FormatVersion == "" {
		run.FormatVersion = ir.FormatVersion
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, script_hash, engine_version, format_version)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.ScriptHash,
		run.EngineVersion,
		run.FormatVersion,
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	return nil
}

// WriteEvent appends a trace event. Uses ON CONFLICT(run_id, seq) DO
// NOTHING, so recording the same event twice is a no-op.
//
// Note: The run referenced by ev.RunID must exist (foreign key constraint).
func (s *Store) WriteEvent(ctx context.Context, ev ir.TraceEvent) error {
	value, err := marshalValue(ev.Value)
	if err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO trace_events
		(run_id, seq, tick, kind, node_id, class_name, node_name, link, from_id, from_link, value, upstream)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO NOTHING
	`,
		ev.RunID,
		ev.Seq,
		ev.Tick,
		string(ev.Kind),
		ev.NodeID,
		ev.ClassName,
		ev.NodeName,
		ev.Link,
		ev.FromID,
		ev.FromLink,
		value,
		boolToInt(ev.Upstream),
	)
	if err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return nil
}

// DeleteRun removes a run and its trace.
func (s *Store) DeleteRun(ctx context.Context, runID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete run: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM trace_events WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, runID); err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	return tx.Commit()
}
