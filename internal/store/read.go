package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/nodeplay/internal/ir"
)

// ErrNotFound is returned when a script, tag, or run does not exist.
var ErrNotFound = errors.New("not found")

// ScriptInfo describes a tagged script.
type ScriptInfo struct {
	Name string
	Hash string
}

// ReadScript returns the graph stored under hash.
func (s *Store) ReadScript(ctx context.Context, hash string) (ir.GraphRecord, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `
		SELECT body FROM scripts WHERE hash = ?
	`, hash).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.GraphRecord{}, fmt.Errorf("read script %s: %w", hash, ErrNotFound)
	}
	if err != nil {
		return ir.GraphRecord{}, fmt.Errorf("read script %s: %w", hash, err)
	}
	return unmarshalGraph(body)
}

// ResolveScript maps a name tag or a full hash to a hash. Tags win over
// hashes.
func (s *Store) ResolveScript(ctx context.Context, ref string) (string, error) {
	var hash string
	err := s.db.QueryRowContext(ctx, `
		SELECT hash FROM script_names WHERE name = ?
	`, ref).Scan(&hash)
	if err == nil {
		return hash, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("resolve script %q: %w", ref, err)
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT hash FROM scripts WHERE hash = ?
	`, ref).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("resolve script %q: %w", ref, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("resolve script %q: %w", ref, err)
	}
	return hash, nil
}

// ListScripts returns every tagged script ordered by name.
func (s *Store) ListScripts(ctx context.Context) ([]ScriptInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, hash FROM script_names
		ORDER BY name COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list scripts: %w", err)
	}
	defer rows.Close()

	scripts := []ScriptInfo{}
	for rows.Next() {
		var info ScriptInfo
		if err := rows.Scan(&info.Name, &info.Hash); err != nil {
			return nil, fmt.Errorf("scan script: %w", err)
		}
		scripts = append(scripts, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scripts: %w", err)
	}
	return scripts, nil
}

// ReadRun retrieves a run by id.
func (s *Store) ReadRun(ctx context.Context, id string) (RunRecord, error) {
	var run RunRecord
	err := s.db.QueryRowContext(ctx, `
		SELECT id, script_hash, engine_version, format_version
		FROM runs WHERE id = ?
	`, id).Scan(&run.ID, &run.ScriptHash, &run.EngineVersion, &run.FormatVersion)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, fmt.Errorf("read run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return RunRecord{}, fmt.Errorf("read run %s: %w", id, err)
	}
	return run, nil
}

// ListRuns returns every run, in insertion order.
func (s *Store) ListRuns(ctx context.Context) ([]RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, script_hash, engine_version, format_version
		FROM runs
		ORDER BY rowid ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := []RunRecord{}
	for rows.Next() {
		var run RunRecord
		if err := rows.Scan(&run.ID, &run.ScriptHash, &run.EngineVersion, &run.FormatVersion); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadTrace returns a run's trace ordered by seq. When kinds is non-empty
// only events of those kinds are returned.
//
// Returns an empty slice (not nil) if the run recorded nothing.
func (s *Store) ReadTrace(ctx context.Context, runID string, kinds ...ir.TraceKind) ([]ir.TraceEvent, error) {
	query := `
		SELECT run_id, seq, tick, kind, node_id, class_name, node_name, link, from_id, from_link, value, upstream
		FROM trace_events
		WHERE run_id = ?`
	args := []any{runID}
	if len(kinds) > 0 {
		query += ` AND kind IN (?` + strings.Repeat(`, ?`, len(kinds)-1) + `)`
		for _, k := range kinds {
			args = append(args, string(k))
		}
	}
	query += ` ORDER BY seq ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query trace: %w", err)
	}
	defer rows.Close()

	events := []ir.TraceEvent{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trace: %w", err)
	}
	return events, nil
}

func scanEvent(rows *sql.Rows) (ir.TraceEvent, error) {
	var (
		ev       ir.TraceEvent
		kind     string
		value    sql.NullString
		upstream int
	)
	if err := rows.Scan(
		&ev.RunID,
		&ev.Seq,
		&ev.Tick,
		&kind,
		&ev.NodeID,
		&ev.ClassName,
		&ev.NodeName,
		&ev.Link,
		&ev.FromID,
		&ev.FromLink,
		&value,
		&upstream,
	); err != nil {
		return ir.TraceEvent{}, fmt.Errorf("scan trace event: %w", err)
	}
	ev.Kind = ir.TraceKind(kind)
	ev.Upstream = upstream != 0

	lit, err := unmarshalValue(value)
	if err != nil {
		return ir.TraceEvent{}, fmt.Errorf("trace event %d: %w", ev.Seq, err)
	}
	ev.Value = lit
	return ev, nil
}
