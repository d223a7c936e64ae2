package store

import (
	"database/sql"
	"fmt"

	"github.com/roach88/nodeplay/internal/ir"
)

// marshalGraph converts a graph to canonical JSON TEXT for storage.
// The stored body is exactly what ScriptHash hashed.
func marshalGraph(g ir.GraphRecord) (string, error) {
	data, err := ir.CanonicalGraph(g)
	if err != nil {
		return "", fmt.Errorf("marshal graph: %w", err)
	}
	return string(data), nil
}

// unmarshalGraph parses a stored graph body.
func unmarshalGraph(data string) (ir.GraphRecord, error) {
	g, err := ir.DecodeGraph([]byte(data))
	if err != nil {
		return ir.GraphRecord{}, fmt.Errorf("unmarshal graph: %w", err)
	}
	return g, nil
}

// marshalValue converts an optional trace value to canonical JSON TEXT.
// A missing value is stored as SQL NULL, distinct from a JSON null.
func marshalValue(v *ir.Literal) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	val := v.Value
	if val == nil {
		val = ir.IRNull{}
	}
	data, err := ir.MarshalCanonical(val)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshal value: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// unmarshalValue parses a stored trace value. Large integers keep full
// precision.
func unmarshalValue(data sql.NullString) (*ir.Literal, error) {
	if !data.Valid {
		return nil, nil
	}
	v, err := ir.UnmarshalIRValue([]byte(data.String))
	if err != nil {
		return nil, fmt.Errorf("unmarshal value: %w", err)
	}
	return ir.LP(v), nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
