package engine

import (
	"errors"
	"fmt"
)

// RuntimeError represents a condition detected while the engine runs.
//
// Runtime errors include:
//   - Cycle detection: a property write repeated on its own propagation path
//   - Quota exceeded: a tick hit the update limit
//   - Invalid state: an operation not allowed in the current state
//   - Decode failed: a persisted graph could not be loaded
//
// None of them stop the engine. The drain loop logs them, records them in
// the trace, and keeps going.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// RunID identifies the affected run.
	RunID string

	// NodeID identifies the node the failing work targeted, if any.
	NodeID int64

	// Details contains additional context.
	Details map[string]string
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeCycleDetected indicates a property write repeated on its own path.
	ErrCodeCycleDetected RuntimeErrorCode = "CYCLE_DETECTED"

	// ErrCodeQuotaExceeded indicates a tick hit the update limit.
	ErrCodeQuotaExceeded RuntimeErrorCode = "QUOTA_EXCEEDED"

	// ErrCodeInvalidState indicates an operation the current state forbids.
	ErrCodeInvalidState RuntimeErrorCode = "INVALID_STATE"

	// ErrCodeDecodeFailed indicates a graph record could not be loaded.
	ErrCodeDecodeFailed RuntimeErrorCode = "DECODE_FAILED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.RunID != "" && e.NodeID != 0 {
		return fmt.Sprintf("%s: %s (run=%s, node=%d)", e.Code, e.Message, e.RunID, e.NodeID)
	}
	if e.NodeID != 0 {
		return fmt.Sprintf("%s: %s (node=%d)", e.Code, e.Message, e.NodeID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsCycleError reports whether err is a cycle detection error.
func IsCycleError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeCycleDetected
	}
	return false
}

// IsQuotaError reports whether err is a quota error, either a RuntimeError
// with ErrCodeQuotaExceeded or a StepsExceededError.
func IsQuotaError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeQuotaExceeded
	}
	var se *StepsExceededError
	return errors.As(err, &se)
}

// IsStateError reports whether err is an invalid state error.
func IsStateError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeInvalidState
	}
	return false
}

// NewCycleError creates a RuntimeError for a repeated property write.
func NewCycleError(runID string, nodeID int64, prop, valueHash string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeCycleDetected,
		Message: "property propagation repeated on its own path",
		RunID:   runID,
		NodeID:  nodeID,
		Details: map[string]string{
			"property":   prop,
			"value_hash": valueHash,
		},
	}
}

// NewQuotaError creates a RuntimeError for a tick that hit the limit.
func NewQuotaError(runID string, tick int64, steps, maxSteps int) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeQuotaExceeded,
		Message: fmt.Sprintf("tick exceeded update limit (%d > %d)", steps, maxSteps),
		RunID:   runID,
		Details: map[string]string{
			"tick":      fmt.Sprintf("%d", tick),
			"steps":     fmt.Sprintf("%d", steps),
			"max_steps": fmt.Sprintf("%d", maxSteps),
		},
	}
}

// NewStateError creates a RuntimeError for an operation the current state
// forbids.
func NewStateError(op string, state State) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeInvalidState,
		Message: fmt.Sprintf("cannot %s while %s", op, state),
	}
}
