package engine

import (
	"errors"
	"fmt"
)

// QuotaEnforcer bounds the number of work items executed in one tick.
//
// A chain of exits that loops back on itself without a timer in between
// would otherwise drain forever inside a single Update. The quota stops
// the drain; the remaining items carry over to the next tick, so the
// graph still makes progress but the host loop keeps control.
//
// CRITICAL DISTINCTION from cycle detection:
//   - Cycle detection drops a single property write that repeats on
//     the propagation path it arrived through.
//   - The quota never drops work. It only defers it.
type QuotaEnforcer struct {
	maxSteps int
	current  int
}

// NewQuotaEnforcer creates an enforcer allowing maxSteps items. A limit of
// zero or less means unlimited.
func NewQuotaEnforcer(maxSteps int) *QuotaEnforcer {
	return &QuotaEnforcer{maxSteps: maxSteps}
}

// Check counts one more step and fails once the limit is exceeded.
func (q *QuotaEnforcer) Check(tick int64) error {
	q.current++
	if q.maxSteps > 0 && q.current > q.maxSteps {
		return &StepsExceededError{
			Tick:  tick,
			Steps: q.current,
			Limit: q.maxSteps,
		}
	}
	return nil
}

// Reset sets the step counter back to 0.
func (q *QuotaEnforcer) Reset() {
	q.current = 0
}

// Current returns the step count.
func (q *QuotaEnforcer) Current() int {
	return q.current
}

// MaxSteps returns the limit.
func (q *QuotaEnforcer) MaxSteps() int {
	return q.maxSteps
}

// StepsExceededError reports a tick that hit the update limit.
type StepsExceededError struct {
	Tick  int64
	Steps int
	Limit int
}

func (e *StepsExceededError) Error() string {
	return fmt.Sprintf("tick %d exceeded update limit: %d steps > %d limit",
		e.Tick, e.Steps, e.Limit)
}

// IsStepsExceededError reports whether err is a StepsExceededError.
func IsStepsExceededError(err error) bool {
	var se *StepsExceededError
	return errors.As(err, &se)
}
