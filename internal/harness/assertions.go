package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/nodeplay/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string          // Assertion type for categorization
	Expected string          // Human-readable expected outcome
	Actual   string          // Human-readable actual outcome
	Trace    []ir.TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] t%d %s\n", ev.Seq, ev.Tick, describeEvent(ev))
		}
	}
	return buf.String()
}

// selector matches trace events by kind and optionally node name and link.
type selector struct {
	kind ir.TraceKind
	node string
	link string
}

var traceKinds = []ir.TraceKind{
	ir.TraceStart, ir.TraceStop, ir.TracePause, ir.TraceResume,
	ir.TraceEntry, ir.TraceExit, ir.TraceProperty,
	ir.TraceBreak, ir.TraceSkip, ir.TraceCycle, ir.TraceQuota,
}

// parseSelector parses "<kind>", "<kind> <node>" or "<kind> <node>.<link>".
// The node name is everything between the kind and the last dot, so names
// may contain spaces.
func parseSelector(s string) (selector, error) {
	kind, rest, _ := strings.Cut(strings.TrimSpace(s), " ")
	sel := selector{kind: ir.TraceKind(kind)}
	if !slices.Contains(traceKinds, sel.kind) {
		return selector{}, fmt.Errorf("event %q: unknown trace kind %q", s, kind)
	}
	rest = strings.TrimSpace(rest)
	if i := strings.LastIndex(rest, "."); i >= 0 {
		sel.node, sel.link = rest[:i], rest[i+1:]
	} else {
		sel.node = rest
	}
	return sel, nil
}

func (s selector) matches(ev ir.TraceEvent) bool {
	if ev.Kind != s.kind {
		return false
	}
	if s.node != "" && ev.NodeName != s.node {
		return false
	}
	return s.link == "" || ev.Link == s.link
}

func mustSelector(s string) selector {
	sel, err := parseSelector(s)
	if err != nil {
		panic(err)
	}
	return sel
}

// describeEvent renders an event the way selectors are written.
func describeEvent(ev ir.TraceEvent) string {
	var b strings.Builder
	b.WriteString(string(ev.Kind))
	if ev.NodeName != "" || ev.Link != "" {
		b.WriteByte(' ')
		b.WriteString(ev.NodeName)
		if ev.Link != "" {
			b.WriteByte('.')
			b.WriteString(ev.Link)
		}
	}
	if ev.Value != nil {
		fmt.Fprintf(&b, " = %s", formatValue(ev.Value.Value))
	}
	return b.String()
}

func formatValue(v ir.IRValue) string {
	data, err := ir.MarshalIRValue(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// assertTraceContains checks that some event matches the selector and,
// when a value is given, carries that value.
func assertTraceContains(trace []ir.TraceEvent, a Assertion) error {
	sel := mustSelector(a.Event)
	for _, ev := range trace {
		if !sel.matches(ev) {
			continue
		}
		if a.Value == nil || (ev.Value != nil && ir.Equal(ev.Value.Value, a.Value.Value)) {
			return nil
		}
	}

	expected := a.Event
	if a.Value != nil {
		expected += " = " + formatValue(a.Value.Value)
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: expected,
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that the selectors match events in the given
// order. Other events may come in between.
func assertTraceOrder(trace []ir.TraceEvent, a Assertion) error {
	pos := 0
	for i, want := range a.Events {
		sel := mustSelector(want)
		found := false
		for pos < len(trace) {
			ev := trace[pos]
			pos++
			if sel.matches(ev) {
				found = true
				break
			}
		}
		if !found {
			actual := fmt.Sprintf("missing event: %s", want)
			if i > 0 {
				actual = fmt.Sprintf("no %s after %s", want, a.Events[i-1])
			}
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("events in order: %v", a.Events),
				Actual:   actual,
				Trace:    trace,
			}
		}
	}
	return nil
}

// assertTraceCount checks that exactly Count events match.
func assertTraceCount(trace []ir.TraceEvent, a Assertion) error {
	sel := mustSelector(a.Event)
	count := 0
	for _, ev := range trace {
		if sel.matches(ev) {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", a.Count, a.Event),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

func assertFinalProperty(result *Result, a Assertion) error {
	node, ok := result.Nodes[a.Node]
	if !ok {
		return &AssertionError{
			Type:     AssertFinalProperty,
			Expected: fmt.Sprintf("node %q", a.Node),
			Actual:   "node not found",
		}
	}
	got, ok := node.Properties[a.Property]
	if !ok {
		return &AssertionError{
			Type:     AssertFinalProperty,
			Expected: fmt.Sprintf("property %s.%s", a.Node, a.Property),
			Actual:   "property not found",
		}
	}
	if !ir.Equal(got, a.Value.Value) {
		return &AssertionError{
			Type:     AssertFinalProperty,
			Expected: fmt.Sprintf("%s.%s = %s", a.Node, a.Property, formatValue(a.Value.Value)),
			Actual:   formatValue(got),
		}
	}
	return nil
}

func assertFinalState(result *Result, a Assertion) error {
	if result.State != a.State {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: a.State,
			Actual:   result.State,
			Trace:    result.Trace,
		}
	}
	return nil
}

func assertGlobal(result *Result, a Assertion) error {
	got, ok := result.Globals[a.Property]
	if !ok {
		return &AssertionError{
			Type:     AssertGlobal,
			Expected: fmt.Sprintf("global %q", a.Property),
			Actual:   "global not found",
		}
	}
	if !ir.Equal(got, a.Value.Value) {
		return &AssertionError{
			Type:     AssertGlobal,
			Expected: fmt.Sprintf("%s = %s", a.Property, formatValue(a.Value.Value)),
			Actual:   formatValue(got),
		}
	}
	return nil
}

func assertLogContains(result *Result, a Assertion) error {
	if !strings.Contains(result.Log, a.Text) {
		return &AssertionError{
			Type:     AssertLogContains,
			Expected: fmt.Sprintf("log containing %q", a.Text),
			Actual:   result.Log,
		}
	}
	return nil
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, a := range assertions {
		if err := validateAssertion(i, &a); err != nil {
			errors = append(errors, err.Error())
			continue
		}

		var err error
		switch a.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, a)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, a)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, a)
		case AssertFinalProperty:
			err = assertFinalProperty(result, a)
		case AssertFinalState:
			err = assertFinalState(result, a)
		case AssertGlobal:
			err = assertGlobal(result, a)
		case AssertLogContains:
			err = assertLogContains(result, a)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}
	return errors
}
