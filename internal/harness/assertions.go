package harness

import (
	"fmt"
	"strings"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent // events the assertion looked at
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nTrace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s\n", event.Seq, event.Line())
		}
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion and returns one message per
// failure.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var failures []string
	for i, a := range assertions {
		if err := evaluate(result, a); err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return failures
}

func evaluate(result *Result, a Assertion) error {
	switch a.Type {
	case AssertNodeState:
		return assertNodeState(scoped(result, a), a)
	case AssertNodeCount:
		return assertNodeCount(scoped(result, a), a)
	case AssertCompletionOrder:
		return assertCompletionOrder(scoped(result, a), a)
	case AssertSteps:
		return assertSteps(result, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// scoped returns the events of the assertion's build, or all of them.
func scoped(result *Result, a Assertion) []TraceEvent {
	if a.Build == nil {
		return result.Trace
	}
	return result.BuildTrace(*a.Build)
}

func matches(e TraceEvent, a Assertion) bool {
	return (a.Kind == "" || e.Kind == a.Kind) &&
		(a.Product == "" || e.Product == a.Product) &&
		(a.Subject == "" || e.Subject == a.Subject) &&
		(a.Variants == "" || e.Variants == a.Variants) &&
		(a.Task == "" || e.Task == a.Task)
}

func filter(trace []TraceEvent, a Assertion) []TraceEvent {
	var out []TraceEvent
	for _, e := range trace {
		if matches(e, a) {
			out = append(out, e)
		}
	}
	return out
}

func describe(a Assertion) string {
	var parts []string
	for _, f := range []struct{ name, value string }{
		{"kind", a.Kind},
		{"product", a.Product},
		{"subject", a.Subject},
		{"variants", a.Variants},
		{"task", a.Task},
	} {
		if f.value != "" {
			parts = append(parts, f.name+"="+f.value)
		}
	}
	return "node " + strings.Join(parts, " ")
}

// assertNodeState passes when some matching node has the status and, if
// set, a rendered state containing a.Contains.
func assertNodeState(trace []TraceEvent, a Assertion) error {
	candidates := filter(trace, a)
	for _, e := range candidates {
		if e.Status == a.Status && strings.Contains(e.Rendered, a.Contains) {
			return nil
		}
	}

	actual := "no matching node"
	if len(candidates) > 0 {
		states := make([]string, len(candidates))
		for i, e := range candidates {
			states[i] = e.Rendered
		}
		actual = strings.Join(states, "; ")
	}
	expected := fmt.Sprintf("%s in state %s", describe(a), a.Status)
	if a.Contains != "" {
		expected += fmt.Sprintf(" containing %q", a.Contains)
	}
	return &AssertionError{Type: AssertNodeState, Expected: expected, Actual: actual, Trace: candidates}
}

func assertNodeCount(trace []TraceEvent, a Assertion) error {
	got := filter(trace, a)
	if len(got) == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertNodeCount,
		Expected: fmt.Sprintf("%d x %s", a.Count, describe(a)),
		Actual:   fmt.Sprintf("%d", len(got)),
		Trace:    got,
	}
}

// assertCompletionOrder checks that the first completion of each subject
// happens in the listed order. Other completions may interleave.
func assertCompletionOrder(trace []TraceEvent, a Assertion) error {
	first := make(map[string]int64)
	for _, e := range filter(trace, Assertion{Kind: a.Kind, Product: a.Product, Variants: a.Variants, Task: a.Task}) {
		if _, ok := first[e.Subject]; !ok {
			first[e.Subject] = e.Seq
		}
	}

	for _, s := range a.Subjects {
		if _, ok := first[s]; !ok {
			return &AssertionError{
				Type:     AssertCompletionOrder,
				Expected: fmt.Sprintf("all subjects completed: %v", a.Subjects),
				Actual:   fmt.Sprintf("missing subject: %s", s),
			}
		}
	}
	for i := 1; i < len(a.Subjects); i++ {
		prev, curr := a.Subjects[i-1], a.Subjects[i]
		if first[prev] >= first[curr] {
			return &AssertionError{
				Type:     AssertCompletionOrder,
				Expected: fmt.Sprintf("completion order: %v", a.Subjects),
				Actual: fmt.Sprintf("%s (seq %d) should complete before %s (seq %d)",
					prev, first[prev], curr, first[curr]),
			}
		}
	}
	return nil
}

func assertSteps(result *Result, a Assertion) error {
	index := len(result.Builds) - 1
	if a.Build != nil {
		index = *a.Build
	}
	if index < 0 || index >= len(result.Builds) {
		return fmt.Errorf("build %d was not run", index)
	}
	if got := result.Builds[index].Steps; got != a.Count {
		return &AssertionError{
			Type:     AssertSteps,
			Expected: fmt.Sprintf("build %d takes %d steps", index, a.Count),
			Actual:   fmt.Sprintf("%d steps", got),
		}
	}
	return nil
}
