package harness

import "fmt"

// TraceEvent is one node reaching a terminal state.
type TraceEvent struct {
	Build    int    `json:"build"`
	Seq      int64  `json:"seq"`
	Kind     string `json:"kind"`
	Product  string `json:"product"`
	Subject  string `json:"subject"`
	Variants string `json:"variants,omitempty"`
	Task     string `json:"task,omitempty"`
	Status   string `json:"status"`
	Rendered string `json:"rendered"`
}

// Line renders the event without its sequence number.
func (e TraceEvent) Line() string {
	s := fmt.Sprintf("%s %s(%s)", e.Kind, e.Product, e.Subject)
	if e.Variants != "" {
		s += "@" + e.Variants
	}
	if e.Task != "" {
		s += ":" + e.Task
	}
	return s + " == " + e.Rendered
}

// BuildOutcome summarizes one build of a scenario.
type BuildOutcome struct {
	RunID  string   `json:"run_id"`
	Status string   `json:"status"`
	Steps  int      `json:"steps"`
	Errors []string `json:"errors,omitempty"` // root cause per failed root
	Codes  []string `json:"codes,omitempty"`
}

// Result is the outcome of a scenario.
type Result struct {
	// Pass is true when every build matched its expectation and every
	// assertion held.
	Pass bool `json:"pass"`

	Builds []BuildOutcome `json:"builds"`

	// Trace holds every recorded completion in sequence order.
	Trace []TraceEvent `json:"trace"`

	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Builds: []BuildOutcome{},
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// BuildTrace returns the events of one build.
func (r *Result) BuildTrace(build int) []TraceEvent {
	var events []TraceEvent
	for _, e := range r.Trace {
		if e.Build == build {
			events = append(events, e)
		}
	}
	return events
}
