package graph

import "fmt"

// Status is the phase of a node's State.
type Status int

const (
	// StatusWaiting means the node has not reached a terminal state.
	StatusWaiting Status = iota
	// StatusReturn means the node produced a value.
	StatusReturn
	// StatusThrow means the node failed with a typed error.
	StatusThrow
	// StatusNoop means no producer applied. Terminal, but not a failure.
	StatusNoop
)

func (s Status) String() string {
	switch s {
	case StatusWaiting:
		return "Waiting"
	case StatusReturn:
		return "Return"
	case StatusThrow:
		return "Throw"
	case StatusNoop:
		return "Noop"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// State is the current state of a node. The zero value is Waiting.
type State struct {
	Status Status
	Value  any
	Err    *Error
	Reason string
}

// Waiting returns the non-terminal state.
func Waiting() State { return State{} }

// Return returns a successful terminal state carrying v.
func Return(v any) State { return State{Status: StatusReturn, Value: v} }

// Throw returns a failed terminal state.
func Throw(err *Error) State { return State{Status: StatusThrow, Err: err} }

// Noop returns a not-applicable terminal state.
func Noop(format string, args ...any) State {
	return State{Status: StatusNoop, Reason: fmt.Sprintf(format, args...)}
}

// IsTerminal reports whether the state is Return, Throw or Noop.
func (s State) IsTerminal() bool { return s.Status != StatusWaiting }

// String renders the state in the form used by visualization.
func (s State) String() string {
	switch s.Status {
	case StatusReturn:
		return fmt.Sprintf("Return(%v)", s.Value)
	case StatusThrow:
		if s.Err == nil {
			return "Throw(<nil>)"
		}
		return fmt.Sprintf("Throw(%s)", s.Err.Error())
	case StatusNoop:
		return fmt.Sprintf("Noop(%s)", s.Reason)
	default:
		return "Waiting"
	}
}
