package graph

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode categorizes node failures.
type ErrorCode string

const (
	// ErrCodeNoProducer: a non-optional selection had no applicable producer.
	ErrCodeNoProducer ErrorCode = "NO_PRODUCER"

	// ErrCodeConflictingProducers: more than one producer returned a
	// different value for the same subject, product and variants.
	ErrCodeConflictingProducers ErrorCode = "CONFLICTING_PRODUCERS"

	// ErrCodeCyclicDependency: a dependency edge would have closed a cycle.
	ErrCodeCyclicDependency ErrorCode = "CYCLIC_DEPENDENCY"

	// ErrCodeUpstreamFailure: a dependency failed.
	ErrCodeUpstreamFailure ErrorCode = "UPSTREAM_FAILURE"

	// ErrCodeUnsupportedSubjectType: a root subject has no registered producer.
	ErrCodeUnsupportedSubjectType ErrorCode = "UNSUPPORTED_SUBJECT_TYPE"

	// ErrCodeTaskFailed: a rule function returned an error.
	ErrCodeTaskFailed ErrorCode = "TASK_FAILED"

	// ErrCodeInvalidFieldType: a dependency field held a value of an undeclared type.
	ErrCodeInvalidFieldType ErrorCode = "INVALID_FIELD_TYPE"
)

// Structural faults. These indicate a broken engine or rule, never a build
// condition, and abort the run that hits them.
var (
	ErrNotWaiting      = errors.New("node is not waiting")
	ErrAlreadyComplete = errors.New("node already complete")
	ErrNotTerminal     = errors.New("completion state is not terminal")
	ErrUnknownNode     = errors.New("unknown node")
	ErrCycle           = errors.New("cyclic dependency")
)

// Error is the failure carried by a Throw state.
//
// Upstream failures wrap the dependency's error in Cause rather than
// re-deriving it, so RootCause finds the original failure.
type Error struct {
	Code      ErrorCode
	Message   string
	Subject   string
	Product   TypeID
	Producers []NodeKey
	Cause     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Code, e.Message)
	if len(e.Producers) > 0 {
		names := make([]string, len(e.Producers))
		for i, p := range e.Producers {
			names[i] = p.String()
		}
		fmt.Fprintf(&b, " [%s]", strings.Join(names, "; "))
	}
	return b.String()
}

// Unwrap returns Cause.
func (e *Error) Unwrap() error { return e.Cause }

// NewError creates an Error for subject and product.
func NewError(code ErrorCode, subject any, product TypeID, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Subject: SubjectKey(subject),
		Product: product,
	}
}

// Upstream wraps a dependency failure.
func Upstream(subject any, product TypeID, dep NodeKey, cause error) *Error {
	return &Error{
		Code:    ErrCodeUpstreamFailure,
		Message: fmt.Sprintf("dependency %s failed", dep),
		Subject: SubjectKey(subject),
		Product: product,
		Cause:   cause,
	}
}

// CodeOf returns the code of the outermost *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var ge *Error
	if errors.As(err, &ge) && ge != nil {
		return ge.Code
	}
	return ""
}

// IsNoProducer reports whether err is a NoProducer failure.
func IsNoProducer(err error) bool { return CodeOf(err) == ErrCodeNoProducer }

// IsConflict reports whether err is a ConflictingProducers failure.
func IsConflict(err error) bool { return CodeOf(err) == ErrCodeConflictingProducers }

// IsCycle reports whether err is a CyclicDependency failure or a CycleError.
func IsCycle(err error) bool {
	return CodeOf(err) == ErrCodeCyclicDependency || errors.Is(err, ErrCycle)
}

// IsUpstream reports whether err is an UpstreamFailure.
func IsUpstream(err error) bool { return CodeOf(err) == ErrCodeUpstreamFailure }

// RootCause follows Upstream wrapping to the originating failure.
func RootCause(err error) error {
	for {
		var ge *Error
		if !errors.As(err, &ge) || ge.Code != ErrCodeUpstreamFailure || ge.Cause == nil {
			return err
		}
		err = ge.Cause
	}
}

// CycleError is returned by AddDependencies when an edge would close a cycle.
type CycleError struct {
	From NodeKey
	To   NodeKey
	Path []NodeKey
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	parts := make([]string, len(e.Path))
	for i, k := range e.Path {
		parts[i] = k.String()
	}
	return fmt.Sprintf("cyclic dependency: %s -> %s (path: %s)", e.From, e.To, strings.Join(parts, " -> "))
}

// Unwrap makes errors.Is(err, ErrCycle) true.
func (e *CycleError) Unwrap() error { return ErrCycle }
