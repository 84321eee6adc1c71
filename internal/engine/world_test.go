package engine

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/prodgraph/internal/graph"
	"github.com/roach88/prodgraph/internal/rules"
	"github.com/roach88/prodgraph/internal/scheduler"
)

// =============================================================================
// A small synthetic world: comma separated specs expand to items.
// =============================================================================

type testSpec string

func (s testSpec) TypeID() graph.TypeID { return "Spec" }
func (s testSpec) String() string       { return string(s) }

type item string

func (i item) TypeID() graph.TypeID { return "Item" }
func (i item) String() string       { return string(i) }

// members is a collection product read through its dependencies field.
type members struct {
	Type graph.TypeID `json:"type"`
	Deps []any        `json:"deps"`
}

func (m members) TypeID() graph.TypeID { return m.Type }

func (m members) Field(name string) (any, bool) {
	if name != graph.DefaultDependenciesField {
		return nil, false
	}
	return m.Deps, true
}

// val is a generic named product.
type val struct {
	Type graph.TypeID `json:"type"`
	Name string       `json:"name"`
}

func (v val) TypeID() graph.TypeID { return v.Type }
func (v val) ProductName() string  { return v.Name }
func (v val) String() string       { return string(v.Type) + "(" + v.Name + ")" }

// bundle carries several products.
type bundle []any

func (b bundle) TypeID() graph.TypeID { return "Bundle" }
func (b bundle) Products() []any      { return b }

const (
	classpath graph.TypeID = "Classpath"
	source    graph.TypeID = "Source"
)

var testGoals = []scheduler.Goal{
	{Name: "compile", Products: []graph.TypeID{classpath}},
	{Name: "sources", Products: []graph.TypeID{source}},
	{Name: "gen", Products: []graph.TypeID{"GenGoal"}, Optional: true},
}

func newTestRegistry(t *testing.T) *rules.Registry {
	t.Helper()
	r := rules.NewRegistry()
	require.NoError(t, r.Intrinsic("expand", "Spec", "Members", func(args ...any) (any, error) {
		var deps []any
		for _, name := range strings.Split(string(args[0].(testSpec)), ",") {
			deps = append(deps, item(name))
		}
		return members{Type: "Members", Deps: deps}, nil
	}))
	r.Invariant("Members")
	return r
}

func itemTask(t *testing.T, r *rules.Registry, name string, product graph.TypeID, fn func(item) (any, error)) {
	t.Helper()
	require.NoError(t, r.Task(rules.Task{
		Name:    name,
		Product: product,
		Clause:  []graph.Selector{graph.Select{Product: "Item"}},
		Func: func(args ...any) (any, error) {
			return fn(args[0].(item))
		},
	}))
}

func newTestScheduler(r *rules.Registry) *scheduler.Scheduler {
	return scheduler.New(r, testGoals, scheduler.WithRootProduct("Members", "Item", "Addr"))
}

func execute(t *testing.T, s *scheduler.Scheduler, goal string, spec string, opts ...Option) (*scheduler.BuildRequest, *BuildResult) {
	t.Helper()
	req, err := s.BuildRequest([]string{goal}, []any{testSpec(spec)})
	require.NoError(t, err)

	opts = append([]Option{WithRunIDGenerator(NewFixedGenerator("run-1"))}, opts...)
	res, err := New(s, opts...).Execute(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, res.Roots, len(req.Roots))
	return req, res
}

// findNodes returns walked nodes matching kind, product and subject.
func findNodes(s *scheduler.Scheduler, req *scheduler.BuildRequest, kind graph.Kind, product graph.TypeID, subject string) []graph.Node {
	var out []graph.Node
	for n := range s.Graph().Walk(req.RootKeys()) {
		if n.Kind() == kind && n.Product() == product && n.Key.Subject == subject {
			out = append(out, n)
		}
	}
	return out
}

// memRecorder records run events in memory.
type memRecorder struct {
	mu          sync.Mutex
	starts      []RunInfo
	completions []Completion
	finishes    []RunSummary
}

func (m *memRecorder) RecordRunStart(_ context.Context, run RunInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.starts = append(m.starts, run)
	return nil
}

func (m *memRecorder) RecordCompletion(_ context.Context, c Completion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completions = append(m.completions, c)
	return nil
}

// RecordRunFinish fails on a done context, as a database write would.
func (m *memRecorder) RecordRunFinish(ctx context.Context, s RunSummary) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finishes = append(m.finishes, s)
	return nil
}
