package scheduler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/prodgraph/internal/graph"
	"github.com/roach88/prodgraph/internal/rules"
)

type spec string

func (s spec) TypeID() graph.TypeID { return "Spec" }
func (s spec) String() string       { return string(s) }

func newTestScheduler(t *testing.T, opts ...Option) *Scheduler {
	t.Helper()
	r := rules.NewRegistry()
	require.NoError(t, r.Intrinsic("expand", "Spec", DefaultRootProduct, func(args ...any) (any, error) {
		return nil, nil
	}))
	goals := []Goal{
		{Name: "compile", Products: []graph.TypeID{"Classpath"}},
		{Name: "gen", Products: []graph.TypeID{"GenGoal"}, Optional: true},
		{Name: "resolve", Products: []graph.TypeID{"Classpath"}},
	}
	return New(r, goals, opts...)
}

func TestBuildRequest_Roots(t *testing.T) {
	s := newTestScheduler(t)

	req, err := s.BuildRequest([]string{"compile", "gen"}, []any{spec("a"), spec("b")})
	require.NoError(t, err)
	require.Len(t, req.Roots, 4)

	root := req.Roots[0]
	assert.Equal(t, graph.KindDependencies, root.Kind())
	assert.Equal(t, "a", root.Key.Subject)
	assert.Equal(t, graph.SelectDependencies{
		Product:    "Classpath",
		DepProduct: DefaultRootProduct,
		Field:      "dependencies",
		FieldTypes: []graph.TypeID{DefaultRootElement},
	}, root.Selector)

	gen := req.Roots[1].Selector.(graph.SelectDependencies)
	assert.True(t, gen.Optional)
	assert.Equal(t, graph.TypeID("GenGoal"), gen.Product)

	assert.Equal(t, "b", req.Roots[2].Key.Subject)
	assert.Len(t, req.RootKeys(), 4)
}

func TestBuildRequest_DeduplicatesRoots(t *testing.T) {
	s := newTestScheduler(t)

	req, err := s.BuildRequest([]string{"compile", "resolve"}, []any{spec("a")})
	require.NoError(t, err)
	assert.Len(t, req.Roots, 1, "compile and resolve request the same product")
}

func TestBuildRequest_UnsupportedSubjectType(t *testing.T) {
	s := newTestScheduler(t)

	_, err := s.BuildRequest(nil, []any{"string"})

	var ge *graph.Error
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, graph.ErrCodeUnsupportedSubjectType, ge.Code)
	assert.Equal(t, "Unsupported root subject type: string for string", ge.Message)
	assert.Equal(t, 0, s.Graph().Len(), "no graph work before validation")
}

func TestBuildRequest_UnknownGoal(t *testing.T) {
	s := newTestScheduler(t)

	_, err := s.BuildRequest([]string{"deploy"}, []any{spec("a")})
	assert.ErrorIs(t, err, ErrUnknownGoal)
}

func TestVisualizeGraphToFile_MatchesDirectOutput(t *testing.T) {
	s := newTestScheduler(t)
	req, err := s.BuildRequest([]string{"compile"}, []any{spec("a")})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "output.dot")
	require.NoError(t, s.VisualizeGraphToFile(req.RootKeys(), path))

	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, s.Visualize(req.RootKeys()), string(onDisk))
	assert.Contains(t, string(onDisk), "digraph plans {")
}

func TestInvalidateFiles(t *testing.T) {
	s := newTestScheduler(t, WithPathSubjects(func(paths []string) []any {
		out := make([]any, len(paths))
		for i, p := range paths {
			out[i] = spec(filepath.Dir(p))
		}
		return out
	}))
	req, err := s.BuildRequest([]string{"compile"}, []any{spec("src")})
	require.NoError(t, err)
	require.NoError(t, s.Graph().Complete(req.Roots[0].Key, graph.Return([]any{})))

	n, err := s.InvalidateFiles([]string{"src/BUILD.yaml"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, graph.StatusWaiting, s.Graph().State(req.Roots[0].Key).Status)
}

func TestInvalidateFiles_NoMapper(t *testing.T) {
	s := newTestScheduler(t)
	_, err := s.InvalidateFiles([]string{"x"})
	assert.ErrorIs(t, err, ErrNoPathMapper)
}
