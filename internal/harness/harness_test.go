package harness

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const buildRoot = "../planners/testdata/buildroot"

func loadScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)
	return s
}

func intp(i int) *int { return &i }

func TestRun_Scenarios(t *testing.T) {
	for _, name := range []string{"list_siblings", "codegen_simple", "multiple_classpath", "invalidate_build_file"} {
		t.Run(name, func(t *testing.T) {
			result, err := Run(context.Background(), loadScenario(t, name))
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %s", strings.Join(result.Errors, "\n"))
		})
	}
}

func TestRun_ListSiblingsGolden(t *testing.T) {
	result, err := RunWithGolden(t, loadScenario(t, "list_siblings"))
	require.NoError(t, err)
	assert.True(t, result.Pass)
}

func TestRun_RunIDsAndSeqAreDeterministic(t *testing.T) {
	s := loadScenario(t, "codegen_simple")

	first, err := Run(context.Background(), s)
	require.NoError(t, err)
	second, err := Run(context.Background(), s)
	require.NoError(t, err)

	assert.Equal(t, "run-1", first.Builds[0].RunID)
	assert.Equal(t, first.Trace, second.Trace)
	for i := 1; i < len(first.Trace); i++ {
		assert.Less(t, first.Trace[i-1].Seq, first.Trace[i].Seq)
	}
}

func TestRun_ParallelMatchesSerialSnapshot(t *testing.T) {
	serial := loadScenario(t, "codegen_simple")
	parallel := loadScenario(t, "codegen_simple")
	parallel.Parallelism = 4

	a, err := Run(context.Background(), serial)
	require.NoError(t, err)
	b, err := Run(context.Background(), parallel)
	require.NoError(t, err)

	assert.True(t, b.Pass, "errors: %v", b.Errors)
	assert.Equal(t, NewSnapshot("x", a), NewSnapshot("x", b))
}

func TestRun_UnexpectedFailure(t *testing.T) {
	s := &Scenario{
		Name:        "unexpected",
		Description: "expects success from a conflicting target",
		Root:        buildRoot,
		Builds: []BuildStep{
			{Goals: []string{"compile"}, Specs: []string{"src/java/multiple_classpath_entries"}},
		},
	}

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "build 0: expected succeeded, got failed")
	assert.Equal(t, []string{"CONFLICTING_PRODUCERS"}, result.Builds[0].Codes)
}

func TestRun_WrongErrorCode(t *testing.T) {
	s := &Scenario{
		Name:        "wrong_code",
		Description: "expects the wrong code",
		Root:        buildRoot,
		Builds: []BuildStep{{
			Goals:  []string{"compile"},
			Specs:  []string{"src/java/multiple_classpath_entries"},
			Expect: &ExpectClause{Status: StatusFailed, ErrorCode: "NO_PRODUCER"},
		}},
	}

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "expected error code NO_PRODUCER")
}

func TestRun_FailingAssertion(t *testing.T) {
	s := &Scenario{
		Name:        "failing_assertion",
		Description: "asserts a state that does not occur",
		Root:        buildRoot,
		Builds: []BuildStep{
			{Goals: []string{"list"}, Specs: []string{"3rdparty/jvm:"}},
		},
		Assertions: []Assertion{{
			Type:    AssertNodeState,
			Kind:    "select",
			Product: "Address",
			Subject: "3rdparty/jvm:guava",
			Status:  "Throw",
		}},
	}

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Assertion failed: node_state")
	assert.Contains(t, result.Errors[0], "Return(3rdparty/jvm:guava)")
}

func TestRun_UnknownGoalIsRunError(t *testing.T) {
	s := &Scenario{
		Name:        "unknown_goal",
		Description: "requests a goal nobody registered",
		Root:        buildRoot,
		Builds:      []BuildStep{{Goals: []string{"deploy"}, Specs: []string{"3rdparty/jvm:"}}},
	}

	_, err := Run(context.Background(), s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "build 0")
}

func TestRun_StepsAssertionDefaultsToLastBuild(t *testing.T) {
	s := loadScenario(t, "list_siblings")
	s.Assertions = []Assertion{{Type: AssertSteps, Count: 0}}

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Positive(t, result.Builds[0].Steps)

	s.Assertions = []Assertion{{Type: AssertSteps, Build: intp(0), Count: 0}}
	result, err = Run(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
}
