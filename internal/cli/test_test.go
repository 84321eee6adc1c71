package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/prodgraph/internal/harness"
)

const scenarioDir = "../harness/testdata/scenarios"

func runTestCommand(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewTestCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestTest_ScenarioDir(t *testing.T) {
	out, err := runTestCommand(t, "text", scenarioDir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ list_siblings")
	assert.Contains(t, out, "✓ multiple_classpath")
	assert.Contains(t, out, "4 passed, 0 failed")
}

func TestTest_JSON(t *testing.T) {
	out, err := runTestCommand(t, "json", filepath.Join(scenarioDir, "codegen_simple.yaml"))
	require.NoError(t, err)

	var resp struct {
		Status string          `json:"status"`
		Data   harness.Summary `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, resp.Data.Total)
	assert.Equal(t, 1, resp.Data.Passed)
}

func TestTest_FailingScenario(t *testing.T) {
	root, err := filepath.Abs(buildRoot)
	require.NoError(t, err)

	dir := t.TempDir()
	scenario := "name: wrong_expectation\n" +
		"root: " + root + "\n" +
		"builds:\n" +
		"  - goals: [compile]\n" +
		"    specs: [src/java/multiple_classpath_entries]\n" +
		"    expect:\n" +
		"      status: succeeded\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wrong.yaml"), []byte(scenario), 0o644))

	out, err := runTestCommand(t, "text", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ wrong_expectation")
	assert.Contains(t, out, "expected succeeded, got failed")
	assert.Contains(t, out, "0 passed, 1 failed")
}

func TestTest_InvalidScenario(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("name: broken\n"), 0o644))

	out, err := runTestCommand(t, "text", dir)
	require.Error(t, err)
	assert.Contains(t, out, "✗ broken")
	assert.Contains(t, out, "0 passed, 1 failed")
}

func TestTest_MissingPath(t *testing.T) {
	_, err := runTestCommand(t, "text", filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTest_EmptyDir(t *testing.T) {
	_, err := runTestCommand(t, "text", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no scenario files found")
}
