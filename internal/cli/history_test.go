package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/prodgraph/internal/engine"
)

func runHistoryCommand(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewHistoryCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// recordedDB builds twice into a fresh database: one success, one failure.
func recordedDB(t *testing.T) string {
	t.Helper()
	db := filepath.Join(t.TempDir(), "runs.db")
	_, err := runBuildCommand(t, "text", engine.NewFixedGenerator("run-ok"),
		"--root", buildRoot, "--db", db, "3rdparty/jvm:guava")
	require.NoError(t, err)
	_, err = runBuildCommand(t, "text", engine.NewFixedGenerator("run-bad"),
		"--root", buildRoot, "--db", db, "src/java/multiple_classpath_entries")
	require.Error(t, err)
	return db
}

func TestHistory_ListRuns(t *testing.T) {
	db := recordedDB(t)

	out, err := runHistoryCommand(t, "text", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "run-ok")
	assert.Contains(t, out, "succeeded")
	assert.Contains(t, out, "run-bad")
	assert.Contains(t, out, "failed")
}

func TestHistory_ListRunsJSON(t *testing.T) {
	db := recordedDB(t)

	out, err := runHistoryCommand(t, "json", "--db", db, "--limit", "1")
	require.NoError(t, err)

	var resp struct {
		Status string `json:"status"`
		Data   []struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Len(t, resp.Data, 1)
}

func TestHistory_Failures(t *testing.T) {
	db := recordedDB(t)

	out, err := runHistoryCommand(t, "json", "--db", db, "--failures", "run-bad")
	require.NoError(t, err)

	var resp struct {
		Data RunDetail `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "failed", resp.Data.Run.Status)
	require.NotEmpty(t, resp.Data.Results)
	for _, r := range resp.Data.Results {
		assert.Equal(t, "Throw", r.Status)
	}
}

func TestHistory_UnknownRun(t *testing.T) {
	db := recordedDB(t)

	_, err := runHistoryCommand(t, "text", "--db", db, "run-missing")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "run not found: run-missing")
}

func TestHistory_MissingDatabase(t *testing.T) {
	_, err := runHistoryCommand(t, "text", "--db", filepath.Join(t.TempDir(), "none.db"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrCodeNotFound)
}

func TestHistory_RequiresDB(t *testing.T) {
	_, err := runHistoryCommand(t, "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "db" not set`)
}
