package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runVisualizeCommand(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewVisualizeCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestVisualize_Stdout(t *testing.T) {
	out, err := runVisualizeCommand(t, "text", "--root", buildRoot, "3rdparty/jvm:guava")
	require.NoError(t, err)
	assert.Contains(t, out, "digraph plans {")
	assert.Contains(t, out, "3rdparty/jvm:guava")
}

func TestVisualize_OutFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.dot")

	out, err := runVisualizeCommand(t, "text", "--root", buildRoot, "-o", path, "3rdparty/jvm:guava")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "digraph plans {")
}

func TestVisualize_JSON(t *testing.T) {
	out, err := runVisualizeCommand(t, "json", "--root", buildRoot, "3rdparty/jvm:guava")
	require.NoError(t, err)

	var resp struct {
		Status string            `json:"status"`
		Data   map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Contains(t, resp.Data["dot"], "digraph plans {")
}

func TestVisualize_MissingRoot(t *testing.T) {
	_, err := runVisualizeCommand(t, "text", "--root", "/nonexistent/root", "3rdparty/jvm:guava")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
