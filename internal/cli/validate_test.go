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

func runValidateCommand(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func writeFile(t *testing.T, root, name, content string) {
	t.Helper()
	path := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestValidate_BuildRoot(t *testing.T) {
	out, err := runValidateCommand(t, "text", "--root", buildRoot)
	require.NoError(t, err)
	assert.Contains(t, out, "✓")
	assert.Contains(t, out, "valid")
}

func TestValidate_BuildRootJSON(t *testing.T) {
	out, err := runValidateCommand(t, "json", "--root", buildRoot)
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Positive(t, resp.Data.Dirs)
	assert.Positive(t, resp.Data.Targets)
}

func TestValidate_BadYAML(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "lib/BUILD.yaml", "targets:\n  - name: lib\n    kind: java\n    sauces: [a.java]\n")

	out, err := runValidateCommand(t, "text", "--root", root)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, "E003")
}

func TestValidate_DuplicateTargets(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "lib/BUILD.yaml", "targets:\n  - name: lib\n    kind: java\n")
	writeFile(t, root, "lib/BUILD.cue", "targets: lib: {kind: \"java\"}\n")

	out, err := runValidateCommand(t, "json", "--root", root)
	require.Error(t, err)

	var resp struct {
		Data  ValidationResult `json:"data"`
		Error CLIError         `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.False(t, resp.Data.Valid)
	assert.Equal(t, "E101", resp.Error.Code)
}

func TestValidate_NoBuildFiles(t *testing.T) {
	_, err := runValidateCommand(t, "text", "--root", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestValidate_MissingRoot(t *testing.T) {
	out, err := runValidateCommand(t, "text", "--root", "/nonexistent/root")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "build root not found")
}
