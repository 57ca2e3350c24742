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

func executeValidate(t *testing.T, format, path string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})
	err := cmd.Execute()
	return buf.String(), err
}

func TestValidateValidProblems(t *testing.T) {
	out, err := executeValidate(t, "text", filepath.Join("testdata", "problems"))
	require.NoError(t, err)
	assert.Contains(t, out, "✓ lp: minimize affine")
	assert.Contains(t, out, "✓ All problems valid")
}

func TestValidateValidProblemsJSON(t *testing.T) {
	out, err := executeValidate(t, "json", lpProblem)
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	require.Len(t, resp.Data.Problems, 1)
	assert.Equal(t, ProblemReport{Name: "lp", Sense: "minimize", Curvature: "affine", DCP: true}, resp.Data.Problems[0])
}

func TestValidateNotDCP(t *testing.T) {
	out, err := executeValidate(t, "text", filepath.Join("testdata", "nondcp"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, "E201: problem.concave.objective")
}

func TestValidateNotDCPJSON(t *testing.T) {
	out, err := executeValidate(t, "json", filepath.Join("testdata", "nondcp", "concave.cue"))
	require.Error(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
		Error  *CLIError        `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	require.Len(t, resp.Data.Problems, 1)
	assert.Equal(t, "concave", resp.Data.Problems[0].Curvature)
	assert.False(t, resp.Data.Problems[0].DCP)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E201", resp.Error.Code)
}

func TestValidateStructuralErrors(t *testing.T) {
	dir := t.TempDir()
	src := `problem: p: {
	variables: x: {sign: "sideways"}
	minimise: "x"
}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "p.cue"), []byte(src), 0o644))

	out, err := executeValidate(t, "text", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "E101: problem.p.minimise")
	assert.Contains(t, out, "E103: problem.p.variables.x.sign")
}

func TestValidateNonExistentPath(t *testing.T) {
	out, err := executeValidate(t, "text", "/nonexistent/directory/path")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "E005")
	assert.Contains(t, out, "not found")
}

func TestValidateEmptyDirectory(t *testing.T) {
	_, err := executeValidate(t, "text", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "E003")
}
