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

var scenariosDir = filepath.Join("testdata", "scenarios")

func executeTest(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewTestCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// copyScenario lays out problems/ and scenarios/ in a temp dir so golden
// files can be written without touching testdata.
func copyScenario(t *testing.T, name string) string {
	t.Helper()
	root := t.TempDir()
	for _, f := range []struct{ src, dst string }{
		{lpProblem, filepath.Join(root, "problems", "lp.cue")},
		{filepath.Join(scenariosDir, name+".yaml"), filepath.Join(root, "scenarios", name+".yaml")},
	} {
		data, err := os.ReadFile(f.src)
		require.NoError(t, err)
		require.NoError(t, os.MkdirAll(filepath.Dir(f.dst), 0o755))
		require.NoError(t, os.WriteFile(f.dst, data, 0o644))
	}
	return filepath.Join(root, "scenarios")
}

func TestTestCommandFilter(t *testing.T) {
	out, err := executeTest(t, "text", scenariosDir, "--filter", "lp_basic")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ lp_basic")
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTestCommandFailure(t *testing.T) {
	out, err := executeTest(t, "text", scenariosDir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✓ lp_basic")
	assert.Contains(t, out, "✗ lp_wrong")
	assert.Contains(t, out, "1 passed, 1 failed, 2 total")
}

func TestTestCommandJSON(t *testing.T) {
	out, err := executeTest(t, "json", scenariosDir)
	require.Error(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, 2, resp.Data.Total)
	assert.Equal(t, 1, resp.Data.Failed)
	for _, s := range resp.Data.Scenarios {
		if s.Name == "lp_wrong" {
			assert.False(t, s.Pass)
			assert.NotEmpty(t, s.Errors)
		}
	}
}

func TestTestCommandGolden(t *testing.T) {
	dir := copyScenario(t, "lp_basic")

	out, err := executeTest(t, "text", dir, "--update")
	require.NoError(t, err, out)
	golden := filepath.Join(dir, "golden", "lp_basic.golden")
	data, err := os.ReadFile(golden)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"scenario":"lp_basic"`)
	assert.Contains(t, string(data), `"c":[1,2]`)

	out, err = executeTest(t, "text", dir)
	require.NoError(t, err, out)

	require.NoError(t, os.WriteFile(golden, []byte(`{"scenario":"lp_basic"}`), 0o644))
	out, err = executeTest(t, "text", dir)
	require.Error(t, err)
	assert.Contains(t, out, "does not match golden file")
}

func TestTestCommandRecordsRuns(t *testing.T) {
	db := filepath.Join(t.TempDir(), "qcml.db")
	_, err := executeTest(t, "text", scenariosDir, "--filter", "lp_basic", "--db", db)
	require.NoError(t, err)

	buf := &bytes.Buffer{}
	cmd := NewHistoryCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", db})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "scenario-lp_basic lp n=2 m=2 p=0")
}

func TestTestCommandNoScenarios(t *testing.T) {
	out, err := executeTest(t, "text", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestTestCommandMissingDir(t *testing.T) {
	_, err := executeTest(t, "text", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestFindScenarioFilesInvalidFilter(t *testing.T) {
	_, err := findScenarioFiles(scenariosDir, "[")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid filter pattern")
}
