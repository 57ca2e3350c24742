package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qcml/internal/compiler"
	"github.com/roach88/qcml/internal/harness"
	"github.com/roach88/qcml/internal/pipeline"
	"github.com/roach88/qcml/internal/store"
)

var (
	lpProblem = filepath.Join("testdata", "problems", "lp.cue")
	lpValues  = filepath.Join("testdata", "values", "lp.yaml")
)

func executeCompile(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewCompileCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestCompileSymbolic(t *testing.T) {
	out, err := executeCompile(t, "text", lpProblem)
	require.NoError(t, err)

	assert.Contains(t, out, "✓ lp (run ")
	assert.Contains(t, out, "cone program lp (minimize)")
	assert.NotContains(t, out, "n=")
}

func TestCompileWithValues(t *testing.T) {
	out, err := executeCompile(t, "text", lpProblem, "--values", lpValues)
	require.NoError(t, err)
	assert.Contains(t, out, "n=2 m=2 p=0 l=2 q=[]")
}

func TestCompileJSON(t *testing.T) {
	out, err := executeCompile(t, "json", lpProblem, "--values", lpValues)
	require.NoError(t, err)

	var resp struct {
		Status string             `json:"status"`
		Data   []CompiledProblem `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "lp", resp.Data[0].Name)
	assert.Len(t, resp.Data[0].ProblemHash, 64)
	assert.EqualValues(t, 2, resp.Data[0].Sizes["n"])
	assert.Equal(t, []any{1.0, 2.0}, resp.Data[0].Data["c"])
}

func TestCompileOutputFile(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "lp.json")
	out, err := executeCompile(t, "text", lpProblem, "--values", lpValues, "-o", outPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote cone data to "+outPath)

	raw, err := os.ReadFile(outPath)
	require.NoError(t, err)

	var doc struct {
		Format   string `json:"format"`
		Problems []struct {
			Name string         `json:"name"`
			Data map[string]any `json:"data"`
		} `json:"problems"`
	}
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "1.0.0", doc.Format)
	require.Len(t, doc.Problems, 1)
	assert.Equal(t, "lp", doc.Problems[0].Name)
	assert.Equal(t, []any{0.0, 0.0}, doc.Problems[0].Data["h"])
}

func TestCompileNamedProblemMissing(t *testing.T) {
	out, err := executeCompile(t, "text", lpProblem, "--name", "qp")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "E005")
	assert.Contains(t, out, `problem "qp" not found`)
}

func TestCompileNonExistentPath(t *testing.T) {
	out, err := executeCompile(t, "text", "/nonexistent/problem.cue")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "not found")
}

func TestCompileNotDCP(t *testing.T) {
	out, err := executeCompile(t, "text", filepath.Join("testdata", "nondcp", "concave.cue"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [DCP_VIOLATION]")
}

func TestCompileBadValues(t *testing.T) {
	values := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(values, []byte("dims: {n: 2}\nparms: {}\n"), 0o644))

	_, err := executeCompile(t, "text", lpProblem, "--values", values)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestCompileProgramRecordsRuns(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "qcml.db"))
	require.NoError(t, err)
	defer st.Close()

	vals, err := harness.LoadValues(lpValues)
	require.NoError(t, err)
	env := compileEnv{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		store:  st,
		ids:    pipeline.NewFixedGenerator("run-1", "run-2"),
		values: vals,
	}
	ctx := context.Background()

	load := func() *compiler.LoadResult {
		res, errs := compiler.Load(lpProblem, compiler.LoadModeFailFast)
		require.Empty(t, errs)
		return res
	}

	first, err := compileProgram(ctx, load().Programs[0], env)
	require.NoError(t, err)
	assert.Equal(t, "run-1", first.RunID)
	assert.Empty(t, first.Previous)

	second, err := compileProgram(ctx, load().Programs[0], env)
	require.NoError(t, err)
	assert.Equal(t, "run-2", second.RunID)
	assert.Equal(t, "run-1", second.Previous)
	assert.Equal(t, first.ProblemHash, second.ProblemHash)

	records, err := st.ListCompilations(ctx, store.Filter{Program: "lp"})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, store.StatusOK, records[1].Status)
	assert.Equal(t, map[string]int{"n": 2}, records[1].Dims)
	assert.NotEmpty(t, records[1].ConeHash)
}

func TestCompileProgramRecordsFailure(t *testing.T) {
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	defer st.Close()

	env := compileEnv{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		store:  st,
		ids:    pipeline.NewFixedGenerator("bad-run"),
	}
	res, errs := compiler.Load(filepath.Join("testdata", "nondcp", "concave.cue"), compiler.LoadModeFailFast)
	require.Empty(t, errs)

	_, err = compileProgram(context.Background(), res.Programs[0], env)
	require.Error(t, err)

	rec, err := st.ReadCompilation(context.Background(), "bad-run")
	require.NoError(t, err)
	assert.Equal(t, store.StatusError, rec.Status)
	assert.Contains(t, rec.Error, "DCP_VIOLATION")
}
