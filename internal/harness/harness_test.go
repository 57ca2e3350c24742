package harness

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qcml/internal/store"
)

func TestScenarios(t *testing.T) {
	scenarios, err := LoadScenarios(filepath.Join("testdata", "scenarios"))
	require.NoError(t, err)
	require.Len(t, scenarios, 5)

	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) {
			result, err := Run(s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Equal(t, "scenario-"+s.Name, result.RunID)
			require.NotNil(t, result.Record)
			assert.Equal(t, result.RunID, result.Record.ID)
		})
	}
}

func TestRunWithGolden(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "lp_basic.yaml"))
	require.NoError(t, err)

	result, err := RunWithGolden(t, s)
	require.NoError(t, err)
	assert.True(t, result.Pass)
}

func TestRun_FailingAssertions(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "lp_basic.yaml"))
	require.NoError(t, err)
	s.Assertions = []Assertion{
		{Type: AssertSizes, Expect: map[string]any{"n": 3}},
		{Type: AssertFeasible, X: []float64{-1, 0}},
		{Type: AssertError, Code: "DCP_VIOLATION"},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "Expected: n = 3")
	assert.Contains(t, result.Errors[0], "Actual: n = 2")
	assert.Contains(t, result.Errors[1], "Cone program:")
	assert.Contains(t, result.Errors[2], "no error")
}

func TestRun_UnexpectedError(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "missing_param.yaml"))
	require.NoError(t, err)
	s.Assertions = []Assertion{{Type: AssertSizes, Expect: map[string]any{"n": 2}}}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "needs cone data")
	assert.Contains(t, result.Errors[1], "unexpected error")
}

func TestHarness_SharedStore(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "log.db"))
	require.NoError(t, err)
	defer st.Close()

	h := New(st)
	ctx := context.Background()
	scenarios, err := LoadScenarios(filepath.Join("testdata", "scenarios"))
	require.NoError(t, err)
	for _, s := range scenarios {
		_, err := h.Run(ctx, s)
		require.NoError(t, err)
	}

	recs, err := st.ListCompilations(ctx, store.Filter{})
	require.NoError(t, err)
	require.Len(t, recs, len(scenarios))

	failed, err := st.ListCompilations(ctx, store.Filter{Program: "concave_norm"})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, store.StatusError, failed[0].Status)
}

func TestRun_ProgramSelection(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "norm_epigraph.yaml"))
	require.NoError(t, err)

	s.Program = ""
	_, err = Run(s)
	assert.ErrorContains(t, err, "holds 3 problems")

	s.Program = "nope"
	_, err = Run(s)
	assert.ErrorContains(t, err, `problem "nope" not found`)
}
