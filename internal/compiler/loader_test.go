package compiler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFile(t *testing.T) {
	res, errs := Load(filepath.Join("testdata", "problems", "lp.cue"), LoadModeFailFast)
	require.Empty(t, errs)
	assert.Equal(t, 1, res.FileCount)
	require.Len(t, res.Programs, 1)
	assert.Equal(t, "lp", res.Programs[0].Name)
	assert.NotNil(t, res.Program("lp"))
	assert.Nil(t, res.Program("missing"))
}

func TestLoadDirectory(t *testing.T) {
	res, errs := Load(filepath.Join("testdata", "problems"), LoadModeFailFast)
	require.Empty(t, errs)
	assert.Equal(t, 2, res.FileCount)
	require.Len(t, res.Programs, 2)
	assert.NotNil(t, res.Program("lp"))
	assert.NotNil(t, res.Program("socp"))
}

func TestLoadDirectoryWithoutPackageClause(t *testing.T) {
	dir := t.TempDir()
	write := func(name, src string) {
		t.Helper()
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(src), 0o644))
	}
	write("a.cue", `problem: first: {variables: x: {}, minimize: {abs: "x"}}`)
	write("b.cue", `problem: second: {variables: y: {}, maximize: {neg: {abs: "y"}}}`)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))
	write(filepath.Join("nested", "c.cue"), `problem: third: {variables: z: {}}`)

	files, err := FindCUEFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.cue"), filepath.Join(dir, "b.cue")}, files)

	res, errs := Load(dir, LoadModeCollectAll)
	require.Empty(t, errs)
	assert.Equal(t, 2, res.FileCount)
	require.Len(t, res.Programs, 2)
	assert.NotNil(t, res.Program("first"))
	assert.NotNil(t, res.Program("second"))
	assert.Nil(t, res.Program("third"))
}

func TestLoadCollectAll(t *testing.T) {
	res, errs := Load(filepath.Join("testdata", "broken"), LoadModeCollectAll)
	require.Len(t, errs, 3)

	var got []string
	for _, err := range errs {
		var ce *CompileError
		require.ErrorAs(t, err, &ce)
		got = append(got, ce.Code)
		assert.True(t, ce.Pos.IsValid(), ce.Error())
	}
	assert.Equal(t, []string{ErrUnknownField, ErrInvalidDeclaration, ErrInvalidExpression}, got)
	assert.Contains(t, errs[0].Error(), "problem.first.minimise")
	assert.Contains(t, errs[1].Error(), "problem.first.variables.x.sign")

	require.Len(t, res.Programs, 1)
	assert.Equal(t, "third", res.Programs[0].Name)
}

func TestLoadFailFast(t *testing.T) {
	_, errs := Load(filepath.Join("testdata", "broken"), LoadModeFailFast)
	require.Len(t, errs, 1)
	assert.True(t, IsCompileError(errs[0]))
}

func TestLoadErrors(t *testing.T) {
	_, errs := Load(filepath.Join("testdata", "nope"), LoadModeFailFast)
	require.Len(t, errs, 1)
	var le *LoadError
	require.ErrorAs(t, errs[0], &le)
	assert.Equal(t, ErrCodeNotFound, le.Code)

	_, errs = Load(t.TempDir(), LoadModeFailFast)
	require.Len(t, errs, 1)
	require.ErrorAs(t, errs[0], &le)
	assert.Equal(t, ErrCodeNoFiles, le.Code)
}
