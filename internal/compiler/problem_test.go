package compiler

import (
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qcml/internal/ast"
	"github.com/roach88/qcml/internal/ir"
)

func compileString(t *testing.T, src, path string) (*ast.Program, error) {
	t.Helper()
	ctx := cuecontext.New()
	v := ctx.CompileString(src, cue.Filename("problem.cue"))
	require.NoError(t, v.Err())
	return CompileProblem(v.LookupPath(cue.ParsePath(path)))
}

func TestCompileProblemLinear(t *testing.T) {
	p, err := compileString(t, `
		problem: lp: {
			dimensions: ["n"]
			parameters: c: {shape: ["n"], sign: "positive"}
			variables: x: {shape: ["n"]}
			minimize: {mul: [{transpose: "c"}, "x"]}
			constraints: [
				{">=": ["x", 0]},
				{"<=": [0, "x", 1]},
			]
		}
	`, "problem.lp")
	require.NoError(t, err)

	assert.Equal(t, "lp", p.Name)
	assert.Equal(t, []string{"n"}, p.Dimensions())
	require.Len(t, p.Parameters(), 1)
	assert.Equal(t, ir.Positive, p.Parameters()[0].Sign())
	require.Len(t, p.Variables(), 1)
	assert.Equal(t, ast.Minimize, p.Sense)
	assert.Equal(t, "c'*x", p.Objective.String())
	assert.True(t, p.Objective.Shape().IsScalar())

	require.Len(t, p.Constraints, 3)
	assert.Equal(t, "x >= 0", p.Constraints[0].String())
	assert.Equal(t, "0 <= x", p.Constraints[1].String())
	assert.Equal(t, "x <= 1", p.Constraints[2].String())
}

func TestCompileProblemAtoms(t *testing.T) {
	p, err := compileString(t, `
		problem: socp: {
			dimensions: ["n"]
			variables: {
				x: {shape: ["n"]}
				s: {sign: "nonnegative"}
			}
			minimize: {add: [{norm: ["x"]}, {quad_over_lin: ["x", "s"]}]}
			constraints: [{"<=": [{sqrt: "s"}, {div: [{sum: "x"}, 2]}]}]
		}
	`, "problem.socp")
	require.NoError(t, err)

	assert.Equal(t, "(norm(x) + quad_over_lin(x, s))", p.Objective.String())
	assert.Equal(t, ir.Convex, p.Objective.Curvature())
	assert.Equal(t, ir.Positive, p.Variables()[1].Sign())
	require.Len(t, p.Constraints, 1)
	assert.Equal(t, "sqrt(s) <= 0.5*sum(x)", p.Constraints[0].String())
}

func TestCompileProblemFind(t *testing.T) {
	p, err := compileString(t, `
		problem: feas: {
			variables: x: {}
			constraints: [{"==": ["x", 3]}]
		}
	`, "problem.feas")
	require.NoError(t, err)
	assert.Equal(t, ast.Find, p.Sense)
	assert.True(t, p.Variables()[0].Shape().IsScalar())
	assert.Equal(t, "x == 3", p.Constraints[0].String())
}

func TestCompileProblemErrors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		code  string
		check func(error) bool
	}{
		{
			name:  "unknown identifier",
			src:   `problem: p: {variables: x: {}, minimize: {neg: "y"}}`,
			code:  ErrSemantic,
			check: ir.IsUnknownIdentifier,
		},
		{
			name:  "undeclared dimension",
			src:   `problem: p: {variables: x: {shape: ["n"]}}`,
			code:  ErrSemantic,
			check: ir.IsUnknownIdentifier,
		},
		{
			name: "shape mismatch",
			src: `problem: p: {
				dimensions: ["n", "m"]
				variables: {x: {shape: ["n"]}, y: {shape: ["m"]}}
				constraints: [{"==": ["x", "y"]}]
			}`,
			code:  ErrSemantic,
			check: ir.IsShapeMismatch,
		},
		{
			name:  "division by expression",
			src:   `problem: p: {variables: x: {}, minimize: {div: ["x", "x"]}}`,
			code:  ErrSemantic,
			check: ir.IsInvalidValue,
		},
		{
			name:  "matrix variable",
			src:   `problem: p: {variables: X: {shape: [2, 2]}}`,
			code:  ErrSemantic,
			check: ir.IsShapeMismatch,
		},
		{
			name: "unknown atom",
			src:  `problem: p: {variables: x: {}, minimize: {frobnicate: ["x"]}}`,
			code: ErrInvalidExpression,
		},
		{
			name: "both senses",
			src:  `problem: p: {variables: x: {}, minimize: "x", maximize: "x"}`,
			code: ErrConflictingSense,
		},
		{
			name: "misspelled field",
			src:  `problem: p: {variables: x: {}, minimise: "x"}`,
			code: ErrUnknownField,
		},
		{
			name: "bad relation",
			src:  `problem: p: {variables: x: {}, constraints: [{"<": ["x", 1]}]}`,
			code: ErrInvalidConstraint,
		},
		{
			name:  "atom arity",
			src:   `problem: p: {variables: x: {}, minimize: {abs: ["x", "x"]}}`,
			code:  ErrSemantic,
			check: ir.IsShapeMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compileString(t, tt.src, "problem.p")
			require.Error(t, err)

			var ce *CompileError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.code, ce.Code, ce.Error())
			assert.True(t, ce.Pos.IsValid(), "error should carry a position: %v", err)
			if tt.check != nil {
				assert.True(t, tt.check(err), "unexpected error kind: %v", err)
			}
		})
	}
}

func TestCompileErrorFormat(t *testing.T) {
	_, err := compileString(t, `problem: p: {
	variables: x: {}
	minimize: {neg: "y"}
}`, "problem.p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "problem.cue:3:")
	assert.Contains(t, err.Error(), "minimize.neg")
	assert.Contains(t, err.Error(), "[E106]")
	assert.True(t, IsCompileError(err))
}

func TestCompileAll(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		problem: first: {variables: x: {}, minimize: {abs: "x"}}
		problem: second: {variables: y: {}, maximize: {neg: {abs: "y"}}}
	`)
	require.NoError(t, v.Err())

	progs, err := CompileAll(v)
	require.NoError(t, err)
	require.Len(t, progs, 2)
	assert.Equal(t, "first", progs[0].Name)
	assert.Equal(t, "second", progs[1].Name)
	assert.Equal(t, ast.Maximize, progs[1].Sense)

	_, err = CompileAll(ctx.CompileString(`other: 1`))
	assert.True(t, IsCompileError(err))
}

func TestCompileNormalizesNames(t *testing.T) {
	// The declaration uses a precomposed é, the reference a combining accent.
	p, err := compileString(t, `
		problem: p: {
			variables: "café": {}
			minimize: {abs: "cafe\u0301"}
		}
	`, "problem.p")
	require.NoError(t, err)
	assert.Equal(t, "abs(café)", p.Objective.String())
}
