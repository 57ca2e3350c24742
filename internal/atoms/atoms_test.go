package atoms

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qcml/internal/ast"
	"github.com/roach88/qcml/internal/ir"
)

type counter struct{ n int }

func (c *counter) Fresh(shape ir.Shape) *ast.Variable {
	v := ast.NewAux(fmt.Sprintf("_t%d", c.n), shape)
	c.n++
	return v
}

func vecVar(name string, sign ir.Sign) *ast.Variable {
	return ast.NewVariable(name, ir.Vector(ir.Sym("n")), sign)
}

func call(t *testing.T, name string, args ...ast.Expr) ast.Expr {
	t.Helper()
	a, err := Lookup(name)
	require.NoError(t, err)
	e, err := ast.NewCall(a, args...)
	require.NoError(t, err)
	return e
}

func TestLookup_Unknown(t *testing.T) {
	_, err := Lookup("log_sum_exp")
	require.Error(t, err)
	assert.True(t, ir.IsUnknownAtom(err))
}

func TestRegistry_RejectsDuplicate(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(abs{}, "a"))
	err := r.Register(abs{}, "b")
	assert.True(t, ir.IsInvalidValue(err))
}

func TestNames_Sorted(t *testing.T) {
	names := Names()
	assert.Contains(t, names, "norm")
	assert.Contains(t, names, "norm2")
	assert.Contains(t, names, "geo_mean")
	assert.IsIncreasing(t, names)
}

func TestProperties(t *testing.T) {
	x := vecVar("x", ir.Neither)
	px := vecVar("p", ir.Positive)
	s := ast.NewVariable("s", ir.Scalar(), ir.Neither)

	tests := []struct {
		name  string
		atom  string
		args  []ast.Expr
		shape ir.Shape
		sign  ir.Sign
		curv  ir.Curvature
	}{
		{"abs keeps shape", "abs", []ast.Expr{x}, x.Shape(), ir.Positive, ir.Convex},
		{"norm is scalar", "norm", []ast.Expr{x}, ir.Scalar(), ir.Positive, ir.Convex},
		{"norm of several", "norm", []ast.Expr{x, s}, ir.Scalar(), ir.Positive, ir.Convex},
		{"max broadcast", "max", []ast.Expr{x, ast.NewNumber(0)}, x.Shape(), ir.Positive, ir.Convex},
		{"min of positives", "min", []ast.Expr{px, ast.NewNumber(1)}, x.Shape(), ir.Positive, ir.Concave},
		{"sqrt concave", "sqrt", []ast.Expr{px}, x.Shape(), ir.Positive, ir.Concave},
		{"quad_over_lin", "quad_over_lin", []ast.Expr{x, s}, ir.Scalar(), ir.Positive, ir.Convex},
		{"geo_mean", "geo_mean", []ast.Expr{px, s}, x.Shape(), ir.Positive, ir.Concave},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := call(t, tt.atom, tt.args...)
			assert.True(t, e.Shape().Equal(tt.shape), "shape %s", e.Shape())
			assert.Equal(t, tt.sign, e.Sign())
			assert.Equal(t, tt.curv, e.Curvature())
		})
	}
}

func TestShapeErrors(t *testing.T) {
	x := vecVar("x", ir.Neither)
	y := ast.NewVariable("y", ir.Vector(ir.Sym("m")), ir.Neither)
	a := ast.NewParameter("A", ir.Matrix(ir.Sym("n"), ir.Sym("n")), ir.Neither)

	for _, tc := range []struct {
		atom string
		args []ast.Expr
	}{
		{"max", []ast.Expr{x, y}},
		{"norm", []ast.Expr{a}},
		{"quad_over_lin", []ast.Expr{x, y}},
		{"abs", []ast.Expr{x, x}},
	} {
		atom, err := Lookup(tc.atom)
		require.NoError(t, err)
		_, err = ast.NewCall(atom, tc.args...)
		assert.True(t, ir.IsShapeMismatch(err), tc.atom)
		var e *ir.Error
		require.ErrorAs(t, err, &e)
		assert.Equal(t, tc.atom, e.Atom)
	}
}

func TestMonotonicityBySign(t *testing.T) {
	pos := call(t, "abs", vecVar("p", ir.Positive))
	assert.Equal(t, ir.Convex, pos.Curvature())

	// abs is increasing on positive arguments, which still rules out a
	// concave one.
	a, err := Lookup("abs")
	require.NoError(t, err)
	sq := call(t, "sqrt", vecVar("p", ir.Positive))
	e, err := ast.NewCall(a, sq)
	require.NoError(t, err)
	assert.Equal(t, ir.Nonconvex, e.Curvature())

	// norm of a convex positive argument composes.
	n := call(t, "norm", call(t, "abs", vecVar("x", ir.Neither)))
	assert.Equal(t, ir.Convex, n.Curvature())

	// inv_pos is decreasing, so it accepts a concave argument.
	inv := call(t, "inv_pos", sq)
	assert.Equal(t, ir.Convex, inv.Curvature())
}

func TestGraphs(t *testing.T) {
	x := vecVar("x", ir.Neither)
	s := ast.NewVariable("s", ir.Scalar(), ir.Neither)

	tests := []struct {
		atom        string
		args        []ast.Expr
		dir         ast.Direction
		result      string
		constraints []string
	}{
		{"abs", []ast.Expr{x}, ast.Epigraph, "_t0", []string{"x <= _t0", "-x <= _t0"}},
		{"pos", []ast.Expr{x}, ast.Epigraph, "_t0", []string{"x <= _t0", "0 <= _t0"}},
		{"neg", []ast.Expr{x}, ast.Epigraph, "_t0", []string{"-x <= _t0", "0 <= _t0"}},
		{"max", []ast.Expr{x, s}, ast.Epigraph, "_t0", []string{"x <= _t0", "s <= _t0"}},
		{"min", []ast.Expr{x, s}, ast.Hypograph, "_t0", []string{"_t0 <= x", "_t0 <= s"}},
		{"norm", []ast.Expr{x}, ast.Epigraph, "_t0", []string{"norm(x) <= _t0"}},
		{"norm_inf", []ast.Expr{x}, ast.Epigraph, "_t0", []string{"x <= _t0", "-x <= _t0"}},
		{"norm1", []ast.Expr{x}, ast.Epigraph, "sum(_t0)", []string{"x <= _t0", "-x <= _t0"}},
		{"sum_squares", []ast.Expr{x}, ast.Epigraph, "_t0",
			[]string{"norm(2*x, (1 - _t0)) <= (1 + _t0)"}},
		{"square", []ast.Expr{x}, ast.Epigraph, "_t0",
			[]string{"norm([2*x, (1 - _t0)]) <= (1 + _t0) (elementwise)"}},
		{"quad_over_lin", []ast.Expr{x, s}, ast.Epigraph, "_t0",
			[]string{"norm(2*x, (s - _t0)) <= (s + _t0)"}},
		{"inv_pos", []ast.Expr{x}, ast.Epigraph, "_t0",
			[]string{"norm([2, (x - _t0)]) <= (x + _t0) (elementwise)"}},
		{"sqrt", []ast.Expr{x}, ast.Hypograph, "_t0",
			[]string{"norm([2*_t0, (1 - x)]) <= (1 + x) (elementwise)"}},
		{"geo_mean", []ast.Expr{x, s}, ast.Hypograph, "_t0",
			[]string{"norm([2*_t0, (x - s)]) <= (x + s) (elementwise)"}},
	}
	for _, tt := range tests {
		t.Run(tt.atom, func(t *testing.T) {
			a, err := Lookup(tt.atom)
			require.NoError(t, err)

			g, err := a.Graph(&counter{}, tt.args, tt.dir)
			require.NoError(t, err)
			assert.Equal(t, tt.result, g.Result.String())
			require.Len(t, g.Aux, 1)
			assert.True(t, g.Aux[0].Aux)

			got := make([]string, len(g.Constraints))
			for i, c := range g.Constraints {
				got[i] = c.String()
				for _, e := range c.Children() {
					assert.True(t, e.Curvature().IsAffine(), "graph emits affine expressions only: %s", e)
				}
			}
			assert.Equal(t, tt.constraints, got)
		})
	}
}

func TestGraph_WrongDirection(t *testing.T) {
	x := vecVar("x", ir.Neither)

	a, err := Lookup("abs")
	require.NoError(t, err)
	_, err = a.Graph(&counter{}, []ast.Expr{x}, ast.Hypograph)
	assert.True(t, ir.IsDCPError(err))

	s, err := Lookup("sqrt")
	require.NoError(t, err)
	_, err = s.Graph(&counter{}, []ast.Expr{x}, ast.Epigraph)
	assert.True(t, ir.IsDCPError(err))

	_, err = s.Graph(&counter{}, []ast.Expr{x}, ast.Unbounded)
	assert.True(t, ir.IsDCPError(err))
}
