package atoms

import (
	"github.com/roach88/qcml/internal/ast"
	"github.com/roach88/qcml/internal/ir"
)

// The atoms below are elementwise and represented by one rotated
// second-order cone per entry: 4a² + (b-c)² ≤ (b+c)² is a² ≤ b·c.

type square struct{ unary }

func (square) Name() string { return "square" }

func (square) Sign([]ast.Expr) ir.Sign { return ir.Positive }

func (square) Curvature() ir.Curvature { return ir.Convex }

func (square) Monotonicity(_ int, args []ast.Expr) ir.Monotonicity {
	return ir.MonotonicityBySign(args[0].Sign())
}

// Graph: ‖(2x, 1-t)‖ ≤ 1+t per entry.
func (a square) Graph(ctx ast.Context, args []ast.Expr, dir ast.Direction) (*ast.Graph, error) {
	if err := checkDirection(a, dir); err != nil {
		return nil, err
	}
	g := newGraph(ctx)
	x := args[0]
	t := g.fresh(x.Shape())
	one := ast.NewNumber(1)
	g.socElem(g.add(one, t), g.scale(2, x), g.sub(one, t))
	return g.result(t)
}

type invPos struct{ unary }

func (invPos) Name() string { return "inv_pos" }

func (invPos) Sign([]ast.Expr) ir.Sign { return ir.Positive }

func (invPos) Curvature() ir.Curvature { return ir.Convex }

func (invPos) Monotonicity(int, []ast.Expr) ir.Monotonicity { return ir.Decreasing }

// Graph: ‖(2, x-t)‖ ≤ x+t per entry, so 1 ≤ x·t.
func (a invPos) Graph(ctx ast.Context, args []ast.Expr, dir ast.Direction) (*ast.Graph, error) {
	if err := checkDirection(a, dir); err != nil {
		return nil, err
	}
	g := newGraph(ctx)
	x := args[0]
	t := g.fresh(x.Shape())
	g.socElem(g.add(x, t), ast.NewNumber(2), g.sub(x, t))
	return g.result(t)
}

type sqrtAtom struct{ unary }

func (sqrtAtom) Name() string { return "sqrt" }

func (sqrtAtom) Sign([]ast.Expr) ir.Sign { return ir.Positive }

func (sqrtAtom) Curvature() ir.Curvature { return ir.Concave }

func (sqrtAtom) Monotonicity(int, []ast.Expr) ir.Monotonicity { return ir.Increasing }

// Graph: ‖(2t, 1-x)‖ ≤ 1+x per entry, so t² ≤ x.
func (a sqrtAtom) Graph(ctx ast.Context, args []ast.Expr, dir ast.Direction) (*ast.Graph, error) {
	if err := checkDirection(a, dir); err != nil {
		return nil, err
	}
	g := newGraph(ctx)
	x := args[0]
	t := g.fresh(x.Shape())
	one := ast.NewNumber(1)
	g.socElem(g.add(one, x), g.scale(2, t), g.sub(one, x))
	return g.result(t)
}

type geoMean struct{}

func (geoMean) Name() string { return "geo_mean" }

func (geoMean) Arity() (int, int) { return 2, 2 }

func (a geoMean) Shape(args []ast.Expr) (ir.Shape, error) { return broadcastArgs(a.Name(), args) }

func (geoMean) Sign([]ast.Expr) ir.Sign { return ir.Positive }

func (geoMean) Curvature() ir.Curvature { return ir.Concave }

func (geoMean) Monotonicity(int, []ast.Expr) ir.Monotonicity { return ir.Increasing }

// Graph: ‖(2t, x-y)‖ ≤ x+y per entry, so t² ≤ x·y.
func (a geoMean) Graph(ctx ast.Context, args []ast.Expr, dir ast.Direction) (*ast.Graph, error) {
	if err := checkDirection(a, dir); err != nil {
		return nil, err
	}
	shape, err := a.Shape(args)
	if err != nil {
		return nil, err
	}
	g := newGraph(ctx)
	x, y := args[0], args[1]
	t := g.fresh(shape)
	g.socElem(g.add(x, y), g.scale(2, t), g.sub(x, y))
	return g.result(t)
}
