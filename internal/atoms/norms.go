package atoms

import (
	"github.com/roach88/qcml/internal/ast"
	"github.com/roach88/qcml/internal/ir"
)

// reduction supplies the scalar result shape of the norm-like atoms.
type reduction struct{}

func (reduction) Sign([]ast.Expr) ir.Sign { return ir.Positive }

func (reduction) Curvature() ir.Curvature { return ir.Convex }

func (reduction) Monotonicity(i int, args []ast.Expr) ir.Monotonicity {
	return ir.MonotonicityBySign(args[i].Sign())
}

// norm is the Euclidean norm of all argument entries stacked together.
type norm struct {
	reduction
	name string
}

func (a norm) Name() string { return a.name }

func (norm) Arity() (int, int) { return 1, -1 }

func (a norm) Shape(args []ast.Expr) (ir.Shape, error) {
	for _, x := range args {
		if err := vectorArg(a.name, x); err != nil {
			return ir.Shape{}, err
		}
	}
	return ir.Scalar(), nil
}

// Graph: ‖(x₁, …, xₖ)‖ ≤ t.
func (a norm) Graph(ctx ast.Context, args []ast.Expr, dir ast.Direction) (*ast.Graph, error) {
	if err := checkDirection(a, dir); err != nil {
		return nil, err
	}
	g := newGraph(ctx)
	t := g.fresh(ir.Scalar())
	g.soc(t, args...)
	return g.result(t)
}

type normInf struct{ reduction }

func (normInf) Name() string { return "norm_inf" }

func (normInf) Arity() (int, int) { return 1, 1 }

func (a normInf) Shape(args []ast.Expr) (ir.Shape, error) {
	if err := vectorArg(a.Name(), args[0]); err != nil {
		return ir.Shape{}, err
	}
	return ir.Scalar(), nil
}

// Graph: x ≤ t, -x ≤ t with a scalar t.
func (a normInf) Graph(ctx ast.Context, args []ast.Expr, dir ast.Direction) (*ast.Graph, error) {
	if err := checkDirection(a, dir); err != nil {
		return nil, err
	}
	g := newGraph(ctx)
	x := args[0]
	t := g.fresh(ir.Scalar())
	g.le(x, t)
	g.le(ast.NewNegate(x), t)
	return g.result(t)
}

type norm1 struct{ reduction }

func (norm1) Name() string { return "norm1" }

func (norm1) Arity() (int, int) { return 1, 1 }

func (a norm1) Shape(args []ast.Expr) (ir.Shape, error) {
	if err := vectorArg(a.Name(), args[0]); err != nil {
		return ir.Shape{}, err
	}
	return ir.Scalar(), nil
}

// Graph: x ≤ u, -x ≤ u; the call becomes sum(u).
func (a norm1) Graph(ctx ast.Context, args []ast.Expr, dir ast.Direction) (*ast.Graph, error) {
	if err := checkDirection(a, dir); err != nil {
		return nil, err
	}
	g := newGraph(ctx)
	x := args[0]
	u := g.fresh(x.Shape())
	g.le(x, u)
	g.le(ast.NewNegate(x), u)
	return g.result(g.sum(u))
}

type sumSquares struct{ reduction }

func (sumSquares) Name() string { return "sum_squares" }

func (sumSquares) Arity() (int, int) { return 1, 1 }

func (a sumSquares) Shape(args []ast.Expr) (ir.Shape, error) {
	if err := vectorArg(a.Name(), args[0]); err != nil {
		return ir.Shape{}, err
	}
	return ir.Scalar(), nil
}

// Graph: ‖(2x, 1-t)‖ ≤ 1+t, which holds exactly when ‖x‖² ≤ t.
func (a sumSquares) Graph(ctx ast.Context, args []ast.Expr, dir ast.Direction) (*ast.Graph, error) {
	if err := checkDirection(a, dir); err != nil {
		return nil, err
	}
	g := newGraph(ctx)
	x := args[0]
	t := g.fresh(ir.Scalar())
	one := ast.NewNumber(1)
	g.soc(g.add(one, t), g.scale(2, x), g.sub(one, t))
	return g.result(t)
}

// quadOverLin is ‖x‖²/y for a scalar y > 0.
type quadOverLin struct{ reduction }

func (quadOverLin) Name() string { return "quad_over_lin" }

func (quadOverLin) Arity() (int, int) { return 2, 2 }

func (a quadOverLin) Shape(args []ast.Expr) (ir.Shape, error) {
	if err := vectorArg(a.Name(), args[0]); err != nil {
		return ir.Shape{}, err
	}
	if !args[1].Shape().IsScalar() {
		return ir.Shape{}, ir.Errorf(ir.CodeShapeMismatch, "quad_over_lin expects a scalar denominator, got %s",
			args[1].Shape()).WithAtom(a.Name())
	}
	return ir.Scalar(), nil
}

func (quadOverLin) Monotonicity(i int, args []ast.Expr) ir.Monotonicity {
	if i == 1 {
		return ir.Decreasing
	}
	return ir.MonotonicityBySign(args[0].Sign())
}

// Graph: ‖(2x, y-t)‖ ≤ y+t, which holds exactly when ‖x‖² ≤ y·t with
// y, t ≥ 0.
func (a quadOverLin) Graph(ctx ast.Context, args []ast.Expr, dir ast.Direction) (*ast.Graph, error) {
	if err := checkDirection(a, dir); err != nil {
		return nil, err
	}
	g := newGraph(ctx)
	x, y := args[0], args[1]
	t := g.fresh(ir.Scalar())
	g.soc(g.add(y, t), g.scale(2, x), g.sub(y, t))
	return g.result(t)
}
