package atoms

import (
	"github.com/roach88/qcml/internal/ast"
	"github.com/roach88/qcml/internal/ir"
)

// unary supplies arity and shape for atoms applied entry by entry to one
// argument.
type unary struct{}

func (unary) Arity() (int, int) { return 1, 1 }

func (unary) Shape(args []ast.Expr) (ir.Shape, error) { return args[0].Shape(), nil }

type abs struct{ unary }

func (abs) Name() string { return "abs" }
func (abs) Sign([]ast.Expr) ir.Sign { return ir.Positive }
func (abs) Curvature() ir.Curvature { return ir.Convex }

func (abs) Monotonicity(_ int, args []ast.Expr) ir.Monotonicity {
	return ir.MonotonicityBySign(args[0].Sign())
}

// Graph: x ≤ t, -x ≤ t.
func (a abs) Graph(ctx ast.Context, args []ast.Expr, dir ast.Direction) (*ast.Graph, error) {
	if err := checkDirection(a, dir); err != nil {
		return nil, err
	}
	g := newGraph(ctx)
	x := args[0]
	t := g.fresh(x.Shape())
	g.le(x, t)
	g.le(ast.NewNegate(x), t)
	return g.result(t)
}

type pos struct{ unary }

func (pos) Name() string { return "pos" }
func (pos) Sign([]ast.Expr) ir.Sign { return ir.Positive }
func (pos) Curvature() ir.Curvature { return ir.Convex }
func (pos) Monotonicity(int, []ast.Expr) ir.Monotonicity { return ir.Increasing }

// Graph: x ≤ t, 0 ≤ t.
func (a pos) Graph(ctx ast.Context, args []ast.Expr, dir ast.Direction) (*ast.Graph, error) {
	if err := checkDirection(a, dir); err != nil {
		return nil, err
	}
	g := newGraph(ctx)
	x := args[0]
	t := g.fresh(x.Shape())
	g.le(x, t)
	g.le(ast.NewNumber(0), t)
	return g.result(t)
}

type neg struct{ unary }

func (neg) Name() string { return "neg" }
func (neg) Sign([]ast.Expr) ir.Sign { return ir.Positive }
func (neg) Curvature() ir.Curvature { return ir.Convex }
func (neg) Monotonicity(int, []ast.Expr) ir.Monotonicity { return ir.Decreasing }

// Graph: -x ≤ t, 0 ≤ t.
func (a neg) Graph(ctx ast.Context, args []ast.Expr, dir ast.Direction) (*ast.Graph, error) {
	if err := checkDirection(a, dir); err != nil {
		return nil, err
	}
	g := newGraph(ctx)
	x := args[0]
	t := g.fresh(x.Shape())
	g.le(ast.NewNegate(x), t)
	g.le(ast.NewNumber(0), t)
	return g.result(t)
}

// variadic supplies arity and shape for max and min.
type variadic struct{}

func (variadic) Arity() (int, int) { return 1, -1 }

func (variadic) Monotonicity(int, []ast.Expr) ir.Monotonicity { return ir.Increasing }

type maxAtom struct{ variadic }

func (maxAtom) Name() string { return "max" }
func (maxAtom) Curvature() ir.Curvature { return ir.Convex }

func (a maxAtom) Shape(args []ast.Expr) (ir.Shape, error) { return broadcastArgs(a.Name(), args) }

// Sign: the maximum is nonnegative as soon as one argument is, and
// nonpositive only when every argument is.
func (maxAtom) Sign(args []ast.Expr) ir.Sign {
	all := true
	for _, a := range args {
		if a.Sign() == ir.Positive {
			return ir.Positive
		}
		all = all && a.Sign() == ir.Negative
	}
	if all {
		return ir.Negative
	}
	return ir.Neither
}

// Graph: xᵢ ≤ t for every argument.
func (a maxAtom) Graph(ctx ast.Context, args []ast.Expr, dir ast.Direction) (*ast.Graph, error) {
	if err := checkDirection(a, dir); err != nil {
		return nil, err
	}
	shape, err := a.Shape(args)
	if err != nil {
		return nil, err
	}
	g := newGraph(ctx)
	t := g.fresh(shape)
	for _, x := range args {
		g.le(x, t)
	}
	return g.result(t)
}

type minAtom struct{ variadic }

func (minAtom) Name() string { return "min" }
func (minAtom) Curvature() ir.Curvature { return ir.Concave }

func (a minAtom) Shape(args []ast.Expr) (ir.Shape, error) { return broadcastArgs(a.Name(), args) }

func (minAtom) Sign(args []ast.Expr) ir.Sign {
	all := true
	for _, a := range args {
		if a.Sign() == ir.Negative {
			return ir.Negative
		}
		all = all && a.Sign() == ir.Positive
	}
	if all {
		return ir.Positive
	}
	return ir.Neither
}

// Graph: t ≤ xᵢ for every argument.
func (a minAtom) Graph(ctx ast.Context, args []ast.Expr, dir ast.Direction) (*ast.Graph, error) {
	if err := checkDirection(a, dir); err != nil {
		return nil, err
	}
	shape, err := a.Shape(args)
	if err != nil {
		return nil, err
	}
	g := newGraph(ctx)
	t := g.fresh(shape)
	for _, x := range args {
		g.le(t, x)
	}
	return g.result(t)
}
