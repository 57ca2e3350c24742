package atoms

import (
	"github.com/roach88/qcml/internal/ast"
	"github.com/roach88/qcml/internal/ir"
)

// graph accumulates the pieces of a graph implementation. The first
// construction error sticks and every later call is a no-op, so atom code
// reads as a straight list of constraints.
type graph struct {
	ctx ast.Context
	out ast.Graph
	err error
}

func newGraph(ctx ast.Context) *graph { return &graph{ctx: ctx} }

func (g *graph) fresh(shape ir.Shape) ast.Expr {
	v := g.ctx.Fresh(shape)
	g.out.Aux = append(g.out.Aux, v)
	return v
}

func (g *graph) add(xs ...ast.Expr) ast.Expr {
	if g.err != nil {
		return nil
	}
	e, err := ast.NewAdd(xs...)
	g.err = err
	return e
}

func (g *graph) sub(x, y ast.Expr) ast.Expr {
	if g.err != nil {
		return nil
	}
	e, err := ast.Sub(x, y)
	g.err = err
	return e
}

func (g *graph) scale(c float64, x ast.Expr) ast.Expr {
	if g.err != nil {
		return nil
	}
	e, err := ast.NewMul(ast.NewNumber(c), x)
	g.err = err
	return e
}

func (g *graph) sum(x ast.Expr) ast.Expr {
	if g.err != nil {
		return nil
	}
	e, err := ast.NewSum(x)
	g.err = err
	return e
}

func (g *graph) le(x, y ast.Expr) {
	if g.err != nil {
		return
	}
	c, err := ast.NewInequality(x, ast.LE, y)
	if err != nil {
		g.err = err
		return
	}
	g.out.Constraints = append(g.out.Constraints, c)
}

func (g *graph) soc(t ast.Expr, args ...ast.Expr) {
	if g.err != nil {
		return
	}
	c, err := ast.NewSOC(t, args...)
	if err != nil {
		g.err = err
		return
	}
	g.out.Constraints = append(g.out.Constraints, c)
}

func (g *graph) socElem(t ast.Expr, args ...ast.Expr) {
	if g.err != nil {
		return
	}
	c, err := ast.NewSOCElem(t, args...)
	if err != nil {
		g.err = err
		return
	}
	g.out.Constraints = append(g.out.Constraints, c)
}

func (g *graph) result(e ast.Expr) (*ast.Graph, error) {
	if g.err != nil {
		return nil, g.err
	}
	g.out.Result = e
	return &g.out, nil
}

// checkDirection rejects a rewrite on the side of the graph the atom
// cannot represent with cone constraints.
func checkDirection(a ast.Atom, dir ast.Direction) error {
	want := ast.For(a.Curvature())
	if dir == want {
		return nil
	}
	bound := "above"
	if want == ast.Hypograph {
		bound = "below"
	}
	return ir.Errorf(ir.CodeDCPViolation, "%s is %s and can only be bounded from %s, needed %s",
		a.Name(), a.Curvature(), bound, dir).WithAtom(a.Name())
}

func positive([]ast.Expr) ir.Sign { return ir.Positive }

func vectorArg(name string, e ast.Expr) error {
	if _, ok := e.Shape().Length(); !ok {
		return ir.Errorf(ir.CodeShapeMismatch, "%s expects a vector argument, got %s", name, e.Shape()).WithAtom(name)
	}
	return nil
}

func broadcastArgs(name string, args []ast.Expr) (ir.Shape, error) {
	shape := args[0].Shape()
	for _, a := range args[1:] {
		s, ok := ir.Broadcast(shape, a.Shape())
		if !ok {
			return ir.Shape{}, ir.Errorf(ir.CodeShapeMismatch, "%s arguments do not broadcast: %s and %s",
				name, shape, a.Shape()).WithAtom(name)
		}
		shape = s
	}
	return shape, nil
}
