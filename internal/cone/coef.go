package cone

import (
	"fmt"

	"github.com/roach88/qcml/internal/ast"
	"github.com/roach88/qcml/internal/ir"
	"github.com/roach88/qcml/internal/linalg"
)

// env is the numeric context of one Forward or Backward call.
type env struct {
	dims   map[string]int
	params map[string]*linalg.Dense
}

func (e *env) size(d ir.Dim) (int, error) { return d.Resolve(e.dims) }

// coef is a symbolic coefficient matrix. It may depend on parameter values
// and named dimensions, so it is only turned into numbers by Forward.
type coef interface {
	eval(e *env) (*linalg.Dense, error)
	String() string
}

// exprCoef is a constant expression. With column set the value is
// flattened to a column vector.
type exprCoef struct {
	expr   ast.Expr
	column bool
}

func (c exprCoef) eval(e *env) (*linalg.Dense, error) {
	d, err := evalConstant(c.expr, e)
	if err != nil {
		return nil, err
	}
	if c.column && d.Cols() != 1 {
		return d.Reshape(d.Len(), 1)
	}
	return d, nil
}

func (c exprCoef) String() string { return c.expr.String() }

// eyeCoef is the n×n identity.
type eyeCoef struct{ n ir.Dim }

func (c eyeCoef) eval(e *env) (*linalg.Dense, error) {
	n, err := e.size(c.n)
	if err != nil {
		return nil, err
	}
	return linalg.Identity(n), nil
}

func (c eyeCoef) String() string { return "I(" + c.n.String() + ")" }

// onesCoef is the r×c all-ones matrix: a column of ones broadcasts a scalar,
// a row of ones sums a vector.
type onesCoef struct{ r, c ir.Dim }

func (c onesCoef) eval(e *env) (*linalg.Dense, error) {
	r, err := e.size(c.r)
	if err != nil {
		return nil, err
	}
	n, err := e.size(c.c)
	if err != nil {
		return nil, err
	}
	return linalg.Ones(r, n), nil
}

func (c onesCoef) String() string { return "1(" + c.r.String() + "," + c.c.String() + ")" }

type prodCoef struct{ a, b coef }

func (c prodCoef) eval(e *env) (*linalg.Dense, error) {
	if eye, ok := c.a.(eyeCoef); ok {
		return c.identityTimes(e, eye, c.b)
	}
	if eye, ok := c.b.(eyeCoef); ok {
		return c.identityTimes(e, eye, c.a)
	}
	a, err := c.a.eval(e)
	if err != nil {
		return nil, err
	}
	b, err := c.b.eval(e)
	if err != nil {
		return nil, err
	}
	return a.Mul(b)
}

// identityTimes skips the multiplication by I(n) unless other is a 1×1
// factor, which stands for a multiple of the identity.
func (c prodCoef) identityTimes(e *env, eye eyeCoef, other coef) (*linalg.Dense, error) {
	n, err := e.size(eye.n)
	if err != nil {
		return nil, err
	}
	d, err := other.eval(e)
	if err != nil {
		return nil, err
	}
	if d.IsScalar() && n != 1 {
		return linalg.Identity(n).Scale(d.At(0, 0)), nil
	}
	return d, nil
}

func (c prodCoef) String() string { return c.a.String() + "*" + c.b.String() }

type sumCoef struct{ a, b coef }

func (c sumCoef) eval(e *env) (*linalg.Dense, error) {
	a, err := c.a.eval(e)
	if err != nil {
		return nil, err
	}
	b, err := c.b.eval(e)
	if err != nil {
		return nil, err
	}
	return a.Add(b)
}

func (c sumCoef) String() string { return "(" + c.a.String() + " + " + c.b.String() + ")" }

type negCoef struct{ a coef }

func (c negCoef) eval(e *env) (*linalg.Dense, error) {
	a, err := c.a.eval(e)
	if err != nil {
		return nil, err
	}
	return a.Scale(-1), nil
}

func (c negCoef) String() string { return "-" + c.a.String() }

type transCoef struct{ a coef }

func (c transCoef) eval(e *env) (*linalg.Dense, error) {
	a, err := c.a.eval(e)
	if err != nil {
		return nil, err
	}
	return a.T(), nil
}

func (c transCoef) String() string { return c.a.String() + "'" }

// prod builds a·b.
func prod(a, b coef) coef { return prodCoef{a, b} }

// neg builds -a, cancelling double negation.
func neg(a coef) coef {
	if n, ok := a.(negCoef); ok {
		return n.a
	}
	return negCoef{a}
}

// sum builds a+b where either side may be absent.
func sum(a, b coef) coef {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return sumCoef{a, b}
}

// evalConstant evaluates a constant expression tree.
func evalConstant(x ast.Expr, e *env) (*linalg.Dense, error) {
	switch x := x.(type) {
	case *ast.Number:
		return linalg.Scalar(x.Value), nil
	case *ast.Parameter:
		v, ok := e.params[x.Name]
		if !ok {
			return nil, ir.Errorf(ir.CodeUnknownIdentifier, "parameter %q has no value", x.Name)
		}
		return v, nil
	case *ast.Add:
		var acc *linalg.Dense
		for _, t := range x.Terms {
			v, err := evalConstant(t, e)
			if err != nil {
				return nil, err
			}
			if acc == nil {
				acc = v
				continue
			}
			if acc, err = acc.Add(v); err != nil {
				return nil, shapeError(x, err)
			}
		}
		return acc, nil
	case *ast.Mul:
		l, err := evalConstant(x.Left, e)
		if err != nil {
			return nil, err
		}
		r, err := evalConstant(x.Right, e)
		if err != nil {
			return nil, err
		}
		out, err := l.Mul(r)
		if err != nil {
			return nil, shapeError(x, err)
		}
		return out, nil
	case *ast.Negate:
		v, err := evalConstant(x.X, e)
		if err != nil {
			return nil, err
		}
		return v.Scale(-1), nil
	case *ast.Transpose:
		v, err := evalConstant(x.X, e)
		if err != nil {
			return nil, err
		}
		return v.T(), nil
	case *ast.Sum:
		v, err := evalConstant(x.X, e)
		if err != nil {
			return nil, err
		}
		return linalg.Scalar(v.Sum()), nil
	case *ast.Call:
		ev, ok := x.Atom.(ast.Evaluator)
		if !ok {
			break
		}
		args := make([]*linalg.Dense, len(x.Args))
		for i, a := range x.Args {
			v, err := evalConstant(a, e)
			if err != nil {
				return nil, err
			}
			args[i] = v
		}
		return ev.Eval(args)
	}
	return nil, ir.Errorf(ir.CodeInvalidValue, "%s is not a constant expression", x)
}

func shapeError(x ast.Expr, err error) error {
	return ir.Errorf(ir.CodeShapeMismatch, "evaluating %s: %v", x, err)
}

// describe is used in debug logging of coefficient forms.
func describe(c coef) string {
	if c == nil {
		return "0"
	}
	return fmt.Sprint(c)
}
