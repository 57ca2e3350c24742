package ast

import (
	"strconv"

	"github.com/roach88/qcml/internal/ir"
)

// NewVariable returns a decision variable node. Variables are Affine; sign
// is Neither unless the declaration says otherwise.
func NewVariable(name string, shape ir.Shape, sign ir.Sign) *Variable {
	return &Variable{
		node: node{ir.Props{Shape: shape, Sign: sign, Curvature: ir.Affine}},
		Name: name,
	}
}

// NewAux returns an auxiliary variable node.
func NewAux(name string, shape ir.Shape) *Variable {
	v := NewVariable(name, shape, ir.Neither)
	v.Aux = true
	return v
}

// NewParameter returns a parameter node.
func NewParameter(name string, shape ir.Shape, sign ir.Sign) *Parameter {
	return &Parameter{
		node: node{ir.Props{Shape: shape, Sign: sign, Curvature: ir.Constant}},
		Name: name,
	}
}

// NewAdd returns the sum of terms. Nested sums are flattened, numeric
// literals fold into one leading literal, and a zero literal is dropped.
func NewAdd(terms ...Expr) (Expr, error) {
	var flat []Expr
	var constant float64
	var sawNumber bool
	for _, t := range terms {
		var parts []Expr
		if a, ok := t.(*Add); ok {
			parts = a.Terms
		} else {
			parts = []Expr{t}
		}
		for _, p := range parts {
			if n, ok := p.(*Number); ok {
				constant += n.Value
				sawNumber = true
				continue
			}
			flat = append(flat, p)
		}
	}
	if sawNumber && (constant != 0 || len(flat) == 0) {
		flat = append([]Expr{NewNumber(constant)}, flat...)
	}
	if len(flat) == 1 {
		return flat[0], nil
	}

	props := make([]ir.Props, len(flat))
	for i, t := range flat {
		props[i] = t.Props()
	}
	p, err := ir.Combine(ir.OpAdd, props...)
	if err != nil {
		return nil, err
	}
	return &Add{node: node{p}, Terms: flat}, nil
}

// Sub returns a - b.
func Sub(a, b Expr) (Expr, error) {
	return NewAdd(a, NewNegate(b))
}

// NewNegate returns -x. Literals fold and double negation cancels.
func NewNegate(x Expr) Expr {
	switch v := x.(type) {
	case *Number:
		return NewNumber(-v.Value)
	case *Negate:
		return v.X
	}
	p, _ := ir.Combine(ir.OpNeg, x.Props())
	return &Negate{node: node{p}, X: x}
}

// NewMul returns left*right. Two literals fold; a literal 1 on either
// side of a product is dropped.
func NewMul(left, right Expr) (Expr, error) {
	ln, lok := left.(*Number)
	rn, rok := right.(*Number)
	switch {
	case lok && rok:
		return NewNumber(ln.Value * rn.Value), nil
	case lok && ln.Value == 1:
		return right, nil
	case rok && rn.Value == 1:
		return left, nil
	case lok && ln.Value == -1:
		return NewNegate(right), nil
	case rok && rn.Value == -1:
		return NewNegate(left), nil
	}
	p, err := ir.Combine(ir.OpMul, left.Props(), right.Props())
	if err != nil {
		return nil, err
	}
	return &Mul{node: node{p}, Left: left, Right: right}, nil
}

// Div returns x / c for a nonzero literal c, written as (1/c)*x.
func Div(x Expr, c float64) (Expr, error) {
	if c == 0 {
		return nil, ir.Errorf(ir.CodeInvalidValue, "division by zero")
	}
	return NewMul(NewNumber(1/c), x)
}

// NewTranspose returns x'. Transposing a scalar is the identity and a
// double transpose cancels.
func NewTranspose(x Expr) (Expr, error) {
	if x.Shape().IsScalar() {
		return x, nil
	}
	if t, ok := x.(*Transpose); ok {
		return t.X, nil
	}
	p, err := ir.Combine(ir.OpTranspose, x.Props())
	if err != nil {
		return nil, err
	}
	return &Transpose{node: node{p}, X: x}, nil
}

// NewSum returns the sum of the entries of x. Summing a scalar is the
// identity.
func NewSum(x Expr) (Expr, error) {
	if x.Shape().IsScalar() {
		return x, nil
	}
	p, err := ir.Combine(ir.OpSum, x.Props())
	if err != nil {
		return nil, err
	}
	return &Sum{node: node{p}, X: x}, nil
}

// NewCall applies atom to args, checking arity and inferring shape, sign
// and curvature through the composition rules.
func NewCall(atom Atom, args ...Expr) (Expr, error) {
	lo, hi := atom.Arity()
	if len(args) < lo || (hi >= 0 && len(args) > hi) {
		return nil, ir.Errorf(ir.CodeShapeMismatch, "%s takes %s, got %d",
			atom.Name(), arityString(lo, hi), len(args)).WithAtom(atom.Name())
	}
	shape, err := atom.Shape(args)
	if err != nil {
		if e, ok := err.(*ir.Error); ok {
			return nil, e.WithAtom(atom.Name())
		}
		return nil, err
	}
	uses := make([]ir.ArgUse, len(args))
	for i, a := range args {
		uses[i] = ir.ArgUse{Curvature: a.Curvature(), Monotonicity: atom.Monotonicity(i, args)}
	}
	p := ir.Props{
		Shape:     shape,
		Sign:      atom.Sign(args),
		Curvature: ir.Compose(atom.Curvature(), uses),
	}
	if _, ok := atom.(Evaluator); ok && allConstant(args) {
		p.Curvature = ir.Constant
	}
	return &Call{node: node{p}, Atom: atom, Args: args}, nil
}

func allConstant(args []Expr) bool {
	for _, a := range args {
		if !a.Curvature().IsConstant() {
			return false
		}
	}
	return true
}

func arityString(lo, hi int) string {
	switch {
	case hi < 0:
		return "at least " + strconv.Itoa(lo) + " arguments"
	case lo == hi && lo == 1:
		return "1 argument"
	case lo == hi:
		return strconv.Itoa(lo) + " arguments"
	}
	return strconv.Itoa(lo) + " to " + strconv.Itoa(hi) + " arguments"
}
