package ast

import (
	"strconv"
	"strings"

	"github.com/roach88/qcml/internal/ir"
)

// Expr is a node of the expression tree.
//
// Nodes are immutable: their properties are inferred once by the
// constructor and rewriting always builds new nodes. Only the types in
// this package implement Expr.
type Expr interface {
	Props() ir.Props
	Shape() ir.Shape
	Sign() ir.Sign
	Curvature() ir.Curvature
	Children() []Expr
	String() string
	expr() // sealed
}

// node carries the cached properties shared by every Expr.
type node struct {
	props ir.Props
}

func (n node) Props() ir.Props { return n.props }
func (n node) Shape() ir.Shape { return n.props.Shape }
func (n node) Sign() ir.Sign { return n.props.Sign }
func (n node) Curvature() ir.Curvature { return n.props.Curvature }
func (node) expr() {}

// Number is a scalar numeric literal.
type Number struct {
	node
	Value float64
}

// NewNumber returns a literal.
func NewNumber(v float64) *Number {
	return &Number{
		node:  node{ir.Props{Shape: ir.Scalar(), Sign: ir.SignOf(v), Curvature: ir.Constant}},
		Value: v,
	}
}

func (*Number) Children() []Expr { return nil }

func (n *Number) String() string { return strconv.FormatFloat(n.Value, 'g', -1, 64) }

// Variable is a decision variable. Auxiliary variables are introduced by
// canonicalization and never appear in solutions handed back to callers.
type Variable struct {
	node
	Name string
	Aux  bool
}

func (*Variable) Children() []Expr { return nil }

func (v *Variable) String() string { return v.Name }

// Parameter is a named value supplied when the cone program is evaluated.
// It is Constant for composition: it is fixed for any single solve.
type Parameter struct {
	node
	Name string
}

func (*Parameter) Children() []Expr { return nil }

func (p *Parameter) String() string { return p.Name }

// Add is a sum of terms.
type Add struct {
	node
	Terms []Expr
}

func (a *Add) Children() []Expr { return a.Terms }

func (a *Add) String() string {
	var b strings.Builder
	b.WriteByte('(')
	for i, t := range a.Terms {
		if i > 0 {
			if neg, ok := t.(*Negate); ok {
				b.WriteString(" - ")
				b.WriteString(neg.X.String())
				continue
			}
			b.WriteString(" + ")
		}
		b.WriteString(t.String())
	}
	b.WriteByte(')')
	return b.String()
}

// Mul is a product. At least one factor is constant in a DCP program.
type Mul struct {
	node
	Left, Right Expr
}

func (m *Mul) Children() []Expr { return []Expr{m.Left, m.Right} }

func (m *Mul) String() string { return m.Left.String() + "*" + m.Right.String() }

// Negate is unary minus.
type Negate struct {
	node
	X Expr
}

func (n *Negate) Children() []Expr { return []Expr{n.X} }

func (n *Negate) String() string { return "-" + n.X.String() }

// Transpose is the matrix transpose.
type Transpose struct {
	node
	X Expr
}

func (t *Transpose) Children() []Expr { return []Expr{t.X} }

func (t *Transpose) String() string { return t.X.String() + "'" }

// Sum reduces a vector or matrix to the scalar sum of its entries.
type Sum struct {
	node
	X Expr
}

func (s *Sum) Children() []Expr { return []Expr{s.X} }

func (s *Sum) String() string { return "sum(" + s.X.String() + ")" }

// Call is an atom application.
type Call struct {
	node
	Atom Atom
	Args []Expr
}

func (c *Call) Children() []Expr { return c.Args }

func (c *Call) String() string {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = a.String()
	}
	return c.Atom.Name() + "(" + strings.Join(args, ", ") + ")"
}

// Walk visits e and its descendants in pre-order. Returning false from fn
// skips the children of the current node.
func Walk(e Expr, fn func(Expr) bool) {
	if !fn(e) {
		return
	}
	for _, c := range e.Children() {
		Walk(c, fn)
	}
}

// IsAffineTree reports whether no node under e has nonlinear curvature.
func IsAffineTree(e Expr) bool {
	ok := true
	Walk(e, func(n Expr) bool {
		if !n.Curvature().IsAffine() {
			ok = false
		}
		return ok
	})
	return ok
}
