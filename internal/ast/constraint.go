package ast

import (
	"strings"

	"github.com/roach88/qcml/internal/ir"
)

// Constraint is one constraint of a program. Only the types in this
// package implement it.
type Constraint interface {
	// Children returns the constraint's expressions in a fixed order.
	Children() []Expr
	String() string
	constraint() // sealed
}

// Relation is the operator of an inequality.
type Relation int

const (
	LE Relation = iota // lhs ≤ rhs
	GE                 // lhs ≥ rhs
)

// ParseRelation parses "<=" or ">=".
func ParseRelation(s string) (Relation, bool) {
	switch s {
	case "<=":
		return LE, true
	case ">=":
		return GE, true
	}
	return LE, false
}

func (r Relation) String() string {
	if r == GE {
		return ">="
	}
	return "<="
}

// Equality is lhs == rhs, elementwise.
type Equality struct {
	Lhs, Rhs Expr
}

// NewEquality checks that the sides broadcast.
func NewEquality(lhs, rhs Expr) (*Equality, error) {
	if _, ok := ir.Broadcast(lhs.Shape(), rhs.Shape()); !ok {
		return nil, ir.Errorf(ir.CodeShapeMismatch, "equality between %s and %s", lhs.Shape(), rhs.Shape())
	}
	return &Equality{Lhs: lhs, Rhs: rhs}, nil
}

func (c *Equality) Children() []Expr { return []Expr{c.Lhs, c.Rhs} }

func (c *Equality) String() string { return c.Lhs.String() + " == " + c.Rhs.String() }

func (*Equality) constraint() {}

// Inequality is lhs ≤ rhs or lhs ≥ rhs, elementwise.
type Inequality struct {
	Lhs Expr
	Op  Relation
	Rhs Expr
}

// NewInequality checks that the sides broadcast.
func NewInequality(lhs Expr, op Relation, rhs Expr) (*Inequality, error) {
	if _, ok := ir.Broadcast(lhs.Shape(), rhs.Shape()); !ok {
		return nil, ir.Errorf(ir.CodeShapeMismatch, "inequality between %s and %s", lhs.Shape(), rhs.Shape())
	}
	return &Inequality{Lhs: lhs, Op: op, Rhs: rhs}, nil
}

// Sides returns the inequality as small ≤ big.
func (c *Inequality) Sides() (small, big Expr) {
	if c.Op == GE {
		return c.Rhs, c.Lhs
	}
	return c.Lhs, c.Rhs
}

func (c *Inequality) Children() []Expr { return []Expr{c.Lhs, c.Rhs} }

func (c *Inequality) String() string {
	return c.Lhs.String() + " " + c.Op.String() + " " + c.Rhs.String()
}

func (*Inequality) constraint() {}

// SOC is the second-order cone constraint ‖(Args…)‖₂ ≤ T with scalar T.
// Each argument contributes all of its entries to the norm.
type SOC struct {
	T    Expr
	Args []Expr
}

// NewSOC builds a second-order cone constraint. Matrix-shaped arguments
// other than row vectors are rejected.
func NewSOC(t Expr, args ...Expr) (*SOC, error) {
	if !t.Shape().IsScalar() {
		return nil, ir.Errorf(ir.CodeShapeMismatch, "cone bound must be scalar, got %s", t.Shape())
	}
	for _, a := range args {
		if _, ok := a.Shape().Length(); !ok {
			return nil, ir.Errorf(ir.CodeShapeMismatch, "cone argument must be a vector, got %s", a.Shape())
		}
	}
	return &SOC{T: t, Args: args}, nil
}

func (c *SOC) Children() []Expr { return append([]Expr{c.T}, c.Args...) }

func (c *SOC) String() string {
	return "norm(" + joinExprs(c.Args) + ") <= " + c.T.String()
}

func (*SOC) constraint() {}

// SOCElem is a family of cones, one per entry i of T:
// ‖(Args₀[i], Args₁[i], …)‖₂ ≤ T[i]. Scalar arguments repeat in every cone.
type SOCElem struct {
	T    Expr
	Args []Expr
}

// NewSOCElem builds an elementwise cone family. T fixes the number of
// cones; every argument is a scalar or has T's shape.
func NewSOCElem(t Expr, args ...Expr) (*SOCElem, error) {
	if _, ok := t.Shape().Length(); !ok {
		return nil, ir.Errorf(ir.CodeShapeMismatch, "cone bound must be a vector, got %s", t.Shape())
	}
	for _, a := range args {
		if !a.Shape().IsScalar() && !a.Shape().Equal(t.Shape()) {
			return nil, ir.Errorf(ir.CodeShapeMismatch, "cone argument %s does not match bound %s", a.Shape(), t.Shape())
		}
	}
	return &SOCElem{T: t, Args: args}, nil
}

func (c *SOCElem) Children() []Expr { return append([]Expr{c.T}, c.Args...) }

func (c *SOCElem) String() string {
	return "norm([" + joinExprs(c.Args) + "]) <= " + c.T.String() + " (elementwise)"
}

func (*SOCElem) constraint() {}

func joinExprs(es []Expr) string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = e.String()
	}
	return strings.Join(parts, ", ")
}
