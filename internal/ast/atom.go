package ast

import (
	"github.com/roach88/qcml/internal/ir"
	"github.com/roach88/qcml/internal/linalg"
)

// Direction is the side of an atom's graph that a rewrite needs.
//
// A convex atom used where only an upper bound matters (minimize objective,
// left of ≤) is replaced by its epigraph t ≥ f(x). A concave atom used
// where only a lower bound matters is replaced by its hypograph t ≤ f(x).
// Emitting the equality t = f(x) instead would over-constrain the program.
type Direction int

const (
	// Unbounded marks a position that must stay affine (equality
	// constraints, find objectives, nonmonotone atom arguments).
	Unbounded Direction = iota
	Epigraph
	Hypograph
)

// Flip swaps Epigraph and Hypograph.
func (d Direction) Flip() Direction {
	switch d {
	case Epigraph:
		return Hypograph
	case Hypograph:
		return Epigraph
	}
	return d
}

// Through returns the direction of an argument whose parent is used in
// direction d and varies in that argument with monotonicity m.
func (d Direction) Through(m ir.Monotonicity) Direction {
	switch m {
	case ir.Increasing:
		return d
	case ir.Decreasing:
		return d.Flip()
	}
	return Unbounded
}

// For returns the direction in which an atom of curvature c may be
// rewritten: Epigraph for convex atoms, Hypograph for concave ones.
func For(c ir.Curvature) Direction {
	switch c {
	case ir.Convex:
		return Epigraph
	case ir.Concave:
		return Hypograph
	}
	return Unbounded
}

func (d Direction) String() string {
	switch d {
	case Epigraph:
		return "epigraph"
	case Hypograph:
		return "hypograph"
	}
	return "unbounded"
}

// Context is handed to graph implementations by the canonicalizer.
type Context interface {
	// Fresh allocates a new auxiliary variable of the given shape.
	Fresh(shape ir.Shape) *Variable
}

// Graph is the result of a graph implementation: an affine substitute for
// the atom call, the auxiliary variables it introduced, and the cone
// constraints tying them to the arguments.
type Graph struct {
	Result      Expr
	Aux         []*Variable
	Constraints []Constraint
}

// Atom is one entry of the atom library. Implementations are stateless
// values; the registry resolves a name to an Atom once, when the call node
// is built.
type Atom interface {
	// Name is the registry key.
	Name() string

	// Arity returns the accepted argument count; max < 0 means variadic.
	Arity() (min, max int)

	// Shape infers the result shape, failing with SHAPE_MISMATCH.
	Shape(args []Expr) (ir.Shape, error)

	// Sign infers the result sign.
	Sign(args []Expr) ir.Sign

	// Curvature is the atom's own curvature (Convex, Concave or Affine).
	Curvature() ir.Curvature

	// Monotonicity returns how the atom varies in argument i. It may
	// depend on the argument signs.
	Monotonicity(i int, args []Expr) ir.Monotonicity

	// Graph rewrites the call with already affine args into an affine
	// substitute plus cone constraints, for use in direction dir.
	Graph(ctx Context, args []Expr, dir Direction) (*Graph, error)
}

// Evaluator is implemented by atoms that can be computed on numbers. A
// call of such an atom whose arguments are all constant is Constant: it is
// evaluated with the parameter values instead of being rewritten.
type Evaluator interface {
	// Eval computes the atom entry by entry. Arguments outside the
	// domain fail with INVALID_VALUE.
	Eval(args []*linalg.Dense) (*linalg.Dense, error)
}
