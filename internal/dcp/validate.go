// Package dcp checks programs against the disciplined convex programming
// ruleset.
//
// A program is DCP when its objective is convex (minimize) or concave
// (maximize), every equality is affine on both sides, every inequality has
// a convex smaller side and a concave larger side, and no sub-expression
// breaks the composition rules. Curvature is already cached on every node,
// so validation is a read-only walk.
package dcp

import (
	"fmt"

	"github.com/roach88/qcml/internal/ast"
	"github.com/roach88/qcml/internal/ir"
)

// Violation codes (E200-E299)
const (
	ErrObjectiveCurvature  = "E201" // objective curvature does not match its sense
	ErrEqualityNotAffine   = "E202" // equality with a non-affine side
	ErrInequalityCurvature = "E203" // inequality sides with the wrong curvature
	ErrObjectiveNotScalar  = "E204" // objective is not scalar
	ErrNonconvexExpression = "E205" // sub-expression breaks the composition rules
)

// Violation is one reason a program is not DCP.
type Violation struct {
	Code    string `json:"code"`
	Field   string `json:"field"`
	Message string `json:"message"`
	Atom    string `json:"atom,omitempty"`
}

// Error implements the error interface.
func (v Violation) Error() string {
	return fmt.Sprintf("[%s] %s: %s", v.Code, v.Field, v.Message)
}

// Validate returns every violation in p (does not fail-fast).
func Validate(p *ast.Program) []Violation {
	var out []Violation

	obj := p.Objective
	if !obj.Shape().IsScalar() {
		out = append(out, Violation{
			Field:   "objective",
			Message: fmt.Sprintf("objective must be scalar, got %s", obj.Shape()),
			Code:    ErrObjectiveNotScalar,
		})
	}
	out = append(out, nonconvex("objective", obj)...)
	if obj.Curvature().IsDCP() {
		switch {
		case p.Sense == ast.Minimize && !obj.Curvature().IsConvex():
			out = append(out, Violation{
				Field:   "objective",
				Message: fmt.Sprintf("cannot minimize a %s expression: %s", obj.Curvature(), obj),
				Code:    ErrObjectiveCurvature,
			})
		case p.Sense == ast.Maximize && !obj.Curvature().IsConcave():
			out = append(out, Violation{
				Field:   "objective",
				Message: fmt.Sprintf("cannot maximize a %s expression: %s", obj.Curvature(), obj),
				Code:    ErrObjectiveCurvature,
			})
		}
	}

	for i, c := range p.Constraints {
		field := ast.ConstraintLabel(i)
		for _, e := range c.Children() {
			out = append(out, nonconvex(field, e)...)
		}
		out = append(out, checkConstraint(field, c)...)
	}
	return out
}

func checkConstraint(field string, c ast.Constraint) []Violation {
	switch c := c.(type) {
	case *ast.Equality:
		if !dcpOK(c.Lhs, c.Rhs) {
			return nil
		}
		if !c.Lhs.Curvature().IsAffine() || !c.Rhs.Curvature().IsAffine() {
			return []Violation{{
				Field:   field,
				Message: fmt.Sprintf("equality requires affine sides, got %s == %s", c.Lhs.Curvature(), c.Rhs.Curvature()),
				Code:    ErrEqualityNotAffine,
			}}
		}
	case *ast.Inequality:
		if !dcpOK(c.Lhs, c.Rhs) {
			return nil
		}
		small, big := c.Sides()
		if !small.Curvature().IsConvex() || !big.Curvature().IsConcave() {
			return []Violation{{
				Field: field,
				Message: fmt.Sprintf("need convex <= concave, got %s <= %s in %s",
					small.Curvature(), big.Curvature(), c),
				Code: ErrInequalityCurvature,
			}}
		}
	case *ast.SOC, *ast.SOCElem:
		for _, e := range c.Children() {
			if e.Curvature().IsDCP() && !e.Curvature().IsAffine() {
				return []Violation{{
					Field:   field,
					Message: fmt.Sprintf("cone constraints take affine arguments, got %s %s", e.Curvature(), e),
					Code:    ErrInequalityCurvature,
				}}
			}
		}
	}
	return nil
}

func dcpOK(es ...ast.Expr) bool {
	for _, e := range es {
		if !e.Curvature().IsDCP() {
			return false
		}
	}
	return true
}

// nonconvex reports each node that is Nonconvex while all of its children
// are DCP: the places where the composition rules first break.
func nonconvex(field string, e ast.Expr) []Violation {
	var out []Violation
	ast.Walk(e, func(n ast.Expr) bool {
		if n.Curvature().IsDCP() {
			return false
		}
		for _, c := range n.Children() {
			if !c.Curvature().IsDCP() {
				return true
			}
		}
		v := Violation{Field: field, Code: ErrNonconvexExpression}
		switch n := n.(type) {
		case *ast.Call:
			v.Atom = n.Atom.Name()
			v.Message = fmt.Sprintf("%s is %s but its arguments do not compose: %s",
				n.Atom.Name(), n.Atom.Curvature(), n)
		case *ast.Mul:
			if n.Left.Curvature().IsConstant() || n.Right.Curvature().IsConstant() {
				v.Message = fmt.Sprintf("nonlinear expression scaled by a constant of unknown sign: %s", n)
			} else {
				v.Message = fmt.Sprintf("product of two non-constant expressions: %s", n)
			}
		default:
			v.Message = fmt.Sprintf("nonconvex expression: %s", n)
		}
		out = append(out, v)
		return false
	})
	return out
}

// IsDCP reports whether p has no violations.
func IsDCP(p *ast.Program) bool {
	return len(Validate(p)) == 0
}

// Check returns nil for a DCP program and otherwise a DCP_VIOLATION error
// describing the first violation.
func Check(p *ast.Program) error {
	vs := Validate(p)
	if len(vs) == 0 {
		return nil
	}
	v := vs[0]
	err := ir.Errorf(ir.CodeDCPViolation, "[%s] %s", v.Code, v.Message).WithConstraint(v.Field)
	if v.Atom != "" {
		err = err.WithAtom(v.Atom)
	}
	if len(vs) > 1 {
		err.Message += fmt.Sprintf(" (and %d more)", len(vs)-1)
	}
	return err
}
