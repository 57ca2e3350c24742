// Package canon rewrites a DCP program into an equivalent program whose
// expressions are all affine, plus linear and second-order cone
// constraints.
//
// Every nonlinear atom call is replaced by a fresh auxiliary variable and
// the constraints of its graph implementation. The side of the graph used
// (epigraph or hypograph) follows from where the call sits: a minimized
// objective or the smaller side of an inequality only needs an upper
// bound, a maximized objective or the larger side only a lower bound.
// Negation and negative constant factors flip the side; atom arguments
// inherit it through the atom's monotonicity.
package canon

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/qcml/internal/ast"
	"github.com/roach88/qcml/internal/dcp"
	"github.com/roach88/qcml/internal/ir"
)

// Option configures a canonicalization run.
type Option func(*rewriter)

// WithLogger sets the logger for rewrite tracing.
func WithLogger(l *slog.Logger) Option {
	return func(r *rewriter) { r.logger = l }
}

// Canonicalize rewrites p in place. The program must be DCP. On error p is
// left untouched; on success it is marked canonical and later calls are
// no-ops.
func Canonicalize(p *ast.Program, opts ...Option) error {
	if p.IsCanonical() {
		return nil
	}
	if err := dcp.Check(p); err != nil {
		return err
	}

	r := &rewriter{prog: p, taken: make(map[string]bool), logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}

	obj, err := r.rewrite(p.Objective, objectiveDirection(p.Sense))
	if err != nil {
		return locate(err, "objective")
	}

	cons := make([]ast.Constraint, 0, len(p.Constraints))
	for i, c := range p.Constraints {
		rc, err := r.constraint(c)
		if err != nil {
			return locate(err, ast.ConstraintLabel(i))
		}
		cons = append(cons, rc)
	}
	cons = append(cons, r.emitted...)

	implied, err := signConstraints(p.Variables())
	if err != nil {
		return err
	}
	cons = append(cons, implied...)

	p.Objective = obj
	p.Constraints = cons
	for _, v := range r.aux {
		p.AddAux(v)
	}
	p.MarkCanonical()

	r.logger.Debug("canonicalized program",
		"program", p.Name,
		"aux", len(r.aux),
		"constraints", len(cons))
	return nil
}

// rewriter is the per-run rewrite context. It owns the fresh-name counter,
// so concurrent or repeated compilations never share name state.
type rewriter struct {
	prog    *ast.Program
	next    int
	taken   map[string]bool
	aux     []*ast.Variable
	emitted []ast.Constraint
	logger  *slog.Logger
}

// Fresh implements ast.Context.
func (r *rewriter) Fresh(shape ir.Shape) *ast.Variable {
	for {
		name := fmt.Sprintf("%st%d", ast.AuxPrefix, r.next)
		r.next++
		if r.taken[name] || r.prog.HasName(name) {
			continue
		}
		r.taken[name] = true
		v := ast.NewAux(name, shape)
		r.aux = append(r.aux, v)
		return v
	}
}

func objectiveDirection(s ast.Sense) ast.Direction {
	switch s {
	case ast.Minimize:
		return ast.Epigraph
	case ast.Maximize:
		return ast.Hypograph
	}
	return ast.Unbounded
}

func (r *rewriter) constraint(c ast.Constraint) (ast.Constraint, error) {
	affine := true
	for _, e := range c.Children() {
		affine = affine && ast.IsAffineTree(e)
	}
	if affine {
		return c, nil
	}
	switch c := c.(type) {
	case *ast.Equality:
		lhs, err := r.rewrite(c.Lhs, ast.Unbounded)
		if err != nil {
			return nil, err
		}
		rhs, err := r.rewrite(c.Rhs, ast.Unbounded)
		if err != nil {
			return nil, err
		}
		return ast.NewEquality(lhs, rhs)
	case *ast.Inequality:
		lhsDir, rhsDir := ast.Epigraph, ast.Hypograph
		if c.Op == ast.GE {
			lhsDir, rhsDir = rhsDir, lhsDir
		}
		lhs, err := r.rewrite(c.Lhs, lhsDir)
		if err != nil {
			return nil, err
		}
		rhs, err := r.rewrite(c.Rhs, rhsDir)
		if err != nil {
			return nil, err
		}
		return ast.NewInequality(lhs, c.Op, rhs)
	}
	// Cone constraints are affine by construction.
	return c, nil
}

// rewrite returns an affine replacement for e, used in direction dir.
func (r *rewriter) rewrite(e ast.Expr, dir ast.Direction) (ast.Expr, error) {
	if ast.IsAffineTree(e) {
		return e, nil
	}
	switch e := e.(type) {
	case *ast.Add:
		terms := make([]ast.Expr, len(e.Terms))
		for i, t := range e.Terms {
			rt, err := r.rewrite(t, dir)
			if err != nil {
				return nil, err
			}
			terms[i] = rt
		}
		return ast.NewAdd(terms...)
	case *ast.Negate:
		x, err := r.rewrite(e.X, dir.Flip())
		if err != nil {
			return nil, err
		}
		return ast.NewNegate(x), nil
	case *ast.Mul:
		return r.rewriteMul(e, dir)
	case *ast.Transpose:
		x, err := r.rewrite(e.X, dir)
		if err != nil {
			return nil, err
		}
		return ast.NewTranspose(x)
	case *ast.Sum:
		x, err := r.rewrite(e.X, dir)
		if err != nil {
			return nil, err
		}
		return ast.NewSum(x)
	case *ast.Call:
		return r.rewriteCall(e, dir)
	}
	return nil, ir.Errorf(ir.CodeDCPViolation, "cannot canonicalize %T %s", e, e)
}

// rewriteMul handles constant*expr and expr*constant. A constant of
// unknown sign only multiplies affine expressions in a DCP program.
func (r *rewriter) rewriteMul(m *ast.Mul, dir ast.Direction) (ast.Expr, error) {
	constant, other, left := m.Left, m.Right, true
	if !constant.Curvature().IsConstant() {
		constant, other, left = m.Right, m.Left, false
	}
	if !constant.Curvature().IsConstant() {
		return nil, ir.Errorf(ir.CodeDCPViolation, "product of two non-constant expressions: %s", m)
	}
	sub := dir
	switch constant.Sign() {
	case ir.Negative:
		sub = dir.Flip()
	case ir.Neither:
		sub = ast.Unbounded
	}
	x, err := r.rewrite(other, sub)
	if err != nil {
		return nil, err
	}
	if left {
		return ast.NewMul(constant, x)
	}
	return ast.NewMul(x, constant)
}

func (r *rewriter) rewriteCall(c *ast.Call, dir ast.Direction) (ast.Expr, error) {
	name := c.Atom.Name()
	want := ast.For(c.Atom.Curvature())
	if dir != want {
		return nil, ir.Errorf(ir.CodeDCPViolation, "%s %s used where %s is required",
			c.Atom.Curvature(), name, dir).WithAtom(name)
	}

	args := make([]ast.Expr, len(c.Args))
	for i, a := range c.Args {
		// Monotonicity comes from the original argument signs; the rewritten
		// argument is an auxiliary variable with no known sign.
		argDir := want.Through(c.Atom.Monotonicity(i, c.Args))
		ra, err := r.rewrite(a, argDir)
		if err != nil {
			return nil, err
		}
		args[i] = ra
	}

	g, err := c.Atom.Graph(r, args, dir)
	if err != nil {
		return nil, err
	}
	r.emitted = append(r.emitted, g.Constraints...)
	r.logger.Debug("rewrote atom",
		"atom", name,
		"direction", dir.String(),
		"result", g.Result.String(),
		"constraints", len(g.Constraints))
	return g.Result, nil
}

// signConstraints turns declared variable signs into constraints.
func signConstraints(vars []*ast.Variable) ([]ast.Constraint, error) {
	var out []ast.Constraint
	for _, v := range vars {
		var op ast.Relation
		switch v.Sign() {
		case ir.Positive:
			op = ast.GE
		case ir.Negative:
			op = ast.LE
		default:
			continue
		}
		c, err := ast.NewInequality(v, op, ast.NewNumber(0))
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func locate(err error, where string) error {
	var e *ir.Error
	if errors.As(err, &e) {
		return e.WithConstraint(where)
	}
	return fmt.Errorf("%s: %w", where, err)
}
