// Package cone assembles a canonical program into second-order cone
// program data in the standard form
//
//	minimize    cᵀx
//	subject to  Ax = b
//	            h - Gx ∈ K,  K = R₊ˡ × Q^{q₁} × … × Q^{qₖ}
//
// Assembly is symbolic: coefficients keep references to parameters and
// named dimensions. Forward substitutes numbers and produces solver data;
// Backward maps a solver's primal vector back to named variable values.
// Both maps use one variable ordering, fixed at assembly time: user
// variables in declaration order, then auxiliary variables in creation
// order.
package cone

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/qcml/internal/ast"
	"github.com/roach88/qcml/internal/ir"
)

// slot is one variable's position in the flat vector, before dimensions
// are known.
type slot struct {
	v      *ast.Variable
	length ir.Dim
}

// Var is a variable's resolved position in the flat vector.
type Var struct {
	Name   string `json:"name"`
	Offset int    `json:"offset"`
	Length int    `json:"length"`
	Aux    bool   `json:"aux,omitempty"`
}

// soc is a second-order cone block: one cone ‖args‖ ≤ t, or, when
// elementwise, one cone per entry of t.
type soc struct {
	t           *form
	args        []*form
	elementwise bool
	label       string
}

// Program is an assembled, still symbolic cone program.
type Program struct {
	name   string
	sense  ast.Sense
	dims   []string
	slots  []slot
	params []*ast.Parameter

	objective *form
	eqs       []affine // form == 0
	lin       []affine // form <= 0
	cones     []soc
}

// affine is a linear block together with the constraint it came from.
type affine struct {
	f     *form
	label string
}

// Assemble flattens a canonical program. Every expression must already be
// affine.
func Assemble(p *ast.Program) (*Program, error) {
	if !p.IsCanonical() {
		return nil, ir.Errorf(ir.CodeInvalidState, "program %q must be canonicalized before assembly", p.Name)
	}
	out := &Program{
		name:   p.Name,
		sense:  p.Sense,
		dims:   p.Dimensions(),
		params: p.Parameters(),
	}
	for _, v := range p.Variables() {
		out.addSlot(v)
	}
	for _, v := range p.Aux() {
		out.addSlot(v)
	}

	obj, err := linearize(p.Objective)
	if err != nil {
		return nil, locate(err, "objective")
	}
	if !obj.scalar {
		return nil, ir.Errorf(ir.CodeShapeMismatch, "objective must be scalar").WithConstraint("objective")
	}
	out.objective = obj

	for i, c := range p.Constraints {
		if err := out.addConstraint(i, c); err != nil {
			return nil, locate(err, ast.ConstraintLabel(i))
		}
	}
	return out, nil
}

func (p *Program) addSlot(v *ast.Variable) {
	n, _ := v.Shape().Length()
	p.slots = append(p.slots, slot{v: v, length: n})
}

func (p *Program) addConstraint(i int, c ast.Constraint) error {
	switch c := c.(type) {
	case *ast.Equality:
		f, err := difference(c.Lhs, c.Rhs)
		if err != nil {
			return err
		}
		p.eqs = append(p.eqs, affine{f, ast.ConstraintLabel(i)})
	case *ast.Inequality:
		small, big := c.Sides()
		f, err := difference(small, big)
		if err != nil {
			return err
		}
		p.lin = append(p.lin, affine{f, ast.ConstraintLabel(i)})
	case *ast.SOC:
		t, err := linearize(c.T)
		if err != nil {
			return err
		}
		block := soc{t: t, label: ast.ConstraintLabel(i)}
		for _, a := range c.Args {
			f, err := linearize(a)
			if err != nil {
				return err
			}
			block.args = append(block.args, f)
		}
		p.cones = append(p.cones, block)
	case *ast.SOCElem:
		t, err := linearize(c.T)
		if err != nil {
			return err
		}
		block := soc{t: t, elementwise: true, label: ast.ConstraintLabel(i)}
		for _, a := range c.Args {
			f, err := linearize(a)
			if err != nil {
				return err
			}
			block.args = append(block.args, f.broadcast(t.length))
		}
		p.cones = append(p.cones, block)
	default:
		return ir.Errorf(ir.CodeInvalidValue, "unsupported constraint %T", c)
	}
	return nil
}

// difference linearizes a - b.
func difference(a, b ast.Expr) (*form, error) {
	fa, err := linearize(a)
	if err != nil {
		return nil, err
	}
	fb, err := linearize(b)
	if err != nil {
		return nil, err
	}
	return addForms(fa, fb.negate()), nil
}

func locate(err error, where string) error {
	if e, ok := err.(*ir.Error); ok {
		return e.WithConstraint(where)
	}
	return fmt.Errorf("%s: %w", where, err)
}

// Name returns the source program name.
func (p *Program) Name() string { return p.name }

// Sense returns the objective sense.
func (p *Program) Sense() ast.Sense { return p.sense }

// Dimensions returns the named dimensions Forward and Backward need.
func (p *Program) Dimensions() []string { return p.dims }

// Parameters returns the parameters Forward needs.
func (p *Program) Parameters() []*ast.Parameter { return p.params }

// Layout resolves the variable positions for the given dimensions.
func (p *Program) Layout(dims map[string]int) ([]Var, error) {
	e := &env{dims: dims}
	out := make([]Var, 0, len(p.slots))
	offset := 0
	for _, s := range p.slots {
		n, err := e.size(s.length)
		if err != nil {
			return nil, err
		}
		out = append(out, Var{Name: s.v.Name, Offset: offset, Length: n, Aux: s.v.Aux})
		offset += n
	}
	return out, nil
}

// Sizes are the block sizes of the cone program for given dimensions.
type Sizes struct {
	N int   // variables
	P int   // equality rows
	L int   // linear cone rows
	Q []int // second-order cone sizes
	M int   // inequality rows, L + ΣQ
}

// Sizes resolves the block sizes for the given dimensions.
func (p *Program) Sizes(dims map[string]int) (Sizes, error) {
	e := &env{dims: dims}
	var s Sizes
	layout, err := p.Layout(dims)
	if err != nil {
		return s, err
	}
	for _, v := range layout {
		s.N += v.Length
	}
	for _, a := range p.eqs {
		n, err := e.size(a.f.length)
		if err != nil {
			return s, err
		}
		s.P += n
	}
	for _, a := range p.lin {
		n, err := e.size(a.f.length)
		if err != nil {
			return s, err
		}
		s.L += n
	}
	s.Q = []int{}
	for _, c := range p.cones {
		qs, err := c.sizes(e)
		if err != nil {
			return s, err
		}
		s.Q = append(s.Q, qs...)
	}
	s.M = s.L
	for _, q := range s.Q {
		s.M += q
	}
	return s, nil
}

func (c soc) sizes(e *env) ([]int, error) {
	if c.elementwise {
		n, err := e.size(c.t.length)
		if err != nil {
			return nil, err
		}
		qs := make([]int, n)
		for i := range qs {
			qs[i] = 1 + len(c.args)
		}
		return qs, nil
	}
	q := 1
	for _, a := range c.args {
		n, err := e.size(a.length)
		if err != nil {
			return nil, err
		}
		q += n
	}
	return []int{q}, nil
}

// String describes the program symbolically: variable lengths, the row
// counts of each linear block and the size of each cone block.
func (p *Program) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "cone program %s (%s)\n", p.name, p.sense)
	b.WriteString("variables:")
	for _, s := range p.slots {
		b.WriteString(" " + s.v.Name + "[" + s.length.String() + "]")
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "objective: %s\n", p.objective)
	for _, a := range p.eqs {
		fmt.Fprintf(&b, "zero[%s]: %s == 0\n", a.f.length, a.f)
	}
	for _, a := range p.lin {
		fmt.Fprintf(&b, "nonneg[%s]: %s <= 0\n", a.f.length, a.f)
	}
	for _, c := range p.cones {
		dims := []ir.Dim{ir.Lit(1)}
		for _, a := range c.args {
			if c.elementwise {
				dims = append(dims, ir.Lit(1))
			} else {
				dims = append(dims, a.length)
			}
		}
		if c.elementwise {
			fmt.Fprintf(&b, "soc[%s] x %s\n", sizeString(dims), c.t.length)
		} else {
			fmt.Fprintf(&b, "soc[%s]\n", sizeString(dims))
		}
	}
	return b.String()
}

// sizeString renders a sum of dimensions with the literal part last,
// e.g. "n+2".
func sizeString(dims []ir.Dim) string {
	var names []string
	lit := 0
	for _, d := range dims {
		if d.IsSymbolic() {
			names = append(names, d.Name)
		} else {
			lit += d.Size
		}
	}
	if lit > 0 || len(names) == 0 {
		names = append(names, strconv.Itoa(lit))
	}
	return strings.Join(names, "+")
}
