package ast

import (
	"strconv"
	"strings"

	"github.com/roach88/qcml/internal/ir"
)

// Sense is the objective sense.
type Sense int

const (
	Find Sense = iota
	Minimize
	Maximize
)

// ParseSense parses "minimize", "maximize" or "find".
func ParseSense(s string) (Sense, bool) {
	switch s {
	case "minimize":
		return Minimize, true
	case "maximize":
		return Maximize, true
	case "find", "":
		return Find, true
	}
	return Find, false
}

func (s Sense) String() string {
	switch s {
	case Minimize:
		return "minimize"
	case Maximize:
		return "maximize"
	}
	return "find"
}

// AuxPrefix starts every auxiliary variable name. User declarations may
// not use it.
const AuxPrefix = "_"

// Program is an optimization problem: an objective, constraints, and the
// declared dimensions, variables and parameters. Declaration order is
// preserved; it fixes the layout of the flat solution vector.
type Program struct {
	Name        string
	Sense       Sense
	Objective   Expr
	Constraints []Constraint

	dims      []string
	vars      []*Variable
	params    []*Parameter
	aux       []*Variable
	names     map[string]Expr // variables and parameters
	dimSet    map[string]bool
	canonical bool
}

// NewProgram returns an empty find program.
func NewProgram(name string) *Program {
	return &Program{
		Name:      name,
		Objective: NewNumber(0),
		names:     make(map[string]Expr),
		dimSet:    make(map[string]bool),
	}
}

func (p *Program) checkName(kind, name string) error {
	switch {
	case name == "":
		return ir.Errorf(ir.CodeInvalidValue, "%s name must not be empty", kind)
	case strings.HasPrefix(name, AuxPrefix):
		return ir.Errorf(ir.CodeInvalidValue, "%s name %q: names starting with %q are reserved", kind, name, AuxPrefix)
	case p.dimSet[name] || p.names[name] != nil:
		return ir.Errorf(ir.CodeInvalidValue, "%s %q: name already declared", kind, name)
	}
	return nil
}

func (p *Program) checkShape(shape ir.Shape) error {
	for _, n := range shape.Names() {
		if !p.dimSet[n] {
			return ir.Errorf(ir.CodeUnknownIdentifier, "dimension %q is not declared", n)
		}
	}
	for _, d := range shape.Dims {
		if !d.IsSymbolic() && d.Size < 1 {
			return ir.Errorf(ir.CodeInvalidValue, "dimension size must be positive, got %d", d.Size)
		}
	}
	return nil
}

// DeclareDimension declares a named dimension.
func (p *Program) DeclareDimension(name string) error {
	if err := p.checkName("dimension", name); err != nil {
		return err
	}
	p.dims = append(p.dims, name)
	p.dimSet[name] = true
	return nil
}

// DeclareVariable declares a scalar or vector variable.
func (p *Program) DeclareVariable(name string, shape ir.Shape, sign ir.Sign) (*Variable, error) {
	if err := p.checkName("variable", name); err != nil {
		return nil, err
	}
	if shape.IsMatrix() {
		return nil, ir.Errorf(ir.CodeShapeMismatch, "variable %q: only scalar and vector variables are supported, got %s", name, shape)
	}
	if err := p.checkShape(shape); err != nil {
		return nil, err
	}
	v := NewVariable(name, shape, sign)
	p.vars = append(p.vars, v)
	p.names[name] = v
	return v, nil
}

// DeclareParameter declares a parameter of any shape.
func (p *Program) DeclareParameter(name string, shape ir.Shape, sign ir.Sign) (*Parameter, error) {
	if err := p.checkName("parameter", name); err != nil {
		return nil, err
	}
	if err := p.checkShape(shape); err != nil {
		return nil, err
	}
	v := NewParameter(name, shape, sign)
	p.params = append(p.params, v)
	p.names[name] = v
	return v, nil
}

// Lookup resolves a variable or parameter by name.
func (p *Program) Lookup(name string) (Expr, error) {
	if e, ok := p.names[name]; ok {
		return e, nil
	}
	if p.dimSet[name] {
		return nil, ir.Errorf(ir.CodeUnknownIdentifier, "%q is a dimension, not a value", name)
	}
	return nil, ir.Errorf(ir.CodeUnknownIdentifier, "unknown identifier %q", name)
}

// Dimensions returns the declared dimension names in order.
func (p *Program) Dimensions() []string { return p.dims }

// Variables returns the user variables in declaration order.
func (p *Program) Variables() []*Variable { return p.vars }

// Parameters returns the parameters in declaration order.
func (p *Program) Parameters() []*Parameter { return p.params }

// Aux returns the auxiliary variables in creation order.
func (p *Program) Aux() []*Variable { return p.aux }

// HasName reports whether name is taken by a dimension, variable,
// parameter or auxiliary variable.
func (p *Program) HasName(name string) bool {
	return p.dimSet[name] || p.names[name] != nil
}

// AddAux registers an auxiliary variable created by canonicalization.
func (p *Program) AddAux(v *Variable) {
	p.aux = append(p.aux, v)
	p.names[v.Name] = v
}

// SetObjective sets the objective. A find objective is always the
// constant 0; other objectives must be scalar.
func (p *Program) SetObjective(sense Sense, e Expr) error {
	if sense == Find || e == nil {
		p.Sense = Find
		p.Objective = NewNumber(0)
		return nil
	}
	if !e.Shape().IsScalar() {
		return ir.Errorf(ir.CodeShapeMismatch, "objective must be scalar, got %s", e.Shape()).WithConstraint("objective")
	}
	p.Sense = sense
	p.Objective = e
	return nil
}

// Constrain appends constraints.
func (p *Program) Constrain(cs ...Constraint) {
	p.Constraints = append(p.Constraints, cs...)
}

// Chain appends the two constraints of a op b op c.
func (p *Program) Chain(a Expr, op Relation, b, c Expr) error {
	first, err := NewInequality(a, op, b)
	if err != nil {
		return err
	}
	second, err := NewInequality(b, op, c)
	if err != nil {
		return err
	}
	p.Constrain(first, second)
	return nil
}

// IsCanonical reports whether the program has been canonicalized.
func (p *Program) IsCanonical() bool { return p.canonical }

// MarkCanonical records a successful canonicalization.
func (p *Program) MarkCanonical() { p.canonical = true }

// ConstraintLabel names constraint i in error messages.
func ConstraintLabel(i int) string {
	return "constraint[" + strconv.Itoa(i) + "]"
}

// String renders the program in a readable, stable form.
func (p *Program) String() string {
	var b strings.Builder
	if len(p.dims) > 0 {
		b.WriteString("dimensions " + strings.Join(p.dims, ", ") + "\n")
	}
	for _, v := range p.params {
		b.WriteString("parameter " + v.Name + " " + v.Shape().String() + signSuffix(v.Sign()) + "\n")
	}
	for _, v := range p.vars {
		b.WriteString("variable " + v.Name + " " + v.Shape().String() + signSuffix(v.Sign()) + "\n")
	}
	for _, v := range p.aux {
		b.WriteString("variable " + v.Name + " " + v.Shape().String() + "\n")
	}
	b.WriteString(p.Sense.String())
	if p.Sense != Find {
		b.WriteString(" " + p.Objective.String())
	}
	b.WriteString("\n")
	if len(p.Constraints) > 0 {
		b.WriteString("subject to\n")
		for _, c := range p.Constraints {
			b.WriteString("    " + c.String() + "\n")
		}
	}
	return b.String()
}

func signSuffix(s ir.Sign) string {
	if s == ir.Neither {
		return ""
	}
	return " " + s.String()
}

// Document returns a canonical-JSON-ready description of the program,
// used for content hashing.
func (p *Program) Document() map[string]any {
	decl := func(name string, shape ir.Shape, sign ir.Sign) any {
		dims := make([]string, len(shape.Dims))
		for i, d := range shape.Dims {
			dims[i] = d.String()
		}
		return map[string]any{"name": name, "shape": dims, "sign": sign.String()}
	}
	vars := make([]any, 0, len(p.vars))
	for _, v := range p.vars {
		vars = append(vars, decl(v.Name, v.Shape(), v.Sign()))
	}
	params := make([]any, 0, len(p.params))
	for _, v := range p.params {
		params = append(params, decl(v.Name, v.Shape(), v.Sign()))
	}
	cons := make([]string, len(p.Constraints))
	for i, c := range p.Constraints {
		cons[i] = c.String()
	}
	dims := append([]string{}, p.dims...)
	return map[string]any{
		"name":        p.Name,
		"sense":       p.Sense.String(),
		"objective":   p.Objective.String(),
		"constraints": cons,
		"dimensions":  dims,
		"variables":   vars,
		"parameters":  params,
		"format":      ir.FormatVersion,
	}
}
