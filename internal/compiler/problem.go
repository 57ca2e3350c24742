// Package compiler turns CUE problem documents into ast programs.
//
// A document declares one problem per field of the top-level "problem"
// struct:
//
//	problem: lp: {
//		dimensions: ["n"]
//		variables: x: {shape: ["n"]}
//		parameters: c: {shape: ["n"], sign: "positive"}
//		minimize: {sum: [{mul: [{transpose: "c"}, "x"]}]}
//		constraints: [{">=": ["x", 0]}]
//	}
//
// An expression is a number, an identifier, or a single-field struct
// {op: args} where op is an operator (add, sub, mul, div, neg, transpose,
// sum) or an atom name. Args is a list, or a single expression for unary
// operators.
package compiler

import (
	"errors"
	"fmt"
	"strconv"

	"cuelang.org/go/cue"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/qcml/internal/ast"
	"github.com/roach88/qcml/internal/atoms"
	"github.com/roach88/qcml/internal/ir"
)

// CompileProblem compiles one problem struct, e.g. the value at
// "problem.lp". The program name is the last path label.
func CompileProblem(v cue.Value) (*ast.Program, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if errs := ValidateDocument(v); len(errs) > 0 {
		e := errs[0]
		return nil, &CompileError{Field: e.Field, Message: e.Message, Code: e.Code, Pos: e.Pos}
	}

	name := "problem"
	if sels := v.Path().Selectors(); len(sels) > 0 {
		name = label(sels[len(sels)-1].String())
	}
	c := &problemCompiler{prog: ast.NewProgram(name)}
	if err := c.compile(v); err != nil {
		return nil, err
	}
	return c.prog, nil
}

// CompileAll compiles every problem under the "problem" field of root, in
// declaration order.
func CompileAll(root cue.Value) ([]*ast.Program, error) {
	problems := root.LookupPath(cue.ParsePath("problem"))
	if !problems.Exists() {
		return nil, &CompileError{Field: "problem", Message: "no problem struct found", Pos: root.Pos()}
	}
	iter, err := problems.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []*ast.Program
	for iter.Next() {
		p, err := CompileProblem(iter.Value())
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

type problemCompiler struct {
	prog *ast.Program
}

func (c *problemCompiler) compile(v cue.Value) error {
	if dims := v.LookupPath(cue.ParsePath("dimensions")); dims.Exists() {
		iter, err := dims.List()
		if err != nil {
			return formatCUEError(err)
		}
		for i := 0; iter.Next(); i++ {
			name, err := iter.Value().String()
			if err != nil {
				return formatCUEError(err)
			}
			if err := c.prog.DeclareDimension(norm.NFC.String(name)); err != nil {
				return wrap(fmt.Sprintf("dimensions[%d]", i), iter.Value(), err)
			}
		}
	}

	if err := c.declarations(v, "parameters"); err != nil {
		return err
	}
	if err := c.declarations(v, "variables"); err != nil {
		return err
	}

	for _, sense := range []ast.Sense{ast.Minimize, ast.Maximize} {
		ov := v.LookupPath(cue.ParsePath(sense.String()))
		if !ov.Exists() {
			continue
		}
		e, err := c.expr(sense.String(), ov)
		if err != nil {
			return err
		}
		if err := c.prog.SetObjective(sense, e); err != nil {
			return wrap(sense.String(), ov, err)
		}
	}

	if cons := v.LookupPath(cue.ParsePath("constraints")); cons.Exists() {
		iter, err := cons.List()
		if err != nil {
			return formatCUEError(err)
		}
		for i := 0; iter.Next(); i++ {
			if err := c.constraint(fmt.Sprintf("constraints[%d]", i), iter.Value()); err != nil {
				return err
			}
		}
	}
	return nil
}

// declarations compiles the "variables" or "parameters" struct.
func (c *problemCompiler) declarations(v cue.Value, kind string) error {
	dv := v.LookupPath(cue.ParsePath(kind))
	if !dv.Exists() {
		return nil
	}
	iter, err := dv.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		name := label(iter.Label())
		field := kind + "." + name
		shape, err := c.shape(field, iter.Value())
		if err != nil {
			return err
		}
		sign := ir.Neither
		if sv := iter.Value().LookupPath(cue.ParsePath("sign")); sv.Exists() {
			s, err := sv.String()
			if err != nil {
				return formatCUEError(err)
			}
			if sign, err = ir.ParseSign(s); err != nil {
				return wrap(field+".sign", sv, err)
			}
		}
		if kind == "variables" {
			_, err = c.prog.DeclareVariable(name, shape, sign)
		} else {
			_, err = c.prog.DeclareParameter(name, shape, sign)
		}
		if err != nil {
			return wrap(field, iter.Value(), err)
		}
	}
	return nil
}

func (c *problemCompiler) shape(field string, v cue.Value) (ir.Shape, error) {
	sv := v.LookupPath(cue.ParsePath("shape"))
	if !sv.Exists() {
		return ir.Scalar(), nil
	}
	iter, err := sv.List()
	if err != nil {
		return ir.Shape{}, formatCUEError(err)
	}
	var dims []ir.Dim
	for iter.Next() {
		d := iter.Value()
		if d.Kind() == cue.IntKind {
			n, err := d.Int64()
			if err != nil {
				return ir.Shape{}, formatCUEError(err)
			}
			dims = append(dims, ir.Lit(int(n)))
			continue
		}
		s, err := d.String()
		if err != nil {
			return ir.Shape{}, formatCUEError(err)
		}
		dims = append(dims, ir.Sym(norm.NFC.String(s)))
	}
	if len(dims) > 2 {
		return ir.Shape{}, &CompileError{Field: field + ".shape", Message: "at most two dimensions are supported", Code: ErrInvalidDeclaration, Pos: sv.Pos()}
	}
	return ir.NewShape(dims...), nil
}

func (c *problemCompiler) constraint(field string, v cue.Value) error {
	rel, args, err := single(v)
	if err != nil {
		return &CompileError{Field: field, Message: err.Error(), Code: ErrInvalidConstraint, Pos: v.Pos()}
	}
	exprs, err := c.args(field+"."+rel, args)
	if err != nil {
		return err
	}

	if rel == "==" {
		if len(exprs) != 2 {
			return &CompileError{Field: field, Message: "== takes two expressions", Code: ErrInvalidConstraint, Pos: v.Pos()}
		}
		eq, err := ast.NewEquality(exprs[0], exprs[1])
		if err != nil {
			return wrap(field, v, err)
		}
		c.prog.Constrain(eq)
		return nil
	}

	op, ok := ast.ParseRelation(rel)
	if !ok {
		return &CompileError{Field: field, Message: fmt.Sprintf("unknown relation %q", rel), Code: ErrInvalidConstraint, Pos: v.Pos()}
	}
	switch len(exprs) {
	case 2:
		ineq, err := ast.NewInequality(exprs[0], op, exprs[1])
		if err != nil {
			return wrap(field, v, err)
		}
		c.prog.Constrain(ineq)
	case 3:
		if err := c.prog.Chain(exprs[0], op, exprs[1], exprs[2]); err != nil {
			return wrap(field, v, err)
		}
	default:
		return &CompileError{Field: field, Message: rel + " takes two or three expressions", Code: ErrInvalidConstraint, Pos: v.Pos()}
	}
	return nil
}

func (c *problemCompiler) args(field string, v cue.Value) ([]ast.Expr, error) {
	if v.Kind() != cue.ListKind {
		e, err := c.expr(field, v)
		if err != nil {
			return nil, err
		}
		return []ast.Expr{e}, nil
	}
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []ast.Expr
	for i := 0; iter.Next(); i++ {
		e, err := c.expr(fmt.Sprintf("%s[%d]", field, i), iter.Value())
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (c *problemCompiler) expr(field string, v cue.Value) (ast.Expr, error) {
	switch v.Kind() {
	case cue.IntKind, cue.FloatKind, cue.NumberKind:
		f, err := v.Float64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ast.NewNumber(f), nil
	case cue.StringKind:
		name, _ := v.String()
		e, err := c.prog.Lookup(norm.NFC.String(name))
		if err != nil {
			return nil, wrap(field, v, err)
		}
		return e, nil
	case cue.StructKind:
	default:
		return nil, &CompileError{Field: field, Message: fmt.Sprintf("expected a number, identifier or {op: args}, got %v", v.Kind()), Code: ErrInvalidExpression, Pos: v.Pos()}
	}

	op, raw, err := single(v)
	if err != nil {
		return nil, &CompileError{Field: field, Message: err.Error(), Code: ErrInvalidExpression, Pos: v.Pos()}
	}
	field += "." + op
	args, err := c.args(field, raw)
	if err != nil {
		return nil, err
	}
	e, err := apply(op, args, raw)
	if err != nil {
		return nil, wrap(field, v, err)
	}
	return e, nil
}

// apply builds the node for op. Binary mul folds left over more than two
// arguments.
func apply(op string, args []ast.Expr, raw cue.Value) (ast.Expr, error) {
	switch op {
	case "add":
		return ast.NewAdd(args...)
	case "sub":
		if err := arity(op, args, 2, 2); err != nil {
			return nil, err
		}
		return ast.Sub(args[0], args[1])
	case "mul":
		if err := arity(op, args, 2, -1); err != nil {
			return nil, err
		}
		acc := args[0]
		for _, a := range args[1:] {
			var err error
			if acc, err = ast.NewMul(acc, a); err != nil {
				return nil, err
			}
		}
		return acc, nil
	case "div":
		if err := arity(op, args, 2, 2); err != nil {
			return nil, err
		}
		n, ok := args[1].(*ast.Number)
		if !ok {
			return nil, ir.Errorf(ir.CodeInvalidValue, "division is only by a numeric literal, got %s", args[1])
		}
		return ast.Div(args[0], n.Value)
	case "neg":
		if err := arity(op, args, 1, 1); err != nil {
			return nil, err
		}
		return ast.NewNegate(args[0]), nil
	case "transpose":
		if err := arity(op, args, 1, 1); err != nil {
			return nil, err
		}
		return ast.NewTranspose(args[0])
	case "sum":
		if err := arity(op, args, 1, 1); err != nil {
			return nil, err
		}
		return ast.NewSum(args[0])
	}
	a, err := atoms.Lookup(op)
	if err != nil {
		return nil, err
	}
	return ast.NewCall(a, args...)
}

func arity(op string, args []ast.Expr, lo, hi int) error {
	if len(args) < lo || (hi >= 0 && len(args) > hi) {
		return ir.Errorf(ir.CodeShapeMismatch, "%s takes %s arguments, got %d", op, arityRange(lo, hi), len(args))
	}
	return nil
}

func arityRange(lo, hi int) string {
	switch {
	case hi < 0:
		return "at least " + strconv.Itoa(lo)
	case lo == hi:
		return strconv.Itoa(lo)
	}
	return strconv.Itoa(lo) + " to " + strconv.Itoa(hi)
}

// single returns the only field of a single-field struct.
func single(v cue.Value) (string, cue.Value, error) {
	iter, err := v.Fields()
	if err != nil {
		return "", cue.Value{}, err
	}
	var (
		name  string
		value cue.Value
		n     int
	)
	for iter.Next() {
		name, value = label(iter.Label()), iter.Value()
		n++
	}
	if n != 1 {
		return "", cue.Value{}, fmt.Errorf("expected a struct with exactly one field, got %d", n)
	}
	return name, value, nil
}

// label unquotes a quoted struct label such as "<=" and normalizes it to
// NFC.
func label(s string) string {
	if u, err := strconv.Unquote(s); err == nil {
		s = u
	}
	return norm.NFC.String(s)
}

// Validation and compile error codes (E100-E199).
const (
	ErrUnknownField       = "E101" // unknown field in a problem
	ErrConflictingSense   = "E102" // both minimize and maximize
	ErrInvalidDeclaration = "E103" // malformed variable, parameter or dimension
	ErrInvalidConstraint  = "E104" // malformed constraint
	ErrInvalidExpression  = "E105" // malformed expression, unknown operator or atom
	ErrSemantic           = "E106" // shape, name or value error from program construction
)

// CompileError is a compilation error with its source position. Err holds
// the underlying *ir.Error when program construction failed.
type CompileError struct {
	Field   string
	Message string
	Code    string
	Pos     token.Pos
	Err     error
}

func (e *CompileError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = "[" + e.Code + "] " + msg
	}
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, msg)
	}
	return fmt.Sprintf("%s: %s", e.Field, msg)
}

func (e *CompileError) Unwrap() error { return e.Err }

// IsCompileError reports whether err is or wraps a *CompileError.
func IsCompileError(err error) bool {
	var ce *CompileError
	return errors.As(err, &ce)
}

func wrap(field string, v cue.Value, err error) error {
	return &CompileError{Field: field, Message: err.Error(), Code: ErrSemantic, Pos: v.Pos(), Err: err}
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
