package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/token"

	"github.com/roach88/qcml/internal/atoms"
	"github.com/roach88/qcml/internal/ir"
)

// ValidationError is one structural problem in a problem document.
type ValidationError struct {
	Field   string    `json:"field"`
	Message string    `json:"message"`
	Code    string    `json:"code"`
	Line    int       `json:"line,omitempty"`
	Pos     token.Pos `json:"-"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

var problemFields = map[string]bool{
	"dimensions":  true,
	"variables":   true,
	"parameters":  true,
	"minimize":    true,
	"maximize":    true,
	"constraints": true,
}

var operators = map[string]bool{
	"add": true, "sub": true, "mul": true, "div": true,
	"neg": true, "transpose": true, "sum": true,
}

var relations = map[string]bool{"==": true, "<=": true, ">=": true}

// ValidateDocument checks the structure of one problem struct. It returns
// all errors found rather than stopping at the first.
func ValidateDocument(v cue.Value) []ValidationError {
	var errs []ValidationError
	add := func(field, code string, at cue.Value, format string, args ...any) {
		errs = append(errs, ValidationError{
			Field:   field,
			Message: fmt.Sprintf(format, args...),
			Code:    code,
			Line:    at.Pos().Line(),
			Pos:     at.Pos(),
		})
	}

	iter, err := v.Fields()
	if err != nil {
		add("problem", ErrInvalidDeclaration, v, "problem must be a struct: %v", err)
		return errs
	}
	for iter.Next() {
		if name := label(iter.Label()); !problemFields[name] {
			add(name, ErrUnknownField, iter.Value(), "unknown field %q", name)
		}
	}

	if v.LookupPath(cue.ParsePath("minimize")).Exists() && v.LookupPath(cue.ParsePath("maximize")).Exists() {
		add("maximize", ErrConflictingSense, v.LookupPath(cue.ParsePath("maximize")), "a problem has at most one of minimize and maximize")
	}

	if dims := v.LookupPath(cue.ParsePath("dimensions")); dims.Exists() {
		list, err := dims.List()
		if err != nil {
			add("dimensions", ErrInvalidDeclaration, dims, "dimensions must be a list of names")
		} else {
			for i := 0; list.Next(); i++ {
				if _, err := list.Value().String(); err != nil {
					add(fmt.Sprintf("dimensions[%d]", i), ErrInvalidDeclaration, list.Value(), "dimension must be a name")
				}
			}
		}
	}

	for _, kind := range []string{"variables", "parameters"} {
		dv := v.LookupPath(cue.ParsePath(kind))
		if !dv.Exists() {
			continue
		}
		decls, err := dv.Fields()
		if err != nil {
			add(kind, ErrInvalidDeclaration, dv, "%s must be a struct", kind)
			continue
		}
		for decls.Next() {
			validateDeclaration(kind+"."+label(decls.Label()), decls.Value(), add)
		}
	}

	for _, sense := range []string{"minimize", "maximize"} {
		if ov := v.LookupPath(cue.ParsePath(sense)); ov.Exists() {
			validateExpr(sense, ov, add)
		}
	}

	if cons := v.LookupPath(cue.ParsePath("constraints")); cons.Exists() {
		list, err := cons.List()
		if err != nil {
			add("constraints", ErrInvalidConstraint, cons, "constraints must be a list")
			return errs
		}
		for i := 0; list.Next(); i++ {
			validateConstraint(fmt.Sprintf("constraints[%d]", i), list.Value(), add)
		}
	}
	return errs
}

type addFunc func(field, code string, at cue.Value, format string, args ...any)

func validateDeclaration(field string, v cue.Value, add addFunc) {
	iter, err := v.Fields()
	if err != nil {
		add(field, ErrInvalidDeclaration, v, "declaration must be a struct with optional shape and sign")
		return
	}
	for iter.Next() {
		switch name := label(iter.Label()); name {
		case "shape":
			list, err := iter.Value().List()
			if err != nil {
				add(field+".shape", ErrInvalidDeclaration, iter.Value(), "shape must be a list of dimension names or sizes")
				continue
			}
			for i := 0; list.Next(); i++ {
				d := list.Value()
				if n, err := d.Int64(); err == nil {
					if n < 1 {
						add(fmt.Sprintf("%s.shape[%d]", field, i), ErrInvalidDeclaration, d, "size must be positive, got %d", n)
					}
					continue
				}
				if _, err := d.String(); err != nil {
					add(fmt.Sprintf("%s.shape[%d]", field, i), ErrInvalidDeclaration, d, "dimension must be a name or a positive size")
				}
			}
		case "sign":
			s, err := iter.Value().String()
			if err == nil {
				_, err = ir.ParseSign(s)
			}
			if err != nil {
				add(field+".sign", ErrInvalidDeclaration, iter.Value(), "sign must be positive, nonnegative, negative or nonpositive")
			}
		default:
			add(field+"."+name, ErrUnknownField, iter.Value(), "unknown field %q", name)
		}
	}
}

func validateConstraint(field string, v cue.Value, add addFunc) {
	rel, args, err := single(v)
	if err != nil {
		add(field, ErrInvalidConstraint, v, "constraint must be {relation: [lhs, rhs]}")
		return
	}
	if !relations[rel] {
		add(field, ErrInvalidConstraint, v, "unknown relation %q, want ==, <= or >=", rel)
		return
	}
	list, err := args.List()
	if err != nil {
		add(field+"."+rel, ErrInvalidConstraint, args, "%s takes a list of expressions", rel)
		return
	}
	n := 0
	for ; list.Next(); n++ {
		validateExpr(fmt.Sprintf("%s.%s[%d]", field, rel, n), list.Value(), add)
	}
	if n < 2 || n > 3 || (rel == "==" && n != 2) {
		add(field+"."+rel, ErrInvalidConstraint, args, "%s takes two expressions (three for a chained inequality), got %d", rel, n)
	}
}

func validateExpr(field string, v cue.Value, add addFunc) {
	switch v.Kind() {
	case cue.IntKind, cue.FloatKind, cue.NumberKind, cue.StringKind:
		return
	case cue.ListKind:
		add(field, ErrInvalidExpression, v, "a list is not an expression")
		return
	case cue.StructKind:
	default:
		add(field, ErrInvalidExpression, v, "expected a number, identifier or {op: args}")
		return
	}
	op, args, err := single(v)
	if err != nil {
		add(field, ErrInvalidExpression, v, "operator struct must have exactly one field")
		return
	}
	if !operators[op] {
		if _, err := atoms.Lookup(op); err != nil {
			add(field, ErrInvalidExpression, v, "unknown operator or atom %q", op)
			return
		}
	}
	field += "." + op
	if args.Kind() != cue.ListKind {
		validateExpr(field, args, add)
		return
	}
	list, _ := args.List()
	for i := 0; list.Next(); i++ {
		validateExpr(fmt.Sprintf("%s[%d]", field, i), list.Value(), add)
	}
}
