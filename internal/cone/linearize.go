package cone

import (
	"strings"

	"github.com/roach88/qcml/internal/ast"
	"github.com/roach88/qcml/internal/ir"
	"github.com/roach88/qcml/internal/linalg"
)

type term struct {
	v *ast.Variable
	c coef // length × len(v)
}

// form is an affine expression flattened to rows: Σ coefᵢ·xᵢ + cnst.
type form struct {
	length ir.Dim
	scalar bool // broadcastable against any length
	terms  []term
	cnst   coef // length × 1, nil when zero
}

func (f *form) clone() *form {
	out := *f
	out.terms = append([]term(nil), f.terms...)
	return &out
}

// premul left-multiplies every coefficient by c.
func (f *form) premul(c coef, length ir.Dim, scalar bool) *form {
	out := &form{length: length, scalar: scalar}
	for _, t := range f.terms {
		out.terms = append(out.terms, term{t.v, prod(c, t.c)})
	}
	if f.cnst != nil {
		out.cnst = prod(c, f.cnst)
	}
	return out
}

func (f *form) negate() *form {
	out := f.clone()
	for i, t := range out.terms {
		out.terms[i].c = neg(t.c)
	}
	if out.cnst != nil {
		out.cnst = neg(out.cnst)
	}
	return out
}

// broadcast lifts a scalar form to length n.
func (f *form) broadcast(n ir.Dim) *form {
	if !f.scalar || n.IsOne() {
		return f
	}
	return f.premul(onesCoef{n, ir.Lit(1)}, n, false)
}

// addForms sums forms, broadcasting scalar ones. Terms keep the order in
// which their variables first appear.
func addForms(fs ...*form) *form {
	out := &form{length: ir.Lit(1), scalar: true}
	for _, f := range fs {
		if !f.scalar {
			out.length, out.scalar = f.length, false
			break
		}
	}
	index := make(map[string]int)
	for _, f := range fs {
		f = f.broadcast(out.length)
		for _, t := range f.terms {
			if i, ok := index[t.v.Name]; ok {
				out.terms[i].c = sum(out.terms[i].c, t.c)
				continue
			}
			index[t.v.Name] = len(out.terms)
			out.terms = append(out.terms, t)
		}
		out.cnst = sum(out.cnst, f.cnst)
	}
	return out
}

func (f *form) String() string {
	var parts []string
	for _, t := range f.terms {
		parts = append(parts, describe(t.c)+"·"+t.v.Name)
	}
	if f.cnst != nil {
		parts = append(parts, describe(f.cnst))
	}
	if len(parts) == 0 {
		return "0"
	}
	return strings.Join(parts, " + ")
}

// linearize flattens an affine expression into a form. Only scalars,
// vectors and row vectors can be flattened.
func linearize(e ast.Expr) (*form, error) {
	length, ok := e.Shape().Length()
	if !ok {
		return nil, ir.Errorf(ir.CodeShapeMismatch, "%s has shape %s; only scalar and vector expressions reach the cone program", e, e.Shape())
	}
	f := &form{length: length, scalar: e.Shape().IsScalar()}
	if e.Curvature().IsConstant() {
		f.cnst = exprCoef{expr: e, column: true}
		return f, nil
	}

	switch e := e.(type) {
	case *ast.Variable:
		f.terms = []term{{e, eyeCoef{length}}}
		return f, nil
	case *ast.Add:
		fs := make([]*form, len(e.Terms))
		for i, t := range e.Terms {
			tf, err := linearize(t)
			if err != nil {
				return nil, err
			}
			fs[i] = tf
		}
		return addForms(fs...), nil
	case *ast.Negate:
		x, err := linearize(e.X)
		if err != nil {
			return nil, err
		}
		return x.negate(), nil
	case *ast.Transpose:
		// Vectors and row vectors share the same flat order.
		x, err := linearize(e.X)
		if err != nil {
			return nil, err
		}
		x = x.clone()
		x.length, x.scalar = length, f.scalar
		return x, nil
	case *ast.Sum:
		x, err := linearize(e.X)
		if err != nil {
			return nil, err
		}
		return x.premul(onesCoef{ir.Lit(1), x.length}, ir.Lit(1), true), nil
	case *ast.Mul:
		return linearizeMul(e, length, f.scalar)
	case *ast.Call:
		return nil, ir.Errorf(ir.CodeInvalidState, "atom call %s was not canonicalized", e).WithAtom(e.Atom.Name())
	}
	return nil, ir.Errorf(ir.CodeInvalidValue, "cannot linearize %s", e)
}

func linearizeMul(m *ast.Mul, length ir.Dim, scalar bool) (*form, error) {
	l, r := m.Left, m.Right
	if l.Curvature().IsConstant() {
		x, err := linearize(r)
		if err != nil {
			return nil, err
		}
		switch {
		case l.Shape().IsScalar():
			return x.premul(exprCoef{expr: l}, length, scalar), nil
		case r.Shape().IsScalar():
			// C·s with C a vector: one column per entry of C.
			return x.premul(exprCoef{expr: l, column: true}, length, scalar), nil
		}
		return x.premul(exprCoef{expr: l}, length, scalar), nil
	}
	if !r.Curvature().IsConstant() {
		return nil, ir.Errorf(ir.CodeDCPViolation, "product of two non-constant expressions: %s", m)
	}
	x, err := linearize(l)
	if err != nil {
		return nil, err
	}
	switch {
	case r.Shape().IsScalar():
		return x.premul(exprCoef{expr: r}, length, scalar), nil
	case l.Shape().IsScalar():
		return x.premul(exprCoef{expr: r, column: true}, length, scalar), nil
	}
	// Row vector times matrix: (xᵀC)ᵀ = Cᵀx.
	return x.premul(transCoef{exprCoef{expr: r}}, length, scalar), nil
}

// placed is an evaluated coefficient block positioned at a column offset.
type placed struct {
	col int
	d   *linalg.Dense
}

// evaluated is a form turned into numbers.
type evaluated struct {
	rows   int
	blocks []placed
	cnst   []float64
}

func (f *form) eval(e *env, layout map[string]Var) (*evaluated, error) {
	rows, err := e.size(f.length)
	if err != nil {
		return nil, err
	}
	out := &evaluated{rows: rows, cnst: make([]float64, rows)}
	for _, t := range f.terms {
		slot, ok := layout[t.v.Name]
		if !ok {
			return nil, ir.Errorf(ir.CodeUnknownIdentifier, "variable %q is not part of the program", t.v.Name)
		}
		d, err := t.c.eval(e)
		if err != nil {
			return nil, err
		}
		if d.Rows() != rows || d.Cols() != slot.Length {
			return nil, ir.Errorf(ir.CodeShapeMismatch, "coefficient of %s is %dx%d, want %dx%d",
				t.v.Name, d.Rows(), d.Cols(), rows, slot.Length)
		}
		out.blocks = append(out.blocks, placed{col: slot.Offset, d: d})
	}
	if f.cnst != nil {
		d, err := f.cnst.eval(e)
		if err != nil {
			return nil, err
		}
		switch {
		case d.Len() == rows:
			copy(out.cnst, d.Data())
		case d.Len() == 1:
			for i := range out.cnst {
				out.cnst[i] = d.At(0, 0)
			}
		default:
			return nil, ir.Errorf(ir.CodeShapeMismatch, "constant has %d entries, want %d", d.Len(), rows)
		}
	}
	return out, nil
}

// negated returns -f as numbers.
func (v *evaluated) negated() *evaluated {
	out := &evaluated{rows: v.rows, cnst: make([]float64, len(v.cnst))}
	for i, c := range v.cnst {
		out.cnst[i] = -c
	}
	for _, b := range v.blocks {
		out.blocks = append(out.blocks, placed{col: b.col, d: b.d.Scale(-1)})
	}
	return out
}

// row returns row i of the evaluated form as a 1-row form.
func (v *evaluated) row(i int) *evaluated {
	out := &evaluated{rows: 1, cnst: []float64{v.cnst[i]}}
	for _, b := range v.blocks {
		data := b.d.Data()[i*b.d.Cols() : (i+1)*b.d.Cols()]
		d, _ := linalg.FromData(1, b.d.Cols(), data)
		out.blocks = append(out.blocks, placed{col: b.col, d: d})
	}
	return out
}
