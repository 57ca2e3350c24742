package cone

import (
	"math"
	"slices"

	"github.com/roach88/qcml/internal/ast"
	"github.com/roach88/qcml/internal/ir"
	"github.com/roach88/qcml/internal/linalg"
)

// Data is the numeric cone program handed to a solver:
//
//	minimize cᵀx  s.t.  Ax = b,  h - Gx ∈ R₊ᴸ × Q^{Q[0]} × …
//
// The objective value of the source problem is
// ObjectiveMultiplier·cᵀx + ObjectiveOffset.
type Data struct {
	Name string `json:"name"`
	N    int    `json:"n"`
	M    int    `json:"m"`
	P    int    `json:"p"`
	L    int    `json:"l"`
	Q    []int  `json:"q"`

	C []float64      `json:"c"`
	A *linalg.Sparse `json:"A"`
	B []float64      `json:"b"`
	G *linalg.Sparse `json:"G"`
	H []float64      `json:"h"`

	ObjectiveOffset     float64 `json:"objective_offset"`
	ObjectiveMultiplier float64 `json:"objective_multiplier"`

	Variables []Var `json:"variables"`
}

// Forward evaluates the program for concrete parameter values and
// dimension sizes.
func (p *Program) Forward(params map[string]*linalg.Dense, dims map[string]int) (*Data, error) {
	if err := p.checkDims(dims); err != nil {
		return nil, err
	}
	values, err := p.checkParams(params, dims)
	if err != nil {
		return nil, err
	}
	e := &env{dims: dims, params: values}

	vars, err := p.Layout(dims)
	if err != nil {
		return nil, err
	}
	layout := make(map[string]Var, len(vars))
	for _, v := range vars {
		layout[v.Name] = v
	}
	sizes, err := p.Sizes(dims)
	if err != nil {
		return nil, err
	}

	d := &Data{
		Name:                p.name,
		N:                   sizes.N,
		M:                   sizes.M,
		P:                   sizes.P,
		L:                   sizes.L,
		Q:                   sizes.Q,
		C:                   make([]float64, sizes.N),
		B:                   make([]float64, sizes.P),
		H:                   make([]float64, sizes.M),
		ObjectiveMultiplier: 1,
		Variables:           vars,
	}
	if d.A, err = linalg.NewSparse(sizes.P, sizes.N); err != nil {
		return nil, err
	}
	if d.G, err = linalg.NewSparse(sizes.M, sizes.N); err != nil {
		return nil, err
	}

	obj, err := p.objective.eval(e, layout)
	if err != nil {
		return nil, locate(err, "objective")
	}
	for _, b := range obj.blocks {
		for j := 0; j < b.d.Cols(); j++ {
			d.C[b.col+j] += b.d.At(0, j)
		}
	}
	d.ObjectiveOffset = obj.cnst[0]
	if p.sense == ast.Maximize {
		for i := range d.C {
			d.C[i] = 0 - d.C[i]
		}
		d.ObjectiveMultiplier = -1
	}

	row := 0
	for _, a := range p.eqs {
		v, err := a.f.eval(e, layout)
		if err != nil {
			return nil, locate(err, a.label)
		}
		if err := put(d.A, d.B, row, v); err != nil {
			return nil, locate(err, a.label)
		}
		row += v.rows
	}

	row = 0
	for _, a := range p.lin {
		v, err := a.f.eval(e, layout)
		if err != nil {
			return nil, locate(err, a.label)
		}
		if err := put(d.G, d.H, row, v); err != nil {
			return nil, locate(err, a.label)
		}
		row += v.rows
	}
	for _, c := range p.cones {
		n, err := c.put(d, e, layout, row)
		if err != nil {
			return nil, locate(err, c.label)
		}
		row += n
	}

	if row != d.M || d.M != d.L+total(d.Q) {
		return nil, ir.Errorf(ir.CodeInvalidState, "inequality rows %d do not match L + ΣQ = %d", row, d.L+total(d.Q))
	}
	return d, nil
}

// put writes rows coef·x + cnst of a block as G = coef, h = -cnst starting
// at row r0.
func put(g *linalg.Sparse, h []float64, r0 int, v *evaluated) error {
	for _, b := range v.blocks {
		if err := g.AppendBlock(r0, b.col, b.d); err != nil {
			return err
		}
	}
	for i, c := range v.cnst {
		h[r0+i] = 0 - c
	}
	return nil
}

// put writes the cone block at row r0 and returns the number of rows used.
// A cone member s = coef·x + cnst is h - Gx with G = -coef, h = cnst.
func (c soc) put(d *Data, e *env, layout map[string]Var, r0 int) (int, error) {
	t, err := c.t.eval(e, layout)
	if err != nil {
		return 0, err
	}
	args := make([]*evaluated, len(c.args))
	for i, a := range c.args {
		if args[i], err = a.eval(e, layout); err != nil {
			return 0, err
		}
	}

	if !c.elementwise {
		row := r0
		for _, v := range append([]*evaluated{t}, args...) {
			if err := put(d.G, d.H, row, v.negated()); err != nil {
				return 0, err
			}
			row += v.rows
		}
		return row - r0, nil
	}

	row := r0
	for i := 0; i < t.rows; i++ {
		if err := put(d.G, d.H, row, t.row(i).negated()); err != nil {
			return 0, err
		}
		row++
		for _, a := range args {
			if a.rows != t.rows {
				return 0, ir.Errorf(ir.CodeShapeMismatch, "cone argument has %d rows, want %d", a.rows, t.rows)
			}
			if err := put(d.G, d.H, row, a.row(i).negated()); err != nil {
				return 0, err
			}
			row++
		}
	}
	return row - r0, nil
}

func (p *Program) checkDims(dims map[string]int) error {
	for _, name := range p.dims {
		n, ok := dims[name]
		if !ok {
			return ir.Errorf(ir.CodeUnknownIdentifier, "dimension %q has no value", name)
		}
		if n < 1 {
			return ir.Errorf(ir.CodeInvalidValue, "dimension %q must be positive, got %d", name, n)
		}
	}
	for name := range dims {
		if !slices.Contains(p.dims, name) {
			return ir.Errorf(ir.CodeUnknownIdentifier, "dimension %q is not declared", name)
		}
	}
	return nil
}

// checkParams verifies presence, shape, finiteness and declared sign of
// every parameter value. Vector values may be given as a row or a column;
// the returned map holds them as columns.
func (p *Program) checkParams(params map[string]*linalg.Dense, dims map[string]int) (map[string]*linalg.Dense, error) {
	out := make(map[string]*linalg.Dense, len(p.params))
	for _, par := range p.params {
		v, ok := params[par.Name]
		if !ok || v == nil {
			return nil, ir.Errorf(ir.CodeUnknownIdentifier, "parameter %q has no value", par.Name)
		}
		rows, cols, err := par.Shape().Size(dims)
		if err != nil {
			return nil, err
		}
		switch {
		case v.Rows() == rows && v.Cols() == cols:
		case par.Shape().IsVector() && v.Len() == rows && (v.Rows() == 1 || v.Cols() == 1):
			if v, err = v.Reshape(rows, 1); err != nil {
				return nil, err
			}
		default:
			return nil, ir.Errorf(ir.CodeShapeMismatch, "parameter %q is %dx%d, want %dx%d", par.Name, v.Rows(), v.Cols(), rows, cols)
		}
		if err := v.CheckFinite(); err != nil {
			return nil, ir.Errorf(ir.CodeInvalidValue, "parameter %q: %v", par.Name, err)
		}
		for _, x := range v.Data() {
			if (par.Sign() == ir.Positive && x < 0) || (par.Sign() == ir.Negative && x > 0) {
				return nil, ir.Errorf(ir.CodeInvalidValue, "parameter %q is declared %s but has entry %g", par.Name, par.Sign(), x)
			}
		}
		out[par.Name] = v
	}
	for name := range params {
		if _, ok := out[name]; !ok {
			return nil, ir.Errorf(ir.CodeUnknownIdentifier, "parameter %q is not declared", name)
		}
	}
	return out, nil
}

func total(xs []int) int {
	n := 0
	for _, x := range xs {
		n += x
	}
	return n
}

// Document returns d as a canonical-JSON-ready map, used for content
// hashing and golden snapshots.
func (d *Data) Document() map[string]any {
	vars := make([]any, len(d.Variables))
	for i, v := range d.Variables {
		vars[i] = map[string]any{
			"name":   v.Name,
			"offset": v.Offset,
			"length": v.Length,
			"aux":    v.Aux,
		}
	}
	return map[string]any{
		"name":                 d.Name,
		"n":                    d.N,
		"m":                    d.M,
		"p":                    d.P,
		"l":                    d.L,
		"q":                    d.Q,
		"c":                    d.C,
		"A":                    cscDocument(d.A.CSC()),
		"b":                    d.B,
		"G":                    cscDocument(d.G.CSC()),
		"h":                    d.H,
		"objective_offset":     d.ObjectiveOffset,
		"objective_multiplier": d.ObjectiveMultiplier,
		"variables":            vars,
	}
}

func cscDocument(c linalg.CSC) map[string]any {
	return map[string]any{
		"rows":   c.Rows,
		"cols":   c.Cols,
		"colptr": c.ColPtr,
		"rowidx": c.RowIdx,
		"values": c.Values,
	}
}

// ObjectiveValue maps the solver's primal cost back to the source
// objective.
func (d *Data) ObjectiveValue(pcost float64) float64 {
	return d.ObjectiveMultiplier*pcost + d.ObjectiveOffset
}

// CheckFeasible verifies that x satisfies Ax = b and h - Gx ∈ K within tol.
func (d *Data) CheckFeasible(x []float64, tol float64) error {
	if len(x) != d.N {
		return ir.Errorf(ir.CodeShapeMismatch, "x has %d entries, want %d", len(x), d.N)
	}
	ax, err := d.A.MulVec(x)
	if err != nil {
		return err
	}
	for i := range ax {
		if r := math.Abs(ax[i] - d.B[i]); r > tol {
			return ir.Errorf(ir.CodeInvalidValue, "equality row %d violated by %g", i, r)
		}
	}
	gx, err := d.G.MulVec(x)
	if err != nil {
		return err
	}
	s := make([]float64, d.M)
	for i := range s {
		s[i] = d.H[i] - gx[i]
	}
	for i := 0; i < d.L; i++ {
		if s[i] < -tol {
			return ir.Errorf(ir.CodeInvalidValue, "linear row %d violated by %g", i, -s[i])
		}
	}
	row := d.L
	for k, q := range d.Q {
		var norm float64
		for _, v := range s[row+1 : row+q] {
			norm += v * v
		}
		if gap := math.Sqrt(norm) - s[row]; gap > tol {
			return ir.Errorf(ir.CodeInvalidValue, "cone %d violated by %g", k, gap)
		}
		row += q
	}
	return nil
}
