package atoms

import (
	"math"
	"slices"

	"github.com/roach88/qcml/internal/ir"
	"github.com/roach88/qcml/internal/linalg"
)

// entrywise applies f across the arguments entry by entry. Single-entry
// arguments broadcast; the result takes the shape of the longest argument.
func entrywise(name string, args []*linalg.Dense, f func(vals []float64) (float64, bool)) (*linalg.Dense, error) {
	widest := args[0]
	for _, a := range args[1:] {
		if a.Len() > widest.Len() {
			widest = a
		}
	}
	out := widest.Clone()
	data := out.Data()
	vals := make([]float64, len(args))
	for i := range data {
		for k, a := range args {
			switch a.Len() {
			case 1:
				vals[k] = a.Data()[0]
			case len(data):
				vals[k] = a.Data()[i]
			default:
				return nil, ir.Errorf(ir.CodeShapeMismatch, "%s: argument %d has %d entries, want 1 or %d",
					name, k, a.Len(), len(data)).WithAtom(name)
			}
		}
		v, ok := f(vals)
		if !ok {
			return nil, ir.Errorf(ir.CodeInvalidValue, "%s is undefined at %v", name, vals).WithAtom(name)
		}
		data[i] = v
	}
	return out, nil
}

// entries stacks the entries of every argument.
func entries(args []*linalg.Dense) []float64 {
	var out []float64
	for _, a := range args {
		out = append(out, a.Data()...)
	}
	return out
}

func (a abs) Eval(args []*linalg.Dense) (*linalg.Dense, error) {
	return entrywise(a.Name(), args, func(v []float64) (float64, bool) { return math.Abs(v[0]), true })
}

func (a pos) Eval(args []*linalg.Dense) (*linalg.Dense, error) {
	return entrywise(a.Name(), args, func(v []float64) (float64, bool) { return math.Max(v[0], 0), true })
}

func (a neg) Eval(args []*linalg.Dense) (*linalg.Dense, error) {
	return entrywise(a.Name(), args, func(v []float64) (float64, bool) { return math.Max(-v[0], 0), true })
}

func (a maxAtom) Eval(args []*linalg.Dense) (*linalg.Dense, error) {
	return entrywise(a.Name(), args, func(v []float64) (float64, bool) { return slices.Max(v), true })
}

func (a minAtom) Eval(args []*linalg.Dense) (*linalg.Dense, error) {
	return entrywise(a.Name(), args, func(v []float64) (float64, bool) { return slices.Min(v), true })
}

func (a square) Eval(args []*linalg.Dense) (*linalg.Dense, error) {
	return entrywise(a.Name(), args, func(v []float64) (float64, bool) { return v[0] * v[0], true })
}

func (a invPos) Eval(args []*linalg.Dense) (*linalg.Dense, error) {
	return entrywise(a.Name(), args, func(v []float64) (float64, bool) { return 1 / v[0], v[0] > 0 })
}

func (a sqrtAtom) Eval(args []*linalg.Dense) (*linalg.Dense, error) {
	return entrywise(a.Name(), args, func(v []float64) (float64, bool) { return math.Sqrt(v[0]), v[0] >= 0 })
}

func (a geoMean) Eval(args []*linalg.Dense) (*linalg.Dense, error) {
	return entrywise(a.Name(), args, func(v []float64) (float64, bool) {
		return math.Sqrt(v[0] * v[1]), v[0] >= 0 && v[1] >= 0
	})
}

func (norm) Eval(args []*linalg.Dense) (*linalg.Dense, error) {
	var ss float64
	for _, v := range entries(args) {
		ss += v * v
	}
	return linalg.Scalar(math.Sqrt(ss)), nil
}

func (normInf) Eval(args []*linalg.Dense) (*linalg.Dense, error) {
	var m float64
	for _, v := range entries(args) {
		m = math.Max(m, math.Abs(v))
	}
	return linalg.Scalar(m), nil
}

func (norm1) Eval(args []*linalg.Dense) (*linalg.Dense, error) {
	var s float64
	for _, v := range entries(args) {
		s += math.Abs(v)
	}
	return linalg.Scalar(s), nil
}

func (sumSquares) Eval(args []*linalg.Dense) (*linalg.Dense, error) {
	var ss float64
	for _, v := range entries(args) {
		ss += v * v
	}
	return linalg.Scalar(ss), nil
}

func (a quadOverLin) Eval(args []*linalg.Dense) (*linalg.Dense, error) {
	y := args[1].Data()[0]
	if y <= 0 {
		return nil, ir.Errorf(ir.CodeInvalidValue, "quad_over_lin needs a positive denominator, got %g", y).WithAtom(a.Name())
	}
	var ss float64
	for _, v := range args[0].Data() {
		ss += v * v
	}
	return linalg.Scalar(ss / y), nil
}
