package cone

import (
	"github.com/roach88/qcml/internal/ir"
	"github.com/roach88/qcml/internal/linalg"
)

// Backward slices a solver's primal vector x into named variable values.
// Scalars come back as 1×1 matrices and vectors as columns. Auxiliary
// variables are not returned. The dual vectors y and z may be nil; when
// given they must match the equality and inequality row counts.
func (p *Program) Backward(x, y, z []float64, dims map[string]int) (map[string]*linalg.Dense, error) {
	if err := p.checkDims(dims); err != nil {
		return nil, err
	}
	sizes, err := p.Sizes(dims)
	if err != nil {
		return nil, err
	}
	if len(x) != sizes.N {
		return nil, ir.Errorf(ir.CodeShapeMismatch, "x has %d entries, want %d", len(x), sizes.N)
	}
	if y != nil && len(y) != sizes.P {
		return nil, ir.Errorf(ir.CodeShapeMismatch, "y has %d entries, want %d", len(y), sizes.P)
	}
	if z != nil && len(z) != sizes.M {
		return nil, ir.Errorf(ir.CodeShapeMismatch, "z has %d entries, want %d", len(z), sizes.M)
	}

	vars, err := p.Layout(dims)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*linalg.Dense)
	for _, v := range vars {
		if v.Aux {
			continue
		}
		data := append([]float64(nil), x[v.Offset:v.Offset+v.Length]...)
		d, err := linalg.FromData(v.Length, 1, data)
		if err != nil {
			return nil, err
		}
		out[v.Name] = d
	}
	return out, nil
}
