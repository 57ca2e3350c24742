// Package linalg holds the small numeric containers used for cone program
// data: a row-major dense matrix for evaluated coefficients and parameter
// values, and a sparse triplet matrix with compressed-column export for the
// solver-facing A and G blocks.
package linalg

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Dense is a row-major matrix. Zero-sized matrices are allowed: an empty
// program has empty blocks.
type Dense struct {
	r, c int
	data []float64 // len == r*c, offset i*c + j
}

// NewDense returns an r×c zero matrix.
func NewDense(r, c int) (*Dense, error) {
	if r < 0 || c < 0 {
		return nil, fmt.Errorf("NewDense(%d,%d): %w", r, c, ErrBadShape)
	}
	return &Dense{r: r, c: c, data: make([]float64, r*c)}, nil
}

// FromData wraps data (row-major, not copied) as an r×c matrix.
func FromData(r, c int, data []float64) (*Dense, error) {
	if r < 0 || c < 0 || len(data) != r*c {
		return nil, fmt.Errorf("FromData(%d,%d) with %d values: %w", r, c, len(data), ErrBadShape)
	}
	return &Dense{r: r, c: c, data: data}, nil
}

// Scalar returns a 1×1 matrix.
func Scalar(v float64) *Dense { return &Dense{r: 1, c: 1, data: []float64{v}} }

// Column returns the column vector with entries v (copied).
func Column(v []float64) *Dense {
	return &Dense{r: len(v), c: 1, data: append([]float64(nil), v...)}
}

// Identity returns the n×n identity.
func Identity(n int) *Dense {
	m := &Dense{r: n, c: n, data: make([]float64, n*n)}
	for i := 0; i < n; i++ {
		m.data[i*n+i] = 1
	}
	return m
}

// Ones returns an r×c matrix of ones.
func Ones(r, c int) *Dense {
	m := &Dense{r: r, c: c, data: make([]float64, r*c)}
	for i := range m.data {
		m.data[i] = 1
	}
	return m
}

// Rows returns the row count.
func (m *Dense) Rows() int { return m.r }

// Cols returns the column count.
func (m *Dense) Cols() int { return m.c }

// Len returns the number of entries.
func (m *Dense) Len() int { return len(m.data) }

// IsScalar reports whether m is 1×1.
func (m *Dense) IsScalar() bool { return m.r == 1 && m.c == 1 }

// At returns entry (i, j). Like slice indexing it panics when out of range.
func (m *Dense) At(i, j int) float64 {
	if i < 0 || i >= m.r || j < 0 || j >= m.c {
		panic(fmt.Errorf("Dense.At(%d,%d) on %dx%d: %w", i, j, m.r, m.c, ErrOutOfRange))
	}
	return m.data[i*m.c+j]
}

// Set stores v at (i, j).
func (m *Dense) Set(i, j int, v float64) error {
	if i < 0 || i >= m.r || j < 0 || j >= m.c {
		return fmt.Errorf("Dense.Set(%d,%d) on %dx%d: %w", i, j, m.r, m.c, ErrOutOfRange)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("Dense.Set(%d,%d): %w", i, j, ErrNaNInf)
	}
	m.data[i*m.c+j] = v
	return nil
}

// Data returns the row-major backing slice. Mutating it mutates m.
func (m *Dense) Data() []float64 { return m.data }

// Clone returns a deep copy.
func (m *Dense) Clone() *Dense {
	return &Dense{r: m.r, c: m.c, data: append([]float64(nil), m.data...)}
}

// Reshape returns a copy of m with the same entries in row-major order
// and shape r×c.
func (m *Dense) Reshape(r, c int) (*Dense, error) {
	if r*c != len(m.data) {
		return nil, fmt.Errorf("Reshape %dx%d to %dx%d: %w", m.r, m.c, r, c, ErrBadShape)
	}
	return &Dense{r: r, c: c, data: append([]float64(nil), m.data...)}, nil
}

// T returns the transpose.
func (m *Dense) T() *Dense {
	out := &Dense{r: m.c, c: m.r, data: make([]float64, len(m.data))}
	for i := 0; i < m.r; i++ {
		for j := 0; j < m.c; j++ {
			out.data[j*m.r+i] = m.data[i*m.c+j]
		}
	}
	return out
}

// Scale returns s·m.
func (m *Dense) Scale(s float64) *Dense {
	out := m.Clone()
	for i := range out.data {
		out.data[i] *= s
	}
	return out
}

// Add returns m + o. A 1×1 operand is broadcast over the other.
func (m *Dense) Add(o *Dense) (*Dense, error) {
	switch {
	case m.r == o.r && m.c == o.c:
		out := m.Clone()
		for i, v := range o.data {
			out.data[i] += v
		}
		return out, nil
	case o.IsScalar():
		out := m.Clone()
		for i := range out.data {
			out.data[i] += o.data[0]
		}
		return out, nil
	case m.IsScalar():
		return o.Add(m)
	}
	return nil, fmt.Errorf("Add %dx%d + %dx%d: %w", m.r, m.c, o.r, o.c, ErrDimensionMismatch)
}

// Mul returns the matrix product m·o. A 1×1 operand scales the other.
func (m *Dense) Mul(o *Dense) (*Dense, error) {
	switch {
	case m.IsScalar():
		return o.Scale(m.data[0]), nil
	case o.IsScalar():
		return m.Scale(o.data[0]), nil
	}
	if m.c != o.r {
		return nil, fmt.Errorf("Mul %dx%d · %dx%d: %w", m.r, m.c, o.r, o.c, ErrDimensionMismatch)
	}
	out := &Dense{r: m.r, c: o.c, data: make([]float64, m.r*o.c)}
	for i := 0; i < m.r; i++ {
		for k := 0; k < m.c; k++ {
			a := m.data[i*m.c+k]
			if a == 0 {
				continue
			}
			for j := 0; j < o.c; j++ {
				out.data[i*o.c+j] += a * o.data[k*o.c+j]
			}
		}
	}
	return out, nil
}

// Sum returns the sum of all entries.
func (m *Dense) Sum() float64 {
	var s float64
	for _, v := range m.data {
		s += v
	}
	return s
}

// ApproxEqual reports whether m and o have the same shape and entries
// within tol.
func (m *Dense) ApproxEqual(o *Dense, tol float64) bool {
	if m.r != o.r || m.c != o.c {
		return false
	}
	for i, v := range m.data {
		if math.Abs(v-o.data[i]) > tol {
			return false
		}
	}
	return true
}

// CheckFinite returns ErrNaNInf if any entry is NaN or ±Inf.
func (m *Dense) CheckFinite() error {
	for i, v := range m.data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("entry (%d,%d): %w", i/max(m.c, 1), i%max(m.c, 1), ErrNaNInf)
		}
	}
	return nil
}

func (m *Dense) String() string {
	var b strings.Builder
	for i := 0; i < m.r; i++ {
		b.WriteByte('[')
		for j := 0; j < m.c; j++ {
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteString(strconv.FormatFloat(m.data[i*m.c+j], 'g', -1, 64))
		}
		b.WriteString("]\n")
	}
	return b.String()
}
