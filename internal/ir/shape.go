package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// Dim is a single dimension: either a literal size or a named dimension
// resolved when the cone program is evaluated.
type Dim struct {
	Name string `json:"name,omitempty"` // set for symbolic dimensions
	Size int    `json:"size,omitempty"` // literal size when Name is empty
}

// Lit returns a literal dimension.
func Lit(n int) Dim { return Dim{Size: n} }

// Sym returns a named dimension.
func Sym(name string) Dim { return Dim{Name: name} }

// IsSymbolic reports whether the dimension is named.
func (d Dim) IsSymbolic() bool { return d.Name != "" }

// IsOne reports whether the dimension is the literal 1.
func (d Dim) IsOne() bool { return d.Name == "" && d.Size == 1 }

// Equal reports whether two dimensions are known to be equal at compile time.
// A literal and a named dimension are never equal, even if the name later
// resolves to the same size.
func (d Dim) Equal(o Dim) bool {
	if d.IsSymbolic() || o.IsSymbolic() {
		return d.Name == o.Name
	}
	return d.Size == o.Size
}

// Resolve returns the concrete size of the dimension.
func (d Dim) Resolve(dims map[string]int) (int, error) {
	if !d.IsSymbolic() {
		return d.Size, nil
	}
	n, ok := dims[d.Name]
	if !ok {
		return 0, Errorf(CodeUnknownIdentifier, "dimension %q has no value", d.Name)
	}
	if n < 0 {
		return 0, Errorf(CodeInvalidValue, "dimension %q must be non-negative, got %d", d.Name, n)
	}
	return n, nil
}

func (d Dim) String() string {
	if d.IsSymbolic() {
		return d.Name
	}
	return strconv.Itoa(d.Size)
}

// Shape is the shape of an expression: no dims for a scalar, one dim for a
// column vector, two dims for a matrix. Shapes built through NewShape are
// normalised so that literal-1 dimensions collapse.
type Shape struct {
	Dims []Dim `json:"dims"`
}

// Scalar returns the scalar shape.
func Scalar() Shape { return Shape{} }

// Vector returns the shape of a column vector of length n.
func Vector(n Dim) Shape { return NewShape(n) }

// Matrix returns the shape of an m×n matrix.
func Matrix(m, n Dim) Shape { return NewShape(m, n) }

// NewShape builds a normalised shape from the given dimensions:
//
//	vector(1) → scalar, 1×1 → scalar, m×1 → vector(m)
//
// A row vector 1×n stays a matrix so that transpose can round-trip.
func NewShape(dims ...Dim) Shape {
	switch len(dims) {
	case 0:
		return Shape{}
	case 1:
		if dims[0].IsOne() {
			return Shape{}
		}
		return Shape{Dims: []Dim{dims[0]}}
	case 2:
		m, n := dims[0], dims[1]
		if m.IsOne() && n.IsOne() {
			return Shape{}
		}
		if n.IsOne() {
			return Shape{Dims: []Dim{m}}
		}
		return Shape{Dims: []Dim{m, n}}
	default:
		panic(fmt.Sprintf("ir: shapes have at most two dimensions, got %d", len(dims)))
	}
}

// IsScalar reports whether the shape is a scalar.
func (s Shape) IsScalar() bool { return len(s.Dims) == 0 }

// IsVector reports whether the shape is a column vector.
func (s Shape) IsVector() bool { return len(s.Dims) == 1 }

// IsMatrix reports whether the shape has two dimensions.
func (s Shape) IsMatrix() bool { return len(s.Dims) == 2 }

// IsRow reports whether the shape is a 1×n row vector.
func (s Shape) IsRow() bool { return s.IsMatrix() && s.Dims[0].IsOne() }

// Rows returns the row dimension (1 for scalars).
func (s Shape) Rows() Dim {
	if s.IsScalar() {
		return Lit(1)
	}
	return s.Dims[0]
}

// Cols returns the column dimension (1 for scalars and vectors).
func (s Shape) Cols() Dim {
	if s.IsMatrix() {
		return s.Dims[1]
	}
	return Lit(1)
}

// Length returns the dimension that indexes the elements of a scalar, a
// column vector or a row vector. Matrices have no single length dimension.
func (s Shape) Length() (Dim, bool) {
	switch {
	case s.IsScalar():
		return Lit(1), true
	case s.IsVector():
		return s.Dims[0], true
	case s.IsRow():
		return s.Dims[1], true
	}
	return Dim{}, false
}

// Equal reports whether two shapes are identical.
func (s Shape) Equal(o Shape) bool {
	if len(s.Dims) != len(o.Dims) {
		return false
	}
	for i := range s.Dims {
		if !s.Dims[i].Equal(o.Dims[i]) {
			return false
		}
	}
	return true
}

// Size resolves the shape to concrete rows and columns.
func (s Shape) Size(dims map[string]int) (rows, cols int, err error) {
	rows, err = s.Rows().Resolve(dims)
	if err != nil {
		return 0, 0, err
	}
	cols, err = s.Cols().Resolve(dims)
	if err != nil {
		return 0, 0, err
	}
	return rows, cols, nil
}

// Names returns the named dimensions used by the shape.
func (s Shape) Names() []string {
	var names []string
	for _, d := range s.Dims {
		if d.IsSymbolic() {
			names = append(names, d.Name)
		}
	}
	return names
}

func (s Shape) String() string {
	switch len(s.Dims) {
	case 0:
		return "scalar"
	case 1:
		return "vector(" + s.Dims[0].String() + ")"
	}
	parts := make([]string, len(s.Dims))
	for i, d := range s.Dims {
		parts[i] = d.String()
	}
	return "matrix(" + strings.Join(parts, ",") + ")"
}

// Broadcast returns the shape of an elementwise combination of a and b:
// identical shapes, or a scalar against anything.
func Broadcast(a, b Shape) (Shape, bool) {
	switch {
	case a.Equal(b):
		return a, true
	case a.IsScalar():
		return b, true
	case b.IsScalar():
		return a, true
	}
	return Shape{}, false
}
