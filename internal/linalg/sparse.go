package linalg

import (
	"encoding/json"
	"fmt"
	"slices"
)

// Triplet is one (row, col, value) entry.
type Triplet struct {
	Row, Col int
	Val      float64
}

// Sparse is a matrix in coordinate (triplet) form. Entries may repeat;
// repeated coordinates are summed on compression.
type Sparse struct {
	r, c    int
	entries []Triplet
}

// NewSparse returns an empty r×c sparse matrix.
func NewSparse(r, c int) (*Sparse, error) {
	if r < 0 || c < 0 {
		return nil, fmt.Errorf("NewSparse(%d,%d): %w", r, c, ErrBadShape)
	}
	return &Sparse{r: r, c: c}, nil
}

// Rows returns the row count.
func (s *Sparse) Rows() int { return s.r }

// Cols returns the column count.
func (s *Sparse) Cols() int { return s.c }

// Append adds v at (i, j). Zeros are skipped.
func (s *Sparse) Append(i, j int, v float64) error {
	if i < 0 || i >= s.r || j < 0 || j >= s.c {
		return fmt.Errorf("Sparse.Append(%d,%d) on %dx%d: %w", i, j, s.r, s.c, ErrOutOfRange)
	}
	if v != 0 {
		s.entries = append(s.entries, Triplet{Row: i, Col: j, Val: v})
	}
	return nil
}

// AppendBlock adds the dense block d with its top-left corner at (i0, j0).
func (s *Sparse) AppendBlock(i0, j0 int, d *Dense) error {
	if i0 < 0 || j0 < 0 || i0+d.r > s.r || j0+d.c > s.c {
		return fmt.Errorf("Sparse.AppendBlock %dx%d at (%d,%d) on %dx%d: %w",
			d.r, d.c, i0, j0, s.r, s.c, ErrOutOfRange)
	}
	for i := 0; i < d.r; i++ {
		for j := 0; j < d.c; j++ {
			if v := d.data[i*d.c+j]; v != 0 {
				s.entries = append(s.entries, Triplet{Row: i0 + i, Col: j0 + j, Val: v})
			}
		}
	}
	return nil
}

// Triplets returns the compressed entries sorted by column then row, with
// duplicates summed and cancelled entries removed.
func (s *Sparse) Triplets() []Triplet {
	sorted := slices.Clone(s.entries)
	slices.SortStableFunc(sorted, func(a, b Triplet) int {
		if a.Col != b.Col {
			return a.Col - b.Col
		}
		return a.Row - b.Row
	})
	out := sorted[:0]
	for _, t := range sorted {
		if n := len(out); n > 0 && out[n-1].Row == t.Row && out[n-1].Col == t.Col {
			out[n-1].Val += t.Val
			continue
		}
		out = append(out, t)
	}
	return slices.DeleteFunc(out, func(t Triplet) bool { return t.Val == 0 })
}

// NNZ returns the number of stored nonzeros after compression.
func (s *Sparse) NNZ() int { return len(s.Triplets()) }

// CSC is the compressed sparse column layout consumed by conic solvers.
type CSC struct {
	Rows   int       `json:"rows"`
	Cols   int       `json:"cols"`
	ColPtr []int     `json:"colptr"`
	RowIdx []int     `json:"rowidx"`
	Values []float64 `json:"values"`
}

// CSC compresses s.
func (s *Sparse) CSC() CSC {
	ts := s.Triplets()
	out := CSC{
		Rows:   s.r,
		Cols:   s.c,
		ColPtr: make([]int, s.c+1),
		RowIdx: make([]int, len(ts)),
		Values: make([]float64, len(ts)),
	}
	for k, t := range ts {
		out.ColPtr[t.Col+1]++
		out.RowIdx[k] = t.Row
		out.Values[k] = t.Val
	}
	for j := 0; j < s.c; j++ {
		out.ColPtr[j+1] += out.ColPtr[j]
	}
	return out
}

// MarshalJSON encodes s in CSC form.
func (s *Sparse) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.CSC())
}

// ToDense expands s.
func (s *Sparse) ToDense() *Dense {
	d := &Dense{r: s.r, c: s.c, data: make([]float64, s.r*s.c)}
	for _, t := range s.entries {
		d.data[t.Row*s.c+t.Col] += t.Val
	}
	return d
}

// MulVec returns s·x.
func (s *Sparse) MulVec(x []float64) ([]float64, error) {
	if len(x) != s.c {
		return nil, fmt.Errorf("Sparse.MulVec %dx%d · %d: %w", s.r, s.c, len(x), ErrDimensionMismatch)
	}
	out := make([]float64, s.r)
	for _, t := range s.entries {
		out[t.Row] += t.Val * x[t.Col]
	}
	return out, nil
}
