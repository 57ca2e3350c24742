package harness

import (
	"bytes"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/qcml/internal/linalg"
)

// Values are the dimension sizes and parameter data for one compilation.
//
//	dims:
//	  n: 3
//	params:
//	  c: [1, 2, 3]          # vector
//	  D: [[1, 0], [0, 1]]   # matrix, row-major
//	  s: 2.5                # scalar
type Values struct {
	Dims   map[string]int `yaml:"dims,omitempty"`
	Params map[string]any `yaml:"params,omitempty"`
}

// LoadValues reads a values file. Unknown top-level keys are rejected.
func LoadValues(path string) (*Values, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read values file: %w", err)
	}
	var v Values
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&v); err != nil {
		return nil, fmt.Errorf("failed to parse values file %s: %w", path, err)
	}
	return &v, nil
}

// Matrices converts parameter data to dense matrices. Scalars become 1x1,
// flat lists become columns, and lists of lists become row-major matrices.
func (v *Values) Matrices() (map[string]*linalg.Dense, error) {
	out := make(map[string]*linalg.Dense, len(v.Params))
	names := make([]string, 0, len(v.Params))
	for name := range v.Params {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		m, err := toDense(v.Params[name])
		if err != nil {
			return nil, fmt.Errorf("param %s: %w", name, err)
		}
		out[name] = m
	}
	return out, nil
}

func toDense(raw any) (*linalg.Dense, error) {
	if f, ok := toFloat(raw); ok {
		return linalg.Scalar(f), nil
	}
	list, ok := raw.([]any)
	if !ok || len(list) == 0 {
		return nil, fmt.Errorf("want a number, a list or a list of lists, got %v", raw)
	}

	if _, nested := list[0].([]any); !nested {
		col := make([]float64, len(list))
		for i, e := range list {
			f, ok := toFloat(e)
			if !ok {
				return nil, fmt.Errorf("element %d: want a number, got %v", i, e)
			}
			col[i] = f
		}
		return linalg.Column(col), nil
	}

	rows := len(list)
	cols := -1
	var data []float64
	for i, r := range list {
		row, ok := r.([]any)
		if !ok {
			return nil, fmt.Errorf("row %d: want a list, got %v", i, r)
		}
		if cols < 0 {
			cols = len(row)
		}
		if len(row) != cols || cols == 0 {
			return nil, fmt.Errorf("row %d has %d entries, want %d", i, len(row), cols)
		}
		for j, e := range row {
			f, ok := toFloat(e)
			if !ok {
				return nil, fmt.Errorf("element (%d, %d): want a number, got %v", i, j, e)
			}
			data = append(data, f)
		}
	}
	return linalg.FromData(rows, cols, data)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
