// Package atoms is the library of nonlinear functions a problem may call.
//
// Every atom knows its result shape and sign, its own curvature and its
// monotonicity in each argument, and how to replace a call by an affine
// expression of fresh variables plus linear and second-order cone
// constraints (its graph implementation).
package atoms

import (
	"slices"

	"github.com/roach88/qcml/internal/ast"
	"github.com/roach88/qcml/internal/ir"
)

// Entry is a registered atom with a one-line description.
type Entry struct {
	Atom ast.Atom
	Doc  string
}

// Registry maps atom names to atoms.
type Registry struct {
	entries map[string]Entry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

// Register adds an atom. Registering a name twice is an error.
func (r *Registry) Register(a ast.Atom, doc string) error {
	if _, ok := r.entries[a.Name()]; ok {
		return ir.Errorf(ir.CodeInvalidValue, "atom %q already registered", a.Name())
	}
	r.entries[a.Name()] = Entry{Atom: a, Doc: doc}
	return nil
}

// Lookup resolves an atom by name.
func (r *Registry) Lookup(name string) (ast.Atom, error) {
	e, ok := r.entries[name]
	if !ok {
		return nil, ir.Errorf(ir.CodeUnknownAtom, "unknown atom %q", name).WithAtom(name)
	}
	return e.Atom, nil
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.entries))
	for n := range r.entries {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Entries returns the registered atoms sorted by name.
func (r *Registry) Entries() []Entry {
	out := make([]Entry, 0, len(r.entries))
	for _, n := range r.Names() {
		out = append(out, r.entries[n])
	}
	return out
}

var builtin = func() *Registry {
	r := NewRegistry()
	for _, e := range []Entry{
		{abs{}, "elementwise absolute value |x|"},
		{pos{}, "elementwise positive part max(x, 0)"},
		{neg{}, "elementwise negative part max(-x, 0)"},
		{maxAtom{}, "elementwise maximum of its arguments"},
		{minAtom{}, "elementwise minimum of its arguments"},
		{norm{name: "norm"}, "Euclidean norm of the stacked arguments"},
		{norm{name: "norm2"}, "alias of norm"},
		{normInf{}, "largest absolute entry"},
		{norm1{}, "sum of absolute entries"},
		{sumSquares{}, "sum of squared entries"},
		{square{}, "elementwise square"},
		{quadOverLin{}, "squared norm of x divided by scalar y > 0"},
		{invPos{}, "elementwise 1/x for x > 0"},
		{sqrtAtom{}, "elementwise square root for x >= 0"},
		{geoMean{}, "elementwise geometric mean sqrt(x*y)"},
	} {
		if err := r.Register(e.Atom, e.Doc); err != nil {
			panic(err)
		}
	}
	return r
}()

// Default returns the registry of built-in atoms.
func Default() *Registry { return builtin }

// Lookup resolves a built-in atom by name.
func Lookup(name string) (ast.Atom, error) { return builtin.Lookup(name) }

// Names returns the built-in atom names in sorted order.
func Names() []string { return builtin.Names() }
