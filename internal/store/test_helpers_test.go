package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/qcml/internal/ast"
	"github.com/roach88/qcml/internal/canon"
	"github.com/roach88/qcml/internal/cone"
	"github.com/roach88/qcml/internal/ir"
)

// createTestStore opens a fresh store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestProgram builds: variable x(n); minimize sum(x); x >= 0.
func createTestProgram(t *testing.T, name string) *ast.Program {
	t.Helper()
	p := ast.NewProgram(name)
	if err := p.DeclareDimension("n"); err != nil {
		t.Fatal(err)
	}
	x, err := p.DeclareVariable("x", ir.Vector(ir.Sym("n")), ir.Neither)
	if err != nil {
		t.Fatal(err)
	}
	sum, err := ast.NewSum(x)
	if err != nil {
		t.Fatal(err)
	}
	if err := p.SetObjective(ast.Minimize, sum); err != nil {
		t.Fatal(err)
	}
	c, err := ast.NewInequality(x, ast.GE, ast.NewNumber(0))
	if err != nil {
		t.Fatal(err)
	}
	p.Constrain(c)
	if err := canon.Canonicalize(p); err != nil {
		t.Fatal(err)
	}
	return p
}

// createTestCompilation records a successful run of the test program with cone data.
func createTestCompilation(t *testing.T, id, name string, n int) Compilation {
	t.Helper()
	p := createTestProgram(t, name)
	dims := map[string]int{"n": n}
	c, err := NewCompilation(id, p, dims)
	if err != nil {
		t.Fatalf("NewCompilation() failed: %v", err)
	}
	cp, err := cone.Assemble(p)
	if err != nil {
		t.Fatalf("Assemble() failed: %v", err)
	}
	d, err := cp.Forward(nil, dims)
	if err != nil {
		t.Fatalf("Forward() failed: %v", err)
	}
	if err := c.SetCone(d); err != nil {
		t.Fatalf("SetCone() failed: %v", err)
	}
	return c
}
