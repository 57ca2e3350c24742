package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qcml/internal/ir"
)

func TestProgram_Declarations(t *testing.T) {
	p := NewProgram("lp")
	require.NoError(t, p.DeclareDimension("n"))

	x, err := p.DeclareVariable("x", vec("n"), ir.Neither)
	require.NoError(t, err)
	_, err = p.DeclareParameter("D", ir.Matrix(ir.Sym("n"), ir.Sym("n")), ir.Positive)
	require.NoError(t, err)

	got, err := p.Lookup("x")
	require.NoError(t, err)
	assert.Same(t, x, got)

	_, err = p.Lookup("y")
	assert.True(t, ir.IsUnknownIdentifier(err))
	_, err = p.Lookup("n")
	assert.True(t, ir.IsUnknownIdentifier(err))
}

func TestProgram_RejectsBadDeclarations(t *testing.T) {
	p := NewProgram("bad")
	require.NoError(t, p.DeclareDimension("n"))

	_, err := p.DeclareVariable("n", ir.Scalar(), ir.Neither)
	assert.True(t, ir.IsInvalidValue(err), "duplicate name")

	_, err = p.DeclareVariable("_t0", ir.Scalar(), ir.Neither)
	assert.True(t, ir.IsInvalidValue(err), "reserved prefix")

	_, err = p.DeclareVariable("X", ir.Matrix(ir.Sym("n"), ir.Sym("n")), ir.Neither)
	assert.True(t, ir.IsShapeMismatch(err), "matrix variable")

	_, err = p.DeclareParameter("b", vec("m"), ir.Neither)
	assert.True(t, ir.IsUnknownIdentifier(err), "undeclared dimension")
}

func TestProgram_ObjectiveMustBeScalar(t *testing.T) {
	p := NewProgram("obj")
	require.NoError(t, p.DeclareDimension("n"))
	x, err := p.DeclareVariable("x", vec("n"), ir.Neither)
	require.NoError(t, err)

	err = p.SetObjective(Minimize, x)
	assert.True(t, ir.IsShapeMismatch(err))

	require.NoError(t, p.SetObjective(Find, x))
	assert.Equal(t, Find, p.Sense)
	assert.Equal(t, "0", p.Objective.String())
}

func TestProgram_ChainAddsTwoConstraints(t *testing.T) {
	p := NewProgram("chain")
	x, err := p.DeclareVariable("x", ir.Scalar(), ir.Neither)
	require.NoError(t, err)

	require.NoError(t, p.Chain(NewNumber(0), LE, x, NewNumber(1)))
	require.Len(t, p.Constraints, 2)
	assert.Equal(t, "0 <= x", p.Constraints[0].String())
	assert.Equal(t, "x <= 1", p.Constraints[1].String())
}

func TestProgram_DocumentHashIsStable(t *testing.T) {
	build := func() *Program {
		p := NewProgram("h")
		require.NoError(t, p.DeclareDimension("n"))
		x, err := p.DeclareVariable("x", vec("n"), ir.Neither)
		require.NoError(t, err)
		s, err := NewSum(x)
		require.NoError(t, err)
		require.NoError(t, p.SetObjective(Minimize, s))
		return p
	}

	h1, err := ir.ContentHash(ir.DomainProblem, build().Document())
	require.NoError(t, err)
	h2, err := ir.ContentHash(ir.DomainProblem, build().Document())
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)
}

func TestConstraints_ShapeChecks(t *testing.T) {
	x := NewVariable("x", vec("n"), ir.Neither)
	y := NewVariable("y", vec("m"), ir.Neither)
	s := NewVariable("s", ir.Scalar(), ir.Neither)

	_, err := NewEquality(x, y)
	assert.True(t, ir.IsShapeMismatch(err))
	_, err = NewInequality(x, GE, NewNumber(0))
	assert.NoError(t, err)

	_, err = NewSOC(x, s)
	assert.True(t, ir.IsShapeMismatch(err), "vector bound")
	_, err = NewSOC(s, x, y)
	assert.NoError(t, err)

	_, err = NewSOCElem(x, y)
	assert.True(t, ir.IsShapeMismatch(err))
	_, err = NewSOCElem(x, NewNumber(2), x)
	assert.NoError(t, err)
}

func TestInequality_Sides(t *testing.T) {
	x := NewVariable("x", ir.Scalar(), ir.Neither)
	c, err := NewInequality(x, GE, NewNumber(0))
	require.NoError(t, err)

	small, big := c.Sides()
	assert.Equal(t, "0", small.String())
	assert.Same(t, x, big)
}
