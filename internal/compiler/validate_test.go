package compiler

import (
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func problemValue(t *testing.T, src string) cue.Value {
	t.Helper()
	v := cuecontext.New().CompileString(src)
	require.NoError(t, v.Err())
	return v.LookupPath(cue.ParsePath("problem.p"))
}

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestValidateDocumentValid(t *testing.T) {
	errs := ValidateDocument(problemValue(t, `
		problem: p: {
			dimensions: ["n"]
			variables: x: {shape: ["n"], sign: "positive"}
			parameters: A: {shape: ["n", 3]}
			minimize: {norm1: {mul: [{transpose: "A"}, "x"]}}
			constraints: [{"<=": [0, {sum: "x"}, 1]}, {"==": ["x", 1]}]
		}
	`))
	assert.Empty(t, errs)
}

func TestValidateDocumentCollectsAll(t *testing.T) {
	errs := ValidateDocument(problemValue(t, `
		problem: p: {
			variables: x: {shape: ["n"], sign: "sideways"}
			minimise: 1
			minimize: {frobnicate: ["x"]}
			constraints: [{"<": ["x", 1]}]
		}
	`))
	assert.Equal(t, []string{ErrUnknownField, ErrInvalidDeclaration, ErrInvalidExpression, ErrInvalidConstraint}, codes(errs))
	assert.Equal(t, "minimise", errs[0].Field)
	assert.Equal(t, "variables.x.sign", errs[1].Field)
	assert.Equal(t, "minimize", errs[2].Field)
	assert.Equal(t, "constraints[0]", errs[3].Field)
	for _, e := range errs {
		assert.Greater(t, e.Line, 0, e.Error())
	}
}

func TestValidateDocumentDeclarations(t *testing.T) {
	errs := ValidateDocument(problemValue(t, `
		problem: p: {
			dimensions: ["n", 3]
			variables: x: {shape: [0], size: 2}
		}
	`))
	assert.Equal(t, []string{ErrInvalidDeclaration, ErrInvalidDeclaration, ErrUnknownField}, codes(errs))
	assert.Equal(t, "dimensions[1]", errs[0].Field)
	assert.Equal(t, "variables.x.shape[0]", errs[1].Field)
	assert.Equal(t, "variables.x.size", errs[2].Field)
}

func TestValidateDocumentConstraintArity(t *testing.T) {
	errs := ValidateDocument(problemValue(t, `
		problem: p: {
			variables: x: {}
			constraints: [
				{"==": ["x", 1, 2]},
				{"<=": ["x"]},
				{"<=": ["x", 1], ">=": ["x", 0]},
				["x", 1],
			]
		}
	`))
	assert.Equal(t, []string{ErrInvalidConstraint, ErrInvalidConstraint, ErrInvalidConstraint, ErrInvalidConstraint}, codes(errs))
}

func TestValidationErrorFormat(t *testing.T) {
	e := ValidationError{Field: "minimize", Message: "bad", Code: ErrInvalidExpression, Line: 4}
	assert.Equal(t, "[E105] line 4: minimize: bad", e.Error())
	e.Line = 0
	assert.Equal(t, "[E105] minimize: bad", e.Error())
}
