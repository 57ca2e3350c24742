package ir

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentHashDeterminism(t *testing.T) {
	doc := map[string]any{
		"name":      "lp",
		"objective": "c'*x",
		"variables": []any{map[string]any{"name": "x", "shape": []string{"n"}}},
	}

	h1, err := ContentHash(DomainProblem, doc)
	require.NoError(t, err)
	h2, err := ContentHash(DomainProblem, doc)
	require.NoError(t, err)

	assert.Equal(t, h1, h2, "ContentHash must be deterministic")
	assert.Len(t, h1, 64, "SHA-256 hex is 64 characters")
}

func TestContentHashKeyOrdering(t *testing.T) {
	a := map[string]any{"zebra": 1, "alpha": 2}
	b := map[string]any{"alpha": 2, "zebra": 1}
	assert.Equal(t, MustContentHash(DomainProblem, a), MustContentHash(DomainProblem, b))
}

func TestContentHashChangesWithContent(t *testing.T) {
	a := map[string]any{"c": []float64{1, 2}}
	b := map[string]any{"c": []float64{1, 3}}
	assert.NotEqual(t, MustContentHash(DomainCone, a), MustContentHash(DomainCone, b))
}

func TestContentHashNegativeZero(t *testing.T) {
	a := map[string]any{"h": []float64{0}}
	b := map[string]any{"h": []float64{math.Copysign(0, -1)}}
	assert.Equal(t, MustContentHash(DomainCone, a), MustContentHash(DomainCone, b))
}

func TestDomainSeparationPreventsCrossTypeCollision(t *testing.T) {
	data := []byte(`{"name":"lp"}`)
	assert.NotEqual(t, hashWithDomain(DomainProblem, data), hashWithDomain(DomainCone, data))
}

func TestHashWithDomainNullSeparator(t *testing.T) {
	// "foo" + 0x00 + "bar" must differ from "foob" + 0x00 + "ar".
	assert.NotEqual(t, hashWithDomain("foo", []byte("bar")), hashWithDomain("foob", []byte("ar")))
}

func TestContentHashError(t *testing.T) {
	_, err := ContentHash(DomainProblem, map[string]any{"bad": nil})
	require.Error(t, err)
	assert.Contains(t, err.Error(), DomainProblem)

	assert.Panics(t, func() { MustContentHash(DomainProblem, nil) })
}
