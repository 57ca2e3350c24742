package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAtomsText(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewAtomsCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs(nil)
	require.NoError(t, cmd.Execute())

	out := buf.String()
	assert.Contains(t, out, "norm")
	assert.Contains(t, out, "sqrt")
	assert.Contains(t, out, "elementwise absolute value |x|")
}

func TestAtomsJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewAtomsCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs(nil)
	require.NoError(t, cmd.Execute())

	var resp struct {
		Status string     `json:"status"`
		Data   []AtomInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)

	byName := map[string]AtomInfo{}
	for _, a := range resp.Data {
		byName[a.Name] = a
	}
	require.Contains(t, byName, "abs")
	assert.Equal(t, "convex", byName["abs"].Curvature)
	require.Contains(t, byName, "sqrt")
	assert.Equal(t, "concave", byName["sqrt"].Curvature)
	assert.Equal(t, "elementwise square root for x >= 0", byName["sqrt"].Doc)
}

func TestFormatArity(t *testing.T) {
	assert.Equal(t, "1", formatArity(1, 1))
	assert.Equal(t, "1-2", formatArity(1, 2))
	assert.Equal(t, "1+", formatArity(1, -1))
}
