package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/qcml/internal/ir"
)

// marshalDims converts dimension values to canonical JSON TEXT, so equal
// dimension maps compare equal in SQL.
func marshalDims(dims map[string]int) (string, error) {
	m := make(map[string]any, len(dims))
	for k, v := range dims {
		m[k] = v
	}
	data, err := ir.MarshalCanonical(m)
	if err != nil {
		return "", fmt.Errorf("marshal dims: %w", err)
	}
	return string(data), nil
}

// unmarshalDims parses dims TEXT. Empty input yields an empty map.
func unmarshalDims(data string) (map[string]int, error) {
	dims := map[string]int{}
	if data == "" {
		return dims, nil
	}
	if err := json.Unmarshal([]byte(data), &dims); err != nil {
		return nil, fmt.Errorf("unmarshal dims: %w", err)
	}
	return dims, nil
}
