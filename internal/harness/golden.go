package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/qcml/internal/ir"
)

// Snapshot is the deterministic part of a scenario result: the numeric
// cone data or the error.
type Snapshot struct {
	Scenario string
	Data     map[string]any
	Error    string
}

// NewSnapshot captures result for golden comparison.
func NewSnapshot(name string, result *Result) Snapshot {
	s := Snapshot{Scenario: name}
	if result.Data != nil {
		s.Data = result.Data.Document()
	}
	if result.Err != nil {
		s.Error = result.Err.Error()
	}
	return s
}

// MarshalCanonical renders the snapshot as canonical JSON.
func (s Snapshot) MarshalCanonical() ([]byte, error) {
	m := map[string]any{"scenario": s.Scenario}
	if s.Data != nil {
		m["data"] = s.Data
	}
	if s.Error != "" {
		m["error"] = s.Error
	}
	return ir.MarshalCanonical(m)
}

// RunWithGolden runs a scenario and compares its snapshot with
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	return result, AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := NewSnapshot(name, result).MarshalCanonical()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
