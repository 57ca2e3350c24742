package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario is one compile-and-check case: a CUE problem, the values to
// compile it with, and assertions on the produced cone program.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Problem is the CUE file holding the problem, relative to the
	// scenario file.
	Problem string `yaml:"problem"`

	// Program selects a problem when the file holds several.
	Program string `yaml:"program,omitempty"`

	// RunID fixes the pipeline run ID. Defaults to "scenario-<name>".
	RunID string `yaml:"run_id,omitempty"`

	Values `yaml:",inline"`

	Assertions []Assertion `yaml:"assertions"`
}

// Assertion checks one property of a scenario result.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Expect holds expected fields for sizes and record (subset match).
	Expect map[string]any `yaml:"expect,omitempty"`

	// Code is the expected error code (error).
	Code string `yaml:"code,omitempty"`

	// Contains is a substring of the error message (error) or a line of
	// the cone program listing (cone_contains).
	Contains string `yaml:"contains,omitempty"`

	// X is a candidate solution (feasible, infeasible, objective, variables).
	X []float64 `yaml:"x,omitempty"`

	// Value is the expected objective value (objective) or objective
	// curvature (curvature).
	Value any `yaml:"value,omitempty"`

	// Variables are the expected user variable values (variables).
	Variables map[string][]float64 `yaml:"variables,omitempty"`

	// Tol is the numeric tolerance. Defaults to 1e-9.
	Tol float64 `yaml:"tol,omitempty"`
}

// Assertion type constants.
const (
	AssertSizes        = "sizes"
	AssertError        = "error"
	AssertFeasible     = "feasible"
	AssertInfeasible   = "infeasible"
	AssertObjective    = "objective"
	AssertVariables    = "variables"
	AssertConeContains = "cone_contains"
	AssertCurvature    = "curvature"
	AssertRecord       = "record"
)

// LoadScenario reads and parses a scenario YAML file. The problem path is
// resolved relative to the scenario file. Unknown fields are rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Problem != "" && !filepath.IsAbs(scenario.Problem) {
		scenario.Problem = filepath.Join(filepath.Dir(path), scenario.Problem)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// LoadScenarios loads every .yaml file in dir, sorted by file name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	var out []*Scenario
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		out = append(out, s)
	}
	return out, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Problem == "" {
		return fmt.Errorf("problem is required")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	if _, err := os.Stat(s.Problem); os.IsNotExist(err) {
		return fmt.Errorf("problem file not found: %s", s.Problem)
	}
	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if a.Tol < 0 {
		return fmt.Errorf("assertions[%d]: tol must be non-negative", index)
	}

	switch a.Type {
	case AssertSizes, AssertRecord:
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for %s", index, a.Type)
		}
	case AssertError:
		if a.Code == "" && a.Contains == "" {
			return fmt.Errorf("assertions[%d]: code or contains is required for error", index)
		}
	case AssertFeasible, AssertInfeasible:
		if len(a.X) == 0 {
			return fmt.Errorf("assertions[%d]: x is required for %s", index, a.Type)
		}
	case AssertObjective:
		if len(a.X) == 0 {
			return fmt.Errorf("assertions[%d]: x is required for objective", index)
		}
		if _, ok := toFloat(a.Value); !ok {
			return fmt.Errorf("assertions[%d]: numeric value is required for objective", index)
		}
	case AssertVariables:
		if len(a.X) == 0 || len(a.Variables) == 0 {
			return fmt.Errorf("assertions[%d]: x and variables are required for variables", index)
		}
	case AssertConeContains:
		if a.Contains == "" {
			return fmt.Errorf("assertions[%d]: contains is required for cone_contains", index)
		}
	case AssertCurvature:
		if _, ok := a.Value.(string); !ok {
			return fmt.Errorf("assertions[%d]: value must name a curvature", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
