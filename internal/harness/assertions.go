package harness

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/roach88/qcml/internal/ir"
)

const defaultTol = 1e-9

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Cone     string // cone program listing for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if e.Cone != "" {
		fmt.Fprintf(&buf, "\nCone program:\n")
		for _, line := range strings.Split(strings.TrimRight(e.Cone, "\n"), "\n") {
			fmt.Fprintf(&buf, "  %s\n", line)
		}
	}

	return buf.String()
}

// EvaluateAssertions evaluates all assertions against the result and
// returns a message per failure.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, a := range assertions {
		var err error

		switch a.Type {
		case AssertError:
			err = assertError(result, a)
		case AssertCurvature:
			err = assertCurvature(result, a)
		case AssertConeContains:
			err = assertConeContains(result, a)
		case AssertRecord:
			err = assertRecord(result, a)
		case AssertSizes, AssertFeasible, AssertInfeasible, AssertObjective, AssertVariables:
			if result.Data == nil {
				err = fmt.Errorf("assertion[%d]: %s needs cone data, compilation failed: %v", i, a.Type, result.Err)
				break
			}
			err = assertData(result, a)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, a.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

func assertError(result *Result, a Assertion) error {
	if result.Err == nil {
		return &AssertionError{Type: a.Type, Expected: describeError(a), Actual: "no error", Cone: result.Cone}
	}
	if a.Code != "" && string(ir.CodeOf(result.Err)) != a.Code {
		return &AssertionError{
			Type:     a.Type,
			Expected: describeError(a),
			Actual:   fmt.Sprintf("code %q: %v", ir.CodeOf(result.Err), result.Err),
		}
	}
	if a.Contains != "" && !strings.Contains(result.Err.Error(), a.Contains) {
		return &AssertionError{Type: a.Type, Expected: describeError(a), Actual: result.Err.Error()}
	}
	return nil
}

func describeError(a Assertion) string {
	switch {
	case a.Code != "" && a.Contains != "":
		return fmt.Sprintf("error %s containing %q", a.Code, a.Contains)
	case a.Code != "":
		return "error " + a.Code
	}
	return fmt.Sprintf("error containing %q", a.Contains)
}

func assertCurvature(result *Result, a Assertion) error {
	if want := a.Value.(string); result.Curvature != want {
		return &AssertionError{Type: a.Type, Expected: want, Actual: result.Curvature}
	}
	return nil
}

func assertConeContains(result *Result, a Assertion) error {
	for _, line := range strings.Split(result.Cone, "\n") {
		if strings.TrimSpace(line) == strings.TrimSpace(a.Contains) {
			return nil
		}
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("line %q", a.Contains),
		Actual:   "not found",
		Cone:     result.Cone,
	}
}

func assertRecord(result *Result, a Assertion) error {
	if result.Record == nil {
		return &AssertionError{Type: a.Type, Expected: "a recorded compilation", Actual: "none"}
	}
	r := result.Record
	actual := map[string]any{
		"program":    r.Program,
		"status":     r.Status,
		"n":          r.N,
		"m":          r.M,
		"p":          r.P,
		"dims":       r.Dims,
		"has_cone":   r.ConeHash != "",
		"format":     r.FormatVersion,
		"compiler":   r.CompilerVersion,
		"compatible": r.Compatible(),
	}
	return matchFields(a.Type, actual, a.Expect)
}

func assertData(result *Result, a Assertion) error {
	d := result.Data
	tol := a.Tol
	if tol == 0 {
		tol = defaultTol
	}

	switch a.Type {
	case AssertSizes:
		actual := map[string]any{"n": d.N, "m": d.M, "p": d.P, "l": d.L, "q": d.Q}
		return matchFields(a.Type, actual, a.Expect)

	case AssertFeasible:
		if err := d.CheckFeasible(a.X, tol); err != nil {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("x = %v feasible", a.X), Actual: err.Error(), Cone: result.Cone}
		}

	case AssertInfeasible:
		if err := d.CheckFeasible(a.X, tol); err == nil {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("x = %v infeasible", a.X), Actual: "feasible", Cone: result.Cone}
		}

	case AssertObjective:
		if len(a.X) != d.N {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("x of length %d", d.N), Actual: fmt.Sprintf("length %d", len(a.X))}
		}
		var pcost float64
		for i, c := range d.C {
			pcost += c * a.X[i]
		}
		want, _ := toFloat(a.Value)
		if got := d.ObjectiveValue(pcost); math.Abs(got-want) > tol {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprint(want), Actual: fmt.Sprint(got)}
		}

	case AssertVariables:
		vals, err := result.pipe.Backward(a.X, nil, nil)
		if err != nil {
			return &AssertionError{Type: a.Type, Expected: "values mapped back", Actual: err.Error()}
		}
		names := make([]string, 0, len(a.Variables))
		for name := range a.Variables {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			want := a.Variables[name]
			got, ok := vals[name]
			if !ok {
				return &AssertionError{Type: a.Type, Expected: "variable " + name, Actual: "not returned"}
			}
			if !approxEqual(got.Data(), want, tol) {
				return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("%s = %v", name, want), Actual: fmt.Sprintf("%s = %v", name, got.Data())}
			}
		}
	}
	return nil
}

// matchFields compares the expected subset against actual using printed
// forms, so YAML ints and lists compare equal to Go ints and slices.
func matchFields(typ string, actual, expect map[string]any) error {
	keys := make([]string, 0, len(expect))
	for k := range expect {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		got, ok := actual[k]
		if !ok {
			return &AssertionError{Type: typ, Expected: fmt.Sprintf("field %q", k), Actual: "no such field"}
		}
		if fmt.Sprint(got) != fmt.Sprint(expect[k]) {
			return &AssertionError{
				Type:     typ,
				Expected: fmt.Sprintf("%s = %v", k, expect[k]),
				Actual:   fmt.Sprintf("%s = %v", k, got),
			}
		}
	}
	return nil
}

func approxEqual(a, b []float64, tol float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Abs(a[i]-b[i]) > tol {
			return false
		}
	}
	return true
}
