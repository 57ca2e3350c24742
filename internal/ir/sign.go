package ir

import "fmt"

// Sign is the sign lattice. Positive means nonnegative and Negative means
// nonpositive; Neither is the top element.
type Sign int

const (
	Neither Sign = iota
	Positive
	Negative
)

// SignOf returns the sign of a numeric literal.
func SignOf(v float64) Sign {
	if v >= 0 {
		return Positive
	}
	return Negative
}

// ParseSign parses a declared sign. Both "positive" and "nonnegative" map to
// Positive; "negative" and "nonpositive" map to Negative.
func ParseSign(s string) (Sign, error) {
	switch s {
	case "", "neither":
		return Neither, nil
	case "positive", "nonnegative":
		return Positive, nil
	case "negative", "nonpositive":
		return Negative, nil
	}
	return Neither, fmt.Errorf("unknown sign %q", s)
}

// Add returns the sign of a sum.
func (s Sign) Add(o Sign) Sign {
	if s == o {
		return s
	}
	return Neither
}

// Mul returns the sign of a product.
func (s Sign) Mul(o Sign) Sign {
	if s == Neither || o == Neither {
		return Neither
	}
	if s == o {
		return Positive
	}
	return Negative
}

// Neg returns the sign of a negation.
func (s Sign) Neg() Sign {
	switch s {
	case Positive:
		return Negative
	case Negative:
		return Positive
	}
	return Neither
}

func (s Sign) String() string {
	switch s {
	case Positive:
		return "positive"
	case Negative:
		return "negative"
	}
	return "neither"
}
