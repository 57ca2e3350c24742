package ir

// Curvature is the curvature lattice:
//
//	Constant ⊑ Affine ⊑ {Convex, Concave} ⊑ Nonconvex
//
// Nonconvex marks an expression that breaks the DCP ruleset. It never
// survives validation.
type Curvature int

const (
	Constant Curvature = iota
	Affine
	Convex
	Concave
	Nonconvex
)

// IsConstant reports whether c is Constant.
func (c Curvature) IsConstant() bool { return c == Constant }

// IsAffine reports whether c is Constant or Affine.
func (c Curvature) IsAffine() bool { return c == Constant || c == Affine }

// IsConvex reports whether c is Convex or below it.
func (c Curvature) IsConvex() bool { return c.IsAffine() || c == Convex }

// IsConcave reports whether c is Concave or below it.
func (c Curvature) IsConcave() bool { return c.IsAffine() || c == Concave }

// IsDCP reports whether c is anything but Nonconvex.
func (c Curvature) IsDCP() bool { return c != Nonconvex }

// Join returns the least upper bound of c and o. It is also the curvature
// of a sum.
func (c Curvature) Join(o Curvature) Curvature {
	switch {
	case c == o:
		return c
	case c == Nonconvex || o == Nonconvex:
		return Nonconvex
	case c.IsAffine() && o.IsAffine():
		return Affine
	case c.IsAffine():
		return o
	case o.IsAffine():
		return c
	}
	// Convex joined with Concave.
	return Nonconvex
}

// Add returns the curvature of a sum.
func (c Curvature) Add(o Curvature) Curvature { return c.Join(o) }

// Neg returns the curvature of a negation.
func (c Curvature) Neg() Curvature {
	switch c {
	case Convex:
		return Concave
	case Concave:
		return Convex
	}
	return c
}

// Scale returns the curvature of c multiplied by a constant of sign s.
func (c Curvature) Scale(s Sign) Curvature {
	switch {
	case c.IsAffine():
		return c
	case s == Positive:
		return c
	case s == Negative:
		return c.Neg()
	}
	return Nonconvex
}

func (c Curvature) String() string {
	switch c {
	case Constant:
		return "constant"
	case Affine:
		return "affine"
	case Convex:
		return "convex"
	case Concave:
		return "concave"
	}
	return "nonconvex"
}

// Monotonicity describes how an atom varies in one of its arguments.
type Monotonicity int

const (
	Nonmonotone Monotonicity = iota
	Increasing
	Decreasing
)

// MonotonicityBySign is the usual rule for atoms that are even functions
// around zero (abs, square, norms): increasing on nonnegative arguments,
// decreasing on nonpositive ones.
func MonotonicityBySign(s Sign) Monotonicity {
	switch s {
	case Positive:
		return Increasing
	case Negative:
		return Decreasing
	}
	return Nonmonotone
}

func (m Monotonicity) String() string {
	switch m {
	case Increasing:
		return "increasing"
	case Decreasing:
		return "decreasing"
	}
	return "nonmonotone"
}

// ArgUse pairs an argument's curvature with the atom's monotonicity in that
// argument.
type ArgUse struct {
	Curvature    Curvature
	Monotonicity Monotonicity
}

// Compose returns the curvature of f(g₁, …, gₖ) where f has curvature atom.
//
// The rules follow the DCP composition table:
//   - affine f: each argument must itself be affine
//   - convex f: increasing args convex, decreasing args concave,
//     nonmonotone args affine
//   - concave f: the mirror image
//
// Composition never yields Constant for a nonlinear atom, even when every
// argument is constant.
func Compose(atom Curvature, uses []ArgUse) Curvature {
	if atom.IsAffine() {
		result := atom
		for _, u := range uses {
			switch {
			case u.Curvature.IsAffine():
				result = result.Join(u.Curvature)
			case u.Monotonicity == Increasing:
				result = result.Join(u.Curvature)
			case u.Monotonicity == Decreasing:
				result = result.Join(u.Curvature.Neg())
			default:
				return Nonconvex
			}
		}
		return result
	}
	for _, u := range uses {
		if u.Curvature.IsAffine() {
			continue
		}
		if u.Curvature == Nonconvex {
			return Nonconvex
		}
		switch u.Monotonicity {
		case Increasing:
			if u.Curvature != atom {
				return Nonconvex
			}
		case Decreasing:
			if u.Curvature != atom.Neg() {
				return Nonconvex
			}
		default:
			return Nonconvex
		}
	}
	return atom
}
