// Package ir provides the property lattices shared by every stage of the
// qcml compiler.
//
// This package contains value types only. All other internal packages
// import ir; ir imports nothing internal. This keeps the lattices the
// foundational layer with no circular dependencies.
//
// The three lattices are:
//   - Shape: scalar, vector or matrix with literal or named dimensions
//   - Sign: Positive, Negative or Neither (a join-semilattice)
//   - Curvature: Constant ⊑ Affine ⊑ {Convex, Concave} ⊑ Nonconvex
//
// Combination rules are pure functions. Shape is always checked first:
// sign and curvature combination assume the operand shapes are valid.
//
// The package also owns the compiler's error kinds (see errors.go) and the
// canonical JSON used for content-addressed problem hashes.
package ir
