package linalg

import "errors"

// Sentinel errors. Callers match them with errors.Is; functions wrap them
// with the operation and operand sizes.
var (
	// ErrBadShape is returned for negative dimensions or a data slice whose
	// length does not match the requested shape.
	ErrBadShape = errors.New("linalg: invalid shape")

	// ErrDimensionMismatch indicates incompatible operands, e.g. Mul where
	// a.Cols != b.Rows.
	ErrDimensionMismatch = errors.New("linalg: dimension mismatch")

	// ErrOutOfRange indicates an index outside the matrix.
	ErrOutOfRange = errors.New("linalg: index out of range")

	// ErrNaNInf signals a non-finite value where finite values are required.
	ErrNaNInf = errors.New("linalg: NaN or Inf encountered")
)
