package ir

import (
	"errors"
	"fmt"
)

// Error is the single error type produced by the compiler core.
//
// Every kind is fatal for the compilation attempt that produced it: an
// incorrect convexity judgment silently yields a wrong numerical answer,
// so nothing here is retried or partially recovered.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Atom names the offending atom, if any.
	Atom string

	// Constraint identifies the offending constraint ("objective" or
	// "constraint[3]"), if any.
	Constraint string
}

// ErrorCode categorizes compiler errors.
type ErrorCode string

const (
	// CodeShapeMismatch indicates incompatible operand shapes.
	CodeShapeMismatch ErrorCode = "SHAPE_MISMATCH"

	// CodeUnknownIdentifier indicates a reference to an undeclared name.
	CodeUnknownIdentifier ErrorCode = "UNKNOWN_IDENTIFIER"

	// CodeUnknownAtom indicates a call to an atom missing from the registry.
	CodeUnknownAtom ErrorCode = "UNKNOWN_ATOM"

	// CodeDCPViolation indicates a curvature incompatible with its usage.
	CodeDCPViolation ErrorCode = "DCP_VIOLATION"

	// CodeInvalidState indicates a pipeline entry point called out of order.
	CodeInvalidState ErrorCode = "INVALID_STATE"

	// CodeInvalidValue indicates a bad numeric input (parameter value,
	// dimension size, solution vector length).
	CodeInvalidValue ErrorCode = "INVALID_VALUE"
)

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Atom != "" && e.Constraint != "":
		return fmt.Sprintf("%s: %s (atom=%s, in %s)", e.Code, e.Message, e.Atom, e.Constraint)
	case e.Atom != "":
		return fmt.Sprintf("%s: %s (atom=%s)", e.Code, e.Message, e.Atom)
	case e.Constraint != "":
		return fmt.Sprintf("%s: %s (in %s)", e.Code, e.Message, e.Constraint)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Errorf creates an Error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithAtom returns a copy of e naming the offending atom.
func (e *Error) WithAtom(name string) *Error {
	c := *e
	c.Atom = name
	return &c
}

// WithConstraint returns a copy of e naming the offending constraint.
// An already-set location is kept, so the innermost context wins.
func (e *Error) WithConstraint(where string) *Error {
	c := *e
	if c.Constraint == "" {
		c.Constraint = where
	}
	return &c
}

// CodeOf returns the code of err, or "" if err is not an *Error.
// Uses errors.As to handle wrapped errors.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsShapeMismatch returns true if err is a shape mismatch.
func IsShapeMismatch(err error) bool { return CodeOf(err) == CodeShapeMismatch }

// IsUnknownIdentifier returns true if err references an undeclared name.
func IsUnknownIdentifier(err error) bool { return CodeOf(err) == CodeUnknownIdentifier }

// IsUnknownAtom returns true if err references an unregistered atom.
func IsUnknownAtom(err error) bool { return CodeOf(err) == CodeUnknownAtom }

// IsDCPError returns true if err is a DCP violation.
func IsDCPError(err error) bool { return CodeOf(err) == CodeDCPViolation }

// IsInvalidState returns true if err is an out-of-order pipeline call.
func IsInvalidState(err error) bool { return CodeOf(err) == CodeInvalidState }

// IsInvalidValue returns true if err rejects a numeric input.
func IsInvalidValue(err error) bool { return CodeOf(err) == CodeInvalidValue }

// ShapeMismatch builds the error for a failed shape combination.
func ShapeMismatch(op Op, shapes ...Shape) *Error {
	return Errorf(CodeShapeMismatch, "incompatible shapes for %s: %v", op, shapes)
}
