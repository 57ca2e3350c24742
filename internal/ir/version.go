package ir

// Version constants for the compiled artifact format and the compiler.
const (
	// FormatVersion is the semantic version of the cone program layout and
	// the compile records written to the store. Records are readable when
	// their major version matches.
	FormatVersion = "1.0.0"

	// CompilerVersion is the qcml compiler version.
	CompilerVersion = "0.1.0"
)
