package store

import (
	"fmt"

	"github.com/Masterminds/semver/v3"

	"github.com/roach88/qcml/internal/ast"
	"github.com/roach88/qcml/internal/cone"
	"github.com/roach88/qcml/internal/ir"
)

// Compilation statuses.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Compilation is one row of the log.
type Compilation struct {
	Seq             int64          `json:"seq"`
	ID              string         `json:"id"`
	Program         string         `json:"program"`
	ProblemHash     string         `json:"problem_hash"`
	Problem         string         `json:"-"`
	Dims            map[string]int `json:"dims"`
	ConeHash        string         `json:"cone_hash,omitempty"`
	Cone            string         `json:"-"`
	N               int            `json:"n"`
	M               int            `json:"m"`
	P               int            `json:"p"`
	Status          string         `json:"status"`
	Error           string         `json:"error,omitempty"`
	FormatVersion   string         `json:"format_version"`
	CompilerVersion string         `json:"compiler_version"`
}

// NewCompilation starts a record for run id compiling prog with dims.
// The record is successful until Fail is called.
func NewCompilation(id string, prog *ast.Program, dims map[string]int) (Compilation, error) {
	doc, err := ir.MarshalCanonical(prog.Document())
	if err != nil {
		return Compilation{}, fmt.Errorf("record %s: %w", prog.Name, err)
	}
	c := Compilation{
		ID:              id,
		Program:         prog.Name,
		ProblemHash:     ir.MustContentHash(ir.DomainProblem, prog.Document()),
		Problem:         string(doc),
		Dims:            make(map[string]int, len(dims)),
		Status:          StatusOK,
		FormatVersion:   ir.FormatVersion,
		CompilerVersion: ir.CompilerVersion,
	}
	for k, v := range dims {
		c.Dims[k] = v
	}
	return c, nil
}

// SetSizes records the standard-form sizes without numeric data.
func (c *Compilation) SetSizes(s cone.Sizes) {
	c.N, c.M, c.P = s.N, s.M, s.P
}

// SetCone records the numeric cone data produced for this run.
func (c *Compilation) SetCone(d *cone.Data) error {
	doc := d.Document()
	data, err := ir.MarshalCanonical(doc)
	if err != nil {
		return fmt.Errorf("record %s: %w", c.Program, err)
	}
	c.Cone = string(data)
	c.ConeHash = ir.MustContentHash(ir.DomainCone, doc)
	c.N, c.M, c.P = d.N, d.M, d.P
	return nil
}

// Fail marks the run as failed with err.
func (c *Compilation) Fail(err error) {
	c.Status = StatusError
	c.Error = err.Error()
}

// Compatible reports whether the record was written with the same major
// format version as this compiler. Records with an unparseable version are
// incompatible.
func (c Compilation) Compatible() bool {
	have, err := semver.NewVersion(c.FormatVersion)
	if err != nil {
		return false
	}
	want := semver.MustParse(ir.FormatVersion)
	return have.Major() == want.Major()
}
