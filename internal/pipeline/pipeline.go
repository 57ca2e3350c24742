// Package pipeline drives one problem through the compiler stages.
//
// A Pipeline moves through PARSE → CANONICALIZE → CODEGEN → COMPLETE:
//
//   - Load accepts a DCP program and moves to CANONICALIZE.
//   - Canonicalize rewrites the program and moves to CODEGEN.
//   - Codegen assembles the cone program and moves to COMPLETE.
//   - SetDims after COMPLETE moves back to CODEGEN, because new sizes can
//     change the sparsity pattern of the cone data.
//
// Forward, Backward and ConeProgram need COMPLETE. Symbolic reads the cone
// program from CODEGEN on, before any sizes are known. A Pipeline owns its
// program and is not safe for concurrent use.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"maps"

	"github.com/roach88/qcml/internal/ast"
	"github.com/roach88/qcml/internal/canon"
	"github.com/roach88/qcml/internal/cone"
	"github.com/roach88/qcml/internal/dcp"
	"github.com/roach88/qcml/internal/ir"
	"github.com/roach88/qcml/internal/linalg"
)

// State is a pipeline stage.
type State int

const (
	StateParse State = iota
	StateCanonicalize
	StateCodegen
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateParse:
		return "PARSE"
	case StateCanonicalize:
		return "CANONICALIZE"
	case StateCodegen:
		return "CODEGEN"
	case StateComplete:
		return "COMPLETE"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Pipeline is one compilation run.
type Pipeline struct {
	runID  string
	state  State
	prog   *ast.Program
	cone   *cone.Program
	dims   map[string]int
	logger *slog.Logger
	ids    RunIDGenerator
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithRunIDGenerator replaces the UUIDv7 run ID generator.
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(p *Pipeline) { p.ids = g }
}

// New returns a pipeline in the PARSE state.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		logger: slog.Default(),
		ids:    UUIDv7Generator{},
		dims:   map[string]int{},
	}
	for _, opt := range opts {
		opt(p)
	}
	p.runID = p.ids.Generate()
	return p
}

// RunID identifies this pipeline run.
func (p *Pipeline) RunID() string { return p.runID }

// State returns the current stage.
func (p *Pipeline) State() State { return p.state }

// Program returns the loaded program, or nil before Load.
func (p *Pipeline) Program() *ast.Program { return p.prog }

// Dims returns a copy of the dimension sizes.
func (p *Pipeline) Dims() map[string]int { return maps.Clone(p.dims) }

// Load validates prog and makes it the pipeline's program. A non-DCP
// program is rejected with DCP_VIOLATION and the pipeline stays in PARSE.
func (p *Pipeline) Load(prog *ast.Program) error {
	p.state, p.prog, p.cone = StateParse, nil, nil
	if err := dcp.Check(prog); err != nil {
		p.logger.Debug("program rejected", "run", p.runID, "program", prog.Name, "error", err)
		return err
	}
	p.prog = prog
	p.state = StateCanonicalize
	if prog.IsCanonical() {
		p.state = StateCodegen
	}
	p.logger.Debug("program loaded", "run", p.runID, "program", prog.Name,
		"variables", len(prog.Variables()), "constraints", len(prog.Constraints))
	return nil
}

// Canonicalize rewrites the program into affine and cone constraints. It
// is a no-op once the pipeline is past CANONICALIZE.
func (p *Pipeline) Canonicalize() error {
	switch p.state {
	case StateParse:
		return p.invalid("canonicalize")
	case StateCanonicalize:
	default:
		return nil
	}
	if err := canon.Canonicalize(p.prog, canon.WithLogger(p.logger)); err != nil {
		return err
	}
	p.state = StateCodegen
	p.logger.Debug("program canonicalized", "run", p.runID, "program", p.prog.Name,
		"aux", len(p.prog.Aux()), "constraints", len(p.prog.Constraints))
	return nil
}

// SetDims sets dimension sizes. After COMPLETE the pipeline moves back to
// CODEGEN.
func (p *Pipeline) SetDims(dims map[string]int) error {
	if p.state == StateParse {
		return p.invalid("set dimensions")
	}
	p.dims = maps.Clone(dims)
	if p.dims == nil {
		p.dims = map[string]int{}
	}
	if p.state == StateComplete {
		p.state = StateCodegen
		p.cone = nil
	}
	return nil
}

// Codegen assembles the cone program for the current dimensions. In
// COMPLETE it regenerates.
func (p *Pipeline) Codegen() error {
	if p.state != StateCodegen && p.state != StateComplete {
		return p.invalid("generate code")
	}
	cp, err := cone.Assemble(p.prog)
	if err != nil {
		return err
	}
	sizes, err := cp.Sizes(p.dims)
	if err != nil {
		return err
	}
	p.cone = cp
	p.state = StateComplete
	p.logger.Debug("cone program assembled", "run", p.runID, "program", p.prog.Name,
		"n", sizes.N, "p", sizes.P, "l", sizes.L, "cones", len(sizes.Q), "m", sizes.M)
	return nil
}

// Symbolic returns the cone program without checking dimension sizes. The
// state is unchanged: Forward still needs SetDims and Codegen.
func (p *Pipeline) Symbolic() (*cone.Program, error) {
	switch p.state {
	case StateComplete:
		return p.cone, nil
	case StateCodegen:
		return cone.Assemble(p.prog)
	}
	return nil, p.invalid("assemble the symbolic program")
}

// ConeProgram returns the assembled symbolic cone program.
func (p *Pipeline) ConeProgram() (*cone.Program, error) {
	if p.state != StateComplete {
		return nil, p.invalid("read the cone program")
	}
	return p.cone, nil
}

// Forward evaluates the cone data for params at the pipeline dimensions.
func (p *Pipeline) Forward(params map[string]*linalg.Dense) (*cone.Data, error) {
	if p.state != StateComplete {
		return nil, p.invalid("run forward")
	}
	return p.cone.Forward(params, p.dims)
}

// Backward maps solver vectors back to named variable values.
func (p *Pipeline) Backward(x, y, z []float64) (map[string]*linalg.Dense, error) {
	if p.state != StateComplete {
		return nil, p.invalid("run backward")
	}
	return p.cone.Backward(x, y, z, p.dims)
}

func (p *Pipeline) invalid(action string) error {
	return ir.Errorf(ir.CodeInvalidState, "cannot %s in state %s", action, p.state)
}

// SolverResult is what a conic solver reports: the primal vector x, the
// duals y (equalities) and z (cones), and the primal cost cᵀx.
type SolverResult struct {
	Status string
	X      []float64
	Y      []float64
	Z      []float64
	PCost  float64
}

// Solver solves the standard-form data produced by Forward. No solver
// ships with this module.
type Solver interface {
	Solve(ctx context.Context, data *cone.Data) (*SolverResult, error)
}

// Solution is a solved problem in the caller's terms.
type Solution struct {
	RunID     string
	Status    string
	Objective float64
	Values    map[string]*linalg.Dense
}

// Solve runs the remaining stages, hands the data to s and maps the
// result back.
func (p *Pipeline) Solve(ctx context.Context, params map[string]*linalg.Dense, s Solver) (*Solution, error) {
	if err := p.Canonicalize(); err != nil {
		return nil, err
	}
	if p.state == StateCodegen {
		if err := p.Codegen(); err != nil {
			return nil, err
		}
	}
	data, err := p.Forward(params)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res, err := s.Solve(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("solve %s: %w", p.prog.Name, err)
	}
	if res == nil {
		return nil, ir.Errorf(ir.CodeInvalidValue, "solve %s: solver returned no result", p.prog.Name)
	}
	values, err := p.Backward(res.X, res.Y, res.Z)
	if err != nil {
		return nil, fmt.Errorf("solve %s: %w", p.prog.Name, err)
	}
	sol := &Solution{
		RunID:     p.runID,
		Status:    res.Status,
		Objective: data.ObjectiveValue(res.PCost),
		Values:    values,
	}
	p.logger.Info("problem solved", "run", p.runID, "program", p.prog.Name,
		"status", sol.Status, "objective", sol.Objective)
	return sol, nil
}
