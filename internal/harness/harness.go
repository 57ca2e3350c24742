package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/qcml/internal/ast"
	"github.com/roach88/qcml/internal/compiler"
	"github.com/roach88/qcml/internal/pipeline"
	"github.com/roach88/qcml/internal/store"
)

// Harness runs scenarios against a compilation log.
type Harness struct {
	store  *store.Store
	logger *slog.Logger
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger sets the logger handed to each pipeline.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) { h.logger = l }
}

// New returns a harness that records runs in st.
func New(st *store.Store, opts ...Option) *Harness {
	h := &Harness{
		store:  st,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run executes a scenario in a fresh in-memory log and returns the result.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	return New(st).Run(context.Background(), scenario)
}

// Run compiles the scenario's problem with a fixed run ID, records the
// run, and evaluates the assertions.
//
// Pipeline failures are part of the result, so error assertions can check
// them. A problem file that does not load is an execution error.
func (h *Harness) Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	prog, err := loadProgram(scenario)
	if err != nil {
		return nil, err
	}

	runID := scenario.RunID
	if runID == "" {
		runID = "scenario-" + scenario.Name
	}
	rec, err := store.NewCompilation(runID, prog, scenario.Dims)
	if err != nil {
		return nil, err
	}

	result := NewResult()
	result.RunID = runID
	if prog.Objective != nil {
		result.Curvature = prog.Objective.Curvature().String()
	}

	p := pipeline.New(
		pipeline.WithLogger(h.logger),
		pipeline.WithRunIDGenerator(pipeline.NewFixedGenerator(runID)),
	)
	result.pipe = p
	if err := h.compile(p, prog, scenario, result, &rec); err != nil {
		result.Err = err
		rec.Fail(err)
	}

	if err := h.store.WriteCompilation(ctx, rec); err != nil {
		return nil, fmt.Errorf("record %s: %w", scenario.Name, err)
	}
	saved, err := h.store.ReadCompilation(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("read back %s: %w", scenario.Name, err)
	}
	result.Record = &saved

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	if result.Err != nil && !expectsError(scenario.Assertions) {
		result.AddError(fmt.Sprintf("unexpected error: %v", result.Err))
	}

	h.logger.Debug("scenario finished",
		"scenario", scenario.Name,
		"run", runID,
		"pass", result.Pass,
	)
	return result, nil
}

func (h *Harness) compile(p *pipeline.Pipeline, prog *ast.Program, scenario *Scenario, result *Result, rec *store.Compilation) error {
	if err := p.Load(prog); err != nil {
		return err
	}
	if err := p.Canonicalize(); err != nil {
		return err
	}
	if err := p.SetDims(scenario.Dims); err != nil {
		return err
	}
	if err := p.Codegen(); err != nil {
		return err
	}

	cp, err := p.ConeProgram()
	if err != nil {
		return err
	}
	result.Cone = cp.String()
	sizes, err := cp.Sizes(scenario.Dims)
	if err != nil {
		return err
	}
	rec.SetSizes(sizes)

	params, err := scenario.Matrices()
	if err != nil {
		return err
	}
	data, err := p.Forward(params)
	if err != nil {
		return err
	}
	result.Data = data
	return rec.SetCone(data)
}

func loadProgram(scenario *Scenario) (*ast.Program, error) {
	res, errs := compiler.Load(scenario.Problem, compiler.LoadModeFailFast)
	if len(errs) > 0 {
		return nil, fmt.Errorf("load %s: %w", scenario.Problem, errs[0])
	}
	if scenario.Program == "" {
		if len(res.Programs) != 1 {
			return nil, fmt.Errorf("%s holds %d problems, set program", scenario.Problem, len(res.Programs))
		}
		return res.Programs[0], nil
	}
	prog := res.Program(scenario.Program)
	if prog == nil {
		return nil, fmt.Errorf("problem %q not found in %s", scenario.Program, scenario.Problem)
	}
	return prog, nil
}

func expectsError(as []Assertion) bool {
	for _, a := range as {
		if a.Type == AssertError {
			return true
		}
	}
	return false
}
