package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/qcml/internal/ast"
	"github.com/roach88/qcml/internal/compiler"
	"github.com/roach88/qcml/internal/harness"
	"github.com/roach88/qcml/internal/ir"
	"github.com/roach88/qcml/internal/pipeline"
	"github.com/roach88/qcml/internal/store"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output   string // output file path
	Name     string // problem to compile; all when empty
	Values   string // YAML values file
	Database string // compilation log

	// RunIDs overrides the run ID generator (for testing).
	RunIDs pipeline.RunIDGenerator
}

// CompiledProblem is the result of compiling one problem.
type CompiledProblem struct {
	Name        string         `json:"name"`
	RunID       string         `json:"run_id"`
	ProblemHash string         `json:"problem_hash"`
	Cone        string         `json:"cone"`
	Sizes       map[string]any `json:"sizes,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
	Previous    string         `json:"previous_run,omitempty"`
}

func (c *CompiledProblem) document() map[string]any {
	m := map[string]any{
		"name":         c.Name,
		"run_id":       c.RunID,
		"problem_hash": c.ProblemHash,
		"cone":         c.Cone,
	}
	if c.Sizes != nil {
		m["sizes"] = c.Sizes
	}
	if c.Data != nil {
		m["data"] = c.Data
	}
	return m
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <file|dir>",
		Short: "Compile problems to cone programs",
		Long: `Compile CUE problems to second-order cone programs.

Each problem is checked against the DCP rules, canonicalized and assembled
into a symbolic cone program. With --values, the dimensions and parameter
values are applied and the numeric standard-form data is produced.

Examples:
  qcml compile problems/lp.cue
  qcml compile problems/ --name lp --values lp.yaml --format json
  qcml compile problems/lp.cue --values lp.yaml -o lp.json --db qcml.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write canonical JSON to this file")
	cmd.Flags().StringVar(&opts.Name, "name", "", "compile only the named problem")
	cmd.Flags().StringVar(&opts.Values, "values", "", "YAML file with dims and params")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record compilations in this SQLite log")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	env, cleanup, err := newCompileEnv(opts, formatter, cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	results, err := compilePath(cmd.Context(), opts, path, formatter, env)
	if err != nil {
		return err
	}

	if opts.Output != "" {
		if err := writeCompiled(results, opts.Output); err != nil {
			formatter.Error(ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
			return WrapExitError(ExitCommandError, "write output", err)
		}
	}

	if opts.Format == "json" {
		return formatter.Success(results)
	}
	printCompiled(formatter, results)
	if opts.Output != "" {
		fmt.Fprintf(formatter.Writer, "Wrote cone data to %s\n", opts.Output)
	}
	return nil
}

// newCompileEnv loads the values file and opens the compilation log
// named by opts. The returned cleanup closes the log.
func newCompileEnv(opts *CompileOptions, formatter *OutputFormatter, cmd *cobra.Command) (compileEnv, func(), error) {
	env := compileEnv{
		logger: newLogger(opts.RootOptions, cmd.ErrOrStderr()),
		ids:    opts.RunIDs,
	}
	if opts.Values != "" {
		vals, err := harness.LoadValues(opts.Values)
		if err != nil {
			formatter.Error(compiler.ErrCodeLoadFailed, err.Error(), nil)
			return env, nil, WrapExitError(ExitCommandError, "load values", err)
		}
		env.values = vals
	}
	if opts.Database == "" {
		return env, func() {}, nil
	}
	st, err := store.Open(opts.Database)
	if err != nil {
		formatter.Error(compiler.ErrCodeGeneric, err.Error(), nil)
		return env, nil, WrapExitError(ExitCommandError, "open database", err)
	}
	env.store = st
	return env, func() { st.Close() }, nil
}

// compilePath compiles every selected problem in path, stopping at the
// first failure.
func compilePath(ctx context.Context, opts *CompileOptions, path string, formatter *OutputFormatter, env compileEnv) ([]*CompiledProblem, error) {
	progs, err := loadPrograms(formatter, path, opts.Name)
	if err != nil {
		return nil, err
	}

	results := make([]*CompiledProblem, 0, len(progs))
	for _, prog := range progs {
		formatter.VerboseLog("Compiling problem: %s", prog.Name)
		res, err := compileProgram(ctx, prog, env)
		if err != nil {
			formatter.Error(ErrorCode(err), fmt.Sprintf("%s: %v", prog.Name, err), nil)
			return nil, WrapExitError(ExitFailure, "compile "+prog.Name, err)
		}
		results = append(results, res)
	}
	return results, nil
}

func printCompiled(formatter *OutputFormatter, results []*CompiledProblem) {
	w := formatter.Writer
	for _, r := range results {
		fmt.Fprintf(w, "✓ %s (run %s)\n", r.Name, r.RunID)
		if r.Sizes != nil {
			fmt.Fprintf(w, "  n=%v m=%v p=%v l=%v q=%v\n",
				r.Sizes["n"], r.Sizes["m"], r.Sizes["p"], r.Sizes["l"], r.Sizes["q"])
		}
		if r.Previous != "" {
			fmt.Fprintf(w, "  same problem and dims as run %s\n", r.Previous)
		}
		for _, line := range strings.Split(strings.TrimRight(r.Cone, "\n"), "\n") {
			fmt.Fprintf(w, "  %s\n", line)
		}
	}
}

// ErrCodeWriteFailed is reported when an output file cannot be written.
const ErrCodeWriteFailed = "E007"

// loadPrograms loads path, reporting every load error, and returns the
// selected problems.
func loadPrograms(formatter *OutputFormatter, path, name string) ([]*ast.Program, error) {
	res, errs := compiler.Load(path, compiler.LoadModeCollectAll)
	if res == nil && len(errs) > 0 {
		formatter.Error(ErrorCode(errs[0]), errs[0].Error(), nil)
		return nil, WrapExitError(ExitCommandError, "load "+path, errs[0])
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", res.FileCount, path)
	if len(errs) > 0 {
		messages := make([]string, len(errs))
		for i, e := range errs {
			messages[i] = e.Error()
		}
		formatter.Error(ErrorCode(errs[0]), fmt.Sprintf("%d error(s) in %s", len(errs), path), messages)
		if formatter.Format != "json" {
			for _, m := range messages {
				fmt.Fprintf(formatter.Writer, "  %s\n", m)
			}
		}
		return nil, NewExitError(ExitFailure, fmt.Sprintf("%d error(s) in %s", len(errs), path))
	}

	if name == "" {
		return res.Programs, nil
	}
	p := res.Program(name)
	if p == nil {
		formatter.Error(compiler.ErrCodeNotFound, fmt.Sprintf("problem %q not found in %s", name, path), nil)
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("problem %q not found", name))
	}
	return []*ast.Program{p}, nil
}

type compileEnv struct {
	logger *slog.Logger
	store  *store.Store
	ids    pipeline.RunIDGenerator
	values *harness.Values
}

// compileProgram runs one problem through the pipeline and, when a store
// is configured, records the run whether or not it succeeded.
func compileProgram(ctx context.Context, prog *ast.Program, env compileEnv) (*CompiledProblem, error) {
	vals := env.values
	popts := []pipeline.Option{pipeline.WithLogger(env.logger)}
	if env.ids != nil {
		popts = append(popts, pipeline.WithRunIDGenerator(env.ids))
	}
	p := pipeline.New(popts...)

	var dims map[string]int
	if vals != nil {
		dims = vals.Dims
	}
	rec, err := store.NewCompilation(p.RunID(), prog, dims)
	if err != nil {
		return nil, err
	}
	out := &CompiledProblem{Name: prog.Name, RunID: p.RunID(), ProblemHash: rec.ProblemHash}

	if env.store != nil {
		prev, ok, err := env.store.Latest(ctx, rec.ProblemHash, dims)
		if err != nil {
			return nil, err
		}
		if ok {
			out.Previous = prev.ID
			env.logger.Debug("problem seen before", "program", prog.Name, "run", prev.ID)
		}
	}

	err = runPipeline(p, prog, vals, out, &rec)
	if err != nil {
		rec.Fail(err)
	}
	if env.store != nil {
		if werr := env.store.WriteCompilation(ctx, rec); werr != nil {
			return nil, werr
		}
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func runPipeline(p *pipeline.Pipeline, prog *ast.Program, vals *harness.Values, out *CompiledProblem, rec *store.Compilation) error {
	if err := p.Load(prog); err != nil {
		return err
	}
	if err := p.Canonicalize(); err != nil {
		return err
	}

	// Without values only the symbolic form is reported.
	if vals == nil {
		cp, err := p.Symbolic()
		if err != nil {
			return err
		}
		out.Cone = cp.String()
		return nil
	}

	if err := p.SetDims(vals.Dims); err != nil {
		return err
	}
	if err := p.Codegen(); err != nil {
		return err
	}
	cp, err := p.ConeProgram()
	if err != nil {
		return err
	}
	out.Cone = cp.String()
	sizes, err := cp.Sizes(vals.Dims)
	if err != nil {
		return err
	}
	rec.SetSizes(sizes)
	out.Sizes = map[string]any{"n": sizes.N, "m": sizes.M, "p": sizes.P, "l": sizes.L, "q": sizes.Q}

	params, err := vals.Matrices()
	if err != nil {
		return ir.Errorf(ir.CodeInvalidValue, "%v", err)
	}
	data, err := p.Forward(params)
	if err != nil {
		return err
	}
	if err := rec.SetCone(data); err != nil {
		return err
	}
	out.Data = data.Document()
	return nil
}

func writeCompiled(results []*CompiledProblem, path string) error {
	docs := make([]any, len(results))
	for i, r := range results {
		docs[i] = r.document()
	}
	data, err := ir.MarshalCanonical(map[string]any{
		"format":   ir.FormatVersion,
		"problems": docs,
	})
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
