package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/qcml/internal/compiler"
	"github.com/roach88/qcml/internal/dcp"
)

// ProblemReport is the validation outcome of one problem.
type ProblemReport struct {
	Name      string `json:"name"`
	Sense     string `json:"sense"`
	Curvature string `json:"curvature"`
	DCP       bool   `json:"dcp"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                       `json:"valid"`
	Problems []ProblemReport            `json:"problems,omitempty"`
	Errors   []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <file|dir>",
		Short: "Check problems without compiling them",
		Long: `Check CUE problems for structural errors and DCP violations.

Every error in every problem is reported. No cone program is built, so
this is faster than compile for development feedback.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	loadResult, loadErrors := compiler.Load(path, compiler.LoadModeCollectAll)
	if loadResult == nil && len(loadErrors) > 0 {
		var loadErr *compiler.LoadError
		if errors.As(loadErrors[0], &loadErr) {
			return outputValidateError(formatter, loadErr.Code, loadErr.Message, nil)
		}
		return outputValidateError(formatter, ErrorCode(loadErrors[0]), loadErrors[0].Error(), nil)
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, path)

	var validationErrors []compiler.ValidationError
	for _, err := range loadErrors {
		validationErrors = append(validationErrors, toValidationError(err))
	}

	reports := make([]ProblemReport, 0, len(loadResult.Programs))
	for _, p := range loadResult.Programs {
		formatter.VerboseLog("Validating problem: %s", p.Name)
		violations := dcp.Validate(p)
		for _, v := range violations {
			validationErrors = append(validationErrors, compiler.ValidationError{
				Field:   "problem." + p.Name + "." + v.Field,
				Message: v.Message,
				Code:    v.Code,
			})
		}
		reports = append(reports, ProblemReport{
			Name:      p.Name,
			Sense:     p.Sense.String(),
			Curvature: p.Objective.Curvature().String(),
			DCP:       len(violations) == 0,
		})
	}

	if len(validationErrors) > 0 {
		return outputValidationErrors(formatter, reports, validationErrors)
	}
	return outputValidateSuccess(formatter, reports)
}

func toValidationError(err error) compiler.ValidationError {
	var ce *compiler.CompileError
	if errors.As(err, &ce) {
		return compiler.ValidationError{
			Field:   ce.Field,
			Message: ce.Message,
			Code:    ErrorCode(err),
			Line:    ce.Pos.Line(),
			Pos:     ce.Pos,
		}
	}
	var le *compiler.LoadError
	if errors.As(err, &le) {
		return compiler.ValidationError{
			Field:   "load",
			Message: le.Message,
			Code:    le.Code,
			Line:    le.Pos.Line(),
			Pos:     le.Pos,
		}
	}
	return compiler.ValidationError{Field: "load", Message: err.Error(), Code: ErrorCode(err)}
}

func outputValidateSuccess(formatter *OutputFormatter, reports []ProblemReport) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Problems: reports})
	}

	for _, r := range reports {
		fmt.Fprintf(formatter.Writer, "✓ %s: %s %s\n", r.Name, r.Sense, r.Curvature)
	}
	fmt.Fprintln(formatter.Writer, "✓ All problems valid")
	return nil
}

// outputValidateError reports a command-level failure (exit code 2).
func outputValidateError(formatter *OutputFormatter, code, message string, details any) error {
	_ = formatter.Error(code, message, details)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

func outputValidationErrors(formatter *OutputFormatter, reports []ProblemReport, errs []compiler.ValidationError) error {
	failure := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))

	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Problems: reports, Errors: errs},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}
		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
		return failure
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}
	return failure
}
