package harness

import (
	"github.com/roach88/qcml/internal/cone"
	"github.com/roach88/qcml/internal/pipeline"
	"github.com/roach88/qcml/internal/store"
)

// Result is the outcome of running a scenario.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	RunID string `json:"run_id"`

	// Curvature of the objective as written, before canonicalization.
	Curvature string `json:"curvature,omitempty"`

	// Cone is the symbolic cone program listing.
	Cone string `json:"cone,omitempty"`

	// Data is the numeric cone data, nil when compilation failed.
	Data *cone.Data `json:"data,omitempty"`

	// Err is the first pipeline error, if any.
	Err error `json:"-"`

	// Errors contains assertion failure messages.
	Errors []string `json:"errors,omitempty"`

	// Record is the row written to the compilation log.
	Record *store.Compilation `json:"record,omitempty"`

	pipe *pipeline.Pipeline
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{Pass: true, Errors: []string{}}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
