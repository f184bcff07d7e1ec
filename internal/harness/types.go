package harness

import "github.com/roach88/pathminer/internal/engine"

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	// Sequences are the emitted sequences in emission order.
	Sequences []engine.Sequence `json:"-"`

	// Stats are the extraction totals.
	Stats engine.Stats `json:"stats"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:      true,
		Sequences: []engine.Sequence{},
		Errors:    []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
