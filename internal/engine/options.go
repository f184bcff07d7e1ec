package engine

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Defaults for extraction bounds.
const (
	// DefaultMaxSequences is the number of attempts per method.
	DefaultMaxSequences = 100

	// DefaultMaxEvents is the event ceiling of one attempt.
	DefaultMaxEvents = 1000

	// DefaultMaxDepth is the number of statement visits allowed in one
	// attempt before the walk is considered an infinite loop.
	DefaultMaxDepth = 10000

	// DefaultTimeout is the wall-clock bound of one attempt.
	DefaultTimeout = 5 * time.Second
)

// Options configures an Extractor.
type Options struct {
	// MaxSequences is the number of attempts per method.
	MaxSequences int `validate:"min=1"`

	// MaxEvents bounds the events recorded by one attempt.
	MaxEvents int `validate:"min=1"`

	// MaxDepth bounds the statement visits of one attempt.
	MaxDepth int `validate:"min=1"`

	// Timeout bounds the wall-clock time of one attempt.
	Timeout time.Duration `validate:"gt=0"`

	// Interprocedural steps into application methods.
	Interprocedural bool

	// EntryPoints restricts walks to Activity lifecycle methods.
	EntryPoints bool

	// UniquePaths drops attempts whose choice points repeat an earlier one.
	UniquePaths bool

	// ValidateSequences drops histories whose first call is neither a
	// constructor nor a static call.
	ValidateSequences bool

	// PrintBranches records branch events.
	PrintBranches bool

	// PrintLocation attaches source locations to call events.
	PrintLocation bool

	// Types restricts tracking to receivers of these exact types.
	// Empty means every reference type is tracked.
	Types []string `validate:"dive,required"`
}

// DefaultOptions returns the options used when no flags are given.
func DefaultOptions() Options {
	return Options{
		MaxSequences:      DefaultMaxSequences,
		MaxEvents:         DefaultMaxEvents,
		MaxDepth:          DefaultMaxDepth,
		Timeout:           DefaultTimeout,
		EntryPoints:       true,
		UniquePaths:       true,
		ValidateSequences: true,
	}
}

var optionsValidate = validator.New()

// Validate checks bounds and type names.
func (o Options) Validate() error {
	if err := optionsValidate.Struct(o); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}
	return nil
}

// tracks reports whether receivers of typ are tracked.
func (o Options) tracks(typ string) bool {
	if len(o.Types) == 0 {
		return true
	}
	for _, t := range o.Types {
		if t == typ {
			return true
		}
	}
	return false
}

// Fields returns the options as a flat map, as stored with a run.
func (o Options) Fields() map[string]any {
	types := o.Types
	if types == nil {
		types = []string{}
	}
	return map[string]any{
		"max_sequences":      o.MaxSequences,
		"max_events":         o.MaxEvents,
		"max_depth":          o.MaxDepth,
		"timeout":            o.Timeout.String(),
		"interprocedural":    o.Interprocedural,
		"entry_points":       o.EntryPoints,
		"unique_paths":       o.UniquePaths,
		"validate_sequences": o.ValidateSequences,
		"print_branches":     o.PrintBranches,
		"print_location":     o.PrintLocation,
		"types":              types,
	}
}
