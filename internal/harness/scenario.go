package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/pathminer/internal/cfg"
	"github.com/roach88/pathminer/internal/engine"
)

// Scenario defines one extraction test.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Program is the program description (CUE or JSON).
	Program string `yaml:"program"`

	// Monitors is the monitor definition file.
	Monitors string `yaml:"monitors"`

	// Seed seeds successor choice.
	Seed uint64 `yaml:"seed"`

	// UnitGraph is "brief" (default) or "trap".
	UnitGraph string `yaml:"unit_graph,omitempty"`

	// Methods restricts the walk to these signatures, in order.
	Methods []string `yaml:"methods,omitempty"`

	// Options override the extraction defaults.
	Options ScenarioOptions `yaml:"options,omitempty"`

	// Assertions validate the emitted sequences.
	Assertions []Assertion `yaml:"assertions"`
}

// ScenarioOptions overrides engine.DefaultOptions. Unset fields keep the
// default.
type ScenarioOptions struct {
	MaxSequences      *int     `yaml:"max_sequences,omitempty"`
	MaxEvents         *int     `yaml:"max_events,omitempty"`
	MaxDepth          *int     `yaml:"max_depth,omitempty"`
	Timeout           string   `yaml:"timeout,omitempty"`
	Interprocedural   *bool    `yaml:"interprocedural,omitempty"`
	EntryPoints       *bool    `yaml:"entry_points,omitempty"`
	UniquePaths       *bool    `yaml:"unique_paths,omitempty"`
	ValidateSequences *bool    `yaml:"validate_sequences,omitempty"`
	PrintBranches     *bool    `yaml:"print_branches,omitempty"`
	PrintLocation     *bool    `yaml:"print_location,omitempty"`
	Types             []string `yaml:"types,omitempty"`
}

// Apply returns base with the overrides applied.
func (o ScenarioOptions) Apply(base engine.Options) (engine.Options, error) {
	setInt := func(dst *int, v *int) {
		if v != nil {
			*dst = *v
		}
	}
	setBool := func(dst *bool, v *bool) {
		if v != nil {
			*dst = *v
		}
	}

	setInt(&base.MaxSequences, o.MaxSequences)
	setInt(&base.MaxEvents, o.MaxEvents)
	setInt(&base.MaxDepth, o.MaxDepth)
	setBool(&base.Interprocedural, o.Interprocedural)
	setBool(&base.EntryPoints, o.EntryPoints)
	setBool(&base.UniquePaths, o.UniquePaths)
	setBool(&base.ValidateSequences, o.ValidateSequences)
	setBool(&base.PrintBranches, o.PrintBranches)
	setBool(&base.PrintLocation, o.PrintLocation)
	if o.Timeout != "" {
		d, err := time.ParseDuration(o.Timeout)
		if err != nil {
			return base, fmt.Errorf("timeout: %w", err)
		}
		base.Timeout = d
	}
	if len(o.Types) > 0 {
		base.Types = append([]string(nil), o.Types...)
	}
	return base, base.Validate()
}

// Assertion validates the outcome of a scenario.
type Assertion struct {
	// Type is one of sequence_count, contains_sequence,
	// no_sequence_with_call, stored_count.
	Type string `yaml:"type"`

	// Count is the exact expected number (sequence_count, stored_count).
	Count *int `yaml:"count,omitempty"`

	// Min is the least expected number (sequence_count).
	Min *int `yaml:"min,omitempty"`

	// Calls is the exact call list of a sequence (contains_sequence).
	Calls []string `yaml:"calls,omitempty"`

	// Text is the exact plain-text line of a sequence (contains_sequence).
	Text string `yaml:"text,omitempty"`

	// ObjectType restricts matching sequences to one receiver type
	// (contains_sequence, stored_count).
	ObjectType string `yaml:"object_type,omitempty"`

	// Call is a call signature (no_sequence_with_call, stored_count).
	Call string `yaml:"call,omitempty"`

	// Method restricts stored sequences to one entry method (stored_count).
	Method string `yaml:"method,omitempty"`
}

// Assertion type constants.
const (
	AssertSequenceCount      = "sequence_count"
	AssertContainsSequence   = "contains_sequence"
	AssertNoSequenceWithCall = "no_sequence_with_call"
	AssertStoredCount        = "stored_count"
)

// LoadScenario reads and parses a scenario YAML file. Program and monitor
// paths are resolved against the scenario's directory. Unknown fields are
// rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	base := filepath.Dir(path)
	scenario.Program = resolve(base, scenario.Program)
	scenario.Monitors = resolve(base, scenario.Monitors)

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func resolve(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Program == "" {
		return fmt.Errorf("program is required")
	}
	if s.Monitors == "" {
		return fmt.Errorf("monitors is required")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for _, p := range []string{s.Program, s.Monitors} {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return fmt.Errorf("file not found: %s", p)
		}
	}

	switch cfg.Mode(s.UnitGraph) {
	case "", cfg.ModeBrief, cfg.ModeTrap:
	default:
		return fmt.Errorf("unit_graph must be brief or trap, got %q", s.UnitGraph)
	}

	if _, err := s.Options.Apply(engine.DefaultOptions()); err != nil {
		return fmt.Errorf("options: %w", err)
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertSequenceCount:
		if (a.Count == nil) == (a.Min == nil) {
			return fmt.Errorf("assertions[%d]: exactly one of count or min is required for sequence_count", index)
		}
		if (a.Count != nil && *a.Count < 0) || (a.Min != nil && *a.Min < 0) {
			return fmt.Errorf("assertions[%d]: count must be non-negative for sequence_count", index)
		}
	case AssertContainsSequence:
		if (len(a.Calls) == 0) == (a.Text == "") {
			return fmt.Errorf("assertions[%d]: exactly one of calls or text is required for contains_sequence", index)
		}
	case AssertNoSequenceWithCall:
		if a.Call == "" {
			return fmt.Errorf("assertions[%d]: call is required for no_sequence_with_call", index)
		}
	case AssertStoredCount:
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: non-negative count is required for stored_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

// quoted returns a signature in its quoted form.
func quoted(sig string) string {
	sig = strings.TrimSpace(sig)
	if len(sig) >= 2 && strings.HasPrefix(sig, `"`) && strings.HasSuffix(sig, `"`) {
		return sig
	}
	return `"` + sig + `"`
}
