package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/pathminer/internal/ir"
)

// Snapshot renders a scenario result as canonical JSON: the scenario name,
// its seed, every emitted sequence with its provenance, and the run totals.
func Snapshot(scenario *Scenario, result *Result) ([]byte, error) {
	seqs := make([]any, len(result.Sequences))
	for i, s := range result.Sequences {
		seqs[i] = map[string]any{
			"method":      s.Method,
			"object_type": s.Object.Type,
			"ancestor":    s.Ancestor,
			"sequence":    s.History.Canonical()["sequence"],
		}
	}

	snapshot := map[string]any{
		"scenario_name": scenario.Name,
		"seed":          int64(scenario.Seed),
		"sequences":     seqs,
		"stats": map[string]any{
			"methods":   result.Stats.Methods,
			"sequences": result.Stats.Sequences,
			"loc":       result.Stats.LOC,
		},
	}
	return ir.MarshalCanonical(snapshot)
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against the scenario's golden
// file without re-running it.
func AssertGolden(t *testing.T, scenario *Scenario, result *Result) error {
	t.Helper()

	data, err := Snapshot(scenario, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)
	return nil
}
