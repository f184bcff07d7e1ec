package harness

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/pathminer/internal/cfg"
	"github.com/roach88/pathminer/internal/compiler"
	"github.com/roach88/pathminer/internal/engine"
	"github.com/roach88/pathminer/internal/monitor"
	"github.com/roach88/pathminer/internal/store"
	"github.com/roach88/pathminer/internal/testutil"
)

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh in-memory database. Execution errors
// (unreadable inputs, defects, an irrelevant app) are returned as errors;
// failed assertions are reported in the result.
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	prog, err := compiler.LoadProgramFile(scenario.Program)
	if err != nil {
		return nil, fmt.Errorf("failed to load program: %w", err)
	}
	monitors, err := monitor.ParseFile(scenario.Monitors)
	if err != nil {
		return nil, fmt.Errorf("failed to load monitors: %w", err)
	}

	mode := cfg.ModeBrief
	if scenario.UnitGraph != "" {
		mode = cfg.Mode(scenario.UnitGraph)
	}
	p, err := cfg.New(prog, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to build program: %w", err)
	}

	opts, err := scenario.Options.Apply(engine.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	runID := testutil.NewFixedRunIDGenerator(scenario.Name).Generate()
	if err := st.WriteRun(ctx, store.Run{ID: runID, Seed: scenario.Seed, Options: opts.Fields()}); err != nil {
		return nil, err
	}

	collector := &engine.Collector{}
	x, err := engine.New(p, monitors, opts,
		engine.MultiSink{collector, store.NewSink(st, runID)},
		engine.WithSeed(scenario.Seed),
		engine.WithWallClock(testutil.NewManualClock()),
	)
	if err != nil {
		return nil, err
	}

	stats, err := extract(ctx, x, p, scenario.Methods)
	if err != nil {
		return nil, fmt.Errorf("extraction failed: %w", err)
	}

	result := NewResult()
	result.Stats = stats
	result.Sequences = append(result.Sequences, collector.Sequences...)

	slog.Debug("scenario executed",
		"scenario", scenario.Name,
		"sequences", len(result.Sequences),
		"methods", stats.Methods,
	)

	actx := &AssertionContext{Store: st, RunID: runID, Ctx: ctx}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

// extract walks the listed methods in order, or runs the full method
// selection when none are listed.
func extract(ctx context.Context, x *engine.Extractor, p cfg.Program, methods []string) (engine.Stats, error) {
	if len(methods) == 0 {
		return x.Run(ctx)
	}
	for _, sig := range methods {
		m, ok := p.Method(quoted(sig))
		if !ok {
			return x.Stats(), fmt.Errorf("method %s not found", quoted(sig))
		}
		if _, err := x.ExtractMethod(ctx, m); err != nil {
			return x.Stats(), err
		}
	}
	return x.Stats(), nil
}
