package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"

	"github.com/roach88/pathminer/internal/cfg"
	"github.com/roach88/pathminer/internal/compiler"
	"github.com/roach88/pathminer/internal/engine"
	"github.com/roach88/pathminer/internal/ir"
	"github.com/roach88/pathminer/internal/metrics"
	"github.com/roach88/pathminer/internal/monitor"
	"github.com/roach88/pathminer/internal/output"
	"github.com/roach88/pathminer/internal/store"
)

// ExtractOptions holds flags for the extract command.
type ExtractOptions struct {
	*RootOptions `validate:"-"`

	MonitorsFile      string
	TypestatesFile    string
	Outfile           string
	UnitGraph         string `validate:"oneof=brief trap"`
	UniquePaths       string `validate:"oneof=y n"`
	EntryPoints       string `validate:"oneof=y n"`
	ValidateSequences string `validate:"oneof=y n"`

	PrintBranches   bool
	PrintLocation   bool
	PrintStartEnd   bool
	PrintJSON       bool
	Interprocedural bool
	Attribute       bool

	MaxSeqs  int           `validate:"min=1"`
	MaxLen   int           `validate:"min=1"`
	MaxDepth int           `validate:"min=1"`
	Timeout  time.Duration `validate:"gt=0"`
	Seed     uint64

	Database    string
	MetricsFile string

	// RunIDs allows overriding the run ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs engine.RunIDGenerator `validate:"-"`
}

// ExtractResult is the summary printed after a run.
type ExtractResult struct {
	RunID string       `json:"run_id"`
	Seed  uint64       `json:"seed"`
	Stats engine.Stats `json:"stats"`
}

var extractValidate = validator.New()

// NewExtractCommand creates the extract command.
func NewExtractCommand(rootOpts *RootOptions) *cobra.Command {
	return newExtractCommand(&ExtractOptions{RootOptions: rootOpts})
}

func newExtractCommand(opts *ExtractOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract <program>",
		Short: "Extract call sequences from a program",
		Long: `Walk random bounded paths through every selected method of a program
description and write one call sequence per tracked object and path.

The program is a CUE (or JSON) description of classes and method bodies.
Monitors are read from a definition file; without one, events carry no
states. Sequences are written as plain text lines, or as one JSON document
with --print-json.

Exit codes:
  0 - Extraction finished
  1 - Defect or no tracked type present in the program
  2 - Command error (invalid flags, unreadable inputs)

Examples:
  pathminer extract app.cue --monitors-file file.txt
  pathminer extract app.cue --typestates-file types.txt --print-json --outfile seqs.json
  pathminer extract app.cue --seed 42 --db runs.db --metrics-file run.prom`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(opts, args[0], cmd)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.MonitorsFile, "monitors-file", "", "monitor definition file")
	f.StringVar(&opts.TypestatesFile, "typestates-file", "", "file listing tracked receiver types, one per line")
	f.StringVar(&opts.Outfile, "outfile", "", "sequence output file (default stdout)")
	f.StringVar(&opts.UnitGraph, "unit-graph", string(cfg.ModeBrief), "unit graph kind (brief|trap)")
	f.StringVar(&opts.UniquePaths, "unique-paths", "y", "drop repeated paths (y|n)")
	f.StringVar(&opts.EntryPoints, "obey-android-entry-points", "y", "walk only framework entry points (y|n)")
	f.StringVar(&opts.ValidateSequences, "validate-sequences", "y", "keep only sequences starting at a constructor or static call (y|n)")
	f.BoolVar(&opts.PrintBranches, "print-branches", false, "record branch events")
	f.BoolVar(&opts.PrintLocation, "print-location", false, "record call locations")
	f.BoolVar(&opts.PrintStartEnd, "print-sequence-startend", false, "bracket text lines with START and END events")
	f.BoolVar(&opts.PrintJSON, "print-json", false, "write sequences as one JSON document")
	f.BoolVar(&opts.Interprocedural, "interprocedural", false, "step into application methods")
	f.BoolVar(&opts.Attribute, "attribute", false, "prefix text lines with the relevant ancestor")
	f.IntVar(&opts.MaxSeqs, "max-seqs", engine.DefaultMaxSequences, "attempts per method")
	f.IntVar(&opts.MaxLen, "max-len", engine.DefaultMaxEvents, "maximum events per sequence")
	f.IntVar(&opts.MaxDepth, "max-depth", engine.DefaultMaxDepth, "maximum statements visited per attempt")
	f.DurationVar(&opts.Timeout, "timeout", engine.DefaultTimeout, "wall-clock limit per attempt")
	f.Uint64Var(&opts.Seed, "seed", 0, "random seed (default: time based)")
	f.StringVar(&opts.Database, "db", "", "SQLite database to store the run in")
	f.StringVar(&opts.MetricsFile, "metrics-file", "", "write run metrics in Prometheus text format")

	return cmd
}

// engineOptions maps validated flags onto extractor options.
func (o *ExtractOptions) engineOptions(types []string) engine.Options {
	return engine.Options{
		MaxSequences:      o.MaxSeqs,
		MaxEvents:         o.MaxLen,
		MaxDepth:          o.MaxDepth,
		Timeout:           o.Timeout,
		Interprocedural:   o.Interprocedural,
		EntryPoints:       o.EntryPoints == "y",
		UniquePaths:       o.UniquePaths == "y",
		ValidateSequences: o.ValidateSequences == "y",
		PrintBranches:     o.PrintBranches,
		PrintLocation:     o.PrintLocation,
		Types:             types,
	}
}

func runExtract(opts *ExtractOptions, programPath string, cmd *cobra.Command) error {
	setupLogging(opts.Verbose)

	if err := extractValidate.Struct(opts); err != nil {
		return WrapExitError(ExitCommandError, "invalid flags", err)
	}
	if !cmd.Flags().Changed("seed") {
		opts.Seed = uint64(time.Now().UnixNano())
	}

	prog, err := compiler.LoadProgramFile(programPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load program", err)
	}
	p, err := cfg.New(prog, cfg.Mode(opts.UnitGraph))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build program", err)
	}

	var monitors []*monitor.Monitor
	if opts.MonitorsFile != "" {
		monitors, err = monitor.ParseFile(opts.MonitorsFile)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load monitors", err)
		}
		for _, c := range monitor.Lint(monitors) {
			slog.Warn("conflicting transitions", "conflict", c.String())
		}
	}

	var types []string
	if opts.TypestatesFile != "" {
		types, err = readTypes(opts.TypestatesFile)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read typestates", err)
		}
	}

	engineOpts := opts.engineOptions(types)
	if err := engineOpts.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid options", err)
	}

	if opts.Interprocedural {
		for _, w := range compiler.AnalyzeRecursion(prog) {
			slog.Warn("recursion bounded by max-depth", "message", w.Message)
		}
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	runIDs := opts.RunIDs
	if runIDs == nil {
		runIDs = engine.UUIDv7Generator{}
	}
	runID := runIDs.Generate()

	format := output.FormatText
	if opts.PrintJSON {
		format = output.FormatJSON
	}
	textOpts := output.TextOptions{Sentinels: opts.PrintStartEnd, Attribute: opts.Attribute}
	var writer output.SequenceWriter
	if opts.Outfile == "" || opts.Outfile == "-" {
		writer, err = output.New(cmd.OutOrStdout(), format, textOpts)
	} else {
		writer, err = output.Create(opts.Outfile, format, textOpts)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open output", err)
	}

	sinks := engine.MultiSink{writer}
	options := []engine.Option{engine.WithSeed(opts.Seed)}
	if opts.Database != "" {
		st, err := store.Open(opts.Database)
		if err != nil {
			writer.Close()
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				slog.Error("error closing database", "error", closeErr)
			}
		}()
		start, err := st.MaxSeq(ctx)
		if err != nil {
			writer.Close()
			return WrapExitError(ExitFailure, "failed to read database", err)
		}
		fields := engineOpts.Fields()
		fields["record_version"] = ir.RecordVersion
		fields["extractor_version"] = ir.ExtractorVersion
		run := store.Run{ID: runID, Seed: opts.Seed, Options: fields, StartedSeq: start}
		if err := st.WriteRun(ctx, run); err != nil {
			writer.Close()
			return WrapExitError(ExitFailure, "failed to record run", err)
		}
		sinks = append(sinks, store.NewSink(st, runID))
		options = append(options, engine.WithSeqClock(engine.NewClockAt(start)))
	}

	recorder := metrics.New()
	x, err := engine.New(p, monitors, engineOpts, sinks, append(options, engine.WithRecorder(recorder))...)
	if err != nil {
		writer.Close()
		return WrapExitError(ExitCommandError, "invalid options", err)
	}

	slog.Info("run starting", "run_id", runID, "seed", opts.Seed, "program", programPath)
	stats, runErr := x.Run(ctx)

	if err := writer.Close(); err != nil && runErr == nil {
		runErr = fmt.Errorf("write sequences: %w", err)
	}
	if opts.MetricsFile != "" {
		if err := recorder.WriteFile(opts.MetricsFile); err != nil {
			slog.Error("error writing metrics", "error", err)
		}
	}

	if runErr != nil {
		return extractExitError(runErr)
	}

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    summaryWriter(opts, cmd),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	result := ExtractResult{RunID: runID, Seed: opts.Seed, Stats: stats}
	if opts.Format == "json" {
		return formatter.Success(result)
	}
	return formatter.Success(fmt.Sprintf("Extracted %d sequences from %d methods (%d statements, run %s, seed %d)",
		stats.Sequences, stats.Methods, stats.LOC, runID, opts.Seed))
}

// summaryWriter keeps the summary out of sequence output written to stdout.
func summaryWriter(opts *ExtractOptions, cmd *cobra.Command) io.Writer {
	if opts.Outfile == "" || opts.Outfile == "-" {
		return cmd.ErrOrStderr()
	}
	return cmd.OutOrStdout()
}

func extractExitError(err error) error {
	switch {
	case engine.IsIrrelevantAppError(err):
		return WrapExitError(ExitFailure, "nothing to extract", err)
	case engine.IsDefect(err):
		return WrapExitError(ExitFailure, "extraction defect", err)
	case errors.Is(err, context.Canceled):
		return WrapExitError(ExitFailure, "extraction interrupted", err)
	default:
		return WrapExitError(ExitFailure, "extraction failed", err)
	}
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}

// readTypes reads one type name per line. Blank lines and lines starting
// with # are skipped.
func readTypes(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var types []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		types = append(types, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return types, nil
}
