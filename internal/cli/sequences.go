package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/pathminer/internal/ir"
	"github.com/roach88/pathminer/internal/store"
)

// SequencesOptions holds flags for the sequences command.
type SequencesOptions struct {
	*RootOptions
	Database string
	RunID    string
	Method   string
	Type     string
	Call     string
	Runs     bool
}

// SequencesResult is the JSON payload of the sequences command.
type SequencesResult struct {
	Sequences []store.StoredSequence `json:"sequences"`
	Count     int                    `json:"count"`
}

// RunsResult is the JSON payload of the sequences command with --runs.
type RunsResult struct {
	Runs []RunSummary `json:"runs"`
}

// RunSummary describes one stored run.
type RunSummary struct {
	ID        string         `json:"id"`
	Seed      uint64         `json:"seed"`
	Options   map[string]any `json:"options"`
	Sequences int            `json:"sequences"`
}

// NewSequencesCommand creates the sequences command.
func NewSequencesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SequencesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sequences",
		Short: "Query sequences stored by extract --db",
		Long: `Read sequences back from a run database.

Filters combine with AND. Signatures may be given with or without the
surrounding quotes. Sequences are listed in emission order.

Examples:
  pathminer sequences --db runs.db --runs
  pathminer sequences --db runs.db --run <run-id>
  pathminer sequences --db runs.db --type java.io.File --call 'java.io.File: boolean delete()'`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSequences(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "only sequences of this run")
	cmd.Flags().StringVar(&opts.Method, "method", "", "only sequences extracted from this method")
	cmd.Flags().StringVar(&opts.Type, "type", "", "only sequences of objects of this type")
	cmd.Flags().StringVar(&opts.Call, "call", "", "only sequences containing this call")
	cmd.Flags().BoolVar(&opts.Runs, "runs", false, "list runs instead of sequences")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runSequences(opts *SequencesOptions, cmd *cobra.Command) error {
	if _, err := os.Stat(opts.Database); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", opts.Database))
	}

	filter := store.Filter{RunID: opts.RunID, ObjectType: opts.Type}
	var err error
	if filter.Method, err = normalizeSignature(opts.Method); err != nil {
		return WrapExitError(ExitCommandError, "invalid --method", err)
	}
	if filter.Call, err = normalizeSignature(opts.Call); err != nil {
		return WrapExitError(ExitCommandError, "invalid --call", err)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if opts.Runs {
		runs, err := st.ReadRuns(ctx)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to read runs", err)
		}
		result := RunsResult{Runs: make([]RunSummary, 0, len(runs))}
		for _, r := range runs {
			n, err := st.CountSequences(ctx, r.ID)
			if err != nil {
				return WrapExitError(ExitFailure, "failed to count sequences", err)
			}
			result.Runs = append(result.Runs, RunSummary{ID: r.ID, Seed: r.Seed, Options: r.Options, Sequences: n})
		}
		if opts.Format == "json" {
			return formatter.Success(result)
		}
		if len(result.Runs) == 0 {
			fmt.Fprintln(formatter.Writer, "No runs found.")
			return nil
		}
		for _, r := range result.Runs {
			fmt.Fprintf(formatter.Writer, "%s\tseed=%d\tsequences=%d\n", r.ID, r.Seed, r.Sequences)
		}
		return nil
	}

	seqs, err := st.ReadSequences(ctx, filter.Predicate())
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read sequences", err)
	}
	formatter.VerboseLog("%d sequence(s) matched", len(seqs))

	if opts.Format == "json" {
		return formatter.Success(SequencesResult{Sequences: seqs, Count: len(seqs)})
	}
	if len(seqs) == 0 {
		fmt.Fprintln(formatter.Writer, "No sequences found.")
		return nil
	}
	for _, s := range seqs {
		fmt.Fprintf(formatter.Writer, "%s\t%s\t%s\n", s.Method, s.Object.Type, s.History.Text(false))
	}
	return nil
}

// normalizeSignature returns sig in its quoted form, or "" for "".
func normalizeSignature(sig string) (string, error) {
	if sig == "" {
		return "", nil
	}
	ref, err := ir.ParseSignature(sig)
	if err != nil {
		return "", err
	}
	return ref.Signature(), nil
}
