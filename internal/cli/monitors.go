package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/pathminer/internal/monitor"
)

// MonitorsResult describes a parsed monitor definition file.
type MonitorsResult struct {
	Monitors  []MonitorTable `json:"monitors"`
	Conflicts []string       `json:"conflicts"`
}

// MonitorTable is the transition table of one automaton.
type MonitorTable struct {
	Index       int      `json:"index"`
	Transitions []string `json:"transitions"`
}

// NewMonitorsCommand creates the monitors command.
func NewMonitorsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "monitors <file>",
		Short: "Parse and lint a monitor definition file",
		Long: `Parse a monitor definition file and print its transition tables.

Transitions leaving the same state on the same predicate are reported as
conflicts: whenever one is enabled the other is too, which is a defect at
extraction time. Conflicts are warnings and do not change the exit code.

Exit codes:
  0 - File parsed
  2 - File unreadable or malformed

Examples:
  pathminer monitors file.txt
  pathminer monitors file.txt --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMonitors(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runMonitors(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	monitors, err := monitor.ParseFile(path)
	if err != nil {
		if opts.Format == "json" {
			_ = formatter.Error("E_MONITOR_PARSE", err.Error(), nil)
		}
		return WrapExitError(ExitCommandError, "failed to load monitors", err)
	}

	result := MonitorsResult{
		Monitors:  make([]MonitorTable, 0, len(monitors)),
		Conflicts: []string{},
	}
	for i, m := range monitors {
		table := MonitorTable{Index: i, Transitions: []string{}}
		for _, t := range m.Transitions() {
			table.Transitions = append(table.Transitions, t.String())
		}
		result.Monitors = append(result.Monitors, table)
	}
	for _, c := range monitor.Lint(monitors) {
		result.Conflicts = append(result.Conflicts, c.String())
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}

	if err := monitor.Format(formatter.Writer, monitors); err != nil {
		return err
	}
	for _, c := range result.Conflicts {
		formatter.Warning("%s", c)
	}
	formatter.VerboseLog("%d monitor(s), %d transition(s)", len(monitors), countTransitions(result))

	summary := fmt.Sprintf("✓ %d monitor(s) parsed", len(monitors))
	if len(result.Conflicts) > 0 {
		summary += fmt.Sprintf(", %d conflict(s)", len(result.Conflicts))
	}
	fmt.Fprintln(formatter.Writer, summary)
	return nil
}

func countTransitions(r MonitorsResult) int {
	n := 0
	for _, m := range r.Monitors {
		n += len(m.Transitions)
	}
	return n
}
