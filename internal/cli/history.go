package cli

import (
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/prodgraph/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Limit    int
	Failures bool
}

// RunDetail is one run with its node results.
type RunDetail struct {
	Run     store.Run          `json:"run"`
	Results []store.NodeResult `json:"results"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history --db <file> [run-id]",
		Short: "Show recorded runs",
		Long: `List the runs recorded in a run log, newest first, or show the node
results of one run in completion order.

Example:
  prodgraph history --db runs.db
  prodgraph history --db runs.db --failures 0190c6d8-...`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum runs to list (0 for all)")
	cmd.Flags().BoolVar(&opts.Failures, "failures", false, "show only failed nodes of the run")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runHistory(cmd *cobra.Command, opts *HistoryOptions, args []string) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	// Opening would create an empty database.
	if _, err := os.Stat(opts.Database); err != nil {
		return fail(formatter, ExitCommandError, ErrCodeNotFound,
			fmt.Sprintf("database not found: %s", opts.Database), nil)
	}
	st, err := store.Open(opts.Database)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeStore, "failed to open database", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	if len(args) == 0 {
		runs, err := st.ListRuns(ctx, opts.Limit)
		if err != nil {
			return fail(formatter, ExitCommandError, ErrCodeStore, "failed to list runs", err)
		}
		if formatter.JSON() {
			return formatter.Success(runs)
		}
		if len(runs) == 0 {
			fmt.Fprintln(formatter.Writer, "No runs recorded")
			return nil
		}
		for _, r := range runs {
			fmt.Fprintf(formatter.Writer, "%s  %-9s  %v %v  steps=%d nodes=%d\n",
				r.ID, r.Status, r.Goals, r.Subjects, r.Steps, r.Nodes)
		}
		return nil
	}

	runID := args[0]
	run, err := st.ReadRun(ctx, runID)
	if errors.Is(err, sql.ErrNoRows) {
		return fail(formatter, ExitCommandError, ErrCodeNotFound, fmt.Sprintf("run not found: %s", runID), nil)
	}
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeStore, "failed to read run", err)
	}

	read := st.ReadNodeResults
	if opts.Failures {
		read = st.ReadFailures
	}
	results, err := read(ctx, runID)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeStore, "failed to read node results", err)
	}

	if formatter.JSON() {
		return formatter.Success(RunDetail{Run: run, Results: results})
	}
	fmt.Fprintf(formatter.Writer, "run %s %s: %v %v\n", run.ID, run.Status, run.Goals, run.Subjects)
	if run.Error != "" {
		fmt.Fprintf(formatter.Writer, "  error: %s\n", run.Error)
	}
	for _, r := range results {
		line := fmt.Sprintf("%s %s(%s)", r.Kind, r.Product, r.Subject)
		if r.Variants != "" {
			line += "@" + r.Variants
		}
		if r.Task != "" {
			line += ":" + r.Task
		}
		fmt.Fprintf(formatter.Writer, "  [%d] %s == %s\n", r.Seq, line, r.Rendered)
	}
	return nil
}
