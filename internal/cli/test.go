package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/prodgraph/internal/harness"
)

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test <scenario-file-or-dir>...",
		Short: "Run YAML build scenarios",
		Long: `Run build scenarios and check their expectations and assertions.

Each argument is a scenario file or a directory searched recursively for
.yaml and .yml files. A scenario builds against its own build root with a
fresh graph and run log.

Example:
  prodgraph test ./scenarios
  prodgraph test --format json ./scenarios/codegen.yaml`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(cmd, rootOpts, args)
		},
	}

	return cmd
}

func runTests(cmd *cobra.Command, opts *RootOptions, paths []string) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	files, err := harness.FindScenarios(paths)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeNotFound, "failed to find scenarios", err)
	}
	if len(files) == 0 {
		return fail(formatter, ExitCommandError, ErrCodeNotFound,
			fmt.Sprintf("no scenario files found in %s", strings.Join(paths, ", ")), nil)
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	var summary harness.Summary
	for _, path := range files {
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		scenario, err := harness.LoadScenario(path)
		if err != nil {
			summary.AddError(name, path, err)
			printScenario(formatter, name, false)
			continue
		}
		formatter.VerboseLog("Running %s: %s", scenario.Name, scenario.Description)

		result, err := harness.Run(ctx, scenario)
		if err != nil {
			summary.AddError(scenario.Name, path, err)
			printScenario(formatter, scenario.Name, false)
			continue
		}
		summary.Add(scenario.Name, path, result)
		printScenario(formatter, scenario.Name, result.Pass)
	}

	return outputSummary(formatter, summary)
}

func printScenario(f *OutputFormatter, name string, pass bool) {
	if f.JSON() {
		return
	}
	mark := "✓"
	if !pass {
		mark = "✗"
	}
	fmt.Fprintf(f.Writer, "%s %s\n", mark, name)
}

func outputSummary(f *OutputFormatter, s harness.Summary) error {
	if f.JSON() {
		if s.Failed > 0 {
			_ = f.Failure(ErrCodeBuildFailed, fmt.Sprintf("%d of %d scenario(s) failed", s.Failed, s.Total), s)
		} else {
			_ = f.Success(s)
		}
	} else {
		for _, failure := range s.Failures {
			fmt.Fprintf(f.Writer, "\n--- %s (%s)\n", failure.Scenario, failure.Path)
			for _, e := range failure.Errors {
				fmt.Fprintf(f.Writer, "%s\n", e)
			}
		}
		fmt.Fprintf(f.Writer, "\n%d passed, %d failed\n", s.Passed, s.Failed)
	}

	if s.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", s.Failed))
	}
	return nil
}
