package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/prodgraph/internal/engine"
)

// VisualizeOptions holds flags for the visualize command.
type VisualizeOptions struct {
	*RootOptions
	Root  string
	Goals []string
	Out   string
}

// NewVisualizeCommand creates the visualize command.
func NewVisualizeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VisualizeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "visualize [flags] <spec>...",
		Short: "Execute a build and print its product graph as DOT",
		Long: `Execute the requested goals and render every node reachable from the
roots as a Graphviz DOT digraph. Failed roots do not stop rendering.

Example:
  prodgraph visualize --root ./repo --goal compile src/java/simple | dot -Tsvg > graph.svg`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVisualize(cmd, opts, args)
		},
	}

	addRootFlags(cmd, &opts.Root, &opts.Goals)
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "write DOT to this file instead of stdout")

	return cmd
}

func runVisualize(cmd *cobra.Command, opts *VisualizeOptions, specs []string) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	ctx, stop := signalContext(cmd)
	defer stop()

	sched, req, err := prepare(opts.Root, opts.Goals, specs)
	if err != nil {
		return fail(formatter, ExitCommandError, codeFor(err), "failed to plan build", err)
	}
	res, err := engine.New(sched).Execute(ctx, req)
	if err != nil {
		return fail(formatter, ExitFailure, ErrCodeRunAborted, "run aborted", err)
	}
	if res.Failed() {
		formatter.VerboseLog("build failed: %v", res.Error)
	}

	if opts.Out == "" {
		if formatter.JSON() {
			return formatter.Success(map[string]string{"dot": sched.Visualize(req.RootKeys())})
		}
		fmt.Fprintln(formatter.Writer, sched.Visualize(req.RootKeys()))
		return nil
	}

	if err := sched.VisualizeGraphToFile(req.RootKeys(), opts.Out); err != nil {
		return fail(formatter, ExitCommandError, ErrCodeGeneric, "failed to write DOT file", err)
	}
	if formatter.JSON() {
		return formatter.Success(map[string]string{"file": opts.Out})
	}
	fmt.Fprintf(formatter.Writer, "Wrote %s\n", opts.Out)
	return nil
}
