package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/prodgraph/internal/engine"
	"github.com/roach88/prodgraph/internal/graph"
	"github.com/roach88/prodgraph/internal/otel"
	"github.com/roach88/prodgraph/internal/planners"
	"github.com/roach88/prodgraph/internal/scheduler"
	"github.com/roach88/prodgraph/internal/store"
)

// BuildOptions holds flags for the build command.
type BuildOptions struct {
	*RootOptions
	Root         string
	Goals        []string
	Database     string
	DotFile      string
	Parallelism  int
	MaxSteps     int
	OTLPEndpoint string

	// RunIDs overrides the run ID generator (for testing).
	RunIDs engine.RunIDGenerator
}

// BuildOutput is the result of a build.
type BuildOutput struct {
	RunID  string       `json:"run_id"`
	Status string       `json:"status"`
	Steps  int          `json:"steps"`
	Roots  []RootOutput `json:"roots"`
}

// RootOutput is the outcome of one goal for one subject.
type RootOutput struct {
	Subject string `json:"subject"`
	Product string `json:"product"`
	Status  string `json:"status"`
	Value   string `json:"value,omitempty"`
	Code    string `json:"code,omitempty"`
	Error   string `json:"error,omitempty"`
}

// NewBuildCommand creates the build command.
func NewBuildCommand(rootOpts *RootOptions) *cobra.Command {
	return newBuildCommand(&BuildOptions{RootOptions: rootOpts})
}

func newBuildCommand(opts *BuildOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build [flags] <spec>...",
		Short: "Build goals for address specs",
		Long: `Build the requested goals for every address spec.

A spec is an address (dir:name or dir), a sibling spec (dir:) or a
descendant spec (dir::). Each goal is requested for each spec; the build
fails if any root fails.

Example:
  prodgraph build --root ./repo --goal compile src/java/simple
  prodgraph build --root ./repo --goal gen --goal compile --db runs.db src::`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, opts, args)
		},
	}

	addRootFlags(cmd, &opts.Root, &opts.Goals)
	cmd.Flags().StringVar(&opts.Database, "db", "", "record the run in this SQLite database")
	cmd.Flags().StringVar(&opts.DotFile, "dot", "", "write the executed graph as DOT to this file")
	cmd.Flags().IntVar(&opts.Parallelism, "parallel", 1, "maximum nodes stepped at once")
	cmd.Flags().IntVar(&opts.MaxSteps, "max-steps", engine.DefaultMaxSteps, "abort the run after this many node steps")
	cmd.Flags().StringVar(&opts.OTLPEndpoint, "otlp-endpoint", "", "export traces to this OTLP/gRPC collector (host:port)")

	return cmd
}

func addRootFlags(cmd *cobra.Command, root *string, goals *[]string) {
	cmd.Flags().StringVar(root, "root", ".", "build root directory")
	cmd.Flags().StringArrayVar(goals, "goal", []string{"compile"}, "goal to build (repeatable)")
}

func runBuild(cmd *cobra.Command, opts *BuildOptions, specs []string) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	if opts.Parallelism < 1 {
		return fail(formatter, ExitCommandError, ErrCodeBadArgs,
			fmt.Sprintf("--parallel must be at least 1, got %d", opts.Parallelism), nil)
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	shutdown, err := otel.Setup(ctx, opts.OTLPEndpoint, "prodgraph")
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeGeneric, "failed to set up tracing", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			slog.Warn("trace shutdown failed", "error", err)
		}
	}()

	sched, req, err := prepare(opts.Root, opts.Goals, specs)
	if err != nil {
		return fail(formatter, ExitCommandError, codeFor(err), "failed to plan build", err)
	}
	formatter.VerboseLog("Planned %d root(s) for %d goal(s)", len(req.Roots), len(req.Goals))

	engOpts := []engine.Option{
		engine.WithParallelism(opts.Parallelism),
		engine.WithMaxSteps(opts.MaxSteps),
	}
	if opts.RunIDs != nil {
		engOpts = append(engOpts, engine.WithRunIDGenerator(opts.RunIDs))
	}
	if opts.Database != "" {
		st, err := store.Open(opts.Database)
		if err != nil {
			return fail(formatter, ExitCommandError, ErrCodeStore, "failed to open database", err)
		}
		defer func() {
			if err := st.Close(); err != nil {
				slog.Error("error closing database", "error", err)
			}
		}()
		engOpts = append(engOpts, engine.WithRecorder(st))
	}

	res, err := engine.New(sched, engOpts...).Execute(ctx, req)
	if err != nil {
		return fail(formatter, ExitFailure, ErrCodeRunAborted, "run aborted", err)
	}

	if opts.DotFile != "" {
		if err := sched.VisualizeGraphToFile(req.RootKeys(), opts.DotFile); err != nil {
			return fail(formatter, ExitCommandError, ErrCodeGeneric, "failed to write DOT file", err)
		}
		formatter.VerboseLog("Wrote graph to %s", opts.DotFile)
	}

	return outputBuild(formatter, newBuildOutput(res))
}

// prepare opens the build root and builds the request.
func prepare(root string, goals, specs []string) (*scheduler.Scheduler, *scheduler.BuildRequest, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, nil, &notFoundError{fmt.Sprintf("build root %s: %v", root, err)}
	}
	if !info.IsDir() {
		return nil, nil, &notFoundError{fmt.Sprintf("build root %s is not a directory", root)}
	}

	sched, err := planners.NewScheduler(os.DirFS(root))
	if err != nil {
		return nil, nil, err
	}
	subjects, err := planners.ParseSubjects(specs)
	if err != nil {
		return nil, nil, err
	}
	req, err := sched.BuildRequest(goals, subjects)
	if err != nil {
		return nil, nil, err
	}
	return sched, req, nil
}

type notFoundError struct{ msg string }

func (e *notFoundError) Error() string { return e.msg }

func codeFor(err error) string {
	var nf *notFoundError
	if errors.As(err, &nf) {
		return ErrCodeNotFound
	}
	if c := graph.CodeOf(err); c != "" {
		return string(c)
	}
	return ErrCodeBadArgs
}

func newBuildOutput(res *engine.BuildResult) BuildOutput {
	out := BuildOutput{RunID: res.RunID, Status: "succeeded", Steps: res.Steps}
	if res.Failed() {
		out.Status = "failed"
	}
	for _, r := range res.Roots {
		ro := RootOutput{
			Subject: graph.SubjectKey(r.Node.Subject),
			Product: string(r.Node.Product()),
			Status:  r.State.Status.String(),
		}
		switch r.State.Status {
		case graph.StatusReturn:
			ro.Value = fmt.Sprint(r.State.Value)
		case graph.StatusThrow:
			cause := graph.RootCause(r.State.Err)
			ro.Code = string(graph.CodeOf(cause))
			ro.Error = cause.Error()
		case graph.StatusNoop:
			ro.Value = r.State.Reason
		}
		out.Roots = append(out.Roots, ro)
	}
	return out
}

func outputBuild(f *OutputFormatter, out BuildOutput) error {
	failed := out.Status == "failed"
	if f.JSON() {
		if failed {
			_ = f.Failure(ErrCodeBuildFailed, "build failed", out)
		} else {
			_ = f.Success(out)
		}
	} else {
		for _, r := range out.Roots {
			switch r.Status {
			case "Throw":
				fmt.Fprintf(f.Writer, "✗ %s(%s): %s\n", r.Product, r.Subject, r.Error)
			default:
				fmt.Fprintf(f.Writer, "✓ %s(%s) == %s\n", r.Product, r.Subject, r.Value)
			}
		}
		fmt.Fprintf(f.Writer, "run %s %s in %d steps\n", out.RunID, out.Status, out.Steps)
	}
	if failed {
		return NewExitError(ExitFailure, fmt.Sprintf("%s: build failed", ErrCodeBuildFailed))
	}
	return nil
}

// signalContext cancels on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
