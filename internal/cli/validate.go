package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/prodgraph/internal/address"
	"github.com/roach88/prodgraph/internal/planners"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid   bool              `json:"valid"`
	Dirs    int               `json:"dirs"`
	Targets int               `json:"targets"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

// ValidationError is one problem found by validate.
type ValidationError struct {
	Code    string `json:"code"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
	Message string `json:"message"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	var root string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the rule set and every BUILD file under a build root",
		Long: `Check that the registered rules are consistent and that every BUILD.yaml
and BUILD.cue file under the build root parses into valid targets.

Nothing is executed. Faster than build for editing feedback.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, rootOpts, root)
		},
	}

	cmd.Flags().StringVar(&root, "root", ".", "build root directory")

	return cmd
}

func runValidate(cmd *cobra.Command, opts *RootOptions, root string) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return fail(formatter, ExitCommandError, ErrCodeNotFound, fmt.Sprintf("build root not found: %s", root), nil)
	}
	fsys := os.DirFS(root)

	var result ValidationResult
	if _, err := planners.NewRegistry(fsys); err != nil {
		result.Errors = append(result.Errors, ValidationError{Code: ErrCodeGeneric, Message: err.Error()})
	}

	dirs, err := address.FindBuildDirs(fsys, address.Dir{})
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeGeneric, "failed to scan build root", err)
	}
	result.Dirs = len(dirs)
	formatter.VerboseLog("Found %d BUILD director(ies) in %s", len(dirs), root)

	for _, dir := range dirs {
		family, err := address.LoadFamily(fsys, dir)
		if err != nil {
			result.Errors = append(result.Errors, toValidationError(err))
			continue
		}
		formatter.VerboseLog("%s: %d target(s)", dir, len(family.Targets))
		result.Targets += len(family.Targets)
	}

	if result.Dirs == 0 && len(result.Errors) == 0 {
		result.Errors = append(result.Errors, ValidationError{
			Code:    ErrCodeNotFound,
			Message: fmt.Sprintf("no BUILD files found under %s", root),
		})
	}

	result.Valid = len(result.Errors) == 0
	return outputValidation(formatter, result)
}

func toValidationError(err error) ValidationError {
	var le *address.LoadError
	if !errors.As(err, &le) {
		return ValidationError{Code: ErrCodeGeneric, Message: err.Error()}
	}
	ve := ValidationError{Code: le.Code, File: le.File, Message: le.Message}
	if le.Pos.IsValid() {
		ve.Line = le.Pos.Line()
	}
	return ve
}

func outputValidation(f *OutputFormatter, result ValidationResult) error {
	if result.Valid {
		if f.JSON() {
			return f.Success(result)
		}
		fmt.Fprintf(f.Writer, "✓ %d BUILD director(ies), %d target(s) valid\n", result.Dirs, result.Targets)
		return nil
	}

	if f.JSON() {
		first := result.Errors[0]
		_ = f.Failure(first.Code, first.Message, result)
	} else {
		fmt.Fprintln(f.Writer, "✗ Validation failed")
		fmt.Fprintln(f.Writer)
		for _, e := range result.Errors {
			switch {
			case e.File != "" && e.Line > 0:
				fmt.Fprintf(f.Writer, "%s:%d\n", e.File, e.Line)
			case e.File != "":
				fmt.Fprintln(f.Writer, e.File)
			}
			fmt.Fprintf(f.Writer, "  %s: %s\n\n", e.Code, e.Message)
		}
	}
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))
}

