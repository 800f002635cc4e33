package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/LuisRevillaM/swapgraph-sub007/internal/compiler"
)

// FileValidation holds the validation outcome of one input document.
type FileValidation struct {
	File   string                     `json:"file"`
	Valid  bool                       `json:"valid"`
	Errors []compiler.ValidationError `json:"errors,omitempty"`
}

// ValidationResult holds validation results for every checked file.
type ValidationResult struct {
	Valid bool             `json:"valid"`
	Files []FileValidation `json:"files"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <input-file|dir>...",
		Short: "Check input documents without running them",
		Long: `Check input documents without running a matching pass.

Each document is checked against the input schema, then linted for
problems a run would reject or quietly work around: unusable cycle
bounds, bad timestamps, duplicate intent ids, unpriced offered assets,
negative values and preference edges naming unknown intents.

Exit codes:
  0 - Every document is valid
  1 - One or more documents have problems
  2 - Command error (path not found)`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	files, err := FindInputFiles(paths)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	if len(files) == 0 {
		_ = formatter.Error(ErrCodeNotFound, "no input documents found", paths)
		return NewExitError(ExitCommandError, "no input documents found")
	}

	c, err := compiler.New()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load input schema", err)
	}

	result := ValidationResult{Valid: true, Files: make([]FileValidation, 0, len(files))}
	failed := 0
	for _, file := range files {
		formatter.VerboseLog("Validating %s", file)
		errs := validateFile(c, file)
		fv := FileValidation{File: file, Valid: len(errs) == 0, Errors: errs}
		if !fv.Valid {
			result.Valid = false
			failed++
		}
		result.Files = append(result.Files, fv)
	}

	if opts.Format == "json" {
		if result.Valid {
			return formatter.Success(result)
		}
		if err := formatter.Failure(result.firstError().Code, result.firstError().Message, result); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed for %d file(s)", failed))
	}

	return outputValidateText(formatter, result, failed)
}

// validateFile runs the schema check and, when the document decodes, the
// lint pass.
func validateFile(c *compiler.Compiler, path string) []compiler.ValidationError {
	format, err := compiler.FormatFromPath(path)
	if err != nil {
		var ce *compiler.CompileError
		if errors.As(err, &ce) {
			return ce.Violations()
		}
		return []compiler.ValidationError{{Field: "file", Message: err.Error(), Code: compiler.ErrUnsupportedFormat}}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return []compiler.ValidationError{{Field: "file", Message: err.Error(), Code: ErrCodeNotFound}}
	}

	if errs := c.Check(path, data, format); len(errs) > 0 {
		return errs
	}

	in, err := c.Compile(path, data, format)
	if err != nil {
		var ce *compiler.CompileError
		if errors.As(err, &ce) {
			return ce.Violations()
		}
		return []compiler.ValidationError{{Field: "input", Message: err.Error(), Code: compiler.ErrInputDecode}}
	}
	return compiler.Lint(in)
}

func (r ValidationResult) firstError() compiler.ValidationError {
	for _, f := range r.Files {
		if len(f.Errors) > 0 {
			return f.Errors[0]
		}
	}
	return compiler.ValidationError{}
}

// outputValidateText prints validation results for humans.
func outputValidateText(formatter *OutputFormatter, result ValidationResult, failed int) error {
	w := formatter.Writer

	for _, f := range result.Files {
		if f.Valid {
			fmt.Fprintf(w, "✓ %s\n", f.File)
			continue
		}
		fmt.Fprintf(w, "✗ %s\n", f.File)
		for _, e := range f.Errors {
			if e.Line > 0 {
				fmt.Fprintf(w, "  line %d\n", e.Line)
			}
			fmt.Fprintf(w, "  %s %s: %s\n", e.Code, e.Field, e.Message)
		}
	}

	if result.Valid {
		fmt.Fprintln(w, "✓ All inputs valid")
		return nil
	}

	fmt.Fprintf(w, "✗ Validation failed for %d file(s)\n", failed)
	// Validation failures = exit code 1 (test/validation failure)
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed for %d file(s)", failed))
}
