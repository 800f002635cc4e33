package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/LuisRevillaM/swapgraph-sub007/internal/compiler"
	"github.com/LuisRevillaM/swapgraph-sub007/internal/engine"
	"github.com/LuisRevillaM/swapgraph-sub007/internal/ir"
)

// LoadError represents a failure to turn an input path into a run input.
type LoadError struct {
	Code       string
	Path       string
	Message    string
	Violations []compiler.ValidationError
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Code, e.Path, e.Message)
}

// LoadInput compiles the input document at path.
//
// Every returned error is a *LoadError: ErrCodeNotFound for a missing
// path, ErrCodeInput when the document does not compile.
func LoadInput(path string) (ir.MatchInput, error) {
	if _, err := os.Stat(path); err != nil {
		return ir.MatchInput{}, &LoadError{
			Code:    ErrCodeNotFound,
			Path:    path,
			Message: fmt.Sprintf("input not found: %v", err),
		}
	}

	c, err := compiler.New()
	if err != nil {
		return ir.MatchInput{}, &LoadError{Code: ErrCodeGeneric, Path: path, Message: err.Error()}
	}

	in, err := c.CompileFile(path)
	if err != nil {
		var compileErr *compiler.CompileError
		if errors.As(err, &compileErr) {
			return ir.MatchInput{}, &LoadError{
				Code:       ErrCodeInput,
				Path:       path,
				Message:    compileErr.Error(),
				Violations: compileErr.Violations(),
			}
		}
		return ir.MatchInput{}, &LoadError{Code: ErrCodeInput, Path: path, Message: err.Error()}
	}
	return in, nil
}

// prepareInput fills the knobs an input leaves open: config defaults and
// a pinned now_iso, so a stored run replays with the clock it ran under.
func prepareInput(in *ir.MatchInput, opts *RootOptions, clock engine.Clock) {
	opts.config().Matching.ApplyTo(in)
	if in.NowISO == "" {
		in.NowISO = clock.Now().UTC().Format(time.RFC3339Nano)
	}
}

// FindInputFiles expands paths into input documents. Directories are
// walked recursively for files with a supported extension; files are
// taken as given. The result is sorted and deduplicated.
func FindInputFiles(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeNotFound, Path: p, Message: fmt.Sprintf("input not found: %v", err)}
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}

		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			if _, formatErr := compiler.FormatFromPath(path); formatErr == nil {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, &LoadError{Code: ErrCodeGeneric, Path: p, Message: fmt.Sprintf("error scanning directory: %v", err)}
		}
	}

	slices.Sort(files)
	return slices.Compact(files), nil
}

// loadErrorCode returns the CLI error code for a LoadInput failure.
func loadErrorCode(err error) string {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code
	}
	return ErrCodeGeneric
}

// outputLoadError reports a LoadInput failure and returns the exit error.
// A missing path is a command error; a bad document is a run failure.
func outputLoadError(formatter *OutputFormatter, err error) error {
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load input", err)
	}

	var details any
	if len(loadErr.Violations) > 0 {
		details = loadErr.Violations
	}
	_ = formatter.Error(loadErr.Code, loadErr.Message, details)

	if loadErr.Code == ErrCodeNotFound {
		return WrapExitError(ExitCommandError, "failed to load input", err)
	}
	return WrapExitError(ExitFailure, "input failed to compile", err)
}

// matchErrorCode maps an engine error to a CLI error code.
func matchErrorCode(err error) string {
	switch {
	case engine.IsMissingAssetValue(err):
		return ErrCodeMissingValue
	case engine.IsInvalidInput(err):
		return ErrCodeInvalidInput
	default:
		return ErrCodeMatch
	}
}
