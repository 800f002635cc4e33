package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/LuisRevillaM/swapgraph-sub007/internal/engine"
	"github.com/LuisRevillaM/swapgraph-sub007/internal/store"
)

// BatchOptions holds flags for the batch command.
type BatchOptions struct {
	*RootOptions
	Concurrency int
	Save        bool

	// RunIDs assigns ids to stored runs. Defaults to UUIDv7Generator.
	RunIDs engine.RunIDGenerator

	// Clock supplies "now" for runs. Defaults to SystemClock.
	Clock engine.Clock
}

// BatchEntry is the outcome of one input in a batch.
type BatchEntry struct {
	File        string    `json:"file"`
	RunID       string    `json:"run_id,omitempty"`
	Selected    int       `json:"selected"`
	ProposalIDs []string  `json:"proposal_ids,omitempty"`
	Error       *CLIError `json:"error,omitempty"`
}

// BatchResult holds the outcome of every input, in file order.
type BatchResult struct {
	Entries   []BatchEntry `json:"entries"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
}

// NewBatchCommand creates the batch command.
func NewBatchCommand(rootOpts *RootOptions) *cobra.Command {
	return newBatchCommand(&BatchOptions{RootOptions: rootOpts})
}

func newBatchCommand(opts *BatchOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch <input-file|dir>...",
		Short: "Run many independent inputs concurrently",
		Long: `Run many independent matching inputs concurrently.

Every input (one per tenant or market, say) is compiled and matched on
its own; runs share nothing but the matcher's logger and clock. A failing
input is reported in its entry and does not stop the others. With --save
every successful run is appended to the run log.

Exit codes:
  0 - Every input ran
  1 - One or more inputs failed
  2 - Command error (path not found, run log unusable)

Examples:
  swapgraph batch ./markets/
  swapgraph batch a.json b.yaml --concurrency 4 --save --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(opts, args, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Concurrency, "concurrency", 4, "maximum runs in flight")
	cmd.Flags().BoolVar(&opts.Save, "save", false, "append successful runs to the run log")

	return cmd
}

func runBatch(opts *BatchOptions, paths []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	logger := opts.logger()

	if opts.Concurrency < 1 {
		return NewExitError(ExitCommandError, fmt.Sprintf("--concurrency must be >= 1, got %d", opts.Concurrency))
	}
	clock := opts.Clock
	if clock == nil {
		clock = engine.SystemClock{}
	}
	runIDs := opts.RunIDs
	if runIDs == nil {
		runIDs = engine.UUIDv7Generator{}
	}

	files, err := FindInputFiles(paths)
	if err != nil {
		return outputLoadError(formatter, err)
	}

	// Resolved once here; entries only read it.
	cfg := opts.config()

	var st *store.Store
	if opts.Save {
		st, err = store.Open(cfg.Store.Path)
		if err != nil {
			_ = formatter.Error(ErrCodeStore, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to open run log", err)
		}
		defer st.Close()
	}

	matcher := engine.NewMatcher(engine.WithLogger(logger), engine.WithClock(clock))
	entries := make([]BatchEntry, len(files))

	g, gctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(opts.Concurrency)
	for i, file := range files {
		g.Go(func() error {
			entry, err := runBatchEntry(gctx, opts, matcher, st, runIDs, clock, file)
			entries[i] = entry
			return err
		})
	}
	if err := g.Wait(); err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "batch aborted", err)
	}

	result := BatchResult{Entries: entries}
	for _, e := range entries {
		if e.Error == nil {
			result.Succeeded++
		} else {
			result.Failed++
		}
	}
	logger.Info("batch complete", "inputs", len(files), "succeeded", result.Succeeded, "failed", result.Failed)

	if opts.Format == "json" {
		if result.Failed == 0 {
			return formatter.Success(result)
		}
		msg := fmt.Sprintf("%d input(s) failed", result.Failed)
		if err := formatter.Failure(ErrCodeMatch, msg, result); err != nil {
			return err
		}
		return NewExitError(ExitFailure, msg)
	}
	return outputBatchText(formatter.Writer, result)
}

// runBatchEntry runs one input. Input and matching failures land in the
// entry; only a run log failure is returned, which aborts the batch.
func runBatchEntry(ctx context.Context, opts *BatchOptions, matcher *engine.Matcher, st *store.Store,
	runIDs engine.RunIDGenerator, clock engine.Clock, file string) (BatchEntry, error) {
	entry := BatchEntry{File: file}

	in, err := LoadInput(file)
	if err != nil {
		entry.Error = &CLIError{Code: loadErrorCode(err), Message: err.Error()}
		return entry, nil
	}
	prepareInput(&in, opts.RootOptions, clock)

	res, err := matcher.Run(ctx, in)
	if err != nil {
		entry.Error = &CLIError{Code: matchErrorCode(err), Message: err.Error()}
		return entry, nil
	}

	entry.Selected = len(res.Proposals)
	for _, p := range res.Proposals {
		entry.ProposalIDs = append(entry.ProposalIDs, p.ID)
	}

	if st != nil {
		rec, _, err := st.WriteRun(ctx, runIDs.Generate(), clock.Now().UTC(), in, res)
		if err != nil {
			return entry, fmt.Errorf("store run for %s: %w", file, err)
		}
		entry.RunID = rec.ID
	}
	return entry, nil
}

func outputBatchText(w io.Writer, result BatchResult) error {
	for _, e := range result.Entries {
		if e.Error != nil {
			fmt.Fprintf(w, "✗ %s\n  %s: %s\n", e.File, e.Error.Code, e.Error.Message)
			continue
		}
		line := fmt.Sprintf("✓ %s: %d proposal(s)", e.File, e.Selected)
		if e.RunID != "" {
			line += " run " + e.RunID
		}
		fmt.Fprintln(w, line)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Batch Summary: %d succeeded, %d failed, %d total\n",
		result.Succeeded, result.Failed, len(result.Entries))
	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d input(s) failed", result.Failed))
	}
	return nil
}
