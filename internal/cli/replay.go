package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/LuisRevillaM/swapgraph-sub007/internal/engine"
	"github.com/LuisRevillaM/swapgraph-sub007/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	All bool
}

// ReplaySummary holds the overall replay result.
type ReplaySummary struct {
	Runs     []store.ReplayResult `json:"runs"`
	Total    int                  `json:"total"`
	AllMatch bool                 `json:"all_match"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay [run-id]...",
		Short: "Re-run stored inputs and verify determinism",
		Long: `Re-run stored matching inputs and verify determinism.

Each run's stored input is executed again and the proposals and selection
trace are hashed and compared with the stored output digest. Nothing is
written to the run log.

Exit codes:
  0 - Every replayed run matched
  1 - Determinism verification failed (digests differ)
  2 - Command error (run log not found, unknown run id)

Examples:
  swapgraph replay 0193f3a4-1c2e-7d4b-9a51-3e0c2f1b8a77 --store ./runs.db
  swapgraph replay --all --store ./runs.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.All, "all", false, "replay every stored run")

	return cmd
}

func runReplay(opts *ReplayOptions, runIDs []string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	formatter := opts.formatter(cmd)

	if !opts.All && len(runIDs) == 0 {
		return NewExitError(ExitCommandError, "replay needs at least one run id or --all")
	}

	st, err := openExistingStore(opts.RootOptions)
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return err
	}
	defer st.Close()

	if opts.All {
		runs, err := st.ListRuns(ctx, 0)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
		runIDs = make([]string, 0, len(runs))
		for _, r := range runs {
			runIDs = append(runIDs, r.ID)
		}
	}

	matcher := engine.NewMatcher(engine.WithLogger(opts.logger()))
	summary := ReplaySummary{
		Runs:     make([]store.ReplayResult, 0, len(runIDs)),
		Total:    len(runIDs),
		AllMatch: true,
	}

	for _, id := range runIDs {
		formatter.VerboseLog("Replaying %s", id)
		res, err := st.Replay(ctx, id, matcher.Run)
		if err != nil {
			if errors.Is(err, store.ErrRunNotFound) {
				_ = formatter.Error(ErrCodeRunNotFound, fmt.Sprintf("run not found: %s", id), nil)
				return WrapExitError(ExitCommandError, fmt.Sprintf("run not found: %s", id), err)
			}
			_ = formatter.Error(matchErrorCode(err), err.Error(), nil)
			return WrapExitError(ExitFailure, fmt.Sprintf("failed to replay run %s", id), err)
		}
		summary.Runs = append(summary.Runs, *res)
		if !res.Match {
			summary.AllMatch = false
		}
	}

	if opts.Format == "json" {
		if summary.AllMatch {
			return formatter.Success(summary)
		}
		if err := formatter.Failure(ErrCodeDeterminism, "determinism verification failed", summary); err != nil {
			return err
		}
		return NewExitError(ExitFailure, "determinism verification failed")
	}

	return outputReplayText(formatter, summary)
}

// openExistingStore opens the configured run log, refusing to create a
// new empty one.
func openExistingStore(opts *RootOptions) (*store.Store, error) {
	path := opts.config().Store.Path
	if _, err := os.Stat(path); err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("run log not found: %s", path), err)
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open run log", err)
	}
	return st, nil
}

// outputReplayText outputs the replay result as text.
func outputReplayText(formatter *OutputFormatter, summary ReplaySummary) error {
	w := formatter.Writer

	if summary.Total == 0 {
		fmt.Fprintln(w, "No runs found in run log.")
		return nil
	}

	fmt.Fprintf(w, "Replay Summary: %d run(s)\n", summary.Total)
	fmt.Fprintln(w)

	for _, run := range summary.Runs {
		status := "✓"
		if !run.Match {
			status = "✗"
		}
		fmt.Fprintf(w, "%s Run: %s\n", status, run.RunID)
		if formatter.Verbose || !run.Match {
			fmt.Fprintf(w, "  stored:   %s\n", run.StoredDigest)
			fmt.Fprintf(w, "  replayed: %s\n", run.ReplayedDigest)
		}
		if run.EngineChanged {
			fmt.Fprintln(w, "  Note: run was stored by a different engine version")
		}
	}
	fmt.Fprintln(w)

	if summary.AllMatch {
		fmt.Fprintln(w, "✓ All runs verified deterministic")
		return nil
	}

	fmt.Fprintln(w, "✗ Determinism verification failed")
	return NewExitError(ExitFailure, "determinism verification failed")
}
