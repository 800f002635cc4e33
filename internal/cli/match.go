package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/LuisRevillaM/swapgraph-sub007/internal/engine"
	"github.com/LuisRevillaM/swapgraph-sub007/internal/ir"
	"github.com/LuisRevillaM/swapgraph-sub007/internal/store"
)

// MatchOptions holds flags for the match command.
type MatchOptions struct {
	*RootOptions
	Save bool

	// RunIDs assigns ids to stored runs. Defaults to UUIDv7Generator.
	RunIDs engine.RunIDGenerator

	// Clock supplies "now" for the run and the stored created_at.
	// Defaults to SystemClock.
	Clock engine.Clock
}

// MatchOutput is the payload of a match command.
type MatchOutput struct {
	File     string          `json:"file"`
	RunID    string          `json:"run_id,omitempty"`
	Inserted *bool           `json:"inserted,omitempty"`
	Result   *ir.MatchResult `json:"result"`
}

// NewMatchCommand creates the match command.
func NewMatchCommand(rootOpts *RootOptions) *cobra.Command {
	return newMatchCommand(&MatchOptions{RootOptions: rootOpts})
}

func newMatchCommand(opts *MatchOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match <input-file>",
		Short: "Run one matching pass over an input document",
		Long: `Run one matching pass over an input document.

The input (.json, .yaml, .yml or .cue) is checked against the input schema,
knobs it leaves unset are filled from config, and the selected proposals
are printed. With --save the run is appended to the run log; an input that
was already stored is not written twice.

Exit codes:
  0 - Run succeeded (possibly with zero proposals)
  1 - Input did not compile or the run failed (e.g. unpriced asset)
  2 - Command error (input not found, run log unusable)

Examples:
  swapgraph match ./intents.json
  swapgraph match ./intents.yaml --save --store ./runs.db
  swapgraph match ./intents.cue --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMatch(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Save, "save", false, "append the run to the run log")

	return cmd
}

func runMatch(opts *MatchOptions, path string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	formatter := opts.formatter(cmd)
	logger := opts.logger()

	clock := opts.Clock
	if clock == nil {
		clock = engine.SystemClock{}
	}
	runIDs := opts.RunIDs
	if runIDs == nil {
		runIDs = engine.UUIDv7Generator{}
	}

	formatter.VerboseLog("Compiling %s", path)
	in, err := LoadInput(path)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	prepareInput(&in, opts.RootOptions, clock)

	matcher := engine.NewMatcher(engine.WithLogger(logger), engine.WithClock(clock))
	res, err := matcher.Run(ctx, in)
	if err != nil {
		_ = formatter.Error(matchErrorCode(err), err.Error(), nil)
		return WrapExitError(ExitFailure, "matching run failed", err)
	}

	out := MatchOutput{File: path, Result: res}

	if opts.Save {
		st, err := store.Open(opts.config().Store.Path)
		if err != nil {
			_ = formatter.Error(ErrCodeStore, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to open run log", err)
		}
		defer st.Close()

		rec, inserted, err := st.WriteRun(ctx, runIDs.Generate(), clock.Now().UTC(), in, res)
		if err != nil {
			_ = formatter.Error(ErrCodeStore, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to store run", err)
		}
		out.RunID = rec.ID
		out.Inserted = &inserted
		logger.Info("run stored", "run_id", rec.ID, "inserted", inserted)
	}

	if opts.Format == "json" {
		return formatter.Success(out)
	}
	writeMatchText(cmd.OutOrStdout(), out, opts.Verbose)
	return nil
}

// writeMatchText prints a match result for humans.
func writeMatchText(w io.Writer, out MatchOutput, verbose bool) {
	res := out.Result
	fmt.Fprintf(w, "%s: %d proposal(s) selected from %d candidate(s)\n",
		out.File, res.Stats.SelectedProposals, res.Stats.CandidateProposals)

	for _, p := range res.Proposals {
		fmt.Fprintf(w, "✓ %s\n", p.ID)
		fmt.Fprintf(w, "  cycle: %s\n", strings.Join(p.IntentIDs(), " → "))
		fmt.Fprintf(w, "  confidence: %.4f  value spread: %.4f  fees: $%.2f\n",
			p.ConfidenceScore, p.ValueSpread, p.FeeBreakdown.TotalUSD)
		if verbose {
			for _, part := range p.Participants {
				fmt.Fprintf(w, "    %s gives %s ($%.2f), gets %s ($%.2f)\n",
					part.IntentID, assetList(part.Give), part.GiveValueUSD,
					assetList(part.Get), part.GetValueUSD)
			}
			fmt.Fprintf(w, "  expires: %s\n", p.ExpiresAt)
		}
	}

	if verbose {
		for _, row := range res.Trace {
			if !row.Selected {
				fmt.Fprintf(w, "✗ %s (%s)\n", strings.Join(row.Cycle, " → "), row.Reason)
			}
		}
	}

	fmt.Fprintf(w, "Stats: %d active intent(s), %d edge(s), %d cycle(s)\n",
		res.Stats.IntentsActive, res.Stats.Edges, res.Stats.CandidateCycles)

	if out.RunID != "" {
		state := "stored"
		if out.Inserted != nil && !*out.Inserted {
			state = "already stored"
		}
		fmt.Fprintf(w, "Run: %s (%s)\n", out.RunID, state)
	}
}

func assetList(assets []ir.Asset) string {
	ids := make([]string, len(assets))
	for i, a := range assets {
		ids[i] = a.AssetID
	}
	return strings.Join(ids, ",")
}
