package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/LuisRevillaM/swapgraph-sub007/internal/ir"
	"github.com/LuisRevillaM/swapgraph-sub007/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	IntentID string
	Limit    int
}

// RunTrace is the stored view of one run.
type RunTrace struct {
	Run       store.RunRecord          `json:"run"`
	Proposals []ir.Proposal            `json:"proposals"`
	Trace     []ir.SelectionTraceEntry `json:"trace"`
}

// IntentTrace lists the stored proposals an intent took part in.
type IntentTrace struct {
	IntentID  string              `json:"intent_id"`
	Proposals []store.ProposalRef `json:"proposals"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace [run-id]",
		Short: "Inspect the run log",
		Long: `Inspect the run log.

With a run id, shows the stored run: its stats, the selected proposals and
the selector's decision for every candidate cycle. With --intent, lists
every stored proposal that intent took part in. With neither, lists the
stored runs oldest first.

Examples:
  swapgraph trace --store ./runs.db
  swapgraph trace 0193f3a4-1c2e-7d4b-9a51-3e0c2f1b8a77 --store ./runs.db
  swapgraph trace --intent alice --store ./runs.db --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := ""
			if len(args) == 1 {
				runID = args[0]
			}
			return runTrace(opts, runID, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.IntentID, "intent", "", "list stored proposals for an intent id")
	cmd.Flags().IntVar(&opts.Limit, "limit", 50, "maximum runs to list (0 = all)")

	return cmd
}

func runTrace(opts *TraceOptions, runID string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	formatter := opts.formatter(cmd)

	if runID != "" && opts.IntentID != "" {
		return NewExitError(ExitCommandError, "give either a run id or --intent, not both")
	}

	st, err := openExistingStore(opts.RootOptions)
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return err
	}
	defer st.Close()

	switch {
	case opts.IntentID != "":
		refs, err := st.ProposalsForIntent(ctx, opts.IntentID)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to query proposals", err)
		}
		out := IntentTrace{IntentID: opts.IntentID, Proposals: refs}
		if opts.Format == "json" {
			return formatter.Success(out)
		}
		writeIntentTraceText(formatter.Writer, out)
		return nil

	case runID != "":
		out, err := readRunTrace(cmd, st, runID)
		if err != nil {
			if errors.Is(err, store.ErrRunNotFound) {
				_ = formatter.Error(ErrCodeRunNotFound, fmt.Sprintf("run not found: %s", runID), nil)
				return WrapExitError(ExitCommandError, fmt.Sprintf("run not found: %s", runID), err)
			}
			return WrapExitError(ExitCommandError, "failed to read run", err)
		}
		if opts.Format == "json" {
			return formatter.Success(out)
		}
		writeRunTraceText(formatter.Writer, out)
		return nil

	default:
		runs, err := st.ListRuns(ctx, opts.Limit)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
		if opts.Format == "json" {
			return formatter.Success(runs)
		}
		writeRunListText(formatter.Writer, runs)
		return nil
	}
}

func readRunTrace(cmd *cobra.Command, st *store.Store, runID string) (RunTrace, error) {
	ctx := cmd.Context()
	rec, err := st.ReadRun(ctx, runID)
	if err != nil {
		return RunTrace{}, err
	}
	proposals, err := st.ReadProposals(ctx, runID)
	if err != nil {
		return RunTrace{}, err
	}
	trace, err := st.ReadTrace(ctx, runID)
	if err != nil {
		return RunTrace{}, err
	}
	return RunTrace{Run: rec, Proposals: proposals, Trace: trace}, nil
}

func writeRunListText(w io.Writer, runs []store.RunRecord) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs found in run log.")
		return
	}
	for _, r := range runs {
		fmt.Fprintf(w, "%s  %s  %d selected / %d candidate(s)\n",
			r.ID, r.CreatedAt, r.Stats.SelectedProposals, r.Stats.CandidateProposals)
	}
}

func writeRunTraceText(w io.Writer, t RunTrace) {
	fmt.Fprintf(w, "Run: %s\n", t.Run.ID)
	fmt.Fprintf(w, "  created:  %s\n", t.Run.CreatedAt)
	fmt.Fprintf(w, "  engine:   %s (ir %s)\n", t.Run.EngineVersion, t.Run.IRVersion)
	fmt.Fprintf(w, "  input:    %s\n", t.Run.InputHash)
	fmt.Fprintf(w, "  output:   %s\n", t.Run.OutputDigest)
	fmt.Fprintf(w, "  stats:    %d intent(s), %d edge(s), %d cycle(s), %d selected\n",
		t.Run.Stats.IntentsActive, t.Run.Stats.Edges, t.Run.Stats.CandidateCycles, t.Run.Stats.SelectedProposals)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Trace:")
	for _, row := range t.Trace {
		mark := "✗"
		if row.Selected {
			mark = "✓"
		}
		fmt.Fprintf(w, "  %s %-40s score=%.4f %s\n", mark, strings.Join(row.Cycle, " → "), row.Score, row.Reason)
	}
}

func writeIntentTraceText(w io.Writer, t IntentTrace) {
	if len(t.Proposals) == 0 {
		fmt.Fprintf(w, "No stored proposals for intent %s.\n", t.IntentID)
		return
	}
	fmt.Fprintf(w, "Intent %s appears in %d proposal(s):\n", t.IntentID, len(t.Proposals))
	for _, ref := range t.Proposals {
		fmt.Fprintf(w, "  %s  %s\n", ref.RunID, ref.ProposalID)
	}
}
