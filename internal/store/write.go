package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/LuisRevillaM/swapgraph-sub007/internal/ir"
)

// RunRecord is the stored header of one matching run.
type RunRecord struct {
	ID            string   `json:"id"`
	InputHash     string   `json:"input_hash"`
	OutputDigest  string   `json:"output_digest"`
	Stats         ir.Stats `json:"stats"`
	EngineVersion string   `json:"engine_version"`
	IRVersion     string   `json:"ir_version"`
	CreatedAt     string   `json:"created_at"`
}

// WriteRun stores a run with its proposals and selection trace in a
// single transaction.
//
// Runs are keyed by input hash: when a run with the same input already
// exists nothing is written and the existing record is returned with
// inserted=false. runID is only used for new runs.
func (s *Store) WriteRun(ctx context.Context, runID string, createdAt time.Time, in ir.MatchInput, res *ir.MatchResult) (RunRecord, bool, error) {
	inputJSON, err := marshalInput(in)
	if err != nil {
		return RunRecord{}, false, fmt.Errorf("write run: %w", err)
	}
	digest, err := OutputDigest(res)
	if err != nil {
		return RunRecord{}, false, fmt.Errorf("write run: %w", err)
	}
	statsJSON, err := marshalJSON(res.Stats, "stats")
	if err != nil {
		return RunRecord{}, false, fmt.Errorf("write run: %w", err)
	}

	rec := RunRecord{
		ID:            runID,
		InputHash:     ir.RunInputHash(inputJSON),
		OutputDigest:  digest,
		Stats:         res.Stats,
		EngineVersion: ir.EngineVersion,
		IRVersion:     ir.IRVersion,
		CreatedAt:     createdAt.UTC().Format(time.RFC3339Nano),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return RunRecord{}, false, fmt.Errorf("write run: begin: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, input_hash, input_json, output_digest, stats_json, engine_version, ir_version, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(input_hash) DO NOTHING
	`,
		rec.ID,
		rec.InputHash,
		string(inputJSON),
		rec.OutputDigest,
		statsJSON,
		rec.EngineVersion,
		rec.IRVersion,
		rec.CreatedAt,
	)
	if err != nil {
		return RunRecord{}, false, fmt.Errorf("write run: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return RunRecord{}, false, fmt.Errorf("write run: rows affected: %w", err)
	}
	if n == 0 {
		existing, err := scanRun(tx.QueryRowContext(ctx, selectRun+` WHERE input_hash = ?`, rec.InputHash))
		if err != nil {
			return RunRecord{}, false, fmt.Errorf("write run: load existing: %w", err)
		}
		return existing, false, nil
	}

	if err := writeProposals(ctx, tx, runID, res.Proposals); err != nil {
		return RunRecord{}, false, err
	}
	if err := writeTrace(ctx, tx, runID, res.Trace); err != nil {
		return RunRecord{}, false, err
	}

	if err := tx.Commit(); err != nil {
		return RunRecord{}, false, fmt.Errorf("write run: commit: %w", err)
	}
	return rec, true, nil
}

func writeProposals(ctx context.Context, tx *sql.Tx, runID string, proposals []ir.Proposal) error {
	for rank, p := range proposals {
		proposalJSON, err := marshalJSON(p, "proposal")
		if err != nil {
			return fmt.Errorf("write proposal %s: %w", p.ID, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO proposals
			(run_id, rank, proposal_id, confidence_bp, expires_at, proposal_json)
			VALUES (?, ?, ?, ?, ?, ?)
		`, runID, rank, p.ID, basisPoints(p.ConfidenceScore), p.ExpiresAt, proposalJSON)
		if err != nil {
			return fmt.Errorf("write proposal %s: %w", p.ID, err)
		}
		for _, intentID := range p.IntentIDs() {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO proposal_participants (run_id, proposal_id, intent_id)
				VALUES (?, ?, ?)
				ON CONFLICT DO NOTHING
			`, runID, p.ID, intentID)
			if err != nil {
				return fmt.Errorf("write participant %s: %w", intentID, err)
			}
		}
	}
	return nil
}

func writeTrace(ctx context.Context, tx *sql.Tx, runID string, trace []ir.SelectionTraceEntry) error {
	for row, entry := range trace {
		cycleJSON, err := marshalJSON(entry.Cycle, "cycle")
		if err != nil {
			return fmt.Errorf("write trace row %d: %w", row, err)
		}
		selected := 0
		if entry.Selected {
			selected = 1
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO selection_trace
			(run_id, row, proposal_id, cycle_json, score_bp, selected, reason)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, runID, row, entry.ProposalID, cycleJSON, basisPoints(entry.Score), selected, entry.Reason)
		if err != nil {
			return fmt.Errorf("write trace row %d: %w", row, err)
		}
	}
	return nil
}
