package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/LuisRevillaM/swapgraph-sub007/internal/ir"
)

// ErrRunNotFound is returned when no run matches the lookup.
var ErrRunNotFound = errors.New("run not found")

const selectRun = `
	SELECT id, input_hash, output_digest, stats_json, engine_version, ir_version, created_at
	FROM runs`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (RunRecord, error) {
	var (
		rec       RunRecord
		statsJSON string
	)
	err := row.Scan(&rec.ID, &rec.InputHash, &rec.OutputDigest, &statsJSON,
		&rec.EngineVersion, &rec.IRVersion, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, ErrRunNotFound
	}
	if err != nil {
		return RunRecord{}, fmt.Errorf("scan run: %w", err)
	}
	if err := json.Unmarshal([]byte(statsJSON), &rec.Stats); err != nil {
		return RunRecord{}, fmt.Errorf("unmarshal stats: %w", err)
	}
	return rec, nil
}

// ReadRun returns the run header for runID.
func (s *Store) ReadRun(ctx context.Context, runID string) (RunRecord, error) {
	rec, err := scanRun(s.db.QueryRowContext(ctx, selectRun+` WHERE id = ?`, runID))
	if err != nil {
		return RunRecord{}, fmt.Errorf("read run %s: %w", runID, err)
	}
	return rec, nil
}

// FindRunByInputHash returns the run stored for an input hash.
func (s *Store) FindRunByInputHash(ctx context.Context, inputHash string) (RunRecord, error) {
	rec, err := scanRun(s.db.QueryRowContext(ctx, selectRun+` WHERE input_hash = ?`, inputHash))
	if err != nil {
		return RunRecord{}, fmt.Errorf("find run by input hash: %w", err)
	}
	return rec, nil
}

// ListRuns returns up to limit runs ordered by id. A limit <= 0 returns
// every run.
//
// Returns an empty slice (not nil) when the store holds no runs.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	query := selectRun + ` ORDER BY id COLLATE BINARY ASC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []RunRecord{}
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadInput returns the stored input of a run.
func (s *Store) ReadInput(ctx context.Context, runID string) (ir.MatchInput, error) {
	var inputJSON string
	err := s.db.QueryRowContext(ctx, `SELECT input_json FROM runs WHERE id = ?`, runID).Scan(&inputJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.MatchInput{}, fmt.Errorf("read input %s: %w", runID, ErrRunNotFound)
	}
	if err != nil {
		return ir.MatchInput{}, fmt.Errorf("read input %s: %w", runID, err)
	}
	return unmarshalInput(inputJSON)
}

// ReadProposals returns the selected proposals of a run in ranking order.
//
// Returns an empty slice (not nil) if the run selected nothing.
func (s *Store) ReadProposals(ctx context.Context, runID string) ([]ir.Proposal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT proposal_json
		FROM proposals
		WHERE run_id = ?
		ORDER BY rank ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query proposals: %w", err)
	}
	defer rows.Close()

	proposals := []ir.Proposal{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan proposal: %w", err)
		}
		var p ir.Proposal
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			return nil, fmt.Errorf("unmarshal proposal: %w", err)
		}
		proposals = append(proposals, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate proposals: %w", err)
	}
	return proposals, nil
}

// ReadTrace returns the selection trace of a run in candidate order.
//
// Returns an empty slice (not nil) if the run had no candidates.
func (s *Store) ReadTrace(ctx context.Context, runID string) ([]ir.SelectionTraceEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT proposal_id, cycle_json, score_bp, selected, reason
		FROM selection_trace
		WHERE run_id = ?
		ORDER BY row ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query trace: %w", err)
	}
	defer rows.Close()

	trace := []ir.SelectionTraceEntry{}
	for rows.Next() {
		var (
			entry     ir.SelectionTraceEntry
			cycleJSON string
			scoreBP   int64
			selected  int
		)
		if err := rows.Scan(&entry.ProposalID, &cycleJSON, &scoreBP, &selected, &entry.Reason); err != nil {
			return nil, fmt.Errorf("scan trace row: %w", err)
		}
		if err := json.Unmarshal([]byte(cycleJSON), &entry.Cycle); err != nil {
			return nil, fmt.Errorf("unmarshal cycle: %w", err)
		}
		entry.Score = float64(scoreBP) / 10000
		entry.Selected = selected != 0
		trace = append(trace, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trace: %w", err)
	}
	return trace, nil
}

// ProposalRef points at one stored proposal.
type ProposalRef struct {
	RunID      string `json:"run_id"`
	ProposalID string `json:"proposal_id"`
}

// ProposalsForIntent lists every stored proposal that includes intentID,
// ordered by run id then proposal id.
func (s *Store) ProposalsForIntent(ctx context.Context, intentID string) ([]ProposalRef, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, proposal_id
		FROM proposal_participants
		WHERE intent_id = ?
		ORDER BY run_id COLLATE BINARY ASC, proposal_id COLLATE BINARY ASC
	`, intentID)
	if err != nil {
		return nil, fmt.Errorf("query participants: %w", err)
	}
	defer rows.Close()

	refs := []ProposalRef{}
	for rows.Next() {
		var ref ProposalRef
		if err := rows.Scan(&ref.RunID, &ref.ProposalID); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate participants: %w", err)
	}
	return refs, nil
}
