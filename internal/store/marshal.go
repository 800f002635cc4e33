package store

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/LuisRevillaM/swapgraph-sub007/internal/ir"
)

// marshalInput serializes a run input for storage and hashing.
//
// encoding/json writes struct fields in declaration order and map keys
// sorted, so the same input always yields the same bytes.
func marshalInput(in ir.MatchInput) ([]byte, error) {
	data, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("marshal input: %w", err)
	}
	return data, nil
}

// unmarshalInput decodes a stored run input.
func unmarshalInput(data string) (ir.MatchInput, error) {
	var in ir.MatchInput
	if err := json.Unmarshal([]byte(data), &in); err != nil {
		return ir.MatchInput{}, fmt.Errorf("unmarshal input: %w", err)
	}
	return in, nil
}

// InputHash returns the content hash that keys a run in the store.
func InputHash(in ir.MatchInput) (string, error) {
	data, err := marshalInput(in)
	if err != nil {
		return "", err
	}
	return ir.RunInputHash(data), nil
}

// OutputDigest hashes the proposals and trace of a result. Stats and
// diagnostics are excluded: they may legitimately differ between a capped
// run and its replay on a faster machine.
func OutputDigest(res *ir.MatchResult) (string, error) {
	data, err := json.Marshal(struct {
		Proposals []ir.Proposal            `json:"proposals"`
		Trace     []ir.SelectionTraceEntry `json:"trace"`
	}{res.Proposals, res.Trace})
	if err != nil {
		return "", fmt.Errorf("marshal output: %w", err)
	}
	return ir.OutputDigest(data), nil
}

// basisPoints stores a [0,1] score as an integer.
func basisPoints(score float64) int64 {
	return int64(math.Round(score * 10000))
}

func marshalJSON(v any, what string) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal %s: %w", what, err)
	}
	return string(data), nil
}
