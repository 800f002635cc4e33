package engine

import (
	"errors"
	"fmt"
)

// MatchError represents an error that aborts a whole matching run.
//
// Match errors include:
//   - Missing asset value: an asset id has no known USD value
//   - Invalid input: knobs out of range, unparseable now, bad valuations
//
// Per-candidate problems (a cycle exceeding a participant's
// max_cycle_length) are NOT errors; they are reported as RejectReason values.
type MatchError struct {
	// Code identifies the error category.
	Code MatchErrorCode

	// Message is a human-readable description.
	Message string

	// AssetID identifies the asset (for valuation errors).
	AssetID string

	// IntentID identifies the intent being processed, if known.
	IntentID string

	// Details contains additional context.
	Details map[string]string
}

// MatchErrorCode categorizes match errors.
type MatchErrorCode string

const (
	// ErrCodeMissingAssetValue indicates an asset id with no known USD value.
	ErrCodeMissingAssetValue MatchErrorCode = "MISSING_ASSET_VALUE"

	// ErrCodeInvalidAssetValue indicates a negative or non-finite valuation.
	ErrCodeInvalidAssetValue MatchErrorCode = "INVALID_ASSET_VALUE"

	// ErrCodeInvalidInput indicates run parameters that cannot be honored.
	ErrCodeInvalidInput MatchErrorCode = "INVALID_INPUT"
)

// Error implements the error interface.
func (e *MatchError) Error() string {
	if e.IntentID != "" {
		return fmt.Sprintf("%s: %s (intent=%s)", e.Code, e.Message, e.IntentID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsMissingAssetValue returns true if the error is a missing valuation.
// Uses errors.As to handle wrapped errors.
func IsMissingAssetValue(err error) bool {
	var me *MatchError
	if errors.As(err, &me) {
		return me.Code == ErrCodeMissingAssetValue
	}
	return false
}

// IsInvalidInput returns true if the error is an input error.
// Uses errors.As to handle wrapped errors.
func IsInvalidInput(err error) bool {
	var me *MatchError
	if errors.As(err, &me) {
		return me.Code == ErrCodeInvalidInput || me.Code == ErrCodeInvalidAssetValue
	}
	return false
}

// NewMissingAssetValueError creates a MatchError for an unpriced asset.
func NewMissingAssetValueError(assetID string) *MatchError {
	return &MatchError{
		Code:    ErrCodeMissingAssetValue,
		Message: fmt.Sprintf("Missing asset value for asset_id=%s", assetID),
		AssetID: assetID,
	}
}

// NewInvalidInputError creates a MatchError for unusable run parameters.
func NewInvalidInputError(field, reason string) *MatchError {
	return &MatchError{
		Code:    ErrCodeInvalidInput,
		Message: fmt.Sprintf("%s: %s", field, reason),
		Details: map[string]string{"field": field},
	}
}

// withIntent annotates a MatchError with the intent being processed.
// Other errors are returned unchanged.
func withIntent(err error, intentID string) error {
	var me *MatchError
	if errors.As(err, &me) && me.IntentID == "" {
		cp := *me
		cp.IntentID = intentID
		return &cp
	}
	return err
}

// RejectReason explains why a cycle did not become a candidate proposal.
type RejectReason string

const (
	// RejectMaxCycleLengthExceeded: a participant's max_cycle_length is
	// smaller than the cycle length.
	RejectMaxCycleLengthExceeded RejectReason = "max_cycle_length_exceeded"

	// RejectUnknownIntent: the cycle names an intent outside the graph.
	RejectUnknownIntent RejectReason = "unknown_intent"

	// RejectInvalidCycle: fewer than two intents or a repeated intent.
	RejectInvalidCycle RejectReason = "invalid_cycle"
)
