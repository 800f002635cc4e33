package compiler

import (
	"fmt"
	"slices"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/LuisRevillaM/swapgraph-sub007/internal/ir"
)

// Compile error codes (E100-E109)
const (
	ErrUnsupportedFormat = "E100" // unknown file extension or format
	ErrInputSyntax       = "E101" // document does not parse
	ErrInputSchema       = "E102" // document violates #Input
	ErrInputDecode       = "E103" // document cannot be decoded into an input
)

// Lint codes (E110-E119)
const (
	ErrCycleBounds       = "E110" // min/max cycle length unusable
	ErrBadTimestamp      = "E111" // now_iso or expires_at does not parse
	ErrDuplicateIntentID = "E112" // intent id appears more than once
	ErrUnpricedAsset     = "E113" // offered asset has no USD value
	ErrInvalidValue      = "E114" // negative asset value
	ErrUnknownEdgeIntent = "E115" // preference edge names an unknown intent
	ErrInvalidValueBand  = "E116" // value band min above max
	ErrNonNFCIntentID    = "E117" // intent id is not NFC normalized
)

// ValidationError represents one problem found in an input document.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Lint checks a decoded input for problems the engine would either reject
// or silently work around. Lint is stricter than the engine: duplicate ids
// and unknown preference targets are reported even though a run tolerates
// them. Returns all problems found (does not fail-fast).
func Lint(in ir.MatchInput) []ValidationError {
	var errs []ValidationError

	minLen, maxLen := ir.DefaultMinCycleLength, ir.DefaultMaxCycleLength
	if in.MinCycleLength != nil {
		minLen = *in.MinCycleLength
	}
	if in.MaxCycleLength != nil {
		maxLen = *in.MaxCycleLength
	}
	if minLen < 2 {
		errs = append(errs, ValidationError{
			Field:   "min_cycle_length",
			Message: fmt.Sprintf("must be >= 2, got %d", minLen),
			Code:    ErrCycleBounds,
		})
	}
	if maxLen < minLen {
		errs = append(errs, ValidationError{
			Field:   "max_cycle_length",
			Message: fmt.Sprintf("must be >= min_cycle_length (%d), got %d", minLen, maxLen),
			Code:    ErrCycleBounds,
		})
	}

	if in.NowISO != "" {
		if _, err := time.Parse(time.RFC3339Nano, in.NowISO); err != nil {
			errs = append(errs, ValidationError{
				Field:   "now_iso",
				Message: err.Error(),
				Code:    ErrBadTimestamp,
			})
		}
	}

	assetIDs := make([]string, 0, len(in.AssetValuesUSD))
	for id := range in.AssetValuesUSD {
		assetIDs = append(assetIDs, id)
	}
	slices.Sort(assetIDs)
	for _, id := range assetIDs {
		if v := in.AssetValuesUSD[id]; v < 0 {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("asset_values_usd.%s", id),
				Message: fmt.Sprintf("value must not be negative, got %v", v),
				Code:    ErrInvalidValue,
			})
		}
	}

	seen := make(map[string]bool, len(in.Intents))
	for i, intent := range in.Intents {
		if seen[intent.ID] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("intents[%d].id", i),
				Message: fmt.Sprintf("duplicate intent id %q (first occurrence wins)", intent.ID),
				Code:    ErrDuplicateIntentID,
			})
		}
		seen[intent.ID] = true

		if !norm.NFC.IsNormalString(intent.ID) {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("intents[%d].id", i),
				Message: fmt.Sprintf("intent id %q is not NFC normalized; proposal ids treat it as %q", intent.ID, norm.NFC.String(intent.ID)),
				Code:    ErrNonNFCIntentID,
			})
		}

		if exp := intent.TimeConstraints.ExpiresAt; exp != "" {
			if _, err := time.Parse(time.RFC3339Nano, exp); err != nil {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("intents[%d].time_constraints.expires_at", i),
					Message: fmt.Sprintf("intent %q is never eligible: %v", intent.ID, err),
					Code:    ErrBadTimestamp,
				})
			}
		}

		for j, asset := range intent.Offer {
			if _, ok := in.AssetValuesUSD[asset.AssetID]; !ok {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("intents[%d].offer[%d]", i, j),
					Message: fmt.Sprintf("no USD value for asset_id=%s", asset.AssetID),
					Code:    ErrUnpricedAsset,
				})
			}
		}

		if band := intent.ValueBand; band != nil && band.MinUSD != nil && band.MaxUSD != nil && *band.MinUSD > *band.MaxUSD {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("intents[%d].value_band", i),
				Message: fmt.Sprintf("min_usd %v above max_usd %v", *band.MinUSD, *band.MaxUSD),
				Code:    ErrInvalidValueBand,
			})
		}
	}

	for i, edge := range in.EdgeIntents {
		for _, ref := range []struct{ field, id string }{
			{"source_intent_id", edge.SourceIntentID},
			{"target_intent_id", edge.TargetIntentID},
		} {
			if !seen[ref.id] {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("edge_intents[%d].%s", i, ref.field),
					Message: fmt.Sprintf("unknown intent %q", ref.id),
					Code:    ErrUnknownEdgeIntent,
				})
			}
		}
	}

	return errs
}
