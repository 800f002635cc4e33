package engine

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/LuisRevillaM/swapgraph-sub007/internal/ir"
)

// Valuer maps an asset id to its USD value.
//
// The engine treats valuations as a fully resolved lookup table: no I/O
// happens during a run. A missing entry must return a MatchError with
// ErrCodeMissingAssetValue; the engine never substitutes a default.
type Valuer interface {
	ValueUSD(assetID string) (float64, error)
}

// ValueTable is the in-memory Valuer built from input.asset_values_usd.
type ValueTable map[string]float64

// ValueUSD returns the value for assetID or a MISSING_ASSET_VALUE error.
func (t ValueTable) ValueUSD(assetID string) (float64, error) {
	v, ok := t[assetID]
	if !ok {
		return 0, NewMissingAssetValueError(assetID)
	}
	return v, nil
}

// Validate rejects negative and non-finite valuations up front so the
// scorer never sees them.
func (t ValueTable) Validate() error {
	for assetID, v := range t {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return &MatchError{
				Code:    ErrCodeInvalidAssetValue,
				Message: fmt.Sprintf("invalid asset value %v for asset_id=%s", v, assetID),
				AssetID: assetID,
			}
		}
	}
	return nil
}

// sumUSD totals the value of assets with exact decimal addition.
// Fails on the first asset without a value.
func sumUSD(assets []ir.Asset, values Valuer) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, a := range assets {
		v, err := values.ValueUSD(a.AssetID)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(decimal.NewFromFloat(v))
	}
	return total, nil
}

// roundTo rounds x half away from zero to the given decimal places.
func roundTo(x float64, places int32) float64 {
	return decimal.NewFromFloat(x).Round(places).InexactFloat64()
}
