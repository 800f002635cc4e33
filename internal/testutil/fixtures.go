package testutil

import (
	"fmt"

	"github.com/LuisRevillaM/swapgraph-sub007/internal/ir"
)

// DefaultPlatform is the platform of assets built by these fixtures.
const DefaultPlatform = "steam"

// IntentOption customizes a fixture intent.
type IntentOption func(*ir.Intent)

// NewIntent builds an active intent that offers one asset and wants one
// specific asset. The actor id is "user_<id>".
func NewIntent(id, offers, wants string, opts ...IntentOption) ir.Intent {
	intent := ir.Intent{
		ID:     id,
		Actor:  ir.Actor{Type: "user", ID: "user_" + id},
		Status: ir.IntentStatusActive,
		Offer:  []ir.Asset{{Platform: DefaultPlatform, AssetID: offers}},
		WantSpec: ir.WantSpec{
			Type: "set",
			AnyOf: []ir.WantAlternative{
				{Type: ir.WantSpecificAsset, Platform: DefaultPlatform, AssetID: wants},
			},
		},
	}
	for _, opt := range opts {
		opt(&intent)
	}
	return intent
}

// WithMaxCycleLength sets trust_constraints.max_cycle_length.
func WithMaxCycleLength(n int) IntentOption {
	return func(i *ir.Intent) { i.TrustConstraints.MaxCycleLength = &n }
}

// WithExpiry sets time_constraints.expires_at.
func WithExpiry(ts string) IntentOption {
	return func(i *ir.Intent) { i.TimeConstraints.ExpiresAt = ts }
}

// WithStatus sets the intent status.
func WithStatus(status string) IntentOption {
	return func(i *ir.Intent) { i.Status = status }
}

// WithValueBand sets an inclusive value band.
func WithValueBand(minUSD, maxUSD float64) IntentOption {
	return func(i *ir.Intent) {
		i.ValueBand = &ir.ValueBand{MinUSD: &minUSD, MaxUSD: &maxUSD}
	}
}

// WithExtraWant adds another acceptable specific asset.
func WithExtraWant(assetID string) IntentOption {
	return func(i *ir.Intent) {
		i.WantSpec.AnyOf = append(i.WantSpec.AnyOf, ir.WantAlternative{
			Type: ir.WantSpecificAsset, Platform: DefaultPlatform, AssetID: assetID,
		})
	}
}

// WithCategory tags every offered asset with a category.
func WithCategory(category string) IntentOption {
	return func(i *ir.Intent) {
		for k := range i.Offer {
			i.Offer[k].Category = category
		}
	}
}

// WantsCategory replaces the want spec with a single category alternative.
func WantsCategory(category string) IntentOption {
	return func(i *ir.Intent) {
		i.WantSpec.AnyOf = []ir.WantAlternative{{Type: ir.WantCategory, Category: category}}
	}
}

// Ring builds n intents r1..rn where ri offers asset xi and wants the
// asset of the previous intent, so r1 -> r2 -> ... -> rn -> r1 closes.
func Ring(prefix string, n int, opts ...IntentOption) []ir.Intent {
	intents := make([]ir.Intent, n)
	for k := 0; k < n; k++ {
		prev := (k + n - 1) % n
		intents[k] = NewIntent(
			fmt.Sprintf("%s%d", prefix, k+1),
			fmt.Sprintf("%s_x%d", prefix, k+1),
			fmt.Sprintf("%s_x%d", prefix, prev+1),
			opts...,
		)
	}
	return intents
}

// CompleteGraph builds n intents that each offer a shared-category asset
// and want that category, so every ordered pair is an edge.
func CompleteGraph(n int) []ir.Intent {
	intents := make([]ir.Intent, n)
	for k := 0; k < n; k++ {
		id := fmt.Sprintf("n%03d", k)
		intents[k] = NewIntent(id, "asset_"+id, "", WithCategory("card"), WantsCategory("card"))
	}
	return intents
}

// Prices assigns the same USD value to every asset offered by intents.
func Prices(usd float64, intents ...ir.Intent) map[string]float64 {
	values := make(map[string]float64)
	for _, intent := range intents {
		for _, a := range intent.Offer {
			values[a.AssetID] = usd
		}
	}
	return values
}
