package engine

import (
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/LuisRevillaM/swapgraph-sub007/internal/ir"
)

// EdgeMeta carries per-edge data that survives into scoring.
type EdgeMeta struct {
	// ExplicitPreferStrength is the summed strength of active "prefer"
	// preference edges from source to target.
	ExplicitPreferStrength float64
}

// CompatibilityGraph is the directed graph of eligible intents.
//
// Edges[a] lists, in lexical order, every b such that a's offer satisfies
// b's want spec and value band. Every eligible intent has an Edges entry,
// possibly empty.
type CompatibilityGraph struct {
	ByID     map[string]ir.Intent
	Edges    map[string][]string
	EdgeMeta map[Edge]EdgeMeta
}

// Edge names the directed edge From -> To. Ids are kept apart, so any
// characters are allowed in them.
type Edge struct {
	From, To string
}

// NodeIDs returns the eligible intent ids in lexical order.
func (g *CompatibilityGraph) NodeIDs() []string {
	ids := make([]string, 0, len(g.ByID))
	for id := range g.ByID {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// EdgeCount returns the number of directed edges.
func (g *CompatibilityGraph) EdgeCount() int {
	n := 0
	for _, to := range g.Edges {
		n += len(to)
	}
	return n
}

// HasEdge reports whether from -> to exists.
func (g *CompatibilityGraph) HasEdge(from, to string) bool {
	_, found := slices.BinarySearch(g.Edges[from], to)
	return found
}

// IneligibleReason explains why an intent is not a graph node.
type IneligibleReason string

const (
	IneligibleNotActive     IneligibleReason = "not_active"
	IneligibleEmptyOffer    IneligibleReason = "empty_offer"
	IneligibleExpired       IneligibleReason = "expired"
	IneligibleBadExpiry     IneligibleReason = "unparseable_expires_at"
	IneligibleDuplicateID   IneligibleReason = "duplicate_id"
	IneligibleMissingIntent IneligibleReason = "missing_id"
)

// CheckEligible applies the node predicate to a single intent.
//
// An intent is eligible when it has an id, its status is empty or active,
// its offer is non-empty and it has not expired at now. An expires_at equal to now
// counts as expired. Returns "" when eligible.
func CheckEligible(intent ir.Intent, now time.Time) IneligibleReason {
	if intent.ID == "" {
		return IneligibleMissingIntent
	}
	if intent.Status != "" && intent.Status != ir.IntentStatusActive {
		return IneligibleNotActive
	}
	if len(intent.Offer) == 0 {
		return IneligibleEmptyOffer
	}
	if exp := intent.TimeConstraints.ExpiresAt; exp != "" {
		t, err := ParseTimestamp(exp)
		if err != nil {
			return IneligibleBadExpiry
		}
		if !t.After(now) {
			return IneligibleExpired
		}
	}
	return ""
}

// ParseTimestamp parses an RFC 3339 timestamp with optional fractional seconds.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

// BuildCompatibilityGraph builds the directed compatibility graph.
//
// Eligible intents become nodes; when ids repeat, the first occurrence
// wins. An edge A -> B (A != B) exists when some asset in A's offer
// satisfies B's want spec and, if B declares a value band, the total USD
// value of A's offer lies inside it (bounds inclusive).
//
// Preference edges then adjust the result: an active "block" edge removes
// A -> B; an active "prefer" edge adds its strength to A -> B's
// ExplicitPreferStrength when the edge exists. Preferences never create
// edges.
//
// Returns a MatchError (MISSING_ASSET_VALUE) when a value band check needs
// an asset that has no valuation.
func BuildCompatibilityGraph(
	intents []ir.Intent,
	values Valuer,
	prefs []ir.PreferenceEdge,
	now time.Time,
	logger *slog.Logger,
) (*CompatibilityGraph, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	g := &CompatibilityGraph{
		ByID:     make(map[string]ir.Intent, len(intents)),
		Edges:    make(map[string][]string, len(intents)),
		EdgeMeta: make(map[Edge]EdgeMeta),
	}

	var order []string
	for _, intent := range intents {
		reason := CheckEligible(intent, now)
		if reason == "" {
			if _, dup := g.ByID[intent.ID]; dup {
				reason = IneligibleDuplicateID
			}
		}
		if reason != "" {
			logger.Debug("intent excluded", "intent_id", intent.ID, "reason", reason)
			continue
		}
		g.ByID[intent.ID] = intent
		order = append(order, intent.ID)
	}
	slices.Sort(order)

	// Offer totals are computed lazily, only for sources that meet a banded
	// target, and cached for the rest of the build.
	offerTotals := make(map[string]decimal.Decimal)
	offerTotal := func(id string) (decimal.Decimal, error) {
		if v, ok := offerTotals[id]; ok {
			return v, nil
		}
		v, err := sumUSD(g.ByID[id].Offer, values)
		if err != nil {
			return decimal.Zero, withIntent(err, id)
		}
		offerTotals[id] = v
		return v, nil
	}

	blocked := activePreferences(prefs, ir.EdgeKindBlock)

	for _, from := range order {
		src := g.ByID[from]
		targets := []string{}
		for _, to := range order {
			if to == from {
				continue
			}
			dst := g.ByID[to]
			if !OfferSatisfiesWant(src.Offer, dst.WantSpec) {
				continue
			}
			if dst.ValueBand != nil {
				total, err := offerTotal(from)
				if err != nil {
					return nil, err
				}
				if !dst.ValueBand.Contains(total.InexactFloat64()) {
					continue
				}
			}
			if _, isBlocked := blocked[Edge{from, to}]; isBlocked {
				logger.Debug("edge blocked", "from", from, "to", to)
				continue
			}
			targets = append(targets, to)
		}
		g.Edges[from] = targets
	}

	for pair, strength := range activePreferences(prefs, ir.EdgeKindPrefer) {
		if !g.HasEdge(pair.From, pair.To) {
			continue
		}
		g.EdgeMeta[pair] = EdgeMeta{ExplicitPreferStrength: strength}
	}

	return g, nil
}

// activePreferences sums strengths of active preference edges of one kind.
// An empty kind counts as "prefer". Non-positive prefer strengths are
// ignored.
func activePreferences(prefs []ir.PreferenceEdge, kind string) map[Edge]float64 {
	out := make(map[Edge]float64)
	for _, p := range prefs {
		if p.Status != "" && p.Status != ir.PreferenceStatusActive {
			continue
		}
		k := p.Kind
		if k == "" {
			k = ir.EdgeKindPrefer
		}
		if k != kind || p.SourceIntentID == "" || p.TargetIntentID == "" {
			continue
		}
		pair := Edge{p.SourceIntentID, p.TargetIntentID}
		if kind == ir.EdgeKindPrefer {
			if p.Strength <= 0 {
				continue
			}
			out[pair] += p.Strength
			continue
		}
		out[pair] = 0
	}
	return out
}

// OfferSatisfiesWant reports whether any offered asset matches any
// alternative of the want spec. An empty want spec matches nothing.
func OfferSatisfiesWant(offer []ir.Asset, want ir.WantSpec) bool {
	for _, asset := range offer {
		for _, alt := range want.AnyOf {
			if assetMatches(asset, alt) {
				return true
			}
		}
	}
	return false
}

func assetMatches(asset ir.Asset, alt ir.WantAlternative) bool {
	if alt.Platform != "" && alt.Platform != asset.Platform {
		return false
	}
	switch alt.Type {
	case ir.WantSpecificAsset:
		return alt.AssetID != "" && alt.AssetID == asset.AssetID
	case ir.WantCategory:
		return alt.Category != "" && alt.Category == asset.Category
	default:
		return false
	}
}
