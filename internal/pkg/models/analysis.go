package models

import (
	"time"
)

// MatchAnalysis represents the engine output for one coupon match.
type MatchAnalysis struct {
	CouponID      string                `json:"coupon_id"`
	Slot          int                   `json:"slot"`
	MatchName     string                `json:"match_name"`
	HasOdds       bool                  `json:"has_odds"` // false -> percentage-only fallback
	QuoteCount    int                   `json:"quote_count"`
	Odds          [OutcomeCount]float64 `json:"odds"`          // aggregated mean odds, zero when HasOdds is false
	Probabilities [OutcomeCount]float64 `json:"probabilities"` // margin-free, sums to 1
	Values        [OutcomeCount]float64 `json:"values"`        // probability / (streck/100)
	Percentages   [OutcomeCount]float64 `json:"percentages"`
	Recommended   string                `json:"recommended"` // signs at/above threshold, e.g. "1" or "1X"
	Rationale     string                `json:"rationale"`
	GeneratedAt   time.Time             `json:"generated_at"`
}

// BestValue returns the highest value score and its outcome.
func (a MatchAnalysis) BestValue() (Outcome, float64) {
	best := OutcomeHome
	for o := OutcomeDraw; o < OutcomeCount; o++ {
		if a.Values[o] > a.Values[best] {
			best = o
		}
	}
	return best, a.Values[best]
}

// CouponAnalysis bundles the per-match analyses of one generation run.
type CouponAnalysis struct {
	CouponID    string          `json:"coupon_id"`
	Matches     []MatchAnalysis `json:"matches"`
	GeneratedAt time.Time       `json:"generated_at"`
}
