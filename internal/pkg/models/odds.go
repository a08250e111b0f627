package models

import (
	"time"
)

// OddsQuote represents one bookmaker's 1X2 prices for a coupon match.
// One quote per (match, bookmaker) is kept; a newer fetch replaces it.
type OddsQuote struct {
	CouponID  string                `json:"coupon_id"`
	Slot      int                   `json:"slot"`
	Bookmaker string                `json:"bookmaker"`
	Odds      [OutcomeCount]float64 `json:"odds"` // decimal odds: [home, draw, away]
	FetchedAt time.Time             `json:"fetched_at"`
}

// ImpliedProbabilities returns the raw 1/odds triple without margin removal.
// The sum exceeds 1 by the bookmaker's overround.
func (q OddsQuote) ImpliedProbabilities() [OutcomeCount]float64 {
	var probs [OutcomeCount]float64
	for i, o := range q.Odds {
		if o > 0 {
			probs[i] = 1 / o
		}
	}
	return probs
}

// AggregateQuotes averages all quotes per outcome into a single odds triple.
// Returns false when the slice is empty.
func AggregateQuotes(quotes []OddsQuote) ([OutcomeCount]float64, bool) {
	var sum [OutcomeCount]float64
	if len(quotes) == 0 {
		return sum, false
	}
	for _, q := range quotes {
		for i, o := range q.Odds {
			sum[i] += o
		}
	}
	for i := range sum {
		sum[i] /= float64(len(quotes))
	}
	return sum, true
}
