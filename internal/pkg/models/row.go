package models

import (
	"sort"
	"time"
)

// OutcomeChoice is the set of outcomes a row covers for one match:
// one outcome (single) or two (half-cover).
type OutcomeChoice []Outcome

// IsHalfCover reports whether the choice covers two outcomes.
func (c OutcomeChoice) IsHalfCover() bool {
	return len(c) == 2
}

// Signs renders the choice in pools notation, e.g. "1" or "1X".
func (c OutcomeChoice) Signs() string {
	return SignsString(c)
}

// SuggestedRow represents one generated coupon row.
type SuggestedRow struct {
	ID            string                `json:"id"`
	CouponID      string                `json:"coupon_id"`
	Label         string                `json:"label"`   // "primary", "alt-1", ...
	Choices       map[int]OutcomeChoice `json:"choices"` // slot -> covered outcomes
	HalfCovers    int                   `json:"half_covers"`
	CostFactor    int                   `json:"cost_factor"` // 2^HalfCovers
	ExpectedValue float64               `json:"expected_value"`
	EVPerCost     float64               `json:"ev_per_cost"`
	Reasoning     string                `json:"reasoning"`
	CreatedAt     time.Time             `json:"created_at"`
}

// Slots returns the covered slot numbers in ascending order.
func (r SuggestedRow) Slots() []int {
	slots := make([]int, 0, len(r.Choices))
	for slot := range r.Choices {
		slots = append(slots, slot)
	}
	sort.Ints(slots)
	return slots
}
