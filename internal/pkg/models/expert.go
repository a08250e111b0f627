package models

import (
	"time"
)

// ExpertPick represents one pundit's prediction for a coupon match.
type ExpertPick struct {
	CouponID   string    `json:"coupon_id"`
	Slot       int       `json:"slot"`
	Source     string    `json:"source"` // outlet, e.g. "Rekatochklart"
	Expert     string    `json:"expert"`
	Signs      string    `json:"signs"` // "1", "X", "2" or a two-sign pick like "1X"
	Rationale  string    `json:"rationale,omitempty"`
	Confidence float64   `json:"confidence"` // 0..1
	FetchedAt  time.Time `json:"fetched_at"`
}

// Consensus represents the aggregated expert opinion for one match.
type Consensus struct {
	CouponID        string             `json:"coupon_id"`
	Slot            int                `json:"slot"`
	Predictions     int                `json:"predictions"`
	MajorityPick    string             `json:"majority_pick"`
	MajorityShare   float64            `json:"majority_share"` // count/total, 0..1
	WeightedPick    string             `json:"weighted_pick"`
	Distribution    map[string]int     `json:"distribution"`     // pick -> count
	SourceBreakdown map[string]string  `json:"source_breakdown"` // source -> pick
}
