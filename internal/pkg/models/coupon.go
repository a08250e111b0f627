package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// CouponSize is the number of matches on a full Stryktipset coupon.
const CouponSize = 13

// Coupon represents one week's pool round
type Coupon struct {
	ID        string          `json:"id"`
	Week      int             `json:"week"`
	Year      int             `json:"year"`
	DrawDate  time.Time       `json:"draw_date"` // coupon closing time
	Active    bool            `json:"active"`
	Jackpot   decimal.Decimal `json:"jackpot"` // SEK
	Matches   []Match         `json:"matches,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Match represents one ordered slot on a coupon
type Match struct {
	CouponID    string                `json:"coupon_id"`
	Slot        int                   `json:"slot"` // 1..13
	HomeTeam    string                `json:"home_team"`
	AwayTeam    string                `json:"away_team"`
	Kickoff     time.Time             `json:"kickoff"`
	Percentages [OutcomeCount]float64 `json:"percentages"`      // public streck per outcome, sums to ~100
	Result      string                `json:"result,omitempty"` // "1", "X", "2" or empty while unplayed
}

// Name returns the display label for the match, e.g. "Arsenal - Chelsea".
func (m Match) Name() string {
	return fmt.Sprintf("%s - %s", m.HomeTeam, m.AwayTeam)
}

// PercentageSum returns the sum of the public distribution.
func (m Match) PercentageSum() float64 {
	var sum float64
	for _, p := range m.Percentages {
		sum += p
	}
	return sum
}

// MatchBySlot finds the coupon match with the given slot number.
func (c *Coupon) MatchBySlot(slot int) (Match, bool) {
	for _, m := range c.Matches {
		if m.Slot == slot {
			return m, true
		}
	}
	return Match{}, false
}
