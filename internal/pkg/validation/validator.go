package validation

import (
	"errors"
	"fmt"
	"math"

	"github.com/sodersten/tipsvalue/internal/pkg/models"
)

// MinOdds is the lowest decimal odds accepted from any feed.
const MinOdds = 1.01

// Percentage triples must sum to a value inside this window.
const (
	MinPercentageSum = 95.0
	MaxPercentageSum = 105.0
)

var (
	ErrBadOdds        = errors.New("invalid odds")
	ErrBadPercentages = errors.New("invalid percentages")
	ErrBadSlot        = errors.New("invalid slot")
	ErrBadSigns       = errors.New("invalid signs")
)

// Validator checks externally sourced records before they reach
// storage or the engine.
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateCoupon validates the coupon and all its matches, including
// slot uniqueness across the coupon.
func (v *Validator) ValidateCoupon(coupon *models.Coupon) error {
	if coupon == nil {
		return fmt.Errorf("coupon cannot be nil")
	}

	if coupon.Week < 1 || coupon.Week > 53 {
		return fmt.Errorf("week out of range: %d", coupon.Week)
	}

	if coupon.Year < 2000 {
		return fmt.Errorf("year out of range: %d", coupon.Year)
	}

	seen := make(map[int]bool, len(coupon.Matches))
	for i := range coupon.Matches {
		m := &coupon.Matches[i]
		if err := v.ValidateMatch(m); err != nil {
			return fmt.Errorf("match %d validation failed: %w", m.Slot, err)
		}
		if seen[m.Slot] {
			return fmt.Errorf("%w: duplicate slot %d", ErrBadSlot, m.Slot)
		}
		seen[m.Slot] = true
	}

	return nil
}

// ValidateMatch validates match data
func (v *Validator) ValidateMatch(match *models.Match) error {
	if match == nil {
		return fmt.Errorf("match cannot be nil")
	}

	if match.HomeTeam == "" {
		return fmt.Errorf("home team cannot be empty")
	}

	if match.AwayTeam == "" {
		return fmt.Errorf("away team cannot be empty")
	}

	if match.Slot < 1 || match.Slot > models.CouponSize {
		return fmt.Errorf("%w: %d not in 1..%d", ErrBadSlot, match.Slot, models.CouponSize)
	}

	var sum float64
	for i, p := range match.Percentages {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return fmt.Errorf("%w: %s percentage is not finite", ErrBadPercentages, models.Outcome(i))
		}
		if p < 0 {
			return fmt.Errorf("%w: %s percentage is negative: %v", ErrBadPercentages, models.Outcome(i), p)
		}
		if p > 100 {
			return fmt.Errorf("%w: %s percentage above 100: %v", ErrBadPercentages, models.Outcome(i), p)
		}
		sum += p
	}
	if sum < MinPercentageSum || sum > MaxPercentageSum {
		return fmt.Errorf("%w: sum %.1f outside [%v, %v]", ErrBadPercentages, sum, MinPercentageSum, MaxPercentageSum)
	}

	if match.Result != "" {
		outcomes, err := models.ParseSigns(match.Result)
		if err != nil || len(outcomes) != 1 {
			return fmt.Errorf("%w: result %q", ErrBadSigns, match.Result)
		}
	}

	return nil
}

// ValidateQuote validates a bookmaker quote. Quotes failing the odds
// floor are rejected, never clamped.
func (v *Validator) ValidateQuote(quote *models.OddsQuote) error {
	if quote == nil {
		return fmt.Errorf("quote cannot be nil")
	}

	if quote.Bookmaker == "" {
		return fmt.Errorf("bookmaker cannot be empty")
	}

	if quote.Slot < 1 || quote.Slot > models.CouponSize {
		return fmt.Errorf("%w: %d not in 1..%d", ErrBadSlot, quote.Slot, models.CouponSize)
	}

	for i, o := range quote.Odds {
		if !isValidOdd(o) {
			return fmt.Errorf("%w: %s odds %v from %s", ErrBadOdds, models.Outcome(i), o, quote.Bookmaker)
		}
	}

	return nil
}

// ValidatePick validates an expert pick.
func (v *Validator) ValidatePick(pick *models.ExpertPick) error {
	if pick == nil {
		return fmt.Errorf("pick cannot be nil")
	}

	if pick.Source == "" {
		return fmt.Errorf("source cannot be empty")
	}

	if pick.Slot < 1 || pick.Slot > models.CouponSize {
		return fmt.Errorf("%w: %d not in 1..%d", ErrBadSlot, pick.Slot, models.CouponSize)
	}

	if _, err := models.ParseSigns(pick.Signs); err != nil {
		return fmt.Errorf("%w: %v", ErrBadSigns, err)
	}

	if pick.Confidence < 0 || pick.Confidence > 1 {
		return fmt.Errorf("confidence out of range: %v", pick.Confidence)
	}

	return nil
}

func isValidOdd(v float64) bool {
	return v >= MinOdds && !math.IsInf(v, 0) && !math.IsNaN(v)
}
