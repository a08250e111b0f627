package analyzer

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sodersten/tipsvalue/internal/pkg/models"
)

// ErrIncompleteCoupon is returned when row generation is asked to cover a
// coupon with fewer than 13 analyzed matches and partial rows are not allowed.
var ErrIncompleteCoupon = errors.New("coupon has fewer than 13 analyzed matches")

// RowParams configures row generation. Callers pass it explicitly so
// concurrent generations with different policies do not interfere.
type RowParams struct {
	MaxHalfCovers     int     // half-cover budget per row
	MinValueThreshold float64 // second-best outcome must clear this to qualify for a half-cover
	AllowPartial      bool    // generate rows for coupons with fewer than 13 matches
}

// halfCoverCandidate is a match where hedging the second-best outcome pays.
type halfCoverCandidate struct {
	slot   int
	first  models.Outcome
	second models.Outcome
	gain   float64 // value score of the second-best outcome
}

// GenerateRows builds the primary row plus one alternative per half-cover
// level k=1..MaxHalfCovers. Rows are ordered by expected value descending.
func GenerateRows(analyses []models.MatchAnalysis, params RowParams) ([]models.SuggestedRow, error) {
	if len(analyses) == 0 {
		return nil, fmt.Errorf("no analyses to generate rows from")
	}
	if len(analyses) < models.CouponSize && !params.AllowPartial {
		return nil, fmt.Errorf("%w: got %d", ErrIncompleteCoupon, len(analyses))
	}

	now := time.Now()
	couponID := analyses[0].CouponID

	picks := make(map[int]models.Outcome, len(analyses))
	probs := make(map[int][models.OutcomeCount]float64, len(analyses))
	for _, a := range analyses {
		picks[a.Slot] = bestOutcome(a.Values, a.Probabilities)
		probs[a.Slot] = a.Probabilities
	}

	rows := []models.SuggestedRow{buildPrimaryRow(couponID, analyses, picks, probs, now)}

	candidates := halfCoverCandidates(analyses, params.MinValueThreshold)
	for k := 1; k <= params.MaxHalfCovers; k++ {
		if len(candidates) < k {
			break
		}
		rows = append(rows, buildAlternativeRow(couponID, analyses, picks, probs, candidates[:k], k, now))
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].ExpectedValue != rows[j].ExpectedValue {
			return rows[i].ExpectedValue > rows[j].ExpectedValue
		}
		return rows[i].CostFactor < rows[j].CostFactor
	})

	return rows, nil
}

// buildPrimaryRow assigns every match its single best outcome.
func buildPrimaryRow(couponID string, analyses []models.MatchAnalysis, picks map[int]models.Outcome, probs map[int][models.OutcomeCount]float64, now time.Time) models.SuggestedRow {
	choices := make(map[int]models.OutcomeChoice, len(analyses))
	ev := 1.0
	for _, a := range analyses {
		pick := picks[a.Slot]
		choices[a.Slot] = models.OutcomeChoice{pick}
		ev *= probs[a.Slot][pick]
	}

	return models.SuggestedRow{
		ID:            uuid.NewString(),
		CouponID:      couponID,
		Label:         "primary",
		Choices:       choices,
		HalfCovers:    0,
		CostFactor:    1,
		ExpectedValue: ev,
		EVPerCost:     ev,
		Reasoning:     "highest value outcome in every match",
		CreatedAt:     now,
	}
}

// buildAlternativeRow half-covers the top k candidates on top of the
// primary picks. Cost doubles per half-cover.
func buildAlternativeRow(couponID string, analyses []models.MatchAnalysis, picks map[int]models.Outcome, probs map[int][models.OutcomeCount]float64, covered []halfCoverCandidate, k int, now time.Time) models.SuggestedRow {
	coveredSlots := make(map[int]halfCoverCandidate, len(covered))
	for _, c := range covered {
		coveredSlots[c.slot] = c
	}

	choices := make(map[int]models.OutcomeChoice, len(analyses))
	ev := 1.0
	var notes []string
	for _, a := range analyses {
		if c, ok := coveredSlots[a.Slot]; ok {
			choices[a.Slot] = orderedChoice(c.first, c.second)
			ev *= probs[a.Slot][c.first] + probs[a.Slot][c.second]
			notes = append(notes, fmt.Sprintf("match %d (%s)", a.Slot, choices[a.Slot].Signs()))
			continue
		}
		pick := picks[a.Slot]
		choices[a.Slot] = models.OutcomeChoice{pick}
		ev *= probs[a.Slot][pick]
	}

	costFactor := 1 << k

	return models.SuggestedRow{
		ID:            uuid.NewString(),
		CouponID:      couponID,
		Label:         fmt.Sprintf("alt-%d", k),
		Choices:       choices,
		HalfCovers:    k,
		CostFactor:    costFactor,
		ExpectedValue: ev,
		EVPerCost:     ev / float64(costFactor),
		Reasoning:     "half-covers on " + strings.Join(notes, ", "),
		CreatedAt:     now,
	}
}

// halfCoverCandidates ranks matches by the value of their second-best
// outcome, descending. Only matches with real odds qualify, and only when
// the second-best outcome clears the threshold.
func halfCoverCandidates(analyses []models.MatchAnalysis, threshold float64) []halfCoverCandidate {
	var candidates []halfCoverCandidate
	for _, a := range analyses {
		if !a.HasOdds {
			continue
		}
		first := bestOutcome(a.Values, a.Probabilities)
		second := secondOutcome(a.Values, a.Probabilities, first)
		gain := a.Values[second]
		if gain < threshold {
			continue
		}
		candidates = append(candidates, halfCoverCandidate{
			slot:   a.Slot,
			first:  first,
			second: second,
			gain:   gain,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].gain != candidates[j].gain {
			return candidates[i].gain > candidates[j].gain
		}
		return candidates[i].slot < candidates[j].slot
	})

	return candidates
}

// orderedChoice renders a half-cover with its signs in 1, X, 2 order.
func orderedChoice(a, b models.Outcome) models.OutcomeChoice {
	if a > b {
		a, b = b, a
	}
	return models.OutcomeChoice{a, b}
}
