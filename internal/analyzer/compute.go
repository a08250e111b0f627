package analyzer

import (
	"fmt"
	"sort"
	"time"

	"github.com/sodersten/tipsvalue/internal/pkg/models"
)

// ValueCap substitutes for an undefined value ratio when the public
// percentage of an outcome is zero. Large but finite so the outcome
// still ranks without producing Inf/NaN downstream.
const ValueCap = 1000.0

// AnalyzeCoupon runs the value calculator over every match of the coupon.
// Quotes are grouped per slot and aggregated to a mean before probabilities
// are derived; matches without any quote fall back to a percentage-only
// recommendation. Returned analyses are ordered by slot.
func AnalyzeCoupon(coupon *models.Coupon, quotes []models.OddsQuote, threshold float64) []models.MatchAnalysis {
	now := time.Now()

	bySlot := map[int][]models.OddsQuote{}
	for _, q := range quotes {
		bySlot[q.Slot] = append(bySlot[q.Slot], q)
	}

	analyses := make([]models.MatchAnalysis, 0, len(coupon.Matches))
	for i := range coupon.Matches {
		m := coupon.Matches[i]
		a := analyzeMatch(m, bySlot[m.Slot], threshold)
		a.CouponID = coupon.ID
		a.GeneratedAt = now
		analyses = append(analyses, a)
	}

	sortAnalysesBySlot(analyses)
	return analyses
}

// analyzeMatch computes probabilities, value scores and the recommended
// signs for a single match.
func analyzeMatch(m models.Match, quotes []models.OddsQuote, threshold float64) models.MatchAnalysis {
	a := models.MatchAnalysis{
		Slot:        m.Slot,
		MatchName:   m.Name(),
		Percentages: m.Percentages,
		QuoteCount:  len(quotes),
	}

	agg, ok := models.AggregateQuotes(quotes)
	if !ok {
		// No bookmaker prices: fall back to the public distribution alone.
		a.HasOdds = false
		a.Probabilities = normalizePercentages(m.Percentages)
		best := bestByProbability(a.Probabilities)
		a.Recommended = best.Sign()
		a.Rationale = fmt.Sprintf("no odds available, picked %s on public %.1f%%", best.Sign(), m.Percentages[best])
		return a
	}

	a.HasOdds = true
	a.Odds = agg
	a.Probabilities = impliedProbabilities(agg)
	a.Values = valueScores(a.Probabilities, m.Percentages)

	recommended := recommendedOutcomes(a.Values, a.Probabilities, threshold)
	a.Recommended = models.SignsString(recommended)

	best := recommended[0]
	a.Rationale = fmt.Sprintf("%s: probability %.1f%% vs public %.1f%% (value %.2f)",
		best.Sign(), a.Probabilities[best]*100, m.Percentages[best], a.Values[best])

	return a
}

// impliedProbabilities converts decimal odds to probabilities with the
// bookmaker margin removed, so the triple sums to 1.
func impliedProbabilities(odds [models.OutcomeCount]float64) [models.OutcomeCount]float64 {
	var probs [models.OutcomeCount]float64
	var sum float64
	for i, o := range odds {
		probs[i] = 1 / o
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

// valueScores divides each computed probability by the public share of
// the same outcome. A zero public percentage caps at ValueCap.
func valueScores(probs, percentages [models.OutcomeCount]float64) [models.OutcomeCount]float64 {
	var values [models.OutcomeCount]float64
	for i := range probs {
		pct := percentages[i] / 100
		if pct <= 0 {
			values[i] = ValueCap
			continue
		}
		v := probs[i] / pct
		if v > ValueCap {
			v = ValueCap
		}
		values[i] = v
	}
	return values
}

// recommendedOutcomes returns every outcome whose value clears the
// threshold, in home/draw/away order. When none clears it, the single
// best outcome is returned so row generation always has a pick.
// Ties break by higher probability, then home over draw over away.
func recommendedOutcomes(values, probs [models.OutcomeCount]float64, threshold float64) []models.Outcome {
	var recommended []models.Outcome
	for o := models.OutcomeHome; o < models.OutcomeCount; o++ {
		if values[o] >= threshold {
			recommended = append(recommended, o)
		}
	}
	if len(recommended) > 0 {
		return recommended
	}
	return []models.Outcome{bestOutcome(values, probs)}
}

// bestOutcome picks the highest-value outcome with deterministic
// tie-breaking: higher probability first, then home over draw over away.
func bestOutcome(values, probs [models.OutcomeCount]float64) models.Outcome {
	best := models.OutcomeHome
	for o := models.OutcomeDraw; o < models.OutcomeCount; o++ {
		if values[o] > values[best] {
			best = o
			continue
		}
		if values[o] == values[best] && probs[o] > probs[best] {
			best = o
		}
	}
	return best
}

// secondOutcome picks the best outcome excluding the given one, with the
// same tie-breaking as bestOutcome.
func secondOutcome(values, probs [models.OutcomeCount]float64, exclude models.Outcome) models.Outcome {
	second := models.Outcome(-1)
	for o := models.OutcomeHome; o < models.OutcomeCount; o++ {
		if o == exclude {
			continue
		}
		if second < 0 || values[o] > values[second] ||
			(values[o] == values[second] && probs[o] > probs[second]) {
			second = o
		}
	}
	return second
}

func bestByProbability(probs [models.OutcomeCount]float64) models.Outcome {
	best := models.OutcomeHome
	for o := models.OutcomeDraw; o < models.OutcomeCount; o++ {
		if probs[o] > probs[best] {
			best = o
		}
	}
	return best
}

// normalizePercentages turns a public distribution into pseudo-probabilities
// summing to 1. Used only for matches without odds.
func normalizePercentages(percentages [models.OutcomeCount]float64) [models.OutcomeCount]float64 {
	var probs [models.OutcomeCount]float64
	var sum float64
	for _, p := range percentages {
		sum += p
	}
	if sum <= 0 {
		for i := range probs {
			probs[i] = 1.0 / models.OutcomeCount
		}
		return probs
	}
	for i, p := range percentages {
		probs[i] = p / sum
	}
	return probs
}

func sortAnalysesBySlot(analyses []models.MatchAnalysis) {
	sort.Slice(analyses, func(i, j int) bool {
		return analyses[i].Slot < analyses[j].Slot
	})
}
