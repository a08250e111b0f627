package analyzer

import (
	"sort"

	"github.com/sodersten/tipsvalue/internal/pkg/models"
)

// defaultSourceWeights ranks outlets by pundit track record. Entries in the
// source_weights config section override these; unknown sources weigh 1.0.
var defaultSourceWeights = map[string]float64{
	"Rekatochklart": 1.2,
	"Aftonbladet":   1.1,
	"Expressen":     1.0,
}

// ComputeConsensus aggregates expert picks into a per-match consensus.
// Matches without picks are omitted. Ties go to the lexicographically
// smaller pick so results are stable across runs.
func ComputeConsensus(coupon *models.Coupon, picks []models.ExpertPick, weights map[string]float64) []models.Consensus {
	bySlot := map[int][]models.ExpertPick{}
	for _, p := range picks {
		bySlot[p.Slot] = append(bySlot[p.Slot], p)
	}

	slots := make([]int, 0, len(bySlot))
	for slot := range bySlot {
		slots = append(slots, slot)
	}
	sort.Ints(slots)

	out := make([]models.Consensus, 0, len(slots))
	for _, slot := range slots {
		slotPicks := bySlot[slot]

		distribution := map[string]int{}
		weighted := map[string]float64{}
		perSource := map[string]map[string]float64{}
		for _, p := range slotPicks {
			distribution[p.Signs]++
			weighted[p.Signs] += sourceWeight(p.Source, weights)
			if perSource[p.Source] == nil {
				perSource[p.Source] = map[string]float64{}
			}
			perSource[p.Source][p.Signs]++
		}

		counts := make(map[string]float64, len(distribution))
		for pick, n := range distribution {
			counts[pick] = float64(n)
		}
		majority := topPick(counts)

		breakdown := make(map[string]string, len(perSource))
		for source, sourceCounts := range perSource {
			breakdown[source] = topPick(sourceCounts)
		}

		out = append(out, models.Consensus{
			CouponID:        coupon.ID,
			Slot:            slot,
			Predictions:     len(slotPicks),
			MajorityPick:    majority,
			MajorityShare:   float64(distribution[majority]) / float64(len(slotPicks)),
			WeightedPick:    topPick(weighted),
			Distribution:    distribution,
			SourceBreakdown: breakdown,
		})
	}
	return out
}

// sourceWeight resolves the weight of an outlet: config override first,
// then the built-in defaults, then 1.0.
func sourceWeight(source string, overrides map[string]float64) float64 {
	if w, ok := overrides[source]; ok && w > 0 {
		return w
	}
	if w, ok := defaultSourceWeights[source]; ok {
		return w
	}
	return 1.0
}

// topPick returns the pick with the highest score, breaking ties toward
// the lexicographically smaller pick.
func topPick(scores map[string]float64) string {
	best := ""
	bestScore := 0.0
	for pick, score := range scores {
		if best == "" || score > bestScore || (score == bestScore && pick < best) {
			best = pick
			bestScore = score
		}
	}
	return best
}
