package analyzer

import (
	"math"
	"testing"

	"github.com/sodersten/tipsvalue/internal/pkg/models"
)

func expertPick(slot int, source, expert, signs string) models.ExpertPick {
	return models.ExpertPick{
		CouponID:   "v34-2026",
		Slot:       slot,
		Source:     source,
		Expert:     expert,
		Signs:      signs,
		Confidence: 0.7,
	}
}

func TestComputeConsensusMajority(t *testing.T) {
	coupon := &models.Coupon{ID: "v34-2026"}
	picks := []models.ExpertPick{
		expertPick(1, "Expressen", "Anna", "1"),
		expertPick(1, "Expressen", "Bo", "1"),
		expertPick(1, "Aftonbladet", "Cia", "X"),
	}

	out := ComputeConsensus(coupon, picks, nil)
	if len(out) != 1 {
		t.Fatalf("consensus entries = %d, want 1", len(out))
	}

	c := out[0]
	if c.Slot != 1 || c.Predictions != 3 {
		t.Errorf("slot %d with %d predictions, want slot 1 with 3", c.Slot, c.Predictions)
	}
	if c.MajorityPick != "1" {
		t.Errorf("majority pick = %q, want 1", c.MajorityPick)
	}
	if math.Abs(c.MajorityShare-2.0/3.0) > 1e-9 {
		t.Errorf("majority share = %v, want 2/3", c.MajorityShare)
	}
	if c.Distribution["1"] != 2 || c.Distribution["X"] != 1 {
		t.Errorf("distribution = %v, want 1:2 X:1", c.Distribution)
	}
	if c.SourceBreakdown["Expressen"] != "1" || c.SourceBreakdown["Aftonbladet"] != "X" {
		t.Errorf("source breakdown = %v", c.SourceBreakdown)
	}
}

func TestComputeConsensusWeightedDiffersFromMajority(t *testing.T) {
	coupon := &models.Coupon{ID: "v34-2026"}

	// Counts tie 2-2, so the majority falls back to the smaller pick.
	// The weighted tally favors X: Rekatochklart 1.2 + Aftonbladet 1.1
	// beats two Expressen picks at 1.0 each.
	picks := []models.ExpertPick{
		expertPick(1, "Expressen", "Anna", "1"),
		expertPick(1, "Expressen", "Bo", "1"),
		expertPick(1, "Rekatochklart", "Cia", "X"),
		expertPick(1, "Aftonbladet", "Dag", "X"),
	}

	out := ComputeConsensus(coupon, picks, nil)
	if len(out) != 1 {
		t.Fatalf("consensus entries = %d, want 1", len(out))
	}
	if out[0].MajorityPick != "1" {
		t.Errorf("majority pick = %q, want 1 (tie broken toward smaller pick)", out[0].MajorityPick)
	}
	if out[0].WeightedPick != "X" {
		t.Errorf("weighted pick = %q, want X", out[0].WeightedPick)
	}
}

func TestComputeConsensusConfigOverridesWeights(t *testing.T) {
	coupon := &models.Coupon{ID: "v34-2026"}
	picks := []models.ExpertPick{
		expertPick(1, "Expressen", "Anna", "2"),
		expertPick(1, "Rekatochklart", "Bo", "1"),
		expertPick(1, "Aftonbladet", "Cia", "1"),
	}

	// Default weights: "1" gets 1.2+1.1 = 2.3 against 1.0.
	out := ComputeConsensus(coupon, picks, nil)
	if out[0].WeightedPick != "1" {
		t.Fatalf("weighted pick without overrides = %q, want 1", out[0].WeightedPick)
	}

	// Boosting Expressen flips the weighted pick to its choice.
	out = ComputeConsensus(coupon, picks, map[string]float64{"Expressen": 3.0})
	if out[0].WeightedPick != "2" {
		t.Errorf("weighted pick with Expressen boosted = %q, want 2", out[0].WeightedPick)
	}
	if out[0].MajorityPick != "1" {
		t.Errorf("majority pick = %q, want 1 regardless of weights", out[0].MajorityPick)
	}
}

func TestComputeConsensusOrdersBySlot(t *testing.T) {
	coupon := &models.Coupon{ID: "v34-2026"}
	picks := []models.ExpertPick{
		expertPick(9, "Expressen", "Anna", "1"),
		expertPick(2, "Expressen", "Anna", "X"),
		expertPick(5, "Expressen", "Anna", "2"),
	}

	out := ComputeConsensus(coupon, picks, nil)
	if len(out) != 3 {
		t.Fatalf("consensus entries = %d, want 3", len(out))
	}
	for i, want := range []int{2, 5, 9} {
		if out[i].Slot != want {
			t.Errorf("entry %d slot = %d, want %d", i, out[i].Slot, want)
		}
	}
}

func TestComputeConsensusHandlesHedgedPicks(t *testing.T) {
	coupon := &models.Coupon{ID: "v34-2026"}
	picks := []models.ExpertPick{
		expertPick(1, "Expressen", "Anna", "1X"),
		expertPick(1, "Aftonbladet", "Bo", "1X"),
		expertPick(1, "Rekatochklart", "Cia", "1"),
	}

	out := ComputeConsensus(coupon, picks, nil)
	c := out[0]
	if c.MajorityPick != "1X" {
		t.Errorf("majority pick = %q, want 1X", c.MajorityPick)
	}
	if c.Distribution["1X"] != 2 || c.Distribution["1"] != 1 {
		t.Errorf("distribution = %v", c.Distribution)
	}
}
