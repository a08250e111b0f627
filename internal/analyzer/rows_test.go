package analyzer

import (
	"errors"
	"math"
	"testing"

	"github.com/sodersten/tipsvalue/internal/pkg/models"
)

// Probability/value triples used to assemble synthetic analyses.
// candidateA: home best, draw second with value 1.17 (half-cover worthy).
// candidateB: draw best, home second with value 1.06 (half-cover worthy).
// steady: home best, second-best value 0.96 (never a candidate).
var (
	candidateAProbs  = [models.OutcomeCount]float64{0.498777506112, 0.293398533007, 0.207823960880}
	candidateAValues = [models.OutcomeCount]float64{1.246943765281, 1.173594132029, 0.593782745372}

	candidateBProbs  = [models.OutcomeCount]float64{0.446927374302, 0.307262569832, 0.245810055866}
	candidateBValues = [models.OutcomeCount]float64{1.064112795956, 1.181779114740, 0.768156424581}

	steadyProbs  = [models.OutcomeCount]float64{0.450511945392, 0.286689419795, 0.262798634812}
	steadyValues = [models.OutcomeCount]float64{1.126279863481, 0.955631399317, 0.875995449374}
)

func analysis(slot int, probs, values [models.OutcomeCount]float64) models.MatchAnalysis {
	return models.MatchAnalysis{
		CouponID:      "coupon-1",
		Slot:          slot,
		HasOdds:       true,
		Probabilities: probs,
		Values:        values,
	}
}

// fullAnalyses builds a 13-match coupon where slots 1 and 2 are the only
// half-cover candidates, ranked A then B.
func fullAnalyses() []models.MatchAnalysis {
	analyses := []models.MatchAnalysis{
		analysis(1, candidateAProbs, candidateAValues),
		analysis(2, candidateBProbs, candidateBValues),
	}
	for slot := 3; slot <= models.CouponSize; slot++ {
		analyses = append(analyses, analysis(slot, steadyProbs, steadyValues))
	}
	return analyses
}

func defaultParams() RowParams {
	return RowParams{MaxHalfCovers: 2, MinValueThreshold: 1.05}
}

func rowByLabel(t *testing.T, rows []models.SuggestedRow, label string) models.SuggestedRow {
	t.Helper()
	for _, r := range rows {
		if r.Label == label {
			return r
		}
	}
	t.Fatalf("no row labeled %q among %d rows", label, len(rows))
	return models.SuggestedRow{}
}

func TestGenerateRowsPrimary(t *testing.T) {
	rows, err := GenerateRows(fullAnalyses(), defaultParams())
	if err != nil {
		t.Fatalf("GenerateRows: %v", err)
	}

	primary := rowByLabel(t, rows, "primary")
	if primary.CostFactor != 1 {
		t.Errorf("primary cost factor = %d, want 1", primary.CostFactor)
	}
	if primary.HalfCovers != 0 {
		t.Errorf("primary half covers = %d, want 0", primary.HalfCovers)
	}
	if len(primary.Choices) != models.CouponSize {
		t.Fatalf("primary covers %d matches, want %d", len(primary.Choices), models.CouponSize)
	}
	for slot, choice := range primary.Choices {
		if len(choice) != 1 {
			t.Errorf("slot %d: primary choice covers %d outcomes, want 1", slot, len(choice))
		}
	}

	// Highest value per match: home for A, draw for B, home for the rest.
	if got := primary.Choices[1].Signs(); got != "1" {
		t.Errorf("slot 1 pick = %q, want 1", got)
	}
	if got := primary.Choices[2].Signs(); got != "X" {
		t.Errorf("slot 2 pick = %q, want X", got)
	}
	if got := primary.Choices[7].Signs(); got != "1" {
		t.Errorf("slot 7 pick = %q, want 1", got)
	}

	wantEV := candidateAProbs[models.OutcomeHome] * candidateBProbs[models.OutcomeDraw]
	for i := 0; i < 11; i++ {
		wantEV *= steadyProbs[models.OutcomeHome]
	}
	if math.Abs(primary.ExpectedValue-wantEV) > floatEps {
		t.Errorf("primary EV = %v, want %v", primary.ExpectedValue, wantEV)
	}
	if primary.EVPerCost != primary.ExpectedValue {
		t.Errorf("primary EV per cost = %v, want %v", primary.EVPerCost, primary.ExpectedValue)
	}
}

func TestGenerateRowsHalfCovers(t *testing.T) {
	rows, err := GenerateRows(fullAnalyses(), defaultParams())
	if err != nil {
		t.Fatalf("GenerateRows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3 (primary, alt-1, alt-2)", len(rows))
	}

	alt1 := rowByLabel(t, rows, "alt-1")
	if alt1.HalfCovers != 1 || alt1.CostFactor != 2 {
		t.Errorf("alt-1 half covers/cost = %d/%d, want 1/2", alt1.HalfCovers, alt1.CostFactor)
	}
	// The strongest candidate (slot 1) is covered first.
	if got := alt1.Choices[1].Signs(); got != "1X" {
		t.Errorf("alt-1 slot 1 = %q, want 1X", got)
	}
	if got := alt1.Choices[2].Signs(); got != "X" {
		t.Errorf("alt-1 slot 2 = %q, want single X", got)
	}

	alt2 := rowByLabel(t, rows, "alt-2")
	if alt2.HalfCovers != 2 || alt2.CostFactor != 4 {
		t.Errorf("alt-2 half covers/cost = %d/%d, want 2/4", alt2.HalfCovers, alt2.CostFactor)
	}
	if got := alt2.Choices[1].Signs(); got != "1X" {
		t.Errorf("alt-2 slot 1 = %q, want 1X", got)
	}
	if got := alt2.Choices[2].Signs(); got != "1X" {
		t.Errorf("alt-2 slot 2 = %q, want 1X", got)
	}

	wantEV := (candidateAProbs[models.OutcomeHome] + candidateAProbs[models.OutcomeDraw]) *
		(candidateBProbs[models.OutcomeHome] + candidateBProbs[models.OutcomeDraw])
	for i := 0; i < 11; i++ {
		wantEV *= steadyProbs[models.OutcomeHome]
	}
	if math.Abs(alt2.ExpectedValue-wantEV) > floatEps {
		t.Errorf("alt-2 EV = %v, want %v", alt2.ExpectedValue, wantEV)
	}
	if math.Abs(alt2.EVPerCost-wantEV/4) > floatEps {
		t.Errorf("alt-2 EV per cost = %v, want %v", alt2.EVPerCost, wantEV/4)
	}
}

func TestRowsOrderedByExpectedValue(t *testing.T) {
	rows, err := GenerateRows(fullAnalyses(), defaultParams())
	if err != nil {
		t.Fatalf("GenerateRows: %v", err)
	}

	for i := 1; i < len(rows); i++ {
		if rows[i-1].ExpectedValue < rows[i].ExpectedValue {
			t.Errorf("rows[%d].EV %v < rows[%d].EV %v, want descending", i-1, rows[i-1].ExpectedValue, i, rows[i].ExpectedValue)
		}
	}
	// Covering more outcomes can only raise the win probability.
	if rows[0].Label != "alt-2" {
		t.Errorf("rows[0] = %q, want alt-2", rows[0].Label)
	}
}

func TestRowEVStrictlyInsideUnitInterval(t *testing.T) {
	rows, err := GenerateRows(fullAnalyses(), defaultParams())
	if err != nil {
		t.Fatalf("GenerateRows: %v", err)
	}

	for _, r := range rows {
		if r.ExpectedValue <= 0 || r.ExpectedValue >= 1 {
			t.Errorf("row %s: EV = %v, want strictly inside (0, 1)", r.Label, r.ExpectedValue)
		}
	}
}

func TestIncompleteCouponFailsClosed(t *testing.T) {
	analyses := fullAnalyses()[:12]

	_, err := GenerateRows(analyses, defaultParams())
	if !errors.Is(err, ErrIncompleteCoupon) {
		t.Errorf("got %v, want ErrIncompleteCoupon", err)
	}
}

func TestPartialCouponWhenAllowed(t *testing.T) {
	analyses := fullAnalyses()[:12]
	params := defaultParams()
	params.AllowPartial = true

	rows, err := GenerateRows(analyses, params)
	if err != nil {
		t.Fatalf("GenerateRows: %v", err)
	}

	primary := rowByLabel(t, rows, "primary")
	if len(primary.Choices) != 12 {
		t.Errorf("partial primary covers %d matches, want 12", len(primary.Choices))
	}

	wantEV := candidateAProbs[models.OutcomeHome] * candidateBProbs[models.OutcomeDraw]
	for i := 0; i < 10; i++ {
		wantEV *= steadyProbs[models.OutcomeHome]
	}
	if math.Abs(primary.ExpectedValue-wantEV) > floatEps {
		t.Errorf("partial primary EV = %v, want 12-term product %v", primary.ExpectedValue, wantEV)
	}
}

func TestNoEligibleCandidatesMeansPrimaryOnly(t *testing.T) {
	analyses := make([]models.MatchAnalysis, 0, models.CouponSize)
	for slot := 1; slot <= models.CouponSize; slot++ {
		analyses = append(analyses, analysis(slot, steadyProbs, steadyValues))
	}

	rows, err := GenerateRows(analyses, defaultParams())
	if err != nil {
		t.Fatalf("GenerateRows: %v", err)
	}
	if len(rows) != 1 || rows[0].Label != "primary" {
		t.Errorf("got %d rows, want only the primary row", len(rows))
	}
}

func TestFallbackMatchIsNeverHalfCovered(t *testing.T) {
	analyses := fullAnalyses()
	// Make slot 2 a percentage-only fallback; its values would otherwise
	// qualify it for a half-cover.
	analyses[1].HasOdds = false

	rows, err := GenerateRows(analyses, defaultParams())
	if err != nil {
		t.Fatalf("GenerateRows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2 (primary and alt-1)", len(rows))
	}

	alt1 := rowByLabel(t, rows, "alt-1")
	if got := len(alt1.Choices[2]); got != 1 {
		t.Errorf("fallback match covered by %d outcomes, want 1", got)
	}
}

func TestMaxHalfCoversRespected(t *testing.T) {
	params := defaultParams()
	params.MaxHalfCovers = 1

	rows, err := GenerateRows(fullAnalyses(), params)
	if err != nil {
		t.Fatalf("GenerateRows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	for _, r := range rows {
		if r.HalfCovers > 1 {
			t.Errorf("row %s exceeds half-cover budget: %d", r.Label, r.HalfCovers)
		}
	}
}
