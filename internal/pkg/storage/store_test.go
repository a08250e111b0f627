package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sodersten/tipsvalue/internal/pkg/models"
)

func newSQLiteForTest(t *testing.T) Store {
	t.Helper()
	store, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testCoupon(id string, week int, active bool) *models.Coupon {
	matches := make([]models.Match, 0, models.CouponSize)
	for slot := 1; slot <= models.CouponSize; slot++ {
		matches = append(matches, models.Match{
			Slot:        slot,
			HomeTeam:    "Home",
			AwayTeam:    "Away",
			Kickoff:     time.Date(2026, 8, 22, 16, 0, 0, 0, time.UTC),
			Percentages: [models.OutcomeCount]float64{51, 22, 27},
		})
	}
	return &models.Coupon{
		ID:       id,
		Week:     week,
		Year:     2026,
		DrawDate: time.Date(2026, 8, 22, 15, 0, 0, 0, time.UTC),
		Active:   active,
		Jackpot:  decimal.RequireFromString("10000000.50"),
		Matches:  matches,
	}
}

// backends runs the same conformance checks against every Store implementation.
func backends(t *testing.T, fn func(t *testing.T, store Store)) {
	t.Run("sqlite", func(t *testing.T) { fn(t, newSQLiteForTest(t)) })
	t.Run("memory", func(t *testing.T) { fn(t, NewMemoryStore()) })
}

func TestCouponRoundTrip(t *testing.T) {
	backends(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		want := testCoupon("c1", 34, true)

		if err := store.SaveCoupon(ctx, want); err != nil {
			t.Fatalf("SaveCoupon: %v", err)
		}

		got, err := store.CouponByID(ctx, "c1")
		if err != nil {
			t.Fatalf("CouponByID: %v", err)
		}
		if got.Week != 34 || got.Year != 2026 || !got.Active {
			t.Errorf("coupon fields: got week=%d year=%d active=%v", got.Week, got.Year, got.Active)
		}
		if !got.Jackpot.Equal(want.Jackpot) {
			t.Errorf("jackpot = %s, want %s", got.Jackpot, want.Jackpot)
		}
		if got.DrawDate.Unix() != want.DrawDate.Unix() {
			t.Errorf("draw date = %v, want %v", got.DrawDate, want.DrawDate)
		}
		if len(got.Matches) != models.CouponSize {
			t.Fatalf("got %d matches, want %d", len(got.Matches), models.CouponSize)
		}
		if got.Matches[0].Percentages != want.Matches[0].Percentages {
			t.Errorf("match percentages = %v, want %v", got.Matches[0].Percentages, want.Matches[0].Percentages)
		}
	})
}

func TestCouponNotFound(t *testing.T) {
	backends(t, func(t *testing.T, store Store) {
		_, err := store.CouponByID(context.Background(), "missing")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("got %v, want ErrNotFound", err)
		}
		_, err = store.ActiveCoupon(context.Background())
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("ActiveCoupon on empty store: got %v, want ErrNotFound", err)
		}
	})
}

func TestActivatingCouponDeactivatesPrevious(t *testing.T) {
	backends(t, func(t *testing.T, store Store) {
		ctx := context.Background()

		if err := store.SaveCoupon(ctx, testCoupon("c1", 33, true)); err != nil {
			t.Fatalf("SaveCoupon c1: %v", err)
		}
		if err := store.SaveCoupon(ctx, testCoupon("c2", 34, true)); err != nil {
			t.Fatalf("SaveCoupon c2: %v", err)
		}

		active, err := store.ActiveCoupon(ctx)
		if err != nil {
			t.Fatalf("ActiveCoupon: %v", err)
		}
		if active.ID != "c2" {
			t.Errorf("active coupon = %s, want c2", active.ID)
		}

		old, err := store.CouponByID(ctx, "c1")
		if err != nil {
			t.Fatalf("CouponByID c1: %v", err)
		}
		if old.Active {
			t.Error("previous coupon is still active")
		}
	})
}

func TestMatchResultSurvivesResave(t *testing.T) {
	backends(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		coupon := testCoupon("c1", 34, true)

		if err := store.SaveCoupon(ctx, coupon); err != nil {
			t.Fatalf("SaveCoupon: %v", err)
		}
		if err := store.SetMatchResult(ctx, "c1", 3, "X"); err != nil {
			t.Fatalf("SetMatchResult: %v", err)
		}

		// Re-save the same coupon, e.g. after a later provider fetch. The
		// incoming matches carry no results.
		if err := store.SaveCoupon(ctx, testCoupon("c1", 34, true)); err != nil {
			t.Fatalf("SaveCoupon again: %v", err)
		}

		got, err := store.CouponByID(ctx, "c1")
		if err != nil {
			t.Fatalf("CouponByID: %v", err)
		}
		m, ok := got.MatchBySlot(3)
		if !ok {
			t.Fatal("slot 3 missing")
		}
		if m.Result != "X" {
			t.Errorf("result after re-save = %q, want X", m.Result)
		}
	})
}

func TestSetMatchResultUnknownMatch(t *testing.T) {
	backends(t, func(t *testing.T, store Store) {
		err := store.SetMatchResult(context.Background(), "nope", 1, "1")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("got %v, want ErrNotFound", err)
		}
	})
}

func TestQuoteUpsertReplaces(t *testing.T) {
	backends(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		if err := store.SaveCoupon(ctx, testCoupon("c1", 34, true)); err != nil {
			t.Fatalf("SaveCoupon: %v", err)
		}

		first := models.OddsQuote{
			CouponID: "c1", Slot: 1, Bookmaker: "Bet365",
			Odds:      [models.OutcomeCount]float64{1.50, 4.00, 6.00},
			FetchedAt: time.Now().UTC(),
		}
		if err := store.UpsertQuotes(ctx, []models.OddsQuote{first}); err != nil {
			t.Fatalf("UpsertQuotes: %v", err)
		}

		second := first
		second.Odds = [models.OutcomeCount]float64{1.60, 4.20, 5.50}
		if err := store.UpsertQuotes(ctx, []models.OddsQuote{second}); err != nil {
			t.Fatalf("UpsertQuotes again: %v", err)
		}

		quotes, err := store.QuotesByCoupon(ctx, "c1")
		if err != nil {
			t.Fatalf("QuotesByCoupon: %v", err)
		}
		if len(quotes) != 1 {
			t.Fatalf("got %d quotes, want 1 (replaced, not duplicated)", len(quotes))
		}
		if quotes[0].Odds != second.Odds {
			t.Errorf("odds = %v, want %v", quotes[0].Odds, second.Odds)
		}
	})
}

func TestPicksRoundTrip(t *testing.T) {
	backends(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		if err := store.SaveCoupon(ctx, testCoupon("c1", 34, true)); err != nil {
			t.Fatalf("SaveCoupon: %v", err)
		}

		picks := []models.ExpertPick{
			{CouponID: "c1", Slot: 1, Source: "Rekatochklart", Expert: "Anna", Signs: "1", Confidence: 0.8, FetchedAt: time.Now().UTC()},
			{CouponID: "c1", Slot: 1, Source: "Aftonbladet", Expert: "Berit", Signs: "1X", Confidence: 0.6, FetchedAt: time.Now().UTC()},
		}
		if err := store.UpsertPicks(ctx, picks); err != nil {
			t.Fatalf("UpsertPicks: %v", err)
		}

		got, err := store.PicksByCoupon(ctx, "c1")
		if err != nil {
			t.Fatalf("PicksByCoupon: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("got %d picks, want 2", len(got))
		}
		// Ordered by slot, then source.
		if got[0].Source != "Aftonbladet" || got[0].Signs != "1X" {
			t.Errorf("first pick = %+v", got[0])
		}
	})
}

func TestAnalysisReplacesPreviousGeneration(t *testing.T) {
	backends(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		if err := store.SaveCoupon(ctx, testCoupon("c1", 34, true)); err != nil {
			t.Fatalf("SaveCoupon: %v", err)
		}

		gen := func(value float64) *models.CouponAnalysis {
			return &models.CouponAnalysis{
				CouponID: "c1",
				Matches: []models.MatchAnalysis{{
					CouponID: "c1", Slot: 1, MatchName: "Home - Away", HasOdds: true, QuoteCount: 2,
					Odds:          [models.OutcomeCount]float64{1.57, 4.75, 5.60},
					Probabilities: [models.OutcomeCount]float64{0.62, 0.21, 0.17},
					Values:        [models.OutcomeCount]float64{value, 0.93, 0.64},
					Percentages:   [models.OutcomeCount]float64{51, 22, 27},
					Recommended:   "1",
					Rationale:     "test",
					GeneratedAt:   time.Now().UTC(),
				}},
				GeneratedAt: time.Now().UTC(),
			}
		}

		if err := store.SaveAnalysis(ctx, gen(1.10)); err != nil {
			t.Fatalf("SaveAnalysis: %v", err)
		}
		if err := store.SaveAnalysis(ctx, gen(1.22)); err != nil {
			t.Fatalf("SaveAnalysis again: %v", err)
		}

		got, err := store.AnalysisByCoupon(ctx, "c1")
		if err != nil {
			t.Fatalf("AnalysisByCoupon: %v", err)
		}
		if len(got.Matches) != 1 {
			t.Fatalf("got %d analysis rows, want 1 (replaced)", len(got.Matches))
		}
		if got.Matches[0].Values[0] != 1.22 {
			t.Errorf("value = %v, want 1.22", got.Matches[0].Values[0])
		}
	})
}

func TestRowsRoundTrip(t *testing.T) {
	backends(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		if err := store.SaveCoupon(ctx, testCoupon("c1", 34, true)); err != nil {
			t.Fatalf("SaveCoupon: %v", err)
		}

		rows := []models.SuggestedRow{
			{
				ID: "row-1", CouponID: "c1", Label: "primary",
				Choices: map[int]models.OutcomeChoice{
					1: {models.OutcomeHome},
					2: {models.OutcomeDraw},
				},
				HalfCovers: 0, CostFactor: 1,
				ExpectedValue: 0.0021, EVPerCost: 0.0021,
				Reasoning: "highest value outcome in every match",
				CreatedAt: time.Now().UTC(),
			},
			{
				ID: "row-2", CouponID: "c1", Label: "alt-1",
				Choices: map[int]models.OutcomeChoice{
					1: {models.OutcomeHome, models.OutcomeDraw},
					2: {models.OutcomeDraw},
				},
				HalfCovers: 1, CostFactor: 2,
				ExpectedValue: 0.0034, EVPerCost: 0.0017,
				Reasoning: "half-covers on match 1 (1X)",
				CreatedAt: time.Now().UTC(),
			},
		}
		if err := store.SaveRows(ctx, "c1", rows); err != nil {
			t.Fatalf("SaveRows: %v", err)
		}

		got, err := store.RowsByCoupon(ctx, "c1")
		if err != nil {
			t.Fatalf("RowsByCoupon: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("got %d rows, want 2", len(got))
		}
		// Highest expected value first.
		if got[0].ID != "row-2" {
			t.Errorf("rows[0] = %s, want row-2", got[0].ID)
		}
		choice := got[0].Choices[1]
		if choice.Signs() != "1X" {
			t.Errorf("slot 1 choice = %q, want 1X", choice.Signs())
		}
		if got[0].CostFactor != 2 {
			t.Errorf("cost factor = %d, want 2", got[0].CostFactor)
		}
	})
}

func TestRowsReplacedOnSave(t *testing.T) {
	backends(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		row := models.SuggestedRow{
			ID: "row-1", CouponID: "c1", Label: "primary",
			Choices:    map[int]models.OutcomeChoice{1: {models.OutcomeHome}},
			CostFactor: 1, CreatedAt: time.Now().UTC(),
		}
		if err := store.SaveRows(ctx, "c1", []models.SuggestedRow{row}); err != nil {
			t.Fatalf("SaveRows: %v", err)
		}

		replacement := row
		replacement.ID = "row-9"
		if err := store.SaveRows(ctx, "c1", []models.SuggestedRow{replacement}); err != nil {
			t.Fatalf("SaveRows again: %v", err)
		}

		got, err := store.RowsByCoupon(ctx, "c1")
		if err != nil {
			t.Fatalf("RowsByCoupon: %v", err)
		}
		if len(got) != 1 || got[0].ID != "row-9" {
			t.Errorf("rows = %+v, want single row-9", got)
		}
	})
}

func TestAlertValues(t *testing.T) {
	backends(t, func(t *testing.T, store Store) {
		ctx := context.Background()

		_, _, found, err := store.LastAlertValue(ctx, "c1", 1, "1")
		if err != nil {
			t.Fatalf("LastAlertValue: %v", err)
		}
		if found {
			t.Error("found alert value before any was set")
		}

		announced := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
		if err := store.SetLastAlertValue(ctx, "c1", 1, "1", 1.22, announced); err != nil {
			t.Fatalf("SetLastAlertValue: %v", err)
		}

		value, at, found, err := store.LastAlertValue(ctx, "c1", 1, "1")
		if err != nil {
			t.Fatalf("LastAlertValue: %v", err)
		}
		if !found {
			t.Fatal("alert value not found after set")
		}
		if value != 1.22 {
			t.Errorf("value = %v, want 1.22", value)
		}
		if at.Unix() != announced.Unix() {
			t.Errorf("announcedAt = %v, want %v", at, announced)
		}

		// Overwrite with a higher value.
		if err := store.SetLastAlertValue(ctx, "c1", 1, "1", 1.30, announced.Add(time.Hour)); err != nil {
			t.Fatalf("SetLastAlertValue overwrite: %v", err)
		}
		value, _, _, err = store.LastAlertValue(ctx, "c1", 1, "1")
		if err != nil {
			t.Fatalf("LastAlertValue: %v", err)
		}
		if value != 1.30 {
			t.Errorf("value after overwrite = %v, want 1.30", value)
		}
	})
}

func TestListCouponsNewestFirst(t *testing.T) {
	backends(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		for _, wk := range []int{32, 34, 33} {
			c := testCoupon(fmt.Sprintf("week-%d", wk), wk, false)
			if err := store.SaveCoupon(ctx, c); err != nil {
				t.Fatalf("SaveCoupon week %d: %v", wk, err)
			}
		}

		coupons, err := store.ListCoupons(ctx)
		if err != nil {
			t.Fatalf("ListCoupons: %v", err)
		}
		if len(coupons) != 3 {
			t.Fatalf("got %d coupons, want 3", len(coupons))
		}
		weeks := []int{coupons[0].Week, coupons[1].Week, coupons[2].Week}
		if weeks[0] != 34 || weeks[1] != 33 || weeks[2] != 32 {
			t.Errorf("week order = %v, want [34 33 32]", weeks)
		}
		if coupons[0].Matches != nil {
			t.Error("ListCoupons should not load matches")
		}
	})
}
