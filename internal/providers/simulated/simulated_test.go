package simulated

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/sodersten/tipsvalue/internal/pkg/config"
	"github.com/sodersten/tipsvalue/internal/pkg/models"
	"github.com/sodersten/tipsvalue/internal/pkg/validation"
)

func testCoupon() *models.Coupon {
	matches := make([]models.Match, 0, models.CouponSize)
	for slot := 1; slot <= models.CouponSize; slot++ {
		matches = append(matches, models.Match{
			Slot:        slot,
			HomeTeam:    "Home",
			AwayTeam:    "Away",
			Kickoff:     time.Date(2026, 8, 22, 16, 0, 0, 0, time.UTC),
			Percentages: [models.OutcomeCount]float64{45, 30, 25},
		})
	}
	return &models.Coupon{ID: "c1", Week: 34, Year: 2026, Matches: matches}
}

func TestFetchQuotesDeterministic(t *testing.T) {
	p := NewProvider(config.ProviderConfig{Kind: "simulated", Name: "demo"})
	coupon := testCoupon()

	first, err := p.FetchQuotes(context.Background(), coupon)
	if err != nil {
		t.Fatalf("FetchQuotes: %v", err)
	}
	second, err := p.FetchQuotes(context.Background(), coupon)
	if err != nil {
		t.Fatalf("FetchQuotes again: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Bookmaker != second[i].Bookmaker || first[i].Slot != second[i].Slot {
			t.Fatalf("quote order differs at %d", i)
		}
		if first[i].Odds != second[i].Odds {
			t.Errorf("odds differ at %d: %v vs %v", i, first[i].Odds, second[i].Odds)
		}
	}
}

func TestFetchQuotesValid(t *testing.T) {
	p := NewProvider(config.ProviderConfig{Kind: "simulated"})
	quotes, err := p.FetchQuotes(context.Background(), testCoupon())
	if err != nil {
		t.Fatalf("FetchQuotes: %v", err)
	}

	if want := models.CouponSize * 3; len(quotes) != want {
		t.Fatalf("got %d quotes, want %d", len(quotes), want)
	}
	for _, q := range quotes {
		for i, o := range q.Odds {
			if o < validation.MinOdds || math.IsNaN(o) || math.IsInf(o, 0) {
				t.Errorf("%s slot %d outcome %d: bad odds %v", q.Bookmaker, q.Slot, i, o)
			}
		}
	}
}

func TestOddsTrackPublicOpinion(t *testing.T) {
	coupon := testCoupon()
	coupon.Matches[0].Percentages = [models.OutcomeCount]float64{70, 20, 10}

	p := NewProvider(config.ProviderConfig{Kind: "simulated"})
	quotes, err := p.FetchQuotes(context.Background(), coupon)
	if err != nil {
		t.Fatalf("FetchQuotes: %v", err)
	}

	for _, q := range quotes {
		if q.Slot != 1 {
			continue
		}
		if q.Odds[models.OutcomeHome] >= q.Odds[models.OutcomeDraw] || q.Odds[models.OutcomeDraw] >= q.Odds[models.OutcomeAway] {
			t.Errorf("%s: odds %v do not follow 70/20/10 split", q.Bookmaker, q.Odds)
		}
	}
}

func TestFetchPicksDeterministicAndParseable(t *testing.T) {
	p := NewProvider(config.ProviderConfig{Kind: "simulated", Name: "Rekatochklart"})
	coupon := testCoupon()

	first, err := p.FetchPicks(context.Background(), coupon)
	if err != nil {
		t.Fatalf("FetchPicks: %v", err)
	}
	if want := models.CouponSize * len(expertNames); len(first) != want {
		t.Fatalf("got %d picks, want %d", len(first), want)
	}

	for _, pick := range first {
		if pick.Source != "Rekatochklart" {
			t.Errorf("source = %q", pick.Source)
		}
		if _, err := models.ParseSigns(pick.Signs); err != nil {
			t.Errorf("slot %d expert %s: unparseable signs %q", pick.Slot, pick.Expert, pick.Signs)
		}
		if pick.Confidence < 0.5 || pick.Confidence > 0.95 {
			t.Errorf("confidence %v outside expected range", pick.Confidence)
		}
	}

	second, err := p.FetchPicks(context.Background(), coupon)
	if err != nil {
		t.Fatalf("FetchPicks again: %v", err)
	}
	for i := range first {
		if first[i].Signs != second[i].Signs {
			t.Errorf("pick %d differs between fetches: %q vs %q", i, first[i].Signs, second[i].Signs)
		}
	}
}
