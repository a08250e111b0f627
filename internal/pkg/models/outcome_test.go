package models

import (
	"math"
	"testing"
)

func TestParseSigns(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"1", "1", false},
		{"X", "X", false},
		{"x", "X", false},
		{"2", "2", false},
		{"1X", "1X", false},
		{"x2", "X2", false},
		{" 12 ", "12", false},
		{"", "", true},
		{"12X", "", true},
		{"11", "", true},
		{"3", "", true},
	}

	for _, tt := range tests {
		outcomes, err := ParseSigns(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseSigns(%q) expected error, got %v", tt.in, outcomes)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseSigns(%q) unexpected error: %v", tt.in, err)
			continue
		}
		if got := SignsString(outcomes); got != tt.want {
			t.Errorf("ParseSigns(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestOutcomeSign(t *testing.T) {
	tests := []struct {
		outcome Outcome
		sign    string
		name    string
	}{
		{OutcomeHome, "1", "home"},
		{OutcomeDraw, "X", "draw"},
		{OutcomeAway, "2", "away"},
	}

	for _, tt := range tests {
		if got := tt.outcome.Sign(); got != tt.sign {
			t.Errorf("%v.Sign() = %q, want %q", tt.outcome, got, tt.sign)
		}
		if got := tt.outcome.String(); got != tt.name {
			t.Errorf("Outcome.String() = %q, want %q", got, tt.name)
		}
	}
}

func TestAggregateQuotes(t *testing.T) {
	quotes := []OddsQuote{
		{Bookmaker: "Bet365", Odds: [OutcomeCount]float64{1.50, 4.00, 6.00}},
		{Bookmaker: "Unibet", Odds: [OutcomeCount]float64{1.60, 4.50, 5.50}},
		{Bookmaker: "Betsson", Odds: [OutcomeCount]float64{1.61, 5.75, 4.90}},
	}

	agg, ok := AggregateQuotes(quotes)
	if !ok {
		t.Fatal("AggregateQuotes returned ok=false for non-empty input")
	}
	want := [OutcomeCount]float64{1.57, 4.75, 5.466666666666667}
	for i := range want {
		if math.Abs(agg[i]-want[i]) > 1e-9 {
			t.Errorf("aggregate[%d] = %v, want %v", i, agg[i], want[i])
		}
	}
}

func TestAggregateQuotesSingle(t *testing.T) {
	q := OddsQuote{Bookmaker: "Bet365", Odds: [OutcomeCount]float64{2.10, 3.30, 3.60}}
	agg, ok := AggregateQuotes([]OddsQuote{q})
	if !ok {
		t.Fatal("AggregateQuotes returned ok=false for single quote")
	}
	if agg != q.Odds {
		t.Errorf("aggregate of one quote = %v, want %v", agg, q.Odds)
	}
}

func TestAggregateQuotesEmpty(t *testing.T) {
	if _, ok := AggregateQuotes(nil); ok {
		t.Error("AggregateQuotes(nil) should report ok=false")
	}
}
