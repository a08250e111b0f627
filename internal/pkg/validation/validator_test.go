package validation

import (
	"errors"
	"testing"

	"github.com/sodersten/tipsvalue/internal/pkg/models"
)

func validMatch(slot int) models.Match {
	return models.Match{
		Slot:        slot,
		HomeTeam:    "Arsenal",
		AwayTeam:    "Chelsea",
		Percentages: [models.OutcomeCount]float64{51, 22, 27},
	}
}

func TestValidateMatch(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name    string
		mutate  func(*models.Match)
		wantErr error
	}{
		{"valid", func(m *models.Match) {}, nil},
		{"zero percentage allowed", func(m *models.Match) {
			m.Percentages = [models.OutcomeCount]float64{100, 0, 0}
		}, nil},
		{"slot zero", func(m *models.Match) { m.Slot = 0 }, ErrBadSlot},
		{"slot fourteen", func(m *models.Match) { m.Slot = 14 }, ErrBadSlot},
		{"negative percentage", func(m *models.Match) { m.Percentages[1] = -5 }, ErrBadPercentages},
		{"percentage above 100", func(m *models.Match) { m.Percentages[0] = 101 }, ErrBadPercentages},
		{"sum too low", func(m *models.Match) {
			m.Percentages = [models.OutcomeCount]float64{40, 20, 20}
		}, ErrBadPercentages},
		{"sum too high", func(m *models.Match) {
			m.Percentages = [models.OutcomeCount]float64{60, 30, 30}
		}, ErrBadPercentages},
		{"bad result sign", func(m *models.Match) { m.Result = "1X" }, ErrBadSigns},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := validMatch(1)
			tt.mutate(&m)
			err := v.ValidateMatch(&m)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateMatch: unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateMatch: got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateQuote(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name    string
		quote   models.OddsQuote
		wantErr bool
	}{
		{"valid", models.OddsQuote{Bookmaker: "Bet365", Slot: 1, Odds: [models.OutcomeCount]float64{1.57, 4.75, 5.60}}, false},
		{"odds at floor", models.OddsQuote{Bookmaker: "Bet365", Slot: 1, Odds: [models.OutcomeCount]float64{1.01, 4.75, 5.60}}, false},
		{"odds below floor", models.OddsQuote{Bookmaker: "Bet365", Slot: 1, Odds: [models.OutcomeCount]float64{0.99, 4.75, 5.60}}, true},
		{"zero odds leg", models.OddsQuote{Bookmaker: "Bet365", Slot: 1, Odds: [models.OutcomeCount]float64{1.57, 0, 5.60}}, true},
		{"missing bookmaker", models.OddsQuote{Slot: 1, Odds: [models.OutcomeCount]float64{1.57, 4.75, 5.60}}, true},
		{"slot out of range", models.OddsQuote{Bookmaker: "Bet365", Slot: 14, Odds: [models.OutcomeCount]float64{1.57, 4.75, 5.60}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateQuote(&tt.quote)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateQuote(%+v) error = %v, wantErr %v", tt.quote, err, tt.wantErr)
			}
		})
	}
}

func TestValidatePick(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name    string
		pick    models.ExpertPick
		wantErr bool
	}{
		{"single sign", models.ExpertPick{Source: "Rekatochklart", Slot: 3, Signs: "1", Confidence: 0.8}, false},
		{"half cover pick", models.ExpertPick{Source: "Aftonbladet", Slot: 3, Signs: "1X", Confidence: 0.5}, false},
		{"three signs", models.ExpertPick{Source: "Aftonbladet", Slot: 3, Signs: "12X", Confidence: 0.5}, true},
		{"empty signs", models.ExpertPick{Source: "Aftonbladet", Slot: 3, Signs: "", Confidence: 0.5}, true},
		{"no source", models.ExpertPick{Slot: 3, Signs: "1", Confidence: 0.5}, true},
		{"confidence above one", models.ExpertPick{Source: "Expressen", Slot: 3, Signs: "2", Confidence: 1.5}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidatePick(&tt.pick)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePick(%+v) error = %v, wantErr %v", tt.pick, err, tt.wantErr)
			}
		})
	}
}

func TestValidateCouponDuplicateSlot(t *testing.T) {
	v := NewValidator()
	coupon := &models.Coupon{
		Week: 34,
		Year: 2026,
		Matches: []models.Match{
			validMatch(1),
			validMatch(1),
		},
	}

	err := v.ValidateCoupon(coupon)
	if !errors.Is(err, ErrBadSlot) {
		t.Errorf("duplicate slot: got %v, want ErrBadSlot", err)
	}
}
