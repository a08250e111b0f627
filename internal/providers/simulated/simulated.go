// Package simulated generates deterministic demo quotes and picks.
//
// Output is seeded from the coupon week and match slot, so repeated
// fetches for the same coupon return identical data. Useful for local
// development and seeding without live feeds.
package simulated

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"time"

	"github.com/sodersten/tipsvalue/internal/pkg/config"
	"github.com/sodersten/tipsvalue/internal/pkg/models"
	"github.com/sodersten/tipsvalue/internal/pkg/validation"
	"github.com/sodersten/tipsvalue/internal/providers"
)

func init() {
	providers.RegisterOdds("simulated", func(cfg config.ProviderConfig) (providers.OddsProvider, error) {
		return NewProvider(cfg), nil
	})
	providers.RegisterExperts("simulated", func(cfg config.ProviderConfig) (providers.ExpertProvider, error) {
		return NewProvider(cfg), nil
	})
}

// bookmakers lists the simulated books with their overround.
var bookmakers = []struct {
	name   string
	margin float64
}{
	{"Bet365", 1.05},
	{"Unibet", 1.06},
	{"Betsson", 1.07},
}

var expertNames = []string{"Johan", "Erik", "Maja"}

// Provider produces plausible odds and picks derived from the public
// percentages already on the coupon.
type Provider struct {
	name string
}

func NewProvider(cfg config.ProviderConfig) *Provider {
	name := cfg.Name
	if name == "" {
		name = "simulated"
	}
	return &Provider{name: name}
}

func (p *Provider) Name() string {
	return p.name
}

// FetchQuotes implements providers.OddsProvider.
func (p *Provider) FetchQuotes(_ context.Context, coupon *models.Coupon) ([]models.OddsQuote, error) {
	now := time.Now().UTC()
	quotes := make([]models.OddsQuote, 0, len(coupon.Matches)*len(bookmakers))
	for _, bk := range bookmakers {
		for _, match := range coupon.Matches {
			rng := seededRand(bk.name, coupon.Year, coupon.Week, match.Slot)
			quotes = append(quotes, models.OddsQuote{
				CouponID:  coupon.ID,
				Slot:      match.Slot,
				Bookmaker: bk.name,
				Odds:      simulateOdds(rng, match.Percentages, bk.margin),
				FetchedAt: now,
			})
		}
	}
	return quotes, nil
}

// FetchPicks implements providers.ExpertProvider.
func (p *Provider) FetchPicks(_ context.Context, coupon *models.Coupon) ([]models.ExpertPick, error) {
	now := time.Now().UTC()
	picks := make([]models.ExpertPick, 0, len(coupon.Matches)*len(expertNames))
	for _, expert := range expertNames {
		for _, match := range coupon.Matches {
			rng := seededRand(p.name+"/"+expert, coupon.Year, coupon.Week, match.Slot)
			signs := simulateSigns(rng, match.Percentages)
			picks = append(picks, models.ExpertPick{
				CouponID:   coupon.ID,
				Slot:       match.Slot,
				Source:     p.name,
				Expert:     expert,
				Signs:      signs,
				Confidence: 0.5 + rng.Float64()*0.45,
				Rationale:  fmt.Sprintf("%s backs %s in %s", expert, signs, match.Name()),
				FetchedAt:  now,
			})
		}
	}
	return picks, nil
}

func seededRand(who string, year, week, slot int) *rand.Rand {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%d|%d|%d", who, year, week, slot)
	return rand.New(rand.NewSource(int64(h.Sum64())))
}

// simulateOdds derives a 1X2 price from the public percentages: each
// outcome's implied probability is its percentage share scaled up by the
// bookmaker margin, with a small jitter so bookmakers disagree.
func simulateOdds(rng *rand.Rand, percentages [models.OutcomeCount]float64, margin float64) [models.OutcomeCount]float64 {
	sum := 0.0
	for _, pct := range percentages {
		sum += pct
	}

	var odds [models.OutcomeCount]float64
	for i, pct := range percentages {
		share := 1.0 / models.OutcomeCount
		if sum > 0 && pct > 0 {
			share = pct / sum
		}
		implied := share * margin
		jitter := 1 + (rng.Float64()-0.5)*0.04
		o := jitter / implied
		if o < validation.MinOdds {
			o = validation.MinOdds
		}
		odds[i] = o
	}
	return odds
}

// simulateSigns picks a sign weighted by the public percentages, with a
// quarter of picks hedging on the two strongest outcomes.
func simulateSigns(rng *rand.Rand, percentages [models.OutcomeCount]float64) string {
	first, second := strongestOutcomes(percentages)

	if rng.Float64() < 0.25 {
		if first > second {
			first, second = second, first
		}
		return first.Sign() + second.Sign()
	}

	sum := 0.0
	for _, pct := range percentages {
		sum += pct
	}
	if sum <= 0 {
		return models.Outcome(rng.Intn(models.OutcomeCount)).Sign()
	}

	roll := rng.Float64() * sum
	for i, pct := range percentages {
		roll -= pct
		if roll < 0 {
			return models.Outcome(i).Sign()
		}
	}
	return models.OutcomeAway.Sign()
}

func strongestOutcomes(percentages [models.OutcomeCount]float64) (models.Outcome, models.Outcome) {
	first, second := models.OutcomeHome, models.OutcomeDraw
	if percentages[second] > percentages[first] {
		first, second = second, first
	}
	if percentages[models.OutcomeAway] > percentages[first] {
		first, second = models.OutcomeAway, first
	} else if percentages[models.OutcomeAway] > percentages[second] {
		second = models.OutcomeAway
	}
	return first, second
}
