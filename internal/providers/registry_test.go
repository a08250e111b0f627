package providers

import (
	"context"
	"testing"

	"github.com/sodersten/tipsvalue/internal/pkg/config"
	"github.com/sodersten/tipsvalue/internal/pkg/models"
)

type stubProvider struct{ name string }

func (s stubProvider) Name() string { return s.name }

func (s stubProvider) FetchQuotes(context.Context, *models.Coupon) ([]models.OddsQuote, error) {
	return nil, nil
}

func (s stubProvider) FetchPicks(context.Context, *models.Coupon) ([]models.ExpertPick, error) {
	return nil, nil
}

func TestBuildOdds(t *testing.T) {
	RegisterOdds("stub-odds", func(cfg config.ProviderConfig) (OddsProvider, error) {
		return stubProvider{name: cfg.Name}, nil
	})

	got, err := BuildOdds([]config.ProviderConfig{{Kind: "Stub-Odds", Name: "bookie"}})
	if err != nil {
		t.Fatalf("BuildOdds: %v", err)
	}
	if len(got) != 1 || got[0].Name() != "bookie" {
		t.Errorf("got %+v, want one provider named bookie", got)
	}
}

func TestBuildOddsUnknownKind(t *testing.T) {
	if _, err := BuildOdds([]config.ProviderConfig{{Kind: "nope"}}); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestBuildExperts(t *testing.T) {
	RegisterExperts("stub-experts", func(cfg config.ProviderConfig) (ExpertProvider, error) {
		return stubProvider{name: cfg.Name}, nil
	})

	got, err := BuildExperts([]config.ProviderConfig{{Kind: "stub-experts", Name: "tipster"}})
	if err != nil {
		t.Fatalf("BuildExperts: %v", err)
	}
	if len(got) != 1 || got[0].Name() != "tipster" {
		t.Errorf("got %+v, want one provider named tipster", got)
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	RegisterOdds("dup-kind", func(config.ProviderConfig) (OddsProvider, error) {
		return stubProvider{}, nil
	})

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate registration")
		}
	}()
	RegisterOdds("dup-kind", func(config.ProviderConfig) (OddsProvider, error) {
		return stubProvider{}, nil
	})
}
