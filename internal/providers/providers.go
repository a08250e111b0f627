package providers

import (
	"context"

	"github.com/sodersten/tipsvalue/internal/pkg/models"
)

// OddsProvider fetches bookmaker odds for the matches on a coupon.
type OddsProvider interface {
	Name() string
	FetchQuotes(ctx context.Context, coupon *models.Coupon) ([]models.OddsQuote, error)
}

// ExpertProvider fetches published expert picks for a coupon.
type ExpertProvider interface {
	Name() string
	FetchPicks(ctx context.Context, coupon *models.Coupon) ([]models.ExpertPick, error)
}
