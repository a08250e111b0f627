package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sodersten/tipsvalue/internal/pkg/config"
	"github.com/sodersten/tipsvalue/internal/pkg/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Store persists coupons and everything derived from them.
type Store interface {
	// SaveCoupon upserts the coupon and its matches. Activating a coupon
	// deactivates every other one. Stored match results survive re-saves
	// unless the incoming match carries a result of its own.
	SaveCoupon(ctx context.Context, coupon *models.Coupon) error

	// CouponByID returns the coupon with matches, or ErrNotFound.
	CouponByID(ctx context.Context, id string) (*models.Coupon, error)

	// ActiveCoupon returns the currently active coupon with matches,
	// or ErrNotFound when no coupon is active.
	ActiveCoupon(ctx context.Context) (*models.Coupon, error)

	// ListCoupons returns all coupons without matches, newest first.
	ListCoupons(ctx context.Context) ([]models.Coupon, error)

	// SetMatchResult records the played result ("1", "X", "2") for a slot.
	SetMatchResult(ctx context.Context, couponID string, slot int, result string) error

	// UpsertQuotes stores quotes keyed by (coupon, slot, bookmaker);
	// a newer fetch replaces the older quote.
	UpsertQuotes(ctx context.Context, quotes []models.OddsQuote) error

	// QuotesByCoupon returns all stored quotes for a coupon.
	QuotesByCoupon(ctx context.Context, couponID string) ([]models.OddsQuote, error)

	// UpsertPicks stores expert picks keyed by (coupon, slot, source, expert).
	UpsertPicks(ctx context.Context, picks []models.ExpertPick) error

	// PicksByCoupon returns all stored expert picks for a coupon.
	PicksByCoupon(ctx context.Context, couponID string) ([]models.ExpertPick, error)

	// SaveAnalysis replaces the stored analysis generation for the coupon.
	SaveAnalysis(ctx context.Context, analysis *models.CouponAnalysis) error

	// AnalysisByCoupon returns the current analysis generation, or ErrNotFound.
	AnalysisByCoupon(ctx context.Context, couponID string) (*models.CouponAnalysis, error)

	// SaveRows replaces the suggested rows stored for the coupon.
	SaveRows(ctx context.Context, couponID string, rows []models.SuggestedRow) error

	// RowsByCoupon returns suggested rows ordered by expected value descending.
	RowsByCoupon(ctx context.Context, couponID string) ([]models.SuggestedRow, error)

	// LastAlertValue returns the value last announced for (coupon, slot, sign)
	// and when, or found=false when nothing was announced yet.
	LastAlertValue(ctx context.Context, couponID string, slot int, sign string) (value float64, announcedAt time.Time, found bool, err error)

	// SetLastAlertValue records an announced value for the notifier policy.
	SetLastAlertValue(ctx context.Context, couponID string, slot int, sign string, value float64, announcedAt time.Time) error

	// Close closes the underlying connection.
	Close() error
}

// Open builds the configured Store implementation.
func Open(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Driver {
	case "sqlite":
		return NewSQLiteStore(ctx, cfg.SQLitePath)
	case "postgres":
		return NewPostgresStore(ctx, cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
