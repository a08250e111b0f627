package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
)

// NewPostgresStore connects to PostgreSQL and initializes the schema.
func NewPostgresStore(ctx context.Context, dsn string) (*SQLStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is required")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	// Test connection
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	store := &SQLStore{db: db, driver: driverPostgres}

	if err := store.initSchemaPostgres(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	slog.Info("postgres storage initialized")
	return store, nil
}

func (s *SQLStore) initSchemaPostgres(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS coupons (
		id TEXT PRIMARY KEY,
		week INTEGER NOT NULL,
		year INTEGER NOT NULL,
		draw_date TIMESTAMPTZ NOT NULL,
		active BOOLEAN NOT NULL DEFAULT FALSE,
		jackpot NUMERIC(14,2) NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS matches (
		coupon_id TEXT NOT NULL REFERENCES coupons(id),
		slot INTEGER NOT NULL,
		home_team TEXT NOT NULL,
		away_team TEXT NOT NULL,
		kickoff TIMESTAMPTZ,
		pct_home DOUBLE PRECISION NOT NULL DEFAULT 0,
		pct_draw DOUBLE PRECISION NOT NULL DEFAULT 0,
		pct_away DOUBLE PRECISION NOT NULL DEFAULT 0,
		result TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (coupon_id, slot)
	);

	CREATE TABLE IF NOT EXISTS quotes (
		coupon_id TEXT NOT NULL,
		slot INTEGER NOT NULL,
		bookmaker TEXT NOT NULL,
		odds_home DOUBLE PRECISION NOT NULL,
		odds_draw DOUBLE PRECISION NOT NULL,
		odds_away DOUBLE PRECISION NOT NULL,
		fetched_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (coupon_id, slot, bookmaker)
	);

	CREATE TABLE IF NOT EXISTS picks (
		coupon_id TEXT NOT NULL,
		slot INTEGER NOT NULL,
		source TEXT NOT NULL,
		expert TEXT NOT NULL DEFAULT '',
		signs TEXT NOT NULL,
		rationale TEXT NOT NULL DEFAULT '',
		confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
		fetched_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (coupon_id, slot, source, expert)
	);

	CREATE TABLE IF NOT EXISTS analyses (
		coupon_id TEXT NOT NULL,
		slot INTEGER NOT NULL,
		match_name TEXT NOT NULL,
		has_odds BOOLEAN NOT NULL,
		quote_count INTEGER NOT NULL DEFAULT 0,
		odds_home DOUBLE PRECISION NOT NULL DEFAULT 0,
		odds_draw DOUBLE PRECISION NOT NULL DEFAULT 0,
		odds_away DOUBLE PRECISION NOT NULL DEFAULT 0,
		prob_home DOUBLE PRECISION NOT NULL DEFAULT 0,
		prob_draw DOUBLE PRECISION NOT NULL DEFAULT 0,
		prob_away DOUBLE PRECISION NOT NULL DEFAULT 0,
		value_home DOUBLE PRECISION NOT NULL DEFAULT 0,
		value_draw DOUBLE PRECISION NOT NULL DEFAULT 0,
		value_away DOUBLE PRECISION NOT NULL DEFAULT 0,
		pct_home DOUBLE PRECISION NOT NULL DEFAULT 0,
		pct_draw DOUBLE PRECISION NOT NULL DEFAULT 0,
		pct_away DOUBLE PRECISION NOT NULL DEFAULT 0,
		recommended TEXT NOT NULL DEFAULT '',
		rationale TEXT NOT NULL DEFAULT '',
		generated_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (coupon_id, slot)
	);

	CREATE TABLE IF NOT EXISTS suggested_rows (
		id TEXT PRIMARY KEY,
		coupon_id TEXT NOT NULL,
		label TEXT NOT NULL,
		choices TEXT NOT NULL,
		half_covers INTEGER NOT NULL DEFAULT 0,
		cost_factor INTEGER NOT NULL DEFAULT 1,
		expected_value DOUBLE PRECISION NOT NULL DEFAULT 0,
		ev_per_cost DOUBLE PRECISION NOT NULL DEFAULT 0,
		reasoning TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS alerts (
		coupon_id TEXT NOT NULL,
		slot INTEGER NOT NULL,
		sign TEXT NOT NULL,
		value DOUBLE PRECISION NOT NULL,
		announced_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (coupon_id, slot, sign)
	);

	CREATE INDEX IF NOT EXISTS idx_coupons_active ON coupons(active);
	CREATE INDEX IF NOT EXISTS idx_quotes_coupon ON quotes(coupon_id);
	CREATE INDEX IF NOT EXISTS idx_picks_coupon ON picks(coupon_id);
	CREATE INDEX IF NOT EXISTS idx_rows_coupon ON suggested_rows(coupon_id);
	`

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}
