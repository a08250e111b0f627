package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// NewSQLiteStore opens (creating if needed) a SQLite database at path and
// initializes the schema. The default backend; needs no external services.
func NewSQLiteStore(ctx context.Context, path string) (*SQLStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}

	dsn := path
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	if path == ":memory:" {
		// Each pooled connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	store := &SQLStore{db: db, driver: driverSQLite}

	if err := store.initSchemaSQLite(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	slog.Info("sqlite storage initialized", "path", path)
	return store, nil
}

func (s *SQLStore) initSchemaSQLite(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS coupons (
		id TEXT PRIMARY KEY,
		week INTEGER NOT NULL,
		year INTEGER NOT NULL,
		draw_date TIMESTAMP NOT NULL,
		active BOOLEAN NOT NULL DEFAULT 0,
		jackpot TEXT NOT NULL DEFAULT '0',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS matches (
		coupon_id TEXT NOT NULL REFERENCES coupons(id),
		slot INTEGER NOT NULL,
		home_team TEXT NOT NULL,
		away_team TEXT NOT NULL,
		kickoff TIMESTAMP,
		pct_home REAL NOT NULL DEFAULT 0,
		pct_draw REAL NOT NULL DEFAULT 0,
		pct_away REAL NOT NULL DEFAULT 0,
		result TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (coupon_id, slot)
	);

	CREATE TABLE IF NOT EXISTS quotes (
		coupon_id TEXT NOT NULL,
		slot INTEGER NOT NULL,
		bookmaker TEXT NOT NULL,
		odds_home REAL NOT NULL,
		odds_draw REAL NOT NULL,
		odds_away REAL NOT NULL,
		fetched_at TIMESTAMP NOT NULL,
		PRIMARY KEY (coupon_id, slot, bookmaker)
	);

	CREATE TABLE IF NOT EXISTS picks (
		coupon_id TEXT NOT NULL,
		slot INTEGER NOT NULL,
		source TEXT NOT NULL,
		expert TEXT NOT NULL DEFAULT '',
		signs TEXT NOT NULL,
		rationale TEXT NOT NULL DEFAULT '',
		confidence REAL NOT NULL DEFAULT 0,
		fetched_at TIMESTAMP NOT NULL,
		PRIMARY KEY (coupon_id, slot, source, expert)
	);

	CREATE TABLE IF NOT EXISTS analyses (
		coupon_id TEXT NOT NULL,
		slot INTEGER NOT NULL,
		match_name TEXT NOT NULL,
		has_odds BOOLEAN NOT NULL,
		quote_count INTEGER NOT NULL DEFAULT 0,
		odds_home REAL NOT NULL DEFAULT 0,
		odds_draw REAL NOT NULL DEFAULT 0,
		odds_away REAL NOT NULL DEFAULT 0,
		prob_home REAL NOT NULL DEFAULT 0,
		prob_draw REAL NOT NULL DEFAULT 0,
		prob_away REAL NOT NULL DEFAULT 0,
		value_home REAL NOT NULL DEFAULT 0,
		value_draw REAL NOT NULL DEFAULT 0,
		value_away REAL NOT NULL DEFAULT 0,
		pct_home REAL NOT NULL DEFAULT 0,
		pct_draw REAL NOT NULL DEFAULT 0,
		pct_away REAL NOT NULL DEFAULT 0,
		recommended TEXT NOT NULL DEFAULT '',
		rationale TEXT NOT NULL DEFAULT '',
		generated_at TIMESTAMP NOT NULL,
		PRIMARY KEY (coupon_id, slot)
	);

	CREATE TABLE IF NOT EXISTS suggested_rows (
		id TEXT PRIMARY KEY,
		coupon_id TEXT NOT NULL,
		label TEXT NOT NULL,
		choices TEXT NOT NULL,
		half_covers INTEGER NOT NULL DEFAULT 0,
		cost_factor INTEGER NOT NULL DEFAULT 1,
		expected_value REAL NOT NULL DEFAULT 0,
		ev_per_cost REAL NOT NULL DEFAULT 0,
		reasoning TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS alerts (
		coupon_id TEXT NOT NULL,
		slot INTEGER NOT NULL,
		sign TEXT NOT NULL,
		value REAL NOT NULL,
		announced_at TIMESTAMP NOT NULL,
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
