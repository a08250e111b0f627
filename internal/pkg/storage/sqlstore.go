package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sodersten/tipsvalue/internal/pkg/models"
)

const (
	driverSQLite   = "sqlite"
	driverPostgres = "postgres"
)

// Ensure SQLStore implements Store
var _ Store = (*SQLStore)(nil)

// SQLStore implements Store on top of database/sql. The same statement set
// serves both backends; placeholders are rewritten for postgres.
type SQLStore struct {
	db     *sql.DB
	driver string
}

// rebind rewrites ? placeholders to $1..$n for postgres.
func (s *SQLStore) rebind(query string) string {
	if s.driver != driverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func (s *SQLStore) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *SQLStore) SaveCoupon(ctx context.Context, coupon *models.Coupon) error {
	if coupon.ID == "" {
		return fmt.Errorf("coupon ID is required")
	}

	now := time.Now().UTC()
	if coupon.CreatedAt.IsZero() {
		coupon.CreatedAt = now
	}
	coupon.UpdatedAt = now

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if coupon.Active {
			_, err := tx.ExecContext(ctx,
				s.rebind(`UPDATE coupons SET active = ?, updated_at = ? WHERE id <> ? AND active = ?`),
				false, now, coupon.ID, true)
			if err != nil {
				return fmt.Errorf("deactivate previous coupons: %w", err)
			}
		}

		_, err := tx.ExecContext(ctx, s.rebind(`
			INSERT INTO coupons (id, week, year, draw_date, active, jackpot, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
				week = excluded.week,
				year = excluded.year,
				draw_date = excluded.draw_date,
				active = excluded.active,
				jackpot = excluded.jackpot,
				updated_at = excluded.updated_at`),
			coupon.ID, coupon.Week, coupon.Year, coupon.DrawDate, coupon.Active,
			coupon.Jackpot.String(), coupon.CreatedAt, coupon.UpdatedAt)
		if err != nil {
			return fmt.Errorf("upsert coupon: %w", err)
		}

		for i := range coupon.Matches {
			m := &coupon.Matches[i]
			m.CouponID = coupon.ID
			_, err := tx.ExecContext(ctx, s.rebind(`
				INSERT INTO matches (coupon_id, slot, home_team, away_team, kickoff, pct_home, pct_draw, pct_away, result)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT (coupon_id, slot) DO UPDATE SET
					home_team = excluded.home_team,
					away_team = excluded.away_team,
					kickoff = excluded.kickoff,
					pct_home = excluded.pct_home,
					pct_draw = excluded.pct_draw,
					pct_away = excluded.pct_away,
					result = CASE WHEN excluded.result <> '' THEN excluded.result ELSE matches.result END`),
				coupon.ID, m.Slot, m.HomeTeam, m.AwayTeam, m.Kickoff,
				m.Percentages[0], m.Percentages[1], m.Percentages[2], m.Result)
			if err != nil {
				return fmt.Errorf("upsert match %d: %w", m.Slot, err)
			}
		}

		return nil
	})
}

func (s *SQLStore) CouponByID(ctx context.Context, id string) (*models.Coupon, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT id, week, year, draw_date, active, jackpot, created_at, updated_at
		FROM coupons WHERE id = ?`), id)
	return s.scanCouponWithMatches(ctx, row)
}

func (s *SQLStore) ActiveCoupon(ctx context.Context) (*models.Coupon, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT id, week, year, draw_date, active, jackpot, created_at, updated_at
		FROM coupons WHERE active = ? ORDER BY updated_at DESC LIMIT 1`), true)
	return s.scanCouponWithMatches(ctx, row)
}

func (s *SQLStore) scanCouponWithMatches(ctx context.Context, row *sql.Row) (*models.Coupon, error) {
	coupon, err := scanCoupon(row)
	if err != nil {
		return nil, err
	}
	matches, err := s.loadMatches(ctx, coupon.ID)
	if err != nil {
		return nil, err
	}
	coupon.Matches = matches
	return coupon, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCoupon(r rowScanner) (*models.Coupon, error) {
	var c models.Coupon
	var jackpot string
	err := r.Scan(&c.ID, &c.Week, &c.Year, &c.DrawDate, &c.Active, &jackpot, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan coupon: %w", err)
	}
	c.Jackpot, err = decimal.NewFromString(jackpot)
	if err != nil {
		return nil, fmt.Errorf("parse jackpot %q: %w", jackpot, err)
	}
	return &c, nil
}

func (s *SQLStore) ListCoupons(ctx context.Context) ([]models.Coupon, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, week, year, draw_date, active, jackpot, created_at, updated_at
		FROM coupons ORDER BY year DESC, week DESC`)
	if err != nil {
		return nil, fmt.Errorf("list coupons: %w", err)
	}
	defer rows.Close()

	var coupons []models.Coupon
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, err
		}
		coupons = append(coupons, *c)
	}
	return coupons, rows.Err()
}

func (s *SQLStore) loadMatches(ctx context.Context, couponID string) ([]models.Match, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT coupon_id, slot, home_team, away_team, kickoff, pct_home, pct_draw, pct_away, result
		FROM matches WHERE coupon_id = ? ORDER BY slot`), couponID)
	if err != nil {
		return nil, fmt.Errorf("load matches: %w", err)
	}
	defer rows.Close()

	var matches []models.Match
	for rows.Next() {
		var m models.Match
		err := rows.Scan(&m.CouponID, &m.Slot, &m.HomeTeam, &m.AwayTeam, &m.Kickoff,
			&m.Percentages[0], &m.Percentages[1], &m.Percentages[2], &m.Result)
		if err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (s *SQLStore) SetMatchResult(ctx context.Context, couponID string, slot int, result string) error {
	res, err := s.db.ExecContext(ctx,
		s.rebind(`UPDATE matches SET result = ? WHERE coupon_id = ? AND slot = ?`),
		result, couponID, slot)
	if err != nil {
		return fmt.Errorf("set match result: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set match result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("match %s/%d: %w", couponID, slot, ErrNotFound)
	}
	return nil
}

func (s *SQLStore) UpsertQuotes(ctx context.Context, quotes []models.OddsQuote) error {
	if len(quotes) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, q := range quotes {
			_, err := tx.ExecContext(ctx, s.rebind(`
				INSERT INTO quotes (coupon_id, slot, bookmaker, odds_home, odds_draw, odds_away, fetched_at)
				VALUES (?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT (coupon_id, slot, bookmaker) DO UPDATE SET
					odds_home = excluded.odds_home,
					odds_draw = excluded.odds_draw,
					odds_away = excluded.odds_away,
					fetched_at = excluded.fetched_at`),
				q.CouponID, q.Slot, q.Bookmaker, q.Odds[0], q.Odds[1], q.Odds[2], q.FetchedAt)
			if err != nil {
				return fmt.Errorf("upsert quote %s slot %d: %w", q.Bookmaker, q.Slot, err)
			}
		}
		return nil
	})
}

func (s *SQLStore) QuotesByCoupon(ctx context.Context, couponID string) ([]models.OddsQuote, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT coupon_id, slot, bookmaker, odds_home, odds_draw, odds_away, fetched_at
		FROM quotes WHERE coupon_id = ? ORDER BY slot, bookmaker`), couponID)
	if err != nil {
		return nil, fmt.Errorf("quotes by coupon: %w", err)
	}
	defer rows.Close()

	var quotes []models.OddsQuote
	for rows.Next() {
		var q models.OddsQuote
		err := rows.Scan(&q.CouponID, &q.Slot, &q.Bookmaker, &q.Odds[0], &q.Odds[1], &q.Odds[2], &q.FetchedAt)
		if err != nil {
			return nil, fmt.Errorf("scan quote: %w", err)
		}
		quotes = append(quotes, q)
	}
	return quotes, rows.Err()
}

func (s *SQLStore) UpsertPicks(ctx context.Context, picks []models.ExpertPick) error {
	if len(picks) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, p := range picks {
			_, err := tx.ExecContext(ctx, s.rebind(`
				INSERT INTO picks (coupon_id, slot, source, expert, signs, rationale, confidence, fetched_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT (coupon_id, slot, source, expert) DO UPDATE SET
					signs = excluded.signs,
					rationale = excluded.rationale,
					confidence = excluded.confidence,
					fetched_at = excluded.fetched_at`),
				p.CouponID, p.Slot, p.Source, p.Expert, p.Signs, p.Rationale, p.Confidence, p.FetchedAt)
			if err != nil {
				return fmt.Errorf("upsert pick %s slot %d: %w", p.Source, p.Slot, err)
			}
		}
		return nil
	})
}

func (s *SQLStore) PicksByCoupon(ctx context.Context, couponID string) ([]models.ExpertPick, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT coupon_id, slot, source, expert, signs, rationale, confidence, fetched_at
		FROM picks WHERE coupon_id = ? ORDER BY slot, source, expert`), couponID)
	if err != nil {
		return nil, fmt.Errorf("picks by coupon: %w", err)
	}
	defer rows.Close()

	var picks []models.ExpertPick
	for rows.Next() {
		var p models.ExpertPick
		err := rows.Scan(&p.CouponID, &p.Slot, &p.Source, &p.Expert, &p.Signs, &p.Rationale, &p.Confidence, &p.FetchedAt)
		if err != nil {
			return nil, fmt.Errorf("scan pick: %w", err)
		}
		picks = append(picks, p)
	}
	return picks, rows.Err()
}

func (s *SQLStore) SaveAnalysis(ctx context.Context, analysis *models.CouponAnalysis) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM analyses WHERE coupon_id = ?`), analysis.CouponID); err != nil {
			return fmt.Errorf("clear previous analysis: %w", err)
		}
		for _, a := range analysis.Matches {
			_, err := tx.ExecContext(ctx, s.rebind(`
				INSERT INTO analyses (coupon_id, slot, match_name, has_odds, quote_count,
					odds_home, odds_draw, odds_away,
					prob_home, prob_draw, prob_away,
					value_home, value_draw, value_away,
					pct_home, pct_draw, pct_away,
					recommended, rationale, generated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
				analysis.CouponID, a.Slot, a.MatchName, a.HasOdds, a.QuoteCount,
				a.Odds[0], a.Odds[1], a.Odds[2],
				a.Probabilities[0], a.Probabilities[1], a.Probabilities[2],
				a.Values[0], a.Values[1], a.Values[2],
				a.Percentages[0], a.Percentages[1], a.Percentages[2],
				a.Recommended, a.Rationale, a.GeneratedAt)
			if err != nil {
				return fmt.Errorf("insert analysis slot %d: %w", a.Slot, err)
			}
		}
		return nil
	})
}

func (s *SQLStore) AnalysisByCoupon(ctx context.Context, couponID string) (*models.CouponAnalysis, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT coupon_id, slot, match_name, has_odds, quote_count,
			odds_home, odds_draw, odds_away,
			prob_home, prob_draw, prob_away,
			value_home, value_draw, value_away,
			pct_home, pct_draw, pct_away,
			recommended, rationale, generated_at
		FROM analyses WHERE coupon_id = ? ORDER BY slot`), couponID)
	if err != nil {
		return nil, fmt.Errorf("analysis by coupon: %w", err)
	}
	defer rows.Close()

	analysis := &models.CouponAnalysis{CouponID: couponID}
	for rows.Next() {
		var a models.MatchAnalysis
		err := rows.Scan(&a.CouponID, &a.Slot, &a.MatchName, &a.HasOdds, &a.QuoteCount,
			&a.Odds[0], &a.Odds[1], &a.Odds[2],
			&a.Probabilities[0], &a.Probabilities[1], &a.Probabilities[2],
			&a.Values[0], &a.Values[1], &a.Values[2],
			&a.Percentages[0], &a.Percentages[1], &a.Percentages[2],
			&a.Recommended, &a.Rationale, &a.GeneratedAt)
		if err != nil {
			return nil, fmt.Errorf("scan analysis: %w", err)
		}
		analysis.Matches = append(analysis.Matches, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(analysis.Matches) == 0 {
		return nil, ErrNotFound
	}
	analysis.GeneratedAt = analysis.Matches[0].GeneratedAt
	return analysis, nil
}

func (s *SQLStore) SaveRows(ctx context.Context, couponID string, rows []models.SuggestedRow) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM suggested_rows WHERE coupon_id = ?`), couponID); err != nil {
			return fmt.Errorf("clear previous rows: %w", err)
		}
		for _, r := range rows {
			choices, err := json.Marshal(r.Choices)
			if err != nil {
				return fmt.Errorf("encode choices for row %s: %w", r.Label, err)
			}
			_, err = tx.ExecContext(ctx, s.rebind(`
				INSERT INTO suggested_rows (id, coupon_id, label, choices, half_covers, cost_factor,
					expected_value, ev_per_cost, reasoning, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
				r.ID, couponID, r.Label, string(choices), r.HalfCovers, r.CostFactor,
				r.ExpectedValue, r.EVPerCost, r.Reasoning, r.CreatedAt)
			if err != nil {
				return fmt.Errorf("insert row %s: %w", r.Label, err)
			}
		}
		return nil
	})
}

func (s *SQLStore) RowsByCoupon(ctx context.Context, couponID string) ([]models.SuggestedRow, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT id, coupon_id, label, choices, half_covers, cost_factor,
			expected_value, ev_per_cost, reasoning, created_at
		FROM suggested_rows WHERE coupon_id = ? ORDER BY expected_value DESC, cost_factor ASC`), couponID)
	if err != nil {
		return nil, fmt.Errorf("rows by coupon: %w", err)
	}
	defer rows.Close()

	var suggested []models.SuggestedRow
	for rows.Next() {
		var r models.SuggestedRow
		var choices string
		err := rows.Scan(&r.ID, &r.CouponID, &r.Label, &choices, &r.HalfCovers, &r.CostFactor,
			&r.ExpectedValue, &r.EVPerCost, &r.Reasoning, &r.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan suggested row: %w", err)
		}
		if err := json.Unmarshal([]byte(choices), &r.Choices); err != nil {
			return nil, fmt.Errorf("decode choices for row %s: %w", r.Label, err)
		}
		suggested = append(suggested, r)
	}
	return suggested, rows.Err()
}

func (s *SQLStore) LastAlertValue(ctx context.Context, couponID string, slot int, sign string) (float64, time.Time, bool, error) {
	var value float64
	var announcedAt time.Time
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT value, announced_at FROM alerts
		WHERE coupon_id = ? AND slot = ? AND sign = ?`), couponID, slot, sign).
		Scan(&value, &announcedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, time.Time{}, false, nil
	}
	if err != nil {
		return 0, time.Time{}, false, fmt.Errorf("last alert value: %w", err)
	}
	return value, announcedAt, true, nil
}

func (s *SQLStore) SetLastAlertValue(ctx context.Context, couponID string, slot int, sign string, value float64, announcedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO alerts (coupon_id, slot, sign, value, announced_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (coupon_id, slot, sign) DO UPDATE SET
			value = excluded.value,
			announced_at = excluded.announced_at`),
		couponID, slot, sign, value, announcedAt)
	if err != nil {
		return fmt.Errorf("set last alert value: %w", err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
