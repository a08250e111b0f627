package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sodersten/tipsvalue/internal/pkg/models"
	"github.com/sodersten/tipsvalue/internal/providers"
)

// RefreshStats summarizes one refresh run.
type RefreshStats struct {
	CouponID       string    `json:"coupon_id"`
	Week           int       `json:"week"`
	Year           int       `json:"year"`
	Trigger        string    `json:"trigger"` // "manual" or "scheduled"
	Quotes         int       `json:"quotes"`
	QuotesRejected int       `json:"quotes_rejected"`
	Picks          int       `json:"picks"`
	PicksRejected  int       `json:"picks_rejected"`
	CacheHits      int       `json:"cache_hits"`
	ProviderErrors []string  `json:"provider_errors,omitempty"`
	Matches        int       `json:"matches_analyzed"`
	Rows           int       `json:"rows_generated"`
	TopRowEV       float64   `json:"top_row_ev"`
	Alerts         int       `json:"alerts_sent"`
	Duration       string    `json:"duration"`
	RefreshedAt    time.Time `json:"refreshed_at"`
}

// refreshLocked runs the pipeline. Caller holds refreshMu.
func (a *Analyzer) refreshLocked(ctx context.Context, couponID, trigger string) (*RefreshStats, error) {
	started := time.Now()

	var coupon *models.Coupon
	var err error
	if couponID != "" {
		coupon, err = a.store.CouponByID(ctx, couponID)
	} else {
		coupon, err = a.store.ActiveCoupon(ctx)
	}
	if err != nil {
		a.tracker.RecordFailure(err)
		return nil, fmt.Errorf("load coupon: %w", err)
	}

	slog.Info("analyzer: refresh started", "coupon", coupon.ID, "week", coupon.Week, "year", coupon.Year, "trigger", trigger)
	stats := &RefreshStats{CouponID: coupon.ID, Week: coupon.Week, Year: coupon.Year, Trigger: trigger}

	fetchStart := time.Now()
	quotes := a.fetchQuotes(ctx, coupon, stats)
	picks := a.fetchPicks(ctx, coupon, stats)
	fetchDur := time.Since(fetchStart)

	persistStart := time.Now()
	if len(quotes) > 0 {
		if err := a.store.UpsertQuotes(ctx, quotes); err != nil {
			a.tracker.RecordFailure(err)
			return nil, fmt.Errorf("store quotes: %w", err)
		}
	}
	if len(picks) > 0 {
		if err := a.store.UpsertPicks(ctx, picks); err != nil {
			a.tracker.RecordFailure(err)
			return nil, fmt.Errorf("store picks: %w", err)
		}
	}
	persistDur := time.Since(persistStart)

	// Analyze over everything known for the coupon, not just this fetch:
	// quotes from previous refreshes still count.
	allQuotes, err := a.store.QuotesByCoupon(ctx, coupon.ID)
	if err != nil {
		a.tracker.RecordFailure(err)
		return nil, fmt.Errorf("load quotes: %w", err)
	}

	computeStart := time.Now()
	analyses := AnalyzeCoupon(coupon, allQuotes, a.cfg.Analyzer.MinValueThreshold)
	rows, rowsErr := GenerateRows(analyses, RowParams{
		MaxHalfCovers:     a.cfg.Analyzer.MaxHalfCovers,
		MinValueThreshold: a.cfg.Analyzer.MinValueThreshold,
		AllowPartial:      a.cfg.Analyzer.AllowPartial,
	})
	computeDur := time.Since(computeStart)
	if rowsErr != nil {
		slog.Warn("analyzer: row generation skipped", "coupon", coupon.ID, "error", rowsErr)
	}

	persistStart = time.Now()
	analysis := &models.CouponAnalysis{CouponID: coupon.ID, Matches: analyses, GeneratedAt: time.Now().UTC()}
	if err := a.store.SaveAnalysis(ctx, analysis); err != nil {
		a.tracker.RecordFailure(err)
		return nil, fmt.Errorf("store analysis: %w", err)
	}
	if rowsErr == nil {
		if err := a.store.SaveRows(ctx, coupon.ID, rows); err != nil {
			a.tracker.RecordFailure(err)
			return nil, fmt.Errorf("store rows: %w", err)
		}
	}
	persistDur += time.Since(persistStart)

	notifyStart := time.Now()
	alerts := a.announceValuePicks(ctx, coupon, analyses)
	notifyDur := time.Since(notifyStart)

	stats.Matches = len(analyses)
	stats.Rows = len(rows)
	if len(rows) > 0 {
		stats.TopRowEV = rows[0].ExpectedValue
	}
	stats.Alerts = alerts
	stats.Duration = time.Since(started).String()
	stats.RefreshedAt = time.Now().UTC()

	a.tracker.RecordRun(fetchDur, computeDur, persistDur, notifyDur, time.Since(started),
		stats.Quotes, stats.Picks, stats.Rows, alerts)

	a.statsMu.Lock()
	a.lastStats = stats
	a.statsMu.Unlock()

	slog.Info("analyzer: refresh complete",
		"coupon", coupon.ID,
		"quotes", stats.Quotes,
		"picks", stats.Picks,
		"rows", stats.Rows,
		"alerts", alerts,
		"duration", stats.Duration)

	// Manual refreshes always get a summary; scheduled ones only when
	// something was worth alerting on.
	if a.notifier != nil && (trigger == "manual" || alerts > 0) {
		if err := a.notifier.SendRefreshSummary(ctx, stats); err != nil {
			slog.Warn("analyzer: failed to queue refresh summary", "error", err)
		}
	}

	return stats, nil
}

func (a *Analyzer) fetchTimeout() time.Duration {
	d, err := time.ParseDuration(a.cfg.Analyzer.FetchTimeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// fetchQuotes fans out to all odds providers. A provider failing degrades
// the refresh instead of failing it.
func (a *Analyzer) fetchQuotes(ctx context.Context, coupon *models.Coupon, stats *RefreshStats) []models.OddsQuote {
	fetchCtx, cancel := context.WithTimeout(ctx, a.fetchTimeout())
	defer cancel()

	var mu sync.Mutex
	var out []models.OddsQuote

	var g errgroup.Group
	for _, p := range a.odds {
		g.Go(func() error {
			quotes, fromCache, err := a.providerQuotes(fetchCtx, p, coupon)
			if err != nil {
				slog.Warn("analyzer: odds provider failed", "provider", p.Name(), "error", err)
				mu.Lock()
				stats.ProviderErrors = append(stats.ProviderErrors, fmt.Sprintf("%s: %v", p.Name(), err))
				mu.Unlock()
				return nil
			}
			kept, rejected := a.cleanQuotes(coupon, quotes)
			mu.Lock()
			out = append(out, kept...)
			stats.QuotesRejected += rejected
			if fromCache {
				stats.CacheHits++
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	stats.Quotes = len(out)
	return out
}

// providerQuotes reads through the quote cache when one is configured.
func (a *Analyzer) providerQuotes(ctx context.Context, p providers.OddsProvider, coupon *models.Coupon) ([]models.OddsQuote, bool, error) {
	if a.cache != nil {
		cached, ok, err := a.cache.GetQuotes(ctx, coupon.ID, p.Name())
		if err != nil {
			slog.Warn("analyzer: quote cache read failed", "provider", p.Name(), "error", err)
		} else if ok {
			return cached, true, nil
		}
	}

	quotes, err := p.FetchQuotes(ctx, coupon)
	if err != nil {
		return nil, false, err
	}

	if a.cache != nil && len(quotes) > 0 {
		if err := a.cache.StoreQuotes(ctx, coupon.ID, p.Name(), quotes); err != nil {
			slog.Warn("analyzer: quote cache write failed", "provider", p.Name(), "error", err)
		}
	}
	return quotes, false, nil
}

func (a *Analyzer) fetchPicks(ctx context.Context, coupon *models.Coupon, stats *RefreshStats) []models.ExpertPick {
	fetchCtx, cancel := context.WithTimeout(ctx, a.fetchTimeout())
	defer cancel()

	var mu sync.Mutex
	var out []models.ExpertPick

	var g errgroup.Group
	for _, p := range a.experts {
		g.Go(func() error {
			picks, err := p.FetchPicks(fetchCtx, coupon)
			if err != nil {
				slog.Warn("analyzer: expert provider failed", "provider", p.Name(), "error", err)
				mu.Lock()
				stats.ProviderErrors = append(stats.ProviderErrors, fmt.Sprintf("%s: %v", p.Name(), err))
				mu.Unlock()
				return nil
			}
			kept, rejected := a.cleanPicks(coupon, picks)
			mu.Lock()
			out = append(out, kept...)
			stats.PicksRejected += rejected
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	stats.Picks = len(out)
	return out
}

// cleanQuotes sanitizes and validates provider quotes, dropping records
// that reference unknown matches or fail validation.
func (a *Analyzer) cleanQuotes(coupon *models.Coupon, quotes []models.OddsQuote) ([]models.OddsQuote, int) {
	kept := make([]models.OddsQuote, 0, len(quotes))
	rejected := 0
	for i := range quotes {
		q := quotes[i]
		a.sanitizer.SanitizeQuote(&q)
		q.CouponID = coupon.ID
		if _, ok := coupon.MatchBySlot(q.Slot); !ok {
			slog.Warn("analyzer: quote references unknown match", "bookmaker", q.Bookmaker, "slot", q.Slot)
			rejected++
			continue
		}
		if err := a.validator.ValidateQuote(&q); err != nil {
			slog.Warn("analyzer: rejected quote", "bookmaker", q.Bookmaker, "slot", q.Slot, "error", err)
			rejected++
			continue
		}
		kept = append(kept, q)
	}
	return kept, rejected
}

func (a *Analyzer) cleanPicks(coupon *models.Coupon, picks []models.ExpertPick) ([]models.ExpertPick, int) {
	kept := make([]models.ExpertPick, 0, len(picks))
	rejected := 0
	for i := range picks {
		p := picks[i]
		a.sanitizer.SanitizePick(&p)
		p.CouponID = coupon.ID
		if _, ok := coupon.MatchBySlot(p.Slot); !ok {
			slog.Warn("analyzer: pick references unknown match", "source", p.Source, "slot", p.Slot)
			rejected++
			continue
		}
		if err := a.validator.ValidatePick(&p); err != nil {
			slog.Warn("analyzer: rejected pick", "source", p.Source, "slot", p.Slot, "error", err)
			rejected++
			continue
		}
		kept = append(kept, p)
	}
	return kept, rejected
}

// ValueAlert is the payload for a value-pick notification.
type ValueAlert struct {
	CouponID    string
	Week        int
	Year        int
	Slot        int
	MatchName   string
	Sign        string
	Value       float64
	Probability float64
	PublicPct   float64
	Reason      string
}

// announceValuePicks sends alerts for outcomes whose value clears the alert
// threshold, applying the cooldown policy. Returns the number sent.
func (a *Analyzer) announceValuePicks(ctx context.Context, coupon *models.Coupon, analyses []models.MatchAnalysis) int {
	if a.notifier == nil {
		return 0
	}

	threshold := a.cfg.Analyzer.AlertThreshold
	cooldown := time.Duration(a.cfg.Analyzer.AlertCooldownMinutes) * time.Minute
	minIncrease := a.cfg.Analyzer.AlertMinIncrease

	sent := 0
	now := time.Now().UTC()
	for i := range analyses {
		ma := &analyses[i]
		if !ma.HasOdds {
			continue
		}
		outcome, value := ma.BestValue()
		if value < threshold {
			continue
		}
		sign := outcome.Sign()

		last, lastAt, found, err := a.store.LastAlertValue(ctx, coupon.ID, ma.Slot, sign)
		if err != nil {
			slog.Warn("analyzer: alert lookup failed", "slot", ma.Slot, "error", err)
			// Better a duplicate alert than a missed one.
			found = false
		}
		send, reason := shouldAnnounce(value, threshold, last, lastAt, found, now, cooldown, minIncrease)
		if !send {
			slog.Debug("analyzer: alert suppressed", "slot", ma.Slot, "sign", sign, "value", value, "reason", reason)
			continue
		}

		alert := &ValueAlert{
			CouponID:    coupon.ID,
			Week:        coupon.Week,
			Year:        coupon.Year,
			Slot:        ma.Slot,
			MatchName:   ma.MatchName,
			Sign:        sign,
			Value:       value,
			Probability: ma.Probabilities[outcome],
			PublicPct:   ma.Percentages[outcome],
			Reason:      reason,
		}
		if err := a.notifier.SendValueAlert(ctx, alert); err != nil {
			slog.Warn("analyzer: failed to queue value alert", "slot", ma.Slot, "error", err)
			continue
		}
		if err := a.store.SetLastAlertValue(ctx, coupon.ID, ma.Slot, sign, value, now); err != nil {
			slog.Warn("analyzer: failed to record alert", "slot", ma.Slot, "error", err)
		}
		sent++
		slog.Info("analyzer: value alert sent", "match", ma.MatchName, "sign", sign, "value", value, "reason", reason)
	}
	return sent
}

// shouldAnnounce decides whether a value pick is announced, given the last
// announced value for the same (coupon, match, sign).
func shouldAnnounce(value, threshold, last float64, lastAt time.Time, found bool, now time.Time, cooldown time.Duration, minIncrease float64) (bool, string) {
	if !found {
		return true, "new"
	}
	if last < threshold {
		return true, "crossed threshold"
	}
	if now.Sub(lastAt) > cooldown {
		return true, "cooldown expired"
	}
	if value-last >= minIncrease {
		return true, "value increased"
	}
	return false, "inside cooldown"
}
