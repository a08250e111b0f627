package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sodersten/tipsvalue/internal/pkg/config"
	"github.com/sodersten/tipsvalue/internal/pkg/performance"
	"github.com/sodersten/tipsvalue/internal/pkg/storage"
	"github.com/sodersten/tipsvalue/internal/pkg/validation"
	"github.com/sodersten/tipsvalue/internal/providers"
)

// notifier receives pipeline notifications. Satisfied by TelegramNotifier;
// a nil field disables notifications entirely.
type notifier interface {
	SendValueAlert(ctx context.Context, alert *ValueAlert) error
	SendRefreshSummary(ctx context.Context, stats *RefreshStats) error
	Stop()
}

// Analyzer runs the coupon analysis pipeline: fetch quotes and picks from
// providers, compute outcome values, generate suggested rows, persist the
// results, and notify. It serves results over HTTP and can refresh
// periodically in async mode.
type Analyzer struct {
	cfg       *config.Config
	store     storage.Store
	cache     *storage.QuoteCache
	odds      []providers.OddsProvider
	experts   []providers.ExpertProvider
	notifier  notifier
	validator *validation.Validator
	sanitizer *validation.Sanitizer
	tracker   *performance.Tracker

	asyncTicker  *time.Ticker
	asyncMu      sync.RWMutex
	asyncStopped bool
	asyncCtx     context.Context
	asyncCancel  context.CancelFunc

	// refreshMu serializes refreshes; a tick arriving mid-refresh is skipped.
	refreshMu sync.Mutex

	statsMu   sync.RWMutex
	lastStats *RefreshStats
}

func New(cfg *config.Config, store storage.Store, cache *storage.QuoteCache, odds []providers.OddsProvider, experts []providers.ExpertProvider) *Analyzer {
	a := &Analyzer{
		cfg:       cfg,
		store:     store,
		cache:     cache,
		odds:      odds,
		experts:   experts,
		validator: validation.NewValidator(),
		sanitizer: validation.NewSanitizer(),
		tracker:   performance.GetTracker(),
	}

	if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != 0 {
		if tn := NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID); tn != nil {
			a.notifier = tn
		}
	}

	return a
}

// Start runs the analyzer until ctx is cancelled. Async refreshing starts
// when enabled in config; otherwise the service only refreshes on demand.
func (a *Analyzer) Start(ctx context.Context) error {
	if a.cfg.Analyzer.AsyncEnabled {
		if err := a.StartAsync(); err != nil {
			return fmt.Errorf("start async refresh: %w", err)
		}
	} else {
		slog.Info("analyzer: async refresh disabled, running in on-demand mode")
	}

	<-ctx.Done()

	a.StopAsync()
	if a.notifier != nil {
		a.notifier.Stop()
	}
	return nil
}

// StartAsync starts or restarts the periodic refresh loop.
func (a *Analyzer) StartAsync() error {
	a.asyncMu.Lock()
	defer a.asyncMu.Unlock()

	if a.asyncTicker != nil && !a.asyncStopped {
		slog.Info("analyzer: async refresh is already running")
		return nil
	}

	if a.asyncCancel != nil {
		a.asyncCancel()
	}
	a.asyncCtx, a.asyncCancel = context.WithCancel(context.Background())

	interval, err := time.ParseDuration(a.cfg.Analyzer.AsyncInterval)
	if err != nil || interval <= 0 {
		interval = 10 * time.Minute
		slog.Warn("analyzer: invalid async_interval, using default 10m")
	}

	a.asyncStopped = false
	if a.asyncTicker != nil {
		a.asyncTicker.Stop()
	}
	a.asyncTicker = time.NewTicker(interval)

	slog.Info("analyzer: starting async refresh", "interval", interval)
	go a.runAsync(a.asyncCtx)

	return nil
}

// runAsync drives periodic refreshes. The first refresh runs immediately.
func (a *Analyzer) runAsync(ctx context.Context) {
	a.tryRefresh(ctx)

	for {
		a.asyncMu.RLock()
		stopped := a.asyncStopped
		a.asyncMu.RUnlock()
		if stopped {
			slog.Info("analyzer: async refresh stopped")
			return
		}

		select {
		case <-ctx.Done():
			slog.Info("analyzer: stopping async refresh")
			return
		case <-a.asyncTicker.C:
			a.asyncMu.RLock()
			stopped = a.asyncStopped
			a.asyncMu.RUnlock()
			if stopped {
				slog.Info("analyzer: async refresh stopped")
				return
			}
			a.tryRefresh(ctx)
		}
	}
}

// tryRefresh runs a scheduled refresh unless one is already in flight.
func (a *Analyzer) tryRefresh(ctx context.Context) {
	if !a.refreshMu.TryLock() {
		slog.Info("analyzer: refresh already in flight, skipping tick")
		return
	}
	defer a.refreshMu.Unlock()

	if _, err := a.refreshLocked(ctx, "", "scheduled"); err != nil {
		slog.Error("analyzer: scheduled refresh failed", "error", err)
	}
}

// Refresh runs one refresh now. An empty couponID refreshes the active
// coupon. Blocks until any in-flight refresh finishes.
func (a *Analyzer) Refresh(ctx context.Context, couponID string) (*RefreshStats, error) {
	a.refreshMu.Lock()
	defer a.refreshMu.Unlock()
	return a.refreshLocked(ctx, couponID, "manual")
}

// StopAsync stops the periodic refresh loop.
func (a *Analyzer) StopAsync() {
	a.asyncMu.Lock()
	defer a.asyncMu.Unlock()

	if !a.asyncStopped && a.asyncTicker != nil {
		a.asyncStopped = true
		a.asyncTicker.Stop()
		if a.asyncCancel != nil {
			a.asyncCancel()
		}
		slog.Info("analyzer: async refresh stopped")
	}
}

// IsAsyncRunning reports whether the periodic refresh loop is active.
func (a *Analyzer) IsAsyncRunning() bool {
	a.asyncMu.RLock()
	defer a.asyncMu.RUnlock()
	return a.asyncTicker != nil && !a.asyncStopped
}

// LastStats returns the stats of the most recent completed refresh, or nil.
func (a *Analyzer) LastStats() *RefreshStats {
	a.statsMu.RLock()
	defer a.statsMu.RUnlock()
	return a.lastStats
}
