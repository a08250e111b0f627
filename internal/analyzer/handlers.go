package analyzer

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/sodersten/tipsvalue/internal/pkg/models"
	"github.com/sodersten/tipsvalue/internal/pkg/storage"
)

// RegisterHTTP registers analyzer endpoints onto mux.
func (a *Analyzer) RegisterHTTP(mux *http.ServeMux) {
	mux.HandleFunc("/status", a.handleStatus)
	mux.HandleFunc("/metrics", a.handleMetrics)
	mux.HandleFunc("/api/coupons", a.handleListCoupons)
	mux.HandleFunc("/api/coupons/", a.handleCouponSubtree)
	mux.HandleFunc("/api/refresh", a.handleRefresh)
	mux.HandleFunc("/api/async/start", a.handleStartAsync)
	mux.HandleFunc("/api/async/stop", a.handleStopAsync)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// handleStatus returns analyzer status information
func (a *Analyzer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed, use GET"})
		return
	}

	oddsNames := make([]string, 0, len(a.odds))
	for _, p := range a.odds {
		oddsNames = append(oddsNames, p.Name())
	}
	expertNames := make([]string, 0, len(a.experts))
	for _, p := range a.experts {
		expertNames = append(expertNames, p.Name())
	}

	mode := "on-demand"
	if a.IsAsyncRunning() {
		mode = "async"
	}

	status := map[string]any{
		"status":           "ok",
		"storage":          a.cfg.Storage.Driver,
		"cache_enabled":    a.cache != nil,
		"notifier_enabled": a.notifier != nil,
		"odds_providers":   oddsNames,
		"expert_providers": expertNames,
		"mode":             mode,
		"async_running":    a.IsAsyncRunning(),
	}
	if stats := a.LastStats(); stats != nil {
		status["last_refresh"] = stats
	}

	writeJSON(w, http.StatusOK, status)
}

// handleMetrics returns pipeline performance metrics
func (a *Analyzer) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed, use GET"})
		return
	}
	writeJSON(w, http.StatusOK, a.tracker.GetMetrics())
}

func (a *Analyzer) handleListCoupons(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed, use GET"})
		return
	}

	coupons, err := a.store.ListCoupons(r.Context())
	if err != nil {
		slog.Error("Failed to list coupons", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list coupons", "details": err.Error()})
		return
	}
	if coupons == nil {
		coupons = []models.Coupon{}
	}
	writeJSON(w, http.StatusOK, coupons)
}

// handleCouponSubtree serves /api/coupons/{id} and its analysis, rows and
// consensus subresources. The id "active" resolves to the active coupon.
func (a *Analyzer) handleCouponSubtree(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed, use GET"})
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/coupons/")
	id, sub, _ := strings.Cut(rest, "/")
	if id == "" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "coupon id missing"})
		return
	}

	ctx := r.Context()
	if id == "active" {
		coupon, err := a.store.ActiveCoupon(ctx)
		if err != nil {
			a.writeStoreError(w, err, "no active coupon")
			return
		}
		id = coupon.ID
	}

	switch sub {
	case "":
		coupon, err := a.store.CouponByID(ctx, id)
		if err != nil {
			a.writeStoreError(w, err, "coupon not found")
			return
		}
		writeJSON(w, http.StatusOK, coupon)
	case "analysis":
		analysis, err := a.store.AnalysisByCoupon(ctx, id)
		if err != nil {
			a.writeStoreError(w, err, "no analysis for coupon")
			return
		}
		writeJSON(w, http.StatusOK, analysis)
	case "rows":
		a.serveRows(w, r, id)
	case "consensus":
		a.serveConsensus(w, r, id)
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown resource"})
	}
}

func (a *Analyzer) serveRows(w http.ResponseWriter, r *http.Request, couponID string) {
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			if n > 50 {
				n = 50
			}
			limit = n
		}
	}

	rows, err := a.store.RowsByCoupon(r.Context(), couponID)
	if err != nil {
		slog.Error("Failed to load rows", "coupon", couponID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load rows", "details": err.Error()})
		return
	}
	if len(rows) > limit {
		rows = rows[:limit]
	}
	if rows == nil {
		rows = []models.SuggestedRow{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (a *Analyzer) serveConsensus(w http.ResponseWriter, r *http.Request, couponID string) {
	ctx := r.Context()

	coupon, err := a.store.CouponByID(ctx, couponID)
	if err != nil {
		a.writeStoreError(w, err, "coupon not found")
		return
	}

	picks, err := a.store.PicksByCoupon(ctx, couponID)
	if err != nil {
		slog.Error("Failed to load picks", "coupon", couponID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load picks", "details": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, ComputeConsensus(coupon, picks, a.cfg.Analyzer.SourceWeights))
}

// handleRefresh runs one refresh now, optionally for ?coupon={id}.
func (a *Analyzer) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed, use POST"})
		return
	}

	stats, err := a.Refresh(r.Context(), r.URL.Query().Get("coupon"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no coupon to refresh", "details": err.Error()})
			return
		}
		slog.Error("Manual refresh failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "refresh failed", "details": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleStartAsync starts periodic refreshing
func (a *Analyzer) handleStartAsync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed, use POST"})
		return
	}

	if a.IsAsyncRunning() {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "already_running",
			"message": "Async refreshing is already running",
		})
		return
	}

	if err := a.StartAsync(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":   "failed to start async refreshing",
			"message": err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "started",
		"message": "Async refreshing started successfully",
	})
}

// handleStopAsync stops periodic refreshing
func (a *Analyzer) handleStopAsync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed, use POST"})
		return
	}

	if !a.IsAsyncRunning() {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "already_stopped",
			"message": "Async refreshing is not running",
		})
		return
	}

	a.StopAsync()

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "stopped",
		"message": "Async refreshing stopped successfully",
	})
}

func (a *Analyzer) writeStoreError(w http.ResponseWriter, err error, notFoundMsg string) {
	if errors.Is(err, storage.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": notFoundMsg})
		return
	}
	slog.Error("Storage read failed", "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "storage error", "details": err.Error()})
}
