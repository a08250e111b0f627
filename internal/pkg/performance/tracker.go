package performance

import (
	"sync"
	"time"
)

// Tracker tracks pipeline metrics for refresh runs.
type Tracker struct {
	mu sync.RWMutex

	// Overall counters
	TotalRuns   int
	FailedRuns  int
	TotalQuotes int
	TotalPicks  int
	TotalRows   int
	TotalAlerts int

	// Cumulative timing per stage
	TotalDuration   time.Duration
	FetchDuration   time.Duration
	ComputeDuration time.Duration
	PersistDuration time.Duration
	NotifyDuration  time.Duration

	// Last run
	LastRunAt time.Time
	LastError string
}

var globalTracker = &Tracker{}

// GetTracker returns the process-wide pipeline tracker.
func GetTracker() *Tracker {
	return globalTracker
}

func NewTracker() *Tracker {
	return &Tracker{}
}

// Reset resets all metrics.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	*t = Tracker{}
}

// RecordRun records one completed refresh.
func (t *Tracker) RecordRun(fetch, compute, persist, notify, total time.Duration, quotes, picks, rows, alerts int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.TotalRuns++
	t.TotalQuotes += quotes
	t.TotalPicks += picks
	t.TotalRows += rows
	t.TotalAlerts += alerts
	t.TotalDuration += total
	t.FetchDuration += fetch
	t.ComputeDuration += compute
	t.PersistDuration += persist
	t.NotifyDuration += notify
	t.LastRunAt = time.Now().UTC()
	t.LastError = ""
}

// RecordFailure records a refresh that did not complete.
func (t *Tracker) RecordFailure(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.TotalRuns++
	t.FailedRuns++
	t.LastRunAt = time.Now().UTC()
	if err != nil {
		t.LastError = err.Error()
	}
}

// MetricsResponse represents the JSON response structure for /metrics.
type MetricsResponse struct {
	Overall struct {
		TotalRuns   int `json:"total_runs"`
		FailedRuns  int `json:"failed_runs"`
		TotalQuotes int `json:"total_quotes"`
		TotalPicks  int `json:"total_picks"`
		TotalRows   int `json:"total_rows"`
		TotalAlerts int `json:"total_alerts"`
	} `json:"overall"`

	Timing struct {
		AvgTotal   string `json:"avg_total"`
		AvgFetch   string `json:"avg_fetch"`
		AvgCompute string `json:"avg_compute"`
		AvgPersist string `json:"avg_persist"`
		AvgNotify  string `json:"avg_notify"`

		FetchPercent   float64 `json:"fetch_percent"`
		ComputePercent float64 `json:"compute_percent"`
		PersistPercent float64 `json:"persist_percent"`
		NotifyPercent  float64 `json:"notify_percent"`
	} `json:"timing"`

	LastRunAt string `json:"last_run_at,omitempty"`
	LastError string `json:"last_error,omitempty"`
}

// GetMetrics returns structured metrics for the JSON API.
func (t *Tracker) GetMetrics() MetricsResponse {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var resp MetricsResponse

	resp.Overall.TotalRuns = t.TotalRuns
	resp.Overall.FailedRuns = t.FailedRuns
	resp.Overall.TotalQuotes = t.TotalQuotes
	resp.Overall.TotalPicks = t.TotalPicks
	resp.Overall.TotalRows = t.TotalRows
	resp.Overall.TotalAlerts = t.TotalAlerts

	completed := t.TotalRuns - t.FailedRuns
	if completed > 0 {
		n := time.Duration(completed)
		resp.Timing.AvgTotal = (t.TotalDuration / n).String()
		resp.Timing.AvgFetch = (t.FetchDuration / n).String()
		resp.Timing.AvgCompute = (t.ComputeDuration / n).String()
		resp.Timing.AvgPersist = (t.PersistDuration / n).String()
		resp.Timing.AvgNotify = (t.NotifyDuration / n).String()

		if t.TotalDuration > 0 {
			resp.Timing.FetchPercent = float64(t.FetchDuration) / float64(t.TotalDuration) * 100
			resp.Timing.ComputePercent = float64(t.ComputeDuration) / float64(t.TotalDuration) * 100
			resp.Timing.PersistPercent = float64(t.PersistDuration) / float64(t.TotalDuration) * 100
			resp.Timing.NotifyPercent = float64(t.NotifyDuration) / float64(t.TotalDuration) * 100
		}
	}

	if !t.LastRunAt.IsZero() {
		resp.LastRunAt = t.LastRunAt.Format(time.RFC3339)
	}
	resp.LastError = t.LastError

	return resp
}
