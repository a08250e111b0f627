// Package feed fetches odds and expert picks from JSON feed endpoints.
//
// A feed exposes two endpoints relative to its base URL:
//
//	GET /quotes?week=34&year=2026
//	GET /picks?week=34&year=2026
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/sodersten/tipsvalue/internal/pkg/config"
	"github.com/sodersten/tipsvalue/internal/pkg/models"
	"github.com/sodersten/tipsvalue/internal/providers"
)

const (
	defaultTimeout = 10 * time.Second

	// maxResponseSize bounds feed responses; a coupon's quotes or picks
	// are a few KB, anything larger is a broken feed.
	maxResponseSize = 10 << 20
)

func init() {
	providers.RegisterOdds("feed", func(cfg config.ProviderConfig) (providers.OddsProvider, error) {
		return NewClient(cfg)
	})
	providers.RegisterExperts("feed", func(cfg config.ProviderConfig) (providers.ExpertProvider, error) {
		return NewClient(cfg)
	})
}

// Client reads a remote JSON feed of quotes and picks.
type Client struct {
	name       string
	baseURL    string
	httpClient *http.Client
}

func NewClient(cfg config.ProviderConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("feed provider %q: base_url is required", cfg.Name)
	}

	timeout := defaultTimeout
	if cfg.Timeout != "" {
		d, err := time.ParseDuration(cfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("feed provider %q: parse timeout: %w", cfg.Name, err)
		}
		timeout = d
	}

	name := cfg.Name
	if name == "" {
		name = "feed"
	}

	return &Client{
		name:       name,
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

func (c *Client) Name() string {
	return c.name
}

type quotePayload struct {
	Slot      int     `json:"slot"`
	Bookmaker string  `json:"bookmaker"`
	Home      float64 `json:"home"`
	Draw      float64 `json:"draw"`
	Away      float64 `json:"away"`
}

type quotesResponse struct {
	Quotes []quotePayload `json:"quotes"`
}

type pickPayload struct {
	Slot       int     `json:"slot"`
	Expert     string  `json:"expert"`
	Signs      string  `json:"signs"`
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"rationale"`
}

type picksResponse struct {
	Picks []pickPayload `json:"picks"`
}

// FetchQuotes implements providers.OddsProvider.
func (c *Client) FetchQuotes(ctx context.Context, coupon *models.Coupon) ([]models.OddsQuote, error) {
	var resp quotesResponse
	if err := c.getJSON(ctx, "/quotes", coupon, &resp); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	quotes := make([]models.OddsQuote, 0, len(resp.Quotes))
	for _, q := range resp.Quotes {
		bookmaker := q.Bookmaker
		if bookmaker == "" {
			bookmaker = c.name
		}
		quotes = append(quotes, models.OddsQuote{
			CouponID:  coupon.ID,
			Slot:      q.Slot,
			Bookmaker: bookmaker,
			Odds:      [models.OutcomeCount]float64{q.Home, q.Draw, q.Away},
			FetchedAt: now,
		})
	}
	return quotes, nil
}

// FetchPicks implements providers.ExpertProvider.
func (c *Client) FetchPicks(ctx context.Context, coupon *models.Coupon) ([]models.ExpertPick, error) {
	var resp picksResponse
	if err := c.getJSON(ctx, "/picks", coupon, &resp); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	picks := make([]models.ExpertPick, 0, len(resp.Picks))
	for _, p := range resp.Picks {
		picks = append(picks, models.ExpertPick{
			CouponID:   coupon.ID,
			Slot:       p.Slot,
			Source:     c.name,
			Expert:     p.Expert,
			Signs:      p.Signs,
			Confidence: p.Confidence,
			Rationale:  p.Rationale,
			FetchedAt:  now,
		})
	}
	return picks, nil
}

func (c *Client) getJSON(ctx context.Context, path string, coupon *models.Coupon, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	q := req.URL.Query()
	q.Set("week", strconv.Itoa(coupon.Week))
	q.Set("year", strconv.Itoa(coupon.Year))
	req.URL.RawQuery = q.Encode()

	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code %d from %s", resp.StatusCode, req.URL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("failed to read body: %w", err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}
