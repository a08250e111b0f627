package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sodersten/tipsvalue/internal/pkg/models"
)

// Ensure MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)

type alertRecord struct {
	value       float64
	announcedAt time.Time
}

// MemoryStore is an in-memory Store. Used in tests and as a fallback when
// no database is reachable; contents vanish on restart.
type MemoryStore struct {
	mu       sync.RWMutex
	coupons  map[string]models.Coupon
	quotes   map[string]map[string]models.OddsQuote
	picks    map[string]map[string]models.ExpertPick
	analyses map[string]models.CouponAnalysis
	rows     map[string][]models.SuggestedRow
	alerts   map[string]alertRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		coupons:  make(map[string]models.Coupon),
		quotes:   make(map[string]map[string]models.OddsQuote),
		picks:    make(map[string]map[string]models.ExpertPick),
		analyses: make(map[string]models.CouponAnalysis),
		rows:     make(map[string][]models.SuggestedRow),
		alerts:   make(map[string]alertRecord),
	}
}

func (s *MemoryStore) SaveCoupon(_ context.Context, coupon *models.Coupon) error {
	if coupon.ID == "" {
		return fmt.Errorf("coupon ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if coupon.CreatedAt.IsZero() {
		coupon.CreatedAt = now
	}
	coupon.UpdatedAt = now

	if coupon.Active {
		for id, c := range s.coupons {
			if id != coupon.ID && c.Active {
				c.Active = false
				c.UpdatedAt = now
				s.coupons[id] = c
			}
		}
	}

	stored := *coupon
	stored.Matches = make([]models.Match, len(coupon.Matches))
	copy(stored.Matches, coupon.Matches)
	for i := range stored.Matches {
		stored.Matches[i].CouponID = coupon.ID
		// Keep a previously stored result when the incoming match has none.
		if stored.Matches[i].Result == "" {
			if prev, ok := s.coupons[coupon.ID]; ok {
				if m, found := prev.MatchBySlot(stored.Matches[i].Slot); found {
					stored.Matches[i].Result = m.Result
				}
			}
		}
	}
	s.coupons[coupon.ID] = stored
	return nil
}

func (s *MemoryStore) CouponByID(_ context.Context, id string) (*models.Coupon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.coupons[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyCoupon(c), nil
}

func (s *MemoryStore) ActiveCoupon(_ context.Context) (*models.Coupon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.coupons {
		if c.Active {
			return copyCoupon(c), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) ListCoupons(_ context.Context) ([]models.Coupon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	coupons := make([]models.Coupon, 0, len(s.coupons))
	for _, c := range s.coupons {
		c.Matches = nil
		coupons = append(coupons, c)
	}
	sort.Slice(coupons, func(i, j int) bool {
		if coupons[i].Year != coupons[j].Year {
			return coupons[i].Year > coupons[j].Year
		}
		return coupons[i].Week > coupons[j].Week
	})
	return coupons, nil
}

func (s *MemoryStore) SetMatchResult(_ context.Context, couponID string, slot int, result string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.coupons[couponID]
	if !ok {
		return fmt.Errorf("coupon %s: %w", couponID, ErrNotFound)
	}
	for i := range c.Matches {
		if c.Matches[i].Slot == slot {
			c.Matches[i].Result = result
			s.coupons[couponID] = c
			return nil
		}
	}
	return fmt.Errorf("match %s/%d: %w", couponID, slot, ErrNotFound)
}

func (s *MemoryStore) UpsertQuotes(_ context.Context, quotes []models.OddsQuote) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, q := range quotes {
		byKey, ok := s.quotes[q.CouponID]
		if !ok {
			byKey = make(map[string]models.OddsQuote)
			s.quotes[q.CouponID] = byKey
		}
		byKey[fmt.Sprintf("%d|%s", q.Slot, q.Bookmaker)] = q
	}
	return nil
}

func (s *MemoryStore) QuotesByCoupon(_ context.Context, couponID string) ([]models.OddsQuote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var quotes []models.OddsQuote
	for _, q := range s.quotes[couponID] {
		quotes = append(quotes, q)
	}
	sort.Slice(quotes, func(i, j int) bool {
		if quotes[i].Slot != quotes[j].Slot {
			return quotes[i].Slot < quotes[j].Slot
		}
		return quotes[i].Bookmaker < quotes[j].Bookmaker
	})
	return quotes, nil
}

func (s *MemoryStore) UpsertPicks(_ context.Context, picks []models.ExpertPick) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range picks {
		byKey, ok := s.picks[p.CouponID]
		if !ok {
			byKey = make(map[string]models.ExpertPick)
			s.picks[p.CouponID] = byKey
		}
		byKey[fmt.Sprintf("%d|%s|%s", p.Slot, p.Source, p.Expert)] = p
	}
	return nil
}

func (s *MemoryStore) PicksByCoupon(_ context.Context, couponID string) ([]models.ExpertPick, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var picks []models.ExpertPick
	for _, p := range s.picks[couponID] {
		picks = append(picks, p)
	}
	sort.Slice(picks, func(i, j int) bool {
		if picks[i].Slot != picks[j].Slot {
			return picks[i].Slot < picks[j].Slot
		}
		if picks[i].Source != picks[j].Source {
			return picks[i].Source < picks[j].Source
		}
		return picks[i].Expert < picks[j].Expert
	})
	return picks, nil
}

func (s *MemoryStore) SaveAnalysis(_ context.Context, analysis *models.CouponAnalysis) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *analysis
	stored.Matches = make([]models.MatchAnalysis, len(analysis.Matches))
	copy(stored.Matches, analysis.Matches)
	s.analyses[analysis.CouponID] = stored
	return nil
}

func (s *MemoryStore) AnalysisByCoupon(_ context.Context, couponID string) (*models.CouponAnalysis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.analyses[couponID]
	if !ok {
		return nil, ErrNotFound
	}
	result := a
	result.Matches = make([]models.MatchAnalysis, len(a.Matches))
	copy(result.Matches, a.Matches)
	return &result, nil
}

func (s *MemoryStore) SaveRows(_ context.Context, couponID string, rows []models.SuggestedRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]models.SuggestedRow, len(rows))
	copy(stored, rows)
	s.rows[couponID] = stored
	return nil
}

func (s *MemoryStore) RowsByCoupon(_ context.Context, couponID string) ([]models.SuggestedRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]models.SuggestedRow, len(s.rows[couponID]))
	copy(rows, s.rows[couponID])
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].ExpectedValue != rows[j].ExpectedValue {
			return rows[i].ExpectedValue > rows[j].ExpectedValue
		}
		return rows[i].CostFactor < rows[j].CostFactor
	})
	return rows, nil
}

func (s *MemoryStore) LastAlertValue(_ context.Context, couponID string, slot int, sign string) (float64, time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.alerts[fmt.Sprintf("%s|%d|%s", couponID, slot, sign)]
	if !ok {
		return 0, time.Time{}, false, nil
	}
	return rec.value, rec.announcedAt, true, nil
}

func (s *MemoryStore) SetLastAlertValue(_ context.Context, couponID string, slot int, sign string, value float64, announcedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.alerts[fmt.Sprintf("%s|%d|%s", couponID, slot, sign)] = alertRecord{value: value, announcedAt: announcedAt}
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}

func copyCoupon(c models.Coupon) *models.Coupon {
	out := c
	out.Matches = make([]models.Match, len(c.Matches))
	copy(out.Matches, c.Matches)
	return &out
}
