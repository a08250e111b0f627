package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sodersten/tipsvalue/internal/pkg/models"
)

// QuoteCache keeps recently fetched quotes per (coupon, bookmaker) so a
// refresh inside the TTL window skips the provider round-trip.
type QuoteCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewQuoteCache(addr, password string, db int, ttl time.Duration) (*QuoteCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// Check connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if ttl <= 0 {
		ttl = time.Hour
	}

	return &QuoteCache{client: client, ttl: ttl}, nil
}

func quoteKey(couponID, bookmaker string) string {
	return fmt.Sprintf("quotes:%s:%s", couponID, bookmaker)
}

// StoreQuotes caches one bookmaker's quotes for a coupon with the cache TTL.
func (c *QuoteCache) StoreQuotes(ctx context.Context, couponID, bookmaker string, quotes []models.OddsQuote) error {
	data, err := json.Marshal(quotes)
	if err != nil {
		return fmt.Errorf("failed to marshal quotes: %w", err)
	}

	return c.client.Set(ctx, quoteKey(couponID, bookmaker), data, c.ttl).Err()
}

// GetQuotes returns cached quotes and whether the key was present.
func (c *QuoteCache) GetQuotes(ctx context.Context, couponID, bookmaker string) ([]models.OddsQuote, bool, error) {
	data, err := c.client.Get(ctx, quoteKey(couponID, bookmaker)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get quotes: %w", err)
	}

	var quotes []models.OddsQuote
	if err := json.Unmarshal([]byte(data), &quotes); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal quotes: %w", err)
	}

	return quotes, true, nil
}

// Invalidate drops every cached bookmaker entry for the coupon.
func (c *QuoteCache) Invalidate(ctx context.Context, couponID string) error {
	pattern := fmt.Sprintf("quotes:%s:*", couponID)
	keys, err := c.client.Keys(ctx, pattern).Result()
	if err != nil {
		return fmt.Errorf("failed to get keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// Close closes the Redis connection.
func (c *QuoteCache) Close() error {
	return c.client.Close()
}
