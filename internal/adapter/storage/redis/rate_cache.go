package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// RateCache implements ports.RateCache. Keys look like fx:rate:USD:TRY.
type RateCache struct {
	client goredis.Cmdable
	prefix string
}

// NewRateCache creates a Redis-backed exchange rate cache.
func NewRateCache(client goredis.Cmdable) *RateCache {
	return &RateCache{
		client: client,
		prefix: "fx:rate:",
	}
}

func (c *RateCache) key(from, to string) string {
	return c.prefix + from + ":" + to
}

// Get returns the cached rate or nil on a miss.
func (c *RateCache) Get(ctx context.Context, from, to string) (*decimal.Decimal, error) {
	raw, err := c.client.Get(ctx, c.key(from, to)).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis rate get: %w", err)
	}
	rate, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, fmt.Errorf("redis rate decode %q: %w", raw, err)
	}
	return &rate, nil
}

// Set caches a rate as its decimal string.
func (c *RateCache) Set(ctx context.Context, from, to string, rate decimal.Decimal, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.key(from, to), rate.String(), ttl).Err(); err != nil {
		return fmt.Errorf("redis rate set: %w", err)
	}
	return nil
}

// Delete evicts a pair after its stored rate changes.
func (c *RateCache) Delete(ctx context.Context, from, to string) error {
	if err := c.client.Del(ctx, c.key(from, to)).Err(); err != nil {
		return fmt.Errorf("redis rate delete: %w", err)
	}
	return nil
}
