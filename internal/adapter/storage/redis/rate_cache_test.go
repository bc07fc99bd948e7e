package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateCache_MissSetHit(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewRateCache(client)
	ctx := context.Background()

	rate, err := cache.Get(ctx, "USD", "TRY")
	require.NoError(t, err)
	assert.Nil(t, rate)

	require.NoError(t, cache.Set(ctx, "USD", "TRY", decimal.RequireFromString("33.50"), 5*time.Minute))

	got, err := s.Get("fx:rate:USD:TRY")
	require.NoError(t, err)
	assert.Equal(t, "33.5", got)

	rate, err = cache.Get(ctx, "USD", "TRY")
	require.NoError(t, err)
	require.NotNil(t, rate)
	assert.True(t, rate.Equal(decimal.RequireFromString("33.5")))
}

func TestRateCache_Delete(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewRateCache(client)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "EUR", "USD", decimal.RequireFromString("1.08"), time.Minute))
	require.NoError(t, cache.Delete(ctx, "EUR", "USD"))

	rate, err := cache.Get(ctx, "EUR", "USD")
	require.NoError(t, err)
	assert.Nil(t, rate)
}

func TestRateCache_Expiry(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewRateCache(client)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "EUR", "TRY", decimal.RequireFromString("36.2"), time.Second))
	s.FastForward(2 * time.Second)

	rate, err := cache.Get(ctx, "EUR", "TRY")
	require.NoError(t, err)
	assert.Nil(t, rate)
}

func TestRateCache_CorruptValue(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewRateCache(client)

	require.NoError(t, s.Set("fx:rate:USD:EUR", "not-a-number"))

	_, err := cache.Get(context.Background(), "USD", "EUR")
	assert.ErrorContains(t, err, "redis rate decode")
}
