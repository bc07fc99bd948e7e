package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// releaseScript deletes the claim only while it still carries the caller's token.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// IdempotencyLock implements ports.IdempotencyLock using Redis SET NX.
// The TTL bounds how long a crashed attempt can hold a key.
type IdempotencyLock struct {
	client goredis.Cmdable
	prefix string
}

// NewIdempotencyLock creates a new Redis-backed in-flight lock.
func NewIdempotencyLock(client goredis.Cmdable) *IdempotencyLock {
	return &IdempotencyLock{
		client: client,
		prefix: "idemlock:",
	}
}

// Acquire atomically claims key and returns the holder token.
// An empty token means another attempt holds the key.
func (l *IdempotencyLock) Acquire(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	result, err := l.client.SetArgs(ctx, l.prefix+key, token, goredis.SetArgs{
		Mode: "NX",
		TTL:  ttl,
	}).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("redis idempotency lock: %w", err)
	}
	if result != "OK" {
		return "", nil
	}
	return token, nil
}

// Release drops the claim if token still holds it. A claim that outlived its
// TTL and was taken over by another attempt is left alone.
func (l *IdempotencyLock) Release(ctx context.Context, key, token string) error {
	if err := releaseScript.Run(ctx, l.client, []string{l.prefix + key}, token).Err(); err != nil {
		return fmt.Errorf("redis idempotency unlock: %w", err)
	}
	return nil
}
