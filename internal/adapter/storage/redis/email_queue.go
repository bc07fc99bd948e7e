package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"wallet-ledger/internal/core/domain"

	goredis "github.com/redis/go-redis/v9"
)

// EmailQueue implements ports.EmailQueue as a Redis list.
// Producers LPUSH and consumers BRPOP, so delivery is FIFO.
type EmailQueue struct {
	client goredis.Cmdable
	name   string
}

// NewEmailQueue creates a queue backed by the named list.
func NewEmailQueue(client goredis.Cmdable, name string) *EmailQueue {
	return &EmailQueue{client: client, name: name}
}

// Enqueue pushes a message to the head of the list.
func (q *EmailQueue) Enqueue(ctx context.Context, msg *domain.EmailMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}
	if err := q.client.LPush(ctx, q.name, payload).Err(); err != nil {
		return fmt.Errorf("redis email enqueue: %w", err)
	}
	return nil
}

// Dequeue blocks until a message arrives or timeout passes.
func (q *EmailQueue) Dequeue(ctx context.Context, timeout time.Duration) (*domain.EmailMessage, error) {
	res, err := q.client.BRPop(ctx, timeout, q.name).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis email dequeue: %w", err)
	}
	// BRPOP replies [key, value]
	if len(res) != 2 {
		return nil, fmt.Errorf("redis email dequeue: unexpected reply length %d", len(res))
	}

	var msg domain.EmailMessage
	if err := json.Unmarshal([]byte(res[1]), &msg); err != nil {
		return nil, fmt.Errorf("unmarshal email: %w", err)
	}
	return &msg, nil
}

// emailBacklogLimit is the pending-message count above which /health reports the queue unhealthy.
const emailBacklogLimit = 10000

// Name implements ports.HealthChecker.
func (q *EmailQueue) Name() string { return "email_queue" }

// Ping reports the queue unhealthy when Redis is unreachable or the backlog
// has outgrown the consumers.
func (q *EmailQueue) Ping(ctx context.Context) error {
	n, err := q.Len(ctx)
	if err != nil {
		return err
	}
	if n > emailBacklogLimit {
		return fmt.Errorf("email backlog %d exceeds %d", n, emailBacklogLimit)
	}
	return nil
}

// Len reports the number of pending messages.
func (q *EmailQueue) Len(ctx context.Context) (int64, error) {
	n, err := q.client.LLen(ctx, q.name).Result()
	if err != nil {
		return 0, fmt.Errorf("redis email len: %w", err)
	}
	return n, nil
}
