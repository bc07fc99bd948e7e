package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func testEvent() domain.TransactionEvent {
	return domain.TransactionEvent{Transaction: domain.Transaction{ID: uuid.New()}}
}

func TestEventDispatcher_DeliversEvents(t *testing.T) {
	var mu sync.Mutex
	var got []uuid.UUID
	d := NewEventDispatcher(8, func(_ context.Context, ev domain.TransactionEvent) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, ev.Transaction.ID)
	}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	first, second := testEvent(), testEvent()
	d.Publish(ctx, first)
	d.Publish(ctx, second)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	assert.Equal(t, []uuid.UUID{first.Transaction.ID, second.Transaction.ID}, got)
	mu.Unlock()

	d.Close()
	<-done
}

func TestEventDispatcher_DropsWhenFull(t *testing.T) {
	var handled atomic.Int64
	d := NewEventDispatcher(2, func(context.Context, domain.TransactionEvent) { handled.Add(1) }, zerolog.Nop())

	// Nothing is running, so the third publish must not block.
	for range 3 {
		d.Publish(context.Background(), testEvent())
	}

	d.Close()
	d.Run(context.Background())
	assert.Equal(t, int64(2), handled.Load())
}

func TestEventDispatcher_DropsAfterClose(t *testing.T) {
	var handled atomic.Int64
	d := NewEventDispatcher(4, func(context.Context, domain.TransactionEvent) { handled.Add(1) }, zerolog.Nop())
	d.Close()
	d.Close()

	d.Publish(context.Background(), testEvent())
	d.Run(context.Background())
	assert.Zero(t, handled.Load())
}

func TestEventDispatcher_SurvivesPanickingHandler(t *testing.T) {
	var calls atomic.Int64
	d := NewEventDispatcher(4, func(context.Context, domain.TransactionEvent) {
		if calls.Add(1) == 1 {
			panic("boom")
		}
	}, zerolog.Nop())

	d.Publish(context.Background(), testEvent())
	d.Publish(context.Background(), testEvent())
	d.Close()
	d.Run(context.Background())
	assert.Equal(t, int64(2), calls.Load())
}

func TestEventDispatcher_CloseThenCancelStillDrains(t *testing.T) {
	for range 50 {
		var handled atomic.Int64
		var liveCtx atomic.Int64
		d := NewEventDispatcher(8, func(ctx context.Context, _ domain.TransactionEvent) {
			handled.Add(1)
			if ctx.Err() == nil {
				liveCtx.Add(1)
			}
		}, zerolog.Nop())

		for range 5 {
			d.Publish(context.Background(), testEvent())
		}

		ctx, cancel := context.WithCancel(context.Background())
		d.Close()
		cancel()
		d.Run(ctx)

		assert.Equal(t, int64(5), handled.Load())
		assert.Equal(t, int64(5), liveCtx.Load(), "buffered events must be handled with a usable context")
	}
}
