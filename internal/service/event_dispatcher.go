package service

import (
	"context"
	"sync"
	"time"

	"wallet-ledger/internal/core/domain"

	"github.com/rs/zerolog"
)

const drainTimeout = 5 * time.Second

// EventHandler consumes one committed transaction event.
type EventHandler func(ctx context.Context, event domain.TransactionEvent)

// EventDispatcher implements ports.EventPublisher with a bounded in-process queue
// drained by Run. Publish never blocks the money path: when the buffer is full
// or the dispatcher is closed the event is dropped with a warning.
type EventDispatcher struct {
	events  chan domain.TransactionEvent
	handler EventHandler
	done    chan struct{}
	once    sync.Once
	log     zerolog.Logger
}

// NewEventDispatcher creates a dispatcher with the given buffer size.
func NewEventDispatcher(buffer int, handler EventHandler, log zerolog.Logger) *EventDispatcher {
	if buffer < 1 {
		buffer = 1
	}
	return &EventDispatcher{
		events:  make(chan domain.TransactionEvent, buffer),
		handler: handler,
		done:    make(chan struct{}),
		log:     log,
	}
}

// Publish queues event for asynchronous handling.
func (d *EventDispatcher) Publish(_ context.Context, event domain.TransactionEvent) {
	select {
	case <-d.done:
		d.log.Warn().Str("tx_id", event.Transaction.ID.String()).Msg("event dispatcher closed, event dropped")
		return
	default:
	}

	select {
	case d.events <- event:
	default:
		d.log.Warn().Str("tx_id", event.Transaction.ID.String()).Msg("event buffer full, event dropped")
	}
}

// Run handles events until ctx is cancelled or Close is called. Close wins
// over cancellation: once closed, events already buffered are handled under a
// detached context bounded by drainTimeout before Run returns.
func (d *EventDispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-d.done:
			d.drain(ctx)
			return
		default:
		}

		select {
		case <-d.done:
			d.drain(ctx)
			return
		case <-ctx.Done():
			return
		case ev := <-d.events:
			d.handle(ctx, ev)
		}
	}
}

// Close stops accepting events. It is safe to call more than once.
func (d *EventDispatcher) Close() {
	d.once.Do(func() { close(d.done) })
}

func (d *EventDispatcher) drain(parent context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), drainTimeout)
	defer cancel()
	for {
		select {
		case ev := <-d.events:
			d.handle(ctx, ev)
		default:
			return
		}
	}
}

func (d *EventDispatcher) handle(ctx context.Context, ev domain.TransactionEvent) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error().Interface("panic", r).Str("tx_id", ev.Transaction.ID.String()).Msg("event handler panicked")
		}
	}()
	d.handler(ctx, ev)
}
