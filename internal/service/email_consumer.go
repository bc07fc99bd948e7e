package service

import (
	"context"
	"sync"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"

	"github.com/rs/zerolog"
)

const (
	emailPollTimeout  = 2 * time.Second
	emailErrorBackoff = time.Second
)

// EmailConsumer drains the email queue with a fixed pool of workers.
type EmailConsumer struct {
	queue   ports.EmailQueue
	sender  ports.EmailSender
	workers int
	log     zerolog.Logger
}

// NewEmailConsumer creates a consumer running the given number of workers.
func NewEmailConsumer(queue ports.EmailQueue, sender ports.EmailSender, workers int, log zerolog.Logger) *EmailConsumer {
	if workers < 1 {
		workers = 1
	}
	return &EmailConsumer{queue: queue, sender: sender, workers: workers, log: log}
}

// Run blocks until ctx is cancelled and every worker has returned.
func (c *EmailConsumer) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			c.work(ctx, id)
		}(i)
	}
	wg.Wait()
}

func (c *EmailConsumer) work(ctx context.Context, id int) {
	log := c.log.With().Int("worker", id).Logger()
	for ctx.Err() == nil {
		msg, err := c.queue.Dequeue(ctx, emailPollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn().Err(err).Msg("email dequeue failed")
			select {
			case <-ctx.Done():
				return
			case <-time.After(emailErrorBackoff):
			}
			continue
		}
		if msg == nil {
			continue
		}
		if err := c.sender.Send(ctx, msg); err != nil {
			// Delivery is best effort; the message is not requeued.
			log.Warn().Err(err).Str("email_id", msg.ID.String()).Str("to", msg.To).Msg("email delivery failed")
		}
	}
}

// LogEmailSender implements ports.EmailSender by writing the email to the log.
type LogEmailSender struct {
	log zerolog.Logger
}

// NewLogEmailSender creates a new LogEmailSender.
func NewLogEmailSender(log zerolog.Logger) *LogEmailSender {
	return &LogEmailSender{log: log}
}

// Send logs the message.
func (s *LogEmailSender) Send(_ context.Context, msg *domain.EmailMessage) error {
	s.log.Info().
		Str("email_id", msg.ID.String()).
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Str("type", string(msg.Type)).
		Str("tx_id", msg.TransactionID.String()).
		Msg("email sent")
	return nil
}
