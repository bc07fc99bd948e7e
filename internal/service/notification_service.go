package service

import (
	"context"
	"fmt"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// notice is one user-facing message derived from a committed transaction.
type notice struct {
	Recipient domain.Party
	Type      domain.NotificationType
	Subject   string
	Summary   string // one line, used for push
	Body      string
}

// buildNotices returns the messages a committed transaction produces, one per
// recipient. A transfer yields a sent and a received notice.
func buildNotices(ev domain.TransactionEvent) []notice {
	t := ev.Transaction
	original := money(t.Amount.StringFixed(2), t.Currency)
	converted := money(t.ConvertedAmount.StringFixed(2), t.ConvertedCurrency)
	when := t.CreatedAt.UTC().Format("02.01.2006 15:04:05")

	var out []notice
	add := func(p *domain.Party, typ domain.NotificationType, subject, summary string) {
		if p == nil {
			return
		}
		body := fmt.Sprintf("Hello %s,\n\n%s\n\nReference: %s\nDate: %s UTC\n", p.Name, summary, t.ID, when)
		out = append(out, notice{Recipient: *p, Type: typ, Subject: subject, Summary: summary, Body: body})
	}

	switch t.Type {
	case domain.TransactionTypeDeposit:
		add(ev.To, domain.NotificationDepositCompleted, "Funds deposited",
			fmt.Sprintf("%s was deposited to your wallet.", converted))
	case domain.TransactionTypeWithdrawal:
		add(ev.From, domain.NotificationWithdrawalCompleted, "Funds withdrawn",
			fmt.Sprintf("%s was withdrawn from your wallet.", original))
	case domain.TransactionTypeTransfer:
		toName, fromName := "", ""
		if ev.To != nil {
			toName = ev.To.Name
		}
		if ev.From != nil {
			fromName = ev.From.Name
		}
		add(ev.From, domain.NotificationTransferSent, "Transfer sent",
			fmt.Sprintf("You sent %s to %s.", original, toName))
		add(ev.To, domain.NotificationTransferReceived, "Transfer received",
			fmt.Sprintf("You received %s from %s.", converted, fromName))
	case domain.TransactionTypeFXTrade:
		add(ev.From, domain.NotificationFXTradeCompleted, "Currency exchange completed",
			fmt.Sprintf("You sold %s and bought %s at rate %s.", original, converted, t.ExchangeRate.String()))
	case domain.TransactionTypeExternalTransfer:
		add(ev.From, domain.NotificationSettlementSent, "International transfer submitted",
			fmt.Sprintf("Your transfer of %s to %s was accepted (fee %s).",
				original, ev.Counterparty, money(t.Fee.StringFixed(2), t.Currency)))
	}
	return out
}

func money(amount, currency string) string {
	return amount + " " + currency
}

// NotificationDispatcher turns committed transactions into queued emails.
// It is the handler behind the EventDispatcher.
type NotificationDispatcher struct {
	queue ports.EmailQueue
	log   zerolog.Logger
}

// NewNotificationDispatcher creates a new NotificationDispatcher.
func NewNotificationDispatcher(queue ports.EmailQueue, log zerolog.Logger) *NotificationDispatcher {
	return &NotificationDispatcher{queue: queue, log: log}
}

// Handle enqueues one email per recipient. Enqueue failures are logged and dropped.
func (d *NotificationDispatcher) Handle(ctx context.Context, event domain.TransactionEvent) {
	for _, n := range buildNotices(event) {
		msg := &domain.EmailMessage{
			ID:            uuid.New(),
			To:            n.Recipient.Email,
			Subject:       n.Subject,
			Body:          n.Body,
			Type:          n.Type,
			TransactionID: event.Transaction.ID,
			CreatedAt:     time.Now().UTC(),
		}
		if err := d.queue.Enqueue(ctx, msg); err != nil {
			d.log.Warn().Err(err).
				Str("tx_id", event.Transaction.ID.String()).
				Str("type", string(n.Type)).
				Msg("failed to enqueue notification email")
			continue
		}
		d.log.Debug().Str("tx_id", event.Transaction.ID.String()).Str("type", string(n.Type)).Msg("notification email queued")
	}
}
