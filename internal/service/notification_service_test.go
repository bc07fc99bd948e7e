package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func party(name string) *domain.Party {
	return &domain.Party{CustomerID: uuid.New(), WalletID: uuid.New(), Name: name, Email: name + "@example.com"}
}

func TestBuildNotices(t *testing.T) {
	alice, bob := party("alice"), party("bob")
	base := domain.Transaction{
		ID:                uuid.New(),
		Amount:            amt("10"),
		Currency:          "USD",
		ConvertedAmount:   amt("335"),
		ConvertedCurrency: "TRY",
		ExchangeRate:      amt("33.5"),
		Fee:               amt("0.5"),
		CreatedAt:         time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC),
	}

	tests := []struct {
		name    string
		txType  domain.TransactionType
		from    *domain.Party
		to      *domain.Party
		want    []domain.NotificationType
		summary string
	}{
		{"deposit", domain.TransactionTypeDeposit, nil, alice, []domain.NotificationType{domain.NotificationDepositCompleted}, "335.00 TRY was deposited"},
		{"withdrawal", domain.TransactionTypeWithdrawal, alice, nil, []domain.NotificationType{domain.NotificationWithdrawalCompleted}, "10.00 USD was withdrawn"},
		{"transfer", domain.TransactionTypeTransfer, alice, bob, []domain.NotificationType{domain.NotificationTransferSent, domain.NotificationTransferReceived}, "You sent 10.00 USD to bob"},
		{"fx", domain.TransactionTypeFXTrade, alice, alice, []domain.NotificationType{domain.NotificationFXTradeCompleted}, "at rate 33.5"},
		{"external", domain.TransactionTypeExternalTransfer, alice, nil, []domain.NotificationType{domain.NotificationSettlementSent}, "fee 0.50 USD"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := base
			tx.Type = tt.txType
			notices := buildNotices(domain.TransactionEvent{Transaction: tx, From: tt.from, To: tt.to, Counterparty: "Hans (DE89)"})

			require.Len(t, notices, len(tt.want))
			for i, n := range notices {
				assert.Equal(t, tt.want[i], n.Type)
				assert.NotEmpty(t, n.Subject)
				assert.Contains(t, n.Body, tx.ID.String())
				assert.Contains(t, n.Body, "01.03.2024 12:30:00")
			}
			assert.Contains(t, notices[0].Summary, tt.summary)
		})
	}
}

func TestBuildNotices_TransferRecipients(t *testing.T) {
	alice, bob := party("alice"), party("bob")
	notices := buildNotices(domain.TransactionEvent{
		Transaction: domain.Transaction{Type: domain.TransactionTypeTransfer, Amount: amt("1"), Currency: "USD", ConvertedAmount: amt("1"), ConvertedCurrency: "USD"},
		From:        alice,
		To:          bob,
	})
	require.Len(t, notices, 2)
	assert.Equal(t, alice.CustomerID, notices[0].Recipient.CustomerID)
	assert.Equal(t, bob.CustomerID, notices[1].Recipient.CustomerID)
	assert.Contains(t, notices[1].Summary, "from alice")
}

func TestNotificationDispatcher_Handle(t *testing.T) {
	ctrl := gomock.NewController(t)
	queue := mocks.NewMockEmailQueue(ctrl)
	d := NewNotificationDispatcher(queue, zerolog.Nop())

	alice, bob := party("alice"), party("bob")
	txID := uuid.New()

	var sent []*domain.EmailMessage
	queue.EXPECT().Enqueue(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, msg *domain.EmailMessage) error {
			sent = append(sent, msg)
			return nil
		}).Times(2)

	d.Handle(context.Background(), domain.TransactionEvent{
		Transaction: domain.Transaction{ID: txID, Type: domain.TransactionTypeTransfer, Amount: amt("5"), Currency: "EUR", ConvertedAmount: amt("5"), ConvertedCurrency: "EUR"},
		From:        alice,
		To:          bob,
	})

	require.Len(t, sent, 2)
	assert.Equal(t, "alice@example.com", sent[0].To)
	assert.Equal(t, "bob@example.com", sent[1].To)
	for _, msg := range sent {
		assert.Equal(t, txID, msg.TransactionID)
		assert.NotEqual(t, uuid.Nil, msg.ID)
	}
}

func TestNotificationDispatcher_EnqueueErrorIsSwallowed(t *testing.T) {
	ctrl := gomock.NewController(t)
	queue := mocks.NewMockEmailQueue(ctrl)
	d := NewNotificationDispatcher(queue, zerolog.Nop())

	queue.EXPECT().Enqueue(gomock.Any(), gomock.Any()).Return(errors.New("redis down")).Times(2)

	assert.NotPanics(t, func() {
		d.Handle(context.Background(), domain.TransactionEvent{
			Transaction: domain.Transaction{Type: domain.TransactionTypeTransfer, Amount: amt("5"), Currency: "EUR"},
			From:        party("a"),
			To:          party("b"),
		})
	})
}
