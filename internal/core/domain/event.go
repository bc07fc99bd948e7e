package domain

import (
	"time"

	"github.com/google/uuid"
)

// Party is a wallet owner referenced by a committed transaction.
type Party struct {
	CustomerID uuid.UUID `json:"customer_id"`
	WalletID   uuid.UUID `json:"wallet_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
}

// TransactionEvent is published once a transaction has durably committed.
type TransactionEvent struct {
	Transaction Transaction `json:"transaction"`
	From        *Party      `json:"from,omitempty"`
	To          *Party      `json:"to,omitempty"`
	// Counterparty describes the external beneficiary of a settlement.
	Counterparty string    `json:"counterparty,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// NotificationType tags user-facing messages.
type NotificationType string

const (
	NotificationDepositCompleted    NotificationType = "DEPOSIT_COMPLETED"
	NotificationWithdrawalCompleted NotificationType = "WITHDRAWAL_COMPLETED"
	NotificationTransferSent        NotificationType = "TRANSFER_SENT"
	NotificationTransferReceived    NotificationType = "TRANSFER_RECEIVED"
	NotificationFXTradeCompleted    NotificationType = "FX_TRADE_COMPLETED"
	NotificationSettlementSent      NotificationType = "SETTLEMENT_SENT"
)

// PushNotification is delivered synchronously, best effort.
type PushNotification struct {
	CustomerID uuid.UUID        `json:"customer_id"`
	Message    string           `json:"message"`
	Type       NotificationType `json:"type"`
}

// EmailMessage is queued for asynchronous delivery.
type EmailMessage struct {
	ID            uuid.UUID        `json:"id"`
	To            string           `json:"to"`
	Subject       string           `json:"subject"`
	Body          string           `json:"body"`
	Type          NotificationType `json:"type"`
	TransactionID uuid.UUID        `json:"transaction_id"`
	CreatedAt     time.Time        `json:"created_at"`
}
