package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType represents the kind of money movement.
type TransactionType string

const (
	TransactionTypeDeposit          TransactionType = "DEPOSIT"
	TransactionTypeWithdrawal       TransactionType = "WITHDRAWAL"
	TransactionTypeTransfer         TransactionType = "TRANSFER"
	TransactionTypeFXTrade          TransactionType = "FX_TRADE"
	TransactionTypeExternalTransfer TransactionType = "EXTERNAL_TRANSFER"
)

// TransactionStatus is the outcome of one orchestration attempt. Both values are terminal.
type TransactionStatus string

const (
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusFailed    TransactionStatus = "FAILED"
)

// Transaction is the immutable log entry written once per orchestration attempt.
type Transaction struct {
	ID                uuid.UUID         `json:"id"`
	IdempotencyKey    string            `json:"idempotency_key"`
	FromWalletID      *uuid.UUID        `json:"from_wallet_id,omitempty"`
	ToWalletID        *uuid.UUID        `json:"to_wallet_id,omitempty"`
	Amount            decimal.Decimal   `json:"amount"`
	Currency          string            `json:"currency"`
	ConvertedAmount   decimal.Decimal   `json:"converted_amount"`
	ConvertedCurrency string            `json:"converted_currency"`
	ExchangeRate      decimal.Decimal   `json:"exchange_rate"`
	Fee               decimal.Decimal   `json:"fee"`
	Type              TransactionType   `json:"type"`
	Status            TransactionStatus `json:"status"`
	Description       string            `json:"description"`
	CreatedAt         time.Time         `json:"created_at"`
}

// IsCompleted returns true if the money movement was committed.
func (t *Transaction) IsCompleted() bool {
	return t.Status == TransactionStatusCompleted
}

// Touches reports whether the wallet is the source or the destination.
func (t *Transaction) Touches(walletID uuid.UUID) bool {
	return (t.FromWalletID != nil && *t.FromWalletID == walletID) ||
		(t.ToWalletID != nil && *t.ToWalletID == walletID)
}
