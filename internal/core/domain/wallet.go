package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AmountScale is the number of decimal places kept for balances and amounts.
const AmountScale int32 = 4

// WalletStatus represents the state of a wallet.
type WalletStatus string

const (
	WalletStatusActive WalletStatus = "ACTIVE"
	WalletStatusClosed WalletStatus = "CLOSED"
)

// Wallet is a customer's container for per-currency balances.
// Currency is the wallet's default currency; one wallet per (customer, currency).
type Wallet struct {
	ID         uuid.UUID    `json:"id"`
	CustomerID uuid.UUID    `json:"customer_id"`
	Currency   string       `json:"currency"`
	IBAN       *string      `json:"iban,omitempty"`
	BankName   *string      `json:"bank_name,omitempty"`
	Status     WalletStatus `json:"status"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// IsActive returns true if the wallet accepts money movement.
func (w *Wallet) IsActive() bool {
	return w.Status == WalletStatusActive
}

// WalletBalance is the amount of one currency held by one wallet.
type WalletBalance struct {
	WalletID  uuid.UUID       `json:"wallet_id"`
	Currency  string          `json:"currency"`
	Amount    decimal.Decimal `json:"amount"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// BalanceKey identifies one lockable balance row.
type BalanceKey struct {
	WalletID uuid.UUID
	Currency string
}

// Less orders keys by wallet id, then currency. Locks are always taken in this order.
func (k BalanceKey) Less(other BalanceKey) bool {
	if c := strings.Compare(k.WalletID.String(), other.WalletID.String()); c != 0 {
		return c < 0
	}
	return k.Currency < other.Currency
}

func (k BalanceKey) String() string {
	return k.WalletID.String() + "/" + k.Currency
}

// NormalizeCurrency upper-cases and trims a currency code.
func NormalizeCurrency(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsCurrencyCode reports whether code is three ASCII letters (either case).
func IsCurrencyCode(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, r := range code {
		if (r < 'A' || r > 'Z') && (r < 'a' || r > 'z') {
			return false
		}
	}
	return true
}
