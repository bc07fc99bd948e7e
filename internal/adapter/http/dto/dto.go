package dto

import (
	"time"

	"wallet-ledger/internal/core/domain"

	"github.com/shopspring/decimal"
)

// RegisterRequest is the request body for customer registration.
type RegisterRequest struct {
	Name     string `json:"name" binding:"required,min=1,max=100"`
	Email    string `json:"email" binding:"required,email,max=254"`
	Password string `json:"password" binding:"required,min=8,max=128" sanitize:"-"`
}

// LoginRequest is the request body for customer login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required" sanitize:"-"`
}

// LoginResponse is the response body for successful login.
type LoginResponse struct {
	Token  string `json:"token"`
	Expiry int64  `json:"expiry"` // Unix timestamp
}

// CustomerResponse is the public view of a customer.
type CustomerResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
}

// CreateWalletRequest opens a wallet in a default currency.
type CreateWalletRequest struct {
	Currency string  `json:"currency" binding:"required,currency"`
	IBAN     *string `json:"iban,omitempty" binding:"omitempty,max=34,alphanum"`
	BankName *string `json:"bank_name,omitempty" binding:"omitempty,max=100"`
}

// WalletResponse is the public view of a wallet.
type WalletResponse struct {
	ID        string            `json:"id"`
	Currency  string            `json:"currency"`
	IBAN      *string           `json:"iban,omitempty"`
	BankName  *string           `json:"bank_name,omitempty"`
	Status    string            `json:"status"`
	Balances  []BalanceResponse `json:"balances,omitempty"`
	CreatedAt string            `json:"created_at"`
}

// BalanceResponse is one per-currency balance.
type BalanceResponse struct {
	Currency  string          `json:"currency"`
	Amount    decimal.Decimal `json:"amount"`
	UpdatedAt string          `json:"updated_at"`
}

// DepositRequest credits the caller's wallet.
type DepositRequest struct {
	IdempotencyKey string          `json:"idempotency_key" binding:"required,max=64,safe_id"`
	CustomerEmail  string          `json:"customer_email" binding:"required,email"`
	Amount         decimal.Decimal `json:"amount" binding:"required,amount"`
	Currency       string          `json:"currency" binding:"required,currency"`
	Description    string          `json:"description" binding:"max=255"`
}

// WithdrawRequest debits the caller's wallet.
type WithdrawRequest struct {
	IdempotencyKey string          `json:"idempotency_key" binding:"required,max=64,safe_id"`
	CustomerEmail  string          `json:"customer_email" binding:"required,email"`
	Amount         decimal.Decimal `json:"amount" binding:"required,amount"`
	Currency       string          `json:"currency" binding:"required,currency"`
	Description    string          `json:"description" binding:"max=255"`
}

// TransferRequest moves money between two customers, optionally converting it.
type TransferRequest struct {
	IdempotencyKey string          `json:"idempotency_key" binding:"required,max=64,safe_id"`
	FromEmail      string          `json:"from_email" binding:"required,email"`
	ToEmail        string          `json:"to_email" binding:"required,email"`
	Amount         decimal.Decimal `json:"amount" binding:"required,amount"`
	Currency       string          `json:"currency" binding:"required,currency"`
	TargetCurrency string          `json:"target_currency" binding:"omitempty,currency"`
	Description    string          `json:"description" binding:"max=255"`
}

// FXTradeRequest converts money within one wallet.
type FXTradeRequest struct {
	IdempotencyKey string          `json:"idempotency_key" binding:"required,max=64,safe_id"`
	CustomerEmail  string          `json:"customer_email" binding:"required,email"`
	Amount         decimal.Decimal `json:"amount" binding:"required,amount"`
	FromCurrency   string          `json:"from_currency" binding:"required,currency"`
	ToCurrency     string          `json:"to_currency" binding:"required,currency"`
}

// ExternalTransferRequest sends money to an account at another bank.
type ExternalTransferRequest struct {
	IdempotencyKey string          `json:"idempotency_key" binding:"required,max=64,safe_id"`
	FromEmail      string          `json:"from_email" binding:"required,email"`
	ToIBAN         string          `json:"to_iban" binding:"required,max=34,alphanum"`
	SwiftCode      string          `json:"swift_code" binding:"required,min=8,max=11,alphanum"`
	ReceiverName   string          `json:"receiver_name" binding:"required,max=100"`
	Amount         decimal.Decimal `json:"amount" binding:"required,amount"`
	Currency       string          `json:"currency" binding:"required,currency"`
	Description    string          `json:"description" binding:"max=255"`
}

// UpsertRateRequest stores an exchange rate.
type UpsertRateRequest struct {
	From string          `json:"from" binding:"required,currency"`
	To   string          `json:"to" binding:"required,currency"`
	Rate decimal.Decimal `json:"rate" binding:"required,positive_decimal"`
}

// RateResponse is one exchange rate.
type RateResponse struct {
	From      string          `json:"from"`
	To        string          `json:"to"`
	Rate      decimal.Decimal `json:"rate"`
	UpdatedAt string          `json:"updated_at,omitempty"`
}

// TransactionResponse is the public view of a log row.
type TransactionResponse struct {
	ID                string           `json:"id"`
	IdempotencyKey    string           `json:"idempotency_key"`
	FromWalletID      *string          `json:"from_wallet_id,omitempty"`
	ToWalletID        *string          `json:"to_wallet_id,omitempty"`
	Amount            decimal.Decimal  `json:"amount"`
	Currency          string           `json:"currency"`
	ConvertedAmount   decimal.Decimal  `json:"converted_amount"`
	ConvertedCurrency string           `json:"converted_currency"`
	ExchangeRate      decimal.Decimal  `json:"exchange_rate"`
	Fee               *decimal.Decimal `json:"fee,omitempty"`
	Type              string           `json:"type"`
	Status            string           `json:"status"`
	Description       string           `json:"description"`
	CreatedAt         string           `json:"created_at"`
}

// TransactionListQuery binds the history query string.
type TransactionListQuery struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	Status   string `form:"status" binding:"omitempty,oneof=COMPLETED FAILED"`
	Type     string `form:"type" binding:"omitempty,oneof=DEPOSIT WITHDRAWAL TRANSFER FX_TRADE EXTERNAL_TRANSFER"`
}

func NewCustomerResponse(c *domain.Customer) CustomerResponse {
	return CustomerResponse{
		ID:        c.ID.String(),
		Name:      c.Name,
		Email:     c.Email,
		CreatedAt: formatTime(c.CreatedAt),
	}
}

func NewWalletResponse(w *domain.Wallet, balances []domain.WalletBalance) WalletResponse {
	resp := WalletResponse{
		ID:        w.ID.String(),
		Currency:  w.Currency,
		IBAN:      w.IBAN,
		BankName:  w.BankName,
		Status:    string(w.Status),
		CreatedAt: formatTime(w.CreatedAt),
	}
	if len(balances) > 0 {
		resp.Balances = NewBalanceResponses(balances)
	}
	return resp
}

func NewBalanceResponses(balances []domain.WalletBalance) []BalanceResponse {
	out := make([]BalanceResponse, 0, len(balances))
	for _, b := range balances {
		out = append(out, BalanceResponse{
			Currency:  b.Currency,
			Amount:    b.Amount,
			UpdatedAt: formatTime(b.UpdatedAt),
		})
	}
	return out
}

func NewRateResponse(r *domain.ExchangeRate) RateResponse {
	return RateResponse{From: r.From, To: r.To, Rate: r.Rate, UpdatedAt: formatTime(r.UpdatedAt)}
}

func NewTransactionResponse(t *domain.Transaction) TransactionResponse {
	resp := TransactionResponse{
		ID:                t.ID.String(),
		IdempotencyKey:    t.IdempotencyKey,
		Amount:            t.Amount,
		Currency:          t.Currency,
		ConvertedAmount:   t.ConvertedAmount,
		ConvertedCurrency: t.ConvertedCurrency,
		ExchangeRate:      t.ExchangeRate,
		Type:              string(t.Type),
		Status:            string(t.Status),
		Description:       t.Description,
		CreatedAt:         formatTime(t.CreatedAt),
	}
	if t.FromWalletID != nil {
		s := t.FromWalletID.String()
		resp.FromWalletID = &s
	}
	if t.ToWalletID != nil {
		s := t.ToWalletID.String()
		resp.ToWalletID = &s
	}
	if t.Fee.IsPositive() {
		fee := t.Fee
		resp.Fee = &fee
	}
	return resp
}

func NewTransactionResponses(txns []domain.Transaction) []TransactionResponse {
	out := make([]TransactionResponse, 0, len(txns))
	for i := range txns {
		out = append(out, NewTransactionResponse(&txns[i]))
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
