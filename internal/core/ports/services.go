package ports

import (
	"context"
	"time"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// SignatureService handles HMAC-SHA256 signing and verification.
type SignatureService interface {
	Sign(secretKey string, payload string) string
	Verify(secretKey string, payload string, signature string) bool
}

// HashService handles password hashing (Argon2id).
type HashService interface {
	Hash(password string) (string, error)
	Verify(password string, hash string) (bool, error)
}

// TokenService handles JWT token operations.
type TokenService interface {
	Generate(customerID uuid.UUID, email string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	CustomerID uuid.UUID
	Email      string
}

// IdempotencyCache is the Redis-layer idempotency check (fast path).
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // Returns cached transaction JSON or nil
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// IdempotencyLock claims an idempotency key while an attempt is in flight.
type IdempotencyLock interface {
	// Acquire returns the holder token, or "" if another attempt holds the key.
	Acquire(ctx context.Context, key string, ttl time.Duration) (string, error)
	// Release drops the claim only while token still holds it.
	Release(ctx context.Context, key, token string) error
}

// RateCache is a read-through cache in front of the exchange rate table.
type RateCache interface {
	Get(ctx context.Context, from, to string) (*decimal.Decimal, error) // nil on miss
	Set(ctx context.Context, from, to string, rate decimal.Decimal, ttl time.Duration) error
	Delete(ctx context.Context, from, to string) error
}

// EmailQueue is the asynchronous hand-off between notification dispatch and delivery.
type EmailQueue interface {
	Enqueue(ctx context.Context, msg *domain.EmailMessage) error
	// Dequeue blocks up to timeout; returns nil, nil when nothing arrived.
	Dequeue(ctx context.Context, timeout time.Duration) (*domain.EmailMessage, error)
}

// --- Core ---

// BalanceLeg is one signed delta against one (wallet, currency) balance.
type BalanceLeg struct {
	WalletID uuid.UUID
	Currency string
	Delta    decimal.Decimal
}

// Ledger is the only entry point that mutates balances.
type Ledger interface {
	ApplyDelta(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, currency string, delta decimal.Decimal) (*domain.WalletBalance, error)
	// ApplyLegs locks every touched balance in canonical order, then applies the legs in order.
	ApplyLegs(ctx context.Context, tx pgx.Tx, legs []BalanceLeg) ([]domain.WalletBalance, error)
}

// ExchangeRateProvider resolves rates and converts amounts.
type ExchangeRateProvider interface {
	Rate(ctx context.Context, from, to string) (decimal.Decimal, error)
	Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error)
}

// ExchangeRateService adds rate administration on top of lookups.
type ExchangeRateService interface {
	ExchangeRateProvider
	UpsertRate(ctx context.Context, from, to string, rate decimal.Decimal) (*domain.ExchangeRate, error)
	ListRates(ctx context.Context) ([]domain.ExchangeRate, error)
}

// SettlementGateway performs an interbank transfer. false means the receiving bank rejected it.
type SettlementGateway interface {
	Transfer(ctx context.Context, destinationAccount, routingCode, receiverName string, amount decimal.Decimal) (bool, error)
}

// EventPublisher receives one event per committed transaction. It must not block.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.TransactionEvent)
}

// PushNotifier delivers a synchronous user notification.
type PushNotifier interface {
	Notify(ctx context.Context, n domain.PushNotification) error
}

// EmailSender delivers a dequeued email.
type EmailSender interface {
	Send(ctx context.Context, msg *domain.EmailMessage) error
}

// --- Service Ports (Business Logic) ---

// PaymentOrchestrator sequences ledger legs per business operation.
type PaymentOrchestrator interface {
	Deposit(ctx context.Context, req DepositRequest) (*domain.Transaction, error)
	Withdraw(ctx context.Context, req WithdrawRequest) (*domain.Transaction, error)
	Transfer(ctx context.Context, req TransferRequest) (*domain.Transaction, error)
	TradeFX(ctx context.Context, req FXTradeRequest) (*domain.Transaction, error)
	ExternalTransfer(ctx context.Context, req ExternalTransferRequest) (*domain.Transaction, error)
}

// DepositRequest credits a customer's wallet from an external source.
type DepositRequest struct {
	IdempotencyKey string
	CustomerEmail  string
	Amount         decimal.Decimal
	Currency       string
	Description    string
}

// WithdrawRequest debits a customer's wallet to an external payout.
type WithdrawRequest struct {
	IdempotencyKey string
	CustomerEmail  string
	Amount         decimal.Decimal
	Currency       string
	Description    string
}

// TransferRequest moves funds between two customers' wallets.
type TransferRequest struct {
	IdempotencyKey string
	FromEmail      string
	ToEmail        string
	Amount         decimal.Decimal // in Currency
	Currency       string
	TargetCurrency string
	Description    string
}

// FXTradeRequest exchanges currencies inside one wallet.
type FXTradeRequest struct {
	IdempotencyKey string
	CustomerEmail  string
	Amount         decimal.Decimal // in FromCurrency
	FromCurrency   string
	ToCurrency     string
}

// ExternalTransferRequest pays out to an account at another bank.
type ExternalTransferRequest struct {
	IdempotencyKey string
	FromEmail      string
	ToIBAN         string
	SwiftCode      string
	ReceiverName   string
	Amount         decimal.Decimal
	Currency       string
	Description    string
}

// AuthService defines registration and login.
type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*domain.Customer, error)
	Login(ctx context.Context, email, password string) (string, time.Time, error) // token, expiry, error
}

// RegisterRequest holds input for customer registration.
type RegisterRequest struct {
	Name     string
	Email    string
	Password string
}

// CustomerService exposes the signed-in customer's profile.
type CustomerService interface {
	GetProfile(ctx context.Context, customerID uuid.UUID) (*domain.Customer, error)
}

// WalletService manages wallet lifecycle.
type WalletService interface {
	CreateWallet(ctx context.Context, req CreateWalletRequest) (*domain.Wallet, error)
	GetWallet(ctx context.Context, customerID, walletID uuid.UUID) (*WalletDetails, error)
	ListWallets(ctx context.Context, customerID uuid.UUID) ([]domain.Wallet, error)
	CloseWallet(ctx context.Context, customerID, walletID uuid.UUID) (*domain.Wallet, error)
}

// CreateWalletRequest holds input for opening a wallet.
type CreateWalletRequest struct {
	CustomerID uuid.UUID
	Currency   string
	IBAN       *string
	BankName   *string
}

// WalletDetails is a wallet with its current balances.
type WalletDetails struct {
	Wallet   domain.Wallet
	Balances []domain.WalletBalance
}

// ReportingService defines history and balance queries.
type ReportingService interface {
	ListTransactions(ctx context.Context, query TransactionQuery) ([]domain.Transaction, int64, error)
	GetTransaction(ctx context.Context, customerID, transactionID uuid.UUID) (*domain.Transaction, error)
	GetBalances(ctx context.Context, customerID, walletID uuid.UUID) ([]domain.WalletBalance, error)
}

// TransactionQuery is a customer-scoped history request.
type TransactionQuery struct {
	CustomerID uuid.UUID
	Status     *domain.TransactionStatus
	Type       *domain.TransactionType
	Page       int
	PageSize   int
}

// AuditService records audit entries without blocking the caller.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}
