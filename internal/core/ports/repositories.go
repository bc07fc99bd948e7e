package ports

import (
	"context"
	"errors"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// ErrConflict is wrapped by repositories when a uniqueness constraint rejects a write.
var ErrConflict = errors.New("unique constraint violation")

// CustomerRepository defines persistence operations for customers.
type CustomerRepository interface {
	Create(ctx context.Context, customer *domain.Customer) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error)
	GetByEmail(ctx context.Context, email string) (*domain.Customer, error)
}

// WalletRepository defines persistence operations for wallets.
// Methods accepting pgx.Tx are used inside transaction blocks for row locking.
type WalletRepository interface {
	Create(ctx context.Context, tx pgx.Tx, wallet *domain.Wallet) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error)
	GetByCustomerAndCurrency(ctx context.Context, customerID uuid.UUID, currency string) (*domain.Wallet, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]domain.Wallet, error)
	// GetByIDForShare blocks a concurrent close while balances of the wallet change.
	GetByIDForShare(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.WalletStatus) error
}

// BalanceRepository owns the per-currency balance rows of wallets.
type BalanceRepository interface {
	// LockForUpdate creates the row at zero if missing and locks it until tx ends.
	LockForUpdate(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, currency string) (*domain.WalletBalance, error)
	UpdateAmount(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, currency string, amount decimal.Decimal) error
	ListByWallet(ctx context.Context, walletID uuid.UUID) ([]domain.WalletBalance, error)
	ListByWalletForUpdate(ctx context.Context, tx pgx.Tx, walletID uuid.UUID) ([]domain.WalletBalance, error)
}

// ExchangeRateRepository stores conversion rates per ordered currency pair.
type ExchangeRateRepository interface {
	Get(ctx context.Context, from, to string) (*domain.ExchangeRate, error)
	Upsert(ctx context.Context, rate *domain.ExchangeRate) error
	List(ctx context.Context) ([]domain.ExchangeRate, error)
}

// TransactionRepository defines persistence operations for the append-only transaction log.
type TransactionRepository interface {
	// Create wraps ErrConflict when the idempotency key is already logged.
	Create(ctx context.Context, tx pgx.Tx, transaction *domain.Transaction) error
	ExistsByIdempotencyKey(ctx context.Context, key string) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	List(ctx context.Context, params TransactionListParams) ([]domain.Transaction, int64, error)
}

// TransactionListParams holds filter + pagination for listing transactions.
type TransactionListParams struct {
	WalletIDs []uuid.UUID // rows whose source or destination is in this set
	Status    *domain.TransactionStatus
	Type      *domain.TransactionType
	Page      int
	PageSize  int
}

// AuditRepository persists audit log entries.
type AuditRepository interface {
	Create(ctx context.Context, entry *domain.AuditLog) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
