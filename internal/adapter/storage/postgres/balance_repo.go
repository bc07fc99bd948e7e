package postgres

import (
	"context"
	"fmt"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// BalanceRepo implements ports.BalanceRepository over wallet_balances.
type BalanceRepo struct {
	pool Pool
}

// NewBalanceRepo creates a new BalanceRepo.
func NewBalanceRepo(pool Pool) *BalanceRepo {
	return &BalanceRepo{pool: pool}
}

// LockForUpdate seeds a zero row if the currency was never touched, then locks it.
// Concurrent seeders race on the primary key; ON CONFLICT makes the loser a no-op
// and both end up waiting on the same row lock.
func (r *BalanceRepo) LockForUpdate(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, currency string) (*domain.WalletBalance, error) {
	seed := `INSERT INTO wallet_balances (wallet_id, currency, amount, updated_at)
		VALUES ($1, $2, 0, NOW()) ON CONFLICT (wallet_id, currency) DO NOTHING`
	if _, err := tx.Exec(ctx, seed, walletID, currency); err != nil {
		return nil, fmt.Errorf("seed balance row: %w", err)
	}

	query := `SELECT wallet_id, currency, amount, updated_at
		FROM wallet_balances WHERE wallet_id = $1 AND currency = $2 FOR UPDATE`

	b := &domain.WalletBalance{}
	err := tx.QueryRow(ctx, query, walletID, currency).Scan(&b.WalletID, &b.Currency, &b.Amount, &b.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("lock balance row: %w", err)
	}
	return b, nil
}

// UpdateAmount overwrites a locked balance row.
func (r *BalanceRepo) UpdateAmount(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, currency string, amount decimal.Decimal) error {
	query := `UPDATE wallet_balances SET amount = $1, updated_at = NOW() WHERE wallet_id = $2 AND currency = $3`

	tag, err := tx.Exec(ctx, query, amount, walletID, currency)
	if err != nil {
		return fmt.Errorf("update balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("balance not found: %s/%s", walletID, currency)
	}
	return nil
}

// ListByWallet returns the wallet's balances without locking.
func (r *BalanceRepo) ListByWallet(ctx context.Context, walletID uuid.UUID) ([]domain.WalletBalance, error) {
	query := `SELECT wallet_id, currency, amount, updated_at
		FROM wallet_balances WHERE wallet_id = $1 ORDER BY currency`

	rows, err := r.pool.Query(ctx, query, walletID)
	if err != nil {
		return nil, fmt.Errorf("list balances: %w", err)
	}
	return collectBalances(rows)
}

// ListByWalletForUpdate locks and returns every balance row of the wallet.
func (r *BalanceRepo) ListByWalletForUpdate(ctx context.Context, tx pgx.Tx, walletID uuid.UUID) ([]domain.WalletBalance, error) {
	query := `SELECT wallet_id, currency, amount, updated_at
		FROM wallet_balances WHERE wallet_id = $1 ORDER BY currency FOR UPDATE`

	rows, err := tx.Query(ctx, query, walletID)
	if err != nil {
		return nil, fmt.Errorf("list balances for update: %w", err)
	}
	return collectBalances(rows)
}

func collectBalances(rows pgx.Rows) ([]domain.WalletBalance, error) {
	defer rows.Close()

	var balances []domain.WalletBalance
	for rows.Next() {
		var b domain.WalletBalance
		if err := rows.Scan(&b.WalletID, &b.Currency, &b.Amount, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan balance row: %w", err)
		}
		balances = append(balances, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate balance rows: %w", err)
	}
	return balances, nil
}
