package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Ledger implements ports.Ledger. It is the only code path that writes balances.
//
// Every call must run inside the caller's transaction: row locks taken here are
// released when that transaction commits or rolls back.
type Ledger struct {
	walletRepo  ports.WalletRepository
	balanceRepo ports.BalanceRepository
}

// NewLedger creates a new Ledger.
func NewLedger(walletRepo ports.WalletRepository, balanceRepo ports.BalanceRepository) *Ledger {
	return &Ledger{walletRepo: walletRepo, balanceRepo: balanceRepo}
}

// ApplyDelta locks one (wallet, currency) balance, creating it at zero if needed,
// and adds delta to it. A debit that would leave the balance negative fails with
// InsufficientFunds and writes nothing.
func (l *Ledger) ApplyDelta(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, currency string, delta decimal.Decimal) (*domain.WalletBalance, error) {
	key := domain.BalanceKey{WalletID: walletID, Currency: domain.NormalizeCurrency(currency)}
	if !domain.IsCurrencyCode(key.Currency) {
		return nil, apperror.Validation(fmt.Sprintf("invalid currency code %q", currency))
	}

	if err := l.checkWallet(ctx, tx, walletID); err != nil {
		return nil, err
	}
	bal, err := l.lockBalance(ctx, tx, key)
	if err != nil {
		return nil, err
	}
	if err := l.apply(ctx, tx, bal, delta); err != nil {
		return nil, err
	}
	return bal, nil
}

// ApplyLegs acquires every distinct balance lock in canonical order, ascending
// wallet id then currency, before applying any delta. Legs are then applied in
// the order given, so a debit-then-credit operation still debits first.
// The returned snapshots are in leg order.
func (l *Ledger) ApplyLegs(ctx context.Context, tx pgx.Tx, legs []ports.BalanceLeg) ([]domain.WalletBalance, error) {
	keys := make([]domain.BalanceKey, 0, len(legs))
	seen := make(map[domain.BalanceKey]bool, len(legs))
	for i := range legs {
		k := domain.BalanceKey{WalletID: legs[i].WalletID, Currency: domain.NormalizeCurrency(legs[i].Currency)}
		if !domain.IsCurrencyCode(k.Currency) {
			return nil, apperror.Validation(fmt.Sprintf("invalid currency code %q", legs[i].Currency))
		}
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	checked := make(map[uuid.UUID]bool, len(keys))
	locked := make(map[domain.BalanceKey]*domain.WalletBalance, len(keys))
	for _, k := range keys {
		if !checked[k.WalletID] {
			if err := l.checkWallet(ctx, tx, k.WalletID); err != nil {
				return nil, err
			}
			checked[k.WalletID] = true
		}
		bal, err := l.lockBalance(ctx, tx, k)
		if err != nil {
			return nil, err
		}
		locked[k] = bal
	}

	snapshots := make([]domain.WalletBalance, 0, len(legs))
	for i := range legs {
		k := domain.BalanceKey{WalletID: legs[i].WalletID, Currency: domain.NormalizeCurrency(legs[i].Currency)}
		bal := locked[k]
		if err := l.apply(ctx, tx, bal, legs[i].Delta); err != nil {
			return nil, err
		}
		snapshots = append(snapshots, *bal)
	}
	return snapshots, nil
}

// checkWallet takes a shared lock on the wallet so it cannot be closed while
// one of its balances is changing.
func (l *Ledger) checkWallet(ctx context.Context, tx pgx.Tx, walletID uuid.UUID) error {
	wallet, err := l.walletRepo.GetByIDForShare(ctx, tx, walletID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		return apperror.ErrWalletNotFound()
	}
	if !wallet.IsActive() {
		return apperror.ErrWalletClosed()
	}
	return nil
}

func (l *Ledger) lockBalance(ctx context.Context, tx pgx.Tx, key domain.BalanceKey) (*domain.WalletBalance, error) {
	bal, err := l.balanceRepo.LockForUpdate(ctx, tx, key.WalletID, key.Currency)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock balance %s: %w", key, err))
	}
	return bal, nil
}

// apply mutates a balance whose row lock is already held.
func (l *Ledger) apply(ctx context.Context, tx pgx.Tx, bal *domain.WalletBalance, delta decimal.Decimal) error {
	newAmount := bal.Amount.Add(delta)
	if delta.IsNegative() && newAmount.IsNegative() {
		return apperror.ErrInsufficientFunds()
	}
	if err := l.balanceRepo.UpdateAmount(ctx, tx, bal.WalletID, bal.Currency, newAmount); err != nil {
		return apperror.InternalError(fmt.Errorf("update balance: %w", err))
	}
	bal.Amount = newAmount
	bal.UpdatedAt = time.Now().UTC()
	return nil
}
