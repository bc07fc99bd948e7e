package service

import (
	"context"
	"fmt"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"

	"github.com/google/uuid"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// reportingService implements ports.ReportingService.
type reportingService struct {
	txRepo      ports.TransactionRepository
	walletRepo  ports.WalletRepository
	balanceRepo ports.BalanceRepository
}

// NewReportingService creates a new reporting service.
func NewReportingService(
	txRepo ports.TransactionRepository,
	walletRepo ports.WalletRepository,
	balanceRepo ports.BalanceRepository,
) ports.ReportingService {
	return &reportingService{
		txRepo:      txRepo,
		walletRepo:  walletRepo,
		balanceRepo: balanceRepo,
	}
}

// ListTransactions returns a page of history across all of the customer's
// wallets, newest first.
func (s *reportingService) ListTransactions(ctx context.Context, q ports.TransactionQuery) ([]domain.Transaction, int64, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = defaultPageSize
	}
	if q.PageSize > maxPageSize {
		q.PageSize = maxPageSize
	}

	walletIDs, err := s.walletIDs(ctx, q.CustomerID)
	if err != nil {
		return nil, 0, err
	}
	if len(walletIDs) == 0 {
		return []domain.Transaction{}, 0, nil
	}

	txns, total, err := s.txRepo.List(ctx, ports.TransactionListParams{
		WalletIDs: walletIDs,
		Status:    q.Status,
		Type:      q.Type,
		Page:      q.Page,
		PageSize:  q.PageSize,
	})
	if err != nil {
		return nil, 0, apperror.InternalError(err)
	}
	return txns, total, nil
}

// GetTransaction returns one row if it touches a wallet the customer owns.
func (s *reportingService) GetTransaction(ctx context.Context, customerID, transactionID uuid.UUID) (*domain.Transaction, error) {
	txn, err := s.txRepo.GetByID(ctx, transactionID)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if txn == nil {
		return nil, apperror.ErrTransactionNotFound()
	}

	walletIDs, err := s.walletIDs(ctx, customerID)
	if err != nil {
		return nil, err
	}
	for _, id := range walletIDs {
		if txn.Touches(id) {
			return txn, nil
		}
	}
	return nil, apperror.ErrTransactionNotFound()
}

// GetBalances returns the per-currency snapshot of an owned wallet.
func (s *reportingService) GetBalances(ctx context.Context, customerID, walletID uuid.UUID) ([]domain.WalletBalance, error) {
	wallet, err := s.walletRepo.GetByID(ctx, walletID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil || wallet.CustomerID != customerID {
		return nil, apperror.ErrWalletNotFound()
	}

	balances, err := s.balanceRepo.ListByWallet(ctx, walletID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list balances: %w", err))
	}
	return balances, nil
}

func (s *reportingService) walletIDs(ctx context.Context, customerID uuid.UUID) ([]uuid.UUID, error) {
	wallets, err := s.walletRepo.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list wallets: %w", err))
	}
	ids := make([]uuid.UUID, 0, len(wallets))
	for _, w := range wallets {
		ids = append(ids, w.ID)
	}
	return ids, nil
}
