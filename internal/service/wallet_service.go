package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// WalletService manages the wallet lifecycle. Money never moves here.
type WalletService struct {
	customerRepo ports.CustomerRepository
	walletRepo   ports.WalletRepository
	balanceRepo  ports.BalanceRepository
	transactor   ports.DBTransactor
	log          zerolog.Logger
}

// NewWalletService creates a new WalletService.
func NewWalletService(
	customerRepo ports.CustomerRepository,
	walletRepo ports.WalletRepository,
	balanceRepo ports.BalanceRepository,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *WalletService {
	return &WalletService{
		customerRepo: customerRepo,
		walletRepo:   walletRepo,
		balanceRepo:  balanceRepo,
		transactor:   transactor,
		log:          log,
	}
}

// CreateWallet opens a wallet and its zero balance row in the default currency.
func (s *WalletService) CreateWallet(ctx context.Context, req ports.CreateWalletRequest) (*domain.Wallet, error) {
	currency := domain.NormalizeCurrency(req.Currency)
	if !domain.IsCurrencyCode(currency) {
		return nil, apperror.Validation("currency must be a 3-letter code")
	}

	customer, err := s.customerRepo.GetByID(ctx, req.CustomerID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get customer: %w", err))
	}
	if customer == nil {
		return nil, apperror.ErrCustomerNotFound()
	}

	now := time.Now().UTC()
	wallet := &domain.Wallet{
		ID:         uuid.New(),
		CustomerID: customer.ID,
		Currency:   currency,
		IBAN:       trimmedOrNil(req.IBAN),
		BankName:   trimmedOrNil(req.BankName),
		Status:     domain.WalletStatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	tx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := s.walletRepo.Create(ctx, tx, wallet); err != nil {
		if errors.Is(err, ports.ErrConflict) {
			return nil, apperror.ErrWalletExists()
		}
		return nil, apperror.InternalError(fmt.Errorf("create wallet: %w", err))
	}
	// LockForUpdate inserts the missing row at zero.
	if _, err := s.balanceRepo.LockForUpdate(ctx, tx, wallet.ID, currency); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("seed balance: %w", err))
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit: %w", err))
	}

	s.log.Info().
		Str("wallet_id", wallet.ID.String()).
		Str("customer_id", customer.ID.String()).
		Str("currency", currency).
		Msg("wallet created")

	return wallet, nil
}

// GetWallet returns the wallet with its balances. Wallets owned by someone
// else are reported as not found.
func (s *WalletService) GetWallet(ctx context.Context, customerID, walletID uuid.UUID) (*ports.WalletDetails, error) {
	wallet, err := s.ownedWallet(ctx, customerID, walletID)
	if err != nil {
		return nil, err
	}

	balances, err := s.balanceRepo.ListByWallet(ctx, wallet.ID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list balances: %w", err))
	}

	return &ports.WalletDetails{Wallet: *wallet, Balances: balances}, nil
}

func (s *WalletService) ListWallets(ctx context.Context, customerID uuid.UUID) ([]domain.Wallet, error) {
	wallets, err := s.walletRepo.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list wallets: %w", err))
	}
	return wallets, nil
}

// CloseWallet marks an empty wallet CLOSED. The wallet row and its balances
// are locked for the duration so no delta can land in between.
func (s *WalletService) CloseWallet(ctx context.Context, customerID, walletID uuid.UUID) (*domain.Wallet, error) {
	tx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	wallet, err := s.walletRepo.GetByIDForUpdate(ctx, tx, walletID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil || wallet.CustomerID != customerID {
		return nil, apperror.ErrWalletNotFound()
	}
	if wallet.Status == domain.WalletStatusClosed {
		return wallet, nil
	}

	balances, err := s.balanceRepo.ListByWalletForUpdate(ctx, tx, wallet.ID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock balances: %w", err))
	}
	for _, b := range balances {
		if b.Amount.IsPositive() {
			return nil, apperror.ErrWalletHasBalance()
		}
	}

	if err := s.walletRepo.UpdateStatus(ctx, tx, wallet.ID, domain.WalletStatusClosed); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("close wallet: %w", err))
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit: %w", err))
	}

	wallet.Status = domain.WalletStatusClosed
	wallet.UpdatedAt = time.Now().UTC()

	s.log.Info().Str("wallet_id", wallet.ID.String()).Msg("wallet closed")
	return wallet, nil
}

func (s *WalletService) ownedWallet(ctx context.Context, customerID, walletID uuid.UUID) (*domain.Wallet, error) {
	wallet, err := s.walletRepo.GetByID(ctx, walletID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil || wallet.CustomerID != customerID {
		return nil, apperror.ErrWalletNotFound()
	}
	return wallet, nil
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
