package service

import (
	"context"
	"fmt"
	"testing"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/internal/core/ports/mocks"
	"wallet-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type walletTestDeps struct {
	svc          *WalletService
	customerRepo *mocks.MockCustomerRepository
	walletRepo   *mocks.MockWalletRepository
	balanceRepo  *mocks.MockBalanceRepository
	transactor   *mocks.MockDBTransactor
}

func setupWalletService(t *testing.T) *walletTestDeps {
	ctrl := gomock.NewController(t)
	d := &walletTestDeps{
		customerRepo: mocks.NewMockCustomerRepository(ctrl),
		walletRepo:   mocks.NewMockWalletRepository(ctrl),
		balanceRepo:  mocks.NewMockBalanceRepository(ctrl),
		transactor:   mocks.NewMockDBTransactor(ctrl),
	}
	d.svc = NewWalletService(d.customerRepo, d.walletRepo, d.balanceRepo, d.transactor, zerolog.Nop())
	return d
}

func TestWalletService_CreateWallet_Success(t *testing.T) {
	d := setupWalletService(t)
	customer := &domain.Customer{ID: uuid.New()}
	iban := " TR330006100519786457841326 "
	blank := "  "

	d.customerRepo.EXPECT().GetByID(gomock.Any(), customer.ID).Return(customer, nil)
	d.transactor.EXPECT().Begin(gomock.Any()).Return(&mockTx{}, nil)
	d.walletRepo.EXPECT().Create(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	d.balanceRepo.EXPECT().LockForUpdate(gomock.Any(), gomock.Any(), gomock.Any(), "EUR").
		DoAndReturn(func(_ context.Context, _ pgx.Tx, walletID uuid.UUID, cur string) (*domain.WalletBalance, error) {
			return &domain.WalletBalance{WalletID: walletID, Currency: cur, Amount: decimal.Zero}, nil
		})

	w, err := d.svc.CreateWallet(context.Background(), ports.CreateWalletRequest{
		CustomerID: customer.ID,
		Currency:   "eur",
		IBAN:       &iban,
		BankName:   &blank,
	})
	require.NoError(t, err)
	assert.Equal(t, "EUR", w.Currency)
	assert.Equal(t, domain.WalletStatusActive, w.Status)
	require.NotNil(t, w.IBAN)
	assert.Equal(t, "TR330006100519786457841326", *w.IBAN)
	assert.Nil(t, w.BankName)
}

func TestWalletService_CreateWallet_Exists(t *testing.T) {
	d := setupWalletService(t)
	customer := &domain.Customer{ID: uuid.New()}

	d.customerRepo.EXPECT().GetByID(gomock.Any(), customer.ID).Return(customer, nil)
	d.transactor.EXPECT().Begin(gomock.Any()).Return(&mockTx{}, nil)
	d.walletRepo.EXPECT().Create(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(fmt.Errorf("insert wallet: %w", ports.ErrConflict))

	_, err := d.svc.CreateWallet(context.Background(), ports.CreateWalletRequest{CustomerID: customer.ID, Currency: "USD"})
	assertAppError(t, err, apperror.CodeWalletExists)
}

func TestWalletService_CreateWallet_InvalidCurrency(t *testing.T) {
	d := setupWalletService(t)

	_, err := d.svc.CreateWallet(context.Background(), ports.CreateWalletRequest{CustomerID: uuid.New(), Currency: "US"})
	assertAppError(t, err, apperror.CodeValidation)
}

func TestWalletService_CreateWallet_UnknownCustomer(t *testing.T) {
	d := setupWalletService(t)
	d.customerRepo.EXPECT().GetByID(gomock.Any(), gomock.Any()).Return(nil, nil)

	_, err := d.svc.CreateWallet(context.Background(), ports.CreateWalletRequest{CustomerID: uuid.New(), Currency: "USD"})
	assertAppError(t, err, apperror.CodeCustomerNotFound)
}

func TestWalletService_GetWallet(t *testing.T) {
	d := setupWalletService(t)
	owner := uuid.New()
	w := &domain.Wallet{ID: uuid.New(), CustomerID: owner, Currency: "USD", Status: domain.WalletStatusActive}
	balances := []domain.WalletBalance{{WalletID: w.ID, Currency: "USD", Amount: amt("10")}}

	d.walletRepo.EXPECT().GetByID(gomock.Any(), w.ID).Return(w, nil)
	d.balanceRepo.EXPECT().ListByWallet(gomock.Any(), w.ID).Return(balances, nil)

	details, err := d.svc.GetWallet(context.Background(), owner, w.ID)
	require.NoError(t, err)
	assert.Equal(t, *w, details.Wallet)
	assert.Equal(t, balances, details.Balances)
}

func TestWalletService_GetWallet_OtherCustomerIsNotFound(t *testing.T) {
	d := setupWalletService(t)
	w := &domain.Wallet{ID: uuid.New(), CustomerID: uuid.New()}

	d.walletRepo.EXPECT().GetByID(gomock.Any(), w.ID).Return(w, nil)

	_, err := d.svc.GetWallet(context.Background(), uuid.New(), w.ID)
	assertAppError(t, err, apperror.CodeWalletNotFound)
}

func TestWalletService_CloseWallet_Empty(t *testing.T) {
	d := setupWalletService(t)
	owner := uuid.New()
	w := &domain.Wallet{ID: uuid.New(), CustomerID: owner, Status: domain.WalletStatusActive}

	d.transactor.EXPECT().Begin(gomock.Any()).Return(&mockTx{}, nil)
	gomock.InOrder(
		d.walletRepo.EXPECT().GetByIDForUpdate(gomock.Any(), gomock.Any(), w.ID).Return(w, nil),
		d.balanceRepo.EXPECT().ListByWalletForUpdate(gomock.Any(), gomock.Any(), w.ID).Return([]domain.WalletBalance{
			{WalletID: w.ID, Currency: "USD", Amount: decimal.Zero},
			{WalletID: w.ID, Currency: "EUR", Amount: amt("0.0000")},
		}, nil),
		d.walletRepo.EXPECT().UpdateStatus(gomock.Any(), gomock.Any(), w.ID, domain.WalletStatusClosed).Return(nil),
	)

	closed, err := d.svc.CloseWallet(context.Background(), owner, w.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.WalletStatusClosed, closed.Status)
}

func TestWalletService_CloseWallet_HasBalance(t *testing.T) {
	d := setupWalletService(t)
	owner := uuid.New()
	w := &domain.Wallet{ID: uuid.New(), CustomerID: owner, Status: domain.WalletStatusActive}

	d.transactor.EXPECT().Begin(gomock.Any()).Return(&mockTx{}, nil)
	d.walletRepo.EXPECT().GetByIDForUpdate(gomock.Any(), gomock.Any(), w.ID).Return(w, nil)
	d.balanceRepo.EXPECT().ListByWalletForUpdate(gomock.Any(), gomock.Any(), w.ID).Return([]domain.WalletBalance{
		{WalletID: w.ID, Currency: "USD", Amount: decimal.Zero},
		{WalletID: w.ID, Currency: "TRY", Amount: amt("0.0001")},
	}, nil)

	_, err := d.svc.CloseWallet(context.Background(), owner, w.ID)
	assertAppError(t, err, apperror.CodeWalletHasBalance)
}

func TestWalletService_CloseWallet_AlreadyClosed(t *testing.T) {
	d := setupWalletService(t)
	owner := uuid.New()
	w := &domain.Wallet{ID: uuid.New(), CustomerID: owner, Status: domain.WalletStatusClosed}

	d.transactor.EXPECT().Begin(gomock.Any()).Return(&mockTx{}, nil)
	d.walletRepo.EXPECT().GetByIDForUpdate(gomock.Any(), gomock.Any(), w.ID).Return(w, nil)

	closed, err := d.svc.CloseWallet(context.Background(), owner, w.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.WalletStatusClosed, closed.Status)
}

func TestWalletService_CloseWallet_NotOwner(t *testing.T) {
	d := setupWalletService(t)
	w := &domain.Wallet{ID: uuid.New(), CustomerID: uuid.New(), Status: domain.WalletStatusActive}

	d.transactor.EXPECT().Begin(gomock.Any()).Return(&mockTx{}, nil)
	d.walletRepo.EXPECT().GetByIDForUpdate(gomock.Any(), gomock.Any(), w.ID).Return(w, nil)

	_, err := d.svc.CloseWallet(context.Background(), uuid.New(), w.ID)
	assertAppError(t, err, apperror.CodeWalletNotFound)
}
