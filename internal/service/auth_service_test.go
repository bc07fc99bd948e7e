package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/internal/core/ports/mocks"
	"wallet-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func setupAuthService(t *testing.T) (
	*AuthServiceImpl,
	*mocks.MockCustomerRepository,
	*mocks.MockHashService,
	*mocks.MockTokenService,
) {
	ctrl := gomock.NewController(t)
	customerRepo := mocks.NewMockCustomerRepository(ctrl)
	hashSvc := mocks.NewMockHashService(ctrl)
	tokenSvc := mocks.NewMockTokenService(ctrl)

	return NewAuthService(customerRepo, hashSvc, tokenSvc), customerRepo, hashSvc, tokenSvc
}

func TestAuthService_Register_Success(t *testing.T) {
	svc, customerRepo, hashSvc, _ := setupAuthService(t)
	ctx := context.Background()

	customerRepo.EXPECT().GetByEmail(ctx, "alice@example.com").Return(nil, nil)
	hashSvc.EXPECT().Hash("StrongP@ss123").Return("$argon2id$hashed", nil)
	customerRepo.EXPECT().Create(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, c *domain.Customer) error {
			assert.Equal(t, "alice@example.com", c.Email)
			assert.Equal(t, "$argon2id$hashed", c.PasswordHash)
			return nil
		})

	customer, err := svc.Register(ctx, ports.RegisterRequest{
		Name:     "  Alice  ",
		Email:    " Alice@Example.COM ",
		Password: "StrongP@ss123",
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, customer.ID)
	assert.Equal(t, "Alice", customer.Name)
	assert.Equal(t, "alice@example.com", customer.Email)
}

func TestAuthService_Register_EmailExists(t *testing.T) {
	svc, customerRepo, _, _ := setupAuthService(t)
	ctx := context.Background()

	customerRepo.EXPECT().GetByEmail(ctx, "alice@example.com").Return(&domain.Customer{ID: uuid.New()}, nil)

	_, err := svc.Register(ctx, ports.RegisterRequest{Name: "Alice", Email: "ALICE@example.com", Password: "StrongP@ss123"})
	assertAppError(t, err, apperror.CodeEmailExists)
}

func TestAuthService_Register_RaceOnInsert(t *testing.T) {
	svc, customerRepo, hashSvc, _ := setupAuthService(t)
	ctx := context.Background()

	customerRepo.EXPECT().GetByEmail(ctx, "alice@example.com").Return(nil, nil)
	hashSvc.EXPECT().Hash(gomock.Any()).Return("h", nil)
	customerRepo.EXPECT().Create(ctx, gomock.Any()).Return(fmt.Errorf("create customer: %w", ports.ErrConflict))

	_, err := svc.Register(ctx, ports.RegisterRequest{Name: "Alice", Email: "alice@example.com", Password: "StrongP@ss123"})
	assertAppError(t, err, apperror.CodeEmailExists)
}

func TestAuthService_Register_Validation(t *testing.T) {
	svc, _, _, _ := setupAuthService(t)

	tests := []struct {
		name string
		req  ports.RegisterRequest
	}{
		{"missing name", ports.RegisterRequest{Email: "a@b.c", Password: "StrongP@ss123"}},
		{"bad email", ports.RegisterRequest{Name: "A", Email: "not-an-email", Password: "StrongP@ss123"}},
		{"short password", ports.RegisterRequest{Name: "A", Email: "a@b.c", Password: "short"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tc.req)
			assertAppError(t, err, apperror.CodeValidation)
		})
	}
}

func TestAuthService_Register_RepoError(t *testing.T) {
	svc, customerRepo, _, _ := setupAuthService(t)

	customerRepo.EXPECT().GetByEmail(gomock.Any(), gomock.Any()).Return(nil, errors.New("db down"))

	_, err := svc.Register(context.Background(), ports.RegisterRequest{Name: "A", Email: "a@b.c", Password: "StrongP@ss123"})
	assertAppError(t, err, apperror.CodeInternal)
}

func TestAuthService_Login_Success(t *testing.T) {
	svc, customerRepo, hashSvc, tokenSvc := setupAuthService(t)
	ctx := context.Background()

	customer := &domain.Customer{ID: uuid.New(), Email: "alice@example.com", PasswordHash: "$argon2id$hashed"}
	expiry := time.Now().Add(24 * time.Hour)

	customerRepo.EXPECT().GetByEmail(ctx, "alice@example.com").Return(customer, nil)
	hashSvc.EXPECT().Verify("StrongP@ss123", "$argon2id$hashed").Return(true, nil)
	tokenSvc.EXPECT().Generate(customer.ID, "alice@example.com").Return("jwt-token", expiry, nil)

	token, exp, err := svc.Login(ctx, "Alice@Example.com", "StrongP@ss123")
	require.NoError(t, err)
	assert.Equal(t, "jwt-token", token)
	assert.Equal(t, expiry, exp)
}

func TestAuthService_Login_UnknownEmail(t *testing.T) {
	svc, customerRepo, _, _ := setupAuthService(t)

	customerRepo.EXPECT().GetByEmail(gomock.Any(), "ghost@example.com").Return(nil, nil)

	_, _, err := svc.Login(context.Background(), "ghost@example.com", "whatever")
	assertAppError(t, err, apperror.CodeInvalidCredentials)
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	svc, customerRepo, hashSvc, _ := setupAuthService(t)

	customerRepo.EXPECT().GetByEmail(gomock.Any(), gomock.Any()).Return(&domain.Customer{PasswordHash: "h"}, nil)
	hashSvc.EXPECT().Verify("wrong", "h").Return(false, nil)

	_, _, err := svc.Login(context.Background(), "alice@example.com", "wrong")
	assertAppError(t, err, apperror.CodeInvalidCredentials)
}

func TestAuthService_Login_MalformedStoredHash(t *testing.T) {
	svc, customerRepo, hashSvc, _ := setupAuthService(t)

	customerRepo.EXPECT().GetByEmail(gomock.Any(), gomock.Any()).Return(&domain.Customer{PasswordHash: "garbage"}, nil)
	hashSvc.EXPECT().Verify(gomock.Any(), "garbage").Return(false, errMalformedHash)

	_, _, err := svc.Login(context.Background(), "alice@example.com", "pw")
	assertAppError(t, err, apperror.CodeInternal)
}
