package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "without wrapped error",
			appErr:   ErrInsufficientFunds(),
			expected: "[LED_003] Insufficient balance in wallet",
		},
		{
			name:     "with wrapped error",
			appErr:   Wrap(CodeInternal, "DB error", http.StatusInternalServerError, fmt.Errorf("connection refused")),
			expected: "[SYS_001] DB error: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.appErr.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	inner := fmt.Errorf("inner error")
	appErr := InternalError(inner)

	assert.True(t, errors.Is(appErr, inner))
	assert.Nil(t, ErrWalletNotFound().Unwrap())
}

func TestIs_ThroughWrapping(t *testing.T) {
	err := fmt.Errorf("apply leg: %w", ErrInsufficientFunds())

	assert.True(t, Is(err, CodeInsufficientFunds))
	assert.False(t, Is(err, CodeWalletNotFound))
	assert.False(t, Is(nil, CodeInsufficientFunds))
	assert.Equal(t, "", CodeOf(errors.New("plain")))
}

func TestTaxonomy(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
	}{
		{"WalletNotFound", ErrWalletNotFound(), "LED_001", 404},
		{"CustomerNotFound", ErrCustomerNotFound(), "LED_002", 404},
		{"InsufficientFunds", ErrInsufficientFunds(), "LED_003", 402},
		{"DuplicateRequest", ErrDuplicateRequest(), "LED_004", 409},
		{"WalletClosed", ErrWalletClosed(), "LED_005", 422},
		{"WalletHasBalance", ErrWalletHasBalance(), "LED_006", 409},
		{"WalletExists", ErrWalletExists(), "LED_007", 409},
		{"TransactionNotFound", ErrTransactionNotFound(), "LED_008", 404},
		{"RateNotFound", ErrRateNotFound("USD", "JPY"), "FX_001", 404},
		{"SettlementRejected", ErrSettlementRejected(), "STL_001", 502},
		{"EmailExists", ErrEmailExists(), "AUTH_001", 409},
		{"InvalidCredentials", ErrInvalidCredentials(), "AUTH_002", 401},
		{"InvalidToken", ErrInvalidToken(), "AUTH_003", 401},
		{"Forbidden", ErrForbidden("nope"), "AUTH_004", 403},
		{"Validation", Validation("bad"), "VAL_001", 400},
		{"RateLimit", ErrRateLimitExceeded(), "SYS_002", 429},
		{"Internal", InternalError(errors.New("x")), "SYS_001", 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
			assert.NotEmpty(t, tt.err.Message)
		})
	}
}

func TestErrRateNotFound_NamesPair(t *testing.T) {
	assert.Contains(t, ErrRateNotFound("USD", "JPY").Message, "USD/JPY")
}
