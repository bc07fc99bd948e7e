package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes surfaced to callers. Callers branch on these through Is / CodeOf.
const (
	CodeWalletNotFound      = "LED_001"
	CodeCustomerNotFound    = "LED_002"
	CodeInsufficientFunds   = "LED_003"
	CodeDuplicateRequest    = "LED_004"
	CodeWalletClosed        = "LED_005"
	CodeWalletHasBalance    = "LED_006"
	CodeWalletExists        = "LED_007"
	CodeTransactionNotFound = "LED_008"
	CodeRateNotFound        = "FX_001"
	CodeSettlementRejected  = "STL_001"
	CodeEmailExists         = "AUTH_001"
	CodeInvalidCredentials  = "AUTH_002"
	CodeInvalidToken        = "AUTH_003"
	CodeForbidden           = "AUTH_004"
	CodeValidation          = "VAL_001"
	CodeInternal            = "SYS_001"
	CodeRateLimitExceeded   = "SYS_002"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// CodeOf returns the code of the first AppError in err's chain, or "".
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// Is reports whether err carries an AppError with the given code.
func Is(err error, code string) bool {
	return err != nil && CodeOf(err) == code
}

// ---- Ledger (LED) ----

func ErrWalletNotFound() *AppError {
	return New(CodeWalletNotFound, "Wallet not found", http.StatusNotFound)
}

func ErrCustomerNotFound() *AppError {
	return New(CodeCustomerNotFound, "Customer not found", http.StatusNotFound)
}

func ErrInsufficientFunds() *AppError {
	return New(CodeInsufficientFunds, "Insufficient balance in wallet", http.StatusPaymentRequired)
}

func ErrDuplicateRequest() *AppError {
	return New(CodeDuplicateRequest, "Idempotency key has already been used", http.StatusConflict)
}

func ErrWalletClosed() *AppError {
	return New(CodeWalletClosed, "Wallet is not active", http.StatusUnprocessableEntity)
}

func ErrWalletHasBalance() *AppError {
	return New(CodeWalletHasBalance, "Wallet cannot be closed while it holds a balance", http.StatusConflict)
}

func ErrWalletExists() *AppError {
	return New(CodeWalletExists, "Customer already has a wallet in this currency", http.StatusConflict)
}

func ErrTransactionNotFound() *AppError {
	return New(CodeTransactionNotFound, "Transaction not found", http.StatusNotFound)
}

// ---- Exchange (FX) ----

func ErrRateNotFound(from, to string) *AppError {
	return New(CodeRateNotFound, fmt.Sprintf("No exchange rate for %s/%s", from, to), http.StatusNotFound)
}

// ---- Settlement (STL) ----

func ErrSettlementRejected() *AppError {
	return New(CodeSettlementRejected, "Receiving bank rejected the transfer", http.StatusBadGateway)
}

// ---- Authentication (AUTH) ----

func ErrEmailExists() *AppError {
	return New(CodeEmailExists, "Email already registered", http.StatusConflict)
}

func ErrInvalidCredentials() *AppError {
	return New(CodeInvalidCredentials, "Invalid credentials", http.StatusUnauthorized)
}

func ErrInvalidToken() *AppError {
	return New(CodeInvalidToken, "Invalid or expired token", http.StatusUnauthorized)
}

func ErrForbidden(message string) *AppError {
	return New(CodeForbidden, message, http.StatusForbidden)
}

// ---- System & Infrastructure (SYS) ----

func ErrRateLimitExceeded() *AppError {
	return New(CodeRateLimitExceeded, "Rate limit exceeded", http.StatusTooManyRequests)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap(CodeInternal, "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a VAL_001 validation error.
func Validation(message string) *AppError {
	return New(CodeValidation, message, http.StatusBadRequest)
}
