package handler

import (
	"context"

	"wallet-ledger/internal/adapter/http/dto"
	"wallet-ledger/internal/adapter/http/middleware"
	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"
	"wallet-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// PaymentHandler exposes the money operations. The acting customer is taken
// from the token and must own the source of funds.
type PaymentHandler struct {
	orchestrator ports.PaymentOrchestrator
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(orchestrator ports.PaymentOrchestrator) *PaymentHandler {
	return &PaymentHandler{orchestrator: orchestrator}
}

// Deposit handles POST /api/v1/payments/deposit.
func (h *PaymentHandler) Deposit(c *gin.Context) {
	var req dto.DepositRequest
	if !bindPayment(c, &req) || !actingAs(c, req.CustomerEmail) {
		return
	}
	h.respond(c, func(ctx context.Context) (*domain.Transaction, error) {
		return h.orchestrator.Deposit(ctx, ports.DepositRequest{
			IdempotencyKey: req.IdempotencyKey,
			CustomerEmail:  req.CustomerEmail,
			Amount:         req.Amount,
			Currency:       req.Currency,
			Description:    req.Description,
		})
	})
}

// Withdraw handles POST /api/v1/payments/withdraw.
func (h *PaymentHandler) Withdraw(c *gin.Context) {
	var req dto.WithdrawRequest
	if !bindPayment(c, &req) || !actingAs(c, req.CustomerEmail) {
		return
	}
	h.respond(c, func(ctx context.Context) (*domain.Transaction, error) {
		return h.orchestrator.Withdraw(ctx, ports.WithdrawRequest{
			IdempotencyKey: req.IdempotencyKey,
			CustomerEmail:  req.CustomerEmail,
			Amount:         req.Amount,
			Currency:       req.Currency,
			Description:    req.Description,
		})
	})
}

// Transfer handles POST /api/v1/payments/transfer.
func (h *PaymentHandler) Transfer(c *gin.Context) {
	var req dto.TransferRequest
	if !bindPayment(c, &req) || !actingAs(c, req.FromEmail) {
		return
	}
	h.respond(c, func(ctx context.Context) (*domain.Transaction, error) {
		return h.orchestrator.Transfer(ctx, ports.TransferRequest{
			IdempotencyKey: req.IdempotencyKey,
			FromEmail:      req.FromEmail,
			ToEmail:        req.ToEmail,
			Amount:         req.Amount,
			Currency:       req.Currency,
			TargetCurrency: req.TargetCurrency,
			Description:    req.Description,
		})
	})
}

// TradeFX handles POST /api/v1/payments/fx.
func (h *PaymentHandler) TradeFX(c *gin.Context) {
	var req dto.FXTradeRequest
	if !bindPayment(c, &req) || !actingAs(c, req.CustomerEmail) {
		return
	}
	h.respond(c, func(ctx context.Context) (*domain.Transaction, error) {
		return h.orchestrator.TradeFX(ctx, ports.FXTradeRequest{
			IdempotencyKey: req.IdempotencyKey,
			CustomerEmail:  req.CustomerEmail,
			Amount:         req.Amount,
			FromCurrency:   req.FromCurrency,
			ToCurrency:     req.ToCurrency,
		})
	})
}

// ExternalTransfer handles POST /api/v1/payments/external.
func (h *PaymentHandler) ExternalTransfer(c *gin.Context) {
	var req dto.ExternalTransferRequest
	if !bindPayment(c, &req) || !actingAs(c, req.FromEmail) {
		return
	}
	h.respond(c, func(ctx context.Context) (*domain.Transaction, error) {
		return h.orchestrator.ExternalTransfer(ctx, ports.ExternalTransferRequest{
			IdempotencyKey: req.IdempotencyKey,
			FromEmail:      req.FromEmail,
			ToIBAN:         req.ToIBAN,
			SwiftCode:      req.SwiftCode,
			ReceiverName:   req.ReceiverName,
			Amount:         req.Amount,
			Currency:       req.Currency,
			Description:    req.Description,
		})
	})
}

func (h *PaymentHandler) respond(c *gin.Context, op func(context.Context) (*domain.Transaction, error)) {
	txn, err := op(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Set(middleware.CtxAuditResourceID, txn.ID.String())
	response.Created(c, dto.NewTransactionResponse(txn))
}

func bindPayment(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return false
	}
	dto.SanitizeStruct(req)
	return true
}

// actingAs rejects requests that move another customer's money.
func actingAs(c *gin.Context, sourceEmail string) bool {
	email, ok := middleware.CustomerEmail(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return false
	}
	if domain.NormalizeEmail(sourceEmail) != domain.NormalizeEmail(email) {
		response.Error(c, apperror.ErrForbidden("You can only move money out of your own wallets"))
		return false
	}
	return true
}
