package handler

import (
	"wallet-ledger/internal/adapter/http/dto"
	"wallet-ledger/internal/adapter/http/middleware"
	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"
	"wallet-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TransactionHandler serves transaction history.
type TransactionHandler struct {
	reportingSvc ports.ReportingService
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(reportingSvc ports.ReportingService) *TransactionHandler {
	return &TransactionHandler{reportingSvc: reportingSvc}
}

// List handles GET /api/v1/transactions.
func (h *TransactionHandler) List(c *gin.Context) {
	customerID, ok := middleware.CustomerID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var q dto.TransactionListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	query := ports.TransactionQuery{
		CustomerID: customerID,
		Page:       q.Page,
		PageSize:   q.PageSize,
	}
	if query.Page == 0 {
		query.Page = 1
	}
	if query.PageSize == 0 {
		query.PageSize = 20
	}
	if q.Status != "" {
		s := domain.TransactionStatus(q.Status)
		query.Status = &s
	}
	if q.Type != "" {
		t := domain.TransactionType(q.Type)
		query.Type = &t
	}

	txns, total, err := h.reportingSvc.ListTransactions(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, dto.NewTransactionResponses(txns), total, query.Page, query.PageSize)
}

// Get handles GET /api/v1/transactions/:id.
func (h *TransactionHandler) Get(c *gin.Context) {
	customerID, ok := middleware.CustomerID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid transaction id"))
		return
	}

	txn, err := h.reportingSvc.GetTransaction(c.Request.Context(), customerID, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewTransactionResponse(txn))
}

// Balances handles GET /api/v1/wallets/:id/balances.
func (h *TransactionHandler) Balances(c *gin.Context) {
	customerID, ok := middleware.CustomerID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}
	walletID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid wallet id"))
		return
	}

	balances, err := h.reportingSvc.GetBalances(c.Request.Context(), customerID, walletID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewBalanceResponses(balances))
}
