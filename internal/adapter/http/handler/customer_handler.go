package handler

import (
	"wallet-ledger/internal/adapter/http/dto"
	"wallet-ledger/internal/adapter/http/middleware"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"
	"wallet-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// CustomerHandler serves the authenticated customer's profile.
type CustomerHandler struct {
	customerSvc ports.CustomerService
}

func NewCustomerHandler(customerSvc ports.CustomerService) *CustomerHandler {
	return &CustomerHandler{customerSvc: customerSvc}
}

// GetProfile handles GET /api/v1/customers/me.
func (h *CustomerHandler) GetProfile(c *gin.Context) {
	customerID, ok := middleware.CustomerID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	customer, err := h.customerSvc.GetProfile(c.Request.Context(), customerID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewCustomerResponse(customer))
}
