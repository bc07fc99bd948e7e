package handler

import (
	"wallet-ledger/internal/adapter/http/dto"
	"wallet-ledger/internal/adapter/http/middleware"
	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"
	"wallet-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// RateHandler serves and maintains exchange rates.
type RateHandler struct {
	fx ports.ExchangeRateService
}

// NewRateHandler creates a new RateHandler.
func NewRateHandler(fx ports.ExchangeRateService) *RateHandler {
	return &RateHandler{fx: fx}
}

// List handles GET /api/v1/rates.
func (h *RateHandler) List(c *gin.Context) {
	rates, err := h.fx.ListRates(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.RateResponse, 0, len(rates))
	for i := range rates {
		items = append(items, dto.NewRateResponse(&rates[i]))
	}
	response.OK(c, items)
}

// Get handles GET /api/v1/rates/:from/:to.
func (h *RateHandler) Get(c *gin.Context) {
	from := domain.NormalizeCurrency(c.Param("from"))
	to := domain.NormalizeCurrency(c.Param("to"))
	if !domain.IsCurrencyCode(from) || !domain.IsCurrencyCode(to) {
		response.Error(c, apperror.Validation("currency must be a 3-letter code"))
		return
	}

	rate, err := h.fx.Rate(c.Request.Context(), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.RateResponse{From: from, To: to, Rate: rate})
}

// Upsert handles PUT /api/v1/rates.
func (h *RateHandler) Upsert(c *gin.Context) {
	var req dto.UpsertRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	rate, err := h.fx.UpsertRate(c.Request.Context(), req.From, req.To, req.Rate)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxAuditResourceID, rate.From+"/"+rate.To)
	response.OK(c, dto.NewRateResponse(rate))
}
