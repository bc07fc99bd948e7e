package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CtxAuditResourceID lets a handler name the resource it touched.
const CtxAuditResourceID = "audit_resource_id"

// AuditLog records successful mutating requests through the audit service.
// Routes are matched by their registered pattern, not the raw path.
func AuditLog(auditSvc ports.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Status() < 200 || c.Writer.Status() >= 300 {
			return
		}
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			return
		}

		action, resourceType := mapRouteToAction(c.FullPath(), c.Request.Method)
		if action == "" {
			return
		}

		var customerID *uuid.UUID
		if id, ok := CustomerID(c); ok {
			customerID = &id
		}

		resourceID := c.GetString(CtxAuditResourceID)
		if resourceID == "" {
			resourceID = c.Param("id")
		}

		details, _ := json.Marshal(map[string]interface{}{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"status": c.Writer.Status(),
		})

		auditSvc.Log(c.Request.Context(), &domain.AuditLog{
			CustomerID:   customerID,
			Action:       action,
			ResourceType: resourceType,
			ResourceID:   resourceID,
			IPAddress:    c.ClientIP(),
			Details:      string(details),
		})
	}
}

func mapRouteToAction(route, method string) (domain.AuditAction, string) {
	route = strings.TrimPrefix(route, "/api/v1")
	switch {
	case route == "/auth/register" && method == http.MethodPost:
		return domain.AuditActionRegister, "customer"
	case route == "/auth/login" && method == http.MethodPost:
		return domain.AuditActionLogin, "session"
	case route == "/wallets" && method == http.MethodPost:
		return domain.AuditActionCreateWallet, "wallet"
	case route == "/wallets/:id/close" && method == http.MethodPost:
		return domain.AuditActionCloseWallet, "wallet"
	case route == "/payments/deposit" && method == http.MethodPost:
		return domain.AuditActionDeposit, "transaction"
	case route == "/payments/withdraw" && method == http.MethodPost:
		return domain.AuditActionWithdraw, "transaction"
	case route == "/payments/transfer" && method == http.MethodPost:
		return domain.AuditActionTransfer, "transaction"
	case route == "/payments/fx" && method == http.MethodPost:
		return domain.AuditActionFXTrade, "transaction"
	case route == "/payments/external" && method == http.MethodPost:
		return domain.AuditActionExternalTransfer, "transaction"
	case route == "/rates" && method == http.MethodPut:
		return domain.AuditActionUpsertRate, "exchange_rate"
	}
	return "", ""
}
