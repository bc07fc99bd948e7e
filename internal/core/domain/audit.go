package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of audited action.
type AuditAction string

const (
	AuditActionRegister         AuditAction = "REGISTER"
	AuditActionLogin            AuditAction = "LOGIN"
	AuditActionCreateWallet     AuditAction = "CREATE_WALLET"
	AuditActionCloseWallet      AuditAction = "CLOSE_WALLET"
	AuditActionDeposit          AuditAction = "DEPOSIT"
	AuditActionWithdraw         AuditAction = "WITHDRAW"
	AuditActionTransfer         AuditAction = "TRANSFER"
	AuditActionFXTrade          AuditAction = "FX_TRADE"
	AuditActionExternalTransfer AuditAction = "EXTERNAL_TRANSFER"
	AuditActionUpsertRate       AuditAction = "UPSERT_RATE"
)

// AuditLog records a single audited action in the system.
type AuditLog struct {
	ID           uuid.UUID   `json:"id"`
	CustomerID   *uuid.UUID  `json:"customer_id,omitempty"`
	Action       AuditAction `json:"action"`
	ResourceType string      `json:"resource_type"`
	ResourceID   string      `json:"resource_id,omitempty"`
	Details      string      `json:"details,omitempty"` // JSON string
	IPAddress    string      `json:"ip_address"`
	CreatedAt    time.Time   `json:"created_at"`
}
