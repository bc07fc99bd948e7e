package postgres

import (
	"context"
	"fmt"
)

// HealthCheck reports whether PostgreSQL is reachable and migrated.
type HealthCheck struct {
	pool Pool
}

func NewHealthCheck(pool Pool) *HealthCheck {
	return &HealthCheck{pool: pool}
}

// Ping touches the balances table so a server without the schema reports unhealthy.
func (h *HealthCheck) Ping(ctx context.Context) error {
	if _, err := h.pool.Exec(ctx, "SELECT 1 FROM wallet_balances LIMIT 1"); err != nil {
		return fmt.Errorf("postgres health: %w", err)
	}
	return nil
}

func (h *HealthCheck) Name() string {
	return "postgresql"
}
