package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// HealthCheck reports database connectivity.
type HealthCheck struct {
	pool *pgxpool.Pool
}

// NewHealthCheck creates a database health check.
func NewHealthCheck(pool *pgxpool.Pool) *HealthCheck {
	return &HealthCheck{pool: pool}
}

func (h *HealthCheck) Name() string { return "postgres" }

func (h *HealthCheck) Ping(ctx context.Context) error {
	return h.pool.Ping(ctx)
}
