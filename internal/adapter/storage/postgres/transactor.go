package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Transactor hands out database transactions from the pool. Services
// reach it through ports.DBTransactor, so tests can substitute a no-op
// transaction.
type Transactor struct {
	pool Pool
}

// NewTransactor creates a Transactor over the pool.
func NewTransactor(pool Pool) *Transactor {
	return &Transactor{pool: pool}
}

// Begin opens a transaction.
func (t *Transactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return t.pool.Begin(ctx)
}
