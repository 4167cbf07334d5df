package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mnemolite/mnemolite/internal/storage/pg"
)

// TransactionProvider follows the pattern described in
// https://threedots.tech/post/database-transactions-in-go/: it hides pgx
// transactions behind a callback that receives data-access adapters, so
// every multi-statement logical operation (per-file rewrite, graph build,
// batch ingest commit — spec §5) runs inside exactly one transaction.
type TransactionProvider struct {
	pool *pgxpool.Pool
}

// NewTransactionProvider creates a new TransactionProvider.
func NewTransactionProvider(pool *pgxpool.Pool) *TransactionProvider {
	return &TransactionProvider{pool: pool}
}

// Adapter bundles the repository adapters that operate inside a single
// transaction.
type Adapter struct {
	Chunks  *pg.ChunkRepository
	Graph   *pg.GraphRepository
	Errors  *pg.ErrorRepository
	Metrics *pg.MetricsRepository
}

func newAdapter(tx pgx.Tx) *Adapter {
	return &Adapter{
		Chunks:  pg.NewChunkRepository(tx),
		Graph:   pg.NewGraphRepository(tx),
		Errors:  pg.NewErrorRepository(tx),
		Metrics: pg.NewMetricsRepository(tx),
	}
}

// Transact opens a transaction, builds adapters scoped to it, and passes
// them to fn. On error or panic-free failure the transaction rolls back and
// no partial rows become visible; on success it commits.
func Transact[T any](ctx context.Context, p *TransactionProvider, fn func(*Adapter) (T, error)) (T, error) {
	var zero T
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return zero, fmt.Errorf("begin transaction: %w", err)
	}

	adapters := newAdapter(tx)

	result, err := fn(adapters)
	if err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return zero, fmt.Errorf("tx rollback failed: %v (original err: %w)", rbErr, err)
		}
		return zero, err
	}

	if err := tx.Commit(ctx); err != nil {
		return zero, fmt.Errorf("commit transaction: %w", err)
	}

	return result, nil
}
