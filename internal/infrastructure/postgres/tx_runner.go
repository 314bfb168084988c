package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/mayorista-api/internal/application/transfer"
)

// Ensure TxRunner implements transfer.TxRunner.
var _ transfer.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// Run inicia una transacción READ COMMITTED, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
// La serialización entre confirmaciones concurrentes la dan los SELECT ... FOR UPDATE de los repos.
func (r *TxRunner) Run(ctx context.Context, fn func(repos transfer.TxRepos) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(txRepos(ctx, tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// txRepos arma los repositorios sobre tx. Savepoint usa Begin sobre la tx, que en pgx
// emite SAVEPOINT / RELEASE / ROLLBACK TO SAVEPOINT.
func txRepos(ctx context.Context, tx pgx.Tx) transfer.TxRepos {
	repos := transfer.TxRepos{
		Transfers: NewTransferRepository(tx),
		Stock:     NewStockRepository(tx),
		Movements: NewStockMovementRepository(tx),
	}
	repos.Savepoint = func(fn func(transfer.TxRepos) error) error {
		sp, err := tx.Begin(ctx)
		if err != nil {
			return fmt.Errorf("savepoint: %w", err)
		}
		if err := fn(txRepos(ctx, sp)); err != nil {
			if rbErr := sp.Rollback(ctx); rbErr != nil {
				return fmt.Errorf("rollback to savepoint: %w (causa: %v)", rbErr, err)
			}
			return err
		}
		if err := sp.Commit(ctx); err != nil {
			return fmt.Errorf("release savepoint: %w", err)
		}
		return nil
	}
	return repos
}
