package transfer

import (
	"context"

	"github.com/jhoicas/mayorista-api/internal/domain/repository"
)

// TxRepos repositorios atados a una misma transacción de BD.
type TxRepos struct {
	Transfers repository.TransferRepository
	Stock     repository.StockRepository
	Movements repository.StockMovementRepository
	// Savepoint ejecuta fn en una subtransacción de la transacción actual: si fn devuelve
	// error sólo se revierte lo hecho dentro de fn y la transacción externa sigue viva.
	Savepoint func(fn func(TxRepos) error) error
}

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Commit si fn devuelve nil; Rollback en cualquier otro caso.
type TxRunner interface {
	Run(ctx context.Context, fn func(repos TxRepos) error) error
}
