package repository

import (
	"context"

	"github.com/jhoicas/mayorista-api/internal/domain/entity"
)

// StockMovementRepository puerto del libro de movimientos (sólo inserción).
type StockMovementRepository interface {
	Create(ctx context.Context, m *entity.StockMovement) error
	ListByTransfer(ctx context.Context, transferID string) ([]*entity.StockMovement, error)
}
