package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/mayorista-api/internal/domain/entity"
	"github.com/jhoicas/mayorista-api/internal/domain/repository"
)

var _ repository.StockMovementRepository = (*StockMovementRepo)(nil)

// StockMovementRepo implementación sobre PostgreSQL (usable con pool o tx).
type StockMovementRepo struct {
	q Querier
}

// NewStockMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockMovementRepository(q Querier) *StockMovementRepo {
	return &StockMovementRepo{q: q}
}

// Create persiste un movimiento y asigna el ID generado por la secuencia.
func (r *StockMovementRepo) Create(ctx context.Context, m *entity.StockMovement) error {
	query := `
		INSERT INTO stock_movements (transfer_id, product_id, owner_id, delta, qty_before, qty_after, created_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	err := r.q.QueryRow(ctx, query,
		m.TransferID, m.ProductID, m.OwnerID, m.Delta, m.Before, m.After, m.CreatedAt, m.CreatedBy,
	).Scan(&m.ID)
	if err != nil {
		return fmt.Errorf("create stock movement: %w", err)
	}
	return nil
}

// ListByTransfer lista los movimientos de un traslado en orden de inserción.
func (r *StockMovementRepo) ListByTransfer(ctx context.Context, transferID string) ([]*entity.StockMovement, error) {
	query := `
		SELECT id, transfer_id::text, product_id, owner_id, delta, qty_before, qty_after, created_at, created_by
		FROM stock_movements WHERE transfer_id = $1
		ORDER BY id`
	rows, err := r.q.Query(ctx, query, transferID)
	if err != nil {
		return nil, fmt.Errorf("list by transfer: %w", err)
	}
	defer rows.Close()
	var list []*entity.StockMovement
	for rows.Next() {
		var m entity.StockMovement
		if err := rows.Scan(&m.ID, &m.TransferID, &m.ProductID, &m.OwnerID,
			&m.Delta, &m.Before, &m.After, &m.CreatedAt, &m.CreatedBy); err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		list = append(list, &m)
	}
	return list, rows.Err()
}
