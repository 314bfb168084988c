package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/mayorista-api/internal/domain"
	"github.com/jhoicas/mayorista-api/internal/domain/entity"
	"github.com/jhoicas/mayorista-api/internal/domain/repository"
)

var _ repository.StockRepository = (*StockRepo)(nil)

// StockRepo implementación de StockRepository sobre PostgreSQL (usable con pool o tx).
type StockRepo struct {
	q Querier
}

// NewStockRepository construye el adaptador de stock. Pasar pool o tx (Querier).
func NewStockRepository(q Querier) *StockRepo {
	return &StockRepo{q: q}
}

// Get obtiene las existencias de un producto para un dueño ('' = bodega). Sin bloqueo.
func (r *StockRepo) Get(ctx context.Context, productID, ownerID string) (*entity.StockPool, error) {
	query := `
		SELECT product_id, owner_id, quantity, updated_at
		FROM stock_pools WHERE product_id = $1 AND owner_id = $2`
	var p entity.StockPool
	err := r.q.QueryRow(ctx, query, productID, ownerID).Scan(
		&p.ProductID, &p.OwnerID, &p.Quantity, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &entity.StockPool{ProductID: productID, OwnerID: ownerID, Quantity: decimal.Zero}, nil
		}
		return nil, fmt.Errorf("get stock pool: %w", err)
	}
	return &p, nil
}

// LockPools asegura que existan las filas y las bloquea una por una en orden de llave,
// así dos liquidaciones que tocan los mismos pools no se bloquean mutuamente.
func (r *StockRepo) LockPools(ctx context.Context, keys []entity.PoolKey) (map[entity.PoolKey]*entity.StockPool, error) {
	sorted := make([]entity.PoolKey, 0, len(keys))
	seen := make(map[entity.PoolKey]bool, len(keys))
	for _, k := range keys {
		if !seen[k] {
			seen[k] = true
			sorted = append(sorted, k)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Less(sorted[j]) })

	insert := `
		INSERT INTO stock_pools (product_id, owner_id, quantity, updated_at)
		VALUES ($1, $2, 0, now())
		ON CONFLICT (product_id, owner_id) DO NOTHING`
	lock := `
		SELECT product_id, owner_id, quantity, updated_at
		FROM stock_pools WHERE product_id = $1 AND owner_id = $2
		FOR UPDATE`

	pools := make(map[entity.PoolKey]*entity.StockPool, len(sorted))
	for _, k := range sorted {
		if _, err := r.q.Exec(ctx, insert, k.ProductID, k.OwnerID); err != nil {
			return nil, fmt.Errorf("ensure stock pool: %w", err)
		}
		var p entity.StockPool
		if err := r.q.QueryRow(ctx, lock, k.ProductID, k.OwnerID).Scan(
			&p.ProductID, &p.OwnerID, &p.Quantity, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("lock stock pool: %w", err)
		}
		pools[k] = &p
	}
	return pools, nil
}

// SetQuantity fija la cantidad del pool. El CHECK quantity >= 0 de la tabla respalda
// la validación de la capa de aplicación.
func (r *StockRepo) SetQuantity(ctx context.Context, key entity.PoolKey, quantity decimal.Decimal) error {
	query := `
		UPDATE stock_pools SET quantity = $3, updated_at = now()
		WHERE product_id = $1 AND owner_id = $2`
	tag, err := r.q.Exec(ctx, query, key.ProductID, key.OwnerID, quantity)
	if err != nil {
		if isCheckViolation(err) {
			return &domain.InsufficientStockError{ProductID: key.ProductID}
		}
		return fmt.Errorf("set stock quantity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("set stock quantity: pool %s/%q: %w", key.ProductID, key.OwnerID, domain.ErrNotFound)
	}
	return nil
}
