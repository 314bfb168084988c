package repository

import (
	"context"

	"github.com/jhoicas/mayorista-api/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// StockRepository define el puerto para consultar/actualizar pools de existencias por producto+dueño.
// Usado dentro de transacciones para garantizar consistencia.
type StockRepository interface {
	// Get devuelve el pool o uno en cero si no existe (sin bloquear).
	Get(ctx context.Context, productID, ownerID string) (*entity.StockPool, error)
	// LockPools crea las filas faltantes en cero y las bloquea (SELECT FOR UPDATE)
	// en el orden de PoolKey.Less.
	LockPools(ctx context.Context, keys []entity.PoolKey) (map[entity.PoolKey]*entity.StockPool, error)
	SetQuantity(ctx context.Context, key entity.PoolKey, quantity decimal.Decimal) error
}
