package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// WarehouseOwnerID dueño del pool de la bodega central (se guarda como '' en owner_id).
const WarehouseOwnerID = ""

// StockPool existencias de un producto para un dueño: la bodega o la camioneta de un vendedor.
type StockPool struct {
	ProductID string
	OwnerID   string
	Quantity  decimal.Decimal // nunca negativo
	UpdatedAt time.Time
}

// PoolKey identifica un pool (producto, dueño).
type PoolKey struct {
	ProductID string
	OwnerID   string
}

// Key devuelve la llave del pool.
func (p *StockPool) Key() PoolKey {
	return PoolKey{ProductID: p.ProductID, OwnerID: p.OwnerID}
}

// Less orden total de llaves; los bloqueos de filas se toman en este orden.
func (k PoolKey) Less(o PoolKey) bool {
	if k.ProductID != o.ProductID {
		return k.ProductID < o.ProductID
	}
	return k.OwnerID < o.OwnerID
}
