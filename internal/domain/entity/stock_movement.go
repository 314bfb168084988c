package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockMovement registro inmutable del libro de existencias. Uno por (producto, pool)
// afectado en una liquidación; nunca se actualiza ni se borra.
type StockMovement struct {
	ID         int64
	TransferID string
	ProductID  string
	OwnerID    string
	Delta      decimal.Decimal // negativo en el pool origen, positivo en el destino
	Before     decimal.Decimal
	After      decimal.Decimal
	CreatedAt  time.Time
	CreatedBy  string // UserID de quien liquidó
}
