package repository

import (
	"context"

	"github.com/jhoicas/mayorista-api/internal/domain/entity"
)

// ProductRepository define el puerto de lectura de productos (DIP).
type ProductRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Product, error)
}
