package repository

import (
	"context"

	"github.com/jhoicas/mayorista-api/internal/domain/entity"
)

// UserRepository define el puerto de lectura de usuarios (DIP).
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*entity.User, error)
	ListByIDs(ctx context.Context, ids []string) ([]*entity.User, error)
}
