package repository

import (
	"context"
	"time"

	"github.com/jhoicas/mayorista-api/internal/domain/entity"
)

// TransferRepository define el puerto de persistencia para traslados con doble confirmación.
type TransferRepository interface {
	Create(ctx context.Context, t *entity.TransferRequest) error
	// GetByID devuelve nil, nil si no existe.
	GetByID(ctx context.Context, id string) (*entity.TransferRequest, error)
	// GetForUpdate igual que GetByID pero bloquea la fila hasta el fin de la transacción.
	GetForUpdate(ctx context.Context, id string) (*entity.TransferRequest, error)
	SaveConfirmation(ctx context.Context, id string, role entity.Role, c entity.Confirmation) error
	MarkCompleted(ctx context.Context, id string, at time.Time) error
	MarkSettlementFailed(ctx context.Context, id string, at time.Time, reason string) error
	// ListPendingFor traslados no completados ni vencidos donde partyID es una de las partes,
	// del más antiguo al más reciente.
	ListPendingFor(ctx context.Context, partyID string, now time.Time) ([]*entity.TransferRequest, error)
}
