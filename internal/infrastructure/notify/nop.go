package notify

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/jhoicas/mayorista-api/internal/application/ports"
	"github.com/jhoicas/mayorista-api/internal/domain/entity"
)

var _ ports.TransferNotifier = (*Nop)(nil)

// Nop notificador usado cuando no hay broker configurado: sólo deja rastro en el log.
type Nop struct {
	log zerolog.Logger
}

// NewNop construye el notificador sin broker.
func NewNop(log zerolog.Logger) *Nop {
	return &Nop{log: log}
}

func (n *Nop) TransferCompleted(_ context.Context, t *entity.TransferRequest) error {
	n.log.Debug().Str("transfer_id", t.ID).Msg("evento transfer.completed (sin broker)")
	return nil
}

func (n *Nop) SettlementFailed(_ context.Context, t *entity.TransferRequest, reason string) error {
	n.log.Debug().Str("transfer_id", t.ID).Str("reason", reason).Msg("evento transfer.settlement_failed (sin broker)")
	return nil
}
