package transfer

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/mayorista-api/internal/domain"
	"github.com/jhoicas/mayorista-api/internal/domain/entity"
)

// PendingTransfer fila del listado de traslados pendientes de una parte.
// Transfer viene sin el código de la otra parte.
type PendingTransfer struct {
	Transfer                *entity.TransferRequest
	IsAwaitingThisParty     bool
	CounterpartyDisplayName string
	ItemCount               int
	TotalQuantity           decimal.Decimal
	ExpiresAt               time.Time
	SettlementFailed        bool
}

// PartyView vista de un traslado desde la sesión de una de sus partes.
type PartyView struct {
	Transfer                *entity.TransferRequest
	Role                    entity.Role
	State                   entity.TransferState
	IsAwaitingThisParty     bool
	CounterpartyDisplayName string
	// OwnCode código de la parte; vacío cuando el traslado ya no acepta confirmaciones.
	OwnCode string
}

// ListPendingFor traslados no completados y no vencidos donde partyID es iniciador o
// contraparte, del más antiguo al más reciente. Bodega y vendedor consultan el mismo
// servicio y obtienen vistas simétricas de las mismas filas.
func (s *Service) ListPendingFor(ctx context.Context, partyID string) ([]PendingTransfer, error) {
	if partyID == "" {
		return nil, domain.ErrInvalidInput
	}
	now := s.now()
	list, err := s.transfers.ListPendingFor(ctx, partyID, now)
	if err != nil {
		return nil, err
	}

	others := make([]string, 0, len(list))
	for _, t := range list {
		others = append(others, t.OtherParty(partyID))
	}
	names, err := s.displayNames(ctx, others)
	if err != nil {
		return nil, err
	}

	out := make([]PendingTransfer, 0, len(list))
	for _, t := range list {
		if t.IsCompleted() || t.IsExpired(now) {
			continue
		}
		other := t.OtherParty(partyID)
		out = append(out, PendingTransfer{
			Transfer:                redact(t, partyID),
			IsAwaitingThisParty:     t.IsAwaiting(partyID, now),
			CounterpartyDisplayName: nameOr(names, other),
			ItemCount:               len(t.Items),
			TotalQuantity:           t.TotalQuantity(),
			ExpiresAt:               t.ExpiresAt,
			SettlementFailed:        t.SettlementFailed(),
		})
	}
	return out, nil
}

// ViewFor devuelve la vista de partyID sobre el traslado. Es el único camino por el que
// la contraparte obtiene su código.
func (s *Service) ViewFor(ctx context.Context, id, partyID string) (*PartyView, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, domain.ErrNotFound
	}
	role, ok := t.RoleOf(partyID)
	if !ok {
		return nil, domain.ErrForbidden
	}
	now := s.now()
	other := t.OtherParty(partyID)
	names, err := s.displayNames(ctx, []string{other})
	if err != nil {
		return nil, err
	}
	v := &PartyView{
		Transfer:                redact(t, partyID),
		Role:                    role,
		State:                   t.State(now),
		IsAwaitingThisParty:     t.IsAwaiting(partyID, now),
		CounterpartyDisplayName: nameOr(names, other),
	}
	if t.IsPending(now) {
		v.OwnCode = t.ExpectedOTP(role)
	}
	return v, nil
}

func (s *Service) displayNames(ctx context.Context, ids []string) (map[string]string, error) {
	if len(ids) == 0 {
		return map[string]string{}, nil
	}
	users, err := s.users.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(users))
	for _, u := range users {
		names[u.ID] = u.DisplayName()
	}
	return names, nil
}

func nameOr(names map[string]string, id string) string {
	if n, ok := names[id]; ok {
		return n
	}
	return id
}

// redact copia el traslado dejando sólo el código de partyID.
func redact(t *entity.TransferRequest, partyID string) *entity.TransferRequest {
	c := *t
	c.Items = append([]entity.TransferItem(nil), t.Items...)
	switch partyID {
	case t.InitiatorPartyID:
		c.CounterpartyOTP = ""
	case t.CounterpartyID:
		c.InitiatorOTP = ""
	default:
		c.InitiatorOTP, c.CounterpartyOTP = "", ""
	}
	return &c
}
