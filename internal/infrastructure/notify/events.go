package notify

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/mayorista-api/internal/domain/entity"
)

// EventType tipo de evento publicado; también es la routing key.
type EventType string

const (
	EventTransferCompleted        EventType = "transfer.completed"
	EventTransferSettlementFailed EventType = "transfer.settlement_failed"
)

// EventItem línea del traslado dentro del evento.
type EventItem struct {
	ProductID string          `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// TransferEvent cuerpo JSON de los mensajes. Nunca incluye los códigos OTP.
type TransferEvent struct {
	ID               uuid.UUID   `json:"id"`
	Type             EventType   `json:"type"`
	TransferID       string      `json:"transfer_id"`
	Direction        string      `json:"direction"`
	InitiatorPartyID string      `json:"initiator_party_id"`
	CounterpartyID   string      `json:"counterparty_id"`
	VanOwnerID       string      `json:"van_owner_id"`
	Items            []EventItem `json:"items"`
	Reason           string      `json:"reason,omitempty"`
	OccurredAt       time.Time   `json:"occurred_at"`
}

func newTransferEvent(eventType EventType, t *entity.TransferRequest, reason string, at time.Time) TransferEvent {
	items := make([]EventItem, 0, len(t.Items))
	for _, it := range t.Items {
		items = append(items, EventItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return TransferEvent{
		ID:               uuid.New(),
		Type:             eventType,
		TransferID:       t.ID,
		Direction:        t.Direction.String(),
		InitiatorPartyID: t.InitiatorPartyID,
		CounterpartyID:   t.CounterpartyID,
		VanOwnerID:       t.VanOwnerID(),
		Items:            items,
		Reason:           reason,
		OccurredAt:       at,
	}
}
