package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransferItemDTO línea de un traslado.
type TransferItemDTO struct {
	ProductID string          `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// CreateTransferRequest entrada para crear un traslado. El iniciador es el usuario del token.
type CreateTransferRequest struct {
	Direction      string            `json:"direction" validate:"required,oneof=warehouse_to_van van_to_warehouse"`
	CounterpartyID string            `json:"counterparty_id" validate:"required"`
	Items          []TransferItemDTO `json:"items" validate:"required,min=1"`
	Note           string            `json:"note"`
}

// CreateTransferResponse salida de la creación. Sólo lleva el código del iniciador:
// la contraparte lee el suyo desde GET /api/transfers/:id con su propia sesión.
type CreateTransferResponse struct {
	ID           string    `json:"id"`
	Direction    string    `json:"direction"`
	InitiatorOTP string    `json:"initiator_otp"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// TransferResponse traslado sin códigos.
type TransferResponse struct {
	ID                      string            `json:"id"`
	Direction               string            `json:"direction"`
	InitiatorPartyID        string            `json:"initiator_party_id"`
	CounterpartyID          string            `json:"counterparty_id"`
	Items                   []TransferItemDTO `json:"items"`
	Note                    string            `json:"note,omitempty"`
	State                   string            `json:"state"`
	CreatedAt               time.Time         `json:"created_at"`
	ExpiresAt               time.Time         `json:"expires_at"`
	InitiatorConfirmedAt    *time.Time        `json:"initiator_confirmed_at,omitempty"`
	CounterpartyConfirmedAt *time.Time        `json:"counterparty_confirmed_at,omitempty"`
	CompletedAt             *time.Time        `json:"completed_at,omitempty"`
	SettlementFailedAt      *time.Time        `json:"settlement_failed_at,omitempty"`
	SettlementError         string            `json:"settlement_error,omitempty"`
}

// TransferViewResponse vista de una de las partes; OwnCode sólo mientras esté pendiente.
type TransferViewResponse struct {
	Transfer         TransferResponse `json:"transfer"`
	Role             string           `json:"role"`
	IsAwaitingYou    bool             `json:"is_awaiting_you"`
	CounterpartyName string           `json:"counterparty_name"`
	OwnCode          string           `json:"own_code,omitempty"`
}

// PendingTransferResponse fila del listado de pendientes.
type PendingTransferResponse struct {
	ID               string          `json:"id"`
	Direction        string          `json:"direction"`
	Role             string          `json:"role"`
	IsAwaitingYou    bool            `json:"is_awaiting_you"`
	CounterpartyName string          `json:"counterparty_name"`
	ItemCount        int             `json:"item_count"`
	TotalQuantity    decimal.Decimal `json:"total_quantity"`
	CreatedAt        time.Time       `json:"created_at"`
	ExpiresAt        time.Time       `json:"expires_at"`
	SettlementFailed bool            `json:"settlement_failed"`
}

// PendingTransferListResponse listado de pendientes de la sesión.
type PendingTransferListResponse struct {
	Items []PendingTransferResponse `json:"items"`
}

// ConfirmTransferRequest código OTP de quien confirma.
type ConfirmTransferRequest struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

// ConfirmTransferResponse resultado de la confirmación. Result es un código estable
// (RECORDED_AWAITING_COUNTERPARTY, TRANSFER_COMPLETED, ...).
type ConfirmTransferResponse struct {
	Result         string            `json:"result"`
	Message        string            `json:"message"`
	Transfer       *TransferResponse `json:"transfer,omitempty"`
	ShortProductID string            `json:"short_product_id,omitempty"`
}

// StockMovementResponse fila del libro de movimientos.
type StockMovementResponse struct {
	ID         int64           `json:"id"`
	TransferID string          `json:"transfer_id"`
	ProductID  string          `json:"product_id"`
	OwnerID    string          `json:"owner_id"` // vacío = bodega
	Delta      decimal.Decimal `json:"delta"`
	Before     decimal.Decimal `json:"before"`
	After      decimal.Decimal `json:"after"`
	CreatedAt  time.Time       `json:"created_at"`
	CreatedBy  string          `json:"created_by"`
}

// StockMovementListResponse movimientos de un traslado.
type StockMovementListResponse struct {
	Items []StockMovementResponse `json:"items"`
}
