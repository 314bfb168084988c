package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction sentido de un traslado entre la bodega y la camioneta de un vendedor.
type Direction string

const (
	DirectionWarehouseToVan Direction = "warehouse_to_van" // cargue de camioneta
	DirectionVanToWarehouse Direction = "van_to_warehouse" // devolución a bodega
)

// Valid indica si la dirección es uno de los valores conocidos.
func (d Direction) Valid() bool {
	switch d {
	case DirectionWarehouseToVan, DirectionVanToWarehouse:
		return true
	}
	return false
}

func (d Direction) String() string { return string(d) }

// Role papel de quien confirma un traslado.
type Role string

const (
	RoleInitiator    Role = "initiator"
	RoleCounterparty Role = "counterparty"
)

// Valid indica si el rol es uno de los valores conocidos.
func (r Role) Valid() bool {
	return r == RoleInitiator || r == RoleCounterparty
}

// TransferState estado derivado de un traslado. Nunca se persiste: se calcula con State(now).
type TransferState int

const (
	StatePendingNone TransferState = iota
	StatePendingOne
	StateAwaitingSettlement
	StateCompleted
	StateSettlementFailed
	StateExpired
)

func (s TransferState) String() string {
	switch s {
	case StatePendingNone:
		return "pending"
	case StatePendingOne:
		return "pending_one_confirmation"
	case StateAwaitingSettlement:
		return "awaiting_settlement"
	case StateCompleted:
		return "completed"
	case StateSettlementFailed:
		return "settlement_failed"
	case StateExpired:
		return "expired"
	}
	return "unknown"
}

// TransferItem línea de un traslado. La cantidad es positiva y no cambia después de crearse.
type TransferItem struct {
	ProductID string
	Quantity  decimal.Decimal
}

// Confirmation sello de confirmación de una de las partes.
type Confirmation struct {
	UserID string
	At     time.Time
}

// TransferRequest traslado de mercancía que requiere la confirmación (OTP) de dos partes
// antes de mover existencias.
type TransferRequest struct {
	ID                  string // UUID opaco, se usa en URLs
	Direction           Direction
	InitiatorPartyID    string
	CounterpartyID      string
	Items               []TransferItem
	InitiatorOTP        string
	CounterpartyOTP     string
	InitiatorConfirm    *Confirmation
	CounterpartyConfirm *Confirmation
	Note                string
	CreatedAt           time.Time
	ExpiresAt           time.Time
	CompletedAt         *time.Time
	SettlementFailedAt  *time.Time
	SettlementError     string
}

// VanOwnerID devuelve el vendedor dueño de la camioneta involucrada.
func (t *TransferRequest) VanOwnerID() string {
	if t.Direction == DirectionVanToWarehouse {
		return t.InitiatorPartyID
	}
	return t.CounterpartyID
}

// SourceOwnerID dueño del pool que se descuenta.
func (t *TransferRequest) SourceOwnerID() string {
	if t.Direction == DirectionVanToWarehouse {
		return t.VanOwnerID()
	}
	return WarehouseOwnerID
}

// DestinationOwnerID dueño del pool que se incrementa.
func (t *TransferRequest) DestinationOwnerID() string {
	if t.Direction == DirectionVanToWarehouse {
		return WarehouseOwnerID
	}
	return t.VanOwnerID()
}

// IsExpired es verdadero cuando now es posterior a ExpiresAt.
func (t *TransferRequest) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// IsCompleted indica si la liquidación ya se confirmó en BD.
func (t *TransferRequest) IsCompleted() bool { return t.CompletedAt != nil }

// SettlementFailed indica si la liquidación se intentó y fue abortada.
func (t *TransferRequest) SettlementFailed() bool { return t.SettlementFailedAt != nil }

// ExpectedOTP código asignado al rol.
func (t *TransferRequest) ExpectedOTP(role Role) string {
	if role == RoleInitiator {
		return t.InitiatorOTP
	}
	return t.CounterpartyOTP
}

// ConfirmationOf sello del rol (nil si aún no confirma).
func (t *TransferRequest) ConfirmationOf(role Role) *Confirmation {
	if role == RoleInitiator {
		return t.InitiatorConfirm
	}
	return t.CounterpartyConfirm
}

// Stamp registra la confirmación del rol. No sobrescribe un sello existente.
func (t *TransferRequest) Stamp(role Role, userID string, at time.Time) {
	if t.ConfirmationOf(role) != nil {
		return
	}
	c := &Confirmation{UserID: userID, At: at}
	if role == RoleInitiator {
		t.InitiatorConfirm = c
	} else {
		t.CounterpartyConfirm = c
	}
}

// BothConfirmed indica si las dos partes ya confirmaron.
func (t *TransferRequest) BothConfirmed() bool {
	return t.InitiatorConfirm != nil && t.CounterpartyConfirm != nil
}

// RoleOf devuelve el rol de partyID dentro del traslado.
func (t *TransferRequest) RoleOf(partyID string) (Role, bool) {
	switch partyID {
	case "":
		return "", false
	case t.InitiatorPartyID:
		return RoleInitiator, true
	case t.CounterpartyID:
		return RoleCounterparty, true
	}
	return "", false
}

// OtherParty devuelve la contraparte de partyID.
func (t *TransferRequest) OtherParty(partyID string) string {
	if partyID == t.InitiatorPartyID {
		return t.CounterpartyID
	}
	return t.InitiatorPartyID
}

// State calcula el estado del traslado en el instante now.
// Completed y SettlementFailed son terminales y prevalecen sobre la expiración.
func (t *TransferRequest) State(now time.Time) TransferState {
	switch {
	case t.IsCompleted():
		return StateCompleted
	case t.SettlementFailed():
		return StateSettlementFailed
	case t.IsExpired(now):
		return StateExpired
	case t.BothConfirmed():
		return StateAwaitingSettlement
	case t.InitiatorConfirm != nil || t.CounterpartyConfirm != nil:
		return StatePendingOne
	}
	return StatePendingNone
}

// IsPending es verdadero mientras el traslado puede recibir confirmaciones.
func (t *TransferRequest) IsPending(now time.Time) bool {
	s := t.State(now)
	return s == StatePendingNone || s == StatePendingOne
}

// IsAwaiting indica si el traslado espera todavía la confirmación de partyID.
func (t *TransferRequest) IsAwaiting(partyID string, now time.Time) bool {
	role, ok := t.RoleOf(partyID)
	if !ok || !t.IsPending(now) {
		return false
	}
	return t.ConfirmationOf(role) == nil
}

// TotalQuantity suma de las cantidades de todas las líneas.
func (t *TransferRequest) TotalQuantity() decimal.Decimal {
	total := decimal.Zero
	for _, it := range t.Items {
		total = total.Add(it.Quantity)
	}
	return total
}
