package http

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/mayorista-api/internal/application/dto"
	"github.com/jhoicas/mayorista-api/internal/application/ports"
	"github.com/jhoicas/mayorista-api/internal/application/transfer"
	"github.com/jhoicas/mayorista-api/internal/domain"
	"github.com/jhoicas/mayorista-api/internal/domain/entity"
	"github.com/jhoicas/mayorista-api/pkg/otp"
)

// notifyTimeout tope para publicar el evento después del commit.
const notifyTimeout = 5 * time.Second

// transferService lo implementa *transfer.Service.
type transferService interface {
	CreateTransfer(ctx context.Context, in transfer.CreateInput) (*transfer.Created, error)
	Get(ctx context.Context, id string) (*entity.TransferRequest, error)
	Confirm(ctx context.Context, in transfer.ConfirmInput) (transfer.ConfirmResult, error)
	ListPendingFor(ctx context.Context, partyID string) ([]transfer.PendingTransfer, error)
	ViewFor(ctx context.Context, id, partyID string) (*transfer.PartyView, error)
	Movements(ctx context.Context, id, partyID string) ([]*entity.StockMovement, error)
}

// TransferHandler maneja los traslados bodega ↔ camioneta con doble confirmación.
type TransferHandler struct {
	svc      transferService
	notifier ports.TransferNotifier
	log      zerolog.Logger
	now      func() time.Time
}

// NewTransferHandler construye el handler. log ya trae el campo component (logger.Component).
func NewTransferHandler(svc transferService, notifier ports.TransferNotifier, log zerolog.Logger) *TransferHandler {
	return &TransferHandler{
		svc:      svc,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
}

// Create godoc
// @Summary      Crear traslado (cargue o devolución de camioneta)
// @Tags         transfers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateTransferRequest  true  "Traslado"
// @Success      201   {object}  dto.CreateTransferResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/transfers [post]
func (h *TransferHandler) Create(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "user_id requerido"})
	}
	var in dto.CreateTransferRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	items := make([]entity.TransferItem, 0, len(in.Items))
	for _, it := range in.Items {
		items = append(items, entity.TransferItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	out, err := h.svc.CreateTransfer(c.UserContext(), transfer.CreateInput{
		Direction:        entity.Direction(in.Direction),
		InitiatorPartyID: userID,
		CounterpartyID:   in.CounterpartyID,
		Items:            items,
		Note:             in.Note,
	})
	if err != nil {
		return h.writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.CreateTransferResponse{
		ID:           out.TransferID,
		Direction:    in.Direction,
		InitiatorOTP: out.InitiatorOTP,
		ExpiresAt:    out.ExpiresAt,
	})
}

// ListPending godoc
// @Summary      Traslados pendientes de la sesión (como iniciador o contraparte)
// @Tags         transfers
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.PendingTransferListResponse
// @Router       /api/transfers/pending [get]
func (h *TransferHandler) ListPending(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "user_id requerido"})
	}
	list, err := h.svc.ListPendingFor(c.UserContext(), userID)
	if err != nil {
		return h.writeError(c, err)
	}
	out := dto.PendingTransferListResponse{Items: make([]dto.PendingTransferResponse, 0, len(list))}
	for _, p := range list {
		role, _ := p.Transfer.RoleOf(userID)
		out.Items = append(out.Items, dto.PendingTransferResponse{
			ID:               p.Transfer.ID,
			Direction:        p.Transfer.Direction.String(),
			Role:             string(role),
			IsAwaitingYou:    p.IsAwaitingThisParty,
			CounterpartyName: p.CounterpartyDisplayName,
			ItemCount:        p.ItemCount,
			TotalQuantity:    p.TotalQuantity,
			CreatedAt:        p.Transfer.CreatedAt,
			ExpiresAt:        p.ExpiresAt,
			SettlementFailed: p.SettlementFailed,
		})
	}
	return c.JSON(out)
}

// GetByID godoc
// @Summary      Ver traslado (incluye el código propio mientras esté pendiente)
// @Tags         transfers
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del traslado"
// @Success      200  {object}  dto.TransferViewResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/transfers/{id} [get]
func (h *TransferHandler) GetByID(c *fiber.Ctx) error {
	v, err := h.svc.ViewFor(c.UserContext(), c.Params("id"), GetUserID(c))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(dto.TransferViewResponse{
		Transfer:         toTransferResponse(v.Transfer, v.State),
		Role:             string(v.Role),
		IsAwaitingYou:    v.IsAwaitingThisParty,
		CounterpartyName: v.CounterpartyDisplayName,
		OwnCode:          v.OwnCode,
	})
}

// Confirm godoc
// @Summary      Confirmar traslado con el código propio
// @Tags         transfers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                      true  "ID del traslado"
// @Param        body  body  dto.ConfirmTransferRequest  true  "Código OTP"
// @Success      200   {object}  dto.ConfirmTransferResponse
// @Failure      404   {object}  dto.ConfirmTransferResponse
// @Failure      409   {object}  dto.ConfirmTransferResponse
// @Failure      410   {object}  dto.ConfirmTransferResponse
// @Failure      422   {object}  dto.ConfirmTransferResponse
// @Router       /api/transfers/{id}/confirm [post]
func (h *TransferHandler) Confirm(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "user_id requerido"})
	}
	var in dto.ConfirmTransferRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if !otp.Valid(in.Code) {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_CODE_FORMAT", Message: fmt.Sprintf("el código debe tener %d dígitos", otp.Digits)})
	}
	id := c.Params("id")

	// El rol sale de la sesión: quien no es parte del traslado no puede confirmar.
	t, err := h.svc.Get(c.UserContext(), id)
	if err != nil {
		return h.writeError(c, err)
	}
	if t == nil {
		return c.Status(fiber.StatusNotFound).JSON(confirmResponse(transfer.ConfirmResult{Outcome: transfer.OutcomeNotFound}, h.now()))
	}
	role, ok := t.RoleOf(userID)
	if !ok {
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "no es parte de este traslado"})
	}

	res, err := h.svc.Confirm(c.UserContext(), transfer.ConfirmInput{
		TransferID: id,
		Role:       role,
		Code:       in.Code,
		UserID:     userID,
	})
	if err != nil {
		return h.writeError(c, err)
	}
	h.notify(res)
	return c.Status(outcomeStatus(res.Outcome)).JSON(confirmResponse(res, h.now()))
}

// Movements godoc
// @Summary      Movimientos de existencias generados por el traslado
// @Tags         transfers
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del traslado"
// @Success      200  {object}  dto.StockMovementListResponse
// @Router       /api/transfers/{id}/movements [get]
func (h *TransferHandler) Movements(c *fiber.Ctx) error {
	list, err := h.svc.Movements(c.UserContext(), c.Params("id"), GetUserID(c))
	if err != nil {
		return h.writeError(c, err)
	}
	out := dto.StockMovementListResponse{Items: make([]dto.StockMovementResponse, 0, len(list))}
	for _, m := range list {
		out.Items = append(out.Items, dto.StockMovementResponse{
			ID:         m.ID,
			TransferID: m.TransferID,
			ProductID:  m.ProductID,
			OwnerID:    m.OwnerID,
			Delta:      m.Delta,
			Before:     m.Before,
			After:      m.After,
			CreatedAt:  m.CreatedAt,
			CreatedBy:  m.CreatedBy,
		})
	}
	return c.JSON(out)
}

// notify avisa fuera de la transacción; un fallo sólo se registra.
func (h *TransferHandler) notify(res transfer.ConfirmResult) {
	if h.notifier == nil || res.Transfer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	var err error
	switch res.Outcome {
	case transfer.OutcomeTransferCompleted:
		err = h.notifier.TransferCompleted(ctx, res.Transfer)
	case transfer.OutcomeSettlementFailed:
		if res.ShortProductID == "" {
			// Reconfirmación de una liquidación fallida: ya se notificó.
			return
		}
		err = h.notifier.SettlementFailed(ctx, res.Transfer, res.Transfer.SettlementError)
	default:
		return
	}
	if err != nil {
		h.log.Warn().Err(err).
			Str("transfer_id", res.Transfer.ID).
			Str("outcome", res.Outcome.String()).
			Msg("no se pudo publicar el evento del traslado")
	}
}

func (h *TransferHandler) writeError(c *fiber.Ctx, err error) error {
	var short *domain.InsufficientStockError
	switch {
	case errors.As(err, &short):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "INSUFFICIENT_STOCK", Message: short.Error()})
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "traslado o parte no encontrada"})
	case errors.Is(err, domain.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "no es parte de este traslado"})
	case errors.Is(err, domain.ErrUnauthorized):
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: err.Error()})
	}
	h.log.Error().Err(err).Str("path", c.Path()).Msg("error interno")
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: "error interno"})
}

func outcomeStatus(o transfer.Outcome) int {
	switch o {
	case transfer.OutcomeRecordedAwaitingCounterparty, transfer.OutcomeTransferCompleted, transfer.OutcomeAlreadyCompleted:
		return fiber.StatusOK
	case transfer.OutcomeNotFound:
		return fiber.StatusNotFound
	case transfer.OutcomeExpired:
		return fiber.StatusGone
	case transfer.OutcomeInvalidCode:
		return fiber.StatusUnprocessableEntity
	case transfer.OutcomeSettlementFailed:
		return fiber.StatusConflict
	}
	return fiber.StatusInternalServerError
}

var outcomeMessages = map[transfer.Outcome]string{
	transfer.OutcomeNotFound:                     "traslado no encontrado",
	transfer.OutcomeRecordedAwaitingCounterparty: "confirmación registrada; falta la otra parte",
	transfer.OutcomeTransferCompleted:            "traslado completado; existencias movidas",
	transfer.OutcomeExpired:                      "el traslado venció",
	transfer.OutcomeInvalidCode:                  "código incorrecto",
	transfer.OutcomeAlreadyCompleted:             "el traslado ya estaba completado",
	transfer.OutcomeSettlementFailed:             "no hay existencias suficientes para liquidar; requiere revisión",
}

func confirmResponse(res transfer.ConfirmResult, now time.Time) dto.ConfirmTransferResponse {
	out := dto.ConfirmTransferResponse{
		Result:         res.Outcome.String(),
		Message:        outcomeMessages[res.Outcome],
		ShortProductID: res.ShortProductID,
	}
	if res.Transfer != nil {
		tr := toTransferResponse(res.Transfer, res.Transfer.State(now))
		out.Transfer = &tr
	}
	return out
}

// toTransferResponse nunca copia los códigos.
func toTransferResponse(t *entity.TransferRequest, state entity.TransferState) dto.TransferResponse {
	items := make([]dto.TransferItemDTO, 0, len(t.Items))
	for _, it := range t.Items {
		items = append(items, dto.TransferItemDTO{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	out := dto.TransferResponse{
		ID:                 t.ID,
		Direction:          t.Direction.String(),
		InitiatorPartyID:   t.InitiatorPartyID,
		CounterpartyID:     t.CounterpartyID,
		Items:              items,
		Note:               t.Note,
		State:              state.String(),
		CreatedAt:          t.CreatedAt,
		ExpiresAt:          t.ExpiresAt,
		CompletedAt:        t.CompletedAt,
		SettlementFailedAt: t.SettlementFailedAt,
		SettlementError:    t.SettlementError,
	}
	if t.InitiatorConfirm != nil {
		at := t.InitiatorConfirm.At
		out.InitiatorConfirmedAt = &at
	}
	if t.CounterpartyConfirm != nil {
		at := t.CounterpartyConfirm.At
		out.CounterpartyConfirmedAt = &at
	}
	return out
}
