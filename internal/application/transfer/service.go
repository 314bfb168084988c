package transfer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/mayorista-api/internal/domain"
	"github.com/jhoicas/mayorista-api/internal/domain/entity"
	"github.com/jhoicas/mayorista-api/internal/domain/repository"
	"github.com/jhoicas/mayorista-api/pkg/otp"
)

// DefaultTTL vigencia de un traslado pendiente.
const DefaultTTL = 24 * time.Hour

// Las cantidades se guardan como NUMERIC(18,4): a lo sumo 4 decimales y 14 dígitos enteros.
// Se rechazan en vez de dejar que la BD las redondee.
const QuantityScale = 4

// MaxQuantity cota exclusiva de una cantidad.
var MaxQuantity = decimal.New(1, 14)

// Config parámetros del protocolo de traslado.
type Config struct {
	TTL time.Duration
	// Now reloj inyectable; nil usa time.Now.
	Now func() time.Time
}

// Service protocolo de traslado con doble confirmación OTP (cargue y devolución de camioneta).
type Service struct {
	txRunner  TxRunner
	transfers repository.TransferRepository
	stock     repository.StockRepository
	movements repository.StockMovementRepository
	users     repository.UserRepository
	products  repository.ProductRepository
	ttl       time.Duration
	now       func() time.Time
	log       zerolog.Logger
}

// NewService construye el servicio; log debe traer ya el campo component. Los repositorios sueltos se usan sólo para lecturas
// fuera de transacción; toda escritura pasa por txRunner.
func NewService(
	txRunner TxRunner,
	transfers repository.TransferRepository,
	stock repository.StockRepository,
	movements repository.StockMovementRepository,
	users repository.UserRepository,
	products repository.ProductRepository,
	cfg Config,
	log zerolog.Logger,
) *Service {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		txRunner:  txRunner,
		transfers: transfers,
		stock:     stock,
		movements: movements,
		users:     users,
		products:  products,
		ttl:       cfg.TTL,
		now:       cfg.Now,
		log:       log,
	}
}

// CreateInput entrada para crear un traslado.
type CreateInput struct {
	Direction        entity.Direction
	InitiatorPartyID string
	CounterpartyID   string
	Items            []entity.TransferItem
	Note             string
}

// Created resultado de CreateTransfer. El handler sólo debe mostrar InitiatorOTP a quien
// creó el traslado; la contraparte lee su código desde su propia sesión (ViewFor).
type Created struct {
	TransferID      string
	InitiatorOTP    string
	CounterpartyOTP string
	ExpiresAt       time.Time
}

// CreateTransfer valida la solicitud, hace la verificación previa (no vinculante) de
// existencias en el pool origen, genera los dos códigos y persiste el traslado pendiente.
func (s *Service) CreateTransfer(ctx context.Context, in CreateInput) (*Created, error) {
	if err := validateCreate(in); err != nil {
		return nil, err
	}

	initiator, err := s.users.GetByID(ctx, in.InitiatorPartyID)
	if err != nil {
		return nil, err
	}
	counterparty, err := s.users.GetByID(ctx, in.CounterpartyID)
	if err != nil {
		return nil, err
	}
	if initiator == nil || counterparty == nil {
		return nil, fmt.Errorf("%w: parte del traslado", domain.ErrNotFound)
	}
	if !initiator.IsActive() || !counterparty.IsActive() {
		return nil, fmt.Errorf("%w: parte del traslado inactiva", domain.ErrInvalidInput)
	}
	warehouseUser, salesRep := initiator, counterparty
	if in.Direction == entity.DirectionVanToWarehouse {
		warehouseUser, salesRep = counterparty, initiator
	}
	if !salesRep.IsSalesRep() || !warehouseUser.IsWarehouseStaff() {
		return nil, fmt.Errorf("%w: roles de las partes no corresponden a %s", domain.ErrInvalidInput, in.Direction)
	}

	t := &entity.TransferRequest{
		ID:               uuid.New().String(),
		Direction:        in.Direction,
		InitiatorPartyID: in.InitiatorPartyID,
		CounterpartyID:   in.CounterpartyID,
		Items:            append([]entity.TransferItem(nil), in.Items...),
		Note:             strings.TrimSpace(in.Note),
	}

	// Verificación previa: sólo informativa, la definitiva ocurre al liquidar.
	source := t.SourceOwnerID()
	for _, it := range t.Items {
		p, err := s.products.GetByID(ctx, it.ProductID)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, fmt.Errorf("%w: producto %s", domain.ErrNotFound, it.ProductID)
		}
		pool, err := s.stock.Get(ctx, it.ProductID, source)
		if err != nil {
			return nil, err
		}
		if pool.Quantity.LessThan(it.Quantity) {
			return nil, &domain.InsufficientStockError{ProductID: it.ProductID}
		}
	}

	if t.InitiatorOTP, err = otp.Generate(); err != nil {
		return nil, err
	}
	if t.CounterpartyOTP, err = otp.Generate(); err != nil {
		return nil, err
	}
	now := s.now()
	t.CreatedAt = now
	t.ExpiresAt = now.Add(s.ttl)

	if err := s.txRunner.Run(ctx, func(r TxRepos) error {
		return r.Transfers.Create(ctx, t)
	}); err != nil {
		return nil, fmt.Errorf("create transfer: %w", err)
	}

	s.log.Debug().
		Str("transfer_id", t.ID).
		Str("direction", t.Direction.String()).
		Str("initiator", t.InitiatorPartyID).
		Str("counterparty", t.CounterpartyID).
		Int("items", len(t.Items)).
		Msg("traslado creado")

	return &Created{
		TransferID:      t.ID,
		InitiatorOTP:    t.InitiatorOTP,
		CounterpartyOTP: t.CounterpartyOTP,
		ExpiresAt:       t.ExpiresAt,
	}, nil
}

func validateCreate(in CreateInput) error {
	if !in.Direction.Valid() {
		return fmt.Errorf("%w: dirección %q", domain.ErrInvalidInput, in.Direction)
	}
	if in.InitiatorPartyID == "" || in.CounterpartyID == "" {
		return fmt.Errorf("%w: partes requeridas", domain.ErrInvalidInput)
	}
	if in.InitiatorPartyID == in.CounterpartyID {
		return fmt.Errorf("%w: las partes deben ser distintas", domain.ErrInvalidInput)
	}
	if len(in.Items) == 0 {
		return fmt.Errorf("%w: el traslado no tiene productos", domain.ErrInvalidInput)
	}
	seen := make(map[string]struct{}, len(in.Items))
	for _, it := range in.Items {
		if it.ProductID == "" || !it.Quantity.IsPositive() {
			return fmt.Errorf("%w: línea con producto o cantidad inválida", domain.ErrInvalidInput)
		}
		if !it.Quantity.Equal(it.Quantity.Truncate(QuantityScale)) || it.Quantity.GreaterThanOrEqual(MaxQuantity) {
			return fmt.Errorf("%w: cantidad %s fuera de rango (máx. %d decimales)", domain.ErrInvalidInput, it.Quantity, QuantityScale)
		}
		if _, dup := seen[it.ProductID]; dup {
			return fmt.Errorf("%w: producto %s repetido", domain.ErrInvalidInput, it.ProductID)
		}
		seen[it.ProductID] = struct{}{}
	}
	return nil
}

// Get obtiene el traslado; devuelve nil, nil si no existe.
func (s *Service) Get(ctx context.Context, id string) (*entity.TransferRequest, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	return s.transfers.GetByID(ctx, id)
}

// Movements lista los movimientos de existencias de un traslado; sólo para sus partes.
func (s *Service) Movements(ctx context.Context, id, partyID string) ([]*entity.StockMovement, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, domain.ErrNotFound
	}
	if _, ok := t.RoleOf(partyID); !ok {
		return nil, domain.ErrForbidden
	}
	return s.movements.ListByTransfer(ctx, id)
}
