package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/mayorista-api/internal/domain"
	"github.com/jhoicas/mayorista-api/internal/domain/entity"
	"github.com/jhoicas/mayorista-api/internal/domain/repository"
)

var _ repository.TransferRepository = (*TransferRepo)(nil)

// TransferRepo implementación de TransferRepository sobre PostgreSQL (usable con pool o tx).
type TransferRepo struct {
	q Querier
}

// NewTransferRepository construye el adaptador de traslados. Pasar pool o tx (Querier).
func NewTransferRepository(q Querier) *TransferRepo {
	return &TransferRepo{q: q}
}

const transferColumns = `
	id::text, direction, initiator_party_id, counterparty_id, initiator_otp, counterparty_otp,
	initiator_confirmed_at, initiator_confirmed_by, counterparty_confirmed_at, counterparty_confirmed_by,
	note, created_at, expires_at, completed_at, settlement_failed_at, settlement_error`

// Create persiste la cabecera y las líneas del traslado.
func (r *TransferRepo) Create(ctx context.Context, t *entity.TransferRequest) error {
	query := `
		INSERT INTO stock_transfers (id, direction, initiator_party_id, counterparty_id,
			initiator_otp, counterparty_otp, note, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.q.Exec(ctx, query,
		t.ID, string(t.Direction), t.InitiatorPartyID, t.CounterpartyID,
		t.InitiatorOTP, t.CounterpartyOTP, t.Note, t.CreatedAt, t.ExpiresAt,
	)
	if err != nil {
		if isUniqueViolation(err) || isCheckViolation(err) {
			return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
		}
		return fmt.Errorf("insert transfer: %w", err)
	}

	itemQuery := `
		INSERT INTO stock_transfer_items (transfer_id, line_no, product_id, quantity)
		VALUES ($1, $2, $3, $4)`
	for i, it := range t.Items {
		if _, err := r.q.Exec(ctx, itemQuery, t.ID, i+1, it.ProductID, it.Quantity); err != nil {
			if isUniqueViolation(err) || isCheckViolation(err) {
				return fmt.Errorf("%w: línea %d: %v", domain.ErrInvalidInput, i+1, err)
			}
			return fmt.Errorf("insert transfer item: %w", err)
		}
	}
	return nil
}

// GetByID obtiene el traslado con sus líneas. Devuelve nil, nil si no existe.
func (r *TransferRepo) GetByID(ctx context.Context, id string) (*entity.TransferRequest, error) {
	return r.get(ctx, id, false)
}

// GetForUpdate obtiene el traslado y bloquea la cabecera (SELECT FOR UPDATE).
// Las líneas no cambian después de creadas, así que no se bloquean.
func (r *TransferRepo) GetForUpdate(ctx context.Context, id string) (*entity.TransferRequest, error) {
	return r.get(ctx, id, true)
}

func (r *TransferRepo) get(ctx context.Context, id string, forUpdate bool) (*entity.TransferRequest, error) {
	query := `SELECT ` + transferColumns + ` FROM stock_transfers WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	t, err := scanTransfer(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get transfer: %w", err)
	}
	if err := r.loadItems(ctx, []*entity.TransferRequest{t}); err != nil {
		return nil, err
	}
	return t, nil
}

// SaveConfirmation guarda el sello del rol. COALESCE evita sobrescribir un sello previo.
func (r *TransferRepo) SaveConfirmation(ctx context.Context, id string, role entity.Role, c entity.Confirmation) error {
	var query string
	switch role {
	case entity.RoleInitiator:
		query = `
			UPDATE stock_transfers
			SET initiator_confirmed_at = COALESCE(initiator_confirmed_at, $2),
			    initiator_confirmed_by = COALESCE(initiator_confirmed_by, $3)
			WHERE id = $1`
	case entity.RoleCounterparty:
		query = `
			UPDATE stock_transfers
			SET counterparty_confirmed_at = COALESCE(counterparty_confirmed_at, $2),
			    counterparty_confirmed_by = COALESCE(counterparty_confirmed_by, $3)
			WHERE id = $1`
	default:
		return domain.ErrInvalidInput
	}
	tag, err := r.q.Exec(ctx, query, id, c.At, c.UserID)
	if err != nil {
		return fmt.Errorf("save confirmation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MarkCompleted registra la liquidación exitosa.
func (r *TransferRepo) MarkCompleted(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE stock_transfers SET completed_at = $2 WHERE id = $1 AND completed_at IS NULL`
	tag, err := r.q.Exec(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MarkSettlementFailed registra que la liquidación se abortó y por qué.
func (r *TransferRepo) MarkSettlementFailed(ctx context.Context, id string, at time.Time, reason string) error {
	query := `
		UPDATE stock_transfers SET settlement_failed_at = $2, settlement_error = $3
		WHERE id = $1 AND completed_at IS NULL`
	tag, err := r.q.Exec(ctx, query, id, at, reason)
	if err != nil {
		return fmt.Errorf("mark settlement failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListPendingFor traslados abiertos donde partyID es iniciador o contraparte.
func (r *TransferRepo) ListPendingFor(ctx context.Context, partyID string, now time.Time) ([]*entity.TransferRequest, error) {
	query := `SELECT ` + transferColumns + `
		FROM stock_transfers
		WHERE (initiator_party_id = $1 OR counterparty_id = $1)
		  AND completed_at IS NULL
		  AND expires_at >= $2
		ORDER BY created_at, id`
	rows, err := r.q.Query(ctx, query, partyID, now)
	if err != nil {
		return nil, fmt.Errorf("list pending transfers: %w", err)
	}
	defer rows.Close()

	var list []*entity.TransferRequest
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transfer: %w", err)
		}
		list = append(list, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()
	if err := r.loadItems(ctx, list); err != nil {
		return nil, err
	}
	return list, nil
}

// loadItems carga las líneas de todos los traslados en una sola consulta.
func (r *TransferRepo) loadItems(ctx context.Context, transfers []*entity.TransferRequest) error {
	if len(transfers) == 0 {
		return nil
	}
	byID := make(map[string]*entity.TransferRequest, len(transfers))
	ids := make([]string, 0, len(transfers))
	for _, t := range transfers {
		byID[t.ID] = t
		ids = append(ids, t.ID)
	}
	query := `
		SELECT transfer_id::text, product_id, quantity
		FROM stock_transfer_items
		WHERE transfer_id = ANY($1::uuid[])
		ORDER BY transfer_id, line_no`
	rows, err := r.q.Query(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("list transfer items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var transferID string
		var it entity.TransferItem
		if err := rows.Scan(&transferID, &it.ProductID, &it.Quantity); err != nil {
			return fmt.Errorf("scan transfer item: %w", err)
		}
		if t := byID[transferID]; t != nil {
			t.Items = append(t.Items, it)
		}
	}
	return rows.Err()
}

func scanTransfer(row pgx.Row) (*entity.TransferRequest, error) {
	var (
		t                  entity.TransferRequest
		direction          string
		initAt, cpAt       *time.Time
		initBy, cpBy       *string
		completedAt        *time.Time
		settlementFailedAt *time.Time
	)
	err := row.Scan(
		&t.ID, &direction, &t.InitiatorPartyID, &t.CounterpartyID, &t.InitiatorOTP, &t.CounterpartyOTP,
		&initAt, &initBy, &cpAt, &cpBy,
		&t.Note, &t.CreatedAt, &t.ExpiresAt, &completedAt, &settlementFailedAt, &t.SettlementError,
	)
	if err != nil {
		return nil, err
	}
	t.Direction = entity.Direction(direction)
	t.InitiatorConfirm = confirmation(initAt, initBy)
	t.CounterpartyConfirm = confirmation(cpAt, cpBy)
	t.CompletedAt = completedAt
	t.SettlementFailedAt = settlementFailedAt
	return &t, nil
}

func confirmation(at *time.Time, by *string) *entity.Confirmation {
	if at == nil {
		return nil
	}
	c := &entity.Confirmation{At: *at}
	if by != nil {
		c.UserID = *by
	}
	return c
}

