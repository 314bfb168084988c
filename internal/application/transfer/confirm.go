package transfer

import (
	"context"
	"errors"
	"fmt"

	"github.com/jhoicas/mayorista-api/internal/domain"
	"github.com/jhoicas/mayorista-api/internal/domain/entity"
	"github.com/jhoicas/mayorista-api/pkg/otp"
)

// Outcome resultado tipado de una confirmación. Los fallos del protocolo son valores,
// no errores; el error de Confirm queda para fallos de persistencia.
type Outcome int

const (
	OutcomeNotFound Outcome = iota + 1
	OutcomeRecordedAwaitingCounterparty
	OutcomeTransferCompleted
	OutcomeExpired
	OutcomeInvalidCode
	OutcomeAlreadyCompleted
	OutcomeSettlementFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNotFound:
		return "NOT_FOUND"
	case OutcomeRecordedAwaitingCounterparty:
		return "RECORDED_AWAITING_COUNTERPARTY"
	case OutcomeTransferCompleted:
		return "TRANSFER_COMPLETED"
	case OutcomeExpired:
		return "EXPIRED"
	case OutcomeInvalidCode:
		return "INVALID_CODE"
	case OutcomeAlreadyCompleted:
		return "ALREADY_COMPLETED"
	case OutcomeSettlementFailed:
		return "SETTLEMENT_FAILED"
	}
	return "UNKNOWN"
}

// Succeeded indica si el resultado cuenta como éxito para quien confirma
// (incluye la reconfirmación de un traslado ya completado).
func (o Outcome) Succeeded() bool {
	switch o {
	case OutcomeRecordedAwaitingCounterparty, OutcomeTransferCompleted, OutcomeAlreadyCompleted:
		return true
	}
	return false
}

// ConfirmInput entrada de Confirm. UserID lo aporta la sesión, nunca el cuerpo de la petición.
type ConfirmInput struct {
	TransferID string
	Role       entity.Role
	Code       string
	UserID     string
}

// ConfirmResult resultado de Confirm.
type ConfirmResult struct {
	Outcome Outcome
	// Transfer estado del traslado tras procesar la confirmación (nil si no existe).
	Transfer *entity.TransferRequest
	// ShortProductID producto sin existencias cuando Outcome es OutcomeSettlementFailed.
	ShortProductID string
}

// Confirm registra la confirmación de una parte con su propio código. Cuando ambas partes
// han confirmado, liquida el traslado en la misma transacción que guardó el sello, de modo
// que "ambas confirmaron" y "existencias movidas" no pueden divergir.
//
// La fila del traslado queda bloqueada (SELECT FOR UPDATE) durante toda la secuencia: de dos
// confirmaciones concurrentes, sólo una observa ambos sellos y liquida.
func (s *Service) Confirm(ctx context.Context, in ConfirmInput) (ConfirmResult, error) {
	if !in.Role.Valid() || in.UserID == "" {
		return ConfirmResult{}, domain.ErrInvalidInput
	}
	if t, err := s.Get(ctx, in.TransferID); err != nil {
		return ConfirmResult{}, err
	} else if t == nil {
		return ConfirmResult{Outcome: OutcomeNotFound}, nil
	}

	var res ConfirmResult
	err := s.txRunner.Run(ctx, func(r TxRepos) error {
		res = ConfirmResult{}
		t, err := r.Transfers.GetForUpdate(ctx, in.TransferID)
		if err != nil {
			return err
		}
		if t == nil {
			res.Outcome = OutcomeNotFound
			return nil
		}
		res.Transfer = t
		now := s.now()

		switch {
		case t.IsExpired(now):
			res.Outcome = OutcomeExpired
			return nil
		case t.IsCompleted():
			res.Outcome = OutcomeAlreadyCompleted
			return nil
		case !otp.Equal(in.Code, t.ExpectedOTP(in.Role)):
			res.Outcome = OutcomeInvalidCode
			return nil
		case t.SettlementFailed():
			// La liquidación no se reintenta a ciegas; requiere revisión del operador.
			res.Outcome = OutcomeSettlementFailed
			return nil
		}

		if t.ConfirmationOf(in.Role) == nil {
			t.Stamp(in.Role, in.UserID, now)
			if err := r.Transfers.SaveConfirmation(ctx, t.ID, in.Role, *t.ConfirmationOf(in.Role)); err != nil {
				return err
			}
		}
		if !t.BothConfirmed() {
			res.Outcome = OutcomeRecordedAwaitingCounterparty
			return nil
		}

		settleErr := r.Savepoint(func(sp TxRepos) error {
			return s.settle(ctx, sp, t, in.UserID, now)
		})
		if settleErr != nil {
			var short *domain.InsufficientStockError
			if !errors.As(settleErr, &short) {
				return settleErr
			}
			if err := r.Transfers.MarkSettlementFailed(ctx, t.ID, now, short.Error()); err != nil {
				return err
			}
			failedAt := now
			t.SettlementFailedAt = &failedAt
			t.SettlementError = short.Error()
			res.Outcome = OutcomeSettlementFailed
			res.ShortProductID = short.ProductID
			return nil
		}

		if err := r.Transfers.MarkCompleted(ctx, t.ID, now); err != nil {
			return err
		}
		completedAt := now
		t.CompletedAt = &completedAt
		res.Outcome = OutcomeTransferCompleted
		return nil
	})
	if err != nil {
		return ConfirmResult{}, fmt.Errorf("confirm transfer: %w", err)
	}

	switch res.Outcome {
	case OutcomeTransferCompleted:
		s.log.Info().
			Str("transfer_id", in.TransferID).
			Str("role", string(in.Role)).
			Str("user_id", in.UserID).
			Msg("traslado liquidado")
	case OutcomeSettlementFailed:
		s.log.Warn().
			Str("transfer_id", in.TransferID).
			Str("product_id", res.ShortProductID).
			Msg("liquidación fallida: ambas partes confirmaron pero no hay existencias suficientes")
	default:
		s.log.Debug().
			Str("transfer_id", in.TransferID).
			Str("role", string(in.Role)).
			Str("outcome", res.Outcome.String()).
			Msg("confirmación procesada")
	}
	return res, nil
}
