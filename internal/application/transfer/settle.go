package transfer

import (
	"context"
	"time"

	"github.com/jhoicas/mayorista-api/internal/domain"
	"github.com/jhoicas/mayorista-api/internal/domain/entity"
)

// settle mueve las existencias de un traslado totalmente confirmado: descuenta el pool
// origen, incrementa el destino y asienta dos movimientos por línea. Sólo se invoca desde
// Confirm, dentro de un savepoint; ante InsufficientStockError no se escribe nada.
func (s *Service) settle(ctx context.Context, r TxRepos, t *entity.TransferRequest, userID string, now time.Time) error {
	source, dest := t.SourceOwnerID(), t.DestinationOwnerID()

	keys := make([]entity.PoolKey, 0, 2*len(t.Items))
	for _, it := range t.Items {
		keys = append(keys,
			entity.PoolKey{ProductID: it.ProductID, OwnerID: source},
			entity.PoolKey{ProductID: it.ProductID, OwnerID: dest},
		)
	}
	pools, err := r.Stock.LockPools(ctx, keys)
	if err != nil {
		return err
	}

	// Verificación definitiva, con las filas bloqueadas y antes de tocar cualquier línea.
	for _, it := range t.Items {
		from := pools[entity.PoolKey{ProductID: it.ProductID, OwnerID: source}]
		if from == nil || from.Quantity.LessThan(it.Quantity) {
			return &domain.InsufficientStockError{ProductID: it.ProductID}
		}
	}

	for _, it := range t.Items {
		from := pools[entity.PoolKey{ProductID: it.ProductID, OwnerID: source}]
		to := pools[entity.PoolKey{ProductID: it.ProductID, OwnerID: dest}]

		out := &entity.StockMovement{
			TransferID: t.ID,
			ProductID:  it.ProductID,
			OwnerID:    source,
			Delta:      it.Quantity.Neg(),
			Before:     from.Quantity,
			After:      from.Quantity.Sub(it.Quantity),
			CreatedAt:  now,
			CreatedBy:  userID,
		}
		in := &entity.StockMovement{
			TransferID: t.ID,
			ProductID:  it.ProductID,
			OwnerID:    dest,
			Delta:      it.Quantity,
			Before:     to.Quantity,
			After:      to.Quantity.Add(it.Quantity),
			CreatedAt:  now,
			CreatedBy:  userID,
		}

		if err := r.Stock.SetQuantity(ctx, from.Key(), out.After); err != nil {
			return err
		}
		if err := r.Stock.SetQuantity(ctx, to.Key(), in.After); err != nil {
			return err
		}
		from.Quantity = out.After
		from.UpdatedAt = now
		to.Quantity = in.After
		to.UpdatedAt = now

		if err := r.Movements.Create(ctx, out); err != nil {
			return err
		}
		if err := r.Movements.Create(ctx, in); err != nil {
			return err
		}
	}
	return nil
}
