package ports

import (
	"context"

	"github.com/jhoicas/mayorista-api/internal/domain/entity"
)

// TransferNotifier puerto de salida para avisar a sistemas externos sobre el cierre de un
// traslado. Los adaptadores (RabbitMQ, no-op) no participan de la transacción: se invocan
// después del commit y un error suyo nunca cambia el resultado del protocolo.
type TransferNotifier interface {
	// TransferCompleted se llama una vez que las existencias se movieron.
	TransferCompleted(ctx context.Context, t *entity.TransferRequest) error
	// SettlementFailed se llama cuando ambas partes confirmaron pero la liquidación se abortó;
	// requiere atención del operador.
	SettlementFailed(ctx context.Context, t *entity.TransferRequest, reason string) error
}
