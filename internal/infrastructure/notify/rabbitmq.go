package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/streadway/amqp"

	"github.com/jhoicas/mayorista-api/internal/application/ports"
	"github.com/jhoicas/mayorista-api/internal/domain/entity"
	"github.com/jhoicas/mayorista-api/pkg/config"
)

var _ ports.TransferNotifier = (*RabbitMQNotifier)(nil)

// ErrNotConnected no hay canal abierto con el broker.
var ErrNotConnected = errors.New("notify: sin conexión a RabbitMQ")

// channel subconjunto de *amqp.Channel que usa el publicador.
type channel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// RabbitMQNotifier publica los eventos de traslado en un exchange topic durable.
type RabbitMQNotifier struct {
	cfg  config.RabbitMQConfig
	log  zerolog.Logger
	now  func() time.Time
	mu   sync.RWMutex
	conn *amqp.Connection
	ch   channel

	closing bool
}

// NewRabbitMQNotifier construye el notificador sin conectar; llamar Connect antes de usarlo.
func NewRabbitMQNotifier(cfg config.RabbitMQConfig, log zerolog.Logger) *RabbitMQNotifier {
	return &RabbitMQNotifier{
		cfg: cfg,
		log: log,
		now: time.Now,
	}
}

// Connect abre conexión y canal y declara el exchange, reintentando RetryCount veces.
func (n *RabbitMQNotifier) Connect(ctx context.Context) error {
	attempts := n.cfg.RetryCount
	if attempts <= 0 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if err = n.dial(); err == nil {
			n.log.Info().Str("exchange", n.cfg.Exchange).Msg("conectado a RabbitMQ")
			return nil
		}
		n.log.Warn().Err(err).Int("attempt", i+1).Int("of", attempts).Msg("no se pudo conectar a RabbitMQ")
		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(n.cfg.RetryDelay):
			}
		}
	}
	return fmt.Errorf("conectar a RabbitMQ: %w", err)
}

func (n *RabbitMQNotifier) dial() error {
	conn, err := amqp.Dial(n.cfg.URL)
	if err != nil {
		return err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("abrir canal: %w", err)
	}
	if err := ch.ExchangeDeclare(n.cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("declarar exchange %s: %w", n.cfg.Exchange, err)
	}

	n.mu.Lock()
	n.conn, n.ch = conn, ch
	n.mu.Unlock()

	go n.watch(conn)
	return nil
}

// watch reconecta cuando el broker cierra la conexión (salvo cierre propio).
func (n *RabbitMQNotifier) watch(conn *amqp.Connection) {
	closed := conn.NotifyClose(make(chan *amqp.Error, 1))
	amqpErr, ok := <-closed
	n.mu.Lock()
	closing := n.closing
	n.ch = nil
	n.mu.Unlock()
	if closing || !ok {
		return
	}
	n.log.Warn().Interface("error", amqpErr).Msg("conexión con RabbitMQ perdida; reintentando")
	if err := n.Connect(context.Background()); err != nil {
		n.log.Error().Err(err).Msg("reconexión a RabbitMQ fallida")
	}
}

// Close cierra canal y conexión.
func (n *RabbitMQNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closing = true
	n.ch = nil
	if n.conn == nil {
		return nil
	}
	return n.conn.Close()
}

// TransferCompleted publica transfer.completed.
func (n *RabbitMQNotifier) TransferCompleted(ctx context.Context, t *entity.TransferRequest) error {
	return n.publish(ctx, newTransferEvent(EventTransferCompleted, t, "", n.now()))
}

// SettlementFailed publica transfer.settlement_failed con el motivo.
func (n *RabbitMQNotifier) SettlementFailed(ctx context.Context, t *entity.TransferRequest, reason string) error {
	return n.publish(ctx, newTransferEvent(EventTransferSettlementFailed, t, reason, n.now()))
}

func (n *RabbitMQNotifier) publish(ctx context.Context, ev TransferEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n.mu.RLock()
	ch := n.ch
	n.mu.RUnlock()
	if ch == nil {
		return ErrNotConnected
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("serializar evento: %w", err)
	}
	err = ch.Publish(n.cfg.Exchange, string(ev.Type), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.ID.String(),
		Timestamp:    ev.OccurredAt,
		Type:         string(ev.Type),
		Body:         body,
		Headers: amqp.Table{
			"transfer_id": ev.TransferID,
			"direction":   ev.Direction,
		},
	})
	if err != nil {
		return fmt.Errorf("publicar %s: %w", ev.Type, err)
	}
	n.log.Debug().Str("routing_key", string(ev.Type)).Str("transfer_id", ev.TransferID).Msg("evento publicado")
	return nil
}
