package notify_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/mayorista-api/internal/domain/entity"
	"github.com/jhoicas/mayorista-api/internal/infrastructure/notify"
	"github.com/jhoicas/mayorista-api/pkg/config"
)

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

func sampleTransfer() *entity.TransferRequest {
	return &entity.TransferRequest{
		ID:               "7d8f7a52-4f0a-4c8e-9a57-0e5c6f1d2b11",
		Direction:        entity.DirectionWarehouseToVan,
		InitiatorPartyID: "bodega-1",
		CounterpartyID:   "vendedor-1",
		InitiatorOTP:     "123456",
		CounterpartyOTP:  "654321",
		Items: []entity.TransferItem{
			{ProductID: "P1", Quantity: decimal.NewFromInt(10)},
		},
	}
}

func newNotifier(t *testing.T) (*notify.RabbitMQNotifier, *[]published) {
	t.Helper()
	var sent []published
	n := notify.NewRabbitMQNotifier(config.RabbitMQConfig{Exchange: "transfers.events"}, zerolog.Nop())
	n.UseChannel(notify.PublishFunc(func(exchange, key string, _, _ bool, msg amqp.Publishing) error {
		sent = append(sent, published{exchange: exchange, key: key, msg: msg})
		return nil
	}), time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	return n, &sent
}

func TestTransferCompleted_PublishesPersistentJSON(t *testing.T) {
	n, sent := newNotifier(t)

	require.NoError(t, n.TransferCompleted(context.Background(), sampleTransfer()))
	require.Len(t, *sent, 1)

	p := (*sent)[0]
	assert.Equal(t, "transfers.events", p.exchange)
	assert.Equal(t, "transfer.completed", p.key)
	assert.Equal(t, "application/json", p.msg.ContentType)
	assert.Equal(t, amqp.Persistent, p.msg.DeliveryMode)
	assert.Equal(t, "7d8f7a52-4f0a-4c8e-9a57-0e5c6f1d2b11", p.msg.Headers["transfer_id"])

	var ev notify.TransferEvent
	require.NoError(t, json.Unmarshal(p.msg.Body, &ev))
	assert.Equal(t, notify.EventTransferCompleted, ev.Type)
	assert.Equal(t, "vendedor-1", ev.VanOwnerID)
	require.Len(t, ev.Items, 1)
	assert.True(t, ev.Items[0].Quantity.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, ev.ID.String(), p.msg.MessageId)
}

func TestSettlementFailed_CarriesReasonWithoutCodes(t *testing.T) {
	n, sent := newNotifier(t)

	require.NoError(t, n.SettlementFailed(context.Background(), sampleTransfer(), "insufficient stock for product P1"))
	require.Len(t, *sent, 1)
	assert.Equal(t, "transfer.settlement_failed", (*sent)[0].key)

	body := string((*sent)[0].msg.Body)
	assert.Contains(t, body, "insufficient stock for product P1")
	assert.NotContains(t, body, "123456")
	assert.NotContains(t, body, "654321")
}

func TestPublish_NotConnected(t *testing.T) {
	n := notify.NewRabbitMQNotifier(config.RabbitMQConfig{Exchange: "transfers.events"}, zerolog.Nop())
	err := n.TransferCompleted(context.Background(), sampleTransfer())
	assert.ErrorIs(t, err, notify.ErrNotConnected)
}

func TestPublish_ChannelError(t *testing.T) {
	n := notify.NewRabbitMQNotifier(config.RabbitMQConfig{Exchange: "transfers.events"}, zerolog.Nop())
	boom := errors.New("channel closed")
	n.UseChannel(notify.PublishFunc(func(string, string, bool, bool, amqp.Publishing) error {
		return boom
	}), time.Now())

	err := n.TransferCompleted(context.Background(), sampleTransfer())
	assert.ErrorIs(t, err, boom)
}

func TestNop_NeverFails(t *testing.T) {
	n := notify.NewNop(zerolog.Nop())
	assert.NoError(t, n.TransferCompleted(context.Background(), sampleTransfer()))
	assert.NoError(t, n.SettlementFailed(context.Background(), sampleTransfer(), "x"))
}
