package notify

import (
	"time"

	"github.com/streadway/amqp"
)

// PublishFunc adapta una función a la interfaz channel en tests.
type PublishFunc func(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error

func (f PublishFunc) Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	return f(exchange, key, mandatory, immediate, msg)
}

// UseChannel inyecta un canal falso y un reloj fijo.
func (n *RabbitMQNotifier) UseChannel(ch channel, now time.Time) {
	n.mu.Lock()
	n.ch = ch
	n.now = func() time.Time { return now }
	n.mu.Unlock()
}
