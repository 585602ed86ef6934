// setup.go
package rabbit

import (
	"context"
	"fmt"

	"github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"

	"storefront-fulfillment-service/internal/model"
)

// DeclareExchange crea el exchange topic donde se publican los eventos de órdenes.
func DeclareExchange(ch *amqp091.Channel, exchange string) error {
	if err := ch.ExchangeDeclare(exchange, amqp091.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return nil
}

// SetupCartCleanup declara la cola, la bindea a order.placed y consume hasta que ctx termine.
func SetupCartCleanup(ctx context.Context, ch *amqp091.Channel, exchange, queue string, consumer *OrderPlacedConsumer, logger *log.Entry) error {
	// 1. Declarar la queue
	q, err := ch.QueueDeclare(queue, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", queue, err)
	}

	// 2. Bindear al exchange topic
	if err := ch.QueueBind(q.Name, string(model.EventOrderPlaced), exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %s: %w", q.Name, err)
	}

	// 3. Consumir con ack manual
	msgs, err := ch.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume queue %s: %w", q.Name, err)
	}

	go consume(ctx, msgs, consumer, logger)

	logger.WithFields(log.Fields{"exchange": exchange, "queue": q.Name}).Info("subscribed to order.placed")
	return nil
}

func consume(ctx context.Context, msgs <-chan amqp091.Delivery, consumer *OrderPlacedConsumer, logger *log.Entry) {
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-msgs:
			if !ok {
				logger.Warn("cart cleanup channel closed")
				return
			}
			if err := consumer.Handle(ctx, m.Body); err != nil {
				logger.WithError(err).Error("cart cleanup failed")
				// sin requeue: un mensaje roto no debe quedar en loop
				_ = m.Nack(false, false)
				continue
			}
			_ = m.Ack(false)
		}
	}
}
