package rabbit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"storefront-fulfillment-service/internal/model"
)

// publishChannel es la parte de *amqp091.Channel que usa el publisher.
type publishChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

// Publisher publica los eventos de órdenes en un exchange topic; la routing key es el tipo.
type Publisher struct {
	ch       publishChannel
	exchange string
}

func NewPublisher(ch publishChannel, exchange string) *Publisher {
	return &Publisher{ch: ch, exchange: exchange}
}

func (p *Publisher) Notify(ctx context.Context, ev model.OrderEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	err = p.ch.PublishWithContext(ctx, p.exchange, string(ev.Type), false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    ev.OrderID + ":" + string(ev.Type),
		Timestamp:    time.Now().UTC(),
		Type:         string(ev.Type),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	return nil
}
