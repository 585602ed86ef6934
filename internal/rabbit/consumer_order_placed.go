package rabbit

import (
	"context"
	"encoding/json"
	"fmt"

	log "github.com/sirupsen/logrus"

	"storefront-fulfillment-service/internal/model"
	"storefront-fulfillment-service/internal/service"
)

// CartClearer es la parte de CartService que necesita el consumer.
type CartClearer interface {
	Clear(ctx context.Context, userID string) (service.CartView, error)
}

// OrderPlacedConsumer vacía el carrito del comprador cuando llega order.placed.
// No es atómico con la creación de la orden.
type OrderPlacedConsumer struct {
	Carts CartClearer
	log   *log.Entry
}

func NewOrderPlacedConsumer(carts CartClearer, logger *log.Entry) *OrderPlacedConsumer {
	return &OrderPlacedConsumer{Carts: carts, log: logger.WithField("component", "cart_cleanup")}
}

func (c *OrderPlacedConsumer) Handle(ctx context.Context, msg []byte) error {
	var event model.OrderEvent
	if err := json.Unmarshal(msg, &event); err != nil {
		return fmt.Errorf("decode order event: %w", err)
	}

	// La cola puede quedar bindeada a otras keys; se ignora lo que no es order.placed.
	if event.Type != model.EventOrderPlaced {
		return nil
	}
	if event.UserID == "" {
		return fmt.Errorf("order event %s without user", event.OrderID)
	}

	if _, err := c.Carts.Clear(ctx, event.UserID); err != nil {
		return fmt.Errorf("clear cart for order %s: %w", event.OrderID, err)
	}

	c.log.WithFields(log.Fields{
		"order_id": event.OrderID,
		"user_id":  event.UserID,
	}).Info("cart cleared after order placed")
	return nil
}
