package service

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"storefront-fulfillment-service/internal/model"
)

// coordinator aplica sobre la orden los efectos de pagos y entregas.
// Siempre se llama con el ctx de una transacción abierta; las métricas las cuenta el caller tras el commit.
type coordinator struct {
	orders  OrderRepository
	catalog ProductCatalog
	now     Clock
	log     *log.Entry
}

func newCoordinator(d Deps) *coordinator {
	return &coordinator{
		orders:  d.Orders,
		catalog: d.Catalog,
		now:     d.clock(),
		log:     d.logger("coordinator"),
	}
}

func (c *coordinator) markPaid(ctx context.Context, orderID string, p *model.Payment) (model.Order, error) {
	order, err := c.orders.Get(ctx, orderID)
	if err != nil {
		return model.Order{}, err
	}
	if order.OrderStatus == model.OrderCancelled {
		return model.Order{}, model.ErrOrderCancelled
	}
	order.MarkPaid(model.PaymentResult{
		ID:         p.TransactionID,
		Status:     string(p.Status),
		UpdateTime: p.UpdatedAt,
	}, p.UpdatedAt)
	if err := c.orders.Save(ctx, &order); err != nil {
		return model.Order{}, fmt.Errorf("save paid order: %w", err)
	}
	return order, nil
}

func (c *coordinator) markDelivered(ctx context.Context, orderID, actorID string) (model.Order, error) {
	order, err := c.orders.Get(ctx, orderID)
	if err != nil {
		return model.Order{}, err
	}
	if err := order.MarkDelivered(actorID, c.now()); err != nil {
		return model.Order{}, err
	}
	if err := c.orders.Save(ctx, &order); err != nil {
		return model.Order{}, fmt.Errorf("save delivered order: %w", err)
	}
	return order, nil
}

// cancel pasa la orden a Cancelled y devuelve el stock salvo que ya se hubiera entregado.
// Devuelve false si ya estaba cancelada.
func (c *coordinator) cancel(ctx context.Context, order *model.Order, reason, actorID string, force bool) (bool, error) {
	wasDelivered := order.OrderStatus == model.OrderDelivered
	changed, err := order.TransitionTo(model.OrderCancelled, reason, actorID, c.now(), force)
	if err != nil || !changed {
		return false, err
	}
	if !wasDelivered {
		for _, it := range order.Items {
			if err := c.catalog.ReleaseStock(ctx, it.ProductID, it.Quantity); err != nil {
				return false, fmt.Errorf("release stock for %s: %w", it.ProductID, err)
			}
		}
	}
	if err := c.orders.Save(ctx, order); err != nil {
		return false, fmt.Errorf("save cancelled order: %w", err)
	}
	if force && wasDelivered {
		c.log.WithField("order_id", order.ID).Warn("delivered order cancelled by override")
	}
	return true, nil
}
