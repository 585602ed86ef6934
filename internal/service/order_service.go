package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"storefront-fulfillment-service/internal/metrics"
	"storefront-fulfillment-service/internal/model"
)

// PlaceOrderInput son los datos del checkout. Los importes nil se calculan.
type PlaceOrderInput struct {
	ShippingAddress model.ShippingAddress
	PaymentMethod   string
	ItemsPrice      *model.Money
	TaxPrice        *model.Money
	ShippingPrice   *model.Money
}

type OrderPage struct {
	Orders []model.Order
	Total  int
	Page   int
	Pages  int
}

const (
	defaultPageSize = 10
	maxPageSize     = 100

	// maxPage mantiene (page-1)*limit lejos del overflow
	maxPage = 1 << 20
)

type OrderService struct {
	tx       TxManager
	orders   OrderRepository
	carts    CartRepository
	catalog  ProductCatalog
	pricing  PricingPolicy
	coord    *coordinator
	notifier Notifier
	metrics  *metrics.Metrics
	now      Clock
	log      *log.Entry
}

func NewOrderService(d Deps, pricing PricingPolicy) *OrderService {
	return &OrderService{
		tx:       d.Tx,
		orders:   d.Orders,
		carts:    d.Carts,
		catalog:  d.Catalog,
		pricing:  pricing,
		coord:    newCoordinator(d),
		notifier: d.notifier(),
		metrics:  d.Metrics,
		now:      d.clock(),
		log:      d.logger("order"),
	}
}

// PlaceOrder convierte el carrito del usuario en una orden Pending.
// El stock de cada línea se reserva en la misma transacción que inserta la orden.
// El carrito no se vacía acá.
func (s *OrderService) PlaceOrder(ctx context.Context, userID string, in PlaceOrderInput) (model.Order, error) {
	if err := in.ShippingAddress.Validate(); err != nil {
		return model.Order{}, err
	}
	method := in.PaymentMethod
	if method == "" {
		method = model.DefaultPaymentMethod
	}
	if !model.ValidPaymentMethod(method) {
		return model.Order{}, model.ErrInvalidPayment
	}

	cart, err := s.carts.FindByUserID(ctx, userID)
	if err != nil && !errors.Is(err, model.ErrCartNotFound) {
		return model.Order{}, fmt.Errorf("find cart: %w", err)
	}
	if len(cart.Lines) == 0 {
		return model.Order{}, model.ErrEmptyCart
	}

	ids := make([]string, 0, len(cart.Lines))
	for _, l := range cart.Lines {
		ids = append(ids, l.ProductID)
	}
	products, err := s.catalog.GetMany(ctx, ids)
	if err != nil {
		return model.Order{}, fmt.Errorf("load products: %w", err)
	}

	items := make([]model.OrderItem, 0, len(cart.Lines))
	for _, l := range cart.Lines {
		p, ok := products[l.ProductID]
		if !ok {
			return model.Order{}, model.ErrProductNotFound
		}
		items = append(items, model.OrderItem{
			ProductID: p.ID,
			Name:      p.Name,
			Quantity:  l.Quantity,
			Price:     l.UnitPrice,
			Image:     p.Thumbnail,
		})
	}

	now := s.now()
	order := model.Order{
		ID:              uuid.NewString(),
		UserID:          userID,
		Items:           items,
		ShippingAddress: in.ShippingAddress,
		PaymentMethod:   method,
		OrderStatus:     model.OrderPending,
		StatusHistory: []model.StatusRecord{{
			Status:    model.OrderPending,
			Reason:    "order placed",
			UserID:    userID,
			Timestamp: now,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}

	order.ItemsPrice = order.ItemsTotal()
	if in.ItemsPrice != nil && *in.ItemsPrice != order.ItemsPrice {
		return model.Order{}, model.ErrItemsPriceMismatch
	}
	order.ShippingPrice = s.pricing.Shipping(order.ItemsPrice)
	if in.ShippingPrice != nil {
		order.ShippingPrice = *in.ShippingPrice
	}
	order.TaxPrice = s.pricing.Tax(order.ItemsPrice)
	if in.TaxPrice != nil {
		order.TaxPrice = *in.TaxPrice
	}
	order.TotalPrice = order.ItemsPrice + order.TaxPrice + order.ShippingPrice

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		for _, it := range order.Items {
			if err := s.catalog.ReserveStock(ctx, it.ProductID, it.Quantity); err != nil {
				return err
			}
		}
		return s.orders.Create(ctx, &order)
	})
	if err != nil {
		return model.Order{}, err
	}

	s.metrics.OrderPlaced()
	s.log.WithFields(log.Fields{
		"order_id": order.ID,
		"user_id":  userID,
		"total":    order.TotalPrice.String(),
	}).Info("order placed")
	notifyAll(ctx, s.notifier, s.log, model.NewOrderEvent(model.EventOrderPlaced, &order, now))
	return order, nil
}

// GetOrder: solo el dueño o un admin.
func (s *OrderService) GetOrder(ctx context.Context, who model.Principal, id string) (model.Order, error) {
	order, err := s.orders.Get(ctx, id)
	if err != nil {
		return model.Order{}, err
	}
	if !who.CanAccess(order.UserID) {
		return model.Order{}, model.ErrForbidden
	}
	return order, nil
}

func (s *OrderService) GetMyOrders(ctx context.Context, userID string) ([]model.Order, error) {
	return s.orders.FindByUserID(ctx, userID)
}

// ListOrders pagina todas las órdenes (admin). page empieza en 1.
func (s *OrderService) ListOrders(ctx context.Context, page, limit int) (OrderPage, error) {
	if page < 1 {
		page = 1
	}
	if page > maxPage {
		page = maxPage
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	orders, total, err := s.orders.List(ctx, (page-1)*limit, limit)
	if err != nil {
		return OrderPage{}, fmt.Errorf("list orders: %w", err)
	}
	return OrderPage{Orders: orders, Total: total, Page: page, Pages: pageCount(total, limit)}, nil
}

// UpdateOrderStatus es la transición manual de admin. force saltea la tabla de transiciones.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, who model.Principal, id string, next model.OrderStatus, reason string, force bool) (model.Order, error) {
	if !who.IsAdmin() {
		return model.Order{}, model.ErrForbidden
	}
	if !next.Valid() {
		return model.Order{}, model.ErrInvalidStatus
	}
	if reason == "" {
		reason = "status updated by admin"
	}

	var (
		order   model.Order
		changed bool
	)
	err := retryOnConflict(func() error {
		return s.tx.WithTx(ctx, func(ctx context.Context) error {
			var err error
			order, err = s.orders.Get(ctx, id)
			if err != nil {
				return err
			}
			if next == model.OrderCancelled {
				changed, err = s.coord.cancel(ctx, &order, reason, who.ID, force)
				return err
			}

			now := s.now()
			changed, err = order.TransitionTo(next, reason, who.ID, now, force)
			if err != nil || !changed {
				return err
			}
			if next == model.OrderDelivered {
				order.IsDelivered = true
				order.DeliveredAt = &now
			}
			if err := s.orders.Save(ctx, &order); err != nil {
				return fmt.Errorf("save order: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		return model.Order{}, err
	}
	if !changed {
		return order, nil
	}

	s.metrics.OrderTransition(string(next))
	entry := s.log.WithFields(log.Fields{"order_id": id, "status": next, "user_id": who.ID})
	if force {
		entry.Warn("order status forced by admin")
	} else {
		entry.Info("order status updated")
	}
	notifyAll(ctx, s.notifier, s.log, model.NewOrderEvent(eventForStatus(next), &order, order.UpdatedAt))
	return order, nil
}

// CancelOrder: dueño o admin. Una orden entregada no se cancela; una ya cancelada es no-op.
func (s *OrderService) CancelOrder(ctx context.Context, who model.Principal, id, reason string) (model.Order, error) {
	if reason == "" {
		reason = "cancelled by user"
	}

	var (
		order   model.Order
		changed bool
	)
	err := retryOnConflict(func() error {
		return s.tx.WithTx(ctx, func(ctx context.Context) error {
			var err error
			order, err = s.orders.Get(ctx, id)
			if err != nil {
				return err
			}
			if !who.CanAccess(order.UserID) {
				return model.ErrForbidden
			}
			changed, err = s.coord.cancel(ctx, &order, reason, who.ID, false)
			return err
		})
	})
	if err != nil {
		return model.Order{}, err
	}
	if changed {
		s.metrics.OrderTransition(string(model.OrderCancelled))
		s.log.WithFields(log.Fields{"order_id": id, "user_id": who.ID}).Info("order cancelled")
		notifyAll(ctx, s.notifier, s.log, model.NewOrderEvent(model.EventOrderCancelled, &order, order.UpdatedAt))
	}
	return order, nil
}

func eventForStatus(st model.OrderStatus) model.EventType {
	switch st {
	case model.OrderCancelled:
		return model.EventOrderCancelled
	case model.OrderDelivered:
		return model.EventOrderDelivered
	default:
		return model.EventOrderStatusChanged
	}
}
