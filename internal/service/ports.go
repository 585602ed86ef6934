package service

import (
	"context"
	"time"

	"storefront-fulfillment-service/internal/model"
)

// TxManager agrupa escrituras de varios agregados en una sola transacción.
// Los repositorios deben usar el ctx que recibe fn.
type TxManager interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ProductCatalog es el colaborador de catálogo: lectura y descuento atómico de stock.
type ProductCatalog interface {
	Get(ctx context.Context, id string) (model.Product, error)
	GetMany(ctx context.Context, ids []string) (map[string]model.Product, error)
	// ReserveStock descuenta qty solo si stock >= qty; si no, model.ErrOutOfStock.
	ReserveStock(ctx context.Context, id string, qty int) error
	ReleaseStock(ctx context.Context, id string, qty int) error
}

type CartRepository interface {
	// Create falla con model.ErrDuplicateCart si el usuario ya tiene carrito.
	Create(ctx context.Context, c *model.Cart) error
	FindByUserID(ctx context.Context, userID string) (model.Cart, error)
	// Save aplica optimistic locking sobre Version y la incrementa si guarda.
	Save(ctx context.Context, c *model.Cart) error
}

type OrderRepository interface {
	Create(ctx context.Context, o *model.Order) error
	Get(ctx context.Context, id string) (model.Order, error)
	Save(ctx context.Context, o *model.Order) error
	FindByUserID(ctx context.Context, userID string) ([]model.Order, error)
	// List pagina por fecha descendente y devuelve el total.
	List(ctx context.Context, skip, limit int) ([]model.Order, int, error)
}

type PaymentRepository interface {
	// Create falla con model.ErrDuplicatePayment si ya hay pago para la orden.
	Create(ctx context.Context, p *model.Payment) error
	Get(ctx context.Context, id string) (model.Payment, error)
	FindByOrderID(ctx context.Context, orderID string) (model.Payment, error)
	FindByOrderIDs(ctx context.Context, orderIDs []string) ([]model.Payment, error)
	Save(ctx context.Context, p *model.Payment) error
	List(ctx context.Context) ([]model.Payment, error)
}

type DeliveryRepository interface {
	// Create falla con model.ErrDuplicateDelivery o model.ErrDuplicateTracking.
	Create(ctx context.Context, d *model.Delivery) error
	Get(ctx context.Context, id string) (model.Delivery, error)
	FindByOrderID(ctx context.Context, orderID string) (model.Delivery, error)
	FindByTrackingNumber(ctx context.Context, trackingNumber string) (model.Delivery, error)
	Save(ctx context.Context, d *model.Delivery) error
	List(ctx context.Context) ([]model.Delivery, error)
}

// Notifier publica eventos de órdenes. Es fire-and-forget: un error no revierte nada.
type Notifier interface {
	Notify(ctx context.Context, event model.OrderEvent) error
}

// PaymentGateway cobra el importe y devuelve el id de transacción.
type PaymentGateway interface {
	Charge(ctx context.Context, p model.Payment) (string, error)
}

// TrackingCache guarda la proyección pública de seguimiento.
type TrackingCache interface {
	Get(ctx context.Context, trackingNumber string) (*model.TrackingView, error)
	Set(ctx context.Context, view model.TrackingView, ttl time.Duration) error
	Delete(ctx context.Context, trackingNumber string) error
}

// Clock permite fijar la hora en tests.
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC()
}
