package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"storefront-fulfillment-service/internal/metrics"
	"storefront-fulfillment-service/internal/model"
)

type DeliveryOptions struct {
	DefaultCarrier   string
	DefaultSignature string
	TrackingCacheTTL time.Duration
	// TrackingNumbers reemplaza al generador por defecto (tests).
	TrackingNumbers func(time.Time) string
}

func DefaultDeliveryOptions() DeliveryOptions {
	return DeliveryOptions{
		DefaultCarrier:   "Standard Shipping",
		DefaultSignature: "Digital Signature",
		TrackingCacheTTL: 30 * time.Second,
	}
}

type CreateDeliveryInput struct {
	OrderID         string
	EstimatedDate   time.Time
	Carrier         string
	ShippingAddress *model.ShippingAddress // nil = la de la orden
	DeliveryNotes   string
}

const (
	maxDeliveryNotes  = 500
	maxTrackingTries  = 3
	trackingHexLength = 12
)

type DeliveryService struct {
	tx          TxManager
	deliveries  DeliveryRepository
	orders      OrderRepository
	cache       TrackingCache
	coord       *coordinator
	notifier    Notifier
	metrics     *metrics.Metrics
	opts        DeliveryOptions
	now         Clock
	newTracking func(time.Time) string
	log         *log.Entry
}

func NewDeliveryService(d Deps, opts DeliveryOptions) *DeliveryService {
	gen := opts.TrackingNumbers
	if gen == nil {
		gen = NewTrackingNumber
	}
	return &DeliveryService{
		tx:          d.Tx,
		deliveries:  d.Deliveries,
		orders:      d.Orders,
		cache:       d.Cache,
		coord:       newCoordinator(d),
		notifier:    d.notifier(),
		metrics:     d.Metrics,
		opts:        opts,
		now:         d.clock(),
		newTracking: gen,
		log:         d.logger("delivery"),
	}
}

// NewTrackingNumber arma TRK + yyyymmdd + 12 hex de un UUIDv4.
func NewTrackingNumber(now time.Time) string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "TRK" + now.Format("20060102") + strings.ToUpper(hex[:trackingHexLength])
}

// CreateDelivery abre la entrega de una orden (admin). Una sola por orden.
func (s *DeliveryService) CreateDelivery(ctx context.Context, who model.Principal, in CreateDeliveryInput) (model.Delivery, error) {
	if !who.IsAdmin() {
		return model.Delivery{}, model.ErrForbidden
	}
	order, err := s.orders.Get(ctx, in.OrderID)
	if err != nil {
		return model.Delivery{}, err
	}
	if order.OrderStatus == model.OrderCancelled {
		return model.Delivery{}, model.ErrOrderCancelled
	}

	now := s.now()
	if in.EstimatedDate.IsZero() || in.EstimatedDate.Before(startOfDay(now)) {
		return model.Delivery{}, model.ErrInvalidDelivery
	}
	if utf8.RuneCountInString(in.DeliveryNotes) > maxDeliveryNotes {
		return model.Delivery{}, model.ErrInvalidDelivery
	}

	addr := order.ShippingAddress
	if in.ShippingAddress != nil && !in.ShippingAddress.IsZero() {
		addr = *in.ShippingAddress
	}
	if err := addr.Validate(); err != nil {
		return model.Delivery{}, err
	}
	carrier := strings.TrimSpace(in.Carrier)
	if carrier == "" {
		carrier = s.opts.DefaultCarrier
	}

	d := model.Delivery{
		ID:              uuid.NewString(),
		OrderID:         order.ID,
		Status:          model.DeliveryPending,
		EstimatedDate:   in.EstimatedDate,
		Carrier:         carrier,
		ShippingAddress: addr,
		DeliveryNotes:   in.DeliveryNotes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	for attempt := 0; attempt < maxTrackingTries; attempt++ {
		d.TrackingNumber = s.newTracking(now)
		err = s.deliveries.Create(ctx, &d)
		if !errors.Is(err, model.ErrDuplicateTracking) {
			break
		}
		s.log.WithField("tracking_number", d.TrackingNumber).Warn("tracking number collision, regenerating")
	}
	if err != nil {
		return model.Delivery{}, err
	}

	s.log.WithFields(log.Fields{
		"delivery_id":     d.ID,
		"order_id":        d.OrderID,
		"tracking_number": d.TrackingNumber,
	}).Info("delivery created")
	return d, nil
}

// UpdateStatus aplica la tabla de transiciones (admin). Delivered se propaga a la orden.
func (s *DeliveryService) UpdateStatus(ctx context.Context, who model.Principal, id string, next model.DeliveryStatus) (model.Delivery, error) {
	if !who.IsAdmin() {
		return model.Delivery{}, model.ErrForbidden
	}
	return s.apply(ctx, who, id, next, "")
}

// ConfirmDelivery es el atajo del cliente: Delivered + firma.
func (s *DeliveryService) ConfirmDelivery(ctx context.Context, who model.Principal, id, signature string) (model.Delivery, error) {
	d, err := s.deliveries.Get(ctx, id)
	if err != nil {
		return model.Delivery{}, err
	}
	if err := s.checkOrderAccess(ctx, who, d.OrderID); err != nil {
		return model.Delivery{}, err
	}
	if strings.TrimSpace(signature) == "" {
		signature = s.opts.DefaultSignature
	}
	return s.apply(ctx, who, id, model.DeliveryDelivered, signature)
}

func (s *DeliveryService) apply(ctx context.Context, who model.Principal, id string, next model.DeliveryStatus, signature string) (model.Delivery, error) {
	if !next.Valid() {
		return model.Delivery{}, model.ErrInvalidStatus
	}

	var (
		d       model.Delivery
		order   model.Order
		changed bool
	)
	err := retryOnConflict(func() error {
		return s.tx.WithTx(ctx, func(ctx context.Context) error {
			var err error
			d, err = s.deliveries.Get(ctx, id)
			if err != nil {
				return err
			}
			changed, err = d.TransitionTo(next, s.now())
			if err != nil || !changed {
				return err
			}
			if signature != "" {
				d.Signature = signature
			}
			if err := s.deliveries.Save(ctx, &d); err != nil {
				return fmt.Errorf("save delivery: %w", err)
			}
			if next == model.DeliveryDelivered {
				order, err = s.coord.markDelivered(ctx, d.OrderID, who.ID)
				return err
			}
			return nil
		})
	})
	if err != nil {
		return model.Delivery{}, err
	}
	if !changed {
		return d, nil
	}

	s.metrics.DeliveryTransition(string(next))
	if next == model.DeliveryDelivered {
		s.metrics.OrderTransition(string(model.OrderDelivered))
	}
	s.invalidate(ctx, d.TrackingNumber)
	s.log.WithFields(log.Fields{"delivery_id": d.ID, "order_id": d.OrderID, "status": next}).Info("delivery status updated")
	if next == model.DeliveryDelivered {
		notifyAll(ctx, s.notifier, s.log, model.NewOrderEvent(model.EventOrderDelivered, &order, order.UpdatedAt))
	}
	return d, nil
}

// Track es la consulta pública: devuelve solo la proyección, nunca ids internos.
func (s *DeliveryService) Track(ctx context.Context, trackingNumber string) (model.TrackingView, error) {
	if s.cache != nil {
		view, err := s.cache.Get(ctx, trackingNumber)
		if err != nil {
			s.log.WithError(err).Warn("tracking cache read failed")
		} else if view != nil {
			return *view, nil
		}
	}

	d, err := s.deliveries.FindByTrackingNumber(ctx, trackingNumber)
	if err != nil {
		return model.TrackingView{}, err
	}
	view := d.TrackingView()
	if s.cache != nil {
		if err := s.cache.Set(ctx, view, s.opts.TrackingCacheTTL); err != nil {
			s.log.WithError(err).Warn("tracking cache write failed")
		}
	}
	return view, nil
}

func (s *DeliveryService) invalidate(ctx context.Context, trackingNumber string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, trackingNumber); err != nil {
		s.log.WithField("tracking_number", trackingNumber).WithError(err).Warn("tracking cache invalidation failed")
	}
}

func (s *DeliveryService) GetDelivery(ctx context.Context, who model.Principal, id string) (model.Delivery, error) {
	d, err := s.deliveries.Get(ctx, id)
	if err != nil {
		return model.Delivery{}, err
	}
	if err := s.checkOrderAccess(ctx, who, d.OrderID); err != nil {
		return model.Delivery{}, err
	}
	return d, nil
}

func (s *DeliveryService) GetDeliveryByOrder(ctx context.Context, who model.Principal, orderID string) (model.Delivery, error) {
	if err := s.checkOrderAccess(ctx, who, orderID); err != nil {
		return model.Delivery{}, err
	}
	return s.deliveries.FindByOrderID(ctx, orderID)
}

func (s *DeliveryService) ListDeliveries(ctx context.Context) ([]model.Delivery, error) {
	return s.deliveries.List(ctx)
}

func (s *DeliveryService) checkOrderAccess(ctx context.Context, who model.Principal, orderID string) error {
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if !who.CanAccess(order.UserID) {
		return model.ErrForbidden
	}
	return nil
}
