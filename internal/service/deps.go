package service

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"storefront-fulfillment-service/internal/metrics"
	"storefront-fulfillment-service/internal/model"
)

// Deps reúne los puertos que comparten los servicios. Notifier, Cache, Metrics y Clock son opcionales.
type Deps struct {
	Tx         TxManager
	Catalog    ProductCatalog
	Carts      CartRepository
	Orders     OrderRepository
	Payments   PaymentRepository
	Deliveries DeliveryRepository
	Gateway    PaymentGateway
	Notifier   Notifier
	Cache      TrackingCache
	Metrics    *metrics.Metrics
	Logger     *log.Entry
	Clock      Clock
}

func (d Deps) clock() Clock {
	if d.Clock != nil {
		return d.Clock
	}
	return systemClock
}

func (d Deps) logger(component string) *log.Entry {
	if d.Logger != nil {
		return d.Logger.WithField("component", component)
	}
	return log.WithField("component", component)
}

func (d Deps) notifier() Notifier {
	if d.Notifier != nil {
		return d.Notifier
	}
	return noopNotifier{}
}

// maxVersionRetries acota los reintentos ante ErrVersionConflict.
const maxVersionRetries = 3

// retryOnConflict re-ejecuta fn mientras falle por optimistic locking.
func retryOnConflict(fn func() error) error {
	var err error
	for attempt := 0; attempt < maxVersionRetries; attempt++ {
		if err = fn(); !errors.Is(err, model.ErrVersionConflict) {
			return err
		}
	}
	return err
}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, model.OrderEvent) error { return nil }

// notifyAll publica después del commit. Los errores solo se loguean.
func notifyAll(ctx context.Context, n Notifier, logger *log.Entry, events ...model.OrderEvent) {
	for _, ev := range events {
		if err := n.Notify(ctx, ev); err != nil {
			logger.WithFields(log.Fields{
				"order_id": ev.OrderID,
				"event":    ev.Type,
			}).WithError(err).Warn("order notification failed")
		}
	}
}

// Fanout reparte cada evento entre varios sinks; un sink caído no frena a los demás.
type Fanout struct {
	names   []string
	sinks   []Notifier
	metrics *metrics.Metrics
	log     *log.Entry
}

func NewFanout(m *metrics.Metrics, logger *log.Entry) *Fanout {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Fanout{metrics: m, log: logger.WithField("component", "notifier")}
}

func (f *Fanout) Add(name string, n Notifier) {
	f.names = append(f.names, name)
	f.sinks = append(f.sinks, n)
}

func (f *Fanout) Len() int {
	return len(f.sinks)
}

func (f *Fanout) Notify(ctx context.Context, ev model.OrderEvent) error {
	var errs []error
	for i, sink := range f.sinks {
		if err := sink.Notify(ctx, ev); err != nil {
			f.metrics.NotificationFailed(f.names[i])
			f.log.WithField("sink", f.names[i]).WithError(err).Debug("sink rejected event")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// pageCount redondea hacia arriba; limit <= 0 cuenta como una sola página.
func pageCount(total, limit int) int {
	if limit <= 0 || total == 0 {
		return 1
	}
	return (total + limit - 1) / limit
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
