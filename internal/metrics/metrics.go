package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics agrupa los collectors del servicio. Un *Metrics nil no registra nada.
type Metrics struct {
	ordersPlaced        prometheus.Counter
	orderTransitions    *prometheus.CounterVec
	payments            *prometheus.CounterVec
	refunds             prometheus.Counter
	deliveryTransitions *prometheus.CounterVec
	notificationsFailed *prometheus.CounterVec
	httpRequests        *prometheus.CounterVec
	httpDuration        *prometheus.HistogramVec
}

func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &Metrics{
		ordersPlaced: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_orders_placed_total",
			Help: "Total number of orders placed",
		}),
		orderTransitions: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_order_transitions_total",
			Help: "Order status transitions by target status",
		}, []string{"to"}),
		payments: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_payments_total",
			Help: "Processed payments by result",
		}, []string{"result"}),
		refunds: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_refunds_total",
			Help: "Total number of refunded payments",
		}),
		deliveryTransitions: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_delivery_transitions_total",
			Help: "Delivery status transitions by target status",
		}, []string{"to"}),
		notificationsFailed: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_notifications_failed_total",
			Help: "Order notifications that could not be delivered, by sink",
		}, []string{"sink"}),
		httpRequests: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_http_requests_total",
			Help: "HTTP requests by route and status code",
		}, []string{"handler", "status"}),
		httpDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "storefront_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"handler"}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}

func (m *Metrics) OrderPlaced() {
	if m == nil {
		return
	}
	m.ordersPlaced.Inc()
}

func (m *Metrics) OrderTransition(to string) {
	if m == nil {
		return
	}
	m.orderTransitions.WithLabelValues(to).Inc()
}

// Payment registra el resultado de un cobro: completed, failed.
func (m *Metrics) Payment(result string) {
	if m == nil {
		return
	}
	m.payments.WithLabelValues(result).Inc()
}

func (m *Metrics) Refund() {
	if m == nil {
		return
	}
	m.refunds.Inc()
}

func (m *Metrics) DeliveryTransition(to string) {
	if m == nil {
		return
	}
	m.deliveryTransitions.WithLabelValues(to).Inc()
}

func (m *Metrics) NotificationFailed(sink string) {
	if m == nil {
		return
	}
	m.notificationsFailed.WithLabelValues(sink).Inc()
}

func (m *Metrics) HTTPRequest(handler string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(handler, fmt.Sprintf("%d", status)).Inc()
	m.httpDuration.WithLabelValues(handler).Observe(elapsed.Seconds())
}
