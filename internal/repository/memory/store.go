package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"storefront-fulfillment-service/internal/model"
	"storefront-fulfillment-service/internal/service"
)

type txKey struct{}

// Store es una implementación en memoria de todas las colecciones, para desarrollo local y tests.
// Un único mutex serializa las transacciones; WithTx restaura el snapshot si fn falla.
type Store struct {
	mu sync.Mutex

	products   map[string]model.Product
	carts      map[string]model.Cart
	orders     map[string]model.Order
	payments   map[string]model.Payment
	deliveries map[string]model.Delivery

	// índices únicos
	cartByUser         map[string]string
	paymentByOrder     map[string]string
	paymentByTxn       map[string]string
	deliveryByOrder    map[string]string
	deliveryByTracking map[string]string
}

func NewStore() *Store {
	return &Store{
		products:           make(map[string]model.Product),
		carts:              make(map[string]model.Cart),
		orders:             make(map[string]model.Order),
		payments:           make(map[string]model.Payment),
		deliveries:         make(map[string]model.Delivery),
		cartByUser:         make(map[string]string),
		paymentByOrder:     make(map[string]string),
		paymentByTxn:       make(map[string]string),
		deliveryByOrder:    make(map[string]string),
		deliveryByTracking: make(map[string]string),
	}
}

// lock no bloquea si el ctx ya pertenece a una transacción de este store.
func (s *Store) lock(ctx context.Context) func() {
	if owner, _ := ctx.Value(txKey{}).(*Store); owner == s {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if owner, _ := ctx.Value(txKey{}).(*Store); owner == s {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

// Ping existe para el health check.
func (s *Store) Ping(context.Context) error {
	return nil
}

type snapshot struct {
	products   map[string]model.Product
	carts      map[string]model.Cart
	orders     map[string]model.Order
	payments   map[string]model.Payment
	deliveries map[string]model.Delivery
	idx        [5]map[string]string
}

// Los valores se reemplazan enteros (nunca se mutan en el mapa), así que basta copiar los mapas.
func (s *Store) snapshot() snapshot {
	return snapshot{
		products:   maps.Clone(s.products),
		carts:      maps.Clone(s.carts),
		orders:     maps.Clone(s.orders),
		payments:   maps.Clone(s.payments),
		deliveries: maps.Clone(s.deliveries),
		idx: [5]map[string]string{
			maps.Clone(s.cartByUser),
			maps.Clone(s.paymentByOrder),
			maps.Clone(s.paymentByTxn),
			maps.Clone(s.deliveryByOrder),
			maps.Clone(s.deliveryByTracking),
		},
	}
}

func (s *Store) restore(snap snapshot) {
	s.products = snap.products
	s.carts = snap.carts
	s.orders = snap.orders
	s.payments = snap.payments
	s.deliveries = snap.deliveries
	s.cartByUser = snap.idx[0]
	s.paymentByOrder = snap.idx[1]
	s.paymentByTxn = snap.idx[2]
	s.deliveryByOrder = snap.idx[3]
	s.deliveryByTracking = snap.idx[4]
}

func (s *Store) Products() *ProductRepository { return &ProductRepository{s: s} }

func (s *Store) Carts() *CartRepository { return &CartRepository{s: s} }

func (s *Store) Orders() *OrderRepository { return &OrderRepository{s: s} }

func (s *Store) Payments() *PaymentRepository { return &PaymentRepository{s: s} }

func (s *Store) Deliveries() *DeliveryRepository { return &DeliveryRepository{s: s} }

func cloneCart(c model.Cart) model.Cart {
	c.Lines = slices.Clone(c.Lines)
	return c
}

func cloneOrder(o model.Order) model.Order {
	o.Items = slices.Clone(o.Items)
	o.StatusHistory = slices.Clone(o.StatusHistory)
	if o.PaymentResult != nil {
		pr := *o.PaymentResult
		o.PaymentResult = &pr
	}
	return o
}

func clonePayment(p model.Payment) model.Payment {
	if p.CardDetails != nil {
		cd := *p.CardDetails
		p.CardDetails = &cd
	}
	return p
}

var _ service.TxManager = (*Store)(nil)
