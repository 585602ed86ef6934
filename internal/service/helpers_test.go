package service_test

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"storefront-fulfillment-service/internal/model"
	"storefront-fulfillment-service/internal/repository/memory"
	"storefront-fulfillment-service/internal/service"
)

var (
	alice = model.Principal{ID: "alice", Role: model.RoleUser}
	bob   = model.Principal{ID: "bob", Role: model.RoleUser}
	admin = model.Principal{ID: "root", Role: model.RoleAdmin}
)

var fixedNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	mu     sync.Mutex
	events []model.OrderEvent
}

func (n *recordingNotifier) Notify(_ context.Context, ev model.OrderEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return nil
}

func (n *recordingNotifier) types() []model.EventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]model.EventType, 0, len(n.events))
	for _, ev := range n.events {
		out = append(out, ev.Type)
	}
	return out
}

type fixture struct {
	store      *memory.Store
	deps       service.Deps
	notifier   *recordingNotifier
	carts      *service.CartService
	orders     *service.OrderService
	payments   *service.PaymentService
	deliveries *service.DeliveryService
}

func quietLogger() *log.Entry {
	l := log.New()
	l.SetOutput(io.Discard)
	return log.NewEntry(l)
}

func newFixture(t *testing.T, opts ...func(*service.Deps)) *fixture {
	t.Helper()
	store := memory.NewStore()
	store.Products().Put(model.Product{ID: "A", Name: "Widget", Price: 1000, Stock: 5, Thumbnail: "a.png"})
	store.Products().Put(model.Product{ID: "B", Name: "Gadget", Price: 2000, Stock: 5, Thumbnail: "b.png"})

	n := &recordingNotifier{}
	deps := service.Deps{
		Tx:         store,
		Catalog:    store.Products(),
		Carts:      store.Carts(),
		Orders:     store.Orders(),
		Payments:   store.Payments(),
		Deliveries: store.Deliveries(),
		Notifier:   n,
		Logger:     quietLogger(),
		Clock:      func() time.Time { return fixedNow },
	}
	for _, o := range opts {
		o(&deps)
	}
	return &fixture{
		store:      store,
		deps:       deps,
		notifier:   n,
		carts:      service.NewCartService(deps),
		orders:     service.NewOrderService(deps, service.DefaultPricing()),
		payments:   service.NewPaymentService(deps),
		deliveries: service.NewDeliveryService(deps, service.DefaultDeliveryOptions()),
	}
}

func address() model.ShippingAddress {
	return model.ShippingAddress{
		Street:  "1 Main St",
		City:    "Springfield",
		State:   "IL",
		ZipCode: "62701",
		Country: "US",
		Phone:   "555-0100",
	}
}

func money(m model.Money) *model.Money {
	return &m
}

func (f *fixture) stock(t *testing.T, id string) int {
	t.Helper()
	p, err := f.store.Products().Get(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

// placeOrder arma la orden del escenario base: 2xA + 1xB, envío 9.99, impuesto 4.00 = 53.99.
func (f *fixture) placeOrder(t *testing.T, who model.Principal) model.Order {
	t.Helper()
	ctx := context.Background()
	_, err := f.carts.AddItem(ctx, who.ID, "A", 2)
	require.NoError(t, err)
	_, err = f.carts.AddItem(ctx, who.ID, "B", 1)
	require.NoError(t, err)

	order, err := f.orders.PlaceOrder(ctx, who.ID, service.PlaceOrderInput{
		ShippingAddress: address(),
		ShippingPrice:   money(999),
		TaxPrice:        money(400),
	})
	require.NoError(t, err)
	_, err = f.carts.Clear(ctx, who.ID)
	require.NoError(t, err)
	return order
}

func (f *fixture) paidOrder(t *testing.T, who model.Principal) (model.Order, model.Payment) {
	t.Helper()
	ctx := context.Background()
	order := f.placeOrder(t, who)
	p, err := f.payments.CreatePayment(ctx, who, service.CreatePaymentInput{OrderID: order.ID, Amount: order.TotalPrice})
	require.NoError(t, err)
	p, err = f.payments.ProcessPayment(ctx, who, p.ID)
	require.NoError(t, err)
	return order, p
}
