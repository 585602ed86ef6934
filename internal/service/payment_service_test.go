package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-fulfillment-service/internal/model"
	"storefront-fulfillment-service/internal/service"
)

func TestCreatePaymentOnePerOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.placeOrder(t, alice)

	amount, err := model.ParseMoney("53.99")
	require.NoError(t, err)

	p, err := f.payments.CreatePayment(ctx, alice, service.CreatePaymentInput{
		OrderID:     order.ID,
		Amount:      amount,
		CardDetails: &model.CardDetails{Last4Digits: "4242", CardType: "Visa", ExpiryMonth: 12, ExpiryYear: 2030},
	})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentPending, p.Status)
	assert.Equal(t, model.DefaultPaymentMethod, p.PaymentMethod)
	assert.Empty(t, p.TransactionID)

	_, err = f.payments.CreatePayment(ctx, alice, service.CreatePaymentInput{OrderID: order.ID, Amount: amount})
	assert.ErrorIs(t, err, model.ErrDuplicatePayment)
	assert.Equal(t, model.KindConflict, model.KindOf(err))
}

func TestCreatePaymentValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.placeOrder(t, alice)

	tests := []struct {
		name string
		who  model.Principal
		in   service.CreatePaymentInput
		want error
	}{
		{"unknown order", alice, service.CreatePaymentInput{OrderID: "missing", Amount: 5399}, model.ErrOrderNotFound},
		{"not the owner", bob, service.CreatePaymentInput{OrderID: order.ID, Amount: 5399}, model.ErrForbidden},
		{"one cent short", alice, service.CreatePaymentInput{OrderID: order.ID, Amount: 5398}, model.ErrAmountMismatch},
		{"unknown method", alice, service.CreatePaymentInput{OrderID: order.ID, Amount: 5399, PaymentMethod: "Gold"}, model.ErrInvalidPayment},
		{"full card number", alice, service.CreatePaymentInput{OrderID: order.ID, Amount: 5399, CardDetails: &model.CardDetails{Last4Digits: "4242424242424242"}}, model.ErrInvalidPayment},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.payments.CreatePayment(ctx, tt.who, tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	p, err := f.payments.CreatePayment(ctx, admin, service.CreatePaymentInput{OrderID: order.ID, Amount: 5399, PaymentMethod: "PayPal"})
	require.NoError(t, err)
	assert.Equal(t, "PayPal", p.PaymentMethod)
}

func TestCreatePaymentCancelledOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.placeOrder(t, alice)
	_, err := f.orders.CancelOrder(ctx, alice, order.ID, "")
	require.NoError(t, err)

	_, err = f.payments.CreatePayment(ctx, alice, service.CreatePaymentInput{OrderID: order.ID, Amount: order.TotalPrice})
	assert.ErrorIs(t, err, model.ErrOrderCancelled)
}

func TestConcurrentCreatePaymentOnlyOneSucceeds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.placeOrder(t, alice)

	const n = 16
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.payments.CreatePayment(ctx, alice, service.CreatePaymentInput{OrderID: order.ID, Amount: order.TotalPrice})
		}()
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		if err == nil {
			created++
			continue
		}
		assert.ErrorIs(t, err, model.ErrDuplicatePayment)
	}
	assert.Equal(t, 1, created)
}

func TestProcessPaymentMarksOrderPaid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order, p := f.paidOrder(t, alice)

	assert.Equal(t, model.PaymentCompleted, p.Status)
	assert.Regexp(t, `^TXN[0-9A-F]{32}$`, p.TransactionID)
	require.NotNil(t, p.PaymentDate)

	got, err := f.orders.GetOrder(ctx, alice, order.ID)
	require.NoError(t, err)
	assert.True(t, got.IsPaid)
	require.NotNil(t, got.PaidAt)
	require.NotNil(t, got.PaymentResult)
	assert.Equal(t, p.TransactionID, got.PaymentResult.ID)
	assert.Equal(t, string(model.PaymentCompleted), got.PaymentResult.Status)
	assert.Contains(t, f.notifier.types(), model.EventOrderPaid)
}

func TestProcessPaymentTwice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, p := f.paidOrder(t, alice)

	_, err := f.payments.ProcessPayment(ctx, alice, p.ID)
	assert.ErrorIs(t, err, model.ErrAlreadyProcessed)

	again, err := f.payments.GetPayment(ctx, alice, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.TransactionID, again.TransactionID)
}

func TestProcessPaymentForbiddenAndMissing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.placeOrder(t, alice)
	p, err := f.payments.CreatePayment(ctx, alice, service.CreatePaymentInput{OrderID: order.ID, Amount: order.TotalPrice})
	require.NoError(t, err)

	_, err = f.payments.ProcessPayment(ctx, bob, p.ID)
	assert.ErrorIs(t, err, model.ErrForbidden)
	_, err = f.payments.ProcessPayment(ctx, alice, "missing")
	assert.ErrorIs(t, err, model.ErrPaymentNotFound)
}

func TestProcessPaymentDeclined(t *testing.T) {
	f := newFixture(t, func(d *service.Deps) { d.Gateway = service.DecliningGateway{} })
	ctx := context.Background()
	order := f.placeOrder(t, alice)
	p, err := f.payments.CreatePayment(ctx, alice, service.CreatePaymentInput{OrderID: order.ID, Amount: order.TotalPrice})
	require.NoError(t, err)

	_, err = f.payments.ProcessPayment(ctx, alice, p.ID)
	assert.ErrorIs(t, err, model.ErrPaymentDeclined)
	assert.Equal(t, model.KindValidation, model.KindOf(err))

	failed, err := f.payments.GetPayment(ctx, alice, p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentFailed, failed.Status)
	assert.Empty(t, failed.TransactionID)

	_, err = f.payments.ProcessPayment(ctx, alice, p.ID)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)

	got, _ := f.orders.GetOrder(ctx, alice, order.ID)
	assert.False(t, got.IsPaid)
}

func TestRefundRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order := f.placeOrder(t, alice)
	pending, err := f.payments.CreatePayment(ctx, alice, service.CreatePaymentInput{OrderID: order.ID, Amount: order.TotalPrice})
	require.NoError(t, err)

	_, err = f.payments.Refund(ctx, admin, pending.ID, 0, "")
	assert.ErrorIs(t, err, model.ErrNotCompleted)

	_, err = f.payments.ProcessPayment(ctx, alice, pending.ID)
	require.NoError(t, err)

	_, err = f.payments.Refund(ctx, alice, pending.ID, 0, "")
	assert.ErrorIs(t, err, model.ErrForbidden)

	_, err = f.payments.Refund(ctx, admin, pending.ID, order.TotalPrice+1, "")
	assert.ErrorIs(t, err, model.ErrRefundExceedsAmount)

	still, _ := f.payments.GetPayment(ctx, admin, pending.ID)
	assert.Equal(t, model.PaymentCompleted, still.Status)
}

func TestRefundFullCancelsOrderAndReleasesStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order, p := f.paidOrder(t, alice)
	require.Equal(t, 3, f.stock(t, "A"))

	refunded, err := f.payments.Refund(ctx, admin, p.ID, 0, "damaged")
	require.NoError(t, err)
	assert.Equal(t, model.PaymentRefunded, refunded.Status)
	assert.Equal(t, p.Amount, refunded.RefundAmount)
	assert.Equal(t, "damaged", refunded.RefundReason)
	require.NotNil(t, refunded.RefundDate)

	got, _ := f.orders.GetOrder(ctx, admin, order.ID)
	assert.Equal(t, model.OrderCancelled, got.OrderStatus)
	assert.Equal(t, 5, f.stock(t, "A"))
	assert.Equal(t, 5, f.stock(t, "B"))

	_, err = f.payments.Refund(ctx, admin, p.ID, 0, "")
	assert.ErrorIs(t, err, model.ErrNotCompleted)
}

func TestPartialRefundOfDeliveredOrderKeepsStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order, p := f.paidOrder(t, alice)
	_, err := f.orders.UpdateOrderStatus(ctx, admin, order.ID, model.OrderShipped, "", false)
	require.NoError(t, err)
	_, err = f.orders.UpdateOrderStatus(ctx, admin, order.ID, model.OrderDelivered, "", false)
	require.NoError(t, err)

	refunded, err := f.payments.Refund(ctx, admin, p.ID, 1000, "")
	require.NoError(t, err)
	assert.Equal(t, model.Money(1000), refunded.RefundAmount)

	got, _ := f.orders.GetOrder(ctx, admin, order.ID)
	assert.Equal(t, model.OrderCancelled, got.OrderStatus)
	assert.Equal(t, 3, f.stock(t, "A"))
}

func TestPaymentReads(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order, p := f.paidOrder(t, alice)

	byOrder, err := f.payments.GetPaymentByOrder(ctx, alice, order.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, byOrder.ID)

	_, err = f.payments.GetPaymentByOrder(ctx, bob, order.ID)
	assert.ErrorIs(t, err, model.ErrForbidden)
	_, err = f.payments.GetPayment(ctx, bob, p.ID)
	assert.ErrorIs(t, err, model.ErrForbidden)

	mine, err := f.payments.GetMyPayments(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)

	none, err := f.payments.GetMyPayments(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, none)

	all, err := f.payments.ListPayments(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

var errWriteTimeout = errors.New("write timeout")

// flakyPayments falla el guardado de Completed las veces indicadas.
type flakyPayments struct {
	service.PaymentRepository
	failCompleted int
}

func (r *flakyPayments) Save(ctx context.Context, p *model.Payment) error {
	if p.Status == model.PaymentCompleted && r.failCompleted > 0 {
		r.failCompleted--
		return errWriteTimeout
	}
	return r.PaymentRepository.Save(ctx, p)
}

type countingGateway struct {
	calls int
}

func (g *countingGateway) Charge(context.Context, model.Payment) (string, error) {
	g.calls++
	return service.NewTransactionID(), nil
}

type stuckFixture struct {
	*fixture
	gateway *countingGateway
	now     *time.Time
}

func newStuckFixture(t *testing.T) *stuckFixture {
	t.Helper()
	gw := &countingGateway{}
	now := fixedNow
	f := newFixture(t, func(d *service.Deps) {
		d.Payments = &flakyPayments{PaymentRepository: d.Payments, failCompleted: 1}
		d.Gateway = gw
		d.Clock = func() time.Time { return now }
	})
	return &stuckFixture{fixture: f, gateway: gw, now: &now}
}

// failedRecording deja un pago cobrado pero en Processing.
func (f *stuckFixture) failedRecording(t *testing.T) (model.Order, model.Payment) {
	t.Helper()
	ctx := context.Background()
	order := f.placeOrder(t, alice)
	p, err := f.payments.CreatePayment(ctx, alice, service.CreatePaymentInput{OrderID: order.ID, Amount: order.TotalPrice})
	require.NoError(t, err)

	_, err = f.payments.ProcessPayment(ctx, alice, p.ID)
	require.ErrorIs(t, err, errWriteTimeout)

	stuck, err := f.payments.GetPayment(ctx, alice, p.ID)
	require.NoError(t, err)
	require.Equal(t, model.PaymentProcessing, stuck.Status)
	require.NotEmpty(t, stuck.TransactionID)
	require.Equal(t, 1, f.gateway.calls)
	return order, stuck
}

func TestProcessingPaymentRetakenByAdmin(t *testing.T) {
	f := newStuckFixture(t)
	ctx := context.Background()
	order, stuck := f.failedRecording(t)

	_, err := f.payments.ProcessPayment(ctx, alice, stuck.ID)
	assert.ErrorIs(t, err, model.ErrPaymentInProgress)

	done, err := f.payments.ProcessPayment(ctx, admin, stuck.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentCompleted, done.Status)
	assert.Equal(t, stuck.TransactionID, done.TransactionID)
	assert.Equal(t, 1, f.gateway.calls)

	got, err := f.orders.GetOrder(ctx, alice, order.ID)
	require.NoError(t, err)
	assert.True(t, got.IsPaid)
	require.NotNil(t, got.PaymentResult)
	assert.Equal(t, stuck.TransactionID, got.PaymentResult.ID)
}

func TestProcessingPaymentRetakenAfterLease(t *testing.T) {
	f := newStuckFixture(t)
	ctx := context.Background()
	_, stuck := f.failedRecording(t)

	*f.now = f.now.Add(time.Minute)
	_, err := f.payments.ProcessPayment(ctx, alice, stuck.ID)
	assert.ErrorIs(t, err, model.ErrPaymentInProgress)

	*f.now = f.now.Add(2 * time.Minute)
	done, err := f.payments.ProcessPayment(ctx, alice, stuck.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentCompleted, done.Status)
	assert.Equal(t, stuck.TransactionID, done.TransactionID)
	assert.Equal(t, 1, f.gateway.calls)
}
