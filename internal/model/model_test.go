package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMoney(t *testing.T) {
	tests := []struct {
		in      string
		want    Money
		wantErr bool
	}{
		{"53.99", 5399, false},
		{"10", 1000, false},
		{"0.1", 10, false},
		{"0", 0, false},
		{"1.999", 0, true},
		{"-1.00", 0, true},
		{"abc", 0, true},
		{"999999999.99", MaxMoney, false},
		{"1000000000.00", 0, true},
		{"92233720368547758.08", 0, true},
		{"184467440737095516.16", 0, true},
		{"1e30", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMoney(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidAmount)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMoneyJSON(t *testing.T) {
	raw, err := json.Marshal(struct {
		Total Money `json:"total"`
	}{Total: 5399})
	require.NoError(t, err)
	assert.JSONEq(t, `{"total":53.99}`, string(raw))

	var in struct {
		A Money  `json:"a"`
		B Money  `json:"b"`
		C *Money `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":20.1,"b":"9.99","c":null}`), &in))
	assert.Equal(t, Money(2010), in.A)
	assert.Equal(t, Money(999), in.B)
	assert.Nil(t, in.C)

	assert.Error(t, json.Unmarshal([]byte(`{"a":1.005}`), &in))
	assert.ErrorIs(t, json.Unmarshal([]byte(`{"a":92233720368547758.08}`), &in), ErrInvalidAmount)
	assert.ErrorIs(t, json.Unmarshal([]byte(`{"b":"184467440737095516.16"}`), &in), ErrInvalidAmount)
}

func TestMoneyArithmeticIsExact(t *testing.T) {
	// 2*10.00 + 20.00 + 9.99 + 4.00
	total := Money(1000).Times(2) + 2000 + 999 + 400
	want, err := ParseMoney("53.99")
	require.NoError(t, err)
	assert.Equal(t, want, total)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNotFound, KindOf(ErrOrderNotFound))
	assert.Equal(t, KindConflict, KindOf(fmt.Errorf("create: %w", ErrDuplicatePayment)))
	assert.Equal(t, KindValidation, KindOf(ErrOutOfStock))
	assert.Equal(t, KindForbidden, KindOf(ErrForbidden))
	assert.Equal(t, KindUnexpected, KindOf(errors.New("socket closed")))
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestOrderTransitions(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		ok       bool
	}{
		{OrderPending, OrderProcessing, true},
		{OrderPending, OrderShipped, true},
		{OrderPending, OrderCancelled, true},
		{OrderPending, OrderDelivered, false},
		{OrderProcessing, OrderShipped, true},
		{OrderProcessing, OrderPending, false},
		{OrderShipped, OrderDelivered, true},
		{OrderShipped, OrderCancelled, true},
		{OrderDelivered, OrderCancelled, false},
		{OrderDelivered, OrderPending, false},
		{OrderCancelled, OrderPending, false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s->%s", tt.from, tt.to), func(t *testing.T) {
			assert.Equal(t, tt.ok, tt.from.CanTransitionTo(tt.to))
		})
	}
	assert.True(t, OrderDelivered.Terminal())
	assert.True(t, OrderCancelled.Terminal())
	assert.False(t, OrderShipped.Terminal())
}

func TestOrderTransitionTo(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	o := Order{OrderStatus: OrderPending}

	changed, err := o.TransitionTo(OrderPending, "", "u1", now, false)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Empty(t, o.StatusHistory)

	_, err = o.TransitionTo("Unknown", "", "u1", now, false)
	assert.ErrorIs(t, err, ErrInvalidStatus)

	changed, err = o.TransitionTo(OrderShipped, "shipped", "admin", now, false)
	require.NoError(t, err)
	assert.True(t, changed)
	require.Len(t, o.StatusHistory, 1)
	assert.Equal(t, StatusRecord{Status: OrderShipped, Reason: "shipped", UserID: "admin", Timestamp: now}, o.StatusHistory[0])

	require.NoError(t, o.MarkDelivered("u1", now))
	assert.True(t, o.IsDelivered)
	assert.Equal(t, OrderDelivered, o.OrderStatus)

	_, err = o.TransitionTo(OrderProcessing, "", "admin", now, false)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	changed, err = o.TransitionTo(OrderProcessing, "override", "admin", now, true)
	require.NoError(t, err)
	assert.True(t, changed)
}

func TestMarkDeliveredRejectsCancelled(t *testing.T) {
	o := Order{OrderStatus: OrderCancelled}
	assert.ErrorIs(t, o.MarkDelivered("u1", time.Now()), ErrOrderCancelled)
	assert.False(t, o.IsDelivered)
}

func TestPaymentTransitions(t *testing.T) {
	now := time.Now()
	p := Payment{Status: PaymentPending}
	assert.ErrorIs(t, p.TransitionTo(PaymentCompleted, now), ErrInvalidTransition)
	require.NoError(t, p.TransitionTo(PaymentProcessing, now))
	require.NoError(t, p.TransitionTo(PaymentCompleted, now))
	require.NoError(t, p.TransitionTo(PaymentRefunded, now))
	assert.ErrorIs(t, p.TransitionTo(PaymentCompleted, now), ErrInvalidTransition)
	assert.True(t, p.Status.Terminal())
}

func TestDeliveryTransitionStampsDate(t *testing.T) {
	now := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	d := Delivery{Status: DeliveryPending}

	changed, err := d.TransitionTo(DeliveryInTransit, now)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Nil(t, d.ActualDeliveryDate)

	changed, err = d.TransitionTo(DeliveryDelivered, now)
	require.NoError(t, err)
	assert.True(t, changed)
	require.NotNil(t, d.ActualDeliveryDate)
	assert.Equal(t, now, *d.ActualDeliveryDate)

	_, err = d.TransitionTo(DeliveryFailed, now)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestShippingAddressValidate(t *testing.T) {
	full := ShippingAddress{Street: "s", City: "c", State: "st", ZipCode: "z", Country: "co", Phone: "p"}
	require.NoError(t, full.Validate())

	missing := full
	missing.ZipCode = "  "
	assert.ErrorIs(t, missing.Validate(), ErrInvalidAddress)
	assert.True(t, ShippingAddress{}.IsZero())
}

func TestCardDetailsValidate(t *testing.T) {
	var none *CardDetails
	require.NoError(t, none.Validate())

	tests := []struct {
		name string
		card CardDetails
		ok   bool
	}{
		{"valid", CardDetails{Last4Digits: "4242", CardType: "Visa", ExpiryMonth: 1, ExpiryYear: 2030}, true},
		{"letters", CardDetails{Last4Digits: "42a2"}, false},
		{"too long", CardDetails{Last4Digits: "42424"}, false},
		{"bad type", CardDetails{Last4Digits: "4242", CardType: "Diners"}, false},
		{"bad month", CardDetails{Last4Digits: "4242", ExpiryMonth: 13}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.card.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidPayment)
			}
		})
	}
}

func TestCartTotals(t *testing.T) {
	c := Cart{Lines: []CartLine{
		{ID: "l1", ProductID: "A", Quantity: 2, UnitPrice: 1000},
		{ID: "l2", ProductID: "B", Quantity: 1, UnitPrice: 2000},
	}}
	assert.Equal(t, Money(4000), c.TotalPrice())
	assert.Equal(t, 1, c.LineIndexByProduct("B"))
	assert.Equal(t, -1, c.LineIndex("nope"))
}

func TestPrincipalAccess(t *testing.T) {
	assert.True(t, Principal{ID: "u1"}.CanAccess("u1"))
	assert.False(t, Principal{ID: "u2"}.CanAccess("u1"))
	assert.True(t, Principal{ID: "a", Role: RoleAdmin}.CanAccess("u1"))
	assert.False(t, Principal{}.CanAccess(""))
}
