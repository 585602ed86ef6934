// models.go
package model

import (
	"strings"
	"time"
)

// Product pertenece al catálogo; acá solo se lee precio/stock y se descuenta stock.
type Product struct {
	ID        string `bson:"_id" json:"id"`
	Name      string `bson:"name" json:"name"`
	Price     Money  `bson:"price" json:"price"`
	Stock     int    `bson:"stock" json:"stock"`
	Thumbnail string `bson:"thumbnail" json:"thumbnail"`
}

type CartLine struct {
	ID        string    `bson:"id" json:"id"`
	ProductID string    `bson:"product_id" json:"productId"`
	Quantity  int       `bson:"quantity" json:"quantity"`
	UnitPrice Money     `bson:"unit_price" json:"price"` // precio al momento de agregar
	AddedAt   time.Time `bson:"added_at" json:"addedAt"`
}

// Cart: uno por usuario, nunca se borra.
type Cart struct {
	ID        string     `bson:"_id" json:"id"`
	UserID    string     `bson:"user_id" json:"userId"`
	Lines     []CartLine `bson:"items" json:"items"`
	Version   int64      `bson:"version" json:"-"`
	CreatedAt time.Time  `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time  `bson:"updated_at" json:"updatedAt"`
}

func (c *Cart) LineIndexByProduct(productID string) int {
	for i, l := range c.Lines {
		if l.ProductID == productID {
			return i
		}
	}
	return -1
}

func (c *Cart) LineIndex(lineID string) int {
	for i, l := range c.Lines {
		if l.ID == lineID {
			return i
		}
	}
	return -1
}

// TotalPrice suma los precios congelados de cada línea.
func (c *Cart) TotalPrice() Money {
	var total Money
	for _, l := range c.Lines {
		total += l.UnitPrice.Times(l.Quantity)
	}
	return total
}

type ShippingAddress struct {
	Street  string `bson:"street" json:"street"`
	City    string `bson:"city" json:"city"`
	State   string `bson:"state" json:"state"`
	ZipCode string `bson:"zip_code" json:"zipCode"`
	Country string `bson:"country" json:"country"`
	Phone   string `bson:"phone" json:"phone"`
}

// Validate exige los seis campos.
func (a ShippingAddress) Validate() error {
	for _, v := range []string{a.Street, a.City, a.State, a.ZipCode, a.Country, a.Phone} {
		if strings.TrimSpace(v) == "" {
			return ErrInvalidAddress
		}
	}
	return nil
}

func (a ShippingAddress) IsZero() bool {
	return a == ShippingAddress{}
}

// OrderItem es una copia congelada del producto; no referencia al carrito.
type OrderItem struct {
	ProductID string `bson:"product_id" json:"product"`
	Name      string `bson:"name" json:"name"`
	Quantity  int    `bson:"quantity" json:"quantity"`
	Price     Money  `bson:"price" json:"price"`
	Image     string `bson:"image" json:"image"`
}

type PaymentResult struct {
	ID         string    `bson:"id" json:"id"`
	Status     string    `bson:"status" json:"status"`
	UpdateTime time.Time `bson:"update_time" json:"updateTime"`
}

type StatusRecord struct {
	Status    OrderStatus `bson:"status" json:"status"`
	Reason    string      `bson:"reason" json:"reason"`
	UserID    string      `bson:"user" json:"userId"`
	Timestamp time.Time   `bson:"timestamp" json:"timestamp"`
}

type Order struct {
	ID              string          `bson:"_id" json:"id"`
	UserID          string          `bson:"user_id" json:"user"`
	Items           []OrderItem     `bson:"items" json:"orderItems"`
	ShippingAddress ShippingAddress `bson:"shipping_address" json:"shippingAddress"`
	PaymentMethod   string          `bson:"payment_method" json:"paymentMethod"`
	ItemsPrice      Money           `bson:"items_price" json:"itemsPrice"`
	TaxPrice        Money           `bson:"tax_price" json:"taxPrice"`
	ShippingPrice   Money           `bson:"shipping_price" json:"shippingPrice"`
	TotalPrice      Money           `bson:"total_price" json:"totalPrice"`
	IsPaid          bool            `bson:"is_paid" json:"isPaid"`
	PaidAt          *time.Time      `bson:"paid_at,omitempty" json:"paidAt,omitempty"`
	PaymentResult   *PaymentResult  `bson:"payment_result,omitempty" json:"paymentResult,omitempty"`
	IsDelivered     bool            `bson:"is_delivered" json:"isDelivered"`
	DeliveredAt     *time.Time      `bson:"delivered_at,omitempty" json:"deliveredAt,omitempty"`
	OrderStatus     OrderStatus     `bson:"order_status" json:"orderStatus"`
	StatusHistory   []StatusRecord  `bson:"status_history" json:"statusHistory"`
	Version         int64           `bson:"version" json:"-"`
	CreatedAt       time.Time       `bson:"created_at" json:"createdAt"`
	UpdatedAt       time.Time       `bson:"updated_at" json:"updatedAt"`
}

// ItemsTotal recalcula la suma de las líneas congeladas.
func (o *Order) ItemsTotal() Money {
	var total Money
	for _, it := range o.Items {
		total += it.Price.Times(it.Quantity)
	}
	return total
}

func (o *Order) OwnedBy(userID string) bool {
	return o.UserID == userID
}

func (o *Order) setStatus(next OrderStatus, reason, actorID string, now time.Time) {
	o.OrderStatus = next
	o.UpdatedAt = now
	o.StatusHistory = append(o.StatusHistory, StatusRecord{
		Status:    next,
		Reason:    reason,
		UserID:    actorID,
		Timestamp: now,
	})
}

// TransitionTo aplica la tabla de transiciones; force la saltea (override de admin).
// Devuelve false si el estado ya era el pedido.
func (o *Order) TransitionTo(next OrderStatus, reason, actorID string, now time.Time, force bool) (bool, error) {
	if !next.Valid() {
		return false, ErrInvalidStatus
	}
	if o.OrderStatus == next {
		return false, nil
	}
	if !force && !o.OrderStatus.CanTransitionTo(next) {
		return false, ErrInvalidTransition
	}
	o.setStatus(next, reason, actorID, now)
	return true, nil
}

func (o *Order) MarkPaid(result PaymentResult, now time.Time) {
	o.IsPaid = true
	o.PaidAt = &now
	o.PaymentResult = &result
	o.UpdatedAt = now
}

// MarkDelivered lo dispara la entrega; vale desde cualquier estado no cancelado.
func (o *Order) MarkDelivered(actorID string, now time.Time) error {
	if o.OrderStatus == OrderCancelled {
		return ErrOrderCancelled
	}
	o.IsDelivered = true
	o.DeliveredAt = &now
	if o.OrderStatus != OrderDelivered {
		o.setStatus(OrderDelivered, "delivery confirmed", actorID, now)
	} else {
		o.UpdatedAt = now
	}
	return nil
}

type CardDetails struct {
	Last4Digits string `bson:"last4_digits" json:"last4Digits"`
	CardType    string `bson:"card_type" json:"cardType"`
	ExpiryMonth int    `bson:"expiry_month,omitempty" json:"expiryMonth,omitempty"`
	ExpiryYear  int    `bson:"expiry_year,omitempty" json:"expiryYear,omitempty"`
}

var paymentMethods = map[string]bool{
	"Credit Card":      true,
	"Debit Card":       true,
	"PayPal":           true,
	"Cash on Delivery": true,
	"UPI":              true,
	"Net Banking":      true,
}

var cardTypes = map[string]bool{
	"Visa":             true,
	"Mastercard":       true,
	"American Express": true,
	"Discover":         true,
	"Other":            true,
}

const DefaultPaymentMethod = "Credit Card"

func ValidPaymentMethod(m string) bool {
	return paymentMethods[m]
}

// Validate: solo últimos 4 dígitos y tipo; nunca el número completo.
func (c *CardDetails) Validate() error {
	if c == nil {
		return nil
	}
	if len(c.Last4Digits) != 4 {
		return ErrInvalidPayment
	}
	for _, r := range c.Last4Digits {
		if r < '0' || r > '9' {
			return ErrInvalidPayment
		}
	}
	if c.CardType != "" && !cardTypes[c.CardType] {
		return ErrInvalidPayment
	}
	if c.ExpiryMonth != 0 && (c.ExpiryMonth < 1 || c.ExpiryMonth > 12) {
		return ErrInvalidPayment
	}
	return nil
}

type Payment struct {
	ID            string        `bson:"_id" json:"id"`
	OrderID       string        `bson:"order_id" json:"order"`
	Amount        Money         `bson:"amount" json:"amount"`
	PaymentMethod string        `bson:"payment_method" json:"paymentMethod"`
	Status        PaymentStatus `bson:"status" json:"status"`
	TransactionID string        `bson:"transaction_id,omitempty" json:"transactionId,omitempty"`
	CardDetails   *CardDetails  `bson:"card_details,omitempty" json:"cardDetails,omitempty"`
	PaymentDate   *time.Time    `bson:"payment_date,omitempty" json:"paymentDate,omitempty"`
	RefundAmount  Money         `bson:"refund_amount" json:"refundAmount"`
	RefundDate    *time.Time    `bson:"refund_date,omitempty" json:"refundDate,omitempty"`
	RefundReason  string        `bson:"refund_reason,omitempty" json:"refundReason,omitempty"`
	Version       int64         `bson:"version" json:"-"`
	CreatedAt     time.Time     `bson:"created_at" json:"createdAt"`
	UpdatedAt     time.Time     `bson:"updated_at" json:"updatedAt"`
}

func (p *Payment) TransitionTo(next PaymentStatus, now time.Time) error {
	if !p.Status.CanTransitionTo(next) {
		return ErrInvalidTransition
	}
	p.Status = next
	p.UpdatedAt = now
	return nil
}

type Delivery struct {
	ID                 string          `bson:"_id" json:"id"`
	OrderID            string          `bson:"order_id" json:"order"`
	Status             DeliveryStatus  `bson:"status" json:"status"`
	TrackingNumber     string          `bson:"tracking_number" json:"trackingNumber"`
	EstimatedDate      time.Time       `bson:"estimated_date" json:"estimatedDate"`
	ActualDeliveryDate *time.Time      `bson:"actual_delivery_date,omitempty" json:"actualDeliveryDate,omitempty"`
	Carrier            string          `bson:"carrier" json:"carrier"`
	ShippingAddress    ShippingAddress `bson:"shipping_address" json:"shippingAddress"`
	DeliveryNotes      string          `bson:"delivery_notes,omitempty" json:"deliveryNotes,omitempty"`
	Signature          string          `bson:"signature,omitempty" json:"signature,omitempty"`
	Version            int64           `bson:"version" json:"-"`
	CreatedAt          time.Time       `bson:"created_at" json:"createdAt"`
	UpdatedAt          time.Time       `bson:"updated_at" json:"updatedAt"`
}

// TransitionTo aplica la tabla de la entrega; Delivered estampa la fecha real.
func (d *Delivery) TransitionTo(next DeliveryStatus, now time.Time) (bool, error) {
	if !next.Valid() {
		return false, ErrInvalidStatus
	}
	if d.Status == next {
		return false, nil
	}
	if !d.Status.CanTransitionTo(next) {
		return false, ErrInvalidTransition
	}
	d.Status = next
	d.UpdatedAt = now
	if next == DeliveryDelivered {
		d.ActualDeliveryDate = &now
	}
	return true, nil
}

// TrackingView es la proyección pública: sin ids internos ni datos del usuario.
type TrackingView struct {
	TrackingNumber     string          `json:"trackingNumber"`
	Status             DeliveryStatus  `json:"status"`
	EstimatedDate      time.Time       `json:"estimatedDate"`
	ActualDeliveryDate *time.Time      `json:"actualDeliveryDate,omitempty"`
	Carrier            string          `json:"carrier"`
	ShippingAddress    ShippingAddress `json:"shippingAddress"`
}

func (d *Delivery) TrackingView() TrackingView {
	return TrackingView{
		TrackingNumber:     d.TrackingNumber,
		Status:             d.Status,
		EstimatedDate:      d.EstimatedDate,
		ActualDeliveryDate: d.ActualDeliveryDate,
		Carrier:            d.Carrier,
		ShippingAddress:    d.ShippingAddress,
	}
}
