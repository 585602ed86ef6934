// dto.go
package dto

import (
	"time"

	"storefront-fulfillment-service/internal/model"
)

// Response es el sobre común de todas las respuestas.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Count   *int   `json:"count,omitempty"`
	Total   *int   `json:"total,omitempty"`
	Page    *int   `json:"page,omitempty"`
	Pages   *int   `json:"pages,omitempty"`
}

// AddItemRequest: POST /api/cart
type AddItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity"`
}

// UpdateLineRequest: PUT /api/cart/:itemId
type UpdateLineRequest struct {
	Quantity int `json:"quantity"`
}

// ShippingDTO para la dirección de envío
type ShippingDTO struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zipCode"`
	Country string `json:"country"`
	Phone   string `json:"phone"`
}

func (s ShippingDTO) ToModel() model.ShippingAddress {
	return model.ShippingAddress{
		Street:  s.Street,
		City:    s.City,
		State:   s.State,
		ZipCode: s.ZipCode,
		Country: s.Country,
		Phone:   s.Phone,
	}
}

// PlaceOrderRequest: los importes son opcionales; si faltan los calcula el servidor.
type PlaceOrderRequest struct {
	ShippingAddress ShippingDTO  `json:"shippingAddress"`
	PaymentMethod   string       `json:"paymentMethod"`
	ItemsPrice      *model.Money `json:"itemsPrice"`
	TaxPrice        *model.Money `json:"taxPrice"`
	ShippingPrice   *model.Money `json:"shippingPrice"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason"`
	Force  bool   `json:"force"`
}

type CancelOrderRequest struct {
	Reason string `json:"reason"`
}

type CardDetailsDTO struct {
	Last4Digits string `json:"last4Digits"`
	CardType    string `json:"cardType"`
	ExpiryMonth int    `json:"expiryMonth"`
	ExpiryYear  int    `json:"expiryYear"`
}

type CreatePaymentRequest struct {
	OrderID       string          `json:"orderId" binding:"required"`
	Amount        model.Money     `json:"amount"`
	PaymentMethod string          `json:"paymentMethod"`
	CardDetails   *CardDetailsDTO `json:"cardDetails"`
}

func (r CreatePaymentRequest) Card() *model.CardDetails {
	if r.CardDetails == nil {
		return nil
	}
	return &model.CardDetails{
		Last4Digits: r.CardDetails.Last4Digits,
		CardType:    r.CardDetails.CardType,
		ExpiryMonth: r.CardDetails.ExpiryMonth,
		ExpiryYear:  r.CardDetails.ExpiryYear,
	}
}

// RefundRequest: amount 0 u omitido = reembolso total.
type RefundRequest struct {
	Amount model.Money `json:"amount"`
	Reason string      `json:"reason"`
}

type CreateDeliveryRequest struct {
	OrderID         string       `json:"orderId" binding:"required"`
	EstimatedDate   time.Time    `json:"estimatedDate" binding:"required"`
	Carrier         string       `json:"carrier"`
	ShippingAddress *ShippingDTO `json:"shippingAddress"`
	DeliveryNotes   string       `json:"deliveryNotes"`
}

type UpdateDeliveryStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type ConfirmDeliveryRequest struct {
	Signature string `json:"signature"`
}
