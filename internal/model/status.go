package model

import "slices"

type OrderStatus string

const (
	OrderPending    OrderStatus = "Pending"
	OrderProcessing OrderStatus = "Processing"
	OrderShipped    OrderStatus = "Shipped"
	OrderDelivered  OrderStatus = "Delivered"
	OrderCancelled  OrderStatus = "Cancelled"
)

type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "Pending"
	PaymentProcessing PaymentStatus = "Processing"
	PaymentCompleted  PaymentStatus = "Completed"
	PaymentFailed     PaymentStatus = "Failed"
	PaymentRefunded   PaymentStatus = "Refunded"
)

type DeliveryStatus string

const (
	DeliveryPending        DeliveryStatus = "Pending"
	DeliveryInTransit      DeliveryStatus = "In Transit"
	DeliveryOutForDelivery DeliveryStatus = "Out for Delivery"
	DeliveryDelivered      DeliveryStatus = "Delivered"
	DeliveryFailed         DeliveryStatus = "Failed"
)

// Transiciones permitidas. Los estados sin entrada son finales.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:    {OrderProcessing, OrderShipped, OrderCancelled},
	OrderProcessing: {OrderShipped, OrderCancelled},
	OrderShipped:    {OrderDelivered, OrderCancelled},
}

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentPending:    {PaymentProcessing},
	PaymentProcessing: {PaymentCompleted, PaymentFailed},
	PaymentCompleted:  {PaymentRefunded},
}

var deliveryTransitions = map[DeliveryStatus][]DeliveryStatus{
	DeliveryPending:        {DeliveryInTransit, DeliveryOutForDelivery, DeliveryDelivered, DeliveryFailed},
	DeliveryInTransit:      {DeliveryOutForDelivery, DeliveryDelivered, DeliveryFailed},
	DeliveryOutForDelivery: {DeliveryDelivered, DeliveryFailed},
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

func (s OrderStatus) Terminal() bool {
	return s == OrderDelivered || s == OrderCancelled
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	return slices.Contains(orderTransitions[s], next)
}

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentProcessing, PaymentCompleted, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

func (s PaymentStatus) Terminal() bool {
	return s == PaymentFailed || s == PaymentRefunded
}

func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	return slices.Contains(paymentTransitions[s], next)
}

func (s DeliveryStatus) Valid() bool {
	switch s {
	case DeliveryPending, DeliveryInTransit, DeliveryOutForDelivery, DeliveryDelivered, DeliveryFailed:
		return true
	}
	return false
}

func (s DeliveryStatus) Terminal() bool {
	return s == DeliveryDelivered || s == DeliveryFailed
}

func (s DeliveryStatus) CanTransitionTo(next DeliveryStatus) bool {
	return slices.Contains(deliveryTransitions[s], next)
}
