package model

import "time"

type EventType string

const (
	EventOrderPlaced        EventType = "order.placed"
	EventOrderPaid          EventType = "order.paid"
	EventOrderCancelled     EventType = "order.cancelled"
	EventOrderDelivered     EventType = "order.delivered"
	EventOrderStatusChanged EventType = "order.status_changed"
)

// OrderEvent es lo que recibe el colaborador de notificaciones.
type OrderEvent struct {
	Type       EventType   `json:"type"`
	OrderID    string      `json:"orderId"`
	UserID     string      `json:"userId"`
	TotalPrice Money       `json:"totalPrice"`
	Status     OrderStatus `json:"status"`
	OccurredAt time.Time   `json:"occurredAt"`
}

func NewOrderEvent(t EventType, o *Order, now time.Time) OrderEvent {
	return OrderEvent{
		Type:       t,
		OrderID:    o.ID,
		UserID:     o.UserID,
		TotalPrice: o.TotalPrice,
		Status:     o.OrderStatus,
		OccurredAt: now,
	}
}
