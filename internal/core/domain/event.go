package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderEventType string

const (
	EventOrderPlaced    OrderEventType = "order.placed"
	EventOrderApproved  OrderEventType = "order.approved"
	EventOrderRejected  OrderEventType = "order.rejected"
	EventOrderDelivered OrderEventType = "order.delivered"
)

type OrderEvent struct {
	Type       OrderEventType  `json:"type"`
	OrderID    string          `json:"order_id"`
	UserID     string          `json:"user_id"`
	Status     OrderStatus     `json:"status"`
	Total      decimal.Decimal `json:"total"`
	OccurredAt time.Time       `json:"occurred_at"`
}

func NewOrderEvent(t OrderEventType, o Order, at time.Time) OrderEvent {
	return OrderEvent{
		Type:       t,
		OrderID:    o.ID,
		UserID:     o.UserID,
		Status:     o.Status,
		Total:      o.Total,
		OccurredAt: at,
	}
}
