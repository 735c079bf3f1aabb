package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DeliveryWindow is how long an approved order stays in delivery before the
// sweeper marks it delivered. It is the same for every order.
const DeliveryWindow = 10 * time.Minute

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusApproved  OrderStatus = "approved"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusRejected  OrderStatus = "rejected"
)

// OrderStatuses lists every status in lifecycle order.
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusApproved,
	OrderStatusDelivered,
	OrderStatusRejected,
}

var allowedTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:  {OrderStatusApproved, OrderStatusRejected},
	OrderStatusApproved: {OrderStatusDelivered},
}

func ParseOrderStatus(raw string) (OrderStatus, bool) {
	for _, s := range OrderStatuses {
		if string(s) == raw {
			return s, true
		}
	}
	return "", false
}

// CanTransitionTo reports whether next is reachable from s in one step.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s OrderStatus) Terminal() bool {
	return len(allowedTransitions[s]) == 0
}

type Order struct {
	ID          string
	UserID      string
	Items       []CartItem
	Status      OrderStatus
	Total       decimal.Decimal
	CreatedAt   time.Time
	ApprovedAt  *time.Time
	DeliveredAt *time.Time
	UpdatedAt   time.Time
}

// NewOrder snapshots the cart into a pending order. The total is fixed here
// and never recomputed.
func NewOrder(id string, cart Cart, at time.Time) Order {
	return Order{
		ID:        id,
		UserID:    cart.UserID,
		Items:     cloneItems(cart.Items),
		Status:    OrderStatusPending,
		Total:     cart.Total(),
		CreatedAt: at,
		UpdatedAt: at,
	}
}

func (o *Order) Approve(at time.Time) error {
	if err := o.transition(OrderStatusApproved, at); err != nil {
		return err
	}
	approvedAt := at
	o.ApprovedAt = &approvedAt
	return nil
}

func (o *Order) Reject(at time.Time) error {
	return o.transition(OrderStatusRejected, at)
}

// Deliver moves an approved order to delivered once the delivery window
// has elapsed.
func (o *Order) Deliver(at time.Time) error {
	if o.Status != OrderStatusApproved {
		return o.transition(OrderStatusDelivered, at)
	}
	if !o.DueForDelivery(at) {
		return ErrDeliveryNotDue
	}
	if err := o.transition(OrderStatusDelivered, at); err != nil {
		return err
	}
	deliveredAt := at
	o.DeliveredAt = &deliveredAt
	return nil
}

func (o *Order) transition(next OrderStatus, at time.Time) error {
	if !o.Status.CanTransitionTo(next) {
		return &TransitionError{OrderID: o.ID, From: o.Status, To: next}
	}
	o.Status = next
	o.UpdatedAt = at
	return nil
}

// DeliveryDueAt returns when an approved order becomes deliverable.
func (o Order) DeliveryDueAt() (time.Time, bool) {
	if o.ApprovedAt == nil {
		return time.Time{}, false
	}
	return o.ApprovedAt.Add(DeliveryWindow), true
}

func (o Order) DueForDelivery(now time.Time) bool {
	if o.Status != OrderStatusApproved {
		return false
	}
	due, ok := o.DeliveryDueAt()
	return ok && !now.Before(due)
}

// DeliveryRemaining is the countdown shown to customers for orders in
// delivery. It is zero for every other status.
func (o Order) DeliveryRemaining(now time.Time) time.Duration {
	if o.Status != OrderStatusApproved {
		return 0
	}
	due, ok := o.DeliveryDueAt()
	if !ok || !now.Before(due) {
		return 0
	}
	return due.Sub(now)
}

func (o Order) Clone() Order {
	out := o
	out.Items = cloneItems(o.Items)
	if o.ApprovedAt != nil {
		t := *o.ApprovedAt
		out.ApprovedAt = &t
	}
	if o.DeliveredAt != nil {
		t := *o.DeliveredAt
		out.DeliveredAt = &t
	}
	return out
}
