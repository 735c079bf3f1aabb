package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnauthenticated is returned when an operation needs a logged-in user.
	ErrUnauthenticated = errors.New("login required")
	// ErrForbidden is returned when the actor's role lacks the capability.
	ErrForbidden          = errors.New("operation not allowed for role")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already exists")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrOutOfStock         = errors.New("product is out of stock")
	ErrInvalidTransition  = errors.New("invalid order status transition")
	ErrDeliveryNotDue     = errors.New("delivery window has not elapsed")
	ErrDuplicateRequest   = errors.New("duplicate request")
	ErrSessionExpired     = errors.New("session expired")
	// ErrCartChanged is returned when the cart no longer matches what was charged.
	ErrCartChanged = errors.New("cart changed during checkout")
)

// TransitionError carries the rejected edge of the order lifecycle.
type TransitionError struct {
	OrderID string
	From    OrderStatus
	To      OrderStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("order %s: cannot move from %s to %s", e.OrderID, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }
