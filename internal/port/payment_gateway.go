package port

import (
	"context"

	"github.com/shopspring/decimal"
)

type PaymentRequest struct {
	UserID string
	Amount decimal.Decimal
}

type PaymentSession struct {
	ID  string
	URL string
}

type PaymentGateway interface {
	CreateSession(ctx context.Context, req PaymentRequest) (PaymentSession, error)
}
