package payment

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Varun-1606/quick-cart/internal/port"
)

const (
	DefaultDelay   = 1500 * time.Millisecond
	DefaultBaseURL = "https://pay.quickcart.local"
)

// SimulatedGateway stands in for a payment provider: it waits a fixed delay
// and hands back a checkout URL that points nowhere.
type SimulatedGateway struct {
	delay   time.Duration
	baseURL string
}

func NewSimulatedGateway(delay time.Duration, baseURL string) *SimulatedGateway {
	if delay < 0 {
		delay = 0
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &SimulatedGateway{delay: delay, baseURL: strings.TrimRight(baseURL, "/")}
}

func (g *SimulatedGateway) CreateSession(ctx context.Context, req port.PaymentRequest) (port.PaymentSession, error) {
	if req.Amount.IsNegative() {
		return port.PaymentSession{}, errors.New("payment amount must not be negative")
	}

	if g.delay > 0 {
		timer := time.NewTimer(g.delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return port.PaymentSession{}, ctx.Err()
		}
	}

	id := uuid.NewString()
	return port.PaymentSession{
		ID:  id,
		URL: g.baseURL + "/checkout/" + id,
	}, nil
}
