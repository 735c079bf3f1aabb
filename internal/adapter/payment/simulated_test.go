package payment

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Varun-1606/quick-cart/internal/port"
)

func TestSimulatedGateway_ReturnsFakeURL(t *testing.T) {
	gw := NewSimulatedGateway(0, "https://pay.example.test/")

	session, err := gw.CreateSession(context.Background(), port.PaymentRequest{UserID: "u1", Amount: decimal.NewFromInt(110)})
	if err != nil {
		t.Fatalf("create session failed: %v", err)
	}
	if session.ID == "" {
		t.Error("expected session id")
	}
	if session.URL != "https://pay.example.test/checkout/"+session.ID {
		t.Errorf("unexpected url %s", session.URL)
	}
}

func TestSimulatedGateway_WaitsForDelay(t *testing.T) {
	gw := NewSimulatedGateway(30*time.Millisecond, "")

	start := time.Now()
	session, err := gw.CreateSession(context.Background(), port.PaymentRequest{Amount: decimal.NewFromInt(1)})
	if err != nil {
		t.Fatalf("create session failed: %v", err)
	}
	if time.Since(start) < 30*time.Millisecond {
		t.Error("expected the simulated delay to elapse")
	}
	if !strings.HasPrefix(session.URL, DefaultBaseURL) {
		t.Errorf("expected default base url, got %s", session.URL)
	}
}

func TestSimulatedGateway_Cancelled(t *testing.T) {
	gw := NewSimulatedGateway(time.Hour, "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := gw.CreateSession(ctx, port.PaymentRequest{Amount: decimal.NewFromInt(1)})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
