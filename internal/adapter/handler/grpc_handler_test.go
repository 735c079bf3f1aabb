package handler

import (
	"context"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/Varun-1606/quick-cart/internal/core/domain"
)

func newGRPCClient(t *testing.T) (*grpc.ClientConn, Services, *testClock) {
	t.Helper()
	services, clock := newTestServices(t)

	lis := bufconn.Listen(1024 * 1024)
	server := grpc.NewServer(grpc.UnaryInterceptor(LoggingInterceptor))
	RegisterOrderAdminService(server, NewGRPCHandler(services.Orders, services.Identity))
	go server.Serve(lis)
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn, services, clock
}

func invoke(ctx context.Context, conn *grpc.ClientConn, method string, req map[string]any) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, err
	}
	out := &structpb.Struct{}
	err = conn.Invoke(ctx, "/"+orderAdminServiceName+"/"+method, in, out)
	return out, err
}

func withToken(token string) context.Context {
	return metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+token)
}

func TestGRPC_ReviewAndSweep(t *testing.T) {
	conn, services, clock := newGRPCClient(t)
	sess, err := services.Identity.Login(context.Background(), "admin@quickcart.com", "admin123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	ctx := withToken(sess.Token)

	pending, err := invoke(ctx, conn, "ListOrders", map[string]any{"status": "pending"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if pending.GetFields()["count"].GetNumberValue() != 1 {
		t.Fatalf("expected one pending seeded order, got %v", pending)
	}

	approved, err := invoke(ctx, conn, "ApproveOrder", map[string]any{"order_id": "1"})
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.GetFields()["status"].GetStringValue() != string(domain.OrderStatusApproved) {
		t.Errorf("expected approved, got %v", approved)
	}

	clock.Advance(domain.DeliveryWindow)
	swept, err := invoke(ctx, conn, "SweepDeliveries", map[string]any{})
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	// Seeded order 2 was already past its window; order 1 just became due.
	if swept.GetFields()["count"].GetNumberValue() != 2 {
		t.Errorf("expected 2 delivered orders, got %v", swept)
	}

	_, err = invoke(ctx, conn, "RejectOrder", map[string]any{"order_id": "1"})
	if status.Code(err) != codes.FailedPrecondition {
		t.Errorf("expected FailedPrecondition, got %v", err)
	}
}

func TestGRPC_Authorization(t *testing.T) {
	conn, services, _ := newGRPCClient(t)

	_, err := invoke(context.Background(), conn, "ListOrders", map[string]any{})
	if status.Code(err) != codes.Unauthenticated {
		t.Errorf("expected Unauthenticated without token, got %v", err)
	}

	sess, _ := services.Identity.Login(context.Background(), "customer@example.com", "customer123")
	ctx, cancel := context.WithTimeout(withToken(sess.Token), 5*time.Second)
	defer cancel()
	_, err = invoke(ctx, conn, "ApproveOrder", map[string]any{"order_id": "1"})
	if status.Code(err) != codes.PermissionDenied {
		t.Errorf("expected PermissionDenied for customer, got %v", err)
	}

	admin, _ := services.Identity.Login(context.Background(), "admin@quickcart.com", "admin123")
	_, err = invoke(withToken(admin.Token), conn, "ApproveOrder", map[string]any{})
	if status.Code(err) != codes.InvalidArgument {
		t.Errorf("expected InvalidArgument without order_id, got %v", err)
	}
	_, err = invoke(withToken(admin.Token), conn, "ApproveOrder", map[string]any{"order_id": "missing"})
	if status.Code(err) != codes.NotFound {
		t.Errorf("expected NotFound, got %v", err)
	}
}
