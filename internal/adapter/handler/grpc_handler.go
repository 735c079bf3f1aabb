package handler

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/Varun-1606/quick-cart/internal/core/domain"
	"github.com/Varun-1606/quick-cart/internal/core/service"
)

const orderAdminServiceName = "quickcart.orders.v1.OrderAdminService"

// OrderAdminService is the admin order review surface exposed over gRPC.
// Messages are google.protobuf.Struct.
type OrderAdminService interface {
	ListOrders(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ApproveOrder(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RejectOrder(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SweepDeliveries(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type GRPCHandler struct {
	orders   *service.OrderService
	identity *service.IdentityService
}

func NewGRPCHandler(orders *service.OrderService, identity *service.IdentityService) *GRPCHandler {
	return &GRPCHandler{orders: orders, identity: identity}
}

func RegisterOrderAdminService(server grpc.ServiceRegistrar, svc OrderAdminService) {
	server.RegisterService(&grpc.ServiceDesc{
		ServiceName: orderAdminServiceName,
		HandlerType: (*OrderAdminService)(nil),
		Methods: []grpc.MethodDesc{
			{MethodName: "ListOrders", Handler: unaryHandler("ListOrders", svc.ListOrders)},
			{MethodName: "ApproveOrder", Handler: unaryHandler("ApproveOrder", svc.ApproveOrder)},
			{MethodName: "RejectOrder", Handler: unaryHandler("RejectOrder", svc.RejectOrder)},
			{MethodName: "SweepDeliveries", Handler: unaryHandler("SweepDeliveries", svc.SweepDeliveries)},
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "quickcart/orders/v1/order_admin.proto",
	}, svc)
}

func (h *GRPCHandler) ListOrders(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, err := h.authenticate(ctx)
	if err != nil {
		return nil, err
	}
	var st domain.OrderStatus
	if raw := stringField(req, "status"); raw != "" {
		parsed, ok := domain.ParseOrderStatus(raw)
		if !ok {
			return nil, status.Errorf(codes.InvalidArgument, "unknown status %q", raw)
		}
		st = parsed
	}
	orders, err := h.orders.List(ctx, actor, st)
	if err != nil {
		return nil, grpcError(err)
	}
	return ordersStruct(orders, h.orders.Now())
}

func (h *GRPCHandler) ApproveOrder(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return h.review(ctx, req, h.orders.Approve)
}

func (h *GRPCHandler) RejectOrder(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return h.review(ctx, req, h.orders.Reject)
}

func (h *GRPCHandler) review(ctx context.Context, req *structpb.Struct, apply func(context.Context, *domain.User, string) (domain.Order, error)) (*structpb.Struct, error) {
	actor, err := h.authenticate(ctx)
	if err != nil {
		return nil, err
	}
	orderID := stringField(req, "order_id")
	if orderID == "" {
		return nil, status.Error(codes.InvalidArgument, "missing order_id")
	}
	order, err := apply(ctx, actor, orderID)
	if err != nil {
		return nil, grpcError(err)
	}
	resp, err := structpb.NewStruct(orderMap(order, h.orders.Now()))
	if err != nil {
		return nil, status.Errorf(codes.Internal, "build response: %v", err)
	}
	return resp, nil
}

func (h *GRPCHandler) SweepDeliveries(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	actor, err := h.authenticate(ctx)
	if err != nil {
		return nil, err
	}
	delivered, err := h.orders.TriggerSweep(ctx, actor)
	if err != nil {
		return nil, grpcError(err)
	}
	return ordersStruct(delivered, h.orders.Now())
}

func (h *GRPCHandler) authenticate(ctx context.Context) (*domain.User, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	values := md.Get("authorization")
	if len(values) == 0 {
		return nil, status.Error(codes.Unauthenticated, "missing bearer token")
	}
	token, err := bearerTokenFromHeader(values[0])
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, err.Error())
	}
	user, err := h.identity.Authenticate(ctx, token)
	if err != nil {
		return nil, grpcError(err)
	}
	return &user, nil
}

func grpcError(err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrUnauthenticated), errors.Is(err, domain.ErrSessionExpired):
		return status.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrDeliveryNotDue):
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

func stringField(req *structpb.Struct, name string) string {
	v := req.GetFields()[name]
	if v == nil {
		return ""
	}
	return strings.TrimSpace(v.GetStringValue())
}

func ordersStruct(orders []domain.Order, now time.Time) (*structpb.Struct, error) {
	list := make([]any, 0, len(orders))
	for _, o := range orders {
		list = append(list, orderMap(o, now))
	}
	resp, err := structpb.NewStruct(map[string]any{
		"orders": list,
		"count":  len(orders),
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "build response: %v", err)
	}
	return resp, nil
}

func orderMap(o domain.Order, now time.Time) map[string]any {
	items := make([]any, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, map[string]any{
			"product_id": item.Product.ID,
			"name":       item.Product.Name,
			"price":      item.Product.Price.String(),
			"quantity":   item.Quantity,
		})
	}
	m := map[string]any{
		"id":           o.ID,
		"user_id":      o.UserID,
		"status":       string(o.Status),
		"total_amount": o.Total.String(),
		"created_at":   o.CreatedAt.Format(time.RFC3339),
		"items":        items,
	}
	if o.ApprovedAt != nil {
		m["approved_at"] = o.ApprovedAt.Format(time.RFC3339)
		m["delivery_remaining_seconds"] = int64(o.DeliveryRemaining(now).Seconds())
	}
	if o.DeliveredAt != nil {
		m["delivered_at"] = o.DeliveredAt.Format(time.RFC3339)
	}
	return m
}

type unaryMethod func(context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, call unaryMethod) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		req := &structpb.Struct{}
		if err := dec(req); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(ctx, req)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/" + orderAdminServiceName + "/" + method,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			typed, ok := req.(*structpb.Struct)
			if !ok {
				return nil, status.Error(codes.InvalidArgument, "invalid request type")
			}
			return call(ctx, typed)
		}
		return interceptor(ctx, req, info, handler)
	}
}

// LoggingInterceptor logs every unary call with its outcome.
func LoggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	fields := []any{
		"module", "grpc",
		"layer", "adapter",
		"operation", info.FullMethod,
		"code", status.Code(err).String(),
		"duration_ms", time.Since(start).Milliseconds(),
	}
	if err != nil {
		slog.Default().WarnContext(ctx, "grpc call failed", append(fields, "outcome", "failure", "error", err.Error())...)
		return resp, err
	}
	slog.Default().InfoContext(ctx, "grpc call completed", append(fields, "outcome", "success")...)
	return resp, nil
}
