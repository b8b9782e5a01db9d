package grpctransport

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/corray333/backend-labs/foodorder/internal/service/models/order"
	"github.com/corray333/backend-labs/foodorder/internal/service/models/payment"
	"github.com/corray333/backend-labs/foodorder/internal/service/services/paymentsvc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	serviceName      = "foodorder.v1.PaymentSignals"
	reportMethod     = "/" + serviceName + "/Report"
	getOrderMethod   = "/" + serviceName + "/GetOrder"
	protoDescription = "foodorder/v1/payment_signals.proto"
)

type paymentService interface {
	OnSignal(ctx context.Context, sig payment.Signal) (paymentsvc.Result, error)
}

type orderService interface {
	GetOrder(ctx context.Context, orderID string) (order.Order, error)
}

// PaymentSignalsService is the server API of foodorder.v1.PaymentSignals.
type PaymentSignalsService interface {
	Report(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetOrder(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error)
}

// PaymentSignalsServer lets trusted backends report payment outcomes.
type PaymentSignalsServer struct {
	payments paymentService
	orders   orderService
}

// NewPaymentSignalsServer creates a new PaymentSignalsServer.
func NewPaymentSignalsServer(payments paymentService, orders orderService) *PaymentSignalsServer {
	return &PaymentSignalsServer{
		payments: payments,
		orders:   orders,
	}
}

// Report reconciles {status, reference, orderId}.
func (s *PaymentSignalsServer) Report(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	sig := payment.Signal{
		Reference: fields["reference"].GetStringValue(),
		OrderID:   fields["orderId"].GetStringValue(),
		Outcome:   payment.ParseOutcome(fields["status"].GetStringValue()),
		Channel:   payment.ChannelRPC,
	}
	slog.Info("Received payment signal over gRPC", "reference", sig.Reference, "order_id", sig.OrderID)

	result, err := s.payments.OnSignal(ctx, sig)
	if err != nil {
		return nil, toStatus(err)
	}

	resp := map[string]any{
		"route":     string(result.Route),
		"duplicate": result.Duplicate,
	}
	if result.Order != nil {
		resp["status"] = result.Order.Status.String()
	}

	out, err := structpb.NewStruct(resp)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to build response: %v", err)
	}

	return out, nil
}

// GetOrder returns the order with the given id.
func (s *PaymentSignalsServer) GetOrder(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	o, err := s.orders.GetOrder(ctx, req.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}

	out, err := orderToStruct(o)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to build response: %v", err)
	}

	return out, nil
}

func orderToStruct(o order.Order) (*structpb.Struct, error) {
	m := map[string]any{
		"id":           o.ID,
		"userId":       o.UserID,
		"restaurantId": o.RestaurantID,
		"totalAmount":  o.TotalAmount,
		"deliveryFee":  o.DeliveryFee,
		"currency":     o.Currency.String(),
		"status":       o.Status.String(),
		"createdAt":    o.CreatedAt.UTC().Format(time.RFC3339Nano),
		"updatedAt":    o.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	if o.PaymentReference != nil {
		m["paymentReference"] = *o.PaymentReference
	}
	if o.DeliveryStatus != nil {
		m["deliveryStatus"] = string(*o.DeliveryStatus)
	}

	items := make([]any, 0, len(o.OrderItems))
	for _, item := range o.OrderItems {
		items = append(items, map[string]any{
			"itemId":    item.ItemID,
			"name":      item.Name,
			"unitPrice": item.UnitPrice,
			"quantity":  item.Quantity,
		})
	}
	m["orderItems"] = items

	return structpb.NewStruct(m)
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, order.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, order.ErrInvalidTransition):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, order.ErrStaleReference):
		return status.Error(codes.Aborted, err.Error())
	case errors.Is(err, payment.ErrMissingReference), errors.Is(err, payment.ErrMissingOrderID):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		slog.Error("gRPC request failed", "error", err)

		return status.Error(codes.Internal, "internal error")
	}
}

// RegisterPaymentSignalsServer registers srv on s.
func RegisterPaymentSignalsServer(s grpc.ServiceRegistrar, srv PaymentSignalsService) {
	s.RegisterService(&paymentSignalsServiceDesc, srv)
}

var paymentSignalsServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*PaymentSignalsService)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Report",
			Handler:    reportHandler,
		},
		{
			MethodName: "GetOrder",
			Handler:    getOrderHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: protoDescription,
}

func reportHandler(
	srv any,
	ctx context.Context,
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PaymentSignalsService).Report(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: reportMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(PaymentSignalsService).Report(ctx, req.(*structpb.Struct))
	}

	return interceptor(ctx, in, info, handler)
}

func getOrderHandler(
	srv any,
	ctx context.Context,
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PaymentSignalsService).GetOrder(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getOrderMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(PaymentSignalsService).GetOrder(ctx, req.(*wrapperspb.StringValue))
	}

	return interceptor(ctx, in, info, handler)
}

// PaymentSignalsClient calls foodorder.v1.PaymentSignals.
type PaymentSignalsClient struct {
	cc grpc.ClientConnInterface
}

// NewPaymentSignalsClient creates a client on cc.
func NewPaymentSignalsClient(cc grpc.ClientConnInterface) *PaymentSignalsClient {
	return &PaymentSignalsClient{cc: cc}
}

// Report sends a payment outcome.
func (c *PaymentSignalsClient) Report(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, reportMethod, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

// GetOrder fetches an order by id.
func (c *PaymentSignalsClient) GetOrder(
	ctx context.Context,
	in *wrapperspb.StringValue,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, getOrderMethod, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}
