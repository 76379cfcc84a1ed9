// Package grpcserver exposes checkout and payments over gRPC. Messages are
// google.protobuf.Struct so no generated code is needed; field names match
// the HTTP JSON payloads.
package grpcserver

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strconv"

	"github.com/shopspring/decimal"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"shop-system/internal/database/models"
	"shop-system/internal/services/ledger"
	"shop-system/internal/services/pos"
)

const (
	ServiceName = "store.v1.Checkout"

	CreateInvoiceMethod = "/" + ServiceName + "/CreateInvoice"
	RecordPaymentMethod = "/" + ServiceName + "/RecordPayment"
)

type CheckoutServer interface {
	CreateInvoice(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RecordPayment(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var CheckoutServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CheckoutServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateInvoice", Handler: unaryHandler(CreateInvoiceMethod, CheckoutServer.CreateInvoice)},
		{MethodName: "RecordPayment", Handler: unaryHandler(RecordPaymentMethod, CheckoutServer.RecordPayment)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "store/v1/checkout.proto",
}

type methodFunc func(CheckoutServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call methodFunc) func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(CheckoutServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(CheckoutServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// Register adds the checkout service and a health service reporting it
// as serving.
func Register(s *grpc.Server, srv CheckoutServer) *health.Server {
	s.RegisterService(&CheckoutServiceDesc, srv)

	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, hs)
	return hs
}

type Checkout struct {
	pos    *pos.Service
	ledger *ledger.Service
}

func NewCheckout(posService *pos.Service, ledgerService *ledger.Service) *Checkout {
	return &Checkout{
		pos:    posService,
		ledger: ledgerService,
	}
}

func (h *Checkout) CreateInvoice(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	serviceReq, err := invoiceRequest(req)
	if err != nil {
		return nil, toStatus(err)
	}

	invoice, err := h.pos.CreateInvoice(ctx, serviceReq)
	if err != nil {
		return nil, toStatus(err)
	}

	return structpb.NewStruct(map[string]interface{}{
		"status":       "success",
		"message":      "Invoice created successfully!",
		"invoice_id":   float64(invoice.ID),
		"total_amount": invoice.TotalAmount.StringFixed(2),
	})
}

func (h *Checkout) RecordPayment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	clientID, err := intField(fields, "client_id")
	if err != nil || clientID <= 0 {
		return nil, status.Error(codes.InvalidArgument, "client_id is required")
	}

	amount, err := numberField(fields, "amount")
	if err != nil {
		return nil, toStatus(fmt.Errorf("%w: %v", ledger.ErrInvalidAmount, err))
	}

	payment, err := h.ledger.RecordPayment(ctx, clientID, amount, fields["notes"].GetStringValue())
	if err != nil {
		return nil, toStatus(err)
	}
	client, err := h.ledger.GetClient(ctx, clientID)
	if err != nil {
		return nil, toStatus(err)
	}

	return structpb.NewStruct(map[string]interface{}{
		"status":     "success",
		"payment_id": float64(payment.ID),
		"client_id":  float64(clientID),
		"amount":     payment.Amount.StringFixed(2),
		"total_debt": client.TotalDebt.StringFixed(2),
	})
}

func invoiceRequest(req *structpb.Struct) (pos.CreateInvoiceRequest, error) {
	fields := req.GetFields()
	out := pos.CreateInvoiceRequest{
		PaymentMethod: models.PaymentMethod(fields["payment_method"].GetStringValue()),
	}

	if v, ok := fields["client_id"]; ok {
		if _, isNull := v.GetKind().(*structpb.Value_NullValue); !isNull {
			id, err := intField(fields, "client_id")
			if err != nil {
				return out, fmt.Errorf("%w: client_id: %v", pos.ErrInvalidInput, err)
			}
			out.ClientID = &id
		}
	}

	for i, v := range fields["cart"].GetListValue().GetValues() {
		item := v.GetStructValue().GetFields()
		if item == nil {
			return out, fmt.Errorf("%w: cart line %d is not an object", pos.ErrInvalidInput, i)
		}
		id, err := intField(item, "id")
		if err != nil {
			return out, fmt.Errorf("%w: cart line %d: %v", pos.ErrMissingData, i, err)
		}
		qty, err := intField(item, "quantity")
		if err != nil {
			return out, fmt.Errorf("%w: cart line %d: %v", pos.ErrInvalidInput, i, err)
		}
		text, err := numberField(item, "price")
		if err != nil {
			return out, fmt.Errorf("%w: cart line %d: %v", pos.ErrMissingData, i, err)
		}
		price, err := decimal.NewFromString(text)
		if err != nil {
			return out, fmt.Errorf("%w: cart line %d: invalid price", pos.ErrInvalidInput, i)
		}
		out.Cart = append(out.Cart, pos.CartLine{ProductID: id, Quantity: int(qty), UnitPrice: price})
	}
	return out, nil
}

func intField(fields map[string]*structpb.Value, name string) (int64, error) {
	v, ok := fields[name]
	if !ok {
		return 0, fmt.Errorf("%s is required", name)
	}
	switch kind := v.GetKind().(type) {
	case *structpb.Value_NumberValue:
		f := kind.NumberValue
		if f != math.Trunc(f) || math.Abs(f) > 1<<53 {
			return 0, fmt.Errorf("%s must be an integer", name)
		}
		return int64(f), nil
	case *structpb.Value_StringValue:
		return strconv.ParseInt(kind.StringValue, 10, 64)
	default:
		return 0, fmt.Errorf("%s must be a number", name)
	}
}

// numberField returns a decimal literal. Strings pass through untouched;
// numbers are formatted with the shortest exact representation.
func numberField(fields map[string]*structpb.Value, name string) (string, error) {
	v, ok := fields[name]
	if !ok {
		return "", fmt.Errorf("%s is required", name)
	}
	switch kind := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return kind.StringValue, nil
	case *structpb.Value_NumberValue:
		return strconv.FormatFloat(kind.NumberValue, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("%s must be a number or string", name)
	}
}

func toStatus(err error) error {
	var stockErr *pos.InsufficientStockError
	switch {
	case errors.As(err, &stockErr):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, pos.ErrEntityNotFound), errors.Is(err, ledger.ErrClientNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, pos.ErrMissingData),
		errors.Is(err, pos.ErrInvalidInput),
		errors.Is(err, pos.ErrMissingClientForCredit),
		errors.Is(err, ledger.ErrInvalidAmount):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		log.Printf("unexpected checkout error: %v", err)
		return status.Error(codes.Internal, "unexpected server error")
	}
}
