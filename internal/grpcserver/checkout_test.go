package grpcserver

import (
	"context"
	"net"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
	"gorm.io/gorm"

	"shop-system/internal/database/dbtest"
	"shop-system/internal/database/models"
	"shop-system/internal/services/ledger"
	"shop-system/internal/services/pos"
)

func startServer(t *testing.T) (*grpc.ClientConn, *gorm.DB) {
	t.Helper()
	db := dbtest.New(t)

	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer()
	Register(s, NewCheckout(pos.NewService(db, nil, nil), ledger.NewService(db, nil)))
	go s.Serve(lis)
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn, db
}

func mustStruct(t *testing.T, m map[string]interface{}) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	require.NoError(t, err)
	return s
}

func TestCreateInvoiceOverGRPC(t *testing.T) {
	conn, db := startServer(t)
	ctx := context.Background()

	p := models.Product{Name: "Sugar 1kg", SalePrice: decimal.RequireFromString("2.40"), StockQuantity: 10, ReorderLevel: 2}
	require.NoError(t, db.Create(&p).Error)
	c := models.Client{Name: "Nadia", TotalDebt: decimal.Zero}
	require.NoError(t, db.Create(&c).Error)

	out := new(structpb.Struct)
	err := conn.Invoke(ctx, CreateInvoiceMethod, mustStruct(t, map[string]interface{}{
		"payment_method": "CREDIT",
		"client_id":      float64(c.ID),
		"cart": []interface{}{
			map[string]interface{}{"id": float64(p.ID), "price": "2.45", "quantity": float64(3)},
		},
	}), out)
	require.NoError(t, err)

	assert.Equal(t, "success", out.Fields["status"].GetStringValue())
	assert.Equal(t, "7.35", out.Fields["total_amount"].GetStringValue())
	assert.NotZero(t, out.Fields["invoice_id"].GetNumberValue())

	var got models.Client
	require.NoError(t, db.First(&got, c.ID).Error)
	assert.True(t, got.TotalDebt.Equal(decimal.RequireFromString("7.35")))
}

func TestCreateInvoiceStatusCodes(t *testing.T) {
	conn, db := startServer(t)
	ctx := context.Background()

	p := models.Product{Name: "Flour", SalePrice: decimal.NewFromInt(3), StockQuantity: 1, ReorderLevel: 0}
	require.NoError(t, db.Create(&p).Error)

	tests := []struct {
		name string
		req  map[string]interface{}
		code codes.Code
	}{
		{"empty cart", map[string]interface{}{"payment_method": "CASH", "cart": []interface{}{}}, codes.InvalidArgument},
		{"credit without client", map[string]interface{}{
			"payment_method": "CREDIT",
			"cart":           []interface{}{map[string]interface{}{"id": float64(p.ID), "price": 3, "quantity": 1}},
		}, codes.InvalidArgument},
		{"unknown product", map[string]interface{}{
			"payment_method": "CASH",
			"cart":           []interface{}{map[string]interface{}{"id": 999, "price": 3, "quantity": 1}},
		}, codes.NotFound},
		{"insufficient stock", map[string]interface{}{
			"payment_method": "CASH",
			"cart":           []interface{}{map[string]interface{}{"id": float64(p.ID), "price": 3, "quantity": 2}},
		}, codes.FailedPrecondition},
		{"fractional quantity", map[string]interface{}{
			"payment_method": "CASH",
			"cart":           []interface{}{map[string]interface{}{"id": float64(p.ID), "price": 3, "quantity": 1.5}},
		}, codes.InvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := conn.Invoke(ctx, CreateInvoiceMethod, mustStruct(t, tt.req), new(structpb.Struct))
			require.Error(t, err)
			assert.Equal(t, tt.code, status.Code(err))
		})
	}
}

func TestRecordPaymentOverGRPC(t *testing.T) {
	conn, db := startServer(t)
	ctx := context.Background()

	c := models.Client{Name: "Yacine", TotalDebt: decimal.RequireFromString("40")}
	require.NoError(t, db.Create(&c).Error)

	out := new(structpb.Struct)
	err := conn.Invoke(ctx, RecordPaymentMethod, mustStruct(t, map[string]interface{}{
		"client_id": float64(c.ID),
		"amount":    12.5,
		"notes":     "partial",
	}), out)
	require.NoError(t, err)
	assert.Equal(t, "27.50", out.Fields["total_debt"].GetStringValue())

	err = conn.Invoke(ctx, RecordPaymentMethod, mustStruct(t, map[string]interface{}{
		"client_id": float64(c.ID),
		"amount":    "-1",
	}), new(structpb.Struct))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	err = conn.Invoke(ctx, RecordPaymentMethod, mustStruct(t, map[string]interface{}{
		"client_id": 999,
		"amount":    "1",
	}), new(structpb.Struct))
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestHealthReportsServing(t *testing.T) {
	conn, _ := startServer(t)

	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}

func TestNumberFieldKeepsDecimalText(t *testing.T) {
	fields := mustStruct(t, map[string]interface{}{"a": "0.10", "b": 0.1, "c": true}).GetFields()

	v, err := numberField(fields, "a")
	require.NoError(t, err)
	assert.Equal(t, "0.10", v)

	v, err = numberField(fields, "b")
	require.NoError(t, err)
	assert.Equal(t, "0.1", v)

	_, err = numberField(fields, "c")
	assert.Error(t, err)
	_, err = numberField(fields, "missing")
	assert.Error(t, err)
}
