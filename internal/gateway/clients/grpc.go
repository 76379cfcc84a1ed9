package clients

import (
	"context"
	"fmt"
	"log"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"shop-system/internal/grpcserver"
)

// CheckoutClient watches the store.v1.Checkout gRPC service from the gateway.
type CheckoutClient struct {
	conn   *grpc.ClientConn
	health healthpb.HealthClient
}

// NewCheckoutClient does not dial eagerly; the first call connects.
func NewCheckoutClient(target string, opts ...grpc.DialOption) (*CheckoutClient, error) {
	if len(opts) == 0 {
		opts = []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	}
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("checkout service connection failed: %w", err)
	}

	log.Printf("checkout gRPC client targeting %s", target)
	return &CheckoutClient{
		conn:   conn,
		health: healthpb.NewHealthClient(conn),
	}, nil
}

// IsHealthy asks the standard health service about the checkout service.
func (c *CheckoutClient) IsHealthy(ctx context.Context) bool {
	if c == nil {
		return false
	}
	resp, err := c.health.Check(ctx, &healthpb.HealthCheckRequest{Service: grpcserver.ServiceName})
	if err != nil {
		return false
	}
	return resp.GetStatus() == healthpb.HealthCheckResponse_SERVING
}

func (c *CheckoutClient) Close() {
	if c != nil && c.conn != nil {
		c.conn.Close()
	}
}
