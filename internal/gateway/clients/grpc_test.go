package clients

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"

	"shop-system/internal/database/dbtest"
	"shop-system/internal/grpcserver"
	"shop-system/internal/services/ledger"
	"shop-system/internal/services/pos"
)

func TestCheckoutClientHealth(t *testing.T) {
	db := dbtest.New(t)

	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer()
	hs := grpcserver.Register(s, grpcserver.NewCheckout(pos.NewService(db, nil, nil), ledger.NewService(db, nil)))
	go s.Serve(lis)
	t.Cleanup(s.Stop)

	client, err := NewCheckoutClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(client.Close)

	ctx := context.Background()
	assert.True(t, client.IsHealthy(ctx))

	hs.SetServingStatus(grpcserver.ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	assert.False(t, client.IsHealthy(ctx))
}

func TestNilClientIsUnhealthy(t *testing.T) {
	var client *CheckoutClient
	assert.False(t, client.IsHealthy(context.Background()))
	client.Close()
}
