package workers

import (
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

func TestHealthServerWorker_FollowsReadiness(t *testing.T) {
	req := require.New(t)
	lis := bufconn.Listen(1 << 16)
	var ready atomic.Bool
	ready.Store(true)

	worker := NewHealthServerWorker(testLogger(),
		func() (net.Listener, error) { return lis, nil },
		ready.Load, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	req.NoError(err)
	defer conn.Close()
	client := grpc_health_v1.NewHealthClient(conn)

	status := func(service string) grpc_health_v1.HealthCheckResponse_ServingStatus {
		resp, err := client.Check(context.Background(), &grpc_health_v1.HealthCheckRequest{Service: service})
		if err != nil {
			return grpc_health_v1.HealthCheckResponse_UNKNOWN
		}
		return resp.GetStatus()
	}

	// Given a ready router the service is serving
	req.Eventually(func() bool {
		return status("") == grpc_health_v1.HealthCheckResponse_SERVING &&
			status(ServiceName) == grpc_health_v1.HealthCheckResponse_SERVING
	}, 2*time.Second, 10*time.Millisecond)

	// When the router stops accepting
	ready.Store(false)

	// Then the status flips
	req.Eventually(func() bool {
		return status(ServiceName) == grpc_health_v1.HealthCheckResponse_NOT_SERVING
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		req.NoError(err)
	case <-time.After(2 * time.Second):
		req.Fail("health worker did not stop")
	}
}
