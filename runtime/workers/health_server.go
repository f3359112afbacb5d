package workers

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the service reported by the health endpoint next to the overall "" status.
const ServiceName = "chat.presence"

type ListenFunc func() (net.Listener, error)

// HealthServerWorker exposes grpc.health.v1.Health.
// The status follows readiness: SERVING while it reports true, NOT_SERVING otherwise
// and for good once the worker stops.
type HealthServerWorker struct {
	log       *slog.Logger
	listen    ListenFunc
	readiness func() bool
	interval  time.Duration
	health    *health.Server
}

func NewHealthServerWorker(log *slog.Logger, listen ListenFunc, readiness func() bool, interval time.Duration) *HealthServerWorker {
	if interval <= 0 {
		interval = time.Second
	}
	return &HealthServerWorker{
		log:       log,
		listen:    listen,
		readiness: readiness,
		interval:  interval,
		health:    health.NewServer(),
	}
}

// TCPListener listens on addr each time the worker starts.
func TCPListener(addr string) ListenFunc {
	return func() (net.Listener, error) {
		return net.Listen("tcp", addr)
	}
}

func (w *HealthServerWorker) Run(ctx context.Context) error {
	listener, err := w.listen()
	if err != nil {
		return fmt.Errorf("health listener: %w", err)
	}

	server := grpc.NewServer()
	grpc_health_v1.RegisterHealthServer(server, w.health)
	w.health.Resume()
	w.refresh()

	errChan := make(chan error, 1)
	go func() {
		w.log.Info("Starting gRPC health server", "address", listener.Addr().String())
		errChan <- server.Serve(listener)
	}()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case err := <-errChan:
			w.health.Shutdown()
			return fmt.Errorf("gRPC health server error: %w", err)
		case <-ticker.C:
			w.refresh()
		case <-ctx.Done():
			w.health.Shutdown()
			server.GracefulStop()
			w.log.Info("gRPC health server stopped")
			return nil
		}
	}
}

func (w *HealthServerWorker) refresh() {
	status := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if w.readiness() {
		status = grpc_health_v1.HealthCheckResponse_SERVING
	}
	w.health.SetServingStatus("", status)
	w.health.SetServingStatus(ServiceName, status)
}
