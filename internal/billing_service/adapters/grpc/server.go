package grpc

import (
	"context"
	"log/slog"
	"time"

	grpcprom "github.com/grpc-ecosystem/go-grpc-middleware/providers/prometheus"
	gRPC "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the name the billing service reports under in the health service.
const ServiceName = "ecolix.billing.v1.BillingService"

// Pinger is a dependency whose reachability gates readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthServer owns the gRPC server that carries the standard health service.
type HealthServer struct {
	Server *gRPC.Server
	health *health.Server
	deps   map[string]Pinger
	logger *slog.Logger
}

// NewHealthServer builds a gRPC server with health and reflection registered.
// metrics may be nil.
func NewHealthServer(metrics *grpcprom.ServerMetrics, deps map[string]Pinger, logger *slog.Logger) *HealthServer {
	var opts []gRPC.ServerOption
	if metrics != nil {
		opts = append(opts,
			gRPC.ChainUnaryInterceptor(metrics.UnaryServerInterceptor()),
			gRPC.ChainStreamInterceptor(metrics.StreamServerInterceptor()),
		)
	}
	server := gRPC.NewServer(opts...)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(server, hs)
	reflection.Register(server)
	if metrics != nil {
		metrics.InitializeMetrics(server)
	}

	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return &HealthServer{
		Server: server,
		health: hs,
		deps:   deps,
		logger: logger.With("component", "grpc_health"),
	}
}

// Check pings every dependency once and sets the service status accordingly.
func (s *HealthServer) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	for name, dep := range s.deps {
		if err := dep.Ping(ctx); err != nil {
			s.logger.WarnContext(ctx, "Dependency unhealthy", "dependency", name, "error", err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	s.health.SetServingStatus(ServiceName, status)
	return status
}

// Watch re-checks dependencies every interval until ctx is done.
func (s *HealthServer) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			checkCtx, cancel := context.WithTimeout(ctx, interval/2)
			s.Check(checkCtx)
			cancel()
		}
	}
}

// Shutdown reports NOT_SERVING to every watcher and stops accepting checks.
func (s *HealthServer) Shutdown() {
	s.health.Shutdown()
}
