package grpc

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gRPC "google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

type fakePinger struct {
	err error
}

func (p *fakePinger) Ping(context.Context) error { return p.err }

func dialHealth(t *testing.T, s *HealthServer) healthpb.HealthClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	go func() { _ = s.Server.Serve(lis) }()
	t.Cleanup(s.Server.Stop)

	conn, err := gRPC.NewClient("passthrough:///bufnet",
		gRPC.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		gRPC.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return healthpb.NewHealthClient(conn)
}

func TestHealthServer_Check(t *testing.T) {
	db := &fakePinger{}
	s := NewHealthServer(nil, map[string]Pinger{"postgres": db}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	client := dialHealth(t, s)
	ctx := t.Context()

	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.Status)

	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, s.Check(ctx))
	resp, err = client.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)

	db.err = errors.New("connection refused")
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, s.Check(ctx))
}

func TestHealthServer_Shutdown(t *testing.T) {
	s := NewHealthServer(nil, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	client := dialHealth(t, s)
	ctx := t.Context()

	s.Check(ctx)
	s.Shutdown()

	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.Status)
}
