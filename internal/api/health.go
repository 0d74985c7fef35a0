package api

import (
	"context"
	"errors"
	"fmt"
	"net"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthServiceName is the service name reported alongside the overall ("")
// status.
const HealthServiceName = "mutant.report"

// HealthServer exposes the standard gRPC health service.
type HealthServer struct {
	grpcServer *grpc.Server
	health     *health.Server
	logger     *zap.Logger
}

// NewHealthServer returns a HealthServer reporting SERVING.
func NewHealthServer(logger *zap.Logger) *HealthServer {
	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(HealthServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	return &HealthServer{grpcServer: grpcServer, health: healthServer, logger: logger}
}

// SetNotServing flips every service to NOT_SERVING.
func (h *HealthServer) SetNotServing() {
	h.health.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	h.health.SetServingStatus(HealthServiceName, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
}

// Serve runs the gRPC server on lis until ctx is cancelled, then reports
// NOT_SERVING and stops gracefully.
func (h *HealthServer) Serve(ctx context.Context, lis net.Listener) error {
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- h.grpcServer.Serve(lis)
	}()
	h.logger.Info("grpc health listening", zap.String("addr", lis.Addr().String()))

	select {
	case <-ctx.Done():
		h.SetNotServing()
		h.health.Shutdown()
		h.grpcServer.GracefulStop()
		err := <-serveErr
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve grpc health: %w", err)
	case err := <-serveErr:
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve grpc health: %w", err)
	}
}
