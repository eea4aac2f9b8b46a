package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// MonitorService is the health service name reflecting job status polling.
const MonitorService = "job-monitor"

// HealthServer exposes grpc.health.v1 for the running console.
type HealthServer struct {
	grpc   *grpc.Server
	health *health.Server
	lis    net.Listener
	logger *slog.Logger

	stopOnce sync.Once
}

// NewHealthServer listens on addr. Overall health is SERVING from the start;
// the monitor service stays NOT_SERVING until the first good poll.
func NewHealthServer(addr string, logger *slog.Logger) (*HealthServer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Error("server.health.listen_failed", "addr", addr, "error", err)
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}

	gs := grpc.NewServer()
	hs := health.NewServer()
	grpc_health_v1.RegisterHealthServer(gs, hs)
	hs.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	hs.SetServingStatus(MonitorService, grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	return &HealthServer{grpc: gs, health: hs, lis: lis, logger: logger}, nil
}

// Addr returns the bound listen address.
func (s *HealthServer) Addr() string { return s.lis.Addr().String() }

// Start serves in the background.
func (s *HealthServer) Start() {
	s.logger.Info("server.health.listening", "addr", s.Addr())
	go func() {
		if err := s.grpc.Serve(s.lis); err != nil {
			s.logger.Error("server.health.serve_error", "error", err)
		}
	}()
}

// MonitorHealthy marks the job monitor as SERVING.
func (s *HealthServer) MonitorHealthy() {
	s.health.SetServingStatus(MonitorService, grpc_health_v1.HealthCheckResponse_SERVING)
}

// MonitorFailing marks the job monitor as NOT_SERVING.
func (s *HealthServer) MonitorFailing() {
	s.health.SetServingStatus(MonitorService, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
}

// Shutdown reports NOT_SERVING for every service and stops the server,
// forcing it down if ctx expires first.
func (s *HealthServer) Shutdown(ctx context.Context) {
	s.stopOnce.Do(func() {
		s.health.Shutdown()
		done := make(chan struct{})
		go func() {
			s.grpc.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			s.grpc.Stop()
		}
		s.logger.Info("server.health.stopped")
	})
}
