package grpc

import (
	"context"
	"fmt"
	"net"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/aescanero/datafabric/internal/application/lifecycle"
)

// ServiceName is the health service name reported alongside the overall status
const ServiceName = "datafabric.DataFabric"

// StateSource is the part of the lifecycle manager the server follows
type StateSource interface {
	State() lifecycle.State
	OnStateChange(fn func(lifecycle.State))
}

// Server represents the gRPC API server
type Server struct {
	server   *grpc.Server
	listener net.Listener
	health   *health.Server
	logger   *zap.Logger
}

// Config holds gRPC server configuration
type Config struct {
	Port      int
	Lifecycle StateSource
	Logger    *zap.Logger
}

// NewServer creates a new gRPC server listening on cfg.Port
func NewServer(cfg *Config) (*Server, error) {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		return nil, fmt.Errorf("failed to create listener: %w", err)
	}
	return newServer(cfg, listener), nil
}

func newServer(cfg *Config, listener net.Listener) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)

	s := &Server{
		server:   grpcServer,
		listener: listener,
		health:   healthServer,
		logger:   logger,
	}

	if cfg.Lifecycle != nil {
		s.setState(cfg.Lifecycle.State())
		cfg.Lifecycle.OnStateChange(s.setState)
	} else {
		s.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
	}
	return s
}

// Addr returns the address the server listens on
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Start starts the gRPC server
func (s *Server) Start() error {
	s.logger.Info("starting gRPC server", zap.String("addr", s.listener.Addr().String()))

	if err := s.server.Serve(s.listener); err != nil {
		return fmt.Errorf("failed to serve gRPC: %w", err)
	}

	return nil
}

// Shutdown marks every service as not serving and stops the server,
// forcing it down if ctx expires first
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down gRPC server")

	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.server.Stop()
		return fmt.Errorf("failed to stop gRPC server gracefully: %w", ctx.Err())
	}

	s.logger.Info("gRPC server shut down complete")
	return nil
}

func (s *Server) setState(state lifecycle.State) {
	if state.Serving() {
		s.setStatus(healthpb.HealthCheckResponse_SERVING)
		return
	}
	s.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
}

func (s *Server) setStatus(status healthpb.HealthCheckResponse_ServingStatus) {
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
	s.logger.Debug("grpc health status updated", zap.String("status", status.String()))
}
