package server

import (
	"context"
	"net"
	"strings"

	"github.com/fekuna/omnipos-ledger-service/internal/logger"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

const serviceName = "omnipos.ledger.v1"

// GRPCServer serves the standard health service and reflection for
// orchestrators and ops tooling.
type GRPCServer struct {
	srv    *grpc.Server
	health *grpchealth.Server
	port   string
	logger logger.ZapLogger
}

func NewGRPCServer(port string, log logger.ZapLogger) *GRPCServer {
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}

	srv := grpc.NewServer()
	hs := grpchealth.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)

	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)

	return &GRPCServer{srv: srv, health: hs, port: port, logger: log}
}

func (s *GRPCServer) Run() error {
	lis, err := net.Listen("tcp", s.port)
	if err != nil {
		return err
	}
	return s.Serve(lis)
}

func (s *GRPCServer) Serve(lis net.Listener) error {
	s.logger.Info("Starting gRPC server", zap.String("addr", lis.Addr().String()))
	return s.srv.Serve(lis)
}

// Shutdown reports NOT_SERVING first so clients drain, then stops.
func (s *GRPCServer) Shutdown(ctx context.Context) {
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.srv.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.srv.Stop()
	}
}
