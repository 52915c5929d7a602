package server

import (
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/kiosk404/sankhya-agent/pkg/logger"
)

// GRPCAPIServer serves the standard health service and reflection.
type GRPCAPIServer struct {
	*grpc.Server
	address string
	health  *health.Server
}

// NewGRPCAPIServer registers health and reflection on a new gRPC server.
func NewGRPCAPIServer(address string, maxMsgSize int) *GRPCAPIServer {
	srv := grpc.NewServer(grpc.MaxRecvMsgSize(maxMsgSize))
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)
	return &GRPCAPIServer{Server: srv, address: address, health: hs}
}

// SetServing flips the overall health status.
func (s *GRPCAPIServer) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
}

// Run serves until Stop.
func (s *GRPCAPIServer) Run() {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		logger.Error("failed to listen on %s: %v", s.address, err)
		return
	}
	s.SetServing(true)
	logger.Info("start grpc server at %s", s.address)
	if err := s.Serve(listen); err != nil {
		logger.Error("failed to start grpc server: %v", err)
	}
}

// Stop marks the service not serving and drains connections.
func (s *GRPCAPIServer) Stop() {
	s.health.Shutdown()
	s.GracefulStop()
	logger.Info("grpc server on %s stopped", s.address)
}
