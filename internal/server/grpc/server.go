// Package grpc exposes the content tree over gRPC. Messages are plain Go
// structs sent with a JSON codec; clients select it with the "json"
// content subtype (see Client).
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/pagetree/internal/logging"
	"github.com/dmitrijs2005/pagetree/internal/server/services"
	"google.golang.org/grpc"
)

type GRPCServer struct {
	address   string
	svc       *services.Services
	logger    logging.Logger
	jwtSecret []byte
}

var _ PageTreeServer = (*GRPCServer)(nil)

func NewGRPCServer(a string, l logging.Logger, svc *services.Services, secretKey string) *GRPCServer {
	return &GRPCServer{
		address:   a,
		logger:    l.With("module", "grpc_server"),
		svc:       svc,
		jwtSecret: []byte(secretKey),
	}
}

// NewServer builds a gRPC server with the interceptors and the service
// registered, ready to Serve on any listener.
func (s *GRPCServer) NewServer(opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts, grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.accessTokenInterceptor))
	srv := grpc.NewServer(opts...)
	RegisterPageTreeServer(srv, s)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := s.NewServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", s.address)

	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
