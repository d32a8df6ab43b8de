package grpc

import (
	"context"

	"github.com/dmitrijs2005/pagetree/internal/common"
	"github.com/dmitrijs2005/pagetree/internal/logging"
	"github.com/dmitrijs2005/pagetree/internal/server/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// accessTokenInterceptor turns the access_token metadata into the request
// caller. Requests without a token run as the anonymous caller; a token
// that fails verification is rejected.
func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	var accessToken string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		values := md.Get(common.AccessTokenHeaderName)
		if len(values) > 0 {
			accessToken = values[0]
		}
	}

	if accessToken != "" {
		caller, err := auth.CallerFromToken(accessToken, s.jwtSecret)
		if err != nil {
			s.logger.Warn(ctx, "rejected token", "method", info.FullMethod, "error", err)
			return nil, status.Error(codes.Unauthenticated, "invalid token")
		}
		ctx = auth.WithCaller(ctx, caller)
		ctx = logging.WithFields(ctx, "caller", caller.ID)
	}

	return handler(ctx, req)
}

// loggingInterceptor tags the context with the method for downstream
// logs and records every call with its outcome.
func (s *GRPCServer) loggingInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	ctx = logging.WithFields(ctx, "method", info.FullMethod)
	resp, err := handler(ctx, req)
	if err != nil {
		s.logger.Debug(ctx, "rpc", "code", status.Code(err).String())
	} else {
		s.logger.Debug(ctx, "rpc", "code", codes.OK.String())
	}
	return resp, err
}
