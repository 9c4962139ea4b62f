// Package grpc exposes the course view service over gRPC.
package grpc

import (
	"context"
	"net"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"

	"github.com/dmitrijs2005/coursecache/internal/api"
	"github.com/dmitrijs2005/coursecache/internal/content"
	"github.com/dmitrijs2005/coursecache/internal/logging"
	"github.com/dmitrijs2005/coursecache/internal/points"
)

// CourseViews is the read and invalidation surface the server exposes.
type CourseViews interface {
	GetContent(ctx context.Context, courseID int64) (*content.Tree, error)
	GetPoints(ctx context.Context, courseID, userID int64, staff bool) (*points.View, error)
	InvalidatePoints(ctx context.Context, courseID, userID int64) error
	InvalidateContent(ctx context.Context, courseID int64) error
}

type GRPCServer struct {
	address string
	views   CourseViews
	logger  logging.Logger
}

func NewGRPCServer(address string, l logging.Logger, views CourseViews) *GRPCServer {
	return &GRPCServer{
		address: address,
		logger:  l.With("module", "grpc_server"),
		views:   views,
	}
}

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(s.requestIDInterceptor, s.loggingInterceptor),
	)
	api.RegisterCourseCacheServer(srv, &handler{views: s.views})
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is cancelled, then stops
// gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}
	return nil
}
