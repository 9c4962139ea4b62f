// Package client talks to the coursecache gRPC service.
package client

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dmitrijs2005/coursecache/internal/api"
	"github.com/dmitrijs2005/coursecache/internal/common"
)

// ErrUnavailable reports a transient server failure; the call may be retried.
var ErrUnavailable = errors.New("service unavailable")

type GRPCClient struct {
	conn   *grpc.ClientConn
	client api.CourseCacheClient
}

// NewGRPCClient connects to endpoint. Extra options are appended after the
// defaults, so tests can swap the dialer.
func NewGRPCClient(endpoint string, opts ...grpc.DialOption) (*GRPCClient, error) {
	base := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
		grpc.WithUnaryInterceptor(requestIDInterceptor),
	}
	conn, err := grpc.NewClient(endpoint, append(base, opts...)...)
	if err != nil {
		return nil, err
	}
	return &GRPCClient{conn: conn, client: api.NewCourseCacheClient(conn)}, nil
}

func (c *GRPCClient) Close() error {
	return c.conn.Close()
}

// requestIDInterceptor tags every call with a fresh request id unless the
// caller already set one.
func requestIDInterceptor(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
	md, _ := metadata.FromOutgoingContext(ctx)
	if len(md.Get(common.RequestIDHeaderName)) == 0 {
		ctx = metadata.AppendToOutgoingContext(ctx, common.RequestIDHeaderName, uuid.NewString())
	}
	return invoker(ctx, method, req, reply, cc, opts...)
}

// GetContent returns the content tree of a course as decoded JSON.
func (c *GRPCClient) GetContent(ctx context.Context, courseID int64) (map[string]any, error) {
	resp, err := c.client.GetContent(ctx, api.Request{CourseID: courseID}.Struct())
	return asMap(resp, err)
}

func (c *GRPCClient) GetPoints(ctx context.Context, courseID, userID int64, staff bool) (map[string]any, error) {
	resp, err := c.client.GetPoints(ctx, api.Request{CourseID: courseID, UserID: userID, Staff: staff}.Struct())
	return asMap(resp, err)
}

func (c *GRPCClient) InvalidatePoints(ctx context.Context, courseID, userID int64) error {
	_, err := c.client.InvalidatePoints(ctx, api.Request{CourseID: courseID, UserID: userID}.Struct())
	return mapError(err)
}

func (c *GRPCClient) InvalidateContent(ctx context.Context, courseID int64) error {
	_, err := c.client.InvalidateContent(ctx, api.Request{CourseID: courseID}.Struct())
	return mapError(err)
}

func asMap(resp *structpb.Struct, err error) (map[string]any, error) {
	if err != nil {
		return nil, mapError(err)
	}
	return resp.AsMap(), nil
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.NotFound:
		return common.ErrorNotFound
	case codes.InvalidArgument:
		return common.ErrInvalidArgument
	case codes.Unavailable:
		return ErrUnavailable
	default:
		return err
	}
}
