// Package api is the wire contract of the coursecache gRPC service. Messages
// are google.protobuf.Struct values, so the service is registered by hand
// and needs no generated stubs.
package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "coursecache.v1.CourseCache"

const (
	MethodGetContent        = "/" + ServiceName + "/GetContent"
	MethodGetPoints         = "/" + ServiceName + "/GetPoints"
	MethodInvalidatePoints  = "/" + ServiceName + "/InvalidatePoints"
	MethodInvalidateContent = "/" + ServiceName + "/InvalidateContent"
)

type CourseCacheServer interface {
	GetContent(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetPoints(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	InvalidatePoints(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	InvalidateContent(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type serverMethod func(CourseCacheServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call serverMethod) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(CourseCacheServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(srv.(CourseCacheServer), ctx, req.(*structpb.Struct))
		})
	}
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CourseCacheServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetContent", Handler: unaryHandler(MethodGetContent, CourseCacheServer.GetContent)},
		{MethodName: "GetPoints", Handler: unaryHandler(MethodGetPoints, CourseCacheServer.GetPoints)},
		{MethodName: "InvalidatePoints", Handler: unaryHandler(MethodInvalidatePoints, CourseCacheServer.InvalidatePoints)},
		{MethodName: "InvalidateContent", Handler: unaryHandler(MethodInvalidateContent, CourseCacheServer.InvalidateContent)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "coursecache/v1/service",
}

func RegisterCourseCacheServer(s grpc.ServiceRegistrar, srv CourseCacheServer) {
	s.RegisterService(&ServiceDesc, srv)
}

type CourseCacheClient interface {
	GetContent(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	GetPoints(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	InvalidatePoints(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	InvalidateContent(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type courseCacheClient struct {
	cc grpc.ClientConnInterface
}

func NewCourseCacheClient(cc grpc.ClientConnInterface) CourseCacheClient {
	return &courseCacheClient{cc: cc}
}

func (c *courseCacheClient) invoke(ctx context.Context, method string, req *structpb.Struct, opts []grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *courseCacheClient) GetContent(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodGetContent, req, opts)
}

func (c *courseCacheClient) GetPoints(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodGetPoints, req, opts)
}

func (c *courseCacheClient) InvalidatePoints(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodInvalidatePoints, req, opts)
}

func (c *courseCacheClient) InvalidateContent(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodInvalidateContent, req, opts)
}
