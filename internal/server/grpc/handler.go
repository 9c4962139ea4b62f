package grpc

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dmitrijs2005/coursecache/internal/api"
	"github.com/dmitrijs2005/coursecache/internal/common"
)

type handler struct {
	views CourseViews
}

func (h *handler) GetContent(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r, err := api.ParseRequest(req, false)
	if err != nil {
		return nil, mapError(err)
	}
	tree, err := h.views.GetContent(ctx, r.CourseID)
	if err != nil {
		return nil, mapError(err)
	}
	return encode(tree)
}

func (h *handler) GetPoints(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r, err := api.ParseRequest(req, true)
	if err != nil {
		return nil, mapError(err)
	}
	view, err := h.views.GetPoints(ctx, r.CourseID, r.UserID, r.Staff)
	if err != nil {
		return nil, mapError(err)
	}
	return encode(view)
}

func (h *handler) InvalidatePoints(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r, err := api.ParseRequest(req, true)
	if err != nil {
		return nil, mapError(err)
	}
	if err := h.views.InvalidatePoints(ctx, r.CourseID, r.UserID); err != nil {
		return nil, mapError(err)
	}
	return &structpb.Struct{}, nil
}

func (h *handler) InvalidateContent(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r, err := api.ParseRequest(req, false)
	if err != nil {
		return nil, mapError(err)
	}
	if err := h.views.InvalidateContent(ctx, r.CourseID); err != nil {
		return nil, mapError(err)
	}
	return &structpb.Struct{}, nil
}

func encode(v any) (*structpb.Struct, error) {
	s, err := api.Encode(v)
	if err != nil {
		return nil, status.Error(codes.Internal, "encoding response failed")
	}
	return s, nil
}

// mapError turns domain errors into status codes. Generator failures are
// transient and safe to retry.
func mapError(err error) error {
	switch {
	case errors.Is(err, common.ErrorNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, common.ErrInvalidArgument):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrGeneratorFailure):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, "internal error")
	}
}
