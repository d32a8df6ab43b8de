package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/pagetree/internal/common"
	"github.com/dmitrijs2005/pagetree/internal/server/auth"
	"github.com/dmitrijs2005/pagetree/internal/server/models"
	"github.com/dmitrijs2005/pagetree/internal/server/services"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// toStatus maps service errors to gRPC codes. Unknown errors are logged
// and hidden behind Internal.
func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	var code codes.Code
	switch {
	case errors.Is(err, common.ErrValidation):
		code = codes.InvalidArgument
	case errors.Is(err, common.ErrConflict):
		code = codes.AlreadyExists
	case errors.Is(err, common.ErrCycleDetected),
		errors.Is(err, common.ErrHasChildren),
		errors.Is(err, common.ErrNoLiveVersion):
		code = codes.FailedPrecondition
	case errors.Is(err, common.ErrNotEditable):
		code = codes.PermissionDenied
	case errors.Is(err, common.ErrorNotFound):
		code = codes.NotFound
	case errors.Is(err, common.ErrStorageUnavailable):
		s.logger.Error(ctx, "storage failure", "error", err)
		return status.Error(codes.Unavailable, "storage unavailable")
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	default:
		s.logger.Error(ctx, "request failed", "error", err)
		return status.Error(codes.Internal, "internal error")
	}
	return status.Error(code, err.Error())
}

func (s *GRPCServer) Ping(ctx context.Context, _ *Empty) (*PingResponse, error) {
	return &PingResponse{Status: "OK"}, nil
}

func (s *GRPCServer) Save(ctx context.Context, req *SaveRequest) (*PageResponse, error) {
	res, err := s.svc.Versions.Save(ctx, auth.CallerFromContext(ctx), req.input())
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return toSaveResponse(res), nil
}

func (s *GRPCServer) Publish(ctx context.Context, req *NodeRequest) (*PageResponse, error) {
	page, err := s.svc.Versions.Publish(ctx, auth.CallerFromContext(ctx), req.ID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &PageResponse{Page: toPage(page)}, nil
}

func (s *GRPCServer) Unpublish(ctx context.Context, req *NodeRequest) (*Empty, error) {
	if err := s.svc.Versions.Unpublish(ctx, auth.CallerFromContext(ctx), req.ID); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &Empty{}, nil
}

func (s *GRPCServer) Rollback(ctx context.Context, req *NodeRequest) (*PageResponse, error) {
	res, err := s.svc.Versions.Rollback(ctx, auth.CallerFromContext(ctx), req.ID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return toSaveResponse(res), nil
}

func (s *GRPCServer) RemoveDraft(ctx context.Context, req *NodeRequest) (*Empty, error) {
	if err := s.svc.Versions.RemoveDraft(ctx, auth.CallerFromContext(ctx), req.ID); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &Empty{}, nil
}

func (s *GRPCServer) Diff(ctx context.Context, req *NodeRequest) (*DiffResponse, error) {
	d, err := s.svc.Versions.DiffForCaller(ctx, auth.CallerFromContext(ctx), req.ID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &DiffResponse{
		Status:       string(d.Status),
		Fields:       d.Fields,
		DraftVersion: d.DraftVersion,
		LiveVersion:  d.LiveVersion,
	}, nil
}

func (s *GRPCServer) Get(ctx context.Context, req *StageRequest) (*PageResponse, error) {
	page, err := s.visible(ctx, req.ID, stage(req.Stage))
	if err != nil {
		return nil, err
	}
	return &PageResponse{Page: toPage(page)}, nil
}

func (s *GRPCServer) Capabilities(ctx context.Context, req *NodeRequest) (*CapabilitiesResponse, error) {
	c, err := s.svc.Versions.Capabilities(ctx, auth.CallerFromContext(ctx), req.ID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &CapabilitiesResponse{View: c.View, Edit: c.Edit, Publish: c.Publish, AddChildren: c.AddChildren, Delete: c.Delete}, nil
}

func (s *GRPCServer) Children(ctx context.Context, req *ChildrenRequest) (*NodesResponse, error) {
	nodes, err := s.svc.Tree.Children(ctx, req.ParentID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	out := &NodesResponse{Nodes: make([]Node, 0, len(nodes))}
	for _, n := range nodes {
		out.Nodes = append(out.Nodes, toNode(n))
	}
	return out, nil
}

func (s *GRPCServer) Move(ctx context.Context, req *MoveRequest) (*Empty, error) {
	if err := s.svc.Tree.Move(ctx, auth.CallerFromContext(ctx), req.ID, req.ParentID); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &Empty{}, nil
}

func (s *GRPCServer) SetSortOrder(ctx context.Context, req *SortRequest) (*Empty, error) {
	if err := s.svc.Tree.SetSortOrder(ctx, auth.CallerFromContext(ctx), req.ParentID, req.IDs); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &Empty{}, nil
}

func (s *GRPCServer) Delete(ctx context.Context, req *NodeRequest) (*DeleteResponse, error) {
	removed, err := s.svc.Tree.Delete(ctx, auth.CallerFromContext(ctx), req.ID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &DeleteResponse{Removed: removed}, nil
}

func (s *GRPCServer) Link(ctx context.Context, req *StageRequest) (*LinkResponse, error) {
	st := stage(req.Stage)
	if _, err := s.visible(ctx, req.ID, st); err != nil {
		return nil, err
	}
	link, err := s.svc.Traversal.Link(ctx, st, req.ID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &LinkResponse{Link: link}, nil
}

func (s *GRPCServer) Breadcrumbs(ctx context.Context, req *BreadcrumbsRequest) (*BreadcrumbsResponse, error) {
	st := stage(req.Stage)
	if _, err := s.visible(ctx, req.ID, st); err != nil {
		return nil, err
	}
	crumbs, err := s.svc.Traversal.Breadcrumbs(ctx, st, req.ID, services.BreadcrumbOptions{
		MaxDepth:   req.MaxDepth,
		StopAtType: req.StopAtType,
		ShowHidden: req.ShowHidden,
		Links:      req.Links,
	})
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	out := &BreadcrumbsResponse{Crumbs: make([]Crumb, 0, len(crumbs))}
	for _, c := range crumbs {
		out.Crumbs = append(out.Crumbs, Crumb{ID: c.ID, Title: c.Title, Link: c.Link})
	}
	return out, nil
}

func (s *GRPCServer) Duplicate(ctx context.Context, req *DuplicateRequest) (*NodeResponse, error) {
	n, err := s.svc.Traversal.Duplicate(ctx, auth.CallerFromContext(ctx), req.ID, services.DuplicateOptions{
		IncludeChildren: req.IncludeChildren,
		TargetParentID:  req.TargetParentID,
	})
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &NodeResponse{Node: toNode(n)}, nil
}

// visible loads the page when the caller may see it in stage. Draft reads
// need edit rights.
func (s *GRPCServer) visible(ctx context.Context, id string, st models.Stage) (*models.Page, error) {
	page, err := s.svc.Versions.GetForCaller(ctx, auth.CallerFromContext(ctx), id, st)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return page, nil
}
