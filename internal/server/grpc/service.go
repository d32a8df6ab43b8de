package grpc

import (
	"context"

	"google.golang.org/grpc"
)

const serviceName = "pagetree.v1.PageTree"

// PageTreeServer lists the RPCs served by GRPCServer.
type PageTreeServer interface {
	Ping(context.Context, *Empty) (*PingResponse, error)
	Save(context.Context, *SaveRequest) (*PageResponse, error)
	Publish(context.Context, *NodeRequest) (*PageResponse, error)
	Unpublish(context.Context, *NodeRequest) (*Empty, error)
	Rollback(context.Context, *NodeRequest) (*PageResponse, error)
	RemoveDraft(context.Context, *NodeRequest) (*Empty, error)
	Diff(context.Context, *NodeRequest) (*DiffResponse, error)
	Get(context.Context, *StageRequest) (*PageResponse, error)
	Capabilities(context.Context, *NodeRequest) (*CapabilitiesResponse, error)
	Children(context.Context, *ChildrenRequest) (*NodesResponse, error)
	Move(context.Context, *MoveRequest) (*Empty, error)
	SetSortOrder(context.Context, *SortRequest) (*Empty, error)
	Delete(context.Context, *NodeRequest) (*DeleteResponse, error)
	Link(context.Context, *StageRequest) (*LinkResponse, error)
	Breadcrumbs(context.Context, *BreadcrumbsRequest) (*BreadcrumbsResponse, error)
	Duplicate(context.Context, *DuplicateRequest) (*NodeResponse, error)
}

func fullMethod(name string) string { return "/" + serviceName + "/" + name }

// unary adapts a typed handler to grpc.MethodDesc, running the server's
// interceptor chain the way generated code does.
func unary[Req, Resp any](name string, call func(PageTreeServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(PageTreeServer)
			if interceptor == nil {
				return call(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(s, ctx, req.(*Req))
			})
		},
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*PageTreeServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Ping", PageTreeServer.Ping),
		unary("Save", PageTreeServer.Save),
		unary("Publish", PageTreeServer.Publish),
		unary("Unpublish", PageTreeServer.Unpublish),
		unary("Rollback", PageTreeServer.Rollback),
		unary("RemoveDraft", PageTreeServer.RemoveDraft),
		unary("Diff", PageTreeServer.Diff),
		unary("Get", PageTreeServer.Get),
		unary("Capabilities", PageTreeServer.Capabilities),
		unary("Children", PageTreeServer.Children),
		unary("Move", PageTreeServer.Move),
		unary("SetSortOrder", PageTreeServer.SetSortOrder),
		unary("Delete", PageTreeServer.Delete),
		unary("Link", PageTreeServer.Link),
		unary("Breadcrumbs", PageTreeServer.Breadcrumbs),
		unary("Duplicate", PageTreeServer.Duplicate),
	},
	Metadata: "pagetree.v1",
}

// RegisterPageTreeServer registers srv on r.
func RegisterPageTreeServer(r grpc.ServiceRegistrar, srv PageTreeServer) {
	r.RegisterService(&serviceDesc, srv)
}
