package grpc

import (
	"context"

	"github.com/dmitrijs2005/pagetree/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// Client calls a PageTree server over an existing connection.
type Client struct {
	cc    grpc.ClientConnInterface
	token string
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// WithToken returns a copy that sends token as the access token.
func (c *Client) WithToken(token string) *Client {
	return &Client{cc: c.cc, token: token}
}

func invoke[Resp any](ctx context.Context, c *Client, method string, req any) (*Resp, error) {
	if c.token != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, common.AccessTokenHeaderName, c.token)
	}
	out := new(Resp)
	if err := c.cc.Invoke(ctx, fullMethod(method), req, out, grpc.CallContentSubtype(codecName)); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Ping(ctx context.Context) (*PingResponse, error) {
	return invoke[PingResponse](ctx, c, "Ping", &Empty{})
}

func (c *Client) Save(ctx context.Context, req *SaveRequest) (*PageResponse, error) {
	return invoke[PageResponse](ctx, c, "Save", req)
}

func (c *Client) Publish(ctx context.Context, id string) (*PageResponse, error) {
	return invoke[PageResponse](ctx, c, "Publish", &NodeRequest{ID: id})
}

func (c *Client) Unpublish(ctx context.Context, id string) error {
	_, err := invoke[Empty](ctx, c, "Unpublish", &NodeRequest{ID: id})
	return err
}

func (c *Client) Rollback(ctx context.Context, id string) (*PageResponse, error) {
	return invoke[PageResponse](ctx, c, "Rollback", &NodeRequest{ID: id})
}

func (c *Client) RemoveDraft(ctx context.Context, id string) error {
	_, err := invoke[Empty](ctx, c, "RemoveDraft", &NodeRequest{ID: id})
	return err
}

func (c *Client) Diff(ctx context.Context, id string) (*DiffResponse, error) {
	return invoke[DiffResponse](ctx, c, "Diff", &NodeRequest{ID: id})
}

func (c *Client) Get(ctx context.Context, id, stage string) (*PageResponse, error) {
	return invoke[PageResponse](ctx, c, "Get", &StageRequest{ID: id, Stage: stage})
}

func (c *Client) Capabilities(ctx context.Context, id string) (*CapabilitiesResponse, error) {
	return invoke[CapabilitiesResponse](ctx, c, "Capabilities", &NodeRequest{ID: id})
}

func (c *Client) Children(ctx context.Context, parentID string) (*NodesResponse, error) {
	return invoke[NodesResponse](ctx, c, "Children", &ChildrenRequest{ParentID: parentID})
}

func (c *Client) Move(ctx context.Context, id, parentID string) error {
	_, err := invoke[Empty](ctx, c, "Move", &MoveRequest{ID: id, ParentID: parentID})
	return err
}

func (c *Client) SetSortOrder(ctx context.Context, parentID string, ids []string) error {
	_, err := invoke[Empty](ctx, c, "SetSortOrder", &SortRequest{ParentID: parentID, IDs: ids})
	return err
}

func (c *Client) Delete(ctx context.Context, id string) (*DeleteResponse, error) {
	return invoke[DeleteResponse](ctx, c, "Delete", &NodeRequest{ID: id})
}

func (c *Client) Link(ctx context.Context, id, stage string) (*LinkResponse, error) {
	return invoke[LinkResponse](ctx, c, "Link", &StageRequest{ID: id, Stage: stage})
}

func (c *Client) Breadcrumbs(ctx context.Context, req *BreadcrumbsRequest) (*BreadcrumbsResponse, error) {
	return invoke[BreadcrumbsResponse](ctx, c, "Breadcrumbs", req)
}

func (c *Client) Duplicate(ctx context.Context, req *DuplicateRequest) (*NodeResponse, error) {
	return invoke[NodeResponse](ctx, c, "Duplicate", req)
}
