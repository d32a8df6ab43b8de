package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/pagetree/internal/client/config"
	gs "github.com/dmitrijs2005/pagetree/internal/server/grpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// pageAPI is the part of the gRPC client the console uses.
type pageAPI interface {
	Ping(ctx context.Context) (*gs.PingResponse, error)
	Save(ctx context.Context, req *gs.SaveRequest) (*gs.PageResponse, error)
	Publish(ctx context.Context, id string) (*gs.PageResponse, error)
	Unpublish(ctx context.Context, id string) error
	Rollback(ctx context.Context, id string) (*gs.PageResponse, error)
	RemoveDraft(ctx context.Context, id string) error
	Diff(ctx context.Context, id string) (*gs.DiffResponse, error)
	Get(ctx context.Context, id, stage string) (*gs.PageResponse, error)
	Children(ctx context.Context, parentID string) (*gs.NodesResponse, error)
	Move(ctx context.Context, id, parentID string) error
	Delete(ctx context.Context, id string) (*gs.DeleteResponse, error)
	Link(ctx context.Context, id, stage string) (*gs.LinkResponse, error)
	Breadcrumbs(ctx context.Context, req *gs.BreadcrumbsRequest) (*gs.BreadcrumbsResponse, error)
	Duplicate(ctx context.Context, req *gs.DuplicateRequest) (*gs.NodeResponse, error)
}

type App struct {
	config *config.Config
	conn   *grpc.ClientConn
	base   *gs.Client
	api    pageAPI
	token  string
	reader *bufio.Reader
	out    io.Writer
}

func NewApp(c *config.Config) (*App, error) {
	conn, err := grpc.NewClient(c.ServerEndpointAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	base := gs.NewClient(conn)
	return &App{
		config: c,
		conn:   conn,
		base:   base,
		api:    base,
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}, nil
}

func (a *App) Run(ctx context.Context) {
	defer a.conn.Close()

	fmt.Fprintln(a.out, "pagetree console (type 'help' for commands)")
	runREPL(ctx, a, a.status, a.reader)
}

func (a *App) status() string {
	if a.token == "" {
		return "anonymous"
	}
	return "signed in"
}

func (a *App) isLoggedIn() bool {
	return a.token != ""
}

// call bounds ctx by the configured request timeout.
func (a *App) call(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.config == nil || a.config.RequestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.config.RequestTimeout)
}
