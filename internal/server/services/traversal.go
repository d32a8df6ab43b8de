package services

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/dmitrijs2005/pagetree/internal/common"
	"github.com/dmitrijs2005/pagetree/internal/logging"
	"github.com/dmitrijs2005/pagetree/internal/server/models"
	"github.com/dmitrijs2005/pagetree/internal/server/repositories/repomanager"
)

// TraversalService answers read-side questions about a node's position:
// its path, its breadcrumbs and whether it is in the current section. It
// also duplicates subtrees.
type TraversalService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	versions    *VersionService
	log         logging.Logger
}

func NewTraversalService(db *sql.DB, m repomanager.RepositoryManager, versions *VersionService, o Options) *TraversalService {
	o.defaults()
	return &TraversalService{
		db:          db,
		repomanager: m,
		versions:    versions,
		log:         o.Logger.With("module", "traversal"),
	}
}

// Ancestors returns the node and its ancestors in stage, nearest first.
// Every node on the way must exist in stage.
func (t *TraversalService) Ancestors(ctx context.Context, stage models.Stage, id string) ([]*models.Page, error) {
	nodesRepo := t.repomanager.Nodes(t.db)
	snaps := t.repomanager.Snapshots(t.db)

	var out []*models.Page
	cur := id
	for depth := 0; depth < maxDepth; depth++ {
		n, err := nodesRepo.Get(ctx, cur)
		if err != nil {
			return nil, err
		}
		s, err := snaps.Get(ctx, cur, stage)
		if err != nil {
			return nil, fmt.Errorf("%s in %s: %w", cur, stage, err)
		}
		out = append(out, &models.Page{Node: *n, Snapshot: *s})
		if n.IsRoot() {
			return out, nil
		}
		cur = n.ParentID
	}
	return nil, fmt.Errorf("ancestors of %s: %w", id, common.ErrCycleDetected)
}

// Link returns the site-relative path of id in stage, e.g. "/about/team/".
func (t *TraversalService) Link(ctx context.Context, stage models.Stage, id string) (string, error) {
	pages, err := t.Ancestors(ctx, stage, id)
	if err != nil {
		return "", err
	}
	return pathOf(pages), nil
}

// pathOf builds the path of pages[0] from a nearest-first ancestor chain.
func pathOf(pages []*models.Page) string {
	var b strings.Builder
	b.WriteByte('/')
	for i := len(pages) - 1; i >= 0; i-- {
		b.WriteString(pages[i].Snapshot.Segment)
		b.WriteByte('/')
	}
	return b.String()
}

type BreadcrumbOptions struct {
	// MaxDepth caps the number of crumbs; zero means no limit.
	MaxDepth int
	// StopAtType ends the walk at the first ancestor of this type, which
	// is not included.
	StopAtType string
	// ShowHidden includes ancestors that are hidden from menus.
	ShowHidden bool
	// Links fills Crumb.Link.
	Links bool
}

type Crumb struct {
	ID    string
	Title string
	Link  string
}

// Breadcrumbs returns the trail from the top down to id. The start node
// is always included; ancestors only when shown in menus.
func (t *TraversalService) Breadcrumbs(ctx context.Context, stage models.Stage, id string, opts BreadcrumbOptions) ([]Crumb, error) {
	pages, err := t.Ancestors(ctx, stage, id)
	if err != nil {
		return nil, err
	}

	var crumbs []Crumb
	for i, p := range pages {
		if opts.MaxDepth > 0 && len(crumbs) >= opts.MaxDepth {
			break
		}
		if opts.StopAtType != "" && p.Node.Type == opts.StopAtType {
			break
		}
		if i > 0 && !p.Snapshot.ShowInMenu && !opts.ShowHidden {
			continue
		}
		c := Crumb{ID: p.Node.ID, Title: p.MenuLabel()}
		if opts.Links {
			c.Link = pathOf(pages[i:])
		}
		crumbs = append(crumbs, c)
	}
	slices.Reverse(crumbs)
	return crumbs, nil
}

// RequestContext tells a Request which node is being served.
type RequestContext interface {
	CurrentNodeID() string
}

// Request caches the current page and its section for one request. It is
// computed on first use and never shared between requests.
type Request struct {
	t      *TraversalService
	stage  models.Stage
	source RequestContext

	once    sync.Once
	current *models.Page
	section mapset.Set[string]
	err     error
}

func (t *TraversalService) NewRequest(stage models.Stage, source RequestContext) *Request {
	return &Request{t: t, stage: stage, source: source}
}

func (r *Request) load(ctx context.Context) {
	r.once.Do(func() {
		r.section = mapset.NewThreadUnsafeSet[string]()
		id := r.source.CurrentNodeID()
		if id == "" {
			return
		}
		pages, err := r.t.Ancestors(ctx, r.stage, id)
		if err != nil {
			r.err = err
			return
		}
		r.current = pages[0]
		for _, p := range pages {
			r.section.Add(p.Node.ID)
		}
	})
}

// Current returns the page being served, nil when there is none.
func (r *Request) Current(ctx context.Context) (*models.Page, error) {
	r.load(ctx)
	return r.current, r.err
}

// IsCurrent reports whether id is the page being served.
func (r *Request) IsCurrent(ctx context.Context, id string) bool {
	r.load(ctx)
	return r.current != nil && r.current.Node.ID == id
}

// IsSection reports whether the page being served is id or lies below it.
func (r *Request) IsSection(ctx context.Context, id string) bool {
	r.load(ctx)
	return r.section.Contains(id)
}

// Linking modes for menus.
const (
	ModeCurrent = "current"
	ModeSection = "section"
	ModeLink    = "link"
)

// LinkingMode classifies id relative to the page being served.
func (r *Request) LinkingMode(ctx context.Context, id string) string {
	switch {
	case r.IsCurrent(ctx, id):
		return ModeCurrent
	case r.IsSection(ctx, id):
		return ModeSection
	default:
		return ModeLink
	}
}

type DuplicateOptions struct {
	IncludeChildren bool
	// TargetParentID places the copy elsewhere; nil keeps the original
	// parent and an empty string means the root level.
	TargetParentID *string
}

// Duplicate copies a node's Draft into a new node, and with
// IncludeChildren its whole subtree, each copy under the copy of its
// parent. Copies get fresh segments and exist in Draft only.
func (t *TraversalService) Duplicate(ctx context.Context, caller models.Caller, id string, opts DuplicateOptions) (*models.Node, error) {
	nodesRepo := t.repomanager.Nodes(t.db)

	src, err := nodesRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	parentID := src.ParentID
	if opts.TargetParentID != nil {
		parentID = *opts.TargetParentID
	}
	if opts.IncludeChildren && parentID != common.RootParentID {
		within, err := isWithin(ctx, nodesRepo, parentID, id)
		if err != nil {
			return nil, err
		}
		if within {
			return nil, fmt.Errorf("duplicate %s into itself: %w", id, common.ErrCycleDetected)
		}
	}

	copied, n, err := t.duplicate(ctx, caller, src, parentID, opts.IncludeChildren)
	if err != nil {
		return nil, err
	}
	t.log.Info(ctx, "node duplicated", "source", id, "copy", copied.ID, "nodes", n)
	return copied, nil
}

func (t *TraversalService) duplicate(ctx context.Context, caller models.Caller, src *models.Node, parentID string, deep bool) (*models.Node, int, error) {
	snap, err := currentSnapshot(ctx, t.repomanager.Snapshots(t.db), src.ID)
	if err != nil {
		return nil, 0, err
	}

	res, err := t.versions.Save(ctx, caller, SaveInput{
		ParentID:     parentID,
		Type:         src.Type,
		Segment:      snap.Segment,
		Title:        snap.Title,
		MenuTitle:    snap.MenuTitle,
		Content:      snap.Content,
		ShowInMenu:   snap.ShowInMenu,
		ShowInSearch: snap.ShowInSearch,
		ViewPolicy:   snap.ViewPolicy,
		ViewerGroup:  snap.ViewerGroup,
		EditPolicy:   snap.EditPolicy,
		EditorGroup:  snap.EditorGroup,
	})
	if err != nil {
		return nil, 0, err
	}
	copied := &res.Page.Node
	count := 1
	if !deep {
		return copied, count, nil
	}

	children, err := t.repomanager.Nodes(t.db).Children(ctx, src.ID)
	if err != nil {
		return nil, 0, err
	}
	for _, c := range children {
		_, n, err := t.duplicate(ctx, caller, c, copied.ID, true)
		if err != nil {
			return nil, 0, err
		}
		count += n
	}
	return copied, count, nil
}
