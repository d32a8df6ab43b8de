// Package services implements the write and read paths of the content
// tree on top of the repositories: segment resolution, tree structure,
// Draft/Live versioning, link tracking and traversal.
//
// Every write runs inside dbx.WithTx while holding the relevant
// locks.Locker keys; the unique (stage, segment) index backs both up.
package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/dmitrijs2005/pagetree/internal/common"
	"github.com/dmitrijs2005/pagetree/internal/logging"
	"github.com/dmitrijs2005/pagetree/internal/server/access"
	"github.com/dmitrijs2005/pagetree/internal/server/content"
	"github.com/dmitrijs2005/pagetree/internal/server/locks"
	"github.com/dmitrijs2005/pagetree/internal/server/mirror"
	"github.com/dmitrijs2005/pagetree/internal/server/models"
	"github.com/dmitrijs2005/pagetree/internal/server/nodetypes"
	"github.com/dmitrijs2005/pagetree/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/pagetree/internal/server/repositories/snapshots"
)

// maxDepth bounds every walk up the tree.
const maxDepth = 10000

// DefaultRewriteWorkers is used when Options.RewriteWorkers is not set.
const DefaultRewriteWorkers = 4

// Options carries the collaborators of the services. Nil fields get
// defaults: built-in node types, a production evaluator, the bluemonday
// sanitizer, the link extractor, an in-process locker, no mirror and no
// logging.
type Options struct {
	Types          *nodetypes.Registry
	Access         *access.Evaluator
	Sanitizer      content.Sanitizer
	Extractor      content.Extractor
	Locker         locks.Locker
	Mirror         mirror.Mirror
	Logger         logging.Logger
	RewriteWorkers int
}

func (o *Options) defaults() {
	if o.Types == nil {
		o.Types = nodetypes.DefaultRegistry()
	}
	if o.Access == nil {
		o.Access = access.NewEvaluator(false)
	}
	if o.Sanitizer == nil {
		o.Sanitizer = content.NewSanitizer()
	}
	if o.Extractor == nil {
		o.Extractor = content.NewLinkExtractor()
	}
	if o.Locker == nil {
		o.Locker = locks.NewLocal()
	}
	if o.Mirror == nil {
		o.Mirror = mirror.Nop{}
	}
	if o.Logger == nil {
		o.Logger = logging.Nop{}
	}
	if o.RewriteWorkers <= 0 {
		o.RewriteWorkers = DefaultRewriteWorkers
	}
}

// Services bundles the wired services.
type Services struct {
	Segments  *SegmentResolver
	Links     *LinkService
	Versions  *VersionService
	Tree      *TreeService
	Traversal *TraversalService
	Access    *access.Evaluator
	Types     *nodetypes.Registry
}

func New(db *sql.DB, m repomanager.RepositoryManager, o Options) *Services {
	o.defaults()

	segments := NewSegmentResolver(m)
	links := NewLinkService(db, m, o)
	versions := NewVersionService(db, m, segments, links, o)
	tree := NewTreeService(db, m, o)

	return &Services{
		Segments:  segments,
		Links:     links,
		Versions:  versions,
		Tree:      tree,
		Traversal: NewTraversalService(db, m, versions, o),
		Access:    o.Access,
		Types:     o.Types,
	}
}

// currentSnapshot returns the Draft, or the Live row of a node whose
// Draft was removed.
func currentSnapshot(ctx context.Context, repo snapshots.Repository, id string) (*models.Snapshot, error) {
	s, err := repo.Get(ctx, id, models.StageDraft)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, err
	}
	return repo.Get(ctx, id, models.StageLive)
}

// mirrorLive pushes the committed Live state of a node, logging failures.
func mirrorLive(ctx context.Context, m mirror.Mirror, log logging.Logger, page *models.Page) {
	if err := m.Put(ctx, page); err != nil {
		log.Warn(ctx, "mirror put failed", "node", page.Node.ID, "error", err)
	}
}

func mirrorRemove(ctx context.Context, m mirror.Mirror, log logging.Logger, ids ...string) {
	for _, id := range ids {
		if err := m.Delete(ctx, id); err != nil {
			log.Warn(ctx, "mirror delete failed", "node", id, "error", err)
		}
	}
}
