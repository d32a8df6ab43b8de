package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/dmitrijs2005/pagetree/internal/common"
	"github.com/dmitrijs2005/pagetree/internal/dbx"
	"github.com/dmitrijs2005/pagetree/internal/logging"
	"github.com/dmitrijs2005/pagetree/internal/server/content"
	"github.com/dmitrijs2005/pagetree/internal/server/locks"
	"github.com/dmitrijs2005/pagetree/internal/server/models"
	"github.com/dmitrijs2005/pagetree/internal/server/nodetypes"
	"github.com/dmitrijs2005/pagetree/internal/server/repositories/repomanager"
	"golang.org/x/sync/errgroup"
)

// RewriteFailure is one backlink source that could not be rewritten.
type RewriteFailure struct {
	SourceID string
	Err      error
}

// LinkService maintains the reference graph and keeps inbound links
// valid when a node's segment changes.
type LinkService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	extractor   content.Extractor
	locker      locks.Locker
	workers     int
	log         logging.Logger
}

func NewLinkService(db *sql.DB, m repomanager.RepositoryManager, o Options) *LinkService {
	o.defaults()
	return &LinkService{
		db:          db,
		repomanager: m,
		extractor:   o.Extractor,
		locker:      o.Locker,
		workers:     o.RewriteWorkers,
		log:         o.Logger.With("module", "links"),
	}
}

// Extract scans the tracked fields of s. Types without link tracking
// yield no references. broken counts internal links with no target.
func (l *LinkService) Extract(ctx context.Context, tx dbx.DBTX, t nodetypes.Type, s *models.Snapshot) (refs []models.Reference, broken int, err error) {
	lt, ok := t.(nodetypes.LinkTracking)
	if !ok {
		return nil, 0, nil
	}

	repo := l.repomanager.Snapshots(tx)
	resolve := func(ctx context.Context, segment string) (string, error) {
		target, err := repo.FindBySegment(ctx, models.StageDraft, segment)
		if errors.Is(err, common.ErrorNotFound) {
			target, err = repo.FindBySegment(ctx, models.StageLive, segment)
		}
		if err != nil {
			return "", err
		}
		return target.NodeID, nil
	}

	for _, field := range lt.TrackedFields() {
		body, ok := fieldValue(s, field)
		if !ok {
			continue
		}
		ex, err := l.extractor.Extract(ctx, field, body, resolve)
		if err != nil {
			return nil, 0, err
		}
		refs = append(refs, ex.References...)
		broken += ex.Broken
	}
	return refs, broken, nil
}

func fieldValue(s *models.Snapshot, field string) (string, bool) {
	switch field {
	case nodetypes.FieldContent:
		return s.Content, true
	default:
		return "", false
	}
}

// Sync makes the persisted outbound edges of sourceID equal to refs:
// removed edges are deleted, new ones inserted, unchanged ones kept.
func (l *LinkService) Sync(ctx context.Context, tx dbx.DBTX, sourceID string, refs []models.Reference) error {
	repo := l.repomanager.Links(tx)

	existing, err := repo.BySource(ctx, sourceID)
	if err != nil {
		return err
	}
	have := mapset.NewThreadUnsafeSet(existing...)
	want := mapset.NewThreadUnsafeSet[models.LinkEdge]()
	for _, r := range refs {
		want.Add(models.LinkEdge{SourceID: sourceID, TargetID: r.TargetID, Field: r.Field})
	}

	for _, e := range have.Difference(want).ToSlice() {
		if err := repo.Delete(ctx, e); err != nil {
			return err
		}
	}
	for _, e := range want.Difference(have).ToSlice() {
		if err := repo.Insert(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// Backlinks returns the sources that reference targetID.
func (l *LinkService) Backlinks(ctx context.Context, targetID string) ([]models.LinkEdge, error) {
	return l.repomanager.Links(l.db).ByTarget(ctx, targetID)
}

// RewriteOnRename replaces "oldSegment/" with "newSegment/" in the Draft
// content of every node linking to targetID. Only occurrences that start
// a path component are touched, so "old/" inside "bold/" is left alone.
// Sources are rewritten concurrently, each in its own transaction under
// its own node lock. A failing source is reported and does not stop the
// others. The error is returned only when the sources cannot be listed.
func (l *LinkService) RewriteOnRename(ctx context.Context, targetID, oldSegment, newSegment string) ([]RewriteFailure, error) {
	if oldSegment == "" || oldSegment == newSegment {
		return nil, nil
	}

	edges, err := l.Backlinks(ctx, targetID)
	if err != nil {
		return nil, err
	}
	sources := mapset.NewThreadUnsafeSet[string]()
	for _, e := range edges {
		sources.Add(e.SourceID)
	}

	rewrite := func(content string) string {
		return replaceSegment(content, oldSegment, newSegment)
	}

	var (
		mu       sync.Mutex
		failures []RewriteFailure
		g        errgroup.Group
	)
	g.SetLimit(l.workers)

	for _, id := range sources.ToSlice() {
		g.Go(func() error {
			if err := l.rewriteSource(ctx, id, rewrite); err != nil {
				l.log.Warn(ctx, "backlink rewrite failed", "source", id, "target", targetID, "error", err)
				mu.Lock()
				failures = append(failures, RewriteFailure{SourceID: id, Err: err})
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	l.log.Info(ctx, "backlinks rewritten", "target", targetID, "from", oldSegment, "to", newSegment,
		"sources", sources.Cardinality(), "failed", len(failures))
	return failures, nil
}

// rewriteSource updates one source Draft. It writes content only and never
// touches the segment, so the segment lock is not needed.
func (l *LinkService) rewriteSource(ctx context.Context, id string, rewrite func(string) string) error {
	unlock, err := l.locker.Lock(ctx, locks.NodeKey(id))
	if err != nil {
		return err
	}
	defer unlock()

	return dbx.WithTx(ctx, l.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		snaps := l.repomanager.Snapshots(tx)

		draft, err := snaps.Get(ctx, id, models.StageDraft)
		if errors.Is(err, common.ErrorNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		updated := rewrite(draft.Content)
		if updated == draft.Content {
			return nil
		}

		version, err := l.repomanager.Nodes(tx).IncrementVersion(ctx, id)
		if err != nil {
			return err
		}
		draft.Content = updated
		draft.Version = version
		if draft.Status == models.StatusPublished {
			draft.Status = models.StatusSaved
		}
		return snaps.Upsert(ctx, draft)
	})
}

// replaceSegment replaces every "from/" that starts a path component
// with "to/". The boundary is checked against the original text, so
// adjacent components like "/from/from/" are both replaced.
func replaceSegment(content, from, to string) string {
	needle := from + "/"
	var b strings.Builder
	last := 0
	for i := 0; i+len(needle) <= len(content); {
		j := strings.Index(content[i:], needle)
		if j < 0 {
			break
		}
		at := i + j
		if at == 0 || !segmentByte(content[at-1]) {
			b.WriteString(content[last:at])
			b.WriteString(to)
			b.WriteByte('/')
			last = at + len(needle)
			i = last
			continue
		}
		i = at + 1
	}
	if last == 0 {
		return content
	}
	b.WriteString(content[last:])
	return b.String()
}

func segmentByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '-'
}
