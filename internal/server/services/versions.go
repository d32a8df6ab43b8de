package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/pagetree/internal/common"
	"github.com/dmitrijs2005/pagetree/internal/dbx"
	"github.com/dmitrijs2005/pagetree/internal/logging"
	"github.com/dmitrijs2005/pagetree/internal/server/access"
	"github.com/dmitrijs2005/pagetree/internal/server/content"
	"github.com/dmitrijs2005/pagetree/internal/server/locks"
	"github.com/dmitrijs2005/pagetree/internal/server/mirror"
	"github.com/dmitrijs2005/pagetree/internal/server/models"
	"github.com/dmitrijs2005/pagetree/internal/server/nodetypes"
	"github.com/dmitrijs2005/pagetree/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/pagetree/internal/slug"
	"github.com/google/uuid"
)

// SaveInput is a Draft write. An empty ID creates a node; ParentID and
// Type are only read then. An empty Segment keeps the current one, or is
// derived from Title for new nodes.
type SaveInput struct {
	ID       string
	ParentID string
	Type     string
	Segment  string

	Title     string
	MenuTitle string
	Content   string

	ShowInMenu   bool
	ShowInSearch bool

	ViewPolicy  models.ViewPolicy
	ViewerGroup string
	EditPolicy  models.EditPolicy
	EditorGroup string
}

// SaveResult describes a committed Draft write.
type SaveResult struct {
	Page    *models.Page
	Created bool
	// PreviousSegment is the segment before the write, empty for new nodes.
	PreviousSegment string
	// RewriteFailures lists backlink sources left pointing at the old path.
	RewriteFailures []RewriteFailure
}

// Renamed reports whether the write changed the node's segment.
func (r *SaveResult) Renamed() bool {
	return r.PreviousSegment != "" && r.PreviousSegment != r.Page.Snapshot.Segment
}

// DiffStatus classifies a node by comparing its two stages.
type DiffStatus string

const (
	DiffAdded     DiffStatus = "Added"
	DiffDeleted   DiffStatus = "Deleted"
	DiffModified  DiffStatus = "Modified"
	DiffUnchanged DiffStatus = "Unchanged"
)

type Diff struct {
	Status DiffStatus
	// Fields lists differing user-visible fields when both stages exist.
	Fields       []string
	DraftVersion int64
	LiveVersion  int64
}

// VersionService owns the Draft and Live stages of nodes.
type VersionService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	segments    *SegmentResolver
	links       *LinkService
	types       *nodetypes.Registry
	access      *access.Evaluator
	sanitizer   content.Sanitizer
	locker      locks.Locker
	mirror      mirror.Mirror
	log         logging.Logger
}

func NewVersionService(db *sql.DB, m repomanager.RepositoryManager, segments *SegmentResolver, links *LinkService, o Options) *VersionService {
	o.defaults()
	return &VersionService{
		db:          db,
		repomanager: m,
		segments:    segments,
		links:       links,
		types:       o.Types,
		access:      o.Access,
		sanitizer:   o.Sanitizer,
		locker:      o.Locker,
		mirror:      o.Mirror,
		log:         o.Logger.With("module", "versions"),
	}
}

func validateInput(in *SaveInput) error {
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("title is required: %w", common.ErrValidation)
	}
	switch in.ViewPolicy {
	case "":
		in.ViewPolicy = models.ViewAnyone
	case models.ViewAnyone, models.ViewLoggedInUsers, models.ViewOnlyTheseUsers:
	default:
		return fmt.Errorf("view policy %q: %w", in.ViewPolicy, common.ErrValidation)
	}
	switch in.EditPolicy {
	case "":
		in.EditPolicy = models.EditLoggedInUsers
	case models.EditLoggedInUsers, models.EditOnlyTheseUsers:
	default:
		return fmt.Errorf("edit policy %q: %w", in.EditPolicy, common.ErrValidation)
	}
	return nil
}

// Save writes the Draft of a node, creating the node when in.ID is empty.
// When the segment changes, inbound links are rewritten after the commit.
func (s *VersionService) Save(ctx context.Context, caller models.Caller, in SaveInput) (*SaveResult, error) {
	if err := validateInput(&in); err != nil {
		return nil, err
	}

	// Lock order is tree, node, segments everywhere. Creates take the
	// tree lock because they read the parent and the next sibling sort.
	var keys []string
	if in.ID == "" {
		keys = append(keys, locks.KeyTree)
	} else {
		keys = append(keys, locks.NodeKey(in.ID))
	}
	keys = append(keys, locks.KeySegments)

	res, err := func() (*SaveResult, error) {
		release, err := locks.LockAll(ctx, s.locker, keys...)
		if err != nil {
			return nil, err
		}
		defer release()

		return dbx.WithTxValue(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) (*SaveResult, error) {
			return s.save(ctx, tx, caller, in)
		})
	}()
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "draft saved", "node", res.Page.Node.ID, "version", res.Page.Snapshot.Version, "created", res.Created)
	s.afterRename(ctx, res)
	return res, nil
}

func (s *VersionService) save(ctx context.Context, tx dbx.DBTX, caller models.Caller, in SaveInput) (*SaveResult, error) {
	nodesRepo := s.repomanager.Nodes(tx)
	snaps := s.repomanager.Snapshots(tx)

	var (
		node    *models.Node
		prev    *models.Snapshot
		created bool
		err     error
	)

	if in.ID == "" {
		typeName := in.Type
		if typeName == "" {
			typeName = nodetypes.TypePage
		}
		t, err := s.types.Get(typeName)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", common.ErrValidation, err)
		}
		if !s.access.CanCreate(t, caller) {
			return nil, fmt.Errorf("create %s: %w", typeName, common.ErrNotEditable)
		}
		if err := s.checkPlacement(ctx, tx, caller, t, in.ParentID); err != nil {
			return nil, err
		}
		node = &models.Node{ID: uuid.NewString(), ParentID: in.ParentID, Type: t.Name()}
		if err := nodesRepo.Create(ctx, node); err != nil {
			return nil, err
		}
		created = true
	} else {
		node, err = nodesRepo.Get(ctx, in.ID)
		if err != nil {
			return nil, err
		}
		prev, err = currentSnapshot(ctx, snaps, node.ID)
		if err != nil && !errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		// A node left with no snapshot is judged on the default policies.
		policy := prev
		if policy == nil {
			policy = &models.Snapshot{NodeID: node.ID}
		}
		if !s.access.CanEdit(policy, caller) {
			return nil, fmt.Errorf("edit %s: %w", node.ID, common.ErrNotEditable)
		}
	}

	t, err := s.types.Get(node.Type)
	if err != nil {
		return nil, err
	}

	candidate := slug.Normalize(in.Segment)
	if in.Segment == "" && prev != nil {
		candidate = prev.Segment
	}
	if candidate == "" {
		candidate = slug.Normalize(in.Title)
	}
	if candidate == "" {
		candidate = slug.Fallback(node.ID)
	}
	segment, err := s.segments.Resolve(ctx, tx, candidate, node.ID)
	if err != nil {
		return nil, err
	}

	status := models.StatusNew
	if _, err := snaps.Get(ctx, node.ID, models.StageLive); err == nil {
		status = models.StatusSaved
	} else if !errors.Is(err, common.ErrorNotFound) {
		return nil, err
	}

	version, err := nodesRepo.IncrementVersion(ctx, node.ID)
	if err != nil {
		return nil, err
	}
	node.Version = version

	draft := &models.Snapshot{
		NodeID:       node.ID,
		Stage:        models.StageDraft,
		Version:      version,
		Segment:      segment,
		Title:        strings.TrimSpace(in.Title),
		MenuTitle:    strings.TrimSpace(in.MenuTitle),
		Content:      s.sanitizer.Sanitize(in.Content),
		ShowInMenu:   in.ShowInMenu,
		ShowInSearch: in.ShowInSearch,
		ViewPolicy:   in.ViewPolicy,
		ViewerGroup:  in.ViewerGroup,
		EditPolicy:   in.EditPolicy,
		EditorGroup:  in.EditorGroup,
		Status:       status,
	}
	if prev != nil {
		draft.HasBrokenFile = prev.HasBrokenFile
	}

	refs, broken, err := s.links.Extract(ctx, tx, t, draft)
	if err != nil {
		return nil, err
	}
	draft.HasBrokenLink = broken > 0

	if err := snaps.Upsert(ctx, draft); err != nil {
		return nil, err
	}
	if err := s.links.Sync(ctx, tx, node.ID, refs); err != nil {
		return nil, err
	}

	res := &SaveResult{Page: &models.Page{Node: *node, Snapshot: *draft}, Created: created}
	if prev != nil {
		res.PreviousSegment = prev.Segment
	}
	return res, nil
}

// checkPlacement verifies that a node of type t may be created under
// parentID by caller.
func (s *VersionService) checkPlacement(ctx context.Context, tx dbx.DBTX, caller models.Caller, t nodetypes.Type, parentID string) error {
	if parentID == common.RootParentID {
		if !t.CanBeRoot() {
			return fmt.Errorf("type %s cannot be a root: %w", t.Name(), common.ErrValidation)
		}
		return nil
	}
	return checkParent(ctx, s.repomanager, s.types, s.access, tx, caller, t, parentID)
}

func (s *VersionService) afterRename(ctx context.Context, res *SaveResult) {
	if !res.Renamed() {
		return
	}
	failures, err := s.links.RewriteOnRename(ctx, res.Page.Node.ID, res.PreviousSegment, res.Page.Snapshot.Segment)
	if err != nil {
		s.log.Error(ctx, "backlink lookup failed", "node", res.Page.Node.ID, "error", err)
		failures = append(failures, RewriteFailure{Err: err})
	}
	res.RewriteFailures = failures
}

// Publish copies the Draft into Live under a new version and marks both
// rows Published. The Live row remembers which Draft version it holds.
func (s *VersionService) Publish(ctx context.Context, caller models.Caller, id string) (*models.Page, error) {
	page, err := s.withNodeTx(ctx, id, func(ctx context.Context, tx dbx.DBTX) (*models.Page, error) {
		node, err := s.repomanager.Nodes(tx).Get(ctx, id)
		if err != nil {
			return nil, err
		}
		snaps := s.repomanager.Snapshots(tx)

		draft, err := snaps.Get(ctx, id, models.StageDraft)
		if err != nil {
			return nil, err
		}
		if !s.access.CanPublish(draft, caller) {
			return nil, fmt.Errorf("publish %s: %w", id, common.ErrNotEditable)
		}

		version, err := s.repomanager.Nodes(tx).IncrementVersion(ctx, id)
		if err != nil {
			return nil, err
		}
		node.Version = version

		live := *draft
		live.Stage = models.StageLive
		live.Version = version
		live.SourceVersion = draft.Version
		live.Status = models.StatusPublished
		draft.Status = models.StatusPublished

		if err := snaps.Upsert(ctx, draft); err != nil {
			return nil, err
		}
		if err := snaps.Upsert(ctx, &live); err != nil {
			return nil, err
		}
		return &models.Page{Node: *node, Snapshot: live}, nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "node published", "node", id, "version", page.Snapshot.Version, "draft_version", page.Snapshot.SourceVersion)
	mirrorLive(ctx, s.mirror, s.log, page)
	return page, nil
}

// Unpublish removes the Live row. It succeeds when there is none. A node
// left with no stage and no children is removed altogether.
func (s *VersionService) Unpublish(ctx context.Context, caller models.Caller, id string) error {
	removed, err := s.withNodeTx(ctx, id, func(ctx context.Context, tx dbx.DBTX) (*models.Page, error) {
		snaps := s.repomanager.Snapshots(tx)

		if _, err := s.repomanager.Nodes(tx).Get(ctx, id); err != nil {
			return nil, err
		}
		cur, err := currentSnapshot(ctx, snaps, id)
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if !s.access.CanPublish(cur, caller) {
			return nil, fmt.Errorf("unpublish %s: %w", id, common.ErrNotEditable)
		}

		ok, err := snaps.Delete(ctx, id, models.StageLive)
		if err != nil || !ok {
			return nil, err
		}

		draft, err := snaps.Get(ctx, id, models.StageDraft)
		switch {
		case err == nil:
			draft.Status = models.StatusNew
			if err := snaps.Upsert(ctx, draft); err != nil {
				return nil, err
			}
		case errors.Is(err, common.ErrorNotFound):
			n, err := s.repomanager.Nodes(tx).ChildCount(ctx, id)
			if err != nil {
				return nil, err
			}
			if n == 0 {
				if err := purgeNodes(ctx, s.repomanager, tx, []string{id}); err != nil {
					return nil, err
				}
			}
		default:
			return nil, err
		}
		return &models.Page{Node: models.Node{ID: id}}, nil
	})
	if err != nil {
		return err
	}
	if removed != nil {
		s.log.Info(ctx, "node unpublished", "node", id)
		mirrorRemove(ctx, s.mirror, s.log, id)
	}
	return nil
}

// Rollback overwrites the Draft with the Live content under a new version
// and points Live at it, so the node reads as unchanged afterwards.
func (s *VersionService) Rollback(ctx context.Context, caller models.Caller, id string) (*SaveResult, error) {
	var prevSegment string

	page, err := s.withNodeTx(ctx, id, func(ctx context.Context, tx dbx.DBTX) (*models.Page, error) {
		nodesRepo := s.repomanager.Nodes(tx)
		snaps := s.repomanager.Snapshots(tx)

		node, err := nodesRepo.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		live, err := snaps.Get(ctx, id, models.StageLive)
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("rollback %s: %w", id, common.ErrNoLiveVersion)
		}
		if err != nil {
			return nil, err
		}

		cur := live
		draft, err := snaps.Get(ctx, id, models.StageDraft)
		switch {
		case err == nil:
			cur = draft
			prevSegment = draft.Segment
		case !errors.Is(err, common.ErrorNotFound):
			return nil, err
		}
		if !s.access.CanEdit(cur, caller) {
			return nil, fmt.Errorf("rollback %s: %w", id, common.ErrNotEditable)
		}

		t, err := s.types.Get(node.Type)
		if err != nil {
			return nil, err
		}

		version, err := nodesRepo.IncrementVersion(ctx, id)
		if err != nil {
			return nil, err
		}
		node.Version = version

		restored := *live
		restored.Stage = models.StageDraft
		restored.Version = version
		restored.SourceVersion = 0
		restored.Status = models.StatusPublished

		refs, broken, err := s.links.Extract(ctx, tx, t, &restored)
		if err != nil {
			return nil, err
		}
		restored.HasBrokenLink = broken > 0

		live.SourceVersion = version
		if err := snaps.Upsert(ctx, &restored); err != nil {
			return nil, err
		}
		if err := snaps.Upsert(ctx, live); err != nil {
			return nil, err
		}
		if err := s.links.Sync(ctx, tx, id, refs); err != nil {
			return nil, err
		}
		return &models.Page{Node: *node, Snapshot: restored}, nil
	})
	if err != nil {
		return nil, err
	}

	res := &SaveResult{Page: page, PreviousSegment: prevSegment}
	s.log.Info(ctx, "draft rolled back", "node", id, "version", page.Snapshot.Version)
	s.afterRename(ctx, res)
	return res, nil
}

// RemoveDraft deletes the Draft of a published node, leaving it Live
// only. Its outbound links go with the Draft.
func (s *VersionService) RemoveDraft(ctx context.Context, caller models.Caller, id string) error {
	_, err := s.withNodeTx(ctx, id, func(ctx context.Context, tx dbx.DBTX) (*models.Page, error) {
		snaps := s.repomanager.Snapshots(tx)

		_, err := snaps.Get(ctx, id, models.StageLive)
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("remove draft %s: %w", id, common.ErrNoLiveVersion)
		}
		if err != nil {
			return nil, err
		}

		draft, err := snaps.Get(ctx, id, models.StageDraft)
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if !s.access.CanEdit(draft, caller) {
			return nil, fmt.Errorf("remove draft %s: %w", id, common.ErrNotEditable)
		}

		if _, err := snaps.Delete(ctx, id, models.StageDraft); err != nil {
			return nil, err
		}
		return nil, s.links.Sync(ctx, tx, id, nil)
	})
	return err
}

// Diff compares the two stages of a node.
func (s *VersionService) Diff(ctx context.Context, id string) (*Diff, error) {
	snaps := s.repomanager.Snapshots(s.db)

	draft, err := snaps.Get(ctx, id, models.StageDraft)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return nil, err
	}
	live, err := snaps.Get(ctx, id, models.StageLive)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return nil, err
	}

	switch {
	case draft == nil && live == nil:
		return nil, common.ErrorNotFound
	case live == nil:
		return &Diff{Status: DiffAdded, DraftVersion: draft.Version}, nil
	case draft == nil:
		return &Diff{Status: DiffDeleted, LiveVersion: live.Version}, nil
	}

	d := &Diff{
		Status:       DiffUnchanged,
		Fields:       draft.DiffFields(live),
		DraftVersion: draft.Version,
		LiveVersion:  live.Version,
	}
	if draft.Version != live.SourceVersion {
		d.Status = DiffModified
	}
	return d, nil
}

// Get returns the node joined with its snapshot in stage.
func (s *VersionService) Get(ctx context.Context, id string, stage models.Stage) (*models.Page, error) {
	if !stage.Valid() {
		return nil, fmt.Errorf("stage %q: %w", stage, common.ErrValidation)
	}
	node, err := s.repomanager.Nodes(s.db).Get(ctx, id)
	if err != nil {
		return nil, err
	}
	snap, err := s.repomanager.Snapshots(s.db).Get(ctx, id, stage)
	if err != nil {
		return nil, err
	}
	return &models.Page{Node: *node, Snapshot: *snap}, nil
}

// GetForCaller is Get gated on view rights. A node the caller may not see
// is reported as not found.
func (s *VersionService) GetForCaller(ctx context.Context, caller models.Caller, id string, stage models.Stage) (*models.Page, error) {
	page, err := s.Get(ctx, id, stage)
	if err != nil {
		return nil, err
	}
	if stage == models.StageDraft && !s.access.CanEdit(&page.Snapshot, caller) {
		return nil, common.ErrorNotFound
	}
	if !s.access.CanView(&page.Snapshot, caller) {
		return nil, common.ErrorNotFound
	}
	return page, nil
}

// DiffForCaller is Diff for callers allowed to edit the node. The
// policies come from the Draft, or from Live once the Draft is removed.
// Others get ErrorNotFound.
func (s *VersionService) DiffForCaller(ctx context.Context, caller models.Caller, id string) (*Diff, error) {
	snap, err := currentSnapshot(ctx, s.repomanager.Snapshots(s.db), id)
	if err != nil {
		return nil, err
	}
	if !s.access.CanEdit(snap, caller) || !s.access.CanView(snap, caller) {
		return nil, common.ErrorNotFound
	}
	return s.Diff(ctx, id)
}

// Capabilities evaluates what caller may do with the node.
func (s *VersionService) Capabilities(ctx context.Context, caller models.Caller, id string) (access.Capabilities, error) {
	node, err := s.repomanager.Nodes(s.db).Get(ctx, id)
	if err != nil {
		return access.Capabilities{}, err
	}
	t, err := s.types.Get(node.Type)
	if err != nil {
		return access.Capabilities{}, err
	}
	snap, err := currentSnapshot(ctx, s.repomanager.Snapshots(s.db), id)
	if err != nil {
		return access.Capabilities{}, err
	}
	return s.access.Evaluate(t, snap, caller), nil
}

// withNodeTx runs fn in a transaction while holding the node lock.
func (s *VersionService) withNodeTx(ctx context.Context, id string, fn func(ctx context.Context, tx dbx.DBTX) (*models.Page, error)) (*models.Page, error) {
	unlock, err := s.locker.Lock(ctx, locks.NodeKey(id))
	if err != nil {
		return nil, err
	}
	defer unlock()
	return dbx.WithTxValue(ctx, s.db, nil, fn)
}
