package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/dmitrijs2005/pagetree/internal/common"
	"github.com/dmitrijs2005/pagetree/internal/dbx"
	"github.com/dmitrijs2005/pagetree/internal/logging"
	"github.com/dmitrijs2005/pagetree/internal/server/access"
	"github.com/dmitrijs2005/pagetree/internal/server/locks"
	"github.com/dmitrijs2005/pagetree/internal/server/mirror"
	"github.com/dmitrijs2005/pagetree/internal/server/models"
	"github.com/dmitrijs2005/pagetree/internal/server/nodetypes"
	"github.com/dmitrijs2005/pagetree/internal/server/repositories/repomanager"
)

// TreeService manages the structure of the tree. It is not aware of
// stage contents beyond what access decisions need.
type TreeService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	types       *nodetypes.Registry
	access      *access.Evaluator
	locker      locks.Locker
	mirror      mirror.Mirror
	log         logging.Logger
}

func NewTreeService(db *sql.DB, m repomanager.RepositoryManager, o Options) *TreeService {
	o.defaults()
	return &TreeService{
		db:          db,
		repomanager: m,
		types:       o.Types,
		access:      o.Access,
		locker:      o.Locker,
		mirror:      o.Mirror,
		log:         o.Logger.With("module", "tree"),
	}
}

func (s *TreeService) Get(ctx context.Context, id string) (*models.Node, error) {
	return s.repomanager.Nodes(s.db).Get(ctx, id)
}

// Children returns the direct children of parentID in sort order. An
// empty parentID lists the root level.
func (s *TreeService) Children(ctx context.Context, parentID string) ([]*models.Node, error) {
	return s.repomanager.Nodes(s.db).Children(ctx, parentID)
}

// Parent returns nil for root-level nodes.
func (s *TreeService) Parent(ctx context.Context, id string) (*models.Node, error) {
	repo := s.repomanager.Nodes(s.db)
	n, err := repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.IsRoot() {
		return nil, nil
	}
	return repo.Get(ctx, n.ParentID)
}

func (s *TreeService) ChildCount(ctx context.Context, id string) (int, error) {
	return s.repomanager.Nodes(s.db).ChildCount(ctx, id)
}

// Move places id under newParentID, at the end of its new siblings. An
// empty newParentID moves the node to the root level.
func (s *TreeService) Move(ctx context.Context, caller models.Caller, id, newParentID string) error {
	release, err := locks.LockAll(ctx, s.locker, locks.KeyTree, locks.NodeKey(id))
	if err != nil {
		return err
	}
	defer release()

	// The mirrored document carries parent and sort, so a published node
	// is put again once it has moved.
	var live *models.Page
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		nodesRepo := s.repomanager.Nodes(tx)

		node, err := nodesRepo.Get(ctx, id)
		if err != nil {
			return err
		}
		t, err := s.types.Get(node.Type)
		if err != nil {
			return err
		}
		cur, err := editSnapshot(ctx, s.repomanager, tx, id)
		if err != nil {
			return err
		}
		if !s.access.CanEdit(cur, caller) {
			return fmt.Errorf("move %s: %w", id, common.ErrNotEditable)
		}

		if newParentID == common.RootParentID {
			if !t.CanBeRoot() {
				return fmt.Errorf("type %s cannot be a root: %w", t.Name(), common.ErrValidation)
			}
		} else {
			within, err := isWithin(ctx, nodesRepo, newParentID, id)
			if err != nil {
				return err
			}
			if within {
				return fmt.Errorf("move %s under %s: %w", id, newParentID, common.ErrCycleDetected)
			}
			if err := checkParent(ctx, s.repomanager, s.types, s.access, tx, caller, t, newParentID); err != nil {
				return err
			}
		}

		sort, err := nodesRepo.NextSort(ctx, newParentID)
		if err != nil {
			return err
		}
		if err := nodesRepo.Move(ctx, id, newParentID, sort); err != nil {
			return err
		}

		snap, err := s.repomanager.Snapshots(tx).Get(ctx, id, models.StageLive)
		switch {
		case errors.Is(err, common.ErrorNotFound):
			return nil
		case err != nil:
			return err
		}
		node.ParentID, node.Sort = newParentID, sort
		live = &models.Page{Node: *node, Snapshot: *snap}
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Info(ctx, "node moved", "node", id, "parent", newParentID)
	if live != nil {
		mirrorLive(ctx, s.mirror, s.log, live)
	}
	return nil
}

// SetSortOrder renumbers the children of parentID 1..n in the order of
// ids, which must list exactly the current children.
func (s *TreeService) SetSortOrder(ctx context.Context, caller models.Caller, parentID string, ids []string) error {
	unlock, err := s.locker.Lock(ctx, locks.KeyTree)
	if err != nil {
		return err
	}
	defer unlock()

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		nodesRepo := s.repomanager.Nodes(tx)

		var parentSnap *models.Snapshot
		if parentID != common.RootParentID {
			if _, err := nodesRepo.Get(ctx, parentID); err != nil {
				return err
			}
			snap, err := editSnapshot(ctx, s.repomanager, tx, parentID)
			if err != nil {
				return err
			}
			parentSnap = snap
		} else {
			parentSnap = &models.Snapshot{}
		}
		if !s.access.CanEdit(parentSnap, caller) {
			return fmt.Errorf("reorder %s: %w", parentID, common.ErrNotEditable)
		}

		children, err := nodesRepo.Children(ctx, parentID)
		if err != nil {
			return err
		}
		have := mapset.NewThreadUnsafeSet[string]()
		for _, c := range children {
			have.Add(c.ID)
		}
		want := mapset.NewThreadUnsafeSet(ids...)
		if want.Cardinality() != len(ids) || !have.Equal(want) {
			return fmt.Errorf("order must list each child of %q once: %w", parentID, common.ErrValidation)
		}

		// Park the children on negative keys first so the unique
		// (parent, sort) index never sees two siblings on one key.
		for i, id := range ids {
			if err := nodesRepo.SetSort(ctx, id, -int64(i+1)); err != nil {
				return err
			}
		}
		for i, id := range ids {
			if err := nodesRepo.SetSort(ctx, id, int64(i+1)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete removes a node with both snapshots and incident links. A node
// with children is only removed when its type deletes whole subtrees.
// Nodes that linked to a removed node get their broken-link flag set.
// The removed ids are returned.
func (s *TreeService) Delete(ctx context.Context, caller models.Caller, id string) ([]string, error) {
	release, err := locks.LockAll(ctx, s.locker, locks.KeyTree, locks.NodeKey(id))
	if err != nil {
		return nil, err
	}

	removed, err := func() ([]string, error) {
		defer release()
		return dbx.WithTxValue(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) ([]string, error) {
			nodesRepo := s.repomanager.Nodes(tx)

			node, err := nodesRepo.Get(ctx, id)
			if err != nil {
				return nil, err
			}
			t, err := s.types.Get(node.Type)
			if err != nil {
				return nil, err
			}
			cur, err := editSnapshot(ctx, s.repomanager, tx, id)
			if err != nil {
				return nil, err
			}
			if !s.access.CanDelete(t, cur, caller) {
				return nil, fmt.Errorf("delete %s: %w", id, common.ErrNotEditable)
			}

			n, err := nodesRepo.ChildCount(ctx, id)
			if err != nil {
				return nil, err
			}
			ids := []string{id}
			if n > 0 {
				sd, ok := t.(nodetypes.SubtreeDeleter)
				if !ok || !sd.DeleteWithChildren() {
					return nil, fmt.Errorf("delete %s: %w", id, common.ErrHasChildren)
				}
				ids, err = subtree(ctx, s.repomanager, tx, id)
				if err != nil {
					return nil, err
				}
			}

			if err := purgeNodes(ctx, s.repomanager, tx, ids); err != nil {
				return nil, err
			}
			return ids, nil
		})
	}()
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "node deleted", "node", id, "removed", len(removed))
	mirrorRemove(ctx, s.mirror, s.log, removed...)
	return removed, nil
}

// editSnapshot is the snapshot access decisions are made on. A node with
// no snapshot falls back to the default policies.
func editSnapshot(ctx context.Context, m repomanager.RepositoryManager, tx dbx.DBTX, id string) (*models.Snapshot, error) {
	snap, err := currentSnapshot(ctx, m.Snapshots(tx), id)
	if errors.Is(err, common.ErrorNotFound) {
		return &models.Snapshot{NodeID: id}, nil
	}
	return snap, err
}

// checkParent verifies that caller may add a child of type t under
// parentID and that the parent's type accepts it.
func checkParent(ctx context.Context, m repomanager.RepositoryManager, types *nodetypes.Registry, ev *access.Evaluator,
	tx dbx.DBTX, caller models.Caller, t nodetypes.Type, parentID string) error {
	parent, err := m.Nodes(tx).Get(ctx, parentID)
	if err != nil {
		return fmt.Errorf("parent %s: %w", parentID, err)
	}
	pt, err := types.Get(parent.Type)
	if err != nil {
		return err
	}
	if !nodetypes.AllowsChild(pt, t.Name()) {
		return fmt.Errorf("%s does not accept %s children: %w", pt.Name(), t.Name(), common.ErrValidation)
	}
	ps, err := editSnapshot(ctx, m, tx, parentID)
	if err != nil {
		return err
	}
	if !ev.CanAddChildren(pt, ps, caller) {
		return fmt.Errorf("add child to %s: %w", parentID, common.ErrNotEditable)
	}
	return nil
}

type nodeGetter interface {
	Get(ctx context.Context, id string) (*models.Node, error)
}

// isWithin reports whether id is ancestorID or one of its descendants.
func isWithin(ctx context.Context, repo nodeGetter, id, ancestorID string) (bool, error) {
	cur := id
	for depth := 0; depth < maxDepth; depth++ {
		if cur == ancestorID {
			return true, nil
		}
		n, err := repo.Get(ctx, cur)
		if err != nil {
			return false, err
		}
		if n.IsRoot() {
			return false, nil
		}
		cur = n.ParentID
	}
	return false, fmt.Errorf("tree deeper than %d below %s: %w", maxDepth, ancestorID, common.ErrCycleDetected)
}

// subtree lists id and all its descendants, parents before children.
func subtree(ctx context.Context, m repomanager.RepositoryManager, tx dbx.DBTX, id string) ([]string, error) {
	repo := m.Nodes(tx)
	out := []string{id}
	for i := 0; i < len(out); i++ {
		children, err := repo.Children(ctx, out[i])
		if err != nil {
			return nil, err
		}
		for _, c := range children {
			out = append(out, c.ID)
		}
	}
	return out, nil
}

// purgeNodes deletes ids with their snapshots and incident edges. Nodes
// outside ids that linked into the set are flagged as having a broken
// link in both stages.
func purgeNodes(ctx context.Context, m repomanager.RepositoryManager, tx dbx.DBTX, ids []string) error {
	linksRepo := m.Links(tx)
	snaps := m.Snapshots(tx)
	nodesRepo := m.Nodes(tx)

	gone := mapset.NewThreadUnsafeSet(ids...)
	broken := mapset.NewThreadUnsafeSet[string]()

	for _, id := range ids {
		inbound, err := linksRepo.ByTarget(ctx, id)
		if err != nil {
			return err
		}
		for _, e := range inbound {
			if !gone.Contains(e.SourceID) {
				broken.Add(e.SourceID)
			}
		}
	}

	for i := len(ids) - 1; i >= 0; i-- {
		id := ids[i]
		if err := linksRepo.DeleteIncident(ctx, id); err != nil {
			return err
		}
		if err := snaps.DeleteAll(ctx, id); err != nil {
			return err
		}
		if err := nodesRepo.Delete(ctx, id); err != nil {
			return err
		}
	}

	for _, src := range broken.ToSlice() {
		for _, stage := range []models.Stage{models.StageDraft, models.StageLive} {
			if err := snaps.SetBrokenLink(ctx, src, stage, true); err != nil {
				return err
			}
		}
	}
	return nil
}
