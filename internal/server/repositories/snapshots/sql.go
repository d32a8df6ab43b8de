package snapshots

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/pagetree/internal/common"
	"github.com/dmitrijs2005/pagetree/internal/dbx"
	"github.com/dmitrijs2005/pagetree/internal/server/models"
)

const columns = `node_id, stage, version, source_version, segment, title, menu_title, content,
	show_in_menu, show_in_search, view_policy, viewer_group, edit_policy, editor_group,
	status, has_broken_link, has_broken_file`

// SQLRepository implements Repository over a dbx.DBTX.
type SQLRepository struct {
	db dbx.DBTX
}

func NewSQLRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(row scanner) (*models.Snapshot, error) {
	s := &models.Snapshot{}
	err := row.Scan(&s.NodeID, &s.Stage, &s.Version, &s.SourceVersion, &s.Segment, &s.Title, &s.MenuTitle,
		&s.Content, &s.ShowInMenu, &s.ShowInSearch, &s.ViewPolicy, &s.ViewerGroup, &s.EditPolicy,
		&s.EditorGroup, &s.Status, &s.HasBrokenLink, &s.HasBrokenFile)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *SQLRepository) Get(ctx context.Context, nodeID string, stage models.Stage) (*models.Snapshot, error) {
	query := `SELECT ` + columns + ` FROM snapshots WHERE node_id = $1 AND stage = $2`

	s, err := scan(r.db.QueryRowContext(ctx, query, nodeID, stage))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, dbx.Wrap("select snapshot", err)
	}
	return s, nil
}

func (r *SQLRepository) Upsert(ctx context.Context, s *models.Snapshot) error {
	query := `INSERT INTO snapshots (` + columns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (node_id, stage) DO UPDATE SET
			version = excluded.version,
			source_version = excluded.source_version,
			segment = excluded.segment,
			title = excluded.title,
			menu_title = excluded.menu_title,
			content = excluded.content,
			show_in_menu = excluded.show_in_menu,
			show_in_search = excluded.show_in_search,
			view_policy = excluded.view_policy,
			viewer_group = excluded.viewer_group,
			edit_policy = excluded.edit_policy,
			editor_group = excluded.editor_group,
			status = excluded.status,
			has_broken_link = excluded.has_broken_link,
			has_broken_file = excluded.has_broken_file`

	_, err := r.db.ExecContext(ctx, query,
		s.NodeID, s.Stage, s.Version, s.SourceVersion, s.Segment, s.Title, s.MenuTitle, s.Content,
		s.ShowInMenu, s.ShowInSearch, s.ViewPolicy, s.ViewerGroup, s.EditPolicy, s.EditorGroup,
		s.Status, s.HasBrokenLink, s.HasBrokenFile)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return fmt.Errorf("segment %q in %s: %w", s.Segment, s.Stage, common.ErrConflict)
		}
		return dbx.Wrap("upsert snapshot", err)
	}
	return nil
}

func (r *SQLRepository) Delete(ctx context.Context, nodeID string, stage models.Stage) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM snapshots WHERE node_id = $1 AND stage = $2`, nodeID, stage)
	if err != nil {
		return false, dbx.Wrap("delete snapshot", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, dbx.Wrap("rows affected", err)
	}
	return n > 0, nil
}

func (r *SQLRepository) DeleteAll(ctx context.Context, nodeID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM snapshots WHERE node_id = $1`, nodeID); err != nil {
		return dbx.Wrap("delete snapshots", err)
	}
	return nil
}

func (r *SQLRepository) SegmentTaken(ctx context.Context, segment, excludeID string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM snapshots WHERE segment = $1 AND node_id <> $2`, segment, excludeID).Scan(&n)
	if err != nil {
		return false, dbx.Wrap("check segment", err)
	}
	return n > 0, nil
}

func (r *SQLRepository) FindBySegment(ctx context.Context, stage models.Stage, segment string) (*models.Snapshot, error) {
	query := `SELECT ` + columns + ` FROM snapshots WHERE stage = $1 AND segment = $2`

	s, err := scan(r.db.QueryRowContext(ctx, query, stage, segment))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, dbx.Wrap("select snapshot by segment", err)
	}
	return s, nil
}

func (r *SQLRepository) SetBrokenLink(ctx context.Context, nodeID string, stage models.Stage, broken bool) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE snapshots SET has_broken_link = $1 WHERE node_id = $2 AND stage = $3`, broken, nodeID, stage)
	if err != nil {
		return dbx.Wrap("set broken link", err)
	}
	return nil
}
