package nodes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/pagetree/internal/common"
	"github.com/dmitrijs2005/pagetree/internal/dbx"
	"github.com/dmitrijs2005/pagetree/internal/server/models"
)

// SQLRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
// Queries use $N placeholders, which both pgx and modernc sqlite accept.
type SQLRepository struct {
	db dbx.DBTX
}

func NewSQLRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db}
}

func (r *SQLRepository) Create(ctx context.Context, n *models.Node) error {
	if n.Sort == 0 {
		next, err := r.NextSort(ctx, n.ParentID)
		if err != nil {
			return err
		}
		n.Sort = next
	}

	query := `INSERT INTO nodes (id, parent_id, node_type, sort, current_version)
		VALUES ($1, $2, $3, $4, $5)`

	if _, err := r.db.ExecContext(ctx, query, n.ID, n.ParentID, n.Type, n.Sort, n.Version); err != nil {
		if dbx.IsUniqueViolation(err) {
			return fmt.Errorf("node %s: %w", n.ID, common.ErrConflict)
		}
		return dbx.Wrap("insert node", err)
	}
	return nil
}

func (r *SQLRepository) Get(ctx context.Context, id string) (*models.Node, error) {
	query := `SELECT id, parent_id, node_type, sort, current_version
		FROM nodes WHERE id = $1`

	n := &models.Node{}
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&n.ID, &n.ParentID, &n.Type, &n.Sort, &n.Version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, dbx.Wrap("select node", err)
	}
	return n, nil
}

func (r *SQLRepository) Children(ctx context.Context, parentID string) ([]*models.Node, error) {
	query := `SELECT id, parent_id, node_type, sort, current_version
		FROM nodes WHERE parent_id = $1
		ORDER BY sort, id`

	rows, err := r.db.QueryContext(ctx, query, parentID)
	if err != nil {
		return nil, dbx.Wrap("select children", err)
	}
	defer rows.Close()

	var result []*models.Node
	for rows.Next() {
		n := &models.Node{}
		if err := rows.Scan(&n.ID, &n.ParentID, &n.Type, &n.Sort, &n.Version); err != nil {
			return nil, dbx.Wrap("scan child", err)
		}
		result = append(result, n)
	}
	if err := rows.Err(); err != nil {
		return nil, dbx.Wrap("iterate children", err)
	}
	return result, nil
}

func (r *SQLRepository) ChildCount(ctx context.Context, parentID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM nodes WHERE parent_id = $1`, parentID).Scan(&n)
	if err != nil {
		return 0, dbx.Wrap("count children", err)
	}
	return n, nil
}

func (r *SQLRepository) NextSort(ctx context.Context, parentID string) (int64, error) {
	var next int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(sort), 0) + 1 FROM nodes WHERE parent_id = $1`, parentID).Scan(&next)
	if err != nil {
		return 0, dbx.Wrap("next sort", err)
	}
	return next, nil
}

func (r *SQLRepository) Move(ctx context.Context, id, parentID string, sort int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE nodes SET parent_id = $1, sort = $2 WHERE id = $3`, parentID, sort, id)
	if err != nil {
		return dbx.Wrap("move node", err)
	}
	return expectOne(res)
}

func (r *SQLRepository) SetSort(ctx context.Context, id string, sort int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE nodes SET sort = $1 WHERE id = $2`, sort, id)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return fmt.Errorf("node %s sort %d: %w", id, sort, common.ErrConflict)
		}
		return dbx.Wrap("set sort", err)
	}
	return expectOne(res)
}

func (r *SQLRepository) IncrementVersion(ctx context.Context, id string) (int64, error) {
	query := `UPDATE nodes SET current_version = current_version + 1
		WHERE id = $1
		RETURNING current_version`

	var version int64
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrorNotFound
		}
		return 0, dbx.Wrap("increment version", err)
	}
	return version, nil
}

func (r *SQLRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM nodes WHERE id = $1`, id)
	if err != nil {
		return dbx.Wrap("delete node", err)
	}
	return expectOne(res)
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return dbx.Wrap("rows affected", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrorNotFound
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}
