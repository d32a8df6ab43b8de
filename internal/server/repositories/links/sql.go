package links

import (
	"context"

	"github.com/dmitrijs2005/pagetree/internal/dbx"
	"github.com/dmitrijs2005/pagetree/internal/server/models"
)

type SQLRepository struct {
	db dbx.DBTX
}

func NewSQLRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db}
}

func (r *SQLRepository) BySource(ctx context.Context, sourceID string) ([]models.LinkEdge, error) {
	return r.list(ctx, `SELECT source_id, target_id, field FROM link_edges
		WHERE source_id = $1 ORDER BY target_id, field`, sourceID)
}

func (r *SQLRepository) ByTarget(ctx context.Context, targetID string) ([]models.LinkEdge, error) {
	return r.list(ctx, `SELECT source_id, target_id, field FROM link_edges
		WHERE target_id = $1 ORDER BY source_id, field`, targetID)
}

func (r *SQLRepository) list(ctx context.Context, query, id string) ([]models.LinkEdge, error) {
	rows, err := r.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, dbx.Wrap("select link edges", err)
	}
	defer rows.Close()

	var result []models.LinkEdge
	for rows.Next() {
		var e models.LinkEdge
		if err := rows.Scan(&e.SourceID, &e.TargetID, &e.Field); err != nil {
			return nil, dbx.Wrap("scan link edge", err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, dbx.Wrap("iterate link edges", err)
	}
	return result, nil
}

func (r *SQLRepository) Insert(ctx context.Context, e models.LinkEdge) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO link_edges (source_id, target_id, field)
		VALUES ($1, $2, $3)
		ON CONFLICT (source_id, target_id, field) DO NOTHING`, e.SourceID, e.TargetID, e.Field)
	if err != nil {
		return dbx.Wrap("insert link edge", err)
	}
	return nil
}

func (r *SQLRepository) Delete(ctx context.Context, e models.LinkEdge) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM link_edges
		WHERE source_id = $1 AND target_id = $2 AND field = $3`, e.SourceID, e.TargetID, e.Field)
	if err != nil {
		return dbx.Wrap("delete link edge", err)
	}
	return nil
}

func (r *SQLRepository) DeleteIncident(ctx context.Context, nodeID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM link_edges WHERE source_id = $1 OR target_id = $1`, nodeID)
	if err != nil {
		return dbx.Wrap("delete incident link edges", err)
	}
	return nil
}
