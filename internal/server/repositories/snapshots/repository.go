// Package snapshots stores per-stage field values of nodes, keyed by
// (node id, stage) in a single table.
package snapshots

import (
	"context"

	"github.com/dmitrijs2005/pagetree/internal/server/models"
)

// Repository describes stage snapshot persistence.
type Repository interface {
	// Get returns common.ErrorNotFound when the node does not exist in stage.
	Get(ctx context.Context, nodeID string, stage models.Stage) (*models.Snapshot, error)
	// Upsert writes s into its stage. A segment collision in that stage is
	// reported as common.ErrConflict.
	Upsert(ctx context.Context, s *models.Snapshot) error
	// Delete removes the row and reports whether one existed.
	Delete(ctx context.Context, nodeID string, stage models.Stage) (bool, error)
	DeleteAll(ctx context.Context, nodeID string) error
	// SegmentTaken reports whether a node other than excludeID uses segment
	// in any stage.
	SegmentTaken(ctx context.Context, segment, excludeID string) (bool, error)
	FindBySegment(ctx context.Context, stage models.Stage, segment string) (*models.Snapshot, error)
	SetBrokenLink(ctx context.Context, nodeID string, stage models.Stage, broken bool) error
}
