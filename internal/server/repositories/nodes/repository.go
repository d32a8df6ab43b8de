// Package nodes stores the version-agnostic tree structure: identity,
// parent, sibling order and the per-node version counter.
package nodes

import (
	"context"

	"github.com/dmitrijs2005/pagetree/internal/server/models"
)

// Repository describes tree-structure persistence. It knows nothing about
// stages; snapshots live in their own repository.
type Repository interface {
	// Create inserts n. A zero Sort is replaced by max(sibling sort)+1.
	Create(ctx context.Context, n *models.Node) error
	Get(ctx context.Context, id string) (*models.Node, error)
	// Children returns the children of parentID ordered by sort key.
	Children(ctx context.Context, parentID string) ([]*models.Node, error)
	ChildCount(ctx context.Context, parentID string) (int, error)
	// NextSort returns max(sort)+1 among the children of parentID.
	NextSort(ctx context.Context, parentID string) (int64, error)
	Move(ctx context.Context, id, parentID string, sort int64) error
	SetSort(ctx context.Context, id string, sort int64) error
	// IncrementVersion bumps and returns the node's version counter.
	IncrementVersion(ctx context.Context, id string) (int64, error)
	Delete(ctx context.Context, id string) error
}
