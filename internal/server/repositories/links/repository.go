// Package links stores the directed reference graph between nodes.
package links

import (
	"context"

	"github.com/dmitrijs2005/pagetree/internal/server/models"
)

type Repository interface {
	BySource(ctx context.Context, sourceID string) ([]models.LinkEdge, error)
	ByTarget(ctx context.Context, targetID string) ([]models.LinkEdge, error)
	// Insert is a no-op when the edge already exists.
	Insert(ctx context.Context, e models.LinkEdge) error
	Delete(ctx context.Context, e models.LinkEdge) error
	// DeleteIncident removes every edge starting or ending at nodeID.
	DeleteIncident(ctx context.Context, nodeID string) error
}
