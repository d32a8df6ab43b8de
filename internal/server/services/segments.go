package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/pagetree/internal/common"
	"github.com/dmitrijs2005/pagetree/internal/dbx"
	"github.com/dmitrijs2005/pagetree/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/pagetree/internal/slug"
)

// maxSegmentAttempts bounds the suffix search in Resolve.
const maxSegmentAttempts = 1000

// SegmentResolver turns a candidate URL segment into one no other node
// uses in either stage.
type SegmentResolver struct {
	repomanager repomanager.RepositoryManager
}

func NewSegmentResolver(m repomanager.RepositoryManager) *SegmentResolver {
	return &SegmentResolver{repomanager: m}
}

// Resolve returns candidate when no other node uses it. Otherwise a
// trailing -N is stripped and base-2, base-3, ... are tried in turn.
// selfID is ignored in the check so that a node keeps its own segment. db
// is usually the transaction that will write the result.
func (r *SegmentResolver) Resolve(ctx context.Context, db dbx.DBTX, candidate, selfID string) (string, error) {
	if candidate == "" {
		return "", fmt.Errorf("empty segment: %w", common.ErrValidation)
	}
	repo := r.repomanager.Snapshots(db)

	taken, err := repo.SegmentTaken(ctx, candidate, selfID)
	if err != nil {
		return "", err
	}
	if !taken {
		return candidate, nil
	}

	base := slug.StripSuffix(candidate)
	for n := 2; n < maxSegmentAttempts+2; n++ {
		try := fmt.Sprintf("%s-%d", base, n)
		taken, err := repo.SegmentTaken(ctx, try, selfID)
		if err != nil {
			return "", err
		}
		if !taken {
			return try, nil
		}
	}
	return "", fmt.Errorf("no free segment for %q after %d attempts: %w", base, maxSegmentAttempts, common.ErrConflict)
}
