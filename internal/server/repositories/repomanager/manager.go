package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/pagetree/internal/dbx"
	"github.com/dmitrijs2005/pagetree/internal/server/repositories/links"
	"github.com/dmitrijs2005/pagetree/internal/server/repositories/nodes"
	"github.com/dmitrijs2005/pagetree/internal/server/repositories/snapshots"
)

// RepositoryManager vends repositories bound to a DBTX, so that services
// can use the same repositories inside and outside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Nodes(db dbx.DBTX) nodes.Repository
	Snapshots(db dbx.DBTX) snapshots.Repository
	Links(db dbx.DBTX) links.Repository
}
