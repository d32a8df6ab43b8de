// Package repotest opens throwaway migrated SQLite databases for tests.
package repotest

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/dmitrijs2005/pagetree/internal/server/repositories/repomanager"
)

var seq atomic.Int64

// Open returns a fresh in-memory database with the schema applied. It is
// closed when the test ends.
func Open(t testing.TB) (*sql.DB, repomanager.RepositoryManager) {
	t.Helper()

	name := strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			return r
		}
		return '_'
	}, t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, seq.Add(1))

	db, m, err := repomanager.Open(context.Background(), repomanager.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, m
}
