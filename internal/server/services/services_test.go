package services

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/dmitrijs2005/pagetree/internal/server/access"
	"github.com/dmitrijs2005/pagetree/internal/server/locks"
	"github.com/dmitrijs2005/pagetree/internal/server/models"
	"github.com/dmitrijs2005/pagetree/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/pagetree/internal/server/repositories/repotest"
	"github.com/stretchr/testify/require"
)

var (
	admin  = models.Caller{ID: "admin", Admin: true}
	editor = models.Caller{ID: "ed", CMSAccess: true, Groups: []string{"editors"}}
	member = models.Caller{ID: "m1", Groups: []string{"members"}}
	anon   = models.Caller{}
)

type testEnv struct {
	db  *sql.DB
	m   repomanager.RepositoryManager
	svc *Services
}

func newEnv(t *testing.T, o Options) *testEnv {
	t.Helper()
	db, m := repotest.Open(t)
	return &testEnv{db: db, m: m, svc: New(db, m, o)}
}

// create saves a new page as admin and fails the test on error.
func (e *testEnv) create(t *testing.T, in SaveInput) *models.Page {
	t.Helper()
	res, err := e.svc.Versions.Save(context.Background(), admin, in)
	require.NoError(t, err)
	require.True(t, res.Created)
	return res.Page
}

func (e *testEnv) draft(t *testing.T, id string) *models.Snapshot {
	t.Helper()
	p, err := e.svc.Versions.Get(context.Background(), id, models.StageDraft)
	require.NoError(t, err)
	return &p.Snapshot
}

type fakeMirror struct {
	mu      sync.Mutex
	puts    []string
	pages   []models.Page
	deletes []string
}

func (f *fakeMirror) Put(_ context.Context, p *models.Page) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts = append(f.puts, p.Node.ID)
	f.pages = append(f.pages, *p)
	return nil
}

func (f *fakeMirror) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, id)
	return nil
}

// refusingLocker fails to lock one key and delegates the rest.
type refusingLocker struct {
	locks.Locker
	mu     sync.Mutex
	refuse string
}

func (r *refusingLocker) set(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refuse = key
}

func (r *refusingLocker) Lock(ctx context.Context, key string) (func(), error) {
	r.mu.Lock()
	refused := key == r.refuse
	r.mu.Unlock()
	if refused {
		return nil, errLockRefused
	}
	return r.Locker.Lock(ctx, key)
}

func accessDev() *access.Evaluator { return access.NewEvaluator(true) }
