package services

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/pagetree/internal/server/locks"
	"github.com/dmitrijs2005/pagetree/internal/server/models"
	"github.com/dmitrijs2005/pagetree/internal/server/nodetypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func edgeTargets(t *testing.T, env *testEnv, source string) []string {
	t.Helper()
	edges, err := env.m.Links(env.db).BySource(context.Background(), source)
	require.NoError(t, err)
	var out []string
	for _, e := range edges {
		out = append(out, e.TargetID)
	}
	return out
}

func TestLinks_SyncOnSave(t *testing.T) {
	env := newEnv(t, Options{})
	ctx := context.Background()

	b := env.create(t, SaveInput{Title: "About"})
	c := env.create(t, SaveInput{Title: "Contact"})
	a := env.create(t, SaveInput{Title: "Home", Content: `<a href="/about/">a</a> [c](/contact/) <a href="/nowhere/">x</a>`})

	assert.ElementsMatch(t, []string{b.Node.ID, c.Node.ID}, edgeTargets(t, env, a.Node.ID))
	assert.True(t, a.Snapshot.HasBrokenLink)

	res, err := env.svc.Versions.Save(ctx, admin, SaveInput{ID: a.Node.ID, Title: "Home", Content: `<a href="/contact/">c</a>`})
	require.NoError(t, err)
	assert.Equal(t, []string{c.Node.ID}, edgeTargets(t, env, a.Node.ID))
	assert.False(t, res.Page.Snapshot.HasBrokenLink)

	back, err := env.svc.Links.Backlinks(ctx, b.Node.ID)
	require.NoError(t, err)
	assert.Empty(t, back)
}

func TestLinks_UntrackedTypeHasNoEdges(t *testing.T) {
	env := newEnv(t, Options{})

	env.create(t, SaveInput{Title: "About"})
	r := env.create(t, SaveInput{Title: "Go", Type: nodetypes.TypeRedirector, Content: `<a href="/about/">a</a>`})
	assert.Empty(t, edgeTargets(t, env, r.Node.ID))
}

func TestLinks_RewriteOnRename(t *testing.T) {
	env := newEnv(t, Options{})
	ctx := context.Background()

	b := env.create(t, SaveInput{Title: "About"})
	env.create(t, SaveInput{Title: "Not about"})
	a := env.create(t, SaveInput{Title: "Home",
		Content: `<p><a href="/about/">a</a> <a href="/not-about/">b</a> <a href="/about/">c</a></p>`})
	_, err := env.svc.Versions.Publish(ctx, admin, a.Node.ID)
	require.NoError(t, err)

	res, err := env.svc.Versions.Save(ctx, admin, SaveInput{ID: b.Node.ID, Title: "About", Segment: "company"})
	require.NoError(t, err)
	assert.True(t, res.Renamed())
	assert.Empty(t, res.RewriteFailures)

	draft := env.draft(t, a.Node.ID)
	assert.Equal(t, `<p><a href="/company/">a</a> <a href="/not-about/">b</a> <a href="/company/">c</a></p>`, draft.Content)
	assert.Equal(t, models.StatusSaved, draft.Status)

	live, err := env.svc.Versions.Get(ctx, a.Node.ID, models.StageLive)
	require.NoError(t, err)
	assert.Contains(t, live.Snapshot.Content, `href="/about/"`)

	assert.Contains(t, edgeTargets(t, env, a.Node.ID), b.Node.ID)
}

func TestReplaceSegment(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"single", `<a href="/about/">a</a>`, `<a href="/company/">a</a>`},
		{"adjacent components", `<a href="/about/about/">a</a>`, `<a href="/company/company/">a</a>`},
		{"relative start", `about/x`, `company/x`},
		{"inside a word", `<a href="/bold-about/">a</a> <a href="/xabout/">b</a>`, `<a href="/bold-about/">a</a> <a href="/xabout/">b</a>`},
		{"mixed", `/xabout/about/about`, `/xabout/company/about`},
		{"no match", `<p>nothing here</p>`, `<p>nothing here</p>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, replaceSegment(tt.content, "about", "company"))
		})
	}
}

func TestLinks_RewriteAdjacentComponents(t *testing.T) {
	env := newEnv(t, Options{})
	ctx := context.Background()

	b := env.create(t, SaveInput{Title: "Old"})
	a := env.create(t, SaveInput{Title: "Home", Content: `<a href="/old/old/">a</a> <a href="/bold/">b</a>`})

	_, err := env.svc.Versions.Save(ctx, admin, SaveInput{ID: b.Node.ID, Title: "Old", Segment: "new"})
	require.NoError(t, err)
	assert.Equal(t, `<a href="/new/new/">a</a> <a href="/bold/">b</a>`, env.draft(t, a.Node.ID).Content)
}

func TestLinks_RollbackRewritesBack(t *testing.T) {
	env := newEnv(t, Options{})
	ctx := context.Background()

	b := env.create(t, SaveInput{Title: "About"})
	_, err := env.svc.Versions.Publish(ctx, admin, b.Node.ID)
	require.NoError(t, err)
	a := env.create(t, SaveInput{Title: "Home", Content: `<a href="/about/">a</a>`})

	_, err = env.svc.Versions.Save(ctx, admin, SaveInput{ID: b.Node.ID, Title: "About", Segment: "company"})
	require.NoError(t, err)
	assert.Equal(t, `<a href="/company/">a</a>`, env.draft(t, a.Node.ID).Content)

	res, err := env.svc.Versions.Rollback(ctx, admin, b.Node.ID)
	require.NoError(t, err)
	assert.Empty(t, res.RewriteFailures)
	assert.Equal(t, `<a href="/about/">a</a>`, env.draft(t, a.Node.ID).Content)
}

func TestLinks_RewriteFailuresAreIsolated(t *testing.T) {
	locker := &refusingLocker{Locker: locks.NewLocal()}
	env := newEnv(t, Options{Locker: locker, RewriteWorkers: 2})
	ctx := context.Background()

	b := env.create(t, SaveInput{Title: "About"})
	a1 := env.create(t, SaveInput{Title: "One", Content: `<a href="/about/">1</a>`})
	a2 := env.create(t, SaveInput{Title: "Two", Content: `<a href="/about/">2</a>`})
	a3 := env.create(t, SaveInput{Title: "Three", Content: `<a href="/about/">3</a>`})

	locker.set(locks.NodeKey(a1.Node.ID))
	res, err := env.svc.Versions.Save(ctx, admin, SaveInput{ID: b.Node.ID, Title: "About", Segment: "company"})
	require.NoError(t, err)

	require.Len(t, res.RewriteFailures, 1)
	assert.Equal(t, a1.Node.ID, res.RewriteFailures[0].SourceID)
	assert.ErrorIs(t, res.RewriteFailures[0].Err, errLockRefused)

	assert.Equal(t, `<a href="/about/">1</a>`, env.draft(t, a1.Node.ID).Content)
	assert.Equal(t, `<a href="/company/">2</a>`, env.draft(t, a2.Node.ID).Content)
	assert.Equal(t, `<a href="/company/">3</a>`, env.draft(t, a3.Node.ID).Content)
}

func TestLinks_RewriteOnRenameDirect(t *testing.T) {
	env := newEnv(t, Options{})
	ctx := context.Background()

	b := env.create(t, SaveInput{Title: "About"})
	a := env.create(t, SaveInput{Title: "Home", Content: `<a href="/about/">a</a>`})
	_, err := env.svc.Versions.Publish(ctx, admin, a.Node.ID)
	require.NoError(t, err)

	failures, err := env.svc.Links.RewriteOnRename(ctx, b.Node.ID, "about", "company")
	require.NoError(t, err)
	assert.Empty(t, failures)
	assert.Equal(t, `<a href="/company/">a</a>`, env.draft(t, a.Node.ID).Content)

	failures, err = env.svc.Links.RewriteOnRename(ctx, b.Node.ID, "about", "about")
	require.NoError(t, err)
	assert.Nil(t, failures)
}
