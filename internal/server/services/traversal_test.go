package services

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/dmitrijs2005/pagetree/internal/common"
	"github.com/dmitrijs2005/pagetree/internal/server/models"
	"github.com/dmitrijs2005/pagetree/internal/server/nodetypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type currentNode struct {
	id    string
	calls atomic.Int32
}

func (c *currentNode) CurrentNodeID() string {
	c.calls.Add(1)
	return c.id
}

// site builds Home (holder, in menu) > About (hidden) > Team (hidden).
func site(t *testing.T, env *testEnv) (home, about, team *models.Page) {
	t.Helper()
	home = env.create(t, SaveInput{Title: "Home", Type: nodetypes.TypeHolder, ShowInMenu: true})
	about = env.create(t, SaveInput{Title: "About", MenuTitle: "About us", ParentID: home.Node.ID})
	team = env.create(t, SaveInput{Title: "Team", ParentID: about.Node.ID})
	return home, about, team
}

func titles(crumbs []Crumb) []string {
	var out []string
	for _, c := range crumbs {
		out = append(out, c.Title)
	}
	return out
}

func TestTraversal_Link(t *testing.T) {
	env := newEnv(t, Options{})
	ctx := context.Background()
	_, _, team := site(t, env)

	link, err := env.svc.Traversal.Link(ctx, models.StageDraft, team.Node.ID)
	require.NoError(t, err)
	assert.Equal(t, "/home/about/team/", link)

	_, err = env.svc.Traversal.Link(ctx, models.StageLive, team.Node.ID)
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestTraversal_Breadcrumbs(t *testing.T) {
	env := newEnv(t, Options{})
	ctx := context.Background()
	_, _, team := site(t, env)

	crumbs, err := env.svc.Traversal.Breadcrumbs(ctx, models.StageDraft, team.Node.ID, BreadcrumbOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Home", "Team"}, titles(crumbs))
	assert.Empty(t, crumbs[0].Link)

	crumbs, err = env.svc.Traversal.Breadcrumbs(ctx, models.StageDraft, team.Node.ID, BreadcrumbOptions{ShowHidden: true, Links: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"Home", "About us", "Team"}, titles(crumbs))
	assert.Equal(t, "/home/", crumbs[0].Link)
	assert.Equal(t, "/home/about/", crumbs[1].Link)
	assert.Equal(t, "/home/about/team/", crumbs[2].Link)

	crumbs, err = env.svc.Traversal.Breadcrumbs(ctx, models.StageDraft, team.Node.ID, BreadcrumbOptions{ShowHidden: true, MaxDepth: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"About us", "Team"}, titles(crumbs))

	crumbs, err = env.svc.Traversal.Breadcrumbs(ctx, models.StageDraft, team.Node.ID, BreadcrumbOptions{ShowHidden: true, StopAtType: nodetypes.TypeHolder})
	require.NoError(t, err)
	assert.Equal(t, []string{"About us", "Team"}, titles(crumbs))
}

func TestTraversal_Request(t *testing.T) {
	env := newEnv(t, Options{})
	ctx := context.Background()
	home, about, team := site(t, env)
	other := env.create(t, SaveInput{Title: "Other"})

	src := &currentNode{id: about.Node.ID}
	req := env.svc.Traversal.NewRequest(models.StageDraft, src)

	cur, err := req.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, about.Node.ID, cur.Node.ID)

	assert.True(t, req.IsCurrent(ctx, about.Node.ID))
	assert.False(t, req.IsCurrent(ctx, home.Node.ID))
	assert.True(t, req.IsSection(ctx, home.Node.ID))
	assert.True(t, req.IsSection(ctx, about.Node.ID))
	assert.False(t, req.IsSection(ctx, team.Node.ID))
	assert.False(t, req.IsSection(ctx, other.Node.ID))

	assert.Equal(t, ModeCurrent, req.LinkingMode(ctx, about.Node.ID))
	assert.Equal(t, ModeSection, req.LinkingMode(ctx, home.Node.ID))
	assert.Equal(t, ModeLink, req.LinkingMode(ctx, other.Node.ID))
	assert.Equal(t, int32(1), src.calls.Load())

	empty := env.svc.Traversal.NewRequest(models.StageDraft, &currentNode{})
	cur, err = empty.Current(ctx)
	require.NoError(t, err)
	assert.Nil(t, cur)
	assert.False(t, empty.IsSection(ctx, home.Node.ID))
}

func TestTraversal_DuplicateWithChildren(t *testing.T) {
	env := newEnv(t, Options{})
	ctx := context.Background()

	services := env.create(t, SaveInput{Title: "Services", Content: "<p>what we do</p>"})
	web := env.create(t, SaveInput{Title: "Web", ParentID: services.Node.ID})
	env.create(t, SaveInput{Title: "Mobile", ParentID: services.Node.ID})
	env.create(t, SaveInput{Title: "Design", ParentID: web.Node.ID})

	copied, err := env.svc.Traversal.Duplicate(ctx, admin, services.Node.ID, DuplicateOptions{IncludeChildren: true})
	require.NoError(t, err)
	assert.NotEqual(t, services.Node.ID, copied.ID)
	assert.Equal(t, "", copied.ParentID)

	top := env.draft(t, copied.ID)
	assert.Equal(t, "services-2", top.Segment)
	assert.Equal(t, "<p>what we do</p>", top.Content)

	children, err := env.svc.Tree.Children(ctx, copied.ID)
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, "Web", env.draft(t, children[0].ID).Title)
	assert.Equal(t, "web-2", env.draft(t, children[0].ID).Segment)
	assert.Equal(t, "Mobile", env.draft(t, children[1].ID).Title)

	grand, err := env.svc.Tree.Children(ctx, children[0].ID)
	require.NoError(t, err)
	require.Len(t, grand, 1)
	assert.Equal(t, "Design", env.draft(t, grand[0].ID).Title)

	for _, id := range []string{copied.ID, children[0].ID, children[1].ID, grand[0].ID} {
		d, err := env.svc.Versions.Diff(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, DiffAdded, d.Status)
	}
}

func TestTraversal_DuplicateOptions(t *testing.T) {
	env := newEnv(t, Options{})
	ctx := context.Background()

	a := env.create(t, SaveInput{Title: "A"})
	b := env.create(t, SaveInput{Title: "B", ParentID: a.Node.ID})
	target := env.create(t, SaveInput{Title: "Archive"})

	copied, err := env.svc.Traversal.Duplicate(ctx, admin, a.Node.ID, DuplicateOptions{TargetParentID: &target.Node.ID})
	require.NoError(t, err)
	assert.Equal(t, target.Node.ID, copied.ParentID)
	n, err := env.svc.Tree.ChildCount(ctx, copied.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = env.svc.Traversal.Duplicate(ctx, admin, a.Node.ID, DuplicateOptions{IncludeChildren: true, TargetParentID: &b.Node.ID})
	require.ErrorIs(t, err, common.ErrCycleDetected)

	_, err = env.svc.Traversal.Duplicate(ctx, anon, a.Node.ID, DuplicateOptions{})
	require.ErrorIs(t, err, common.ErrNotEditable)
}
