package cli

import (
	"context"
	"fmt"
	"strings"

	gs "github.com/dmitrijs2005/pagetree/internal/server/grpc"
)

func (a *App) Login(ctx context.Context) error {
	token, err := GetSecret("Access token", a.out)
	if err != nil {
		return err
	}
	if token == "" {
		return fmt.Errorf("empty token")
	}
	a.token = token
	if a.base != nil {
		a.api = a.base.WithToken(token)
	}
	fmt.Fprintln(a.out, "Signed in")
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	a.token = ""
	if a.base != nil {
		a.api = a.base
	}
	fmt.Fprintln(a.out, "Signed out")
	return nil
}

func (a *App) Ping(ctx context.Context) error {
	ctx, cancel := a.call(ctx)
	defer cancel()
	resp, err := a.api.Ping(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, resp.Status)
	return nil
}

func (a *App) List(ctx context.Context, args []string) error {
	parentID := ""
	if len(args) > 0 {
		parentID = args[0]
	}
	ctx, cancel := a.call(ctx)
	defer cancel()
	resp, err := a.api.Children(ctx, parentID)
	if err != nil {
		return err
	}
	if len(resp.Nodes) == 0 {
		fmt.Fprintln(a.out, "(no children)")
		return nil
	}
	for _, n := range resp.Nodes {
		fmt.Fprintf(a.out, "%s\t%s\tv%d\n", n.ID, n.Type, n.Version)
	}
	return nil
}

func (a *App) Show(ctx context.Context, args []string) error {
	id, stage, err := idAndStage(args)
	if err != nil {
		return err
	}
	ctx, cancel := a.call(ctx)
	defer cancel()
	resp, err := a.api.Get(ctx, id, stage)
	if err != nil {
		return err
	}
	a.printPage(resp.Page)
	return nil
}

func (a *App) New(ctx context.Context, args []string) error {
	req := &gs.SaveRequest{ShowInMenu: true, ShowInSearch: true}
	if len(args) > 0 {
		req.ParentID = args[0]
	}
	var err error
	if req.Title, err = GetSimpleText(a.reader, "Title", a.out); err != nil {
		return err
	}
	if req.Segment, err = GetSimpleText(a.reader, "URL segment (empty to derive from title)", a.out); err != nil {
		return err
	}
	if req.Content, err = GetMultiline(a.reader, "Content (HTML or Markdown)", a.out); err != nil {
		return err
	}

	ctx, cancel := a.call(ctx)
	defer cancel()
	resp, err := a.api.Save(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Created %s at %q\n", resp.Page.Node.ID, resp.Page.Segment)
	return nil
}

// Edit loads the current Draft and saves it back with the fields the user
// changed. Blank answers keep the current value.
func (a *App) Edit(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	cur, err := a.get(ctx, args[0], "draft")
	if err != nil {
		return err
	}
	p := cur.Page
	req := &gs.SaveRequest{
		ID:           p.Node.ID,
		Segment:      p.Segment,
		Title:        p.Title,
		MenuTitle:    p.MenuTitle,
		Content:      p.Content,
		ShowInMenu:   p.ShowInMenu,
		ShowInSearch: p.ShowInSearch,
		ViewPolicy:   p.ViewPolicy,
		ViewerGroup:  p.ViewerGroup,
		EditPolicy:   p.EditPolicy,
		EditorGroup:  p.EditorGroup,
	}

	if err := a.ask(&req.Title, "Title", p.Title); err != nil {
		return err
	}
	if err := a.ask(&req.Segment, "URL segment", p.Segment); err != nil {
		return err
	}
	content, err := GetMultiline(a.reader, "Content (empty keeps current)", a.out)
	if err != nil {
		return err
	}
	if content != "" {
		req.Content = content
	}

	ctx, cancel := a.call(ctx)
	defer cancel()
	resp, err := a.api.Save(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Saved %s v%d (%s)\n", resp.Page.Node.ID, resp.Page.Version, resp.Page.Status)
	if resp.Page.Segment != p.Segment {
		fmt.Fprintf(a.out, "Renamed %q -> %q\n", p.Segment, resp.Page.Segment)
	}
	a.printFailures(resp.RewriteFailures)
	return nil
}

func (a *App) Publish(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	ctx, cancel := a.call(ctx)
	defer cancel()
	resp, err := a.api.Publish(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Published %s as live v%d\n", resp.Page.Node.ID, resp.Page.Version)
	return nil
}

func (a *App) Unpublish(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	ctx, cancel := a.call(ctx)
	defer cancel()
	if err := a.api.Unpublish(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Unpublished %s\n", args[0])
	return nil
}

func (a *App) Rollback(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	ok, err := GetYesNo(a.reader, "Replace the draft with the live version?", a.out)
	if err != nil || !ok {
		return err
	}
	ctx, cancel := a.call(ctx)
	defer cancel()
	resp, err := a.api.Rollback(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Draft of %s restored as v%d\n", resp.Page.Node.ID, resp.Page.Version)
	a.printFailures(resp.RewriteFailures)
	return nil
}

func (a *App) Revert(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	ctx, cancel := a.call(ctx)
	defer cancel()
	if err := a.api.RemoveDraft(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Draft of %s removed\n", args[0])
	return nil
}

func (a *App) Diff(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	ctx, cancel := a.call(ctx)
	defer cancel()
	d, err := a.api.Diff(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s (draft v%d, live v%d)\n", d.Status, d.DraftVersion, d.LiveVersion)
	if len(d.Fields) > 0 {
		fmt.Fprintf(a.out, "changed: %s\n", strings.Join(d.Fields, ", "))
	}
	return nil
}

// Move takes "-" as the parent to move a node to the top level.
func (a *App) Move(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	parentID := args[1]
	if parentID == "-" {
		parentID = ""
	}
	ctx, cancel := a.call(ctx)
	defer cancel()
	if err := a.api.Move(ctx, args[0], parentID); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Moved %s\n", args[0])
	return nil
}

func (a *App) Remove(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	ok, err := GetYesNo(a.reader, fmt.Sprintf("Delete %s from both stages?", args[0]), a.out)
	if err != nil || !ok {
		return err
	}
	ctx, cancel := a.call(ctx)
	defer cancel()
	resp, err := a.api.Delete(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Deleted %d node(s)\n", len(resp.Removed))
	return nil
}

func (a *App) Link(ctx context.Context, args []string) error {
	id, stage, err := idAndStage(args)
	if err != nil {
		return err
	}
	ctx, cancel := a.call(ctx)
	defer cancel()
	resp, err := a.api.Link(ctx, id, stage)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, resp.Link)
	return nil
}

func (a *App) Crumbs(ctx context.Context, args []string) error {
	id, stage, err := idAndStage(args)
	if err != nil {
		return err
	}
	ctx, cancel := a.call(ctx)
	defer cancel()
	resp, err := a.api.Breadcrumbs(ctx, &gs.BreadcrumbsRequest{ID: id, Stage: stage})
	if err != nil {
		return err
	}
	titles := make([]string, 0, len(resp.Crumbs))
	for _, c := range resp.Crumbs {
		titles = append(titles, c.Title)
	}
	fmt.Fprintln(a.out, strings.Join(titles, " > "))
	return nil
}

func (a *App) Duplicate(ctx context.Context, args []string) error {
	if len(args) == 0 || len(args) > 3 {
		return errUsage
	}
	req := &gs.DuplicateRequest{ID: args[0]}
	for _, arg := range args[1:] {
		if arg == "deep" {
			req.IncludeChildren = true
			continue
		}
		parentID := arg
		req.TargetParentID = &parentID
	}
	ctx, cancel := a.call(ctx)
	defer cancel()
	resp, err := a.api.Duplicate(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Copied to %s\n", resp.Node.ID)
	return nil
}

func (a *App) get(ctx context.Context, id, stage string) (*gs.PageResponse, error) {
	ctx, cancel := a.call(ctx)
	defer cancel()
	return a.api.Get(ctx, id, stage)
}

// ask prompts with the current value; a blank answer leaves dst unchanged.
func (a *App) ask(dst *string, prompt, current string) error {
	v, err := GetSimpleText(a.reader, fmt.Sprintf("%s [%s]", prompt, current), a.out)
	if err != nil {
		return err
	}
	if v != "" {
		*dst = v
	}
	return nil
}

func (a *App) printPage(p gs.Page) {
	fmt.Fprintf(a.out, "%s  %s\n", p.Node.ID, p.Title)
	fmt.Fprintf(a.out, "  stage:   %s v%d (%s)\n", p.Stage, p.Version, p.Status)
	fmt.Fprintf(a.out, "  segment: %s\n", p.Segment)
	fmt.Fprintf(a.out, "  type:    %s\n", p.Node.Type)
	if p.HasBrokenLink {
		fmt.Fprintln(a.out, "  ! has broken links")
	}
	if p.Content != "" {
		fmt.Fprintln(a.out)
		fmt.Fprintln(a.out, p.Content)
	}
}

func (a *App) printFailures(fs []gs.RewriteFailure) {
	for _, f := range fs {
		fmt.Fprintf(a.out, "Could not update links in %s: %s\n", f.SourceID, f.Error)
	}
}

func idAndStage(args []string) (string, string, error) {
	switch len(args) {
	case 1:
		return args[0], "", nil
	case 2:
		return args[0], args[1], nil
	default:
		return "", "", errUsage
	}
}
