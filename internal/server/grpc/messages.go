package grpc

import (
	"github.com/dmitrijs2005/pagetree/internal/server/models"
	"github.com/dmitrijs2005/pagetree/internal/server/services"
)

type Empty struct{}

type PingResponse struct {
	Status string `json:"status"`
}

type NodeRequest struct {
	ID string `json:"id"`
}

type StageRequest struct {
	ID    string `json:"id"`
	Stage string `json:"stage"`
}

type SaveRequest struct {
	ID           string `json:"id,omitempty"`
	ParentID     string `json:"parent_id,omitempty"`
	Type         string `json:"type,omitempty"`
	Segment      string `json:"segment,omitempty"`
	Title        string `json:"title"`
	MenuTitle    string `json:"menu_title,omitempty"`
	Content      string `json:"content,omitempty"`
	ShowInMenu   bool   `json:"show_in_menu"`
	ShowInSearch bool   `json:"show_in_search"`
	ViewPolicy   string `json:"view_policy,omitempty"`
	ViewerGroup  string `json:"viewer_group,omitempty"`
	EditPolicy   string `json:"edit_policy,omitempty"`
	EditorGroup  string `json:"editor_group,omitempty"`
}

type Node struct {
	ID       string `json:"id"`
	ParentID string `json:"parent_id,omitempty"`
	Type     string `json:"type"`
	Sort     int64  `json:"sort"`
	Version  int64  `json:"version"`
}

type Page struct {
	Node          Node   `json:"node"`
	Stage         string `json:"stage"`
	Version       int64  `json:"version"`
	SourceVersion int64  `json:"source_version,omitempty"`
	Segment       string `json:"segment"`
	Title         string `json:"title"`
	MenuTitle     string `json:"menu_title,omitempty"`
	Content       string `json:"content"`
	ShowInMenu    bool   `json:"show_in_menu"`
	ShowInSearch  bool   `json:"show_in_search"`
	ViewPolicy    string `json:"view_policy"`
	ViewerGroup   string `json:"viewer_group,omitempty"`
	EditPolicy    string `json:"edit_policy"`
	EditorGroup   string `json:"editor_group,omitempty"`
	Status        string `json:"status"`
	HasBrokenLink bool   `json:"has_broken_link"`
	HasBrokenFile bool   `json:"has_broken_file"`
}

type RewriteFailure struct {
	SourceID string `json:"source_id"`
	Error    string `json:"error"`
}

type PageResponse struct {
	Page            Page             `json:"page"`
	Created         bool             `json:"created,omitempty"`
	RewriteFailures []RewriteFailure `json:"rewrite_failures,omitempty"`
}

type DiffResponse struct {
	Status       string   `json:"status"`
	Fields       []string `json:"fields,omitempty"`
	DraftVersion int64    `json:"draft_version"`
	LiveVersion  int64    `json:"live_version"`
}

type ChildrenRequest struct {
	ParentID string `json:"parent_id"`
}

type NodesResponse struct {
	Nodes []Node `json:"nodes"`
}

type MoveRequest struct {
	ID       string `json:"id"`
	ParentID string `json:"parent_id"`
}

type SortRequest struct {
	ParentID string   `json:"parent_id"`
	IDs      []string `json:"ids"`
}

type DeleteResponse struct {
	Removed []string `json:"removed"`
}

type BreadcrumbsRequest struct {
	ID         string `json:"id"`
	Stage      string `json:"stage"`
	MaxDepth   int    `json:"max_depth,omitempty"`
	StopAtType string `json:"stop_at_type,omitempty"`
	ShowHidden bool   `json:"show_hidden,omitempty"`
	Links      bool   `json:"links,omitempty"`
}

type Crumb struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Link  string `json:"link,omitempty"`
}

type BreadcrumbsResponse struct {
	Crumbs []Crumb `json:"crumbs"`
}

type LinkResponse struct {
	Link string `json:"link"`
}

type DuplicateRequest struct {
	ID              string  `json:"id"`
	IncludeChildren bool    `json:"include_children"`
	TargetParentID  *string `json:"target_parent_id,omitempty"`
}

type NodeResponse struct {
	Node Node `json:"node"`
}

type CapabilitiesResponse struct {
	View        bool `json:"view"`
	Edit        bool `json:"edit"`
	Publish     bool `json:"publish"`
	AddChildren bool `json:"add_children"`
	Delete      bool `json:"delete"`
}

func toNode(n *models.Node) Node {
	return Node{ID: n.ID, ParentID: n.ParentID, Type: n.Type, Sort: n.Sort, Version: n.Version}
}

func toPage(p *models.Page) Page {
	s := p.Snapshot
	return Page{
		Node:          toNode(&p.Node),
		Stage:         string(s.Stage),
		Version:       s.Version,
		SourceVersion: s.SourceVersion,
		Segment:       s.Segment,
		Title:         s.Title,
		MenuTitle:     s.MenuTitle,
		Content:       s.Content,
		ShowInMenu:    s.ShowInMenu,
		ShowInSearch:  s.ShowInSearch,
		ViewPolicy:    string(s.ViewPolicy),
		ViewerGroup:   s.ViewerGroup,
		EditPolicy:    string(s.EditPolicy),
		EditorGroup:   s.EditorGroup,
		Status:        s.Status,
		HasBrokenLink: s.HasBrokenLink,
		HasBrokenFile: s.HasBrokenFile,
	}
}

func toSaveResponse(r *services.SaveResult) *PageResponse {
	out := &PageResponse{Page: toPage(r.Page), Created: r.Created}
	for _, f := range r.RewriteFailures {
		out.RewriteFailures = append(out.RewriteFailures, RewriteFailure{SourceID: f.SourceID, Error: f.Err.Error()})
	}
	return out
}

func (r *SaveRequest) input() services.SaveInput {
	return services.SaveInput{
		ID:           r.ID,
		ParentID:     r.ParentID,
		Type:         r.Type,
		Segment:      r.Segment,
		Title:        r.Title,
		MenuTitle:    r.MenuTitle,
		Content:      r.Content,
		ShowInMenu:   r.ShowInMenu,
		ShowInSearch: r.ShowInSearch,
		ViewPolicy:   models.ViewPolicy(r.ViewPolicy),
		ViewerGroup:  r.ViewerGroup,
		EditPolicy:   models.EditPolicy(r.EditPolicy),
		EditorGroup:  r.EditorGroup,
	}
}

// stage defaults to Live for public reads.
func stage(s string) models.Stage {
	if s == "" {
		return models.StageLive
	}
	return models.Stage(s)
}
