// Package models defines the data persisted by pagetree: tree nodes, their
// per-stage snapshots and the link edges between them.
package models

// Node is the version-agnostic part of a content node: its identity and
// position in the tree.
type Node struct {
	// ID is allocated on first save and never changes.
	ID string
	// ParentID is empty for root-level nodes.
	ParentID string
	// Type names the node type that owns root/children/create/delete policy.
	Type string
	// Sort orders siblings under the same parent.
	Sort int64
	// Version is the per-node counter stamped onto snapshots.
	Version int64
}

// IsRoot reports whether the node sits at the top level.
func (n *Node) IsRoot() bool { return n.ParentID == "" }

// Page joins a node with one of its stage snapshots.
type Page struct {
	Node     Node
	Snapshot Snapshot
}

// MenuLabel is the menu title when set, otherwise the title.
func (p *Page) MenuLabel() string {
	if p.Snapshot.MenuTitle != "" {
		return p.Snapshot.MenuTitle
	}
	return p.Snapshot.Title
}
