// Package access decides what a caller may do with a node.
//
// Decisions are plain booleans. A denial is a normal answer; operations
// that require a capability turn it into common.ErrNotEditable themselves.
package access

import (
	"github.com/dmitrijs2005/pagetree/internal/server/models"
	"github.com/dmitrijs2005/pagetree/internal/server/nodetypes"
)

// Evaluator evaluates node policies against a caller. The only state it
// carries is the development-mode switch, which lets anyone create nodes.
type Evaluator struct {
	devMode bool
}

func NewEvaluator(devMode bool) *Evaluator {
	return &Evaluator{devMode: devMode}
}

// CanView applies the node's view policy.
func (e *Evaluator) CanView(s *models.Snapshot, c models.Caller) bool {
	if c.Admin {
		return true
	}
	switch s.ViewPolicy {
	case models.ViewAnyone, "":
		return true
	case models.ViewLoggedInUsers:
		return c.Authenticated()
	case models.ViewOnlyTheseUsers:
		return c.Authenticated() && c.InGroup(s.ViewerGroup)
	default:
		return false
	}
}

// CanEdit applies the node's edit policy. Every non-admin editor needs
// the general CMS access capability.
func (e *Evaluator) CanEdit(s *models.Snapshot, c models.Caller) bool {
	if c.Admin {
		return true
	}
	if !c.Authenticated() || !c.CMSAccess {
		return false
	}
	switch s.EditPolicy {
	case models.EditLoggedInUsers, "":
		return true
	case models.EditOnlyTheseUsers:
		return c.InGroup(s.EditorGroup)
	default:
		return false
	}
}

// CanPublish is CanEdit.
func (e *Evaluator) CanPublish(s *models.Snapshot, c models.Caller) bool {
	return e.CanEdit(s, c)
}

// CanAddChildren requires edit rights and a type that accepts children.
func (e *Evaluator) CanAddChildren(t nodetypes.Type, s *models.Snapshot, c models.Caller) bool {
	if c.Admin {
		return true
	}
	return e.CanEdit(s, c) && nodetypes.AllowsChildren(t)
}

// CanCreate is a type-level decision; development mode allows everything.
func (e *Evaluator) CanCreate(t nodetypes.Type, c models.Caller) bool {
	if c.Admin || e.devMode {
		return true
	}
	return t.CanCreate() && c.Authenticated() && c.CMSAccess
}

// CanDelete combines the type's static policy with edit rights on the node.
func (e *Evaluator) CanDelete(t nodetypes.Type, s *models.Snapshot, c models.Caller) bool {
	if c.Admin {
		return true
	}
	return t.CanDelete() && e.CanEdit(s, c)
}

// Capabilities is the full decision set for one node and caller.
type Capabilities struct {
	View        bool
	Edit        bool
	Publish     bool
	AddChildren bool
	Delete      bool
}

// Evaluate computes every capability at once.
func (e *Evaluator) Evaluate(t nodetypes.Type, s *models.Snapshot, c models.Caller) Capabilities {
	return Capabilities{
		View:        e.CanView(s, c),
		Edit:        e.CanEdit(s, c),
		Publish:     e.CanPublish(s, c),
		AddChildren: e.CanAddChildren(t, s, c),
		Delete:      e.CanDelete(t, s, c),
	}
}
