// Package nodetypes holds per-type policies for content nodes. A node type
// decides where its nodes may live and what may be done to them; optional
// behaviour is expressed as extra interfaces a type either implements or
// does not.
package nodetypes

import (
	"fmt"
	"slices"
	"sync"
)

// Type is the policy every node type provides.
type Type interface {
	Name() string
	// CanBeRoot reports whether nodes of this type may sit at the top level.
	CanBeRoot() bool
	// AllowedChildren lists child type names. nil allows any type, an empty
	// non-nil slice allows none.
	AllowedChildren() []string
	// CanCreate and CanDelete are static, type-level policies.
	CanCreate() bool
	CanDelete() bool
}

// LinkTracking is implemented by types whose content is scanned for links
// to other nodes. Types without it get no backlinks recorded.
type LinkTracking interface {
	TrackedFields() []string
}

// SubtreeDeleter is implemented by types that allow deleting a node
// together with its descendants.
type SubtreeDeleter interface {
	DeleteWithChildren() bool
}

// AllowsChildren reports whether t accepts any child at all.
func AllowsChildren(t Type) bool {
	allowed := t.AllowedChildren()
	return allowed == nil || len(allowed) > 0
}

// AllowsChild reports whether t accepts children of type child.
func AllowsChild(t Type, child string) bool {
	allowed := t.AllowedChildren()
	return allowed == nil || slices.Contains(allowed, child)
}

// Basic is a configurable Type without optional capabilities.
type Basic struct {
	TypeName  string
	Root      bool
	Children  []string
	Creatable bool
	Deletable bool
}

func (b Basic) Name() string              { return b.TypeName }
func (b Basic) CanBeRoot() bool           { return b.Root }
func (b Basic) AllowedChildren() []string { return b.Children }
func (b Basic) CanCreate() bool           { return b.Creatable }
func (b Basic) CanDelete() bool           { return b.Deletable }

// Page is a Basic type whose content links are tracked.
type Page struct {
	Basic
	Fields          []string
	CascadeDeletion bool
}

func (p Page) TrackedFields() []string  { return p.Fields }
func (p Page) DeleteWithChildren() bool { return p.CascadeDeletion }

// Built-in type names.
const (
	TypePage       = "page"
	TypeRedirector = "redirector"
	TypeHolder     = "holder"
)

// FieldContent is the tag of the main content field.
const FieldContent = "content"

// Registry resolves node types by name. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	types map[string]Type
}

func NewRegistry(types ...Type) *Registry {
	r := &Registry{types: make(map[string]Type, len(types))}
	for _, t := range types {
		r.types[t.Name()] = t
	}
	return r
}

// DefaultRegistry returns the built-in types: pages that can go anywhere
// and track links, leaf redirectors without content tracking, and holders
// whose whole subtree can be deleted at once.
func DefaultRegistry() *Registry {
	return NewRegistry(
		Page{
			Basic:  Basic{TypeName: TypePage, Root: true, Creatable: true, Deletable: true},
			Fields: []string{FieldContent},
		},
		Basic{TypeName: TypeRedirector, Root: true, Children: []string{}, Creatable: true, Deletable: true},
		Page{
			Basic:           Basic{TypeName: TypeHolder, Root: true, Children: []string{TypePage}, Creatable: true, Deletable: true},
			Fields:          []string{FieldContent},
			CascadeDeletion: true,
		},
	)
}

// Register adds or replaces a type.
func (r *Registry) Register(t Type) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[t.Name()] = t
}

// Get returns the named type.
func (r *Registry) Get(name string) (Type, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[name]
	if !ok {
		return nil, fmt.Errorf("unknown node type %q", name)
	}
	return t, nil
}
