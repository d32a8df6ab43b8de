package models

import "slices"

// Caller is the identity an access decision is made for. The zero value
// is an anonymous visitor.
type Caller struct {
	ID string
	// Admin short-circuits every capability check.
	Admin bool
	// CMSAccess is the general permission to use the editing backend.
	CMSAccess bool
	Groups    []string
}

// Authenticated reports whether the caller is logged in.
func (c Caller) Authenticated() bool { return c.ID != "" }

// InGroup reports membership of group. An empty group never matches.
func (c Caller) InGroup(group string) bool {
	return group != "" && slices.Contains(c.Groups, group)
}
