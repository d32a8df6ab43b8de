// Package content holds the content-body collaborators used on save: an
// HTML sanitizer and a reference extractor.
package content

import "github.com/microcosm-cc/bluemonday"

// Sanitizer cleans user-supplied HTML before it is persisted.
type Sanitizer interface {
	Sanitize(html string) string
}

// PolicySanitizer applies a bluemonday policy.
type PolicySanitizer struct {
	policy *bluemonday.Policy
}

// NewSanitizer returns the default policy: user-generated content rules,
// class attributes on code blocks, tables and heading anchors. Internal
// links are not marked nofollow.
func NewSanitizer() *PolicySanitizer {
	p := bluemonday.UGCPolicy()
	p.RequireNoFollowOnLinks(false)
	p.AllowAttrs("class").Matching(bluemonday.SpaceSeparatedTokens).OnElements("code", "span", "div")
	p.AllowElements("table", "thead", "tbody", "tr", "th", "td")
	p.AllowAttrs("id").OnElements("h1", "h2", "h3", "h4", "h5", "h6")
	return &PolicySanitizer{policy: p}
}

func (s *PolicySanitizer) Sanitize(html string) string {
	return s.policy.Sanitize(html)
}
