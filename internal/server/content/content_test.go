package content

import (
	"context"
	"errors"
	"testing"

	"github.com/dmitrijs2005/pagetree/internal/common"
	"github.com/dmitrijs2005/pagetree/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mapResolver(m map[string]string) ResolveFunc {
	return func(_ context.Context, segment string) (string, error) {
		if id, ok := m[segment]; ok {
			return id, nil
		}
		return "", common.ErrorNotFound
	}
}

func TestLinkExtractor_HTMLAndMarkdown(t *testing.T) {
	e := NewLinkExtractor()
	resolve := mapResolver(map[string]string{"about": "n1", "team": "n2", "contact": "n3"})

	body := `<p>See <a href="/about/">about</a> and <a href="/about/team/?tab=1#x">team</a>.</p>

Also [contact us](/contact/) or [again](/about/).

<a href="https://example.com/about/">external</a> <a href="//cdn/x">cdn</a> <a href="/gone/">gone</a> <a href="/">home</a>`

	got, err := e.Extract(context.Background(), "content", body, resolve)
	require.NoError(t, err)
	assert.Equal(t, []models.Reference{
		{TargetID: "n1", Field: "content"},
		{TargetID: "n2", Field: "content"},
		{TargetID: "n3", Field: "content"},
	}, got.References)
	assert.Equal(t, 1, got.Broken)
}

func TestLinkExtractor_ResolverFailure(t *testing.T) {
	e := NewLinkExtractor()
	boom := errors.New("db down")

	_, err := e.Extract(context.Background(), "content", `<a href="/x/">x</a>`,
		func(context.Context, string) (string, error) { return "", boom })
	require.ErrorIs(t, err, boom)
}

func TestLinkExtractor_NoLinks(t *testing.T) {
	got, err := NewLinkExtractor().Extract(context.Background(), "content", "plain text", mapResolver(nil))
	require.NoError(t, err)
	assert.Empty(t, got.References)
	assert.Zero(t, got.Broken)
}

func TestHrefSegment(t *testing.T) {
	tests := []struct {
		href string
		want string
		ok   bool
	}{
		{"/about/", "about", true},
		{"/about/team", "team", true},
		{"/a/b/?q=1", "b", true},
		{"/", "", false},
		{"about/", "", false},
		{"//cdn.example.com/x", "", false},
		{"mailto:x@y", "", false},
	}
	for _, tt := range tests {
		got, ok := hrefSegment(tt.href)
		assert.Equal(t, tt.ok, ok, tt.href)
		assert.Equal(t, tt.want, got, tt.href)
	}
}

func TestSanitizer(t *testing.T) {
	s := NewSanitizer()

	out := s.Sanitize(`<p onclick="x()">Hi <a href="/about/">about</a><script>alert(1)</script></p>`)
	assert.Equal(t, `<p>Hi <a href="/about/">about</a></p>`, out)

	out = s.Sanitize(`<h2 id="intro">Intro</h2><code class="lang-go">x</code>`)
	assert.Equal(t, `<h2 id="intro">Intro</h2><code class="lang-go">x</code>`, out)
}
