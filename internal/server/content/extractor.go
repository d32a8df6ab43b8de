package content

import (
	"bytes"
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/pagetree/internal/common"
	"github.com/dmitrijs2005/pagetree/internal/server/models"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/renderer/html"
	nethtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ResolveFunc maps a URL segment to the node that owns it. It returns
// common.ErrorNotFound for unknown segments.
type ResolveFunc func(ctx context.Context, segment string) (string, error)

// Extraction is the result of scanning one content field.
type Extraction struct {
	References []models.Reference
	// Broken counts internal links that resolve to no node.
	Broken int
}

// Extractor finds references to other nodes in content.
type Extractor interface {
	Extract(ctx context.Context, field, content string, resolve ResolveFunc) (*Extraction, error)
}

// LinkExtractor renders content (Markdown with inline HTML) and collects
// site-relative anchors. A link's target is the node owning its last path
// segment; segments are unique across the tree, so that is unambiguous.
type LinkExtractor struct {
	md goldmark.Markdown
}

func NewLinkExtractor() *LinkExtractor {
	return &LinkExtractor{
		md: goldmark.New(goldmark.WithRendererOptions(html.WithUnsafe())),
	}
}

func (e *LinkExtractor) Extract(ctx context.Context, field, content string, resolve ResolveFunc) (*Extraction, error) {
	var buf bytes.Buffer
	if err := e.md.Convert([]byte(content), &buf); err != nil {
		return nil, err
	}

	out := &Extraction{}
	seen := make(map[string]bool)

	z := nethtml.NewTokenizer(&buf)
	for {
		tt := z.Next()
		if tt == nethtml.ErrorToken {
			break
		}
		if tt != nethtml.StartTagToken && tt != nethtml.SelfClosingTagToken {
			continue
		}
		name, hasAttr := z.TagName()
		if atom.Lookup(name) != atom.A || !hasAttr {
			continue
		}
		segment, ok := hrefSegment(attr(z, "href"))
		if !ok {
			continue
		}
		id, err := resolve(ctx, segment)
		if errors.Is(err, common.ErrorNotFound) {
			out.Broken++
			continue
		}
		if err != nil {
			return nil, err
		}
		if !seen[id] {
			seen[id] = true
			out.References = append(out.References, models.Reference{TargetID: id, Field: field})
		}
	}
	return out, nil
}

func attr(z *nethtml.Tokenizer, name string) string {
	for {
		key, val, more := z.TagAttr()
		if string(key) == name {
			return string(val)
		}
		if !more {
			return ""
		}
	}
}

// hrefSegment returns the last path segment of a site-relative link.
func hrefSegment(href string) (string, bool) {
	if !strings.HasPrefix(href, "/") || strings.HasPrefix(href, "//") {
		return "", false
	}
	u, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	path := strings.Trim(u.Path, "/")
	if path == "" {
		return "", false
	}
	parts := strings.Split(path, "/")
	return parts[len(parts)-1], true
}
