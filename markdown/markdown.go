// Package markdown turns article sources into sanitised HTML.
package markdown

import (
	"bytes"
	"fmt"
	"html/template"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

const DefaultCacheSize = 256

type Renderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
	cache  *lru.Cache[string, template.HTML]
}

func NewRenderer(cacheSize int) (*Renderer, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}

	cache, err := lru.New[string, template.HTML](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create render cache: %w", err)
	}

	policy := bluemonday.UGCPolicy()
	policy.AllowImages()
	policy.AddTargetBlankToFullyQualifiedLinks(true)
	policy.RequireNoReferrerOnLinks(true)

	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithXHTML(),
		),
	)

	return &Renderer{
		md:     md,
		policy: policy,
		cache:  cache,
	}, nil
}

// Render converts src to HTML. Results are memoised by source.
func (r *Renderer) Render(src string) template.HTML {
	if out, ok := r.cache.Get(src); ok {
		return out
	}

	var buf bytes.Buffer

	err := r.md.Convert([]byte(src), &buf)
	if err != nil {
		slog.Error("failed to convert markdown", "error", err)

		return template.HTML(template.HTMLEscapeString(src)) // nolint:gosec
	}

	out := template.HTML(r.policy.SanitizeBytes(buf.Bytes())) // nolint:gosec

	r.cache.Add(src, out)

	return out
}
