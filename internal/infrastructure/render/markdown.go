package render

import (
	"bytes"
	"html"

	"github.com/garyjia/travel-report/internal/application/port"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	goldhtml "github.com/yuin/goldmark/renderer/html"
	"go.uber.org/zap"
)

// MarkdownRenderer converts travel narratives to sanitized HTML
type MarkdownRenderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
	logger *zap.Logger
}

// NewMarkdownRenderer creates a renderer with GFM tables and a UGC
// sanitizing policy
func NewMarkdownRenderer(logger *zap.Logger) *MarkdownRenderer {
	policy := bluemonday.UGCPolicy()
	policy.AllowImages()
	policy.AddTargetBlankToFullyQualifiedLinks(true)
	policy.RequireNoReferrerOnLinks(true)

	return &MarkdownRenderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
			goldmark.WithRendererOptions(goldhtml.WithHardWraps()),
		),
		policy: policy,
		logger: logger,
	}
}

// Render returns sanitized HTML for source. On conversion failure the
// escaped source is returned.
func (r *MarkdownRenderer) Render(source string) string {
	if source == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(source), &buf); err != nil {
		r.logger.Warn("Failed to render markdown", zap.Error(err))
		return "<p>" + html.EscapeString(source) + "</p>"
	}
	return string(r.policy.SanitizeBytes(buf.Bytes()))
}

// Verify interface compliance
var _ port.MarkdownRenderer = (*MarkdownRenderer)(nil)
