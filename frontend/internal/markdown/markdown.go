// Package markdown renders operator supplied Markdown and cleans text that
// comes from the auth service before it reaches a page.
package markdown

import (
	"bytes"
	htmlstd "html"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

type TextProcessor struct {
	md     goldmark.Markdown
	ugc    *bluemonday.Policy
	strict *bluemonday.Policy
}

func New() *TextProcessor {
	md := goldmark.New(
		// raw HTML is let through here and cleaned by the UGC policy
		goldmark.WithRendererOptions(html.WithUnsafe()),
		goldmark.WithExtensions(extension.Strikethrough, extension.Linkify),
	)

	ugc := bluemonday.UGCPolicy()
	ugc.AllowRelativeURLs(true)
	ugc.AddTargetBlankToFullyQualifiedLinks(true)

	return &TextProcessor{md: md, ugc: ugc, strict: bluemonday.StrictPolicy()}
}

// Render converts Markdown into sanitized HTML.
func (tp *TextProcessor) Render(text string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := tp.md.Convert([]byte(text), &buf); err != nil {
		return "", err
	}
	return template.HTML(strings.TrimSpace(tp.ugc.Sanitize(buf.String()))), nil
}

// PlainText drops any markup from text. The result is meant for html/template,
// which does the escaping itself.
func (tp *TextProcessor) PlainText(text string) string {
	return strings.TrimSpace(htmlstd.UnescapeString(tp.strict.Sanitize(text)))
}
