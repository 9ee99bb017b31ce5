package ui

import (
	"bytes"
	"html/template"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// markdown converts message text to HTML. GFM covers the tables and fenced
// code blocks agents produce.
var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
)

// sanitizer strips anything dangerous from the rendered HTML. Session logs
// contain arbitrary model and tool output, so everything goes through it.
var sanitizer = bluemonday.UGCPolicy()

// renderMarkdown renders trusted-structure, untrusted-content markdown to
// sanitized HTML. Render failures fall back to the escaped raw text.
func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(text), &buf); err != nil {
		return template.HTML("<pre>" + template.HTMLEscapeString(text) + "</pre>")
	}
	return template.HTML(sanitizer.SanitizeBytes(buf.Bytes()))
}
