package render

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// minMarkdownWrap is the narrowest wrap width handed to glamour.
const minMarkdownWrap = 24

// Markdown renders task descriptions for the terminal and rebuilds its renderer
// only when the wrap width or style changes.
type Markdown struct {
	// Style is a glamour standard style name; empty means "dark".
	Style string

	width    int
	style    string
	renderer *glamour.TermRenderer
}

// Render converts markdown into styled terminal text. On renderer failure the
// trimmed source is returned unchanged.
func (r *Markdown) Render(markdown string, width int) string {
	markdown = strings.TrimSpace(markdown)
	if markdown == "" {
		return ""
	}

	wrapWidth := max(width, minMarkdownWrap)
	style := r.Style
	if style == "" {
		style = "dark"
	}

	if r.renderer == nil || r.width != wrapWidth || r.style != style {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(wrapWidth),
		)
		if err != nil {
			return markdown
		}
		r.renderer = renderer
		r.width = wrapWidth
		r.style = style
	}

	rendered, err := r.renderer.Render(markdown)
	if err != nil {
		return markdown
	}
	return strings.TrimRight(rendered, "\n")
}
