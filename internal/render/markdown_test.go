package render

import (
	"testing"

	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
)

func TestMarkdownRender(t *testing.T) {
	var md Markdown
	assert.Empty(t, md.Render("   ", 80))

	out := ansi.Strip(md.Render("# Heading\n\nsome **bold** text", 60))
	assert.Contains(t, out, "Heading")
	assert.Contains(t, out, "bold")
	assert.NotContains(t, out, "**")

	md.Style = "notty"
	plain := md.Render("plain words", 10)
	assert.Contains(t, plain, "plain words")
	assert.Equal(t, minMarkdownWrap, md.width)
}
