// Package render converts finished drafts to HTML and derives URL slugs.
package render

import (
	"regexp"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

var (
	nonSlugChars = regexp.MustCompile(`[^a-z0-9\s-]`)
	whitespace   = regexp.MustCompile(`\s+`)
	multiHyphen  = regexp.MustCompile(`-{2,}`)
)

// Slugify derives a URL slug from a title: lowercase, whitespace to hyphens,
// non-word characters stripped, repeated hyphens collapsed. Pure and
// deterministic; the result contains only [a-z0-9-] with no leading,
// trailing, or doubled hyphens.
func Slugify(title string) string {
	slug := strings.ToLower(strings.TrimSpace(title))
	slug = nonSlugChars.ReplaceAllString(slug, "")
	slug = whitespace.ReplaceAllString(slug, "-")
	slug = multiHyphen.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

// ToHTML converts markdown text to HTML with common extensions enabled.
func ToHTML(text string) string {
	if text == "" {
		return ""
	}

	extensions := parser.CommonExtensions | parser.AutoHeadingIDs
	mdParser := parser.NewWithExtensions(extensions)

	htmlFlags := html.CommonFlags
	renderer := html.NewRenderer(html.RendererOptions{
		Flags: htmlFlags,
	})

	return string(markdown.ToHTML([]byte(text), mdParser, renderer))
}
