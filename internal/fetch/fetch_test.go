package fetch

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

const samplePage = `
<html>
<head>
	<title>Restoring Old Photos: The Complete Guide</title>
	<meta property="og:title" content="OG Title">
	<script>console.log("tracking")</script>
</head>
<body>
	<nav><a href="/">Home</a><a href="/blog">Blog</a></nav>
	<article>
		<h1>Restoring Old Photos</h1>
		<p>Scanned photographs fade over decades.</p>
		<p>Modern tools can recover much of the lost detail.</p>
	</article>
	<footer>Copyright 2025</footer>
</body>
</html>`

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("Failed to parse HTML: %v", err)
	}
	return doc
}

func TestExtractText(t *testing.T) {
	text := ExtractText(mustDoc(t, samplePage))

	if !strings.Contains(text, "Scanned photographs fade over decades.") {
		t.Errorf("Expected article text, got %q", text)
	}
	if strings.Contains(text, "Home") || strings.Contains(text, "Copyright") {
		t.Errorf("Expected nav and footer to be stripped, got %q", text)
	}
	if strings.Contains(text, "tracking") {
		t.Errorf("Expected scripts to be stripped, got %q", text)
	}
}

func TestExtractTextBodyFallback(t *testing.T) {
	html := `<html><body><p>Just a paragraph.</p></body></html>`
	text := ExtractText(mustDoc(t, html))

	if text != "Just a paragraph." {
		t.Errorf("Expected body fallback to extract paragraph, got %q", text)
	}
}

func TestExtractTitle(t *testing.T) {
	tests := []struct {
		name     string
		html     string
		expected string
	}{
		{"title tag", samplePage, "Restoring Old Photos: The Complete Guide"},
		{"og fallback", `<html><head><meta property="og:title" content="From OG"></head><body></body></html>`, "From OG"},
		{"h1 fallback", `<html><body><h1> Heading Only </h1></body></html>`, "Heading Only"},
		{"no title", `<html><body><p>text</p></body></html>`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractTitle(mustDoc(t, tt.html)); got != tt.expected {
				t.Errorf("extractTitle = %q, want %q", got, tt.expected)
			}
		})
	}
}
