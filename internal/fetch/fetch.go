// Package fetch retrieves web pages and extracts their readable text for
// competitor-content analysis.
package fetch

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Page is the extracted content of one fetched URL.
type Page struct {
	URL   string
	Title string
	Text  string
}

// Fetcher downloads pages over HTTP and strips them down to readable text.
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
}

// NewFetcher creates a fetcher with a sane default timeout.
func NewFetcher() *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		userAgent:  "Mozilla/5.0 (compatible; blogforge/1.0)",
	}
}

var multiNewline = regexp.MustCompile(`(\n\s*){2,}`)

// FetchPage downloads the URL and returns its title and cleaned body text.
func (f *Fetcher) FetchPage(ctx context.Context, pageURL string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", pageURL, err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch %s: status %d", pageURL, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", pageURL, err)
	}

	return &Page{
		URL:   pageURL,
		Title: extractTitle(doc),
		Text:  ExtractText(doc),
	}, nil
}

// extractTitle tries the title tag, then OpenGraph, then the first h1.
func extractTitle(doc *goquery.Document) string {
	if title := strings.TrimSpace(doc.Find("head title").First().Text()); title != "" {
		return title
	}
	if ogTitle, ok := doc.Find("meta[property='og:title']").Attr("content"); ok {
		if title := strings.TrimSpace(ogTitle); title != "" {
			return title
		}
	}
	return strings.TrimSpace(doc.Find("h1").First().Text())
}

// ExtractText strips navigation, scripts, and other page chrome and returns
// the readable text of the document.
func ExtractText(doc *goquery.Document) string {
	doc.Find("script, style, nav, footer, header, aside, form, iframe, noscript, .sidebar, .ad, .cookie-banner").Remove()

	var builder strings.Builder
	contentSelectors := []string{"article", "main", "[role='main']", ".post-content", ".entry-content", "#content"}

	for _, selector := range contentSelectors {
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			appendBlockText(&builder, s)
		})
		if builder.Len() > 0 {
			break
		}
	}
	if builder.Len() == 0 {
		appendBlockText(&builder, doc.Find("body"))
	}

	text := multiNewline.ReplaceAllString(builder.String(), "\n")
	return strings.TrimSpace(text)
}

func appendBlockText(builder *strings.Builder, s *goquery.Selection) {
	s.Find("p, h1, h2, h3, h4, h5, h6, li, blockquote").Each(func(_ int, item *goquery.Selection) {
		text := strings.TrimSpace(item.Text())
		if text == "" {
			return
		}
		builder.WriteString(text)
		builder.WriteString("\n\n")
	})
}
