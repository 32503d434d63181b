package fetcher

import (
	"bytes"
	"net/url"
	"strings"

	"codeberg.org/readeck/go-readability/v2"
	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

// blockSelector lists the elements whose text forms the paragraphs of an
// extracted article.
const blockSelector = "h1, h2, h3, h4, h5, h6, p, pre, li, blockquote, td"

// extractArticle returns the main content of an HTML page as plain text
// paragraphs separated by blank lines. It returns false when readability
// finds no article or the article has no text.
func extractArticle(body []byte, pageURL *url.URL) (string, bool) {
	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err != nil {
		return "", false
	}

	var htmlBuf strings.Builder
	if err := article.RenderHTML(&htmlBuf); err == nil {
		if text := articleParagraphs(htmlBuf.String()); text != "" {
			return text, true
		}
	}

	var textBuf strings.Builder
	if err := article.RenderText(&textBuf); err == nil {
		if text := strings.TrimSpace(textBuf.String()); text != "" {
			return text, true
		}
	}
	return "", false
}

// articleParagraphs flattens article HTML to paragraphs.
func articleParagraphs(articleHTML string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(articleHTML))
	if err != nil {
		return stripTags(articleHTML)
	}

	paragraphs := make([]string, 0)
	doc.Find(blockSelector).Each(func(_ int, s *goquery.Selection) {
		// Nested blocks are reported by their innermost element only.
		if s.Find(blockSelector).Length() > 0 {
			return
		}
		if text := collapseWhitespace(s.Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	})

	if len(paragraphs) == 0 {
		return stripTags(articleHTML)
	}
	return strings.Join(paragraphs, "\n\n")
}

// stripTags removes all markup with bluemonday's strict policy.
func stripTags(raw string) string {
	p := bluemonday.StrictPolicy()
	return collapseWhitespace(html.UnescapeString(p.Sanitize(raw)))
}
