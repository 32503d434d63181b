package fetcher

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// document is what a single parse of an HTML page yields.
type document struct {
	// title is the text of the first <title> element.
	title string

	// description is the content of <meta name="description">.
	description string

	// linkCount is the number of <a href> elements.
	linkCount int

	// text is the visible text in document order.
	text string
}

// hiddenElements hold text that is never rendered as page content.
var hiddenElements = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Template: true,
	atom.Noscript: true,
}

// parseDocument walks the parsed tree once and collects the visible text
// and the page metadata.
func parseDocument(root *html.Node) *document {
	doc := &document{}
	var text strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			if hiddenElements[n.DataAtom] {
				return
			}
			processElement(n, doc)
		case html.TextNode:
			text.WriteString(n.Data)
		case html.CommentNode, html.DoctypeNode:
			return
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	doc.text = text.String()
	return doc
}

// processElement records metadata carried by element n.
func processElement(n *html.Node, doc *document) {
	switch n.DataAtom {
	case atom.Title:
		if doc.title == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
			doc.title = strings.TrimSpace(n.FirstChild.Data)
		}
	case atom.A:
		if getAttr(n, "href") != "" {
			doc.linkCount++
		}
	case atom.Meta:
		name := strings.ToLower(getAttr(n, "name"))
		if name == "" {
			name = strings.ToLower(getAttr(n, "property"))
		}
		if doc.description == "" && (name == "description" || name == "og:description") {
			doc.description = strings.TrimSpace(getAttr(n, "content"))
		}
	}
}

// collapseWhitespace replaces every run of whitespace with a single space
// and trims both ends.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
