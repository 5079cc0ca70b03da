package extract

import (
	"strings"

	"golang.org/x/net/html"
)

// FlattenTables rewrites HTML tables embedded in Markdown as pipe-delimited rows,
// one row per line, so label/value pairs in merged-cell tables become searchable.
// Text without a <table> element is returned unchanged.
func FlattenTables(text string) string {
	if !strings.Contains(strings.ToLower(text), "<table") {
		return text
	}

	doc, err := html.Parse(strings.NewReader(text))
	if err != nil {
		return text
	}

	var buf strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			buf.WriteString(n.Data)
			return
		case html.ElementNode:
			switch n.Data {
			case "script", "style":
				return
			case "tr":
				buf.WriteString("\n|")
				for c := n.FirstChild; c != nil; c = c.NextSibling {
					if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
						buf.WriteString(" ")
						buf.WriteString(cellText(c))
						buf.WriteString(" |")
					}
				}
				buf.WriteString("\n")
				return
			case "br", "p", "div":
				buf.WriteString("\n")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return buf.String()
}

// cellText collapses a cell's text onto one line
func cellText(n *html.Node) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			if t := strings.TrimSpace(node.Data); t != "" {
				parts = append(parts, t)
			}
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.ReplaceAll(strings.Join(parts, " "), "|", "/")
}
