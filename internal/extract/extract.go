// Package extract pulls a title and plain text out of saved page HTML for
// full-text indexing.
package extract

import (
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// Document parses HTML and returns its title and plain-text body.
// Boilerplate containers (script, style, nav, footer, aside) are skipped.
func Document(r io.Reader) (title, text string, err error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", "", err
	}

	title = findTitle(doc)

	var b strings.Builder
	collectText(doc, &b)
	text = whitespaceRegex.ReplaceAllString(strings.TrimSpace(b.String()), " ")

	return title, text, nil
}

// findTitle extracts the <title> text, falling back to the first <h1>.
func findTitle(doc *html.Node) string {
	if t := findElementText(doc, atom.Title); t != "" {
		return t
	}
	return findElementText(doc, atom.H1)
}

func findElementText(n *html.Node, a atom.Atom) string {
	if n.Type == html.ElementNode && n.DataAtom == a {
		var b strings.Builder
		collectText(n, &b)
		return strings.TrimSpace(whitespaceRegex.ReplaceAllString(b.String(), " "))
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findElementText(c, a); t != "" {
			return t
		}
	}
	return ""
}

// collectText appends the text content of n, skipping boilerplate subtrees.
func collectText(n *html.Node, b *strings.Builder) {
	if n.Type == html.ElementNode && isBoilerplate(n.DataAtom) {
		return
	}
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
		b.WriteString(" ")
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}
}

func isBoilerplate(a atom.Atom) bool {
	switch a {
	case atom.Script, atom.Style, atom.Nav, atom.Footer, atom.Aside, atom.Noscript:
		return true
	default:
		return false
	}
}
