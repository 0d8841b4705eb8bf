package timetable

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var leadingTag = regexp.MustCompile(`^\s*(?:<!--[\s\S]*?-->\s*)*<([a-zA-Z][a-zA-Z0-9]*)`)

// blockElements start and end a text line when a cell is flattened.
var blockElements = map[atom.Atom]bool{
	atom.Div: true, atom.P: true, atom.Li: true,
	atom.Ul: true, atom.Ol: true, atom.Table: true, atom.Tr: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true,
}

// parseMarkup parses src as a full document when it looks like one and as a
// body fragment otherwise.
func parseMarkup(src string) (*goquery.Document, error) {
	lower := strings.ToLower(src)
	if strings.Contains(lower, "<html") || strings.Contains(lower, "<body") {
		return parseDocument(src)
	}
	return parseFragment(src)
}

func parseDocument(src string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return doc, nil
}

// parseFragment parses src in the context of the element that may legally
// contain its leading tag. A bare "<td>" parsed in a body context would be
// dropped by the HTML5 tree builder.
func parseFragment(src string) (*goquery.Document, error) {
	nodes, err := html.ParseFragment(strings.NewReader(src), fragmentContext(src))
	if err != nil {
		return nil, fmt.Errorf("parse fragment: %w", err)
	}
	root := &html.Node{Type: html.DocumentNode}
	for _, n := range nodes {
		root.AppendChild(n)
	}
	return goquery.NewDocumentFromNode(root), nil
}

func fragmentContext(src string) *html.Node {
	parent := atom.Body
	if m := leadingTag.FindStringSubmatch(src); m != nil {
		switch strings.ToLower(m[1]) {
		case "td", "th":
			parent = atom.Tr
		case "tr":
			parent = atom.Tbody
		case "tbody", "thead", "tfoot", "caption", "colgroup":
			parent = atom.Table
		}
	}
	return &html.Node{Type: html.ElementNode, Data: parent.String(), DataAtom: parent}
}

// normalizedText returns the text of s with whitespace runs collapsed.
func normalizedText(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.Text()), " ")
}

// textLines flattens s into its non-blank visual lines. Line breaks come from
// <br>, block elements and newlines in the source text.
func textLines(s *goquery.Selection) []string {
	var b strings.Builder
	for _, n := range s.Nodes {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			writeText(&b, c)
		}
	}

	var lines []string
	for _, line := range strings.Split(b.String(), "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func writeText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
		switch n.DataAtom {
		case atom.Br:
			b.WriteByte('\n')
			return
		case atom.Script, atom.Style:
			return
		}
	default:
		return
	}

	block := blockElements[n.DataAtom]
	if block {
		b.WriteByte('\n')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(b, c)
	}
	if block {
		b.WriteByte('\n')
	}
}
