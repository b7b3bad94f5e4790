package htmlprocessor

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// nonContentTags never contribute text to extracted content. Their
// whole subtrees are detached before rendering.
var nonContentTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"nav":      true,
	"header":   true,
	"footer":   true,
}

// domDocument implements Document using golang.org/x/net/html DOM parsing.
type domDocument struct {
	root *html.Node
}

// Parse parses HTML bytes into a Document.
func Parse(htmlBytes []byte) (Document, error) {
	root, err := html.Parse(bytes.NewReader(htmlBytes))
	if err != nil {
		return nil, err
	}
	return &domDocument{root: root}, nil
}

// findElement recursively searches for the first element with matching
// tag name (case-insensitive). Returns nil if not found.
func findElement(node *html.Node, tag string) *html.Node {
	if node == nil {
		return nil
	}
	return findElementLower(node, strings.ToLower(tag))
}

func findElementLower(node *html.Node, lowerTag string) *html.Node {
	if node.Type == html.ElementNode && strings.ToLower(node.Data) == lowerTag {
		return node
	}

	for c := node.FirstChild; c != nil; c = c.NextSibling {
		if found := findElementLower(c, lowerTag); found != nil {
			return found
		}
	}
	return nil
}

// findElementInParent searches within parent's subtree for a matching
// element, excluding parent itself.
func findElementInParent(parent *html.Node, tag string) *html.Node {
	if parent == nil {
		return nil
	}
	lowerTag := strings.ToLower(tag)

	for c := parent.FirstChild; c != nil; c = c.NextSibling {
		if found := findElementLower(c, lowerTag); found != nil {
			return found
		}
	}
	return nil
}

// getTextContent recursively extracts all text content from node and
// descendants.
func getTextContent(node *html.Node) string {
	if node == nil {
		return ""
	}

	var sb strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(node)
	return sb.String()
}

// TruncateRunes truncates a string to maxLen runes (not bytes).
// Returns the original string if it's already within the limit.
func TruncateRunes(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen])
}

func (d *domDocument) Title() string {
	head := findElement(d.root, "head")
	if head == nil {
		return ""
	}

	title := findElementInParent(head, "title")
	if title == nil {
		return ""
	}

	text := strings.TrimSpace(getTextContent(title))
	return TruncateRunes(text, maxTitleLength)
}

// StripNonContent detaches every non-content subtree under root.
// Nodes are collected first and removed after the walk: removing
// during traversal would skip siblings of removed nodes.
func StripNonContent(root *html.Node) bool {
	if root == nil {
		return false
	}

	var toRemove []*html.Node

	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.ElementNode && nonContentTags[strings.ToLower(n.Data)] {
			toRemove = append(toRemove, n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(root)

	for _, node := range toRemove {
		if node.Parent != nil {
			node.Parent.RemoveChild(node)
		}
	}

	return len(toRemove) > 0
}

func (d *domDocument) StripNonContent() bool {
	return StripNonContent(d.root)
}

func (d *domDocument) Root() *html.Node {
	return d.root
}

func (d *domDocument) Body() *html.Node {
	return findElement(d.root, "body")
}

func (d *domDocument) HTML() []byte {
	var buf bytes.Buffer
	if err := html.Render(&buf, d.root); err != nil {
		return nil
	}
	return buf.Bytes()
}

func (d *domDocument) BodyHTML() []byte {
	body := d.Body()
	if body == nil {
		return nil
	}

	var buf bytes.Buffer
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return nil
		}
	}
	return buf.Bytes()
}
