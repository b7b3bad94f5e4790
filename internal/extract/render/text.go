// Package render turns an extracted HTML fragment into the plain-text
// and Markdown views served to clients. The text renderer walks a
// parsed DOM subtree; the Markdown renderer is a flat rule pipeline
// over the raw fragment and deliberately does not build a tree.
package render

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/readlens/engine/internal/common/htmlprocessor"
)

// blockTags emit a line break before and after their children so that
// structural boundaries survive into the flat text.
var blockTags = map[string]bool{
	"p":          true,
	"div":        true,
	"section":    true,
	"article":    true,
	"h1":         true,
	"h2":         true,
	"h3":         true,
	"h4":         true,
	"h5":         true,
	"h6":         true,
	"li":         true,
	"tr":         true,
	"td":         true,
	"th":         true,
	"blockquote": true,
	"pre":        true,
	"br":         true,
}

var horizontalRuns = regexp.MustCompile(`[ \t\r\f\v]+`)

// Text renders the subtree rooted at node as normalized plain text.
// Script, style and navigation chrome under node are detached before
// the walk, so the caller's tree is modified.
func Text(node *html.Node) string {
	if node == nil {
		return ""
	}
	htmlprocessor.StripNonContent(node)

	var b strings.Builder
	collectText(&b, node)
	return normalizeText(b.String())
}

// TextFromFragment parses fragment as a standalone document and
// renders it. Parse failures yield an empty string; x/net/html
// recovers from almost anything, so this only happens on truncated
// reader errors.
func TextFromFragment(fragment string) string {
	root, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return ""
	}
	return Text(root)
}

// collectText appends the text content of n to b in document order.
// Block elements contribute a line break on both sides of their
// children, br only a leading one, and table cells a trailing " | "
// separator so rows stay readable on one line.
func collectText(b *strings.Builder, n *html.Node) {
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
		return
	}

	if n.Type == html.ElementNode {
		tag := strings.ToLower(n.Data)
		block := blockTags[tag]
		if block {
			b.WriteString("\n")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collectText(b, c)
		}
		if tag == "td" || tag == "th" {
			b.WriteString(" | ")
		}
		if block && tag != "br" {
			b.WriteString("\n")
		}
		return
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(b, c)
	}
}

// normalizeText collapses the raw walk output into readable text:
// horizontal whitespace runs become single spaces, every line is
// trimmed, runs of blank lines shrink to one, and the result carries
// no leading or trailing whitespace.
func normalizeText(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(horizontalRuns.ReplaceAllString(line, " "))
		if line == "" {
			if len(out) > 0 && out[len(out)-1] == "" {
				continue
			}
			out = append(out, "")
			continue
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
