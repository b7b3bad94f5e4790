package htmlprocessor

import "golang.org/x/net/html"

const maxTitleLength = 200

// Document provides the HTML tree operations the extraction pipeline
// needs. Parse produces one; the zero value of no implementation is
// usable.
type Document interface {
	// Title extracts the page title from the <title> tag.
	// Returns empty string if not found.
	// Truncates to 200 characters (runes, not bytes).
	Title() string

	// StripNonContent removes script, style, noscript, nav, header,
	// and footer subtrees. Returns true if anything was removed.
	StripNonContent() bool

	// Root returns the document root node.
	Root() *html.Node

	// Body returns the <body> element, or nil if the document has none.
	Body() *html.Node

	// HTML returns the current tree re-serialized as bytes.
	HTML() []byte

	// BodyHTML returns the serialized contents of <body> (children
	// only, not the body tag itself), or nil without a body.
	BodyHTML() []byte
}
