// Package contentroot isolates the part of a fetched document that
// carries the actual content. Implementations are interchangeable
// strategies behind the Detector interface, so the transformation
// pipeline never cares how the root was chosen.
package contentroot

import (
	"errors"
	"net/url"

	"golang.org/x/net/html"
)

// ErrNoContent reports that no content root could be isolated. The
// gateway surfaces it as a client-visible extraction failure.
var ErrNoContent = errors.New("no readable content found")

// ErrInvalidSelector reports a CSS selector that failed to compile.
var ErrInvalidSelector = errors.New("invalid CSS selector")

// Root is the chosen content subtree of a document. HTML always holds
// the serialized fragment; Node is set when a parsed subtree is
// already available, sparing the renderer a re-parse. Title is a
// fallback the strategy may supply, empty otherwise.
type Root struct {
	HTML  string
	Node  *html.Node
	Title string
}

// Detector turns a fetched document into its content root.
type Detector interface {
	Detect(body []byte, pageURL *url.URL) (*Root, error)
}
