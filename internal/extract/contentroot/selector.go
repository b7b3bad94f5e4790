package contentroot

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"go.uber.org/zap"
)

// Selector picks the content root with a caller-supplied CSS selector.
// Every match is kept; the fragments concatenate in document order.
type Selector struct {
	selector string
	logger   *zap.Logger
}

func NewSelector(selector string, logger *zap.Logger) *Selector {
	return &Selector{selector: selector, logger: logger}
}

func (s *Selector) Detect(body []byte, pageURL *url.URL) (*Root, error) {
	// Compile explicitly instead of goquery's Find, which panics on a
	// bad selector. The selector is client input.
	matcher, err := cascadia.Compile(s.selector)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidSelector, s.selector, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		s.logger.Debug("Document parse failed",
			zap.String("url", pageURL.String()),
			zap.Error(err))
		return nil, fmt.Errorf("%w, the document could not be parsed", ErrNoContent)
	}

	matches := doc.FindMatcher(matcher)
	if matches.Length() == 0 {
		return nil, fmt.Errorf("%w, selector %q matched no elements", ErrNoContent, s.selector)
	}

	var b strings.Builder
	matches.Each(func(_ int, m *goquery.Selection) {
		if fragment, err := goquery.OuterHtml(m); err == nil {
			b.WriteString(fragment)
		}
	})

	return &Root{HTML: b.String()}, nil
}
