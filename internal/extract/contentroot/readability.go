package contentroot

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
	"go.uber.org/zap"
)

// Readability detects the content root with the go-readability
// heuristic engine. This is the default strategy.
type Readability struct {
	logger *zap.Logger
}

func NewReadability(logger *zap.Logger) *Readability {
	return &Readability{logger: logger}
}

func (r *Readability) Detect(body []byte, pageURL *url.URL) (*Root, error) {
	parser := readability.NewParser()
	article, err := parser.Parse(bytes.NewReader(body), pageURL)
	if err != nil {
		r.logger.Debug("Readability parse failed",
			zap.String("url", pageURL.String()),
			zap.Error(err))
		return nil, fmt.Errorf("%w, the page may require script execution", ErrNoContent)
	}

	// TextContent, not Content: a tag-only article with no text is
	// just as empty.
	if strings.TrimSpace(article.TextContent) == "" {
		r.logger.Debug("Readability produced empty content",
			zap.String("url", pageURL.String()))
		return nil, fmt.Errorf("%w, the page may require script execution", ErrNoContent)
	}

	return &Root{
		HTML:  article.Content,
		Node:  article.Node,
		Title: strings.TrimSpace(article.Title),
	}, nil
}
