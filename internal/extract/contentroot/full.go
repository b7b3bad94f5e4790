package contentroot

import (
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"github.com/readlens/engine/internal/common/htmlprocessor"
)

// Full takes the whole sanitized document body as the content root:
// scripts, styles and navigation chrome are removed, everything else
// stays. Useful when the readability heuristic cuts too aggressively.
type Full struct {
	logger *zap.Logger
}

func NewFull(logger *zap.Logger) *Full {
	return &Full{logger: logger}
}

func (f *Full) Detect(body []byte, pageURL *url.URL) (*Root, error) {
	doc, err := htmlprocessor.Parse(body)
	if err != nil {
		f.logger.Debug("Document parse failed",
			zap.String("url", pageURL.String()),
			zap.Error(err))
		return nil, fmt.Errorf("%w, the document could not be parsed", ErrNoContent)
	}

	doc.StripNonContent()

	bodyNode := doc.Body()
	if bodyNode == nil {
		return nil, fmt.Errorf("%w, the document has no body", ErrNoContent)
	}

	return &Root{
		HTML:  string(doc.BodyHTML()),
		Node:  bodyNode,
		Title: doc.Title(),
	}, nil
}
