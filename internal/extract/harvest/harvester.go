// Package harvest collects page-level metadata and image references
// from the original document, before content-root isolation. Failures
// here never fail a request: every collector degrades to an empty
// result.
package harvest

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/readlens/engine/internal/common/htmlprocessor"
	"github.com/readlens/engine/pkg/types"
)

const (
	maxImages            = 20
	autoDescriptionRunes = 200
)

type Harvester struct {
	logger *zap.Logger
}

func NewHarvester(logger *zap.Logger) *Harvester {
	return &Harvester{logger: logger}
}

// Harvest returns the metadata map, harvested images and page title of
// doc. The document is the full page as fetched, so metadata reflects
// the whole page rather than the extracted article. A nil doc yields
// empty results.
func (h *Harvester) Harvest(doc *goquery.Document, base *url.URL) (map[string]string, []types.ImageRef, string) {
	if doc == nil {
		return map[string]string{}, nil, ""
	}

	meta := h.metadata(doc)
	images := h.images(doc, base)
	title := strings.TrimSpace(doc.Find("title").First().Text())

	h.logger.Debug("Harvest complete",
		zap.Int("metadata_keys", len(meta)),
		zap.Int("images", len(images)))

	return meta, images, title
}

func (h *Harvester) metadata(doc *goquery.Document) map[string]string {
	meta := make(map[string]string)

	doc.Find("meta[name][content]").Each(func(_ int, s *goquery.Selection) {
		name, _ := s.Attr("name")
		content, _ := s.Attr("content")
		if name != "" && content != "" {
			meta[name] = content
		}
	})

	// Open Graph and Twitter card properties keep their literal keys,
	// prefix included.
	doc.Find(`meta[property^="og:"]`).Each(func(_ int, s *goquery.Selection) {
		property, _ := s.Attr("property")
		content, _ := s.Attr("content")
		if property != "" && content != "" {
			meta[property] = content
		}
	})

	doc.Find(`meta[name^="twitter:"]`).Each(func(_ int, s *goquery.Selection) {
		name, _ := s.Attr("name")
		content, _ := s.Attr("content")
		if name != "" && content != "" {
			meta[name] = content
		}
	})

	if href, ok := doc.Find(`link[rel="canonical"]`).First().Attr("href"); ok && href != "" {
		meta["canonical"] = href
	}

	if _, ok := meta["description"]; !ok {
		if p := strings.TrimSpace(doc.Find("p").First().Text()); p != "" {
			meta["autoDescription"] = describeFromParagraph(p)
		}
	}

	return meta
}

// describeFromParagraph shortens the first paragraph into a stand-in
// description. The ellipsis marks an actual cut.
func describeFromParagraph(p string) string {
	short := htmlprocessor.TruncateRunes(p, autoDescriptionRunes)
	if short != p {
		short += "..."
	}
	return short
}

// images harvests up to maxImages image references in document order.
// Relative sources resolve against base; anything that does not end up
// as an absolute http(s) URL is dropped.
func (h *Harvester) images(doc *goquery.Document, base *url.URL) []types.ImageRef {
	var images []types.ImageRef

	doc.Find("img").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if len(images) >= maxImages {
			return false
		}

		src, ok := s.Attr("src")
		if !ok {
			return true
		}
		resolved := resolveImageSrc(base, src)
		if resolved == "" {
			return true
		}

		img := types.ImageRef{Src: resolved}
		if alt, ok := s.Attr("alt"); ok {
			img.Alt = alt
		}
		if title, ok := s.Attr("title"); ok {
			img.Title = title
		}
		if w, ok := s.Attr("width"); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(w)); err == nil {
				img.Width = n
			}
		}
		if ht, ok := s.Attr("height"); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(ht)); err == nil {
				img.Height = n
			}
		}

		images = append(images, img)
		return true
	})

	return images
}

func resolveImageSrc(base *url.URL, src string) string {
	src = strings.TrimSpace(src)
	if src == "" {
		return ""
	}
	ref, err := url.Parse(src)
	if err != nil {
		return ""
	}
	if base != nil {
		ref = base.ResolveReference(ref)
	}
	if ref.Scheme != "http" && ref.Scheme != "https" {
		return ""
	}
	return ref.String()
}
