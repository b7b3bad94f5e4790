// Package types defines the public request, result, and rule types shared
// by the gateway, its stores, and external consumers of the JSON API.
package types

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Format selects how an extraction result is rendered in the response body.
type Format string

// Supported output formats.
const (
	FormatJSON     Format = "json"
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

// ParseFormat validates a format query value. Empty input selects JSON.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatText, FormatMarkdown, FormatHTML:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unsupported format %q", s)
	}
}

// Mode selects how the content root is chosen from the fetched document.
type Mode string

// Supported extraction modes.
const (
	ModeReadability Mode = "readability"
	ModeFull        Mode = "full"
	ModeSelector    Mode = "selector"
)

// ParseMode validates a mode query value. Empty input selects readability.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "":
		return ModeReadability, nil
	case ModeReadability, ModeFull, ModeSelector:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unsupported mode %q", s)
	}
}

// ExtractionRequest is the decoded form of one inbound request.
// It is immutable once constructed by the gateway.
type ExtractionRequest struct {
	URL         string `json:"url"`
	Format      Format `json:"format,omitempty"`
	Mode        Mode   `json:"mode,omitempty"`
	Selector    string `json:"selector,omitempty"`
	IncludeHTML bool   `json:"includeHtml,omitempty"`
	Keywords    bool   `json:"keywords,omitempty"`
	Summary     bool   `json:"summary,omitempty"`
	MaxLength   int    `json:"maxLength,omitempty"`
	NoCache     bool   `json:"nocache,omitempty"`
}

// ContentAnalysis holds the quantitative statistics computed over the
// rendered plain text of a page.
type ContentAnalysis struct {
	WordCount                int     `json:"wordCount"`
	SentenceCount            int     `json:"sentenceCount"`
	ParagraphCount           int     `json:"paragraphCount"`
	ReadingTimeMinutes       int     `json:"readingTimeMinutes"`
	ReadabilityScore         int     `json:"readabilityScore"`
	AvgWordsPerSentence      float64 `json:"avgWordsPerSentence"`
	AvgSentencesPerParagraph float64 `json:"avgSentencesPerParagraph"`
	CharCount                int     `json:"charCount"`
	CharCountNoSpaces        int     `json:"charCountNoSpaces"`
}

// Keyword is one ranked term with its occurrence count and its share of
// the pre-filter token total, as a percentage with two decimals.
type Keyword struct {
	Term      string  `json:"term"`
	Count     int     `json:"count"`
	Frequency float64 `json:"frequency"`
}

// ImageRef describes one harvested image. Src is always an absolute
// http(s) URL.
type ImageRef struct {
	Src    string `json:"src"`
	Alt    string `json:"alt,omitempty"`
	Title  string `json:"title,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// ExtractionResult is the canonical extraction payload. The cache stores it
// with the response-time fields zeroed; the gateway fills those per request.
type ExtractionResult struct {
	URL         string            `json:"url"`
	Title       string            `json:"title,omitempty"`
	TextContent string            `json:"textContent"`
	ArticleHTML string            `json:"articleHTML,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Images      []ImageRef        `json:"images,omitempty"`
	Analysis    *ContentAnalysis  `json:"analysis,omitempty"`
	Keywords    []Keyword         `json:"keywords,omitempty"`
	Summary     string            `json:"summary,omitempty"`
	ExtractedAt time.Time         `json:"extractedAt"`

	// Response-time fields.
	RequestID string `json:"requestId,omitempty"`
	Cached    bool   `json:"cached"`
	ElapsedMs int64  `json:"elapsedMs"`
}

// Duration wraps time.Duration with extended YAML parsing support for days and weeks
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for extended duration formats
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}

	// Try standard parsing first (handles: ns, us, ms, s, m, h)
	dur, err := time.ParseDuration(s)
	if err == nil {
		*d = Duration(dur)
		return nil
	}

	// Parse extended formats: d (days), w (weeks)
	dur, err = parseExtendedDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalJSON implements json.Unmarshaler for Duration.
// Accepts both numbers (nanoseconds) and strings ("15s", "24h", "30d", "2w").
func (d *Duration) UnmarshalJSON(data []byte) error {
	var ns int64
	if err := json.Unmarshal(data, &ns); err == nil {
		*d = Duration(ns)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("duration must be a string or number, got %s", string(data))
	}

	dur, err := time.ParseDuration(s)
	if err == nil {
		*d = Duration(dur)
		return nil
	}

	dur, err = parseExtendedDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// MarshalJSON implements json.Marshaler for Duration.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// ToDuration converts types.Duration to time.Duration
func (d Duration) ToDuration() time.Duration {
	return time.Duration(d)
}

// String implements fmt.Stringer for Duration
func (d Duration) String() string {
	return time.Duration(d).String()
}

var extendedDurationRe = regexp.MustCompile(`^(-?)(\d+(?:\.\d+)?)(d|w)$`)

// parseExtendedDuration parses duration strings with extended suffixes: d (days), w (weeks)
// Examples: "30d", "2w", "1.5d"
func parseExtendedDuration(s string) (time.Duration, error) {
	matches := extendedDurationRe.FindStringSubmatch(s)
	if matches == nil {
		return 0, fmt.Errorf("invalid format, expected format like '30d' or '2w'")
	}

	sign := matches[1]
	valueStr := matches[2]
	suffix := matches[3]

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid numeric value: %w", err)
	}

	if sign == "-" {
		value = -value
	}

	var duration time.Duration
	switch suffix {
	case "d":
		duration = time.Duration(value * float64(24*time.Hour))
	case "w":
		duration = time.Duration(value * float64(7*24*time.Hour))
	default:
		return 0, fmt.Errorf("unsupported suffix %q", suffix)
	}

	return duration, nil
}
