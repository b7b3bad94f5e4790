// Package analyze computes derived signals over rendered plain text:
// quantitative statistics, ranked keywords and a short extractive
// summary. Everything here is a pure function of its input text.
package analyze

import (
	"math"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/readlens/engine/pkg/types"
)

const wordsPerMinute = 200

// minSentenceRunes is the trimmed length a fragment must exceed to be
// counted as a sentence. Shorter fragments are mostly abbreviations
// and list markers.
const minSentenceRunes = 10

var blankLineSplit = regexp.MustCompile(`\n\s*\n`)

// splitSentences breaks text on runs of sentence punctuation and
// returns the trimmed non-empty fragments. Callers apply their own
// length filters.
func splitSentences(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})

	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// Stats computes the content statistics for text. All character
// figures are rune counts, so multi-byte text is not over-counted.
func Stats(text string) *types.ContentAnalysis {
	wordCount := len(strings.Fields(text))

	sentenceCount := 0
	for _, s := range splitSentences(text) {
		if utf8.RuneCountInString(s) > minSentenceRunes {
			sentenceCount++
		}
	}

	paragraphCount := 0
	for _, p := range blankLineSplit.Split(text, -1) {
		if strings.TrimSpace(p) != "" {
			paragraphCount++
		}
	}

	readingTime := int(math.Ceil(float64(wordCount) / wordsPerMinute))
	if readingTime < 1 {
		readingTime = 1
	}

	var avgWords float64
	if sentenceCount > 0 {
		avgWords = float64(wordCount) / float64(sentenceCount)
	}
	var avgSentences float64
	if paragraphCount > 0 {
		avgSentences = float64(sentenceCount) / float64(paragraphCount)
	}

	// An inverse-length heuristic, not Flesch-Kincaid: long average
	// sentences push the score toward zero.
	readability := 100 - 1.5*avgWords
	if readability < 0 {
		readability = 0
	}
	if readability > 100 {
		readability = 100
	}

	noSpaces := 0
	for _, r := range text {
		if !unicode.IsSpace(r) {
			noSpaces++
		}
	}

	return &types.ContentAnalysis{
		WordCount:                wordCount,
		SentenceCount:            sentenceCount,
		ParagraphCount:           paragraphCount,
		ReadingTimeMinutes:       readingTime,
		ReadabilityScore:         int(math.Round(readability)),
		AvgWordsPerSentence:      round1(avgWords),
		AvgSentencesPerParagraph: round1(avgSentences),
		CharCount:                utf8.RuneCountInString(text),
		CharCountNoSpaces:        noSpaces,
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
