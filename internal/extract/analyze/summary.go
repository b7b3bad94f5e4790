package analyze

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"
)

// DefaultSummarySentences is the summary length used when the caller
// passes no explicit limit.
const DefaultSummarySentences = 3

// Candidate sentences must be long enough to carry meaning and short
// enough to not be a run-on paste of a whole section.
const (
	minCandidateRunes = 30
	maxCandidateRunes = 500
)

type scoredSentence struct {
	text  string
	score float64
}

// Summarize picks up to maxSentences sentences from text as an
// extractive summary. Only the earliest 2*maxSentences candidates are
// considered; each is scored by position (earlier is better) plus a
// capped length bonus, and the winners are joined in score order.
// Returns "" when no sentence qualifies.
func Summarize(text string, maxSentences int) string {
	if maxSentences <= 0 {
		maxSentences = DefaultSummarySentences
	}

	var candidates []string
	for _, s := range splitSentences(text) {
		n := utf8.RuneCountInString(s)
		if n > minCandidateRunes && n < maxCandidateRunes {
			candidates = append(candidates, s)
		}
	}
	if len(candidates) == 0 {
		return ""
	}

	poolSize := 2 * maxSentences
	if poolSize > len(candidates) {
		poolSize = len(candidates)
	}

	scored := make([]scoredSentence, 0, poolSize)
	for i, s := range candidates[:poolSize] {
		lengthBonus := math.Min(float64(utf8.RuneCountInString(s))/100, 1)
		scored = append(scored, scoredSentence{
			text:  s,
			score: float64(poolSize-i)*0.5 + lengthBonus,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	if len(scored) > maxSentences {
		scored = scored[:maxSentences]
	}

	parts := make([]string, len(scored))
	for i, s := range scored {
		parts[i] = s.text
	}
	return strings.Join(parts, ". ") + "."
}
