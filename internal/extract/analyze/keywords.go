package analyze

import (
	"math"
	"sort"
	"strings"

	"github.com/readlens/engine/pkg/types"
)

// DefaultMaxKeywords caps the keyword list when the caller passes no
// explicit limit.
const DefaultMaxKeywords = 15

// stopWords are skipped during keyword counting. Entries of three
// characters or fewer are already excluded by the length filter and
// are listed only for completeness.
var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {},
	"in": {}, "on": {}, "at": {}, "to": {}, "for": {}, "of": {},
	"with": {}, "by": {}, "from": {}, "as": {}, "is": {}, "are": {},
	"was": {}, "were": {}, "be": {}, "been": {}, "have": {}, "has": {},
	"had": {}, "do": {}, "does": {}, "did": {}, "will": {}, "would": {},
	"could": {}, "should": {}, "this": {}, "that": {}, "these": {},
	"those": {},
}

// Keywords ranks the most frequent terms of text. Tokens are
// lower-cased and stripped to letters and digits, then dropped when
// the remainder is at most three characters or a stop word. Frequency
// is each term's share of the pre-filter token count, as a percentage
// with two decimals. Ties keep first-seen order.
func Keywords(text string, maxKeywords int) []types.Keyword {
	if maxKeywords <= 0 {
		maxKeywords = DefaultMaxKeywords
	}

	tokens := strings.Fields(strings.ToLower(text))
	totalTokens := len(tokens)
	if totalTokens == 0 {
		return nil
	}

	counts := make(map[string]int)
	order := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		tok = stripToken(tok)
		if len(tok) <= 3 {
			continue
		}
		if _, stop := stopWords[tok]; stop {
			continue
		}
		if _, seen := counts[tok]; !seen {
			order = append(order, tok)
		}
		counts[tok]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	if len(order) > maxKeywords {
		order = order[:maxKeywords]
	}

	keywords := make([]types.Keyword, 0, len(order))
	for _, term := range order {
		count := counts[term]
		keywords = append(keywords, types.Keyword{
			Term:      term,
			Count:     count,
			Frequency: math.Round(float64(count)/float64(totalTokens)*10000) / 100,
		})
	}
	return keywords
}

// stripToken removes every rune that is not a lowercase ASCII letter
// or digit. Input is already lower-cased.
func stripToken(tok string) string {
	return strings.Map(func(r rune) rune {
		if ('a' <= r && r <= 'z') || ('0' <= r && r <= '9') {
			return r
		}
		return -1
	}, tok)
}
