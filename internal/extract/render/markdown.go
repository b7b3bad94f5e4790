package render

import (
	"fmt"
	"html"
	"regexp"
	"strings"
)

// mdRule is one substitution step of the Markdown pipeline. Rules run
// in a fixed order over the raw fragment string; later rules see the
// output of earlier ones.
type mdRule struct {
	re   *regexp.Regexp
	repl string
}

// markdownRules convert HTML constructs to Markdown one tag kind at a
// time. The flat, order-dependent approach trades exact nesting
// fidelity for speed and robustness against malformed markup: a
// mis-nested document still produces usable Markdown instead of a
// parse error.
var markdownRules = buildMarkdownRules()

func buildMarkdownRules() []mdRule {
	rules := make([]mdRule, 0, 24)

	// Headings first, so their inner formatting tags are still intact
	// when the emphasis rules run.
	for level := 1; level <= 6; level++ {
		rules = append(rules, mdRule{
			re:   regexp.MustCompile(fmt.Sprintf(`(?is)<h%d(?:\s[^>]*)?>(.*?)</h%d>`, level, level)),
			repl: "\n\n" + strings.Repeat("#", level) + " ${1}\n\n",
		})
	}

	rules = append(rules,
		// Emphasis. The (?:\s[^>]*)? attribute tail keeps <b> from
		// matching <br> and <i> from matching <img>.
		mdRule{regexp.MustCompile(`(?is)<strong(?:\s[^>]*)?>(.*?)</strong>`), "**${1}**"},
		mdRule{regexp.MustCompile(`(?is)<b(?:\s[^>]*)?>(.*?)</b>`), "**${1}**"},
		mdRule{regexp.MustCompile(`(?is)<em(?:\s[^>]*)?>(.*?)</em>`), "*${1}*"},
		mdRule{regexp.MustCompile(`(?is)<i(?:\s[^>]*)?>(.*?)</i>`), "*${1}*"},

		// Links require an href; anchors without one fall through to
		// the final strip rule.
		mdRule{regexp.MustCompile(`(?is)<a\s[^>]*?href=["']([^"']*)["'][^>]*>(.*?)</a>`), "[${2}](${1})"},

		// Images, covering both attribute orders. An <img> carrying
		// only one of the attributes is dropped by the strip rule.
		mdRule{regexp.MustCompile(`(?i)<img[^>]*?src=["']([^"']*)["'][^>]*?alt=["']([^"']*)["'][^>]*?/?>`), "![${2}](${1})"},
		mdRule{regexp.MustCompile(`(?i)<img[^>]*?alt=["']([^"']*)["'][^>]*?src=["']([^"']*)["'][^>]*?/?>`), "![${1}](${2})"},

		// List items become dashes; the surrounding ul/ol wrappers are
		// stripped at the end, so nesting depth is not preserved.
		mdRule{regexp.MustCompile(`(?is)<li(?:\s[^>]*)?>(.*?)</li>`), "- ${1}\n"},

		// Code, block form before inline so a <code> nested in <pre>
		// ends up inside the fence.
		mdRule{regexp.MustCompile(`(?is)<pre(?:\s[^>]*)?>(.*?)</pre>`), "\n```\n${1}\n```\n"},
		mdRule{regexp.MustCompile("(?is)<code(?:\\s[^>]*)?>(.*?)</code>"), "`${1}`"},

		// Structural containers and explicit breaks turn into
		// newlines; the cleanup pass collapses any excess.
		mdRule{regexp.MustCompile(`(?i)<br\s*/?>`), "\n"},
		mdRule{regexp.MustCompile(`(?i)</?(?:p|div|section|article|main|footer)(?:\s[^>]*)?>`), "\n"},

		// Everything still tag-shaped is discarded.
		mdRule{regexp.MustCompile(`(?s)<[^>]+>`), ""},
	)

	return rules
}

var (
	excessNewlines   = regexp.MustCompile(`\n{3,}`)
	spaceBeforeBreak = regexp.MustCompile(`[ \t]+\n`)
	spaceAfterBreak  = regexp.MustCompile(`\n[ \t]+`)
)

// Markdown renders an HTML fragment as Markdown by applying the rule
// pipeline to the raw string. Entities are decoded only after all tag
// rules have run, so literal markup in text (&lt;div&gt;) is never
// mistaken for structure.
func Markdown(fragment string) string {
	out := fragment
	for _, rule := range markdownRules {
		out = rule.re.ReplaceAllString(out, rule.repl)
	}

	out = excessNewlines.ReplaceAllString(out, "\n\n")
	out = spaceBeforeBreak.ReplaceAllString(out, "\n")
	out = spaceAfterBreak.ReplaceAllString(out, "\n")
	out = html.UnescapeString(out)
	return strings.TrimSpace(out)
}
