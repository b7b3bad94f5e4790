package htmlprocessor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, htmlStr string) Document {
	t.Helper()
	doc, err := Parse([]byte(htmlStr))
	require.NoError(t, err)
	return doc
}

func TestDocument_Title(t *testing.T) {
	t.Run("basic title", func(t *testing.T) {
		doc := mustParse(t, `<!DOCTYPE html><html><head><title>Hello World</title></head><body></body></html>`)
		assert.Equal(t, "Hello World", doc.Title())
	})

	t.Run("whitespace trimmed", func(t *testing.T) {
		doc := mustParse(t, `<!DOCTYPE html><html><head><title>  Spaced  </title></head><body></body></html>`)
		assert.Equal(t, "Spaced", doc.Title())
	})

	t.Run("long title truncated to 200 runes", func(t *testing.T) {
		longTitle := strings.Repeat("a", 250)
		doc := mustParse(t, `<!DOCTYPE html><html><head><title>`+longTitle+`</title></head><body></body></html>`)
		result := doc.Title()
		assert.Len(t, []rune(result), 200)
	})

	t.Run("no title tag returns empty", func(t *testing.T) {
		doc := mustParse(t, `<!DOCTYPE html><html><head></head><body></body></html>`)
		assert.Equal(t, "", doc.Title())
	})

	t.Run("whitespace only title returns empty", func(t *testing.T) {
		doc := mustParse(t, `<!DOCTYPE html><html><head><title>   </title></head><body></body></html>`)
		assert.Equal(t, "", doc.Title())
	})
}

func TestDocument_StripNonContent(t *testing.T) {
	t.Run("removes script style and chrome elements", func(t *testing.T) {
		doc := mustParse(t, `<!DOCTYPE html><html><head><style>p{color:red}</style></head>
			<body>
				<nav>menu items</nav>
				<header>site header</header>
				<script>var x = 1;</script>
				<p>real content</p>
				<noscript>enable js</noscript>
				<footer>copyright</footer>
			</body></html>`)

		removed := doc.StripNonContent()
		assert.True(t, removed)

		out := string(doc.HTML())
		assert.Contains(t, out, "real content")
		assert.NotContains(t, out, "menu items")
		assert.NotContains(t, out, "site header")
		assert.NotContains(t, out, "var x = 1")
		assert.NotContains(t, out, "enable js")
		assert.NotContains(t, out, "copyright")
		assert.NotContains(t, out, "color:red")
	})

	t.Run("removes adjacent siblings", func(t *testing.T) {
		// Two removable nodes next to each other exercise the
		// collect-then-detach ordering.
		doc := mustParse(t, `<html><body><script>a</script><script>b</script><p>keep</p></body></html>`)

		assert.True(t, doc.StripNonContent())

		out := string(doc.HTML())
		assert.NotContains(t, out, "script")
		assert.Contains(t, out, "keep")
	})

	t.Run("nothing to remove", func(t *testing.T) {
		doc := mustParse(t, `<html><body><p>plain</p></body></html>`)
		assert.False(t, doc.StripNonContent())
	})

	t.Run("nested content inside removed subtree goes too", func(t *testing.T) {
		doc := mustParse(t, `<html><body><nav><ul><li><a href="/x">link text</a></li></ul></nav><p>body</p></body></html>`)

		doc.StripNonContent()

		out := string(doc.HTML())
		assert.NotContains(t, out, "link text")
		assert.Contains(t, out, "body")
	})
}

func TestDocument_BodyHTML(t *testing.T) {
	t.Run("serializes body children only", func(t *testing.T) {
		doc := mustParse(t, `<html><head><title>T</title></head><body><p>one</p><div>two</div></body></html>`)

		out := string(doc.BodyHTML())
		assert.Equal(t, "<p>one</p><div>two</div>", out)
	})

	t.Run("empty body", func(t *testing.T) {
		doc := mustParse(t, `<html><head></head><body></body></html>`)
		assert.Empty(t, doc.BodyHTML())
	})
}

func TestDocument_Body(t *testing.T) {
	doc := mustParse(t, `<html><body><p>x</p></body></html>`)
	body := doc.Body()
	require.NotNil(t, body)
	assert.Equal(t, "body", body.Data)
}

func TestDocument_HTML_RoundTrip(t *testing.T) {
	doc := mustParse(t, `<html><head></head><body><p>content</p></body></html>`)

	out := doc.HTML()
	require.NotNil(t, out)

	reparsed, err := Parse(out)
	require.NoError(t, err)
	assert.Equal(t, string(out), string(reparsed.HTML()))
}
