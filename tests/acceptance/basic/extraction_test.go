package acceptance_test

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/readlens/engine/pkg/types"
)

// uniqueArticleURL builds a distinct target URL per test so cached state
// never leaks between tests even if cleanup is skipped.
func uniqueArticleURL() string {
	return fmt.Sprintf("https://articles.example.com/%s", uuid.NewString())
}

func seededArticle(targetURL string) *types.ExtractionResult {
	return &types.ExtractionResult{
		URL:         targetURL,
		Title:       "The Test Article",
		TextContent: "This is the stored article body. It has enough text to exercise truncation and formatting.",
		ArticleHTML: "<h1>The Test Article</h1><p>This is the <strong>stored</strong> article body with <em>markup</em>.</p>",
		Metadata:    map[string]string{"author": "Test Author"},
		ExtractedAt: time.Now().UTC().Truncate(time.Second),
	}
}

var _ = Describe("Cached Extraction", Serial, func() {
	Context("when a result is cached for the target URL", func() {
		It("should serve the cached result as JSON", func() {
			targetURL := uniqueArticleURL()

			By("Seeding a cached extraction result")
			Expect(testEnv.SeedCachedResult(targetURL, types.ModeReadability, seededArticle(targetURL))).To(Succeed())

			By("Requesting the URL")
			response := testEnv.RequestExtract(targetURL)

			Expect(response.Error).To(BeNil())
			Expect(response.StatusCode).To(Equal(200))
			Expect(response.Headers.Get("Content-Type")).To(ContainSubstring("application/json"))

			By("Verifying the response came from the cache")
			Expect(response.Headers.Get("X-Extract-Source")).To(Equal("cache"))

			result, err := DecodeExtractionResult(response.Body)
			Expect(err).To(BeNil())
			Expect(result.Title).To(Equal("The Test Article"))
			Expect(result.URL).To(Equal(targetURL))
			Expect(result.Cached).To(BeTrue())
			Expect(result.RequestID).NotTo(BeEmpty())
			Expect(result.RequestID).To(Equal(response.Headers.Get("X-Request-Id")))

			By("Verifying article HTML is omitted unless requested")
			Expect(result.ArticleHTML).To(BeEmpty())
		})

		It("should include article HTML when includeHtml is set", func() {
			targetURL := uniqueArticleURL()
			Expect(testEnv.SeedCachedResult(targetURL, types.ModeReadability, seededArticle(targetURL))).To(Succeed())

			response := testEnv.RequestExtractWithQuery(targetURL, "includeHtml=true")

			Expect(response.Error).To(BeNil())
			Expect(response.StatusCode).To(Equal(200))

			result, err := DecodeExtractionResult(response.Body)
			Expect(err).To(BeNil())
			Expect(result.ArticleHTML).To(ContainSubstring("<h1>The Test Article</h1>"))
		})

		It("should render the text format as plain text", func() {
			targetURL := uniqueArticleURL()
			article := seededArticle(targetURL)
			Expect(testEnv.SeedCachedResult(targetURL, types.ModeReadability, article)).To(Succeed())

			response := testEnv.RequestExtractWithQuery(targetURL, "format=text")

			Expect(response.Error).To(BeNil())
			Expect(response.StatusCode).To(Equal(200))
			Expect(response.Headers.Get("Content-Type")).To(ContainSubstring("text/plain"))
			Expect(response.Body).To(Equal(article.TextContent))
		})

		It("should truncate text output at maxLength characters", func() {
			targetURL := uniqueArticleURL()
			Expect(testEnv.SeedCachedResult(targetURL, types.ModeReadability, seededArticle(targetURL))).To(Succeed())

			response := testEnv.RequestExtractWithQuery(targetURL, "format=text&maxLength=11")

			Expect(response.Error).To(BeNil())
			Expect(response.StatusCode).To(Equal(200))
			Expect(response.Body).To(Equal("This is the"))
		})

		It("should render the markdown format", func() {
			targetURL := uniqueArticleURL()
			Expect(testEnv.SeedCachedResult(targetURL, types.ModeReadability, seededArticle(targetURL))).To(Succeed())

			response := testEnv.RequestExtractWithQuery(targetURL, "format=markdown")

			Expect(response.Error).To(BeNil())
			Expect(response.StatusCode).To(Equal(200))
			Expect(response.Headers.Get("Content-Type")).To(ContainSubstring("text/markdown"))
			Expect(response.Body).To(ContainSubstring("# The Test Article"))
			Expect(response.Body).To(ContainSubstring("**stored**"))
			Expect(response.Body).To(ContainSubstring("*markup*"))
		})

		It("should render the html format with the article markup", func() {
			targetURL := uniqueArticleURL()
			article := seededArticle(targetURL)
			Expect(testEnv.SeedCachedResult(targetURL, types.ModeReadability, article)).To(Succeed())

			response := testEnv.RequestExtractWithQuery(targetURL, "format=html")

			Expect(response.Error).To(BeNil())
			Expect(response.StatusCode).To(Equal(200))
			Expect(response.Headers.Get("Content-Type")).To(ContainSubstring("text/html"))
			Expect(response.Body).To(Equal(article.ArticleHTML))
		})

		It("should serve repeated requests from the same cache entry", func() {
			targetURL := uniqueArticleURL()
			Expect(testEnv.SeedCachedResult(targetURL, types.ModeReadability, seededArticle(targetURL))).To(Succeed())

			By("Making several requests for the same URL")
			for i := 0; i < 3; i++ {
				response := testEnv.RequestExtract(targetURL)
				Expect(response.Error).To(BeNil())
				Expect(response.StatusCode).To(Equal(200))
				Expect(response.Headers.Get("X-Extract-Source")).To(Equal("cache"))
			}

			By("Verifying the entry is still present")
			Expect(testEnv.CachedResultExists(targetURL, types.ModeReadability)).To(BeTrue())
		})
	})

	Context("when nocache is requested", func() {
		It("should bypass the cache and go upstream", func() {
			// An .invalid host cannot resolve, so the only way this URL
			// returns 200 is through the seeded cache entry.
			targetURL := "https://nocache-check.readlens-test.invalid/article"
			Expect(testEnv.SeedCachedResult(targetURL, types.ModeReadability, seededArticle(targetURL))).To(Succeed())

			By("Requesting without nocache serves the seeded entry")
			cachedResponse := testEnv.RequestExtract(targetURL)
			Expect(cachedResponse.Error).To(BeNil())
			Expect(cachedResponse.StatusCode).To(Equal(200))
			Expect(cachedResponse.Headers.Get("X-Extract-Source")).To(Equal("cache"))

			By("Requesting with nocache skips the entry and fails upstream")
			liveResponse := testEnv.RequestExtractWithQuery(targetURL, "nocache=1")
			Expect(liveResponse.Error).To(BeNil())
			Expect(liveResponse.StatusCode).To(Equal(502))

			payload, err := DecodeErrorPayload(liveResponse.Body)
			Expect(err).To(BeNil())
			Expect(payload.Error).To(Equal("upstream"))
		})
	})
})
