package acceptance_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/readlens/engine/pkg/types"
	"github.com/readlens/engine/tests/acceptance/basic/testutil"
)

var _ = Describe("Site Rules", Serial, func() {
	Context("when a rule blocks the domain", func() {
		It("should reject requests for the blocked domain", func() {
			response := testEnv.RequestExtract("https://" + testutil.BlockedDomain + "/any/article")

			Expect(response.Error).To(BeNil())
			Expect(response.StatusCode).To(Equal(403))

			payload, err := DecodeErrorPayload(response.Body)
			Expect(err).To(BeNil())
			Expect(payload.Error).To(Equal("security"))
		})

		It("should block the domain even when a cached result exists", func() {
			targetURL := "https://" + testutil.BlockedDomain + "/cached/article"

			By("Seeding a cached result for the blocked URL")
			Expect(testEnv.SeedCachedResult(targetURL, types.ModeReadability, seededArticle(targetURL))).To(Succeed())

			By("Verifying the rule fires before the cache lookup")
			response := testEnv.RequestExtract(targetURL)
			Expect(response.Error).To(BeNil())
			Expect(response.StatusCode).To(Equal(403))
		})
	})

	Context("when a rule forces the extraction mode", func() {
		It("should key the cache under the forced mode", func() {
			targetURL := "https://" + testutil.ForcedModeDomain + "/guide"

			By("Seeding the result under the forced mode")
			Expect(testEnv.SeedCachedResult(targetURL, types.ModeFull, seededArticle(targetURL))).To(Succeed())

			By("Requesting without an explicit mode")
			response := testEnv.RequestExtract(targetURL)

			Expect(response.Error).To(BeNil())
			Expect(response.StatusCode).To(Equal(200))
			Expect(response.Headers.Get("X-Extract-Source")).To(Equal("cache"))

			By("Verifying nothing was stored under the default mode")
			Expect(testEnv.CachedResultExists(targetURL, types.ModeReadability)).To(BeFalse())
		})

		It("should override an explicitly requested mode", func() {
			targetURL := "https://" + testutil.ForcedModeDomain + "/reference"
			Expect(testEnv.SeedCachedResult(targetURL, types.ModeFull, seededArticle(targetURL))).To(Succeed())

			By("Requesting with mode=readability on the forced domain")
			response := testEnv.RequestExtractWithQuery(targetURL, "mode=readability")

			Expect(response.Error).To(BeNil())
			Expect(response.StatusCode).To(Equal(200))
			Expect(response.Headers.Get("X-Extract-Source")).To(Equal("cache"))
		})
	})
})
