package acceptance_test

import (
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/readlens/engine/pkg/types"
)

var _ = Describe("Rate Limiting", Serial, func() {
	Context("when a client exceeds the request threshold", func() {
		It("should reject the request over the limit with 429", func() {
			threshold := testEnv.Config.RateLimit.Threshold
			Expect(threshold).To(BeNumerically(">", 0), "threshold must be configured for this spec")

			targetURL := uniqueArticleURL()
			Expect(testEnv.SeedCachedResult(targetURL, types.ModeReadability, seededArticle(targetURL))).To(Succeed())

			By(fmt.Sprintf("Making %d requests within the window", threshold))
			for i := 0; i < threshold; i++ {
				response := testEnv.RequestExtract(targetURL)
				Expect(response.Error).To(BeNil())
				Expect(response.StatusCode).To(Equal(200),
					"request %d of %d should be allowed", i+1, threshold)
			}

			By("Verifying the next request is limited")
			limited := testEnv.RequestExtract(targetURL)
			Expect(limited.Error).To(BeNil())
			Expect(limited.StatusCode).To(Equal(429))

			payload, err := DecodeErrorPayload(limited.Body)
			Expect(err).To(BeNil())
			Expect(payload.Error).To(Equal("rate_limited"))
			Expect(payload.Message).To(ContainSubstring("retry later"))
		})

		It("should not limit system endpoints", func() {
			threshold := testEnv.Config.RateLimit.Threshold
			targetURL := uniqueArticleURL()
			Expect(testEnv.SeedCachedResult(targetURL, types.ModeReadability, seededArticle(targetURL))).To(Succeed())

			By("Exhausting the extraction budget")
			for i := 0; i < threshold+1; i++ {
				testEnv.RequestExtract(targetURL)
			}
			Expect(testEnv.RequestExtract(targetURL).StatusCode).To(Equal(429))

			By("Verifying health checks still pass")
			Expect(testEnv.RequestPath("/health").StatusCode).To(Equal(200))
			Expect(testEnv.RequestPath("/ready").StatusCode).To(Equal(200))
		})

		It("should keep rejecting requests for the rest of the window", func() {
			threshold := testEnv.Config.RateLimit.Threshold
			targetURL := uniqueArticleURL()
			Expect(testEnv.SeedCachedResult(targetURL, types.ModeReadability, seededArticle(targetURL))).To(Succeed())

			By("Exhausting the budget")
			for i := 0; i < threshold; i++ {
				testEnv.RequestExtract(targetURL)
			}

			By("Verifying repeated over-limit requests keep getting 429")
			for i := 0; i < 3; i++ {
				Expect(testEnv.RequestExtract(targetURL).StatusCode).To(Equal(429))
			}
		})
	})
})
