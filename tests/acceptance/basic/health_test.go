package acceptance_test

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Health And Status", Serial, func() {
	Context("when checking liveness and readiness", func() {
		It("should report healthy on /health", func() {
			By("Requesting the health endpoint")
			response := testEnv.RequestPath("/health")

			Expect(response.Error).To(BeNil())
			Expect(response.StatusCode).To(Equal(200))
			Expect(response.Body).To(Equal("OK"))
		})

		It("should report ready on /ready while serving", func() {
			By("Requesting the readiness endpoint")
			response := testEnv.RequestPath("/ready")

			Expect(response.Error).To(BeNil())
			Expect(response.StatusCode).To(Equal(200))
			Expect(response.Body).To(Equal("OK"))
		})

		It("should tag every response with a request ID", func() {
			response := testEnv.RequestPath("/health")

			Expect(response.Error).To(BeNil())
			Expect(response.Headers.Get("X-Request-Id")).NotTo(BeEmpty())
		})
	})

	Context("when inspecting runtime status", func() {
		It("should expose store kinds and process stats", func() {
			By("Requesting the status endpoint")
			response := testEnv.RequestPath("/status")

			Expect(response.Error).To(BeNil())
			Expect(response.StatusCode).To(Equal(200))
			Expect(response.Headers.Get("Content-Type")).To(ContainSubstring("application/json"))

			By("Verifying the status payload")
			var status struct {
				Version        string `json:"version"`
				UptimeSeconds  int64  `json:"uptimeSeconds"`
				Goroutines     int    `json:"goroutines"`
				CacheStore     string `json:"cacheStore"`
				RateLimitStore string `json:"rateLimitStore"`
			}
			Expect(json.Unmarshal([]byte(response.Body), &status)).To(Succeed())

			Expect(status.Version).NotTo(BeEmpty())
			Expect(status.Goroutines).To(BeNumerically(">", 0))
			Expect(status.UptimeSeconds).To(BeNumerically(">=", 0))

			By("Verifying the gateway picked the Redis-backed stores")
			Expect(status.CacheStore).To(Equal("redis"))
			Expect(status.RateLimitStore).To(Equal("redis"))
		})
	})

	Context("when scraping the metrics listener", func() {
		It("should serve prometheus metrics on the dedicated port", func() {
			By("Requesting the metrics endpoint")
			client := &http.Client{Timeout: 5 * time.Second}
			resp, err := client.Get(testEnv.Config.MetricsBaseURL() + "/metrics")

			Expect(err).To(BeNil())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(200))

			body, err := io.ReadAll(resp.Body)
			Expect(err).To(BeNil())

			By("Verifying gateway metrics are registered under the configured namespace")
			Expect(string(body)).To(ContainSubstring("readlens_inflight_extractions"))
			Expect(string(body)).To(ContainSubstring("readlens_cache_hit_ratio"))
		})
	})
})
