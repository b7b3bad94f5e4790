package acceptance_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Error Handling", Serial, func() {
	Context("when the request is malformed", func() {
		It("should reject a request without a target URL", func() {
			By("Requesting /extract with no url parameter")
			response := testEnv.RequestPath("/extract")

			Expect(response.Error).To(BeNil())
			Expect(response.StatusCode).To(Equal(400))

			By("Verifying the structured error payload")
			payload, err := DecodeErrorPayload(response.Body)
			Expect(err).To(BeNil())
			Expect(payload.Error).To(Equal("input"))
			Expect(payload.Message).To(ContainSubstring("missing target URL"))
			Expect(payload.RequestID).NotTo(BeEmpty())

			By("Verifying the request ID header matches the payload")
			Expect(response.Headers.Get("X-Request-Id")).To(Equal(payload.RequestID))
		})

		It("should reject an unsupported format", func() {
			response := testEnv.RequestExtractWithQuery("https://example.com/a", "format=xml")

			Expect(response.Error).To(BeNil())
			Expect(response.StatusCode).To(Equal(400))

			payload, err := DecodeErrorPayload(response.Body)
			Expect(err).To(BeNil())
			Expect(payload.Error).To(Equal("input"))
			Expect(payload.Message).To(ContainSubstring("unsupported format"))
		})

		It("should reject an unsupported extraction mode", func() {
			response := testEnv.RequestExtractWithQuery("https://example.com/a", "mode=magic")

			Expect(response.Error).To(BeNil())
			Expect(response.StatusCode).To(Equal(400))

			payload, err := DecodeErrorPayload(response.Body)
			Expect(err).To(BeNil())
			Expect(payload.Error).To(Equal("input"))
			Expect(payload.Message).To(ContainSubstring("unsupported mode"))
		})

		It("should reject selector mode without a selector", func() {
			response := testEnv.RequestExtractWithQuery("https://example.com/a", "mode=selector")

			Expect(response.Error).To(BeNil())
			Expect(response.StatusCode).To(Equal(400))

			payload, err := DecodeErrorPayload(response.Body)
			Expect(err).To(BeNil())
			Expect(payload.Message).To(ContainSubstring("requires a selector"))
		})

		It("should reject a malformed JSON body", func() {
			response := testEnv.RequestExtractPOST(`{"url": "https://example.com/a"`, "application/json")

			Expect(response.Error).To(BeNil())
			Expect(response.StatusCode).To(Equal(400))

			payload, err := DecodeErrorPayload(response.Body)
			Expect(err).To(BeNil())
			Expect(payload.Error).To(Equal("input"))
			Expect(payload.Message).To(ContainSubstring("malformed JSON body"))
		})
	})

	Context("when the route does not match", func() {
		It("should return 404 for unknown paths", func() {
			response := testEnv.RequestPath("/unknown/path")

			Expect(response.Error).To(BeNil())
			Expect(response.StatusCode).To(Equal(404))

			payload, err := DecodeErrorPayload(response.Body)
			Expect(err).To(BeNil())
			Expect(payload.Error).To(Equal("input"))
			Expect(payload.RequestID).NotTo(BeEmpty())
		})

		It("should return 405 for unsupported methods", func() {
			response := testEnv.RequestMethod("PUT", "/extract?url=https%3A%2F%2Fexample.com%2Fa")

			Expect(response.Error).To(BeNil())
			Expect(response.StatusCode).To(Equal(405))
		})
	})

	Context("when the upstream fetch fails", func() {
		It("should map unresolvable hosts to a 502 upstream error", func() {
			By("Requesting a host that cannot resolve")
			response := testEnv.RequestExtract("https://no-such-host.readlens-test.invalid/article")

			Expect(response.Error).To(BeNil())
			Expect(response.StatusCode).To(Equal(502))

			By("Verifying the error payload hides transport details")
			payload, err := DecodeErrorPayload(response.Body)
			Expect(err).To(BeNil())
			Expect(payload.Error).To(Equal("upstream"))
			Expect(payload.RequestID).NotTo(BeEmpty())
		})
	})
})
