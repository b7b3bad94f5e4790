package acceptance_test

import (
	"os"
	"os/exec"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/readlens/engine/tests/acceptance/basic/testutil"
)

// runConfigTest invokes the gateway binary in config test mode and
// returns its combined output plus the run error (non-nil on exit 1).
func runConfigTest(args ...string) (string, error) {
	gatewayPath := filepath.Join("..", "..", "..", "cmd", "extract-gateway")

	cmdArgs := append([]string{"run", "."}, args...)
	cmd := exec.Command("go", cmdArgs...)
	cmd.Dir = gatewayPath

	output, err := cmd.CombinedOutput()
	return string(output), err
}

var _ = Describe("Config Test Mode", Serial, func() {
	Context("when validating the generated config", func() {
		It("should accept the config the suite runs with", func() {
			By("Running the gateway with -t against the live config")
			output, err := runConfigTest("-c", testEnv.ConfigPath, "-t")

			Expect(err).To(BeNil(), "config test should exit 0, output:\n%s", output)
			Expect(output).To(ContainSubstring("syntax is ok"))
			Expect(output).To(ContainSubstring("configuration test is successful"))
		})

		It("should reject a config with an invalid log level", func() {
			By("Writing a config with a bogus log level")
			tempDir := GinkgoT().TempDir()
			badConfig := filepath.Join(tempDir, "gateway.yaml")
			content := "server:\n  listen: \":10099\"\nlog:\n  level: verbose\n"
			Expect(os.WriteFile(badConfig, []byte(content), 0644)).To(Succeed())

			By("Running the gateway with -t against it")
			output, err := runConfigTest("-c", badConfig, "-t")

			Expect(err).NotTo(BeNil(), "config test should exit non-zero")
			Expect(output).To(ContainSubstring("Configuration validation FAILED"))
			Expect(output).To(ContainSubstring("invalid log.level 'verbose'"))
		})
	})

	Context("when testing a URL against the config", func() {
		It("should describe the policy for an ordinary URL", func() {
			output, err := runConfigTest("-c", testEnv.ConfigPath, "-t", "https://articles.example.com/policy-check")

			Expect(err).To(BeNil(), "URL test should exit 0, output:\n%s", output)
			Expect(output).To(ContainSubstring("Testing URL: https://articles.example.com/policy-check"))
			Expect(output).To(ContainSubstring("Matched Rule: (default)"))
			Expect(output).To(ContainSubstring("Action: extract"))
			Expect(output).To(ContainSubstring("Mode: readability"))
			Expect(output).To(ContainSubstring("Cache Key: "))
		})

		It("should report the forced mode for a rule-matched URL", func() {
			output, err := runConfigTest("-c", testEnv.ConfigPath, "-t", "https://"+testutil.ForcedModeDomain+"/guide")

			Expect(err).To(BeNil())
			Expect(output).To(ContainSubstring("Matched Rule: " + testutil.ForcedModeDomain + "/*"))
			Expect(output).To(ContainSubstring("Action: extract"))
			Expect(output).To(ContainSubstring("Mode: full"))
		})

		It("should report blocked URLs", func() {
			output, err := runConfigTest("-c", testEnv.ConfigPath, "-t", "https://"+testutil.BlockedDomain+"/x")

			Expect(err).To(BeNil())
			Expect(output).To(ContainSubstring("Matched Rule: " + testutil.BlockedDomain + "/*"))
			Expect(output).To(ContainSubstring("Action: block"))
		})

		It("should report URLs the validator rejects", func() {
			output, err := runConfigTest("-c", testEnv.ConfigPath, "-t", "http://localhost/admin")

			Expect(err).To(BeNil())
			Expect(output).To(ContainSubstring("Result: REJECTED"))
		})
	})
})
