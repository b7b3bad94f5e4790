package configtest

import (
	"fmt"
	"time"
)

// PrintURLTestResult prints a URL test result in the command line format.
func PrintURLTestResult(result *URLTestResult) {
	fmt.Printf("\nTesting URL: %s\n", result.URL)

	if result.Rejected {
		fmt.Printf("Result: REJECTED (%s)\n", result.Reason)
		return
	}

	fmt.Printf("Canonical URL: %s\n", result.CanonicalURL)
	fmt.Println()

	if result.MatchedRule != nil {
		patterns := result.MatchedRule.MatchPatterns()
		if len(patterns) > 0 {
			fmt.Printf("Matched Rule: %s\n", patterns[0])
		}
	} else {
		fmt.Println("Matched Rule: (default)")
	}

	if result.Blocked {
		fmt.Println("Action: block")
		return
	}

	fmt.Println("Action: extract")
	fmt.Printf("Mode: %s\n", result.Mode)

	if result.CacheEnabled {
		fmt.Printf("Cache TTL: %s (%s)\n", formatDuration(result.CacheTTL), formatHumanDuration(result.CacheTTL))
		fmt.Printf("Cache Key: %s\n", result.CacheKey)
	} else {
		fmt.Println("Cache: disabled")
	}
}

// formatDuration formats a duration in seconds format
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.0fs", d.Seconds())
}

// formatHumanDuration formats a duration in human-readable format
func formatHumanDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
	return fmt.Sprintf("%dd", int(d.Hours()/24))
}
