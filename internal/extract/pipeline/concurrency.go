package pipeline

import (
	"github.com/shirou/gopsutil/v4/mem"
)

const (
	minConcurrent = 8
	maxConcurrent = 512

	// Reserve 1GB for the runtime and neighboring processes
	reservedBytes = int64(1 << 30)

	// Working-set estimate per in-flight extraction: fetched body,
	// parsed DOM and analysis buffers
	perExtractionBytes = int64(64 << 20)
)

// concurrencyLimit returns the configured cap, or a cap derived from
// system memory when the config leaves it unset.
func concurrencyLimit(configured int) int {
	if configured > 0 {
		return configured
	}
	return autoConcurrencyLimit()
}

// autoConcurrencyLimit sizes the in-flight extraction cap from system RAM
func autoConcurrencyLimit() int {
	// Get actual system memory using gopsutil
	v, err := mem.VirtualMemory()
	var totalRAMBytes int64

	if err != nil {
		// Fallback to conservative estimate if we can't read system memory
		totalRAMBytes = int64(8 * 1024 * 1024 * 1024) // 8GB fallback
	} else {
		totalRAMBytes = int64(v.Total)
	}

	availableBytes := totalRAMBytes - reservedBytes
	limit := int(availableBytes / perExtractionBytes)

	// Safety limits
	if limit < minConcurrent {
		limit = minConcurrent
	}
	if limit > maxConcurrent {
		limit = maxConcurrent
	}

	return limit
}
