package cache

import (
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/readlens/engine/pkg/types"
)

// Key derives the cache key hash for a target URL, extraction mode and
// selector. The composite input guarantees that different modes or
// selectors for the same URL never collide. The response format is
// deliberately not part of the key: one cached payload serves every
// format.
func Key(url string, mode types.Mode, selector string) string {
	composite := fmt.Sprintf("%s|%s|%s", url, mode, selector)
	return fmt.Sprintf("%016x", xxhash.Sum64String(composite))
}
