package mcdb

import arc "github.com/hashicorp/golang-lru/arc/v2"

// newValueCache builds the per-Handle ARC cache used by ReadValue when a DB
// was opened with WithValueCache. Grounded on opencoff-go-mph/dbreader.go's
// identical use of arc.NewARC for a decoded-record cache.
func newValueCache(size int) (*arc.ARCCache[cacheKey, []byte], error) {
	return arc.NewARC[cacheKey, []byte](size)
}
