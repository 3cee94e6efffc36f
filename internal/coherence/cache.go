package coherence

import (
	"fmt"
	"hash/fnv"
	"time"

	"storyloom/internal/narrative"
)

const defaultCacheTTL = 5 * time.Minute

// validationCache memoizes content validation so re-validating unchanged
// content is cheap and idempotent. Entries expire after the TTL; expired
// entries are swept opportunistically on access. Callers hold the
// orchestrator's session lock, so the cache itself is unsynchronized.
type validationCache struct {
	ttl     time.Duration
	entries map[string]cacheEntry
}

type cacheEntry struct {
	result   narrative.ValidationResult
	storedAt time.Time
}

func newValidationCache(ttl time.Duration) *validationCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &validationCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

// cacheKey fingerprints the content fields validation depends on, so an edited
// text or moved scene misses the cache.
func cacheKey(content narrative.Content) string {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%s|%d|%s", content.ID, content.Text, content.Timestamp.UnixNano(), content.Location)
	for _, name := range content.Characters {
		fmt.Fprintf(h, "|c:%s", name)
	}
	for _, theme := range content.Themes {
		fmt.Fprintf(h, "|t:%s", theme)
	}
	return fmt.Sprintf("%x", h.Sum64())
}

func (c *validationCache) get(key string, now time.Time) (narrative.ValidationResult, bool) {
	entry, ok := c.entries[key]
	if !ok {
		return narrative.ValidationResult{}, false
	}
	if now.Sub(entry.storedAt) > c.ttl {
		delete(c.entries, key)
		return narrative.ValidationResult{}, false
	}
	return entry.result, true
}

func (c *validationCache) put(key string, result narrative.ValidationResult, now time.Time) {
	c.sweep(now)
	c.entries[key] = cacheEntry{result: result, storedAt: now}
}

func (c *validationCache) sweep(now time.Time) {
	for key, entry := range c.entries {
		if now.Sub(entry.storedAt) > c.ttl {
			delete(c.entries, key)
		}
	}
}

// clear drops every entry. Keys embed a content hash, so retroactive edits
// cannot delete selectively and reset the whole session cache instead.
func (c *validationCache) clear() {
	c.entries = make(map[string]cacheEntry)
}

func (c *validationCache) len() int {
	return len(c.entries)
}
