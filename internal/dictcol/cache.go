package dictcol

import (
	"strconv"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/gcwind2007/druid/internal/metrics"
)

// stringCache is the bounded string-lookup cache fronting a column's
// dictionary, sized in bytes rather than entry count per spec §5
// (columnCacheSizeBytes). It wraps hashicorp/golang-lru/v2 for eviction
// and golang.org/x/sync/singleflight so that concurrent LookupName calls
// for the same id coalesce into a single decode instead of racing each
// other through the dictionary.
type stringCache struct {
	entries   *lru.Cache[int, string]
	sizeLimit int64
	mu        sync.Mutex // guards sizeUsed
	sizeUsed  int64
	group     singleflight.Group
	metrics   *metrics.Recorder
}

// newStringCache returns a cache that admits entries until their combined
// string length would exceed sizeLimitBytes. A non-positive limit disables
// caching entirely (every lookup falls through to decode), represented by
// a nil *stringCache; newStringCache itself only handles the positive
// case, per its single caller in codec.go. recorder may be nil, in which
// case hits and misses are simply not observed.
func newStringCache(sizeLimitBytes int64, recorder *metrics.Recorder) (*stringCache, error) {
	// golang-lru/v2 evicts by entry count, not bytes; spec §5 sizes the
	// cache in bytes, so entries is sized generously and sizeUsed below
	// does the byte-budget enforcement by evicting the oldest entry
	// whenever the running total would exceed sizeLimitBytes.
	capacityHint := sizeLimitBytes / 16
	if capacityHint < 16 {
		capacityHint = 16
	}
	c := &stringCache{sizeLimit: sizeLimitBytes, metrics: recorder}
	// Every eviction, whether by byte budget or by entry count, gives its
	// bytes back to sizeUsed. Evictions only happen inside admit, under mu.
	entries, err := lru.NewWithEvict[int, string](int(capacityHint), func(_ int, v string) {
		c.sizeUsed -= int64(len(v))
	})
	if err != nil {
		return nil, collaboratorFailuref("lru cache", err)
	}
	c.entries = entries
	return c, nil
}

// get returns the cached string for id, calling decode (at most once
// across concurrent callers) on a miss and caching the result.
func (c *stringCache) get(id int, decode func() (string, error)) (string, error) {
	if v, ok := c.entries.Get(id); ok {
		c.metrics.ObserveCacheHit()
		return v, nil
	}
	v, err, _ := c.group.Do(strconv.Itoa(id), func() (interface{}, error) {
		if v, ok := c.entries.Get(id); ok {
			c.metrics.ObserveCacheHit()
			return v, nil
		}
		c.metrics.ObserveCacheMiss()
		s, err := decode()
		if err != nil {
			return "", err
		}
		c.admit(id, s)
		return s, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *stringCache) admit(id int, s string) {
	for c.sizeUsed+int64(len(s)) > c.sizeLimit && c.entries.Len() > 0 {
		_, v, ok := c.entries.RemoveOldest()
		if !ok {
			break
		}
		c.sizeUsed -= int64(len(v))
	}
	if int64(len(s)) > c.sizeLimit {
		return
	}
	c.entries.Add(id, s)
	c.sizeUsed += int64(len(s))
}
