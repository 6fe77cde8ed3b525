// Package metrics holds the optional observability hooks a
// dictcol.DictionaryEncodedColumn's callers may wire in: Prometheus
// counters/histograms for cache hits/misses and lookup latency, matching
// the teacher's wal.Options and wal/failover_writer.go's "fsyncLatency
// prometheus.Histogram" field injection, and an HdrHistogram-backed
// latency recorder for spatialSearch, matching tool/manifest.go's use of
// HdrHistogram/hdrhistogram-go for per-level lifetime histograms.
package metrics

import (
	"time"

	hdrhistogram "github.com/HdrHistogram/hdrhistogram-go"
	"github.com/prometheus/client_golang/prometheus"
)

// Recorder observes column access metrics. A nil *Recorder is valid and
// records nothing, so columns constructed without metrics configured pay
// no overhead.
type Recorder struct {
	lookupLatency        prometheus.Histogram
	cacheHits            prometheus.Counter
	cacheMisses          prometheus.Counter
	spatialSearchLatency *hdrhistogram.Histogram
}

// NewRecorder returns a Recorder reporting dictionary lookup latency into
// lookupLatency and string-cache hit/miss counts into
// cacheHits/cacheMisses (any of the three may be nil to skip that
// observation), and accumulating spatialSearch latencies into an internal
// HdrHistogram spanning 1 microsecond to 10 seconds, matching the bounds
// cmd/pebble/test.go's newHistogram uses for its own latency tracking.
func NewRecorder(lookupLatency prometheus.Histogram, cacheHits, cacheMisses prometheus.Counter) *Recorder {
	return &Recorder{
		lookupLatency:        lookupLatency,
		cacheHits:            cacheHits,
		cacheMisses:          cacheMisses,
		spatialSearchLatency: hdrhistogram.New(1, (10 * time.Second).Microseconds(), 3),
	}
}

// ObserveLookup records that a single dictionary LookupName call took d.
func (r *Recorder) ObserveLookup(d time.Duration) {
	if r == nil || r.lookupLatency == nil {
		return
	}
	r.lookupLatency.Observe(d.Seconds())
}

// ObserveCacheHit records that a LookupName call was satisfied from the
// string cache without touching the backing buffer.
func (r *Recorder) ObserveCacheHit() {
	if r == nil || r.cacheHits == nil {
		return
	}
	r.cacheHits.Inc()
}

// ObserveCacheMiss records that a LookupName call fell through the string
// cache to the backing dictionary.
func (r *Recorder) ObserveCacheMiss() {
	if r == nil || r.cacheMisses == nil {
		return
	}
	r.cacheMisses.Inc()
}

// ObserveSpatialSearch records that a single SpatialSearch call took d.
func (r *Recorder) ObserveSpatialSearch(d time.Duration) {
	if r == nil || r.spatialSearchLatency == nil {
		return
	}
	_ = r.spatialSearchLatency.RecordValue(d.Microseconds())
}

// SpatialSearchLatencyQuantile returns the q'th percentile (0-100)
// spatialSearch latency observed so far, or 0 if nothing has been
// recorded.
func (r *Recorder) SpatialSearchLatencyQuantile(q float64) time.Duration {
	if r == nil || r.spatialSearchLatency == nil {
		return 0
	}
	return time.Duration(r.spatialSearchLatency.ValueAtPercentile(q)) * time.Microsecond
}
