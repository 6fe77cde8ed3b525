// Package config assembles the options a column reader needs beyond the
// bytes themselves: which BitmapFactory and RTreeFactory to decode with,
// how large a string cache to keep, and where to report latency metrics.
// The functional-options shape follows the teacher's options.go
// (pebble.Options' With-style setters) and wal.Options' embedded
// prometheus.Histogram field.
package config

import (
	"github.com/gcwind2007/druid/internal/bitmapfactory"
	"github.com/gcwind2007/druid/internal/dictcol"
	"github.com/gcwind2007/druid/internal/metrics"
	"github.com/gcwind2007/druid/internal/spatial"
)

// defaultCacheSizeBytes is the string cache budget used when no Option
// overrides it.
const defaultCacheSizeBytes = 1 << 20 // 1 MiB

// Options configures how a column is read. The zero value is not valid;
// construct with New.
type Options struct {
	Bitmaps        dictcol.BitmapFactory
	RTree          dictcol.RTreeFactory
	CacheSizeBytes int64
	Metrics        *metrics.Recorder
}

// Option mutates an Options being built.
type Option func(*Options)

// WithBitmapFactory overrides the BitmapFactory used to decode bitmap
// indexes; the default is internal/bitmapfactory's RoaringBitmap-backed
// factory.
func WithBitmapFactory(f dictcol.BitmapFactory) Option {
	return func(o *Options) { o.Bitmaps = f }
}

// WithRTreeFactory overrides the RTreeFactory used to decode spatial
// indexes; the default is internal/spatial's tidwall/rtree-backed
// factory.
func WithRTreeFactory(f dictcol.RTreeFactory) Option {
	return func(o *Options) { o.RTree = f }
}

// WithCacheSizeBytes overrides the string-lookup cache's byte budget. A
// value of 0 disables caching.
func WithCacheSizeBytes(n int64) Option {
	return func(o *Options) { o.CacheSizeBytes = n }
}

// WithMetrics attaches a latency recorder.
func WithMetrics(r *metrics.Recorder) Option {
	return func(o *Options) { o.Metrics = r }
}

// New returns an Options with sensible defaults, then applies opts in
// order.
func New(opts ...Option) *Options {
	o := &Options{
		Bitmaps:        bitmapfactory.New(),
		RTree:          spatial.New(),
		CacheSizeBytes: defaultCacheSizeBytes,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
