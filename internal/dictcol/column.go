package dictcol

import (
	"time"

	"github.com/gcwind2007/druid/internal/metrics"
)

// DictionaryEncodedColumn is the composite, read-only accessor over a
// single column: a dictionary of distinct string values, a per-row
// storage of dictionary ids (exactly one of single- or multi-valued), a
// bitmap index parallel to the dictionary, and an optional spatial index.
// It never mutates its backing buffer and performs no internal
// concurrency beyond the string-lookup cache, matching spec §5's
// passive/synchronous accessor model.
type DictionaryEncodedColumn struct {
	dictionary GenericIndexed[string]
	single     VSizeInts
	multi      VSizeRagged
	multiValue bool
	bitmaps    BitmapIndex
	spatial    SpatialIndex
	cache      *stringCache
	metrics    *metrics.Recorder
}

// Length returns the number of rows in the column.
func (c *DictionaryEncodedColumn) Length() int {
	if c.multiValue {
		return c.multi.NumRows()
	}
	return c.single.Size()
}

// HasMultipleValues reports whether the column stores zero-or-more ids per
// row (true) or exactly one id per row (false). Exactly one of GetSingle
// or GetMulti is valid for a given column, per this flag.
func (c *DictionaryEncodedColumn) HasMultipleValues() bool { return c.multiValue }

// DictionarySize returns the number of distinct values in the dictionary.
func (c *DictionaryEncodedColumn) DictionarySize() int { return c.dictionary.Size() }

// LookupName decodes dictionary id into its string value, consulting (and
// populating) the column's bounded string cache first. A cache hit never
// touches the backing buffer; on a miss, concurrent lookups of the same id
// are coalesced so cache contention never blocks forward progress longer
// than a single underlying decode, per spec §5. The call's latency is
// reported to the column's metrics recorder, if any.
func (c *DictionaryEncodedColumn) LookupName(id int) (string, error) {
	start := time.Now()
	defer func() { c.metrics.ObserveLookup(time.Since(start)) }()
	if c.cache != nil {
		return c.cache.get(id, func() (string, error) { return c.dictionary.Get(id) })
	}
	return c.dictionary.Get(id)
}

// LookupID returns the dictionary id for name, or -1 if name is not
// present in the dictionary.
func (c *DictionaryEncodedColumn) LookupID(name string) int {
	id := c.dictionary.IndexOf([]byte(name))
	if id < 0 {
		return -1
	}
	return id
}

// GetSingle returns the dictionary id stored for row. It panics with an
// InvalidArity error if the column is multi-valued.
func (c *DictionaryEncodedColumn) GetSingle(row int) uint32 {
	if c.multiValue {
		panic(invalidArityf("dictcol: GetSingle called on a multi-valued column"))
	}
	return c.single.Get(row)
}

// GetMulti returns the dictionary ids stored for row, in the order they
// were written (not deduplicated, not sorted). It panics with an
// InvalidArity error if the column is single-valued.
func (c *DictionaryEncodedColumn) GetMulti(row int) VSizeInts {
	if !c.multiValue {
		panic(invalidArityf("dictcol: GetMulti called on a single-valued column"))
	}
	return c.multi.Get(row)
}

// BitmapForValue returns the Bitmap of row ordinals equal to name. Absent
// values yield the bitmap factory's empty bitmap, never an error.
func (c *DictionaryEncodedColumn) BitmapForValue(name string) (Bitmap, error) {
	return c.bitmaps.GetByValue(name)
}

// BitmapForID returns the Bitmap of row ordinals equal to the value at
// dictionary id.
func (c *DictionaryEncodedColumn) BitmapForID(id int) (Bitmap, error) {
	return c.bitmaps.Get(id)
}

// HasSpatialIndex reports whether this column carries a spatial index.
func (c *DictionaryEncodedColumn) HasSpatialIndex() bool { return c.spatial.HasSpatialIndex() }

// SpatialSearch returns the union of rows whose indexed point falls within
// [min, max]. It panics with a ProgrammerError if HasSpatialIndex is
// false. The call's latency is reported to the column's metrics recorder,
// if any, via an HdrHistogram.
func (c *DictionaryEncodedColumn) SpatialSearch(min, max []float64) Bitmap {
	start := time.Now()
	defer func() { c.metrics.ObserveSpatialSearch(time.Since(start)) }()
	return c.spatial.Search(min, max)
}
