package dictcol

import (
	"io"

	"github.com/cockroachdb/redact"

	"github.com/gcwind2007/druid/internal/assert"
	"github.com/gcwind2007/druid/internal/metrics"
)

// Wire-format header byte values (spec §6): the first byte of an encoded
// column names which of VSizeInts/VSizeRagged follows, since exactly one
// of the two is ever present.
const (
	headerSingleValued byte = 0x0
	headerMultiValued  byte = 0x1
)

// ColumnSpec describes a column's shape without owning any of its
// payload: whether it is multi-valued, and the external collaborators
// (BitmapFactory, RTreeFactory) its bitmap and spatial components depend
// on to decode. A ColumnSpec is always valid to construct and inspect, but
// it is a ProgrammerError to Write one: only a fully materialized
// ColumnBuilder, which carries actual payload builders, can serialize,
// mirroring the teacher spec's original descriptor-only @JsonCreator
// constructor versus the full constructor that also computes size.
type ColumnSpec struct {
	IsMultiValued  bool
	BitmapFactory  BitmapFactory
	RTreeFactory   RTreeFactory
	CacheSizeBytes int64
}

// Write always panics with a ProgrammerError: a bare ColumnSpec never
// carries payload. Call WriteTo on a *ColumnBuilder instead.
func (ColumnSpec) Write(io.Writer) (int64, error) {
	panic(programmerErrorf("dictcol: Write called on a descriptor-only ColumnSpec"))
}

// ColumnBuilder is a materialized ColumnSpec: it accumulates a dictionary,
// per-row id storage, a bitmap index, and an optional spatial index, and
// can serialize the result in the exact component order spec §6
// mandates: header byte, dictionary, ids, bitmaps, optional spatial index.
type ColumnBuilder struct {
	ColumnSpec

	dictionary *GenericIndexedBuilder[string]
	single     *VSizeIntsBuilder
	multi      *VSizeRaggedBuilder
	bitmaps    *GenericIndexedBuilder[Bitmap]
	spatial    *SpatialIndexBuilder

	haveLastDictValue bool
	lastDictValue     string
}

// NewColumnBuilder returns an empty builder for a column of the given
// arity. bitmapFactory supplies the bitmaps the caller will Add; it is
// also recorded in the resulting spec so a later Read of the same bytes
// knows how to decode them.
func NewColumnBuilder(isMultiValued bool, bitmapFactory BitmapFactory) *ColumnBuilder {
	b := &ColumnBuilder{
		ColumnSpec: ColumnSpec{IsMultiValued: isMultiValued, BitmapFactory: bitmapFactory},
		dictionary: NewGenericIndexedBuilder[string](StringStrategy, true),
		bitmaps:    NewGenericIndexedBuilder[Bitmap](NewBitmapStrategy(bitmapFactory), false),
		spatial:    NewSpatialIndexBuilder(),
	}
	if isMultiValued {
		b.multi = NewVSizeRaggedBuilder()
	} else {
		b.single = NewVSizeIntsBuilder()
	}
	return b
}

// AddDictionaryValue appends a value to the dictionary. Values must be
// added in sorted byte order: the dictionary is always built sorted, so
// that DictionaryEncodedColumn.LookupID can binary search it.
func (b *ColumnBuilder) AddDictionaryValue(v string) {
	assert.Assert(!b.haveLastDictValue || v >= b.lastDictValue,
		"dictcol: dictionary values added out of order: %q after %q", v, b.lastDictValue)
	b.lastDictValue, b.haveLastDictValue = v, true
	b.dictionary.Add(v)
}

// AddRow appends a single row's dictionary id. It is a ProgrammerError to
// call AddRow on a multi-valued builder.
func (b *ColumnBuilder) AddRow(id uint32) {
	if b.single == nil {
		panic(programmerErrorf("dictcol: AddRow called on a multi-valued ColumnBuilder"))
	}
	b.single.Add(id)
}

// AddMultiRow appends a multi-valued row's dictionary ids, preserving
// their order without deduplication. It is a ProgrammerError to call
// AddMultiRow on a single-valued builder.
func (b *ColumnBuilder) AddMultiRow(ids []uint32) {
	if b.multi == nil {
		panic(programmerErrorf("dictcol: AddMultiRow called on a single-valued ColumnBuilder"))
	}
	b.multi.AddRow(ids)
}

// AddBitmap appends the bitmap for the next dictionary id. Bitmaps must be
// added in the same order as the corresponding dictionary values.
func (b *ColumnBuilder) AddBitmap(bm Bitmap) { b.bitmaps.Add(bm) }

// SetSpatialIndexPayload installs the already-serialized R-tree bytes
// produced by the configured RTreeFactory's counterpart builder. Omit this
// call to write a column with no spatial index.
func (b *ColumnBuilder) SetSpatialIndexPayload(payload []byte) {
	b.spatial.SetPayload(payload)
}

// NumBytes returns the exact number of bytes WriteTo will emit, per spec
// §4.8's numBytes() = 1 + size precomputation (the 1 accounts for the
// header byte this package adds in front of the original serde's
// concatenated components).
func (b *ColumnBuilder) NumBytes() int64 {
	var idsSize uint32
	if b.single != nil {
		idsSize = b.single.SerializedSize()
	} else {
		idsSize = b.multi.SerializedSize()
	}
	return 1 + int64(b.dictionary.SerializedSize()) + int64(idsSize) +
		int64(b.bitmaps.SerializedSize()) + int64(b.spatial.SerializedSize())
}

// WriteTo serializes the column to w in the normative wire order: header
// byte, dictionary, ids (single xor multi), bitmaps, spatial index.
func (b *ColumnBuilder) WriteTo(w io.Writer) (int64, error) {
	header := headerSingleValued
	if b.IsMultiValued {
		header = headerMultiValued
	}
	n, err := w.Write([]byte{header})
	written := int64(n)
	if err != nil {
		return written, err
	}

	n64, err := b.dictionary.WriteTo(w)
	written += n64
	if err != nil {
		return written, err
	}

	if b.single != nil {
		n64, err = b.single.WriteTo(w)
	} else {
		n64, err = b.multi.WriteTo(w)
	}
	written += n64
	if err != nil {
		return written, err
	}

	n64, err = b.bitmaps.WriteTo(w)
	written += n64
	if err != nil {
		return written, err
	}

	n64, err = b.spatial.WriteTo(w)
	written += n64
	return written, err
}

// ReadColumn decodes a column previously written by ColumnBuilder.WriteTo
// out of buf, returning a ready-to-use DictionaryEncodedColumn. bitmaps
// and rtree supply the external collaborators needed to decode the bitmap
// index and the optional spatial index; cacheSizeBytes bounds the
// resulting column's string-lookup cache (spec §5's
// columnCacheSizeBytes) — pass 0 to disable caching. recorder, if
// non-nil, receives LookupName/SpatialSearch latency and string-cache
// hit/miss observations; pass nil to record nothing.
func ReadColumn(buf []byte, bitmaps BitmapFactory, rtree RTreeFactory, cacheSizeBytes int64, recorder *metrics.Recorder) (*DictionaryEncodedColumn, error) {
	if len(buf) < 1 {
		return nil, corruptf("dictcol: empty column buffer")
	}
	header := buf[0]
	if header != headerSingleValued && header != headerMultiValued {
		return nil, corruptf("dictcol: illegal column header byte %#x", redact.Safe(header))
	}
	offset := uint32(1)

	dictionary, offset, err := decodeGenericIndexed(buf, offset, StringStrategy)
	if err != nil {
		return nil, err
	}
	if !dictionary.Sorted() {
		return nil, corruptf("dictcol: column dictionary was not built sorted")
	}

	col := &DictionaryEncodedColumn{dictionary: dictionary, multiValue: header == headerMultiValued, metrics: recorder}

	if col.multiValue {
		col.multi, offset, err = decodeVSizeRagged(buf, offset)
	} else {
		col.single, offset, err = decodeVSizeInts(buf, offset)
	}
	if err != nil {
		return nil, err
	}

	bitmapArray, offset, err := decodeGenericIndexed(buf, offset, NewBitmapStrategy(bitmaps))
	if err != nil {
		return nil, err
	}
	if bitmapArray.Size() != dictionary.Size() {
		return nil, corruptf("dictcol: bitmap index has %d entries, dictionary has %d", bitmapArray.Size(), dictionary.Size())
	}
	col.bitmaps = BitmapIndex{bitmaps: bitmapArray, dictionary: dictionary, factory: bitmaps}

	col.spatial, offset, err = decodeSpatialIndex(buf, offset, rtree, bitmaps)
	if err != nil {
		return nil, err
	}
	_ = offset

	if cacheSizeBytes > 0 {
		cache, err := newStringCache(cacheSizeBytes, recorder)
		if err != nil {
			return nil, err
		}
		col.cache = cache
	}
	return col, nil
}
