// Package spatial provides a dictcol.RTreeFactory backed by
// github.com/tidwall/rtree, a 2D R-tree implementation. No repo in the
// retrieved example pack ships an R-tree library, so this dependency is
// named here rather than grounded on a pack example; see DESIGN.md.
package spatial

import (
	"encoding/binary"
	"errors"
	"math"

	"github.com/tidwall/rtree"

	"github.com/gcwind2007/druid/internal/dictcol"
)

var errTruncatedEntry = errors.New("dictcol/spatial: truncated R-tree entry")

// tree adapts *rtree.RTreeG[dictcol.Bitmap] to dictcol.RTree.
type tree struct {
	rt *rtree.RTreeG[dictcol.Bitmap]
}

// Search returns the union of every point's bitmap within [min, max].
func (t *tree) Search(min, max []float64) dictcol.Bitmap {
	if len(min) != 2 || len(max) != 2 {
		panic("dictcol/spatial: only 2D points are supported")
	}
	var hits []dictcol.Bitmap
	t.rt.Search([2]float64{min[0], min[1]}, [2]float64{max[0], max[1]},
		func(_, _ [2]float64, bm dictcol.Bitmap) bool {
			hits = append(hits, bm)
			return true
		})
	return unionAll(hits)
}

func unionAll(bitmaps []dictcol.Bitmap) dictcol.Bitmap {
	seen := make(map[uint32]struct{})
	for _, bm := range bitmaps {
		for _, r := range bm.ToArray() {
			seen[r] = struct{}{}
		}
	}
	out := make([]uint32, 0, len(seen))
	for r := range seen {
		out = append(out, r)
	}
	return rowSetBitmap(out)
}

// rowSetBitmap is a minimal dictcol.Bitmap over an explicit row set, used
// to materialize the union of Search hits; the column's configured
// BitmapFactory is not otherwise involved in spatial search.
type rowSetBitmap []uint32

func (s rowSetBitmap) Contains(row uint32) bool {
	for _, r := range s {
		if r == row {
			return true
		}
	}
	return false
}
func (s rowSetBitmap) Cardinality() uint64 { return uint64(len(s)) }
func (s rowSetBitmap) ToArray() []uint32   { return s }

// Factory is a dictcol.RTreeFactory backed by tidwall/rtree.
type Factory struct{}

var _ dictcol.RTreeFactory = Factory{}

// New returns a tidwall/rtree-backed RTreeFactory.
func New() Factory { return Factory{} }

// Deserialize decodes the flat entry list written by Builder.Serialize
// ([f64 x][f64 y][u32 bitmapLen][bitmap bytes]*) and builds a fresh
// in-memory R-tree over it. bitmaps decodes each entry's bitmap payload.
func (Factory) Deserialize(span []byte, bitmaps dictcol.BitmapFactory) (dictcol.RTree, error) {
	rt := &rtree.RTreeG[dictcol.Bitmap]{}
	pos := 0
	for pos < len(span) {
		if pos+20 > len(span) {
			return nil, errTruncatedEntry
		}
		x := math.Float64frombits(binary.BigEndian.Uint64(span[pos : pos+8]))
		y := math.Float64frombits(binary.BigEndian.Uint64(span[pos+8 : pos+16]))
		bmLen := binary.BigEndian.Uint32(span[pos+16 : pos+20])
		pos += 20
		if pos+int(bmLen) > len(span) {
			return nil, errTruncatedEntry
		}
		bm, err := bitmaps.Deserialize(span[pos : pos+int(bmLen)])
		if err != nil {
			return nil, err
		}
		pos += int(bmLen)
		rt.Insert([2]float64{x, y}, [2]float64{x, y}, bm)
	}
	return &tree{rt: rt}, nil
}

// Builder accumulates (point, bitmap) pairs and serializes them into the
// flat entry list Factory.Deserialize expects. The column format treats
// this payload as opaque, so the layout is private to this package.
type Builder struct {
	bitmaps dictcol.BitmapFactory
	entries [][]byte
}

// NewBuilder returns an empty Builder. bitmaps serializes each added
// bitmap via the same factory that will later be passed to Factory.Deserialize.
func NewBuilder(bitmaps dictcol.BitmapFactory) *Builder {
	return &Builder{bitmaps: bitmaps}
}

// Add records that bm's rows occupy the point (x, y).
func (b *Builder) Add(x, y float64, bm dictcol.Bitmap) {
	payload := b.bitmaps.Serialize(bm)
	entry := make([]byte, 20+len(payload))
	binary.BigEndian.PutUint64(entry[0:8], math.Float64bits(x))
	binary.BigEndian.PutUint64(entry[8:16], math.Float64bits(y))
	binary.BigEndian.PutUint32(entry[16:20], uint32(len(payload)))
	copy(entry[20:], payload)
	b.entries = append(b.entries, entry)
}

// Serialize returns the flat entry list to pass to
// dictcol.ColumnBuilder.SetSpatialIndexPayload.
func (b *Builder) Serialize() []byte {
	var total int
	for _, e := range b.entries {
		total += len(e)
	}
	out := make([]byte, 0, total)
	for _, e := range b.entries {
		out = append(out, e...)
	}
	return out
}
