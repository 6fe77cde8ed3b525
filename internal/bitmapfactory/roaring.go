// Package bitmapfactory provides a dictcol.BitmapFactory backed by
// RoaringBitmap/roaring, the compressed bitmap library grafana-loki's
// dataobj index package uses for its postings lists.
package bitmapfactory

import (
	"github.com/RoaringBitmap/roaring/v2"

	"github.com/gcwind2007/druid/internal/dictcol"
)

// roaringBitmap adapts *roaring.Bitmap to dictcol.Bitmap.
type roaringBitmap struct {
	bm *roaring.Bitmap
}

func (r roaringBitmap) Contains(row uint32) bool { return r.bm.Contains(row) }
func (r roaringBitmap) Cardinality() uint64      { return r.bm.GetCardinality() }
func (r roaringBitmap) ToArray() []uint32        { return r.bm.ToArray() }

// Factory is a dictcol.BitmapFactory backed by RoaringBitmap/roaring/v2's
// compressed bitmap, following the (de)serialization calls exercised in
// grafana-loki's dataobj index postings tests (MarshalBinary /
// UnmarshalBinary).
type Factory struct{}

var _ dictcol.BitmapFactory = Factory{}

// New returns a roaring-backed BitmapFactory.
func New() Factory { return Factory{} }

func (Factory) Empty() dictcol.Bitmap {
	return roaringBitmap{bm: roaring.NewBitmap()}
}

func (Factory) Union(bitmaps ...dictcol.Bitmap) dictcol.Bitmap {
	out := roaring.NewBitmap()
	for _, b := range bitmaps {
		if rb, ok := b.(roaringBitmap); ok {
			out.Or(rb.bm)
			continue
		}
		for _, row := range b.ToArray() {
			out.Add(row)
		}
	}
	return roaringBitmap{bm: out}
}

func (Factory) Deserialize(span []byte) (dictcol.Bitmap, error) {
	bm := roaring.NewBitmap()
	if err := bm.UnmarshalBinary(span); err != nil {
		return nil, err
	}
	return roaringBitmap{bm: bm}, nil
}

func (Factory) Serialize(b dictcol.Bitmap) []byte {
	rb, ok := b.(roaringBitmap)
	if !ok {
		// b came from a different factory implementation; round-trip it
		// through a fresh roaring.Bitmap built from its row ordinals.
		bm := roaring.NewBitmap()
		for _, row := range b.ToArray() {
			bm.Add(row)
		}
		rb = roaringBitmap{bm: bm}
	}
	buf, err := rb.bm.MarshalBinary()
	if err != nil {
		// roaring.Bitmap.MarshalBinary only fails on write errors from an
		// io.Writer we don't pass here; this path is unreachable in
		// practice, but a nil slice on error keeps Serialize total.
		return nil
	}
	return buf
}

// NewBuilder returns an empty *roaring.Bitmap wrapped as a dictcol.Bitmap
// builder, for callers assembling a bitmap row-by-row before handing it to
// a dictcol.ColumnBuilder.
func NewBuilder() *Builder {
	return &Builder{bm: roaring.NewBitmap()}
}

// Builder accumulates row ordinals into a roaring bitmap.
type Builder struct {
	bm *roaring.Bitmap
}

// Add marks row as present.
func (b *Builder) Add(row uint32) { b.bm.Add(row) }

// Bitmap returns the accumulated, immutable-from-here dictcol.Bitmap.
func (b *Builder) Bitmap() dictcol.Bitmap { return roaringBitmap{bm: b.bm} }
