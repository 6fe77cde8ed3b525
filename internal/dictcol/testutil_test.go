package dictcol

import (
	"encoding/binary"
	"math"
)

// fakeBitmap and fakeBitmapFactory give the dictcol package's own tests a
// Bitmap/BitmapFactory implementation that doesn't depend on the
// roaring-backed one in internal/bitmapfactory (which itself depends on
// this package, so importing it here would cycle).
type fakeBitmap struct{ rows []uint32 }

func (b fakeBitmap) Contains(row uint32) bool {
	for _, r := range b.rows {
		if r == row {
			return true
		}
	}
	return false
}
func (b fakeBitmap) Cardinality() uint64 { return uint64(len(b.rows)) }
func (b fakeBitmap) ToArray() []uint32   { return b.rows }

type fakeBitmapFactory struct{}

func (fakeBitmapFactory) Empty() Bitmap { return fakeBitmap{} }

func (fakeBitmapFactory) Union(bitmaps ...Bitmap) Bitmap {
	seen := map[uint32]struct{}{}
	for _, bm := range bitmaps {
		for _, r := range bm.ToArray() {
			seen[r] = struct{}{}
		}
	}
	out := make([]uint32, 0, len(seen))
	for r := range seen {
		out = append(out, r)
	}
	return fakeBitmap{rows: out}
}

func (fakeBitmapFactory) Deserialize(span []byte) (Bitmap, error) {
	rows := make([]uint32, len(span)/4)
	for i := range rows {
		rows[i] = binary.BigEndian.Uint32(span[i*4 : i*4+4])
	}
	return fakeBitmap{rows: rows}, nil
}

func (fakeBitmapFactory) Serialize(b Bitmap) []byte {
	rows := b.ToArray()
	out := make([]byte, len(rows)*4)
	for i, r := range rows {
		binary.BigEndian.PutUint32(out[i*4:i*4+4], r)
	}
	return out
}

// fakeRTree is a linear-scan RTree/RTreeFactory pair for tests, using the
// same [f64 x][f64 y][u32 bitmapLen][bitmap bytes] entry framing the real
// internal/spatial package uses, so decodeSpatialIndex's length-prefixed
// outer framing is exercised identically either way.
type fakePoint struct {
	x, y float64
	bm   Bitmap
}

type fakeRTree struct{ points []fakePoint }

func (t *fakeRTree) Search(min, max []float64) Bitmap {
	var hits []Bitmap
	for _, p := range t.points {
		if p.x >= min[0] && p.x <= max[0] && p.y >= min[1] && p.y <= max[1] {
			hits = append(hits, p.bm)
		}
	}
	return fakeBitmapFactory{}.Union(hits...)
}

type fakeRTreeFactory struct{}

func (fakeRTreeFactory) Deserialize(span []byte, bitmaps BitmapFactory) (RTree, error) {
	var points []fakePoint
	pos := 0
	for pos < len(span) {
		x := math.Float64frombits(binary.BigEndian.Uint64(span[pos : pos+8]))
		y := math.Float64frombits(binary.BigEndian.Uint64(span[pos+8 : pos+16]))
		bmLen := binary.BigEndian.Uint32(span[pos+16 : pos+20])
		pos += 20
		bm, err := bitmaps.Deserialize(span[pos : pos+int(bmLen)])
		if err != nil {
			return nil, err
		}
		pos += int(bmLen)
		points = append(points, fakePoint{x: x, y: y, bm: bm})
	}
	return &fakeRTree{points: points}, nil
}

func encodeFakeSpatialEntry(x, y float64, bm []byte) []byte {
	out := make([]byte, 20+len(bm))
	binary.BigEndian.PutUint64(out[0:8], math.Float64bits(x))
	binary.BigEndian.PutUint64(out[8:16], math.Float64bits(y))
	binary.BigEndian.PutUint32(out[16:20], uint32(len(bm)))
	copy(out[20:], bm)
	return out
}
