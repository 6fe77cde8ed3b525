package dictcol

import (
	"bytes"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestColumnEmptySingleValued covers spec §8's empty single-valued column
// scenario: zero rows, zero dictionary entries, round-trips cleanly.
func TestColumnEmptySingleValued(t *testing.T) {
	b := NewColumnBuilder(false, fakeBitmapFactory{})
	var buf bytes.Buffer
	n, err := b.WriteTo(&buf)
	require.NoError(t, err)
	require.EqualValues(t, b.NumBytes(), n)

	col, err := ReadColumn(buf.Bytes(), fakeBitmapFactory{}, fakeRTreeFactory{}, 0, nil)
	require.NoError(t, err)
	require.Equal(t, 0, col.Length())
	require.Equal(t, 0, col.DictionarySize())
	require.False(t, col.HasMultipleValues())
	require.False(t, col.HasSpatialIndex())
}

// TestColumnSmallSingleValued covers spec §8's small single-valued
// dictionary scenario, including name/id lookups and bitmap lookups.
func TestColumnSmallSingleValued(t *testing.T) {
	b := NewColumnBuilder(false, fakeBitmapFactory{})
	values := []string{"blue", "green", "red"} // sorted
	for _, v := range values {
		b.AddDictionaryValue(v)
	}
	// rows: red, blue, blue, green
	rows := []string{"red", "blue", "blue", "green"}
	byValue := map[string]int{"blue": 0, "green": 1, "red": 2}
	for _, r := range rows {
		b.AddRow(uint32(byValue[r]))
	}
	bitmapForID := map[int][]uint32{0: {1, 2}, 1: {3}, 2: {0}}
	for id := 0; id < len(values); id++ {
		b.AddBitmap(fakeBitmap{rows: bitmapForID[id]})
	}

	var buf bytes.Buffer
	_, err := b.WriteTo(&buf)
	require.NoError(t, err)

	col, err := ReadColumn(buf.Bytes(), fakeBitmapFactory{}, fakeRTreeFactory{}, 1<<20, nil)
	require.NoError(t, err)
	require.Equal(t, len(rows), col.Length())
	require.Equal(t, len(values), col.DictionarySize())
	require.False(t, col.HasMultipleValues())

	for i, r := range rows {
		id := col.GetSingle(i)
		name, err := col.LookupName(int(id))
		require.NoError(t, err)
		require.Equal(t, r, name)
	}
	require.Equal(t, 1, col.LookupID("green"))
	require.Equal(t, -1, col.LookupID("purple"))

	bm, err := col.BitmapForValue("blue")
	require.NoError(t, err)
	require.ElementsMatch(t, []uint32{1, 2}, bm.ToArray())

	require.Panics(t, func() { col.GetMulti(0) })
}

// TestColumnMultiValued covers spec §8's multi-valued scenario, including
// preserved row order without deduplication.
func TestColumnMultiValued(t *testing.T) {
	b := NewColumnBuilder(true, fakeBitmapFactory{})
	for _, v := range []string{"x", "y", "z"} {
		b.AddDictionaryValue(v)
	}
	b.AddMultiRow(nil)
	b.AddMultiRow([]uint32{0})
	b.AddMultiRow([]uint32{2, 0, 2})
	for id := 0; id < 3; id++ {
		b.AddBitmap(fakeBitmap{})
	}

	var buf bytes.Buffer
	_, err := b.WriteTo(&buf)
	require.NoError(t, err)

	col, err := ReadColumn(buf.Bytes(), fakeBitmapFactory{}, fakeRTreeFactory{}, 0, nil)
	require.NoError(t, err)
	require.True(t, col.HasMultipleValues())
	require.Equal(t, 3, col.Length())

	require.Equal(t, []uint32(nil), col.GetMulti(0).All())
	require.Equal(t, []uint32{0}, col.GetMulti(1).All())
	require.Equal(t, []uint32{2, 0, 2}, col.GetMulti(2).All())

	require.Panics(t, func() { col.GetSingle(0) })
}

// TestColumnDictionaryRangeLookup covers spec §8's dictionary range lookup
// scenario: IndexOf on a range's two endpoint values gives the ids between
// which a caller enumerates the range. Misses are checked in
// TestGenericIndexedIndexOf.
func TestColumnDictionaryRangeLookup(t *testing.T) {
	b := NewColumnBuilder(false, fakeBitmapFactory{})
	values := []string{"ant", "bee", "cat", "dog", "eel"}
	for _, v := range values {
		b.AddDictionaryValue(v)
	}
	for range values {
		b.AddBitmap(fakeBitmap{})
	}
	var buf bytes.Buffer
	_, err := b.WriteTo(&buf)
	require.NoError(t, err)

	col, err := ReadColumn(buf.Bytes(), fakeBitmapFactory{}, fakeRTreeFactory{}, 0, nil)
	require.NoError(t, err)

	lo := col.dictionary.IndexOf([]byte("bee"))
	hi := col.dictionary.IndexOf([]byte("dog"))
	require.Equal(t, 1, lo)
	require.Equal(t, 3, hi)
	var inRange []string
	for i := lo; i <= hi; i++ {
		v, err := col.LookupName(i)
		require.NoError(t, err)
		inRange = append(inRange, v)
	}
	require.Equal(t, []string{"bee", "cat", "dog"}, inRange)
}

// TestColumnSpatialIndex covers spec §8's spatial index scenario.
func TestColumnSpatialIndex(t *testing.T) {
	b := NewColumnBuilder(false, fakeBitmapFactory{})
	b.AddDictionaryValue("only")
	b.AddBitmap(fakeBitmap{rows: []uint32{0, 1, 2}})

	entry1 := encodeFakeSpatialEntry(1, 1, fakeBitmapFactory{}.Serialize(fakeBitmap{rows: []uint32{0}}))
	entry2 := encodeFakeSpatialEntry(5, 5, fakeBitmapFactory{}.Serialize(fakeBitmap{rows: []uint32{1, 2}}))
	b.SetSpatialIndexPayload(append(entry1, entry2...))

	var buf bytes.Buffer
	_, err := b.WriteTo(&buf)
	require.NoError(t, err)

	col, err := ReadColumn(buf.Bytes(), fakeBitmapFactory{}, fakeRTreeFactory{}, 0, nil)
	require.NoError(t, err)
	require.True(t, col.HasSpatialIndex())

	hits := col.SpatialSearch([]float64{0, 0}, []float64{2, 2})
	require.Equal(t, []uint32{0}, hits.ToArray())

	hits = col.SpatialSearch([]float64{0, 0}, []float64{10, 10})
	require.ElementsMatch(t, []uint32{0, 1, 2}, hits.ToArray())
}

// TestColumnNoSpatialIndex covers spec §8's spatial absence property: a
// column written without a spatial index has zero remaining bytes after
// the bitmap index, not a zero-length placeholder, and Search panics.
func TestColumnNoSpatialIndex(t *testing.T) {
	b := NewColumnBuilder(false, fakeBitmapFactory{})
	b.AddDictionaryValue("v")
	b.AddBitmap(fakeBitmap{})
	require.Zero(t, b.spatial.SerializedSize())

	var buf bytes.Buffer
	n, err := b.WriteTo(&buf)
	require.NoError(t, err)
	require.EqualValues(t, b.NumBytes(), n)

	withoutSpatial := NewColumnBuilder(false, fakeBitmapFactory{})
	withoutSpatial.AddDictionaryValue("v")
	withoutSpatial.AddBitmap(fakeBitmap{})
	var bufNoSpatialComponent bytes.Buffer
	_, err = withoutSpatial.dictionary.WriteTo(&bufNoSpatialComponent)
	require.NoError(t, err)
	_, err = withoutSpatial.single.WriteTo(&bufNoSpatialComponent)
	require.NoError(t, err)
	_, err = withoutSpatial.bitmaps.WriteTo(&bufNoSpatialComponent)
	require.NoError(t, err)
	// The full column is the header byte plus dictionary, ids and bitmaps,
	// with nothing appended for the absent spatial index, so it is exactly
	// one byte longer than those three components.
	require.Equal(t, bufNoSpatialComponent.Len(), buf.Len()-1)

	col, err := ReadColumn(buf.Bytes(), fakeBitmapFactory{}, fakeRTreeFactory{}, 0, nil)
	require.NoError(t, err)
	require.False(t, col.HasSpatialIndex())
	require.Panics(t, func() { col.SpatialSearch([]float64{0, 0}, []float64{1, 1}) })
}

// TestColumnRejectsCorruptHeader and TestColumnRejectsTruncatedBody cover
// spec §8's corruption/truncation rejection scenario.
func TestColumnRejectsCorruptHeader(t *testing.T) {
	_, err := ReadColumn([]byte{0x7}, fakeBitmapFactory{}, fakeRTreeFactory{}, 0, nil)
	require.Error(t, err)
	require.True(t, IsCorruptFormat(err))
}

func TestColumnRejectsEmptyBuffer(t *testing.T) {
	_, err := ReadColumn(nil, fakeBitmapFactory{}, fakeRTreeFactory{}, 0, nil)
	require.Error(t, err)
	require.True(t, IsCorruptFormat(err))
}

func TestColumnRejectsTruncatedBody(t *testing.T) {
	b := NewColumnBuilder(false, fakeBitmapFactory{})
	for _, v := range []string{"a", "b", "c"} {
		b.AddDictionaryValue(v)
	}
	for i := 0; i < 5; i++ {
		b.AddRow(uint32(i % 3))
	}
	for range 3 {
		b.AddBitmap(fakeBitmap{rows: []uint32{0}})
	}
	var buf bytes.Buffer
	_, err := b.WriteTo(&buf)
	require.NoError(t, err)

	truncated := buf.Bytes()[:buf.Len()-3]
	_, err = ReadColumn(truncated, fakeBitmapFactory{}, fakeRTreeFactory{}, 0, nil)
	require.Error(t, err)
	require.True(t, IsCorruptFormat(err))
}

func TestColumnRejectsBitmapCountMismatch(t *testing.T) {
	b := NewColumnBuilder(false, fakeBitmapFactory{})
	b.AddDictionaryValue("a")
	b.AddDictionaryValue("b")
	b.AddRow(0)
	b.AddBitmap(fakeBitmap{}) // only one bitmap for two dictionary values

	var buf bytes.Buffer
	_, err := b.WriteTo(&buf)
	require.NoError(t, err)

	_, err = ReadColumn(buf.Bytes(), fakeBitmapFactory{}, fakeRTreeFactory{}, 0, nil)
	require.Error(t, err)
	require.True(t, IsCorruptFormat(err))
}

// TestColumnRoundTripRandom drives spec §8's Round-trip I/II, Dictionary
// order, Bitmap/dictionary parallelism, and Idempotence invariants across
// seeded random columns, mirroring the teacher's seeded rand/v2 generator
// style (sstable/colblk/raw_bytes_test.go's
// rand.New(rand.NewPCG(0, seed))).
func TestColumnRoundTripRandom(t *testing.T) {
	seeds := []uint64{21, 1984, 90210, 314159, 8675309}
	for _, seed := range seeds {
		for _, multiValued := range []bool{false, true} {
			rng := rand.New(rand.NewPCG(0, seed))

			dictSize := 1 + rng.IntN(30)
			seen := make(map[string]bool, dictSize)
			var values []string
			for len(values) < dictSize {
				length := 1 + rng.IntN(8)
				buf := make([]byte, length)
				for i := range buf {
					buf[i] = byte('a' + rng.IntN(26))
				}
				s := string(buf)
				if seen[s] {
					continue
				}
				seen[s] = true
				values = append(values, s)
			}
			slices.Sort(values)

			b := NewColumnBuilder(multiValued, fakeBitmapFactory{})
			for _, v := range values {
				b.AddDictionaryValue(v)
			}

			numRows := rng.IntN(50)
			var singleRows []uint32
			var multiRows [][]uint32
			bitmapRows := make([][]uint32, dictSize)
			for row := 0; row < numRows; row++ {
				if multiValued {
					width := rng.IntN(4)
					ids := make([]uint32, width)
					for j := range ids {
						id := uint32(rng.IntN(dictSize))
						ids[j] = id
						bitmapRows[id] = append(bitmapRows[id], uint32(row))
					}
					multiRows = append(multiRows, ids)
					b.AddMultiRow(ids)
				} else {
					id := uint32(rng.IntN(dictSize))
					singleRows = append(singleRows, id)
					bitmapRows[id] = append(bitmapRows[id], uint32(row))
					b.AddRow(id)
				}
			}
			for id := 0; id < dictSize; id++ {
				b.AddBitmap(fakeBitmap{rows: bitmapRows[id]})
			}

			var buf bytes.Buffer
			n, err := b.WriteTo(&buf)
			require.NoError(t, err)
			require.EqualValues(t, b.NumBytes(), n)

			col, err := ReadColumn(buf.Bytes(), fakeBitmapFactory{}, fakeRTreeFactory{}, 1<<16, nil)
			require.NoError(t, err)
			require.Equal(t, dictSize, col.DictionarySize())
			require.Equal(t, numRows, col.Length())
			require.Equal(t, multiValued, col.HasMultipleValues())

			// Dictionary order: every value is retrievable by id and its
			// id round-trips through LookupID.
			for i, v := range values {
				got, err := col.LookupName(i)
				require.NoError(t, err)
				require.Equal(t, v, got)
				require.Equal(t, i, col.LookupID(v))
			}

			// Row storage round-trips exactly, preserving order and
			// duplicates.
			if multiValued {
				for row, want := range multiRows {
					require.Equal(t, want, col.GetMulti(row).All())
				}
			} else {
				for row, want := range singleRows {
					require.Equal(t, want, col.GetSingle(row))
				}
			}

			// Bitmap/dictionary parallelism: the bitmap for each
			// dictionary id matches exactly the rows that referenced it.
			for id := 0; id < dictSize; id++ {
				bm, err := col.BitmapForID(id)
				require.NoError(t, err)
				require.ElementsMatch(t, bitmapRows[id], bm.ToArray())
			}

			// Idempotence: decoding the same bytes twice yields
			// independently consistent, identical observations.
			col2, err := ReadColumn(buf.Bytes(), fakeBitmapFactory{}, fakeRTreeFactory{}, 0, nil)
			require.NoError(t, err)
			require.Equal(t, col.Length(), col2.Length())
			require.Equal(t, col.DictionarySize(), col2.DictionarySize())
			for i, v := range values {
				got, err := col2.LookupName(i)
				require.NoError(t, err)
				require.Equal(t, v, got)
			}
		}
	}
}
