package dictcol

import (
	"encoding/binary"
	"io"
)

const genericIndexedVersion = 0

const genericIndexedHeaderSize = 1 /* version */ + 1 /* flags */ + 4 /* totalBytes */ + 4 /* count */

const genericIndexedSortedFlag = 0x1

// GenericIndexed is a zero-copy, length-prefixed, offset-indexed array of
// opaque items of type T, decoded on demand by a pluggable ObjectStrategy.
// It backs both the column's dictionary (GenericIndexed[string], sorted)
// and the bitmap index (GenericIndexed[Bitmap], unsorted).
type GenericIndexed[T any] struct {
	sorted   bool
	count    uint32
	offsets  []byte // count*4 bytes; offsets[i] is element i's end offset into payload
	payload  []byte
	strategy ObjectStrategy[T]
}

// Size returns the number of elements in the array.
func (g GenericIndexed[T]) Size() int { return int(g.count) }

// Sorted reports whether the array supports IndexOf via binary search.
func (g GenericIndexed[T]) Sorted() bool { return g.sorted }

func (g GenericIndexed[T]) offsetAt(i int) uint32 {
	return binary.BigEndian.Uint32(g.offsets[i*4 : i*4+4])
}

func (g GenericIndexed[T]) span(i int) []byte {
	checkBounds(i, int(g.count))
	end := g.offsetAt(i)
	var start uint32
	if i > 0 {
		start = g.offsetAt(i - 1)
	}
	return g.payload[start:end]
}

// Get decodes element i. Decoding is lazy: only element i's byte span is
// ever touched, never the full payload.
func (g GenericIndexed[T]) Get(i int) (T, error) {
	v, err := g.strategy.Decode(g.span(i))
	if err != nil {
		var zero T
		return zero, collaboratorFailuref("object strategy", err)
	}
	return v, nil
}

// IndexOf performs a binary search for key against the sorted array's
// elements, comparing raw byte spans (no decode). It panics with a
// ProgrammerError if the array was not built with sorted=true. On a hit it
// returns the element's index; on a miss it returns -(insertionPoint)-1,
// the same sign convention as a classic binary-search contract.
func (g GenericIndexed[T]) IndexOf(key []byte) int {
	if !g.sorted {
		panic(programmerErrorf("dictcol: IndexOf called on a GenericIndexed built with sorted=false"))
	}
	lo, hi := 0, int(g.count)
	for lo < hi {
		mid := (lo + hi) / 2
		switch cmp := g.strategy.CompareBytes(g.span(mid), key); {
		case cmp == 0:
			return mid
		case cmp < 0:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return -lo - 1
}

// decodeGenericIndexed decodes the GenericIndexed<T> structure found at
// offset within buf, returning the accessor and the offset of the first
// byte after it.
func decodeGenericIndexed[T any](buf []byte, offset uint32, strategy ObjectStrategy[T]) (GenericIndexed[T], uint32, error) {
	if uint64(offset)+uint64(genericIndexedHeaderSize) > uint64(len(buf)) {
		return GenericIndexed[T]{}, 0, corruptf("dictcol: truncated GenericIndexed header at offset %d", offset)
	}
	version := buf[offset]
	flags := buf[offset+1]
	if version != genericIndexedVersion {
		return GenericIndexed[T]{}, 0, corruptf("dictcol: unsupported GenericIndexed version %d", version)
	}
	totalBytes := binary.BigEndian.Uint32(buf[offset+2 : offset+6])
	count := binary.BigEndian.Uint32(buf[offset+6 : offset+10])
	sorted := flags&genericIndexedSortedFlag != 0

	offsetsStart := offset + uint32(genericIndexedHeaderSize)
	offsetsLen := uint64(count) * 4
	if offsetsLen > uint64(totalBytes) {
		return GenericIndexed[T]{}, 0, corruptf("dictcol: GenericIndexed offsets table (%d bytes) exceeds totalBytes (%d)", offsetsLen, totalBytes)
	}
	if uint64(offsetsStart)+uint64(totalBytes) > uint64(len(buf)) {
		return GenericIndexed[T]{}, 0, corruptf(
			"dictcol: truncated GenericIndexed body: need %d bytes at offset %d, have %d",
			totalBytes, offsetsStart, len(buf)-int(offsetsStart))
	}
	payloadLen := uint64(totalBytes) - offsetsLen
	offsetsEnd := offsetsStart + uint32(offsetsLen)
	payloadEnd := offsetsEnd + uint32(payloadLen)

	g := GenericIndexed[T]{
		sorted:   sorted,
		count:    count,
		offsets:  buf[offsetsStart:offsetsEnd],
		payload:  buf[offsetsEnd:payloadEnd],
		strategy: strategy,
	}
	prev := uint32(0)
	for i := 0; i < int(count); i++ {
		cur := g.offsetAt(i)
		if cur < prev {
			return GenericIndexed[T]{}, 0, corruptf("dictcol: GenericIndexed offsets not monotonic at element %d (%d < %d)", i, cur, prev)
		}
		prev = cur
	}
	if uint64(prev) != payloadLen {
		return GenericIndexed[T]{}, 0, corruptf("dictcol: GenericIndexed last offset %d does not match payload length %d", prev, payloadLen)
	}
	return g, payloadEnd, nil
}

// GenericIndexedBuilder accumulates elements, encoding each immediately via
// the object strategy, and serializes the result as a GenericIndexed<T>.
type GenericIndexedBuilder[T any] struct {
	sorted   bool
	strategy ObjectStrategy[T]
	items    [][]byte
}

// NewGenericIndexedBuilder returns an empty builder. When sorted is true,
// the caller is responsible for Add-ing elements in the strategy's byte
// order; the builder does not sort on the caller's behalf.
func NewGenericIndexedBuilder[T any](strategy ObjectStrategy[T], sorted bool) *GenericIndexedBuilder[T] {
	return &GenericIndexedBuilder[T]{strategy: strategy, sorted: sorted}
}

// Add encodes v and appends it.
func (b *GenericIndexedBuilder[T]) Add(v T) {
	b.items = append(b.items, b.strategy.Encode(v))
}

// Len returns the number of elements added so far.
func (b *GenericIndexedBuilder[T]) Len() int { return len(b.items) }

func (b *GenericIndexedBuilder[T]) payloadLen() uint32 {
	var n uint32
	for _, it := range b.items {
		n += uint32(len(it))
	}
	return n
}

// SerializedSize returns the exact number of bytes WriteTo will emit.
func (b *GenericIndexedBuilder[T]) SerializedSize() uint32 {
	count := uint32(len(b.items))
	return uint32(genericIndexedHeaderSize) + count*4 + b.payloadLen()
}

// WriteTo serializes the built array to w in the GenericIndexed<T> wire
// format.
func (b *GenericIndexedBuilder[T]) WriteTo(w io.Writer) (int64, error) {
	count := uint32(len(b.items))
	totalBytes := count*4 + b.payloadLen()

	var hdr [genericIndexedHeaderSize]byte
	hdr[0] = genericIndexedVersion
	if b.sorted {
		hdr[1] = genericIndexedSortedFlag
	}
	binary.BigEndian.PutUint32(hdr[2:6], totalBytes)
	binary.BigEndian.PutUint32(hdr[6:10], count)
	n, err := w.Write(hdr[:])
	written := int64(n)
	if err != nil {
		return written, err
	}

	offsets := make([]byte, count*4)
	var cum uint32
	for i, it := range b.items {
		cum += uint32(len(it))
		binary.BigEndian.PutUint32(offsets[i*4:i*4+4], cum)
	}
	n, err = w.Write(offsets)
	written += int64(n)
	if err != nil {
		return written, err
	}

	for _, it := range b.items {
		n, err = w.Write(it)
		written += int64(n)
		if err != nil {
			return written, err
		}
	}
	return written, nil
}
