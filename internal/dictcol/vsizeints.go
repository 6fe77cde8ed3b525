package dictcol

import (
	"encoding/binary"
	"io"
)

const vsizeIntsVersion = 0

const vsizeIntsHeaderSize = 1 /* version */ + 1 /* width */ + 4 /* count */

// VSizeInts is a zero-copy accessor over a packed, fixed-width unsigned
// integer array: the wire representation of single-valued row storage
// (SingleIds in the format grammar) and of each row's element array inside
// VSizeRagged. Every element occupies the same number of bytes, chosen at
// write time as the minimum width that fits the largest id.
type VSizeInts struct {
	width uint8
	count uint32
	data  []byte // payload only; len(data) == int(count)*int(width)
}

// Width reports the number of bytes used to encode each element, 1-4.
func (v VSizeInts) Width() int { return int(v.width) }

// Size returns the number of elements encoded in v.
func (v VSizeInts) Size() int { return int(v.count) }

// Get returns the element at row i.
func (v VSizeInts) Get(i int) uint32 {
	checkBounds(i, int(v.count))
	return readBigEndianWidth(v.data, i*int(v.width), int(v.width))
}

// All decodes every element into a freshly allocated slice. Prefer Get for
// random access on the hot path; All is for small columns and debugging.
func (v VSizeInts) All() []uint32 {
	out := make([]uint32, v.count)
	for i := range out {
		out[i] = v.Get(i)
	}
	return out
}

// decodeVSizeInts decodes the VSizeInts structure found at offset within
// buf, returning the accessor and the offset of the first byte after it.
func decodeVSizeInts(buf []byte, offset uint32) (VSizeInts, uint32, error) {
	if uint64(offset)+uint64(vsizeIntsHeaderSize) > uint64(len(buf)) {
		return VSizeInts{}, 0, corruptf("dictcol: truncated VSizeInts header at offset %d (buffer length %d)", offset, len(buf))
	}
	version := buf[offset]
	width := buf[offset+1]
	if version != vsizeIntsVersion {
		return VSizeInts{}, 0, corruptf("dictcol: unsupported VSizeInts version %d", version)
	}
	if width < 1 || width > 4 {
		return VSizeInts{}, 0, corruptf("dictcol: illegal VSizeInts width %d", width)
	}
	count := binary.BigEndian.Uint32(buf[offset+2 : offset+6])
	payloadStart := offset + uint32(vsizeIntsHeaderSize)
	payloadLen := uint64(count) * uint64(width)
	if uint64(payloadStart)+payloadLen > uint64(len(buf)) {
		return VSizeInts{}, 0, corruptf(
			"dictcol: truncated VSizeInts payload: need %d bytes at offset %d, have %d",
			payloadLen, payloadStart, len(buf)-int(payloadStart))
	}
	end := payloadStart + uint32(payloadLen)
	return VSizeInts{width: width, count: count, data: buf[payloadStart:end]}, end, nil
}

// VSizeIntsBuilder accumulates a sequence of dictionary ids and serializes
// them as a VSizeInts once the maximum id (and thus the packed width) is
// known. Mirrors the teacher's two-pass builder shape (accumulate, then
// Size/Finish) without the delta-encoding machinery colblk.UintBuilder
// layers on top of it.
type VSizeIntsBuilder struct {
	ids   []uint32
	maxID uint32
}

// NewVSizeIntsBuilder returns an empty builder.
func NewVSizeIntsBuilder() *VSizeIntsBuilder {
	return &VSizeIntsBuilder{}
}

// Add appends id to the sequence being built.
func (b *VSizeIntsBuilder) Add(id uint32) {
	b.ids = append(b.ids, id)
	if id > b.maxID {
		b.maxID = id
	}
}

// Len returns the number of ids added so far.
func (b *VSizeIntsBuilder) Len() int { return len(b.ids) }

// Width returns the packed width that will be used to serialize the
// sequence as currently built.
func (b *VSizeIntsBuilder) Width() int {
	if len(b.ids) == 0 {
		return 1
	}
	return widthForMaxID(b.maxID)
}

// SerializedSize returns the exact number of bytes WriteTo will emit.
func (b *VSizeIntsBuilder) SerializedSize() uint32 {
	return uint32(vsizeIntsHeaderSize) + uint32(len(b.ids))*uint32(b.Width())
}

// WriteTo serializes the built sequence to w in the SingleIds wire format.
func (b *VSizeIntsBuilder) WriteTo(w io.Writer) (int64, error) {
	width := b.Width()
	var hdr [vsizeIntsHeaderSize]byte
	hdr[0] = vsizeIntsVersion
	hdr[1] = byte(width)
	binary.BigEndian.PutUint32(hdr[2:6], uint32(len(b.ids)))
	n, err := w.Write(hdr[:])
	total := int64(n)
	if err != nil {
		return total, err
	}
	if len(b.ids) == 0 {
		return total, nil
	}
	payload := make([]byte, len(b.ids)*width)
	for i, id := range b.ids {
		writeBigEndianWidth(payload, i*width, width, id)
	}
	n2, err := w.Write(payload)
	return total + int64(n2), err
}
