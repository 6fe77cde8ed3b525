package dictcol

import (
	"encoding/binary"
	"io"
)

const vsizeRaggedVersion = 0

const vsizeRaggedHeaderSize = 1 /* version */ + 1 /* offsetsWidth */ + 1 /* valuesWidth */ + 4 /* numRows */

// VSizeRagged is a zero-copy accessor over a packed ragged list of id
// sequences: the wire representation of multi-valued row storage (MultiIds
// in the format grammar). Row r's ids occupy values[offsets[r]:offsets[r+1]],
// itself a fixed-width packed array, so Get is O(1) with no allocation.
type VSizeRagged struct {
	offsetsWidth uint8
	valuesWidth  uint8
	numRows      uint32
	offsets      []byte // packed fixed-width, len == (numRows+1)*offsetsWidth
	values       []byte // len == valuesBytes
}

// NumRows returns the number of ragged rows encoded.
func (v VSizeRagged) NumRows() int { return int(v.numRows) }

func (v VSizeRagged) offsetAt(i int) uint32 {
	return readBigEndianWidth(v.offsets, i*int(v.offsetsWidth), int(v.offsetsWidth))
}

// Get returns a zero-copy view of row r's packed id sequence. The row may
// be empty.
func (v VSizeRagged) Get(r int) VSizeInts {
	checkBounds(r, int(v.numRows))
	start, end := v.offsetAt(r), v.offsetAt(r+1)
	var count uint32
	if v.valuesWidth > 0 {
		count = (end - start) / uint32(v.valuesWidth)
	}
	return VSizeInts{width: v.valuesWidth, count: count, data: v.values[start:end]}
}

// decodeVSizeRagged decodes the VSizeRagged structure found at offset
// within buf, validating the offsets-table invariants (offsets[0] == 0,
// monotonic non-decreasing, offsets[numRows] == len(valuesPayload)) eagerly
// so that a corrupt ragged column is rejected at decode time rather than
// surfacing a wrong answer at some later random access.
func decodeVSizeRagged(buf []byte, offset uint32) (VSizeRagged, uint32, error) {
	if uint64(offset)+uint64(vsizeRaggedHeaderSize) > uint64(len(buf)) {
		return VSizeRagged{}, 0, corruptf("dictcol: truncated VSizeRagged header at offset %d", offset)
	}
	version := buf[offset]
	offsetsWidth := buf[offset+1]
	valuesWidth := buf[offset+2]
	if version != vsizeRaggedVersion {
		return VSizeRagged{}, 0, corruptf("dictcol: unsupported VSizeRagged version %d", version)
	}
	if offsetsWidth < 1 || offsetsWidth > 4 {
		return VSizeRagged{}, 0, corruptf("dictcol: illegal VSizeRagged offsets width %d", offsetsWidth)
	}
	if valuesWidth < 1 || valuesWidth > 4 {
		return VSizeRagged{}, 0, corruptf("dictcol: illegal VSizeRagged values width %d", valuesWidth)
	}
	numRows := binary.BigEndian.Uint32(buf[offset+3 : offset+7])

	offsetsStart := offset + uint32(vsizeRaggedHeaderSize)
	offsetsLen := (uint64(numRows) + 1) * uint64(offsetsWidth)
	if uint64(offsetsStart)+offsetsLen > uint64(len(buf)) {
		return VSizeRagged{}, 0, corruptf(
			"dictcol: truncated VSizeRagged offsets table: need %d bytes at offset %d, have %d",
			offsetsLen, offsetsStart, len(buf)-int(offsetsStart))
	}
	offsetsEnd := offsetsStart + uint32(offsetsLen)

	if uint64(offsetsEnd)+4 > uint64(len(buf)) {
		return VSizeRagged{}, 0, corruptf("dictcol: truncated VSizeRagged values length at offset %d", offsetsEnd)
	}
	valuesBytes := binary.BigEndian.Uint32(buf[offsetsEnd : offsetsEnd+4])
	valuesStart := offsetsEnd + 4
	if uint64(valuesStart)+uint64(valuesBytes) > uint64(len(buf)) {
		return VSizeRagged{}, 0, corruptf(
			"dictcol: truncated VSizeRagged values payload: need %d bytes at offset %d, have %d",
			valuesBytes, valuesStart, len(buf)-int(valuesStart))
	}
	valuesEnd := valuesStart + valuesBytes

	v := VSizeRagged{
		offsetsWidth: offsetsWidth,
		valuesWidth:  valuesWidth,
		numRows:      numRows,
		offsets:      buf[offsetsStart:offsetsEnd],
		values:       buf[valuesStart:valuesEnd],
	}
	if first := v.offsetAt(0); first != 0 {
		return VSizeRagged{}, 0, corruptf("dictcol: VSizeRagged offsets[0] = %d, want 0", first)
	}
	prev := uint32(0)
	for i := 1; i <= int(numRows); i++ {
		cur := v.offsetAt(i)
		if cur < prev {
			return VSizeRagged{}, 0, corruptf("dictcol: VSizeRagged offsets not monotonic at row %d (%d < %d)", i, cur, prev)
		}
		prev = cur
	}
	if prev != valuesBytes {
		return VSizeRagged{}, 0, corruptf("dictcol: VSizeRagged offsets[numRows] = %d, want %d", prev, valuesBytes)
	}
	return v, valuesEnd, nil
}

// VSizeRaggedBuilder accumulates per-row id sequences and serializes them
// as a VSizeRagged once every row has been added and the values width is
// known.
type VSizeRaggedBuilder struct {
	rows  [][]uint32
	maxID uint32
}

// NewVSizeRaggedBuilder returns an empty builder.
func NewVSizeRaggedBuilder() *VSizeRaggedBuilder {
	return &VSizeRaggedBuilder{}
}

// AddRow appends a row. ids is copied; the caller may reuse its backing
// array. Row insertion order, and id order within a row, is preserved
// verbatim — duplicate ids within a row are not deduplicated.
func (b *VSizeRaggedBuilder) AddRow(ids []uint32) {
	row := append([]uint32(nil), ids...)
	b.rows = append(b.rows, row)
	for _, id := range ids {
		if id > b.maxID {
			b.maxID = id
		}
	}
}

// NumRows returns the number of rows added so far.
func (b *VSizeRaggedBuilder) NumRows() int { return len(b.rows) }

func (b *VSizeRaggedBuilder) valuesWidth() int {
	if len(b.rows) == 0 {
		return 1
	}
	return widthForMaxID(b.maxID)
}

// offsetsAndTotal computes the byte offsets table (length numRows+1) and
// the total size of the packed values payload.
func (b *VSizeRaggedBuilder) offsetsAndTotal() ([]uint32, uint32) {
	width := uint32(b.valuesWidth())
	offsets := make([]uint32, len(b.rows)+1)
	var cum uint32
	for i, row := range b.rows {
		offsets[i] = cum
		cum += uint32(len(row)) * width
	}
	offsets[len(b.rows)] = cum
	return offsets, cum
}

// SerializedSize returns the exact number of bytes WriteTo will emit.
func (b *VSizeRaggedBuilder) SerializedSize() uint32 {
	_, total := b.offsetsAndTotal()
	offsetsWidth := uint32(widthForMaxID(total))
	numRows := uint32(len(b.rows))
	return uint32(vsizeRaggedHeaderSize) + (numRows+1)*offsetsWidth + 4 + total
}

// WriteTo serializes the built ragged sequence to w in the MultiIds wire
// format.
func (b *VSizeRaggedBuilder) WriteTo(w io.Writer) (int64, error) {
	offsets, total := b.offsetsAndTotal()
	valuesWidth := b.valuesWidth()
	offsetsWidth := widthForMaxID(total)
	numRows := uint32(len(b.rows))

	var hdr [vsizeRaggedHeaderSize]byte
	hdr[0] = vsizeRaggedVersion
	hdr[1] = byte(offsetsWidth)
	hdr[2] = byte(valuesWidth)
	binary.BigEndian.PutUint32(hdr[3:7], numRows)
	n, err := w.Write(hdr[:])
	written := int64(n)
	if err != nil {
		return written, err
	}

	offsetsPayload := make([]byte, len(offsets)*offsetsWidth)
	for i, off := range offsets {
		writeBigEndianWidth(offsetsPayload, i*offsetsWidth, offsetsWidth, off)
	}
	n, err = w.Write(offsetsPayload)
	written += int64(n)
	if err != nil {
		return written, err
	}

	var valuesBytesHdr [4]byte
	binary.BigEndian.PutUint32(valuesBytesHdr[:], total)
	n, err = w.Write(valuesBytesHdr[:])
	written += int64(n)
	if err != nil {
		return written, err
	}

	valuesPayload := make([]byte, total)
	pos := 0
	for _, row := range b.rows {
		for _, id := range row {
			writeBigEndianWidth(valuesPayload, pos, valuesWidth, id)
			pos += valuesWidth
		}
	}
	n, err = w.Write(valuesPayload)
	written += int64(n)
	return written, err
}
