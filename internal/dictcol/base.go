package dictcol

// This file holds the small big-endian width helpers shared by VSizeInts,
// VSizeRagged and GenericIndexed. The teacher repo's sstable/colblk package
// solves the analogous problem (packing a column of fixed-width integers)
// with a little-endian, delta-encoded scheme (colblk.UintBuilder); this
// format is normatively big-endian and never delta-encodes, so the teacher's
// alignment and delta machinery doesn't carry over — only the overall
// two-pass "compute width up front, then pack" shape does.

// widthForMaxID returns the minimum number of bytes in {1,2,3,4} needed to
// represent every value in [0, maxID], per spec: width = ceil(log2(max_id+1)
// / 8) clamped to {1..4}.
func widthForMaxID(maxID uint32) int {
	for w := 1; w < 4; w++ {
		if uint64(maxID) < uint64(1)<<(8*uint(w)) {
			return w
		}
	}
	return 4
}

// readBigEndianWidth decodes a width-byte (1-4) big-endian unsigned integer
// from b at offset. The caller must ensure b[offset:offset+width] is in
// bounds.
func readBigEndianWidth(b []byte, offset, width int) uint32 {
	var v uint32
	for i := 0; i < width; i++ {
		v = v<<8 | uint32(b[offset+i])
	}
	return v
}

// writeBigEndianWidth encodes v into b[offset:offset+width] as a width-byte
// big-endian unsigned integer. v must fit in width bytes.
func writeBigEndianWidth(b []byte, offset, width int, v uint32) {
	for i := width - 1; i >= 0; i-- {
		b[offset+i] = byte(v)
		v >>= 8
	}
}
