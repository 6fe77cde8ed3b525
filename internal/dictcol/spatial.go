package dictcol

import (
	"encoding/binary"
	"io"
)

// RTree is the opaque, immutable spatial index this package depends on: a
// map from points to the Bitmap of row ordinals at that point. Its
// concrete representation is supplied by an RTreeFactory; this package
// never inspects an RTree's internals, mirroring the Bitmap/BitmapFactory
// split in bitmap.go.
type RTree interface {
	// Search returns the union of every Bitmap whose point falls within
	// the closed box [min, max]. min and max must be coordinates of equal
	// dimensionality.
	Search(min, max []float64) Bitmap
}

// RTreeFactory deserializes the spatial index payload written by a
// SpatialIndexBuilder. A concrete implementation (e.g. backed by an actual
// R-tree library) lives outside this package; see internal/spatial.
type RTreeFactory interface {
	Deserialize(span []byte, bitmaps BitmapFactory) (RTree, error)
}

// SpatialIndex is the optional fourth column component: an immutable
// R-tree over row coordinates, present only for dimensions configured as
// spatial. It is serialized as a length-prefixed opaque blob
// ([u32 numBytes][bytes]) so that this package's decode path never needs
// to understand the R-tree's internal layout — only the external
// RTreeFactory does.
type SpatialIndex struct {
	tree RTree
}

// HasSpatialIndex reports whether a SpatialIndex is present; the zero
// value (absent) has a nil tree.
func (s SpatialIndex) HasSpatialIndex() bool { return s.tree != nil }

// Search delegates to the underlying RTree. Calling Search on an absent
// SpatialIndex is a ProgrammerError: callers must check HasSpatialIndex
// first.
func (s SpatialIndex) Search(min, max []float64) Bitmap {
	if s.tree == nil {
		panic(programmerErrorf("dictcol: Search called on a column with no spatial index"))
	}
	return s.tree.Search(min, max)
}

// decodeSpatialIndex decodes the optional [u32 numBytes][bytes] spatial
// index payload found at offset within buf. A column written without a
// spatial index has zero bytes remaining after the bitmap index (spec
// §8's "Spatial absence" property), so that case is checked first and
// tree is left nil without consuming anything.
func decodeSpatialIndex(buf []byte, offset uint32, factory RTreeFactory, bitmaps BitmapFactory) (SpatialIndex, uint32, error) {
	if uint64(offset) == uint64(len(buf)) {
		return SpatialIndex{}, offset, nil
	}
	if uint64(offset)+4 > uint64(len(buf)) {
		return SpatialIndex{}, 0, corruptf("dictcol: truncated spatial index length at offset %d", offset)
	}
	numBytes := binary.BigEndian.Uint32(buf[offset : offset+4])
	bodyStart := offset + 4
	if numBytes == 0 {
		return SpatialIndex{}, bodyStart, nil
	}
	if uint64(bodyStart)+uint64(numBytes) > uint64(len(buf)) {
		return SpatialIndex{}, 0, corruptf(
			"dictcol: truncated spatial index payload: need %d bytes at offset %d, have %d",
			numBytes, bodyStart, len(buf)-int(bodyStart))
	}
	span := buf[bodyStart : bodyStart+numBytes]
	tree, err := factory.Deserialize(span, bitmaps)
	if err != nil {
		return SpatialIndex{}, 0, collaboratorFailuref("rtree factory", err)
	}
	return SpatialIndex{tree: tree}, bodyStart + numBytes, nil
}

// SpatialIndexBuilder accumulates a built RTree's serialized bytes for
// writing. Building the tree itself is the RTreeFactory's job; this
// builder only frames the resulting blob with its length prefix. When no
// payload is ever set, the component contributes zero bytes to the
// column: the spatial index is the one column component that is present
// iff bytes remain (spec §6), not a placeholder-length field.
type SpatialIndexBuilder struct {
	payload    []byte
	hasPayload bool
}

// NewSpatialIndexBuilder returns a builder that will write no spatial
// index at all (zero bytes) unless SetPayload is called.
func NewSpatialIndexBuilder() *SpatialIndexBuilder {
	return &SpatialIndexBuilder{}
}

// SetPayload installs the already-serialized R-tree bytes to write. It is
// the caller's responsibility to have produced these bytes via the same
// RTreeFactory that will later decode them.
func (b *SpatialIndexBuilder) SetPayload(payload []byte) {
	b.payload = payload
	b.hasPayload = true
}

// SerializedSize returns the exact number of bytes WriteTo will emit: zero
// when SetPayload was never called, otherwise the 4-byte length prefix
// plus the payload.
func (b *SpatialIndexBuilder) SerializedSize() uint32 {
	if !b.hasPayload {
		return 0
	}
	return 4 + uint32(len(b.payload))
}

// WriteTo serializes the spatial index to w, writing nothing at all when
// no payload was ever set.
func (b *SpatialIndexBuilder) WriteTo(w io.Writer) (int64, error) {
	if !b.hasPayload {
		return 0, nil
	}
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(b.payload)))
	n, err := w.Write(hdr[:])
	written := int64(n)
	if err != nil {
		return written, err
	}
	n2, err := w.Write(b.payload)
	return written + int64(n2), err
}
