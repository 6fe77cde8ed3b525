// Package segment provides a minimal zero-copy loader for the files a
// dictionary-encoded column's bytes live in. It is a stand-in for the
// surrounding segment/storage-adapter layer spec.md treats as an
// out-of-scope external interface (§1 Non-goals), included here only to
// demonstrate the accessor reading straight out of mapped memory.
package segment

import (
	"os"

	"github.com/edsrzf/mmap-go"

	"github.com/gcwind2007/druid/internal/dictcol"
	"github.com/gcwind2007/druid/internal/metrics"
)

// File is a memory-mapped column file. Its Bytes() are valid for exactly
// as long as the File remains open.
type File struct {
	f  *os.File
	mm mmap.MMap
}

// Open maps path read-only into memory.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	mm, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &File{f: f, mm: mm}, nil
}

// Bytes returns the mapped file contents.
func (s *File) Bytes() []byte { return s.mm }

// Close unmaps the file and closes the descriptor.
func (s *File) Close() error {
	if err := s.mm.Unmap(); err != nil {
		s.f.Close()
		return err
	}
	return s.f.Close()
}

// ReadColumn maps path and decodes a DictionaryEncodedColumn directly out
// of the mapping. The returned column is only valid while the returned
// *File remains open; the caller owns closing it. recorder, if non-nil,
// receives the resulting column's lookup/spatial-search metrics.
func ReadColumn(path string, bitmaps dictcol.BitmapFactory, rtree dictcol.RTreeFactory, cacheSizeBytes int64, recorder *metrics.Recorder) (*dictcol.DictionaryEncodedColumn, *File, error) {
	f, err := Open(path)
	if err != nil {
		return nil, nil, err
	}
	col, err := dictcol.ReadColumn(f.Bytes(), bitmaps, rtree, cacheSizeBytes, recorder)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return col, f, nil
}
