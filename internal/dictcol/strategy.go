package dictcol

import "bytes"

// ObjectStrategy is the narrow capability GenericIndexed needs to convert
// between an on-disk byte span and a typed element T, per spec §9's
// "pluggable object strategies" design note: a small capability record
// rather than an inheritance hierarchy.
type ObjectStrategy[T any] interface {
	// Decode converts a byte span (a view into the shared backing buffer,
	// not owned by the caller past the current call) into a T.
	Decode(span []byte) (T, error)
	// Encode converts v into its on-disk byte representation.
	Encode(v T) []byte
	// CompareBytes compares two elements by their encoded byte spans
	// without decoding either, so that GenericIndexed.IndexOf can binary
	// search without allocating. Only meaningful when the GenericIndexed
	// was built with sorted=true.
	CompareBytes(a, b []byte) int
}

type stringStrategy struct{}

func (stringStrategy) Decode(span []byte) (string, error) { return string(span), nil }
func (stringStrategy) Encode(v string) []byte             { return []byte(v) }
func (stringStrategy) CompareBytes(a, b []byte) int       { return bytes.Compare(a, b) }

// StringStrategy decodes UTF-8 strings whose length is implied by the span,
// comparing by lexicographic byte order. This is the strategy used for a
// column's dictionary.
var StringStrategy ObjectStrategy[string] = stringStrategy{}
