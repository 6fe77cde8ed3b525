// Package dictcol implements the on-disk format and in-memory accessor for a
// dictionary-encoded, optionally multi-valued string column.
package dictcol

import (
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/redact"
)

// Sentinel markers for the error kinds this package produces. Use
// errors.Is(err, ErrCorruptFormat) etc. to classify an error returned from
// this package; the concrete error always carries additional context via
// Wrap/Newf and should not be compared with ==.
var (
	// ErrCorruptFormat marks an error observed while decoding a buffer that
	// does not conform to the wire format: truncated input, an illegal
	// width, non-monotonic offsets, or a count inconsistent with the
	// payload length.
	ErrCorruptFormat = errors.New("dictcol: corrupt format")
	// ErrInvalidArity marks a single-valued accessor invoked on a
	// multi-valued column, or vice versa.
	ErrInvalidArity = errors.New("dictcol: invalid arity")
	// ErrProgrammer marks a misuse of the API that a well-formed caller
	// would never trigger: writing a descriptor-only codec, or
	// constructing a codec with both or neither id storages.
	ErrProgrammer = errors.New("dictcol: programmer error")
	// ErrCollaboratorFailure marks an error surfaced by an external
	// collaborator (the bitmap factory or the R-tree strategy) while
	// decoding or encoding its own payload.
	ErrCollaboratorFailure = errors.New("dictcol: collaborator failure")
)

// corruptf formats a CorruptFormat error, mirroring base.CorruptionErrorf in
// the teacher repo's internal/base package.
func corruptf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrCorruptFormat)
}

// markCorrupt wraps err with the CorruptFormat marker, preserving its
// message, mirroring base.MarkCorruptionError.
func markCorrupt(err error) error {
	if err == nil {
		return nil
	}
	return errors.Mark(err, ErrCorruptFormat)
}

func invalidArityf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrInvalidArity)
}

func programmerErrorf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrProgrammer)
}

func collaboratorFailuref(component string, err error) error {
	return errors.Mark(errors.Wrapf(err, "dictcol: %s rejected its bytes", component), ErrCollaboratorFailure)
}

// IsCorruptFormat reports whether err (or one it wraps) is a CorruptFormat
// error, mirroring base.IsCorruptionError.
func IsCorruptFormat(err error) bool {
	return errors.Is(err, ErrCorruptFormat)
}

// checkBounds panics with a CorruptFormat-marked error if i is not in
// [0, n). Out-of-range row ordinals reaching this function indicate a
// corrupt segment rather than caller error, but by the time an accessor is
// called the buffer has already been validated at decode time, so this is
// deterministic defensive surfacing rather than a parse-time check.
func checkBounds(i, n int) {
	if i < 0 || i >= n {
		panic(corruptf("dictcol: index %d out of range [0, %d)", redact.Safe(i), redact.Safe(n)))
	}
}
