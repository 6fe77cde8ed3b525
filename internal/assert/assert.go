// Package assert provides a narrow invariant-checking helper, a
// deliberately simplified stand-in for the teacher repo's
// internal/invariants package: pebble gates invariant checks behind build
// tags (invariants.Enabled) so they compile out of release builds; this
// module has no comparable release/debug split to preserve, so Enabled is
// a plain constant instead of build-tag machinery.
package assert

import (
	"github.com/cockroachdb/errors"
)

// Enabled controls whether Assert actually checks its condition. It is a
// plain constant rather than a build tag because this module, unlike
// pebble, has no separate release build that needs the checks compiled
// away entirely.
const Enabled = true

// Assert panics with an AssertionFailedf error, mirroring pebble's
// "errors.AssertionFailedf" panic idiom, if cond is false and Enabled.
func Assert(cond bool, format string, args ...interface{}) {
	if Enabled && !cond {
		panic(errors.AssertionFailedf(format, args...))
	}
}
