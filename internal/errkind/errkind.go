// Package errkind defines the three error classes shared across enstat.
//
// Every concrete error in the module wraps exactly one of these kinds, so a
// caller can classify a failure with errors.Is without knowing which package
// produced it.
package errkind

import "errors"

var (
	// InvalidArgument marks a bad value at a public API boundary: negative
	// dimensions, out-of-range selection indices, empty sample sets.
	InvalidArgument = errors.New("invalid argument")

	// OutOfRange marks an index or coordinate outside the extents of a
	// Field or Ensemble.
	OutOfRange = errors.New("out of range")

	// Runtime marks a failure detected while processing data: inconsistent
	// headers across ensemble members, malformed numbers, premature end of
	// file, access to an uninitialized Field.
	Runtime = errors.New("runtime error")
)

// Of returns the kind wrapped by err, or nil if err carries none.
func Of(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, InvalidArgument):
		return InvalidArgument
	case errors.Is(err, OutOfRange):
		return OutOfRange
	case errors.Is(err, Runtime):
		return Runtime
	default:
		return nil
	}
}
