package ensemble

import (
	"fmt"

	"github.com/nvandessel/enstat/internal/errkind"
)

var (
	// ErrNoSimulations indicates a root without simulation subdirectories.
	ErrNoSimulations = fmt.Errorf("ensemble: no simulation directories: %w", errkind.Runtime)
	// ErrFileCount indicates simulation directories that disagree on their
	// number of timestep files, or hold none.
	ErrFileCount = fmt.Errorf("ensemble: inconsistent file count: %w", errkind.Runtime)
	// ErrSelection indicates a step, count or stride outside the ensemble.
	ErrSelection = fmt.Errorf("ensemble: invalid step selection: %w", errkind.InvalidArgument)
	// ErrNoHeaders indicates an operation that needs ReadHeaders first.
	ErrNoHeaders = fmt.Errorf("ensemble: headers not read: %w", errkind.Runtime)
	// ErrFieldIndex indicates a field index or name not in the cached headers.
	ErrFieldIndex = fmt.Errorf("ensemble: no such field: %w", errkind.OutOfRange)
	// ErrMember indicates a step or simulation index outside the ensemble.
	ErrMember = fmt.Errorf("ensemble: no such member: %w", errkind.OutOfRange)
	// ErrHeaderTotal indicates a header whose point total is not
	// width*height*depth.
	ErrHeaderTotal = fmt.Errorf("ensemble: header total mismatch: %w", errkind.Runtime)
	// ErrHeaderMismatch indicates members whose field layouts or names differ.
	ErrHeaderMismatch = fmt.Errorf("ensemble: headers differ between members: %w", errkind.Runtime)
)
