package field

import (
	"fmt"

	"github.com/nvandessel/enstat/internal/errkind"
)

var (
	// ErrNegativeDimension indicates a construction dimension below zero.
	ErrNegativeDimension = fmt.Errorf("field: negative dimension: %w", errkind.InvalidArgument)
	// ErrNotInitialized indicates data access before Initialize.
	ErrNotInitialized = fmt.Errorf("field: not initialized: %w", errkind.Runtime)
	// ErrOutOfRange indicates a point, channel or coordinate outside the Field.
	ErrOutOfRange = fmt.Errorf("field: index out of range: %w", errkind.OutOfRange)
	// ErrLayoutMismatch indicates two Fields that must share a layout do not.
	ErrLayoutMismatch = fmt.Errorf("field: layouts differ: %w", errkind.InvalidArgument)
	// ErrEmpty indicates an aggregate over a Field or box with no values.
	ErrEmpty = fmt.Errorf("field: no values: %w", errkind.InvalidArgument)
)
