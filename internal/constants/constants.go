// Package constants provides named constants used throughout enstat.
// This centralizes the numeric defaults of the fitting kernel and the
// timestep file format.
package constants

// Mixture fitting defaults
const (
	// DefaultMaxComponents is the number of mixture components written per
	// voxel by a GAUSSIAN_MIXTURE analysis. Smaller winning models are padded
	// up to this count.
	DefaultMaxComponents = 4

	// DefaultMaxIterations caps the EM iterations run for one candidate k.
	DefaultMaxIterations = 100

	// DefaultEpsilon is the log-likelihood change below which EM is
	// considered converged.
	DefaultEpsilon = 1e-6

	// DefaultKBias scales the parameter-count penalty in the information
	// criteria. Values below 1 accept more components than classic AIC.
	DefaultKBias = 0.5

	// DefaultRestarts is the number of random initializations scored per k
	// when random initialization is enabled.
	DefaultRestarts = 8
)

// Timestep file format constants
const (
	// HeaderRecords is the number of newline-terminated records preceding
	// the first field's data block: dimensions, field names, and the
	// reserved vector-field line.
	HeaderRecords = 3

	// MaxReservedHeaderLen is the maximum length of the reserved third
	// header line.
	MaxReservedHeaderLen = 1024
)

// Presentation constants
const (
	// DefaultPeakBins is the histogram bin count used by peak counting when
	// the caller does not pick one.
	DefaultPeakBins = 16

	// DefaultDivisions is the target number of axis divisions for display
	// ranges.
	DefaultDivisions = 8
)
