package mcp

// ScanInput defines the input for the enstat_scan tool.
type ScanInput struct {
	Files bool `json:"files,omitempty" jsonschema:"List every timestep file in canonical order"`
}

// ScanOutput defines the output for the enstat_scan tool.
type ScanOutput struct {
	Root        string      `json:"root" jsonschema:"Ensemble root directory"`
	Simulations int         `json:"simulations" jsonschema:"Number of simulations (ensemble members)"`
	Steps       int         `json:"steps" jsonschema:"Number of timesteps per simulation"`
	Files       []string    `json:"files,omitempty" jsonschema:"Timestep files, index step*simulations+simulation"`
	Selection   *Selection  `json:"selection,omitempty" jsonschema:"Current timestep selection, if headers were read"`
	Fields      []FieldInfo `json:"fields,omitempty" jsonschema:"Fields of the current selection"`
}

// Selection is a timestep selection.
type Selection struct {
	Step   int `json:"step" jsonschema:"First selected timestep"`
	Count  int `json:"count" jsonschema:"Number of selected timesteps"`
	Stride int `json:"stride" jsonschema:"Distance between selected timesteps"`
}

// FieldInfo describes one field of the current selection.
type FieldInfo struct {
	Index  int    `json:"index"`
	Name   string `json:"name"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Depth  int    `json:"depth"`
}

// HeadersInput defines the input for the enstat_headers tool.
type HeadersInput struct {
	Step   int `json:"step,omitempty" jsonschema:"First timestep to aggregate (default 0)"`
	Count  int `json:"count,omitempty" jsonschema:"Number of timesteps to aggregate (default 1)"`
	Stride int `json:"stride,omitempty" jsonschema:"Distance between aggregated timesteps (default 1)"`
}

// HeadersOutput defines the output for the enstat_headers tool.
type HeadersOutput struct {
	Selection Selection   `json:"selection"`
	Fields    []FieldInfo `json:"fields" jsonschema:"Fields shared by every selected timestep file"`
}

// AnalyseInput defines the input for the enstat_analyse tool.
type AnalyseInput struct {
	Field         string `json:"field" jsonschema:"Field name or index in the current selection"`
	Kind          string `json:"kind,omitempty" jsonschema:"Analysis kind: gaussian_single or gaussian_mixture (default from configuration)"`
	Workers       int    `json:"workers,omitempty" jsonschema:"Worker goroutines (default one per CPU)"`
	MaxComponents int    `json:"max_components,omitempty" jsonschema:"Mixture components stored per voxel (default 4)"`
	RandomInit    bool   `json:"random_init,omitempty" jsonschema:"Seed mixture fits randomly instead of from quantiles"`
	Seed          uint64 `json:"seed,omitempty" jsonschema:"Seed for random initialization (0 picks one from the clock)"`
}

// Output describes one analysis output field.
type Output struct {
	Name           string    `json:"name"`
	PointDimension int       `json:"point_dimension" jsonschema:"Channels per voxel"`
	Minima         []float64 `json:"minima" jsonschema:"Per-channel minimum"`
	Maxima         []float64 `json:"maxima" jsonschema:"Per-channel maximum"`
}

// Range is a rounded display interval.
type Range struct {
	Lower float64   `json:"lower"`
	Upper float64   `json:"upper"`
	Ticks []float64 `json:"ticks"`
}

// AnalyseOutput defines the output for the enstat_analyse tool.
type AnalyseOutput struct {
	RunID           int64     `json:"run_id,omitempty" jsonschema:"Journal id of this run"`
	Field           string    `json:"field"`
	Kind            string    `json:"kind"`
	Selection       Selection `json:"selection"`
	Members         int       `json:"members" jsonschema:"Samples per voxel"`
	Voxels          int       `json:"voxels"`
	Workers         int       `json:"workers"`
	DurationMs      int64     `json:"duration_ms"`
	ComponentCounts []int     `json:"component_counts,omitempty" jsonschema:"Voxels per selected mixture size, indexed by size"`
	Outputs         []Output  `json:"outputs"`
	Display         Range     `json:"display" jsonschema:"Display range covering mean plus or minus deviation"`
}

// PeaksInput defines the input for the enstat_peaks tool.
type PeaksInput struct {
	Field string `json:"field" jsonschema:"Field name or index in the current selection"`
	X     int    `json:"x,omitempty"`
	Y     int    `json:"y,omitempty"`
	Z     int    `json:"z,omitempty"`
	Bins  int    `json:"bins,omitempty" jsonschema:"Histogram bins (default from configuration)"`
}

// Component is one Gaussian mixture component.
type Component struct {
	Mean     float64 `json:"mean"`
	Variance float64 `json:"variance"`
	Weight   float64 `json:"weight"`
}

// PeaksOutput defines the output for the enstat_peaks tool.
type PeaksOutput struct {
	Field     string      `json:"field"`
	Samples   int         `json:"samples"`
	Mean      float64     `json:"mean"`
	Deviation float64     `json:"deviation"`
	Histogram []int       `json:"histogram"`
	Peaks     int         `json:"peaks" jsonschema:"Modes counted in the histogram"`
	Display   Range       `json:"display"`
	Mixture   []Component `json:"mixture" jsonschema:"Mixture selected by the information criterion"`
	AIC       float64     `json:"aic"`
}

// RunsInput defines the input for the enstat_runs tool.
type RunsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"Maximum runs to return, newest first (default 20)"`
}

// RunItem is one journaled analysis run.
type RunItem struct {
	ID         int64  `json:"id"`
	StartedAt  string `json:"started_at" jsonschema:"RFC 3339 start time"`
	Root       string `json:"root"`
	Field      string `json:"field"`
	Kind       string `json:"kind"`
	Step       int    `json:"step"`
	Count      int    `json:"count"`
	Stride     int    `json:"stride"`
	Members    int    `json:"members"`
	DurationMs int64  `json:"duration_ms"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
}

// RunsOutput defines the output for the enstat_runs tool.
type RunsOutput struct {
	Runs  []RunItem `json:"runs"`
	Count int       `json:"count"`
}

// ExportInput defines the input for the enstat_export tool.
type ExportInput struct {
	Name string `json:"name" jsonschema:"Export file name, relative to the export directory"`
}

// ExportOutput defines the output for the enstat_export tool.
type ExportOutput struct {
	Path  string `json:"path"`
	Bytes int64  `json:"bytes"`
}
