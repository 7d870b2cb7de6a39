// Package ensemble loads an ensemble of simulation runs from disk and
// drives per-field analysis across its members.
//
// An ensemble root holds one directory per simulation, each containing the
// same number of timestep files:
//
//	root/<simulation>/<timestep file>
//
// Files are ordered by full path and then stably by base name, so the file
// for (step, simulation) sits at index step*NumSimulations()+simulation.
// Cross-simulation alignment therefore relies on timestep file names sorting
// lexicographically in time order.
package ensemble

import (
	"cmp"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/nvandessel/enstat/internal/analysis"
	"github.com/nvandessel/enstat/internal/field"
	"github.com/nvandessel/enstat/internal/logging"
)

// Options configures an Ensemble.
type Options struct {
	// Logger receives operational output. Nil discards it.
	Logger *slog.Logger
	// Tracer receives structured scan, selection and analysis events.
	// Nil disables tracing.
	Tracer logging.Tracer
}

// Selection is the (step, count, stride) context set by ReadHeaders.
// The aggregated steps are Step, Step+Stride, ..., Step+(Count-1)*Stride.
type Selection struct {
	Step   int `json:"step"`
	Count  int `json:"count"`
	Stride int `json:"stride"`
}

// Steps returns the aggregated step indices of s.
func (s Selection) Steps() []int {
	steps := make([]int, s.Count)
	for c := range steps {
		steps[c] = s.Step + c*s.Stride
	}
	return steps
}

// Ensemble is a validated set of simulation runs. It is not safe for
// concurrent use.
type Ensemble struct {
	root     string
	files    []string
	numSims  int
	numSteps int

	logger *slog.Logger
	tracer logging.Tracer

	headers   []*field.Field
	selection Selection
	fields    []*field.Field
	summary   analysis.Summary
}

// Open scans root and validates its layout. Every immediate subdirectory of
// root is a simulation and must hold the same non-zero number of regular
// files.
func Open(root string, opts Options) (*Ensemble, error) {
	e := &Ensemble{root: root, logger: opts.Logger, tracer: opts.Tracer}
	if e.logger == nil {
		e.logger = logging.Discard()
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("reading ensemble root: %w", err)
	}

	perSim := -1
	for _, entry := range entries {
		info, err := os.Stat(filepath.Join(root, entry.Name()))
		if err != nil || !info.IsDir() {
			continue
		}
		n, err := countRegularFiles(filepath.Join(root, entry.Name()))
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, fmt.Errorf("%w: %s holds no files", ErrFileCount, entry.Name())
		}
		if perSim >= 0 && n != perSim {
			return nil, fmt.Errorf("%w: %s has %d files, expected %d", ErrFileCount, entry.Name(), n, perSim)
		}
		perSim = n
		e.numSims++
	}
	if e.numSims == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoSimulations, root)
	}
	e.numSteps = perSim

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			e.files = append(e.files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("collecting ensemble files: %w", err)
	}
	slices.Sort(e.files)
	slices.SortStableFunc(e.files, func(a, b string) int {
		return cmp.Compare(filepath.Base(a), filepath.Base(b))
	})
	if len(e.files) != e.numSims*e.numSteps {
		return nil, fmt.Errorf("%w: found %d files under %s, expected %d simulations x %d steps",
			ErrFileCount, len(e.files), root, e.numSims, e.numSteps)
	}

	e.warnMisordered()
	e.logger.Info("opened ensemble", "root", root, "simulations", e.numSims, "steps", e.numSteps)
	e.trace(map[string]any{
		"event":       "scan",
		"root":        root,
		"simulations": e.numSims,
		"steps":       e.numSteps,
	})
	return e, nil
}

func countRegularFiles(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("reading simulation directory: %w", err)
	}
	n := 0
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			n++
		}
	}
	return n, nil
}

// warnMisordered logs when the name order of the first simulation's files
// disagrees with their natural numeric order, e.g. "step9" after "step10".
func (e *Ensemble) warnMisordered() {
	for s := 1; s < e.numSteps; s++ {
		prev := filepath.Base(e.files[(s-1)*e.numSims])
		cur := filepath.Base(e.files[s*e.numSims])
		if naturalCompare(cur, prev) < 0 {
			e.logger.Warn("timestep file names are not zero padded; steps may be misordered",
				"before", prev, "after", cur)
			return
		}
	}
}

func (e *Ensemble) trace(event map[string]any) {
	if e.tracer != nil {
		e.tracer.Log(event)
	}
}

// Root returns the directory the ensemble was opened from.
func (e *Ensemble) Root() string { return e.root }

// NumSimulations returns the number of ensemble members.
func (e *Ensemble) NumSimulations() int { return e.numSims }

// NumSteps returns the number of timestep files per member.
func (e *Ensemble) NumSteps() int { return e.numSteps }

// Files returns the canonically ordered file list.
func (e *Ensemble) Files() []string { return slices.Clone(e.files) }

// File returns the path of the timestep file for (step, simulation).
func (e *Ensemble) File(step, simulation int) (string, error) {
	if step < 0 || step >= e.numSteps {
		return "", fmt.Errorf("%w: step %d not in [0,%d)", ErrMember, step, e.numSteps)
	}
	if simulation < 0 || simulation >= e.numSims {
		return "", fmt.Errorf("%w: simulation %d not in [0,%d)", ErrMember, simulation, e.numSims)
	}
	return e.files[step*e.numSims+simulation], nil
}

// ReadHeaders selects count timesteps spaced stride apart starting at step,
// and parses the header of every selected file of every simulation. A count
// or stride of zero means one. The selection is rejected unless all those
// headers agree on field layouts and names.
//
// On success the headers and selection replace any previous ones and prior
// analysis results are discarded.
func (e *Ensemble) ReadHeaders(step, count, stride int) error {
	if step < 0 || step >= e.numSteps {
		return fmt.Errorf("%w: step %d not in [0,%d)", ErrSelection, step, e.numSteps)
	}
	if count < 0 || stride < 0 {
		return fmt.Errorf("%w: count %d and stride %d must be non-negative", ErrSelection, count, stride)
	}
	if stride > e.numSteps {
		return fmt.Errorf("%w: stride %d exceeds %d steps", ErrSelection, stride, e.numSteps)
	}
	if step+count*stride > e.numSteps {
		return fmt.Errorf("%w: step %d + %d*%d exceeds %d steps", ErrSelection, step, count, stride, e.numSteps)
	}
	sel := Selection{Step: step, Count: max(count, 1), Stride: max(stride, 1)}

	var canonical []*field.Field
	for _, s := range sel.Steps() {
		for sim := 0; sim < e.numSims; sim++ {
			path := e.files[s*e.numSims+sim]
			headers, err := readHeaderFile(path)
			if err != nil {
				return err
			}
			e.logger.Log(context.Background(), logging.LevelTrace, "read header", "file", path, "fields", len(headers))
			if canonical == nil {
				canonical = headers
				continue
			}
			if err := sameHeaders(canonical, headers); err != nil {
				return fmt.Errorf("%w: %s: %v", ErrHeaderMismatch, path, err)
			}
		}
	}

	e.headers = canonical
	e.selection = sel
	e.DiscardResults()

	names := make([]string, len(canonical))
	for i, h := range canonical {
		names[i] = h.Name()
	}
	e.logger.Debug("read headers", "step", sel.Step, "count", sel.Count, "stride", sel.Stride, "fields", names)
	e.trace(map[string]any{
		"event":  "headers",
		"step":   sel.Step,
		"count":  sel.Count,
		"stride": sel.Stride,
		"fields": names,
	})
	return nil
}

// Headers returns the cached field layouts of the current selection.
func (e *Ensemble) Headers() []*field.Field { return slices.Clone(e.headers) }

// Selection returns the current selection and whether ReadHeaders has
// succeeded.
func (e *Ensemble) Selection() (Selection, bool) {
	return e.selection, e.headers != nil
}

// FieldIndex returns the index of the named field in the cached headers.
func (e *Ensemble) FieldIndex(name string) (int, error) {
	if e.headers == nil {
		return 0, ErrNoHeaders
	}
	for i, h := range e.headers {
		if h.Name() == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrFieldIndex, name)
}

func (e *Ensemble) header(fieldIndex int) (*field.Field, error) {
	if e.headers == nil {
		return nil, ErrNoHeaders
	}
	if fieldIndex < 0 || fieldIndex >= len(e.headers) {
		return nil, fmt.Errorf("%w: index %d not in [0,%d)", ErrFieldIndex, fieldIndex, len(e.headers))
	}
	return e.headers[fieldIndex], nil
}

// samples reads field fieldIndex from every selected (step, simulation)
// file. I/O is sequential.
func (e *Ensemble) samples(fieldIndex int) ([]*field.Field, error) {
	layout, err := e.header(fieldIndex)
	if err != nil {
		return nil, err
	}
	var out []*field.Field
	for _, s := range e.selection.Steps() {
		for sim := 0; sim < e.numSims; sim++ {
			path := e.files[s*e.numSims+sim]
			f, err := readFieldFile(path, fieldIndex, layout)
			if err != nil {
				return nil, err
			}
			out = append(out, f)
		}
	}
	return out, nil
}

// AnalyseField reads field fieldIndex from every member and aggregated step
// of the current selection and summarizes each voxel with the kind model.
// The output Fields replace any previous results; on error there are none.
func (e *Ensemble) AnalyseField(fieldIndex int, kind analysis.Kind, opts analysis.Options) (analysis.Result, error) {
	e.DiscardResults()

	start := time.Now()
	samples, err := e.samples(fieldIndex)
	if err != nil {
		return analysis.Result{}, err
	}
	read := time.Since(start)

	name := e.headers[fieldIndex].Name()
	res, err := analysis.Analyze(kind, samples, name, opts)
	if err != nil {
		return analysis.Result{}, fmt.Errorf("analysing %q: %w", name, err)
	}
	e.fields = res.Fields
	e.summary = res.Summary

	e.logger.Info("analysed field",
		"field", name,
		"kind", kind.String(),
		"members", res.Summary.Members,
		"voxels", res.Summary.Voxels,
		"workers", res.Summary.Workers,
		"read", read,
		"fit", res.Summary.Duration)
	event := map[string]any{
		"event":       "analyse",
		"field":       name,
		"kind":        kind.String(),
		"members":     res.Summary.Members,
		"voxels":      res.Summary.Voxels,
		"workers":     res.Summary.Workers,
		"read_ms":     read.Milliseconds(),
		"duration_ms": res.Summary.Duration.Milliseconds(),
	}
	if res.Summary.ComponentCounts != nil {
		event["component_counts"] = res.Summary.ComponentCounts
		event["iterations"] = res.Summary.Iterations
	}
	e.trace(event)
	return res, nil
}

// DiscardResults drops the output Fields and summary of the last
// AnalyseField.
func (e *Ensemble) DiscardResults() {
	e.fields = nil
	e.summary = analysis.Summary{}
}

// Fields returns the output Fields of the last successful AnalyseField.
func (e *Ensemble) Fields() []*field.Field { return slices.Clone(e.fields) }

// Summary returns the summary of the last successful AnalyseField.
func (e *Ensemble) Summary() analysis.Summary { return e.summary }

// Column returns the raw ensemble samples of field fieldIndex at voxel
// (x, y, z) for the current selection, in (step, simulation) order.
func (e *Ensemble) Column(fieldIndex, x, y, z int) ([]float64, error) {
	samples, err := e.samples(fieldIndex)
	if err != nil {
		return nil, err
	}
	col := make([]float64, len(samples))
	for i, s := range samples {
		v, err := s.ValueAt(0, x, y, z)
		if err != nil {
			return nil, err
		}
		col[i] = v
	}
	return col, nil
}
