package simulation

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nvandessel/enstat/internal/errkind"
)

// ErrScenario indicates a scenario that cannot be written.
var ErrScenario = fmt.Errorf("simulation: invalid scenario: %w", errkind.InvalidArgument)

// ValueFunc returns the sample at voxel i for (step, sim).
type ValueFunc func(step, sim, i int) float64

// FieldSpec names one scalar field and generates its values.
type FieldSpec struct {
	Name  string
	Value ValueFunc
}

// Scenario defines a synthetic ensemble.
type Scenario struct {
	Simulations int
	Steps       int
	Width       int
	Height      int
	Depth       int
	Fields      []FieldSpec

	// Reserved is written on the third header line. Empty writes "0".
	Reserved string
	// Unpadded names files step_1.txt rather than step_001.txt.
	Unpadded bool
}

// Volume returns the voxel count of the scenario grid.
func (s Scenario) Volume() int { return s.Width * s.Height * s.Depth }

func (s Scenario) validate() error {
	switch {
	case s.Simulations < 1 || s.Steps < 1:
		return fmt.Errorf("%w: need at least one simulation and one step", ErrScenario)
	case s.Width < 1 || s.Height < 1 || s.Depth < 1:
		return fmt.Errorf("%w: grid %dx%dx%d", ErrScenario, s.Width, s.Height, s.Depth)
	case len(s.Fields) == 0:
		return fmt.Errorf("%w: no fields", ErrScenario)
	}
	for _, f := range s.Fields {
		if f.Name == "" || strings.ContainsAny(f.Name, " \t\r\n") || f.Value == nil {
			return fmt.Errorf("%w: field %q", ErrScenario, f.Name)
		}
	}
	return nil
}

// SimulationDir returns the directory of simulation sim under root.
func (s Scenario) SimulationDir(root string, sim int) string {
	return filepath.Join(root, fmt.Sprintf("sim_%02d", sim))
}

// StepFile returns the path of timestep step of simulation sim under root.
func (s Scenario) StepFile(root string, step, sim int) string {
	name := fmt.Sprintf("step_%03d.txt", step)
	if s.Unpadded {
		name = fmt.Sprintf("step_%d.txt", step)
	}
	return filepath.Join(s.SimulationDir(root, sim), name)
}

// Write lays the scenario out under root, creating it if needed.
func (s Scenario) Write(root string) error {
	if err := s.validate(); err != nil {
		return err
	}
	for sim := 0; sim < s.Simulations; sim++ {
		if err := os.MkdirAll(s.SimulationDir(root, sim), 0755); err != nil {
			return fmt.Errorf("creating simulation directory: %w", err)
		}
		for step := 0; step < s.Steps; step++ {
			if err := s.writeStep(s.StepFile(root, step, sim), step, sim); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s Scenario) writeStep(path string, step, sim int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating timestep file: %w", err)
	}
	if err := s.render(f, step, sim); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// render writes one timestep file: the three header records, then per field
// one record per row of Width values followed by an empty separator record.
func (s Scenario) render(out io.Writer, step, sim int) error {
	w := bufio.NewWriter(out)
	fmt.Fprintf(w, "%d %d %d %d\n", s.Width, s.Height, s.Depth, s.Volume())
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	fmt.Fprintf(w, "%d %s\n", len(names), strings.Join(names, " "))
	reserved := s.Reserved
	if reserved == "" {
		reserved = "0"
	}
	w.WriteString(reserved)
	w.WriteByte('\n')

	for _, f := range s.Fields {
		i := 0
		for row := 0; row < s.Height*s.Depth; row++ {
			for x := 0; x < s.Width; x++ {
				if x > 0 {
					w.WriteByte(' ')
				}
				w.WriteString(strconv.FormatFloat(f.Value(step, sim, i), 'g', -1, 64))
				i++
			}
			w.WriteByte('\n')
		}
		w.WriteByte('\n')
	}
	return w.Flush()
}

// Render returns the text of one timestep file.
func (s Scenario) Render(step, sim int) (string, error) {
	if err := s.validate(); err != nil {
		return "", err
	}
	var b strings.Builder
	if err := s.render(&b, step, sim); err != nil {
		return "", err
	}
	return b.String(), nil
}

// Linear returns a field whose value encodes its coordinates:
// offset + step*10 + sim + i.
func Linear(name string, offset float64) FieldSpec {
	return FieldSpec{Name: name, Value: func(step, sim, i int) float64 {
		return offset + float64(step*10+sim+i)
	}}
}

// Normal returns a field whose members at every voxel sit on the quantiles
// of N(mean, deviation²), spread over sims simulations. Steps repeat the
// same values.
func Normal(name string, sims int, mean, deviation float64) FieldSpec {
	return FieldSpec{Name: name, Value: func(step, sim, i int) float64 {
		return mean + deviation*quantile(sim, sims)
	}}
}

// Bimodal returns a field whose even simulations cluster around lo and odd
// simulations around hi, each group on normal quantiles with the given
// deviation. sims is the simulation count of the scenario.
func Bimodal(name string, sims int, lo, hi, deviation float64) FieldSpec {
	even, odd := (sims+1)/2, sims/2
	return FieldSpec{Name: name, Value: func(step, sim, i int) float64 {
		if sim%2 == 1 {
			return hi + deviation*quantile(sim/2, odd)
		}
		return lo + deviation*quantile(sim/2, even)
	}}
}

// Constant returns a field with the same value everywhere.
func Constant(name string, v float64) FieldSpec {
	return FieldSpec{Name: name, Value: func(int, int, int) float64 { return v }}
}

// quantile returns the standard normal quantile of (j+0.5)/n.
func quantile(j, n int) float64 {
	p := (float64(j) + 0.5) / float64(n)
	return math.Sqrt2 * math.Erfinv(2*p-1)
}
