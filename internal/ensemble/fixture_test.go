package ensemble

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// fixture describes a synthetic ensemble written by writeEnsemble.
type fixture struct {
	sims, steps   int
	width, height int
	depth         int
	names         []string
	// value returns the sample of field f at voxel i for (step, sim).
	value func(step, sim, f, i int) float64
}

func defaultFixture() fixture {
	return fixture{
		sims: 3, steps: 10,
		width: 2, height: 2, depth: 1,
		names: []string{"temperature", "pressure"},
		value: func(step, sim, f, i int) float64 {
			return float64(f*1000 + step*10 + sim + i)
		},
	}
}

// timestepFile renders one timestep file in the on-disk text format.
func (fx fixture) timestepFile(step, sim int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d %d %d %d\n", fx.width, fx.height, fx.depth, fx.width*fx.height*fx.depth)
	fmt.Fprintf(&b, "%d %s\n", len(fx.names), strings.Join(fx.names, " "))
	b.WriteString("0 velocity\n")
	for f := range fx.names {
		i := 0
		for row := 0; row < fx.height*fx.depth; row++ {
			vals := make([]string, fx.width)
			for x := range vals {
				vals[x] = fmt.Sprintf("%g", fx.value(step, sim, f, i))
				i++
			}
			b.WriteString(strings.Join(vals, " "))
			b.WriteByte('\n')
		}
		b.WriteString("\n")
	}
	return b.String()
}

// writeEnsemble lays fx out under a fresh temp dir and returns its root.
func writeEnsemble(t *testing.T, fx fixture) string {
	t.Helper()
	root := t.TempDir()
	for sim := 0; sim < fx.sims; sim++ {
		dir := filepath.Join(root, fmt.Sprintf("sim_%02d", sim))
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatal(err)
		}
		for step := 0; step < fx.steps; step++ {
			path := filepath.Join(dir, fmt.Sprintf("step_%03d.txt", step))
			if err := os.WriteFile(path, []byte(fx.timestepFile(step, sim)), 0644); err != nil {
				t.Fatal(err)
			}
		}
	}
	return root
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}
