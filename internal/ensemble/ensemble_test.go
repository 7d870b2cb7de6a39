package ensemble

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nvandessel/enstat/internal/analysis"
	"github.com/nvandessel/enstat/internal/errkind"
	"github.com/nvandessel/enstat/internal/logging"
	"github.com/nvandessel/enstat/internal/textio"
)

func openFixture(t *testing.T, fx fixture) *Ensemble {
	t.Helper()
	e, err := Open(writeEnsemble(t, fx), Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return e
}

func TestOpen_CanonicalOrder(t *testing.T) {
	fx := defaultFixture()
	root := writeEnsemble(t, fx)
	e, err := Open(root, Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if e.NumSimulations() != 3 || e.NumSteps() != 10 {
		t.Fatalf("got %d simulations x %d steps, want 3 x 10", e.NumSimulations(), e.NumSteps())
	}
	files := e.Files()
	if len(files) != 30 {
		t.Fatalf("got %d files, want 30", len(files))
	}
	for step := 0; step < fx.steps; step++ {
		for sim := 0; sim < fx.sims; sim++ {
			want := filepath.Join(root, fmt.Sprintf("sim_%02d", sim), fmt.Sprintf("step_%03d.txt", step))
			got, err := e.File(step, sim)
			if err != nil {
				t.Fatalf("File(%d, %d): %v", step, sim, err)
			}
			if got != want {
				t.Errorf("File(%d, %d) = %s, want %s", step, sim, got, want)
			}
			if files[step*fx.sims+sim] != want {
				t.Errorf("files[%d] = %s, want %s", step*fx.sims+sim, files[step*fx.sims+sim], want)
			}
		}
	}

	if _, err := e.File(10, 0); !errors.Is(err, errkind.OutOfRange) {
		t.Errorf("File(10, 0) error = %v, want OutOfRange", err)
	}
	if _, err := e.File(0, -1); !errors.Is(err, ErrMember) {
		t.Errorf("File(0, -1) error = %v, want ErrMember", err)
	}
}

func TestOpen_Errors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, root string)
		want  error
	}{
		{
			name:  "no simulations",
			setup: func(t *testing.T, root string) {},
			want:  ErrNoSimulations,
		},
		{
			name: "unequal file counts",
			setup: func(t *testing.T, root string) {
				for i := 0; i < 5; i++ {
					writeFile(t, filepath.Join(root, "a", fmt.Sprintf("s%d", i)), "x")
				}
				for i := 0; i < 4; i++ {
					writeFile(t, filepath.Join(root, "b", fmt.Sprintf("s%d", i)), "x")
				}
			},
			want: ErrFileCount,
		},
		{
			name: "empty simulation",
			setup: func(t *testing.T, root string) {
				writeFile(t, filepath.Join(root, "a", "s0"), "x")
				writeFile(t, filepath.Join(root, "b", "nested", "s0"), "x")
			},
			want: ErrFileCount,
		},
		{
			name: "stray file in root",
			setup: func(t *testing.T, root string) {
				writeFile(t, filepath.Join(root, "a", "s0"), "x")
				writeFile(t, filepath.Join(root, "README"), "x")
			},
			want: ErrFileCount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			tt.setup(t, root)
			_, err := Open(root, Options{})
			if !errors.Is(err, tt.want) {
				t.Errorf("Open error = %v, want %v", err, tt.want)
			}
			if !errors.Is(err, errkind.Runtime) {
				t.Errorf("Open error = %v, want Runtime kind", err)
			}
		})
	}

	if _, err := Open(filepath.Join(t.TempDir(), "missing"), Options{}); err == nil {
		t.Error("Open on a missing root should fail")
	}
}

func TestOpen_WarnsOnUnpaddedNames(t *testing.T) {
	root := t.TempDir()
	for _, sim := range []string{"a", "b"} {
		for _, step := range []string{"step9", "step10"} {
			writeFile(t, filepath.Join(root, sim, step), "x")
		}
	}

	var buf bytes.Buffer
	if _, err := Open(root, Options{Logger: logging.NewLogger("info", &buf)}); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !strings.Contains(buf.String(), "not zero padded") {
		t.Errorf("expected misorder warning, got %q", buf.String())
	}
}

func TestReadHeaders_Selection(t *testing.T) {
	e := openFixture(t, defaultFixture())

	tests := []struct {
		name                string
		step, count, stride int
		wantErr             bool
		want                Selection
	}{
		{"single step", 0, 1, 1, false, Selection{0, 1, 1}},
		{"zero count and stride normalize", 9, 0, 0, false, Selection{9, 1, 1}},
		{"aggregate to end", 4, 3, 2, false, Selection{4, 3, 2}},
		{"past end", 8, 2, 2, true, Selection{}},
		{"negative step", -1, 1, 1, true, Selection{}},
		{"step out of range", 10, 1, 1, true, Selection{}},
		{"negative count", 0, -1, 1, true, Selection{}},
		{"negative stride", 0, 1, -1, true, Selection{}},
		{"stride beyond steps", 0, 0, 11, true, Selection{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := e.ReadHeaders(tt.step, tt.count, tt.stride)
			if tt.wantErr {
				if !errors.Is(err, ErrSelection) || !errors.Is(err, errkind.InvalidArgument) {
					t.Errorf("ReadHeaders error = %v, want ErrSelection", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadHeaders: %v", err)
			}
			got, ok := e.Selection()
			if !ok || got != tt.want {
				t.Errorf("Selection() = %+v, %v; want %+v", got, ok, tt.want)
			}
		})
	}
}

func TestReadHeaders_Layout(t *testing.T) {
	e := openFixture(t, defaultFixture())
	if _, ok := e.Selection(); ok {
		t.Error("Selection() reported headers before ReadHeaders")
	}
	if err := e.ReadHeaders(0, 2, 3); err != nil {
		t.Fatalf("ReadHeaders: %v", err)
	}

	headers := e.Headers()
	if len(headers) != 2 {
		t.Fatalf("got %d headers, want 2", len(headers))
	}
	for i, name := range []string{"temperature", "pressure"} {
		h := headers[i]
		if h.Name() != name {
			t.Errorf("header %d name = %q, want %q", i, h.Name(), name)
		}
		if h.PointDimension() != 1 || h.Width() != 2 || h.Height() != 2 || h.Depth() != 1 {
			t.Errorf("header %d layout = %v", i, h.Layout())
		}
		if h.Initialized() {
			t.Errorf("header %d should be a placeholder", i)
		}
	}

	idx, err := e.FieldIndex("pressure")
	if err != nil || idx != 1 {
		t.Errorf("FieldIndex(pressure) = %d, %v; want 1", idx, err)
	}
	if _, err := e.FieldIndex("salinity"); !errors.Is(err, ErrFieldIndex) {
		t.Errorf("FieldIndex(salinity) error = %v, want ErrFieldIndex", err)
	}
}

func TestReadHeaders_Inconsistent(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		wantErr error
	}{
		{"renamed field", "2 2 1 4\n2 temperature salinity\n", ErrHeaderMismatch},
		{"other grid", "4 1 1 4\n2 temperature pressure\n", ErrHeaderMismatch},
		{"fewer fields", "2 2 1 4\n1 temperature\n", ErrHeaderMismatch},
		{"bad total", "2 2 1 5\n2 temperature pressure\n", ErrHeaderTotal},
		{"malformed", "2 two 1 4\n2 temperature pressure\n", textio.ErrMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := defaultFixture()
			root := writeEnsemble(t, fx)
			// Corrupt step 2 of the last simulation only.
			writeFile(t, filepath.Join(root, "sim_02", "step_002.txt"), tt.header+"\n")

			e, err := Open(root, Options{})
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			if err := e.ReadHeaders(0, 1, 1); err != nil {
				t.Fatalf("ReadHeaders on clean step: %v", err)
			}

			err = e.ReadHeaders(0, 2, 2)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ReadHeaders error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, errkind.Runtime) {
				t.Errorf("ReadHeaders error = %v, want Runtime kind", err)
			}
			if sel, _ := e.Selection(); sel != (Selection{0, 1, 1}) {
				t.Errorf("failed ReadHeaders replaced selection with %+v", sel)
			}
		})
	}
}

func TestAnalyseField_SingleGaussian(t *testing.T) {
	fx := defaultFixture()
	fx.width, fx.height = 1, 1
	fx.value = func(step, sim, f, i int) float64 {
		return float64(f*100 + sim + 1)
	}
	e := openFixture(t, fx)
	if err := e.ReadHeaders(5, 1, 1); err != nil {
		t.Fatalf("ReadHeaders: %v", err)
	}

	res, err := e.AnalyseField(1, analysis.GaussianSingle, analysis.DefaultOptions())
	if err != nil {
		t.Fatalf("AnalyseField: %v", err)
	}
	if len(res.Fields) != 2 {
		t.Fatalf("got %d fields, want 2", len(res.Fields))
	}
	if res.Fields[0].Name() != "pressure_mean" || res.Fields[1].Name() != "pressure_deviation" {
		t.Errorf("output names = %s, %s", res.Fields[0].Name(), res.Fields[1].Name())
	}
	mean, _ := res.Fields[0].Value(0, 0)
	dev, _ := res.Fields[1].Value(0, 0)
	if mean != 102 {
		t.Errorf("mean = %v, want 102", mean)
	}
	if math.Abs(dev-math.Sqrt(2.0/3.0)) > 1e-12 {
		t.Errorf("deviation = %v, want %v", dev, math.Sqrt(2.0/3.0))
	}
	if got := e.Fields(); len(got) != 2 || got[0] != res.Fields[0] {
		t.Error("Fields() does not expose the last result")
	}
	if e.Summary().Members != 3 {
		t.Errorf("Summary().Members = %d, want 3", e.Summary().Members)
	}
}

func TestAnalyseField_Aggregation(t *testing.T) {
	fx := defaultFixture()
	e := openFixture(t, fx)
	if err := e.ReadHeaders(1, 3, 3); err != nil {
		t.Fatalf("ReadHeaders: %v", err)
	}

	res, err := e.AnalyseField(0, analysis.GaussianSingle, analysis.DefaultOptions())
	if err != nil {
		t.Fatalf("AnalyseField: %v", err)
	}
	if res.Summary.Members != 9 {
		t.Errorf("members = %d, want 9", res.Summary.Members)
	}

	// Samples at voxel i are step*10 + sim + i for steps {1,4,7}, sims {0,1,2}.
	for i := 0; i < 4; i++ {
		got, _ := res.Fields[0].Value(0, i)
		want := 40.0 + 1 + float64(i)
		if math.Abs(got-want) > 1e-9 {
			t.Errorf("mean[%d] = %v, want %v", i, got, want)
		}
	}
}

func TestAnalyseField_Mixture(t *testing.T) {
	fx := defaultFixture()
	fx.sims, fx.steps = 40, 1
	fx.width, fx.height = 1, 1
	fx.value = func(step, sim, f, i int) float64 {
		p := (float64(sim%20) + 0.5) / 20
		spread := 0.3 * math.Sqrt2 * math.Erfinv(2*p-1)
		if sim < 20 {
			return spread
		}
		return 10 + spread
	}
	e := openFixture(t, fx)
	if err := e.ReadHeaders(0, 1, 1); err != nil {
		t.Fatalf("ReadHeaders: %v", err)
	}

	res, err := e.AnalyseField(0, analysis.GaussianMixture, analysis.DefaultOptions())
	if err != nil {
		t.Fatalf("AnalyseField: %v", err)
	}
	if len(res.Fields) != 3 || res.Fields[2].Name() != "temperature_weight" {
		t.Fatalf("unexpected outputs %v", res.Fields)
	}
	means, _ := res.Fields[0].Point(0)
	weights, _ := res.Fields[2].Point(0)
	if len(means) != 4 {
		t.Fatalf("mixture has %d channels, want 4", len(means))
	}
	if math.Abs(means[0]) > 0.5 || math.Abs(means[1]-10) > 0.5 {
		t.Errorf("means = %v", means)
	}
	if math.Abs(weights[0]-0.5) > 0.1 || math.Abs(weights[1]-0.5) > 0.1 {
		t.Errorf("weights = %v", weights)
	}
}

func TestAnalyseField_Errors(t *testing.T) {
	e := openFixture(t, defaultFixture())

	if _, err := e.AnalyseField(0, analysis.GaussianSingle, analysis.DefaultOptions()); !errors.Is(err, ErrNoHeaders) {
		t.Errorf("AnalyseField before headers error = %v, want ErrNoHeaders", err)
	}
	if err := e.ReadHeaders(0, 1, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := e.AnalyseField(0, analysis.GaussianSingle, analysis.DefaultOptions()); err != nil {
		t.Fatalf("AnalyseField: %v", err)
	}

	for _, idx := range []int{-1, 2} {
		_, err := e.AnalyseField(idx, analysis.GaussianSingle, analysis.DefaultOptions())
		if !errors.Is(err, ErrFieldIndex) || !errors.Is(err, errkind.OutOfRange) {
			t.Errorf("AnalyseField(%d) error = %v, want ErrFieldIndex", idx, err)
		}
	}
	if len(e.Fields()) != 0 {
		t.Error("failed AnalyseField left previous results in place")
	}
}

func TestAnalyseField_MalformedData(t *testing.T) {
	fx := defaultFixture()
	root := writeEnsemble(t, fx)
	bad := strings.Replace(fx.timestepFile(0, 1), "1001", "oops", 1)
	writeFile(t, filepath.Join(root, "sim_01", "step_000.txt"), bad)

	e, err := Open(root, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if err := e.ReadHeaders(0, 1, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := e.AnalyseField(0, analysis.GaussianSingle, analysis.DefaultOptions()); err != nil {
		t.Fatalf("field 0 is intact: %v", err)
	}
	_, err = e.AnalyseField(1, analysis.GaussianSingle, analysis.DefaultOptions())
	if !errors.Is(err, textio.ErrMalformed) {
		t.Errorf("AnalyseField error = %v, want ErrMalformed", err)
	}
	if len(e.Fields()) != 0 {
		t.Error("failed AnalyseField exposed results")
	}
}

func TestColumn(t *testing.T) {
	e := openFixture(t, defaultFixture())
	if _, err := e.Column(0, 0, 0, 0); !errors.Is(err, ErrNoHeaders) {
		t.Errorf("Column before headers error = %v, want ErrNoHeaders", err)
	}
	if err := e.ReadHeaders(2, 2, 1); err != nil {
		t.Fatal(err)
	}

	col, err := e.Column(1, 1, 1, 0)
	if err != nil {
		t.Fatalf("Column: %v", err)
	}
	// Voxel (1,1,0) has flat index 3; value = 1000 + step*10 + sim + 3.
	want := []float64{1023, 1024, 1025, 1033, 1034, 1035}
	if fmt.Sprint(col) != fmt.Sprint(want) {
		t.Errorf("Column = %v, want %v", col, want)
	}

	if _, err := e.Column(0, 2, 0, 0); !errors.Is(err, errkind.OutOfRange) {
		t.Errorf("Column out of grid error = %v, want OutOfRange", err)
	}
}

func TestTracerReceivesEvents(t *testing.T) {
	var buf bytes.Buffer
	root := writeEnsemble(t, defaultFixture())
	e, err := Open(root, Options{Tracer: logging.NewTraceWriter(&buf)})
	if err != nil {
		t.Fatal(err)
	}
	if err := e.ReadHeaders(0, 1, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := e.AnalyseField(0, analysis.GaussianMixture, analysis.DefaultOptions()); err != nil {
		t.Fatal(err)
	}

	var events []string
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("bad trace line %q: %v", line, err)
		}
		events = append(events, entry["event"].(string))
		if entry["event"] == "analyse" {
			if _, ok := entry["component_counts"]; !ok {
				t.Error("mixture trace lacks component_counts")
			}
		}
	}
	if strings.Join(events, ",") != "scan,headers,analyse" {
		t.Errorf("events = %v", events)
	}
}
