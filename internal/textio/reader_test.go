package textio

import (
	"errors"
	"strings"
	"testing"

	"github.com/nvandessel/enstat/internal/errkind"
)

func TestReadLine(t *testing.T) {
	r := NewReader(strings.NewReader("2 3 1 6\r\n1 temperature\nlast"))

	want := []string{"2 3 1 6", "1 temperature", "last"}
	for i, w := range want {
		got, err := r.ReadLine()
		if err != nil {
			t.Fatalf("ReadLine #%d: %v", i, err)
		}
		if got != w {
			t.Errorf("ReadLine #%d = %q, want %q", i, got, w)
		}
	}

	if _, err := r.ReadLine(); !errors.Is(err, ErrUnexpectedEOF) {
		t.Errorf("ReadLine past end error = %v, want ErrUnexpectedEOF", err)
	}
}

func TestReadLine_LongRecord(t *testing.T) {
	long := strings.Repeat("x", 200*1024)
	r := NewReader(strings.NewReader(long + "\nnext\n"))

	got, err := r.ReadLine()
	if err != nil {
		t.Fatalf("ReadLine: %v", err)
	}
	if len(got) != len(long) {
		t.Errorf("len = %d, want %d", len(got), len(long))
	}
	if got, _ := r.ReadLine(); got != "next" {
		t.Errorf("second line = %q, want next", got)
	}
}

func TestSkipRecords(t *testing.T) {
	input := "h1\nh2\nh3\n1 2 3\n\n4 5 6\n"
	r := NewReader(strings.NewReader(input))

	if err := r.SkipRecords(3); err != nil {
		t.Fatalf("SkipRecords(3): %v", err)
	}
	if r.Line() != 4 {
		t.Errorf("Line() = %d, want 4", r.Line())
	}
	if err := r.SkipRecords(2); err != nil {
		t.Fatalf("SkipRecords(2): %v", err)
	}
	v, err := r.ReadFloat()
	if err != nil {
		t.Fatalf("ReadFloat: %v", err)
	}
	if v != 4 {
		t.Errorf("ReadFloat after skip = %v, want 4", v)
	}
}

func TestSkipRecords_Errors(t *testing.T) {
	r := NewReader(strings.NewReader("a\nb\n"))
	if err := r.SkipRecords(-1); !errors.Is(err, errkind.InvalidArgument) {
		t.Errorf("SkipRecords(-1) error = %v, want InvalidArgument", err)
	}
	if err := r.SkipRecords(3); !errors.Is(err, ErrUnexpectedEOF) {
		t.Errorf("SkipRecords(3) error = %v, want ErrUnexpectedEOF", err)
	}
	if err := NewReader(strings.NewReader("x")).SkipRecords(0); err != nil {
		t.Errorf("SkipRecords(0) error = %v, want nil", err)
	}
}

func TestReadToken_SpansLines(t *testing.T) {
	r := NewReader(strings.NewReader("  1.5\t-2\n\n  3e2 \n7"))

	want := []float64{1.5, -2, 300, 7}
	for i, w := range want {
		got, err := r.ReadFloat()
		if err != nil {
			t.Fatalf("ReadFloat #%d: %v", i, err)
		}
		if got != w {
			t.Errorf("ReadFloat #%d = %v, want %v", i, got, w)
		}
	}
	if r.Line() != 4 {
		t.Errorf("Line() = %d, want 4", r.Line())
	}
	if _, err := r.ReadFloat(); !errors.Is(err, ErrUnexpectedEOF) {
		t.Errorf("ReadFloat past end error = %v, want ErrUnexpectedEOF", err)
	}
}

func TestReadToken_LeavesDelimiter(t *testing.T) {
	r := NewReader(strings.NewReader("1 2\nnext line\n"))
	if _, err := r.ReadInt(); err != nil {
		t.Fatal(err)
	}
	if _, err := r.ReadInt(); err != nil {
		t.Fatal(err)
	}
	// The newline after "2" is still pending, so one skip finishes line 1.
	if err := r.SkipRecords(1); err != nil {
		t.Fatal(err)
	}
	line, err := r.ReadLine()
	if err != nil {
		t.Fatal(err)
	}
	if line != "next line" {
		t.Errorf("ReadLine = %q, want %q", line, "next line")
	}
}

func TestReadNumbers_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
		read  func(r *Reader) error
	}{
		{"float", "abc", func(r *Reader) error { _, err := r.ReadFloat(); return err }},
		{"int from float", "1.5", func(r *Reader) error { _, err := r.ReadInt(); return err }},
		{"floats", "1 2 x", func(r *Reader) error { return r.ReadFloats(make([]float64, 3)) }},
		{"infinity", "inf", func(r *Reader) error { _, err := r.ReadFloat(); return err }},
		{"signed infinity", "-Infinity", func(r *Reader) error { _, err := r.ReadFloat(); return err }},
		{"nan", "NaN", func(r *Reader) error { _, err := r.ReadFloat(); return err }},
		{"floats with nan", "1 nan 3 inf", func(r *Reader) error { return r.ReadFloats(make([]float64, 4)) }},
		{"overflow", "1e400", func(r *Reader) error { _, err := r.ReadFloat(); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.read(NewReader(strings.NewReader(tt.input)))
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("error = %v, want ErrMalformed", err)
			}
			if !errors.Is(err, errkind.Runtime) {
				t.Errorf("error = %v, want Runtime kind", err)
			}
		})
	}
}

func TestReadFloats(t *testing.T) {
	r := NewReader(strings.NewReader("1 2 3\n4 5 6\n"))
	dst := make([]float64, 6)
	if err := r.ReadFloats(dst); err != nil {
		t.Fatalf("ReadFloats: %v", err)
	}
	for i, v := range dst {
		if v != float64(i+1) {
			t.Errorf("dst[%d] = %v, want %d", i, v, i+1)
		}
	}

	short := NewReader(strings.NewReader("1 2"))
	if err := short.ReadFloats(make([]float64, 3)); !errors.Is(err, ErrUnexpectedEOF) {
		t.Errorf("short ReadFloats error = %v, want ErrUnexpectedEOF", err)
	}
}

func TestParseInts(t *testing.T) {
	got, err := ParseInts(" 4 5  6 120 ")
	if err != nil {
		t.Fatalf("ParseInts: %v", err)
	}
	want := []int{4, 5, 6, 120}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %d, want %d", i, got[i], want[i])
		}
	}

	if _, err := ParseInts("4 x"); !errors.Is(err, ErrMalformed) {
		t.Errorf("ParseInts error = %v, want ErrMalformed", err)
	}
}
