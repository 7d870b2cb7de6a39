// Package textio provides a tokenizing reader for whitespace-delimited text
// data files.
//
// The reader exposes the two cursor operations the timestep file format
// needs as named operations: skipping whole newline-terminated records and
// reading the next number. Tokens may span line boundaries; records may not.
package textio

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/nvandessel/enstat/internal/errkind"
)

var (
	// ErrUnexpectedEOF indicates the input ended before the requested record
	// or token.
	ErrUnexpectedEOF = fmt.Errorf("textio: unexpected end of input: %w", errkind.Runtime)
	// ErrMalformed indicates a token that does not parse as the requested type.
	ErrMalformed = fmt.Errorf("textio: malformed token: %w", errkind.Runtime)
)

// Reader reads records and tokens from an underlying io.Reader.
type Reader struct {
	br    *bufio.Reader
	lines int // newlines consumed so far
}

// NewReader returns a Reader positioned at the start of r.
func NewReader(r io.Reader) *Reader {
	return &Reader{br: bufio.NewReaderSize(r, 64*1024)}
}

// Line returns the 1-based line number of the cursor.
func (r *Reader) Line() int { return r.lines + 1 }

func (r *Reader) wrap(err error) error {
	if errors.Is(err, io.EOF) {
		return fmt.Errorf("%w at line %d", ErrUnexpectedEOF, r.Line())
	}
	return fmt.Errorf("reading line %d: %w: %w", r.Line(), errkind.Runtime, err)
}

// ReadLine returns the remainder of the current record without its line
// terminator. A final record without a trailing newline is returned
// normally; reading past the last record fails with ErrUnexpectedEOF.
func (r *Reader) ReadLine() (string, error) {
	var sb strings.Builder
	for {
		chunk, err := r.br.ReadSlice('\n')
		sb.Write(chunk)
		if err == nil {
			r.lines++
			return strings.TrimRight(sb.String(), "\r\n"), nil
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if errors.Is(err, io.EOF) && sb.Len() > 0 {
			return strings.TrimRight(sb.String(), "\r"), nil
		}
		return "", r.wrap(err)
	}
}

// SkipRecords advances the cursor past n newline-terminated records. The
// partially consumed current record counts as the first one.
func (r *Reader) SkipRecords(n int) error {
	if n < 0 {
		return fmt.Errorf("skip %d records: %w", n, errkind.InvalidArgument)
	}
	for skipped := 0; skipped < n; {
		_, err := r.br.ReadSlice('\n')
		switch {
		case err == nil:
			r.lines++
			skipped++
		case errors.Is(err, bufio.ErrBufferFull):
			// record longer than the buffer; keep consuming it
		default:
			return r.wrap(err)
		}
	}
	return nil
}

// ReadToken skips leading whitespace and returns the next run of
// non-whitespace bytes. The delimiter that ends the token is left unread.
func (r *Reader) ReadToken() (string, error) {
	var sb strings.Builder
	for {
		b, err := r.br.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) && sb.Len() > 0 {
				return sb.String(), nil
			}
			return "", r.wrap(err)
		}
		if isSpace(b) {
			if sb.Len() > 0 {
				_ = r.br.UnreadByte()
				return sb.String(), nil
			}
			if b == '\n' {
				r.lines++
			}
			continue
		}
		sb.WriteByte(b)
	}
}

// ReadFloat reads the next token as a finite float64. Infinities and NaN
// are malformed.
func (r *Reader) ReadFloat() (float64, error) {
	tok, err := r.ReadToken()
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, fmt.Errorf("%w: %q at line %d is not a finite number", ErrMalformed, tok, r.Line())
	}
	return v, nil
}

// ReadInt reads the next token as a base-10 int.
func (r *Reader) ReadInt() (int, error) {
	tok, err := r.ReadToken()
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(tok)
	if err != nil {
		return 0, fmt.Errorf("%w: %q at line %d is not an integer", ErrMalformed, tok, r.Line())
	}
	return v, nil
}

// ReadFloats fills dst with consecutive floats.
func (r *Reader) ReadFloats(dst []float64) error {
	for i := range dst {
		v, err := r.ReadFloat()
		if err != nil {
			return fmt.Errorf("value %d of %d: %w", i, len(dst), err)
		}
		dst[i] = v
	}
	return nil
}

// ParseInts parses every whitespace-separated token of line as an int.
func ParseInts(line string) ([]int, error) {
	fields := strings.Fields(line)
	out := make([]int, len(fields))
	for i, tok := range fields {
		v, err := strconv.Atoi(tok)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not an integer", ErrMalformed, tok)
		}
		out[i] = v
	}
	return out, nil
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}
