// Package session serves analysis requests against one opened ensemble.
//
// A Session is the layer shared by the CLI and the MCP server: it resolves
// field names, runs the analysis, derives display ranges from the outputs
// and records every request in the run journal. Calls are serialized, so a
// Session may be used from concurrent handlers.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/nvandessel/enstat/internal/analysis"
	"github.com/nvandessel/enstat/internal/constants"
	"github.com/nvandessel/enstat/internal/ensemble"
	"github.com/nvandessel/enstat/internal/errkind"
	"github.com/nvandessel/enstat/internal/export"
	"github.com/nvandessel/enstat/internal/field"
	"github.com/nvandessel/enstat/internal/journal"
	"github.com/nvandessel/enstat/internal/logging"
)

var (
	// ErrNoResults indicates an export before any successful analysis.
	ErrNoResults = fmt.Errorf("session: no analysis results: %w", errkind.Runtime)
	// ErrNoJournal indicates a journal query on a session without one.
	ErrNoJournal = fmt.Errorf("session: journal disabled: %w", errkind.Runtime)
)

// Config configures a Session.
type Config struct {
	// Root is the ensemble directory.
	Root string
	// Logger receives operational output. Nil discards it.
	Logger *slog.Logger
	// Tracer receives structured analysis events. Nil disables tracing.
	Tracer logging.Tracer
	// Journal records analysis runs. Nil disables journaling.
	Journal *journal.Journal
	// Kind and Options are the analysis defaults.
	Kind    analysis.Kind
	Options analysis.Options
	// PeakBins is the default histogram resolution for Peaks.
	PeakBins int
}

// Session owns an opened ensemble and its analysis context.
type Session struct {
	mu  sync.Mutex
	cfg Config
	ens *ensemble.Ensemble
}

// Open opens the ensemble at cfg.Root.
func Open(cfg Config) (*Session, error) {
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}
	if cfg.PeakBins <= 0 {
		cfg.PeakBins = constants.DefaultPeakBins
	}
	ens, err := ensemble.Open(cfg.Root, ensemble.Options{Logger: cfg.Logger, Tracer: cfg.Tracer})
	if err != nil {
		return nil, err
	}
	return &Session{cfg: cfg, ens: ens}, nil
}

// Defaults returns the analysis kind and options used when a request does
// not override them.
func (s *Session) Defaults() (analysis.Kind, analysis.Options) {
	return s.cfg.Kind, s.cfg.Options
}

// FieldInfo describes one field of the current selection.
type FieldInfo struct {
	Index  int          `json:"index"`
	Name   string       `json:"name"`
	Layout field.Layout `json:"layout"`
}

// Info describes the opened ensemble.
type Info struct {
	Root        string              `json:"root"`
	Simulations int                 `json:"simulations"`
	Steps       int                 `json:"steps"`
	Files       []string            `json:"files,omitempty"`
	Selection   *ensemble.Selection `json:"selection,omitempty"`
	Fields      []FieldInfo         `json:"fields,omitempty"`
}

// Info reports the ensemble shape and, once headers are read, the current
// selection and its fields. Files are listed when withFiles is set.
func (s *Session) Info(withFiles bool) Info {
	s.mu.Lock()
	defer s.mu.Unlock()

	info := Info{
		Root:        s.ens.Root(),
		Simulations: s.ens.NumSimulations(),
		Steps:       s.ens.NumSteps(),
	}
	if withFiles {
		info.Files = s.ens.Files()
	}
	if sel, ok := s.ens.Selection(); ok {
		info.Selection = &sel
		info.Fields = fieldInfos(s.ens.Headers())
	}
	return info
}

func fieldInfos(headers []*field.Field) []FieldInfo {
	out := make([]FieldInfo, len(headers))
	for i, h := range headers {
		out[i] = FieldInfo{Index: i, Name: h.Name(), Layout: h.Layout()}
	}
	return out
}

// ReadHeaders selects timesteps and returns the fields they share.
func (s *Session) ReadHeaders(step, count, stride int) (ensemble.Selection, []FieldInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ens.ReadHeaders(step, count, stride); err != nil {
		return ensemble.Selection{}, nil, err
	}
	sel, _ := s.ens.Selection()
	return sel, fieldInfos(s.ens.Headers()), nil
}

// resolveField accepts a field name or a decimal index.
func (s *Session) resolveField(ref string) (int, error) {
	if idx, err := strconv.Atoi(ref); err == nil {
		return idx, nil
	}
	return s.ens.FieldIndex(ref)
}

// Request is one analysis request.
type Request struct {
	// Field is a field name or decimal index into the current headers.
	Field   string
	Kind    analysis.Kind
	Options analysis.Options
}

// Analyse runs req against the current selection, journals the outcome
// and reports the outputs. The output Fields stay available for Export
// until the next ReadHeaders or Analyse; a failed Analyse leaves none.
func (s *Session) Analyse(ctx context.Context, req Request) (Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	sel, _ := s.ens.Selection()
	run := journal.Run{
		StartedAt: start,
		Root:      s.ens.Root(),
		Step:      sel.Step,
		Count:     sel.Count,
		Stride:    sel.Stride,
		Field:     req.Field,
		Kind:      req.Kind.String(),
	}

	report, err := s.analyse(req, sel)
	run.Duration = time.Since(start)
	if err == nil {
		run.Field = report.Field
		run.FieldIndex = report.FieldIndex
		run.Members = report.Summary.Members
		run.Voxels = report.Summary.Voxels
		run.Workers = report.Summary.Workers
		run.ComponentCounts = report.Summary.ComponentCounts
		run.Status = journal.StatusOK
	} else {
		run.Status = journal.StatusError
		run.Error = err.Error()
	}

	if s.cfg.Journal != nil {
		id, jerr := s.cfg.Journal.Record(ctx, run)
		if jerr != nil {
			s.cfg.Logger.Warn("failed to journal run", "error", jerr)
		}
		report.RunID = id
	}
	if err != nil {
		return Report{}, err
	}
	return report, nil
}

// analyse leaves no results behind when it fails.
func (s *Session) analyse(req Request, sel ensemble.Selection) (Report, error) {
	report, err := s.report(req, sel)
	if err != nil {
		s.ens.DiscardResults()
		return Report{}, err
	}
	return report, nil
}

func (s *Session) report(req Request, sel ensemble.Selection) (Report, error) {
	idx, err := s.resolveField(req.Field)
	if err != nil {
		return Report{}, err
	}
	res, err := s.ens.AnalyseField(idx, req.Kind, req.Options)
	if err != nil {
		return Report{}, err
	}
	report, err := newReport(res)
	if err != nil {
		return Report{}, err
	}
	report.Field = s.ens.Headers()[idx].Name()
	report.FieldIndex = idx
	report.Kind = req.Kind.String()
	report.Selection = sel
	return report, nil
}

// Export writes the outputs of the last analysis as an Arrow IPC stream.
func (s *Session) Export(w io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fields := s.ens.Fields()
	if len(fields) == 0 {
		return ErrNoResults
	}
	return export.WriteStream(w, fields)
}

// Runs lists up to limit journaled runs, newest first.
func (s *Session) Runs(ctx context.Context, limit int) ([]journal.Run, error) {
	if s.cfg.Journal == nil {
		return nil, ErrNoJournal
	}
	return s.cfg.Journal.List(ctx, limit)
}

// IsUsageError reports whether err was caused by the request rather than
// the data: a bad argument or an index outside the ensemble.
func IsUsageError(err error) bool {
	kind := errkind.Of(err)
	return errors.Is(kind, errkind.InvalidArgument) || errors.Is(kind, errkind.OutOfRange)
}
