package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/enstat/internal/analysis"
	"github.com/nvandessel/enstat/internal/ensemble"
	"github.com/nvandessel/enstat/internal/errkind"
	"github.com/nvandessel/enstat/internal/journal"
	"github.com/nvandessel/enstat/internal/pathutil"
	"github.com/nvandessel/enstat/internal/session"
)

const (
	ensembleURI      = "enstat://ensemble"
	defaultRunsLimit = 20
)

// ErrExportDisabled indicates an export request on a server without an
// export directory.
var ErrExportDisabled = fmt.Errorf("export directory not configured: %w", errkind.Runtime)

func (s *Server) registerTools() {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "enstat_scan",
		Description: "Describe the ensemble: simulation and timestep counts, the current selection and its fields",
	}, s.handleScan)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "enstat_headers",
		Description: "Select the timesteps to aggregate and read the field headers they share",
	}, s.handleHeaders)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "enstat_analyse",
		Description: "Summarize one field per voxel over every member and selected timestep with a single Gaussian or a Gaussian mixture",
	}, s.handleAnalyse)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "enstat_peaks",
		Description: "Inspect the sample distribution of one field at one voxel: histogram, mode count and fitted mixture",
	}, s.handlePeaks)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "enstat_runs",
		Description: "List journaled analysis runs, newest first",
	}, s.handleRuns)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "enstat_export",
		Description: "Write the fields of the last analysis to an Arrow IPC stream file in the export directory",
	}, s.handleExport)
}

func (s *Server) registerResources() {
	s.server.AddResource(&sdk.Resource{
		URI:         ensembleURI,
		Name:        "enstat-ensemble",
		Description: "Shape of the opened ensemble and the fields of the current selection.",
		MIMEType:    "application/json",
	}, s.handleEnsembleResource)
}

func (s *Server) handleEnsembleResource(ctx context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
	data, err := json.MarshalIndent(scanOutput(s.sess.Info(false)), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding ensemble info: %w", err)
	}
	return &sdk.ReadResourceResult{
		Contents: []*sdk.ResourceContents{
			{
				URI:      ensembleURI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		},
	}, nil
}

func (s *Server) handleScan(ctx context.Context, req *sdk.CallToolRequest, args ScanInput) (_ *sdk.CallToolResult, _ ScanOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("enstat_scan", start, retErr, map[string]any{"files": args.Files})
	}()
	if err := s.limiter.Check("enstat_scan"); err != nil {
		return nil, ScanOutput{}, err
	}
	return nil, scanOutput(s.sess.Info(args.Files)), nil
}

func (s *Server) handleHeaders(ctx context.Context, req *sdk.CallToolRequest, args HeadersInput) (_ *sdk.CallToolResult, _ HeadersOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("enstat_headers", start, retErr, map[string]any{
			"step": args.Step, "count": args.Count, "stride": args.Stride,
		})
	}()
	if err := s.limiter.Check("enstat_headers"); err != nil {
		return nil, HeadersOutput{}, err
	}

	sel, fields, err := s.sess.ReadHeaders(args.Step, args.Count, args.Stride)
	if err != nil {
		return nil, HeadersOutput{}, err
	}
	return nil, HeadersOutput{
		Selection: selection(sel),
		Fields:    fieldInfos(fields),
	}, nil
}

func (s *Server) handleAnalyse(ctx context.Context, req *sdk.CallToolRequest, args AnalyseInput) (_ *sdk.CallToolResult, _ AnalyseOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("enstat_analyse", start, retErr, map[string]any{
			"field": args.Field, "kind": args.Kind, "workers": args.Workers,
		})
	}()
	if err := s.limiter.Check("enstat_analyse"); err != nil {
		return nil, AnalyseOutput{}, err
	}

	kind, opts, err := s.requestOptions(args.Kind, args.Workers, args.MaxComponents, args.RandomInit, args.Seed)
	if err != nil {
		return nil, AnalyseOutput{}, err
	}
	report, err := s.sess.Analyse(ctx, session.Request{Field: args.Field, Kind: kind, Options: opts})
	if err != nil {
		return nil, AnalyseOutput{}, err
	}

	out := AnalyseOutput{
		RunID:           report.RunID,
		Field:           report.Field,
		Kind:            report.Kind,
		Selection:       selection(report.Selection),
		Members:         report.Summary.Members,
		Voxels:          report.Summary.Voxels,
		Workers:         report.Summary.Workers,
		DurationMs:      report.Summary.Duration.Milliseconds(),
		ComponentCounts: report.Summary.ComponentCounts,
		Outputs:         make([]Output, 0, len(report.Outputs)),
		Display:         Range(report.Display),
	}
	for _, o := range report.Outputs {
		out.Outputs = append(out.Outputs, Output{
			Name:           o.Name,
			PointDimension: o.Layout.PointDimension,
			Minima:         o.Minima,
			Maxima:         o.Maxima,
		})
	}
	return nil, out, nil
}

func (s *Server) handlePeaks(ctx context.Context, req *sdk.CallToolRequest, args PeaksInput) (_ *sdk.CallToolResult, _ PeaksOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("enstat_peaks", start, retErr, map[string]any{
			"field": args.Field, "x": args.X, "y": args.Y, "z": args.Z,
		})
	}()
	if err := s.limiter.Check("enstat_peaks"); err != nil {
		return nil, PeaksOutput{}, err
	}

	_, opts := s.sess.Defaults()
	report, err := s.sess.Peaks(session.PeakRequest{
		Field: args.Field, X: args.X, Y: args.Y, Z: args.Z,
		Bins:    args.Bins,
		Options: opts,
	})
	if err != nil {
		return nil, PeaksOutput{}, err
	}

	out := PeaksOutput{
		Field:     report.Field,
		Samples:   len(report.Samples),
		Mean:      report.Mean,
		Deviation: report.Deviation,
		Histogram: report.Histogram,
		Peaks:     report.Peaks,
		Display:   Range(report.Display),
		Mixture:   make([]Component, len(report.Mixture)),
		AIC:       report.AIC,
	}
	for i, c := range report.Mixture {
		out.Mixture[i] = Component(c)
	}
	return nil, out, nil
}

func (s *Server) handleRuns(ctx context.Context, req *sdk.CallToolRequest, args RunsInput) (_ *sdk.CallToolResult, _ RunsOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("enstat_runs", start, retErr, map[string]any{"limit": args.Limit})
	}()
	if err := s.limiter.Check("enstat_runs"); err != nil {
		return nil, RunsOutput{}, err
	}

	limit := args.Limit
	if limit <= 0 {
		limit = defaultRunsLimit
	}
	runs, err := s.sess.Runs(ctx, limit)
	if err != nil {
		return nil, RunsOutput{}, err
	}
	out := RunsOutput{Runs: make([]RunItem, 0, len(runs)), Count: len(runs)}
	for _, r := range runs {
		out.Runs = append(out.Runs, runItem(r))
	}
	return nil, out, nil
}

func (s *Server) handleExport(ctx context.Context, req *sdk.CallToolRequest, args ExportInput) (_ *sdk.CallToolResult, _ ExportOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("enstat_export", start, retErr, map[string]any{
			"name": pathutil.RedactPath(args.Name),
		})
	}()
	if err := s.limiter.Check("enstat_export"); err != nil {
		return nil, ExportOutput{}, err
	}
	if s.exportDir == "" {
		return nil, ExportOutput{}, ErrExportDisabled
	}

	if err := os.MkdirAll(s.exportDir, 0700); err != nil {
		return nil, ExportOutput{}, fmt.Errorf("creating export directory: %w", err)
	}
	path, err := pathutil.ExportPath(args.Name, s.exportDir)
	if err != nil {
		return nil, ExportOutput{}, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, ExportOutput{}, fmt.Errorf("creating export directory: %w", err)
	}

	if err := pathutil.WriteFile(path, 0600, s.sess.Export); err != nil {
		return nil, ExportOutput{}, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, ExportOutput{}, err
	}
	return nil, ExportOutput{Path: path, Bytes: info.Size()}, nil
}

// requestOptions overlays per-call overrides on the session defaults.
func (s *Server) requestOptions(kindName string, workers, maxComponents int, randomInit bool, seed uint64) (analysis.Kind, analysis.Options, error) {
	kind, opts := s.sess.Defaults()
	if kindName != "" {
		k, err := analysis.ParseKind(kindName)
		if err != nil {
			return 0, analysis.Options{}, err
		}
		kind = k
	}
	if workers > 0 {
		opts.Workers = workers
	}
	if maxComponents > 0 {
		opts.MaxComponents = maxComponents
	}
	if randomInit {
		opts.Fit.RandomInit = true
	}
	if seed != 0 {
		opts.Seed = seed
	}
	return kind, opts, nil
}

func scanOutput(info session.Info) ScanOutput {
	out := ScanOutput{
		Root:        info.Root,
		Simulations: info.Simulations,
		Steps:       info.Steps,
		Files:       info.Files,
	}
	if info.Selection != nil {
		sel := selection(*info.Selection)
		out.Selection = &sel
		out.Fields = fieldInfos(info.Fields)
	}
	return out
}

func selection(sel ensemble.Selection) Selection {
	return Selection{Step: sel.Step, Count: sel.Count, Stride: sel.Stride}
}

func fieldInfos(fields []session.FieldInfo) []FieldInfo {
	out := make([]FieldInfo, len(fields))
	for i, f := range fields {
		out[i] = FieldInfo{
			Index:  f.Index,
			Name:   f.Name,
			Width:  f.Layout.Width,
			Height: f.Layout.Height,
			Depth:  f.Layout.Depth,
		}
	}
	return out
}

func runItem(r journal.Run) RunItem {
	return RunItem{
		ID:         r.ID,
		StartedAt:  r.StartedAt.Format(time.RFC3339),
		Root:       r.Root,
		Field:      r.Field,
		Kind:       r.Kind,
		Step:       r.Step,
		Count:      r.Count,
		Stride:     r.Stride,
		Members:    r.Members,
		DurationMs: r.Duration.Milliseconds(),
		Status:     r.Status,
		Error:      r.Error,
	}
}
