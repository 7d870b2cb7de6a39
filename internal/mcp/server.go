// Package mcp serves ensemble analysis over the Model Context Protocol.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/enstat/internal/journal"
	"github.com/nvandessel/enstat/internal/logging"
	"github.com/nvandessel/enstat/internal/ratelimit"
	"github.com/nvandessel/enstat/internal/session"
)

// Server wraps the MCP SDK server around one ensemble session.
type Server struct {
	server    *sdk.Server
	sess      *session.Session
	limiter   *ratelimit.Limiter
	logger    *slog.Logger
	tracer    logging.Tracer
	journal   *journal.Journal
	exportDir string
	closeOnce sync.Once
}

// Config holds server configuration.
type Config struct {
	Name    string // server name reported to clients
	Version string
	// Session configures the ensemble the server analyses. Its Journal is
	// closed by Server.Close.
	Session session.Config
	// ExportDir receives enstat_export files. Empty disables the tool.
	ExportDir string
	// Limits throttles tool calls. Nil uses ratelimit.Defaults.
	Limits map[string]ratelimit.Limit
}

// NewServer opens the ensemble and registers the enstat tools.
func NewServer(cfg *Config) (*Server, error) {
	sess, err := session.Open(cfg.Session)
	if err != nil {
		return nil, fmt.Errorf("opening ensemble: %w", err)
	}
	limits := cfg.Limits
	if limits == nil {
		limits = ratelimit.Defaults()
	}
	logger := cfg.Session.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	s := &Server{
		sess:      sess,
		limiter:   ratelimit.New(limits),
		logger:    logger,
		tracer:    cfg.Session.Tracer,
		journal:   cfg.Session.Journal,
		exportDir: cfg.ExportDir,
	}
	s.server = sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, &sdk.ServerOptions{
		InitializedHandler: func(ctx context.Context, req *sdk.InitializedRequest) {
			s.logger.Debug("client initialized")
		},
	})

	s.registerTools()
	s.registerResources()
	return s, nil
}

// Run serves over stdio until the client disconnects, ctx is cancelled or
// the process is signalled.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	notifySignals(sigChan)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	s.logger.Info("serving ensemble over stdio", "root", s.sess.Info(false).Root)
	err := s.server.Run(ctx, &sdk.StdioTransport{})
	if cerr := s.Close(); err == nil {
		err = cerr
	}
	return err
}

// Close releases the run journal. It is safe to call more than once.
func (s *Server) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.journal != nil {
			err = s.journal.Close()
		}
	})
	return err
}
