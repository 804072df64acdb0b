// Package mcpserver exposes the credential manager over the Model
// Context Protocol: it registers the credential tools, adapts the
// session's elicitation channel for the permission gate and the dialog
// coordinator, and serves on stdio or streamable HTTP.
package mcpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"github.com/mark3labs/mcp-go/server"

	"github.com/jkaninda/mcp-secrets/internal/config"
	"github.com/jkaninda/mcp-secrets/internal/dialog"
	"github.com/jkaninda/mcp-secrets/internal/secrets"
)

const instructions = `Per-application secrets manager.

Secrets are stored in the platform credential vault and released only
after an explicit user grant. Use setup_credentials to collect missing
credentials through the secure dialog, check_credentials to verify what
is stored, secure_api_request to exercise permission-gated retrieval,
and clear_credentials to reset the store.`

// Server binds one credential manager to an MCP server instance.
type Server struct {
	cfg      *config.Config
	manager  *secrets.Manager
	schema   dialog.Schema
	mcp      *server.MCPServer
	elicitor *sessionElicitor
	logger   *slog.Logger
}

// New creates the MCP server and registers the credential tools.
func New(cfg *config.Config, manager *secrets.Manager, version string, logger *slog.Logger) *Server {
	mcpSrv := server.NewMCPServer(cfg.Name, version,
		server.WithToolCapabilities(false),
		server.WithInstructions(instructions),
	)

	schema := dialog.Schema(cfg.Schema)
	if len(schema) == 0 {
		schema = config.DefaultSchema()
	}

	s := &Server{
		cfg:      cfg,
		manager:  manager,
		schema:   schema,
		mcp:      mcpSrv,
		elicitor: newSessionElicitor(mcpSrv, logger),
		logger:   logger,
	}
	s.registerTools()
	return s
}

// Run serves until ctx is cancelled or the transport fails. With a
// configured port the server speaks streamable HTTP; otherwise stdio.
func (s *Server) Run(ctx context.Context) error {
	if s.cfg.Port == "" {
		s.logger.Info("serving on stdio", slog.String("identity", s.cfg.Name))
		return server.ServeStdio(s.mcp)
	}

	addr := net.JoinHostPort(s.cfg.Host, s.cfg.Port)
	httpSrv := server.NewStreamableHTTPServer(s.mcp)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("serving streamable HTTP",
			slog.String("identity", s.cfg.Name),
			slog.String("addr", addr),
		)
		errCh <- httpSrv.Start(addr)
	}()

	select {
	case <-ctx.Done():
		if err := httpSrv.Shutdown(context.Background()); err != nil {
			return fmt.Errorf("shutting down HTTP server: %w", err)
		}
		return nil
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server: %w", err)
		}
		return nil
	}
}
