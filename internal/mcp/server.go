// Package mcp exposes the skill catalog as Model Context Protocol tools.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"powerbi-tom-skill/internal/common/logger"
	powerbitom "powerbi-tom-skill/internal/skills/powerbi-tom"
)

const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"

	// EndpointPath is where the streamable HTTP transport is mounted.
	EndpointPath = "/mcp"
)

type ServerConfig struct {
	Name      string
	Version   string
	Transport string
	Addr      string
	APIKey    string
}

// Server serves one tool per catalog function over stdio or HTTP.
type Server struct {
	cfg       ServerConfig
	mcpServer *mcpserver.MCPServer
	service   *powerbitom.Service
	functions []powerbitom.Function
	logger    logger.Logger
}

func NewServer(cfg ServerConfig, service *powerbitom.Service, functions []powerbitom.Function, log logger.Logger) *Server {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	if cfg.Transport == "" {
		cfg.Transport = TransportStdio
	}

	s := &Server{
		cfg: cfg,
		mcpServer: mcpserver.NewMCPServer(cfg.Name, cfg.Version,
			mcpserver.WithToolCapabilities(false),
			mcpserver.WithRecovery(),
		),
		service:   service,
		functions: functions,
		logger:    log.WithFields(map[string]interface{}{"component": "mcp"}),
	}
	s.registerTools()
	return s
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

// HTTPHandler returns the streamable HTTP transport behind the API key guard.
func (s *Server) HTTPHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(EndpointPath, AuthMiddleware(s.cfg.APIKey, mcpserver.NewStreamableHTTPServer(s.mcpServer)))
	return mux
}

// Run serves the configured transport until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("Starting MCP server", map[string]interface{}{
		"transport": s.cfg.Transport,
		"tools":     len(s.functions),
	})

	switch s.cfg.Transport {
	case TransportStdio:
		err := mcpserver.NewStdioServer(s.mcpServer).Listen(ctx, os.Stdin, os.Stdout)
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("stdio transport: %w", err)
		}
		return nil
	case TransportHTTP:
		return s.runHTTP(ctx)
	default:
		return fmt.Errorf("unknown mcp transport %q", s.cfg.Transport)
	}
}

func (s *Server) runHTTP(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.HTTPHandler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("MCP HTTP transport listening", map[string]interface{}{
			"addr": s.cfg.Addr,
			"path": EndpointPath,
			"auth": s.cfg.APIKey != "",
		})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http transport: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http transport shutdown: %w", err)
		}
		return nil
	}
}
