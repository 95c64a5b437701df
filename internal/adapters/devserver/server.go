package devserver

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"go.trai.ch/brisk/internal/adapters/metrics"
	"go.trai.ch/brisk/internal/adapters/netutil"
	"go.trai.ch/brisk/internal/core/domain"
	"go.trai.ch/brisk/internal/core/ports"
	"go.trai.ch/zerr"
)

// Server is the development HTTP server.
type Server struct {
	cfg    domain.Config
	routes []domain.ProxyRoute
	logger ports.Logger
	chain  *Chain

	srv *http.Server
	ln  net.Listener
}

// New builds the stage chain for the project rooted at projectDir:
// live-reload injection, source files, compiled files, directory listing and
// the proxied routes.
func New(projectDir string, cfg domain.Config, logger ports.Logger, m *metrics.Metrics) (*Server, error) {
	routes, err := cfg.Routes()
	if err != nil {
		return nil, err
	}

	appDir := domain.ProjectPath(projectDir, cfg.Paths.App)
	tempDir := domain.ProjectPath(projectDir, cfg.Paths.Temp)

	chain := NewChain(logger, m,
		NewInjector(cfg.LivereloadPort),
		NewStatic("app", appDir),
		NewStatic("temp", tempDir),
		NewListing(appDir),
		NewProxy(routes, logger, m),
	)

	return &Server{
		cfg:    cfg,
		routes: routes,
		logger: logger,
		chain:  chain,
	}, nil
}

// Handler returns the request chain.
func (s *Server) Handler() http.Handler {
	return s.chain
}

// Listen logs the proxied routes and binds the configured port. A port that
// is already bound is fatal; there is no retry.
func (s *Server) Listen(ctx context.Context) error {
	for _, route := range s.routes {
		s.logger.Info(fmt.Sprintf("Proxy: %s to %s", route.Prefix, route.Target()))
	}

	ln, err := netutil.Listen(ctx, s.cfg.Port, "failed to start dev server")
	if err != nil {
		return err
	}
	s.ln = ln
	s.srv = netutil.NewServer(s.chain)

	s.logger.Info(fmt.Sprintf("Started dev server on http://localhost:%d", s.Port()))
	return nil
}

// Port returns the bound port, or the configured port before Listen.
func (s *Server) Port() int {
	if s.ln != nil {
		return netutil.Port(s.ln)
	}
	return s.cfg.Port
}

// Serve accepts connections until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	if s.srv == nil {
		return zerr.Wrap(domain.ErrServerFailed, "dev server is not listening")
	}
	return netutil.Serve(ctx, s.srv, s.ln)
}
