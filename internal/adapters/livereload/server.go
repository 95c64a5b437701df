package livereload

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.trai.ch/brisk/internal/adapters/metrics"
	"go.trai.ch/brisk/internal/adapters/netutil"
	"go.trai.ch/brisk/internal/core/domain"
	"go.trai.ch/brisk/internal/core/ports"
	"go.trai.ch/zerr"
)

//go:embed livereload.js
var clientScript []byte

const version = "7"

// Server exposes the hub over HTTP.
type Server struct {
	hub     *Hub
	logger  ports.Logger
	port    int
	handler http.Handler

	srv *http.Server
	ln  net.Listener
}

// NewServer routes the websocket endpoint, the client script, change
// notifications and, when m is set, Prometheus metrics.
func NewServer(port int, hub *Hub, logger ports.Logger, m *metrics.Metrics) *Server {
	s := &Server{hub: hub, logger: logger, port: port}

	r := chi.NewRouter()
	r.Get("/", s.welcome)
	r.Get("/livereload", hub.ServeWS)
	r.Get("/livereload.js", serveScript)
	r.Get("/changed", s.changed)
	r.Post("/changed", s.changed)
	if m != nil {
		r.Handle("/metrics", m.Handler())
	}
	s.handler = r

	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Listen binds the live-reload port.
func (s *Server) Listen(ctx context.Context) error {
	ln, err := netutil.Listen(ctx, s.port, "failed to start live-reload server")
	if err != nil {
		return err
	}
	s.ln = ln
	s.srv = netutil.NewServer(s.handler)

	s.logger.Info(fmt.Sprintf("Live reload server listening on port %d", s.Port()))
	return nil
}

// Port returns the bound port, or the configured port before Listen.
func (s *Server) Port() int {
	if s.ln != nil {
		return netutil.Port(s.ln)
	}
	return s.port
}

// Serve accepts connections until ctx is cancelled. Connected clients are
// disconnected on the way out.
func (s *Server) Serve(ctx context.Context) error {
	if s.srv == nil {
		return zerr.Wrap(domain.ErrServerFailed, "live-reload server is not listening")
	}
	defer s.hub.Close()
	return netutil.Serve(ctx, s.srv, s.ln)
}

func (s *Server) welcome(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]string{"tinylr": "Welcome", "version": version})
}

func serveScript(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	_, _ = w.Write(clientScript)
}

type changedRequest struct {
	Files []string `json:"files"`
}

// changed accepts ?files=a,b or a JSON body {"files": [...]}.
func (s *Server) changed(w http.ResponseWriter, r *http.Request) {
	var files []string
	if q := r.URL.Query().Get("files"); q != "" {
		files = splitFiles(q)
	}
	if r.Method == http.MethodPost && r.ContentLength != 0 {
		var body changedRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		files = append(files, body.Files...)
	}

	s.hub.Broadcast(files...)
	if files == nil {
		files = []string{}
	}
	writeJSON(w, map[string]any{"clients": s.hub.ClientCount(), "files": files})
}

func splitFiles(q string) []string {
	var files []string
	for f := range strings.SplitSeq(q, ",") {
		if f = strings.TrimSpace(f); f != "" {
			files = append(files, f)
		}
	}
	return files
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
