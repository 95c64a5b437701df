// Package devserver implements the development HTTP server: an ordered chain
// of request stages serving source files, compiled files and proxied routes.
package devserver

import (
	"fmt"
	"net/http"
	"time"

	"go.trai.ch/brisk/internal/adapters/metrics"
	"go.trai.ch/brisk/internal/core/ports"
)

// Result is what a stage decided about a request.
type Result struct {
	handled bool
	writer  http.ResponseWriter
}

// Pass hands the request to the next stage.
func Pass() Result {
	return Result{}
}

// PassWith hands the request to the next stage, which writes to w instead.
func PassWith(w http.ResponseWriter) Result {
	return Result{writer: w}
}

// Handled ends the chain; the stage has written the response.
func Handled() Result {
	return Result{handled: true}
}

// IsHandled reports whether the chain stops at this result.
func (r Result) IsHandled() bool {
	return r.handled
}

// Stage is one step of request handling.
type Stage interface {
	Name() string
	Serve(w http.ResponseWriter, r *http.Request) Result
}

// finisher is implemented by writers that hold back part of the response.
type finisher interface {
	Finish() error
}

// Chain runs stages in order until one handles the request. Requests nobody
// handles get a 404.
type Chain struct {
	stages  []Stage
	logger  ports.Logger
	metrics *metrics.Metrics
}

// NewChain returns a Chain over stages. logger and m may be nil.
func NewChain(logger ports.Logger, m *metrics.Metrics, stages ...Stage) *Chain {
	return &Chain{stages: stages, logger: logger, metrics: m}
}

func (c *Chain) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

	var out http.ResponseWriter = rec
	stage := "notfound"
	handled := false
	for _, s := range c.stages {
		res := s.Serve(out, r)
		if res.handled {
			stage = s.Name()
			handled = true
			break
		}
		if res.writer != nil {
			out = res.writer
		}
	}
	if !handled {
		http.NotFound(out, r)
	}

	if f, ok := out.(finisher); ok {
		if err := f.Finish(); err != nil && c.logger != nil {
			c.logger.Debug(fmt.Sprintf("%s %s: %v", r.Method, r.URL.Path, err))
		}
	}

	if c.metrics != nil {
		c.metrics.ObserveRequest(stage, rec.status)
	}
	if c.logger != nil {
		c.logger.Debug(fmt.Sprintf("%s %s %d %s", r.Method, r.URL.RequestURI(), rec.status, time.Since(start).Round(time.Microsecond)))
	}
}

// statusRecorder remembers the status code written through it.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (s *statusRecorder) WriteHeader(code int) {
	if !s.wroteHeader && (code >= http.StatusOK || code == http.StatusSwitchingProtocols) {
		s.status = code
		s.wroteHeader = true
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(p []byte) (int, error) {
	s.wroteHeader = true
	return s.ResponseWriter.Write(p)
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}
