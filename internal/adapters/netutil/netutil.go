// Package netutil binds and runs the HTTP listeners shared by the dev and
// live-reload servers.
package netutil

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"syscall"
	"time"

	"go.trai.ch/brisk/internal/core/domain"
	"go.trai.ch/zerr"
)

const (
	// ReadHeaderTimeout bounds how long a client may take to send request headers.
	ReadHeaderTimeout = 10 * time.Second
	// ShutdownTimeout bounds graceful shutdown once the context ends.
	ShutdownTimeout = 5 * time.Second
)

// Listen binds a TCP port on all interfaces. A bound port yields ErrPortInUse;
// any other failure yields ErrListenFailed. Both carry the port and msg.
func Listen(ctx context.Context, port int, msg string) (net.Listener, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", net.JoinHostPort("", strconv.Itoa(port)))
	if err != nil {
		if errors.Is(err, syscall.EADDRINUSE) {
			return nil, zerr.With(zerr.Wrap(domain.ErrPortInUse, msg), "port", port)
		}
		wrapped := zerr.With(zerr.Wrap(domain.ErrListenFailed, msg), "port", port)
		return nil, zerr.With(wrapped, "reason", err.Error())
	}
	return ln, nil
}

// Port returns the TCP port ln is bound to.
func Port(ln net.Listener) int {
	if addr, ok := ln.Addr().(*net.TCPAddr); ok {
		return addr.Port
	}
	return 0
}

// NewServer returns an http.Server for handler with the shared timeouts.
func NewServer(handler http.Handler) *http.Server {
	return &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: ReadHeaderTimeout,
	}
}

// Serve runs srv on ln until ctx ends, then shuts it down gracefully.
func Serve(ctx context.Context, srv *http.Server, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return zerr.Wrap(err, domain.ErrServerFailed.Error())
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return zerr.Wrap(err, domain.ErrServerFailed.Error())
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return zerr.Wrap(err, domain.ErrServerFailed.Error())
	}
	return nil
}
