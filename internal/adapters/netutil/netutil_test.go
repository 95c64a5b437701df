package netutil_test

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/brisk/internal/adapters/netutil"
	"go.trai.ch/brisk/internal/core/domain"
	"go.trai.ch/zerr"
)

func TestListen_PortInUse(t *testing.T) {
	first, err := netutil.Listen(t.Context(), 0, "first")
	require.NoError(t, err)
	defer func() { _ = first.Close() }()

	port := netutil.Port(first)
	_, err = netutil.Listen(t.Context(), port, "failed to start dev server")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPortInUse)

	var zErr *zerr.Error
	require.ErrorAs(t, err, &zErr)
	assert.Equal(t, port, zErr.Metadata()["port"])
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	ln, err := netutil.Listen(t.Context(), 0, "test")
	require.NoError(t, err)

	srv := netutil.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "ok")
	}))

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- netutil.Serve(ctx, srv, ln) }()

	resp, err := http.Get("http://127.0.0.1:" + strconv.Itoa(netutil.Port(ln)) + "/")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, "ok", string(body))

	cancel()
	require.NoError(t, <-done)
}
