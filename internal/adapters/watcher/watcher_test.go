package watcher_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.trai.ch/brisk/internal/adapters/fs"
	"go.trai.ch/brisk/internal/adapters/watcher"
	"go.trai.ch/brisk/internal/core/ports"
	"go.trai.ch/brisk/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func startWatcher(t *testing.T, root string) (ports.Watcher, <-chan ports.WatchEvent) {
	t.Helper()
	logger := mocks.NewMockLogger(gomock.NewController(t))
	logger.EXPECT().Warn(gomock.Any()).AnyTimes()

	w, err := watcher.NewWatcher(fs.NewWalker(), logger)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		_ = w.Stop()
	})
	require.NoError(t, w.Start(ctx, root))

	out := make(chan ports.WatchEvent, 64)
	go func() {
		defer close(out)
		for ev := range w.Events() {
			out <- ev
		}
	}()
	return w, out
}

// waitFor consumes events until one for path arrives.
func waitFor(t *testing.T, events <-chan ports.WatchEvent, path string) ports.WatchEvent {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			require.True(t, ok, "event stream closed before %s", path)
			if ev.Path == path {
				return ev
			}
		case <-timeout:
			t.Fatalf("no event for %s", path)
		}
	}
}

func TestWatcher_RelativeSlashPaths(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "app", "styles"), 0o750))

	_, events := startWatcher(t, root)

	require.NoError(t, os.WriteFile(filepath.Join(root, "app", "styles", "main.styl"), []byte("body"), 0o600))
	ev := waitFor(t, events, "app/styles/main.styl")
	require.Contains(t, []ports.WatchOp{ports.OpCreate, ports.OpWrite}, ev.Operation)
}

func TestWatcher_NewDirectoriesAreWatched(t *testing.T) {
	root := t.TempDir()
	_, events := startWatcher(t, root)

	dir := filepath.Join(root, "app", "scripts")
	require.NoError(t, os.Mkdir(filepath.Join(root, "app"), 0o750))
	waitFor(t, events, "app")
	require.NoError(t, os.Mkdir(dir, 0o750))
	waitFor(t, events, "app/scripts")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.js"), []byte("x"), 0o600))
	waitFor(t, events, "app/scripts/main.js")
}

func TestWatcher_SkipsIgnoredDirectories(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "node_modules", "pkg"), 0o750))

	_, events := startWatcher(t, root)

	require.NoError(t, os.WriteFile(filepath.Join(root, "node_modules", "pkg", "index.js"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "marker"), []byte("x"), 0o600))

	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev := <-events:
			require.NotEqual(t, "node_modules/pkg/index.js", ev.Path)
			if ev.Path == "marker" {
				return
			}
		case <-timeout:
			t.Fatal("no event for marker")
		}
	}
}

func TestWatcher_ContextCancelClosesEvents(t *testing.T) {
	logger := mocks.NewMockLogger(gomock.NewController(t))
	w, err := watcher.NewWatcher(fs.NewWalker(), logger)
	require.NoError(t, err)
	defer func() { _ = w.Stop() }()

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx, t.TempDir()))
	cancel()

	done := make(chan struct{})
	go func() {
		for range w.Events() {
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("events did not close after cancel")
	}
}
