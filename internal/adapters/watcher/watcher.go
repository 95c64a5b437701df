package watcher

import (
	"context"
	"fmt"
	"iter"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.trai.ch/brisk/internal/adapters/fs"
	"go.trai.ch/brisk/internal/core/domain"
	"go.trai.ch/brisk/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Watcher = (*Watcher)(nil)

const eventChannelBuffer = 100

// Watcher watches a directory tree recursively. Event paths are slash-separated
// and relative to the watched root.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	walker    *fs.Walker
	logger    ports.Logger
	root      string
	events    chan ports.WatchEvent
}

// NewWatcher creates a Watcher that skips the directories walker prunes.
func NewWatcher(walker *fs.Walker, logger ports.Logger) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, zerr.Wrap(err, domain.ErrWatchFailed.Error())
	}
	return &Watcher{
		fsWatcher: w,
		walker:    walker,
		logger:    logger,
		events:    make(chan ports.WatchEvent, eventChannelBuffer),
	}, nil
}

// Start adds root and every directory below it, then forwards events until
// ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context, root string) error {
	w.root = root

	for dir := range w.walker.WalkDirs(root) {
		if err := w.fsWatcher.Add(dir); err != nil {
			return zerr.With(zerr.Wrap(err, domain.ErrWatchFailed.Error()), "path", dir)
		}
	}

	go w.processEvents(ctx)
	return nil
}

// Stop releases the underlying watches.
func (w *Watcher) Stop() error {
	return w.fsWatcher.Close()
}

// Events yields events until the watcher stops.
func (w *Watcher) Events() iter.Seq[ports.WatchEvent] {
	return func(yield func(ports.WatchEvent) bool) {
		for event := range w.events {
			if !yield(event) {
				return
			}
		}
	}
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.events)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}

			watchEvent, ok := w.convertEvent(event)
			if !ok {
				continue
			}

			// New directories are watched before their event is published so
			// files created right after are not missed.
			if watchEvent.Operation == ports.OpCreate {
				w.watchNewDirectory(event.Name)
			}

			select {
			case w.events <- watchEvent:
			case <-ctx.Done():
				return
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn(fmt.Sprintf("file watcher error: %v", err))
		}
	}
}

func (w *Watcher) watchNewDirectory(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() || w.walker.Skips(info.Name()) {
		return
	}
	for dir := range w.walker.WalkDirs(path) {
		_ = w.fsWatcher.Add(dir)
	}
}

func (w *Watcher) convertEvent(event fsnotify.Event) (ports.WatchEvent, bool) {
	var op ports.WatchOp
	switch {
	case event.Has(fsnotify.Write):
		op = ports.OpWrite
	case event.Has(fsnotify.Create):
		op = ports.OpCreate
	case event.Has(fsnotify.Remove):
		op = ports.OpRemove
	case event.Has(fsnotify.Rename):
		op = ports.OpRename
	default:
		return ports.WatchEvent{}, false
	}

	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil {
		return ports.WatchEvent{}, false
	}
	return ports.WatchEvent{Path: filepath.ToSlash(rel), Operation: op}, true
}
