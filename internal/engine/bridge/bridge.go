// Package bridge turns file change events into task runs and live-reload
// notifications according to the watch bindings.
package bridge

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"go.trai.ch/brisk/internal/core/domain"
	"go.trai.ch/brisk/internal/core/ports"
	"go.trai.ch/zerr"
)

// RunFunc runs the named task and its dependencies.
type RunFunc func(ctx context.Context, task string) error

// Batcher collects event paths and hands them back in batches.
type Batcher interface {
	Add(path string)
}

// Observer is told about every task the bridge runs.
type Observer interface {
	ObserveTaskRun(task string, err error)
}

// Bridge reacts to changed paths. Task failures are logged and never returned,
// so the watch loop keeps going.
type Bridge struct {
	root        string
	bindings    []domain.WatchBinding
	run         RunFunc
	broadcaster ports.Broadcaster
	hasher      ports.Hasher
	logger      ports.Logger
	observer    Observer

	// mu serializes batches; digests holds the content hash last notified per path.
	mu      sync.Mutex
	digests map[string]uint64
}

// New validates every binding pattern and returns a Bridge for the project at root.
func New(
	root string,
	bindings []domain.WatchBinding,
	run RunFunc,
	broadcaster ports.Broadcaster,
	hasher ports.Hasher,
	logger ports.Logger,
) (*Bridge, error) {
	for _, b := range bindings {
		for _, p := range b.Patterns {
			if !doublestar.ValidatePattern(p) {
				return nil, zerr.With(zerr.Wrap(domain.ErrInvalidGlob, "invalid watch pattern"), "pattern", p)
			}
		}
	}

	return &Bridge{
		root:        root,
		bindings:    bindings,
		run:         run,
		broadcaster: broadcaster,
		hasher:      hasher,
		logger:      logger,
		digests:     make(map[string]uint64),
	}, nil
}

// WithObserver sets an observer for task runs.
func (b *Bridge) WithObserver(o Observer) *Bridge {
	b.observer = o
	return b
}

// Run starts w on the project root and feeds every event path to batch until
// the watcher stops or ctx is cancelled.
func (b *Bridge) Run(ctx context.Context, w ports.Watcher, batch Batcher) error {
	if err := w.Start(ctx, b.root); err != nil {
		return err
	}
	defer func() { _ = w.Stop() }()

	b.logger.Info(fmt.Sprintf("Watching %s for changes", b.root))
	for ev := range w.Events() {
		if ctx.Err() != nil {
			break
		}
		batch.Add(ev.Path)
	}
	return nil
}

// Handle reacts to a batch of changed paths: live-reload clients are notified
// of matching paths whose content changed, then each matching task runs once.
func (b *Bridge) Handle(ctx context.Context, paths []string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var notify []string
	var tasks []string
	for _, p := range paths {
		for _, binding := range b.bindings {
			if !matchesAny(binding.Patterns, p) {
				continue
			}
			switch binding.Reaction.Kind {
			case domain.ReactNotifyReload:
				if !slices.Contains(notify, p) {
					notify = append(notify, p)
				}
			case domain.ReactRunTask:
				if name := binding.Reaction.Task.String(); !slices.Contains(tasks, name) {
					tasks = append(tasks, name)
				}
			}
		}
	}

	if changed := b.changed(notify); len(changed) > 0 {
		b.broadcaster.Broadcast(changed...)
	}

	for _, task := range tasks {
		if ctx.Err() != nil {
			return
		}
		b.logger.Debug(fmt.Sprintf("running %s", task))
		err := b.run(ctx, task)
		if b.observer != nil {
			b.observer.ObserveTaskRun(task, err)
		}
		if err != nil {
			b.logger.Error(err)
		}
	}
}

// changed drops paths whose digest matches the last notification. Paths that
// cannot be hashed, such as removed files, always count as changed.
func (b *Bridge) changed(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		sum, err := b.hasher.ComputeFileHash(filepath.Join(b.root, filepath.FromSlash(p)))
		if err != nil {
			delete(b.digests, p)
			out = append(out, p)
			continue
		}
		if prev, ok := b.digests[p]; ok && prev == sum {
			b.logger.Debug(fmt.Sprintf("%s unchanged, not reloading", p))
			continue
		}
		b.digests[p] = sum
		out = append(out, p)
	}
	return out
}

func matchesAny(patterns []string, p string) bool {
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, p); ok {
			return true
		}
	}
	return false
}
