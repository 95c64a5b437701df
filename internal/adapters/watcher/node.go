package watcher

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/brisk/internal/adapters/fs"
	"go.trai.ch/brisk/internal/adapters/logger"
	"go.trai.ch/brisk/internal/core/ports"
)

// NodeID is the unique identifier for the watcher factory Graft node.
const NodeID graft.ID = "adapter.watcher"

// Factory creates a Watcher on demand, so that inotify handles are only
// opened by commands that watch.
type Factory func() (ports.Watcher, error)

func init() {
	graft.Register(graft.Node[Factory]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{fs.WalkerNodeID, logger.NodeID},
		Run: func(ctx context.Context) (Factory, error) {
			walker, err := graft.Dep[*fs.Walker](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return func() (ports.Watcher, error) {
				return NewWatcher(walker, log)
			}, nil
		},
	})
}
