package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/brisk/internal/adapters/config"  //nolint:depguard // Wired in app layer
	"go.trai.ch/brisk/internal/adapters/fs"      //nolint:depguard // Wired in app layer
	"go.trai.ch/brisk/internal/adapters/logger"  //nolint:depguard // Wired in app layer
	"go.trai.ch/brisk/internal/adapters/metrics" //nolint:depguard // Wired in app layer
	"go.trai.ch/brisk/internal/adapters/shell"   //nolint:depguard // Wired in app layer
	"go.trai.ch/brisk/internal/adapters/watcher" //nolint:depguard // Wired in app layer
	"go.trai.ch/brisk/internal/core/ports"
)

const (
	// AppNodeID is the unique identifier for the main App Graft node.
	AppNodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the App components Graft node.
	ComponentsNodeID graft.ID = "app.components"
)

// Components contains the initialized components the CLI layer needs.
type Components struct {
	App    *App
	Logger ports.Logger
}

func init() {
	graft.Register(graft.Node[*App]{
		ID:        AppNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			config.NodeID,
			shell.NodeID,
			logger.NodeID,
			fs.HasherNodeID,
			fs.ResolverNodeID,
			metrics.NodeID,
			watcher.NodeID,
		},
		Run: runAppNode,
	})

	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{AppNodeID, logger.NodeID},
		Run: func(ctx context.Context) (*Components, error) {
			a, err := graft.Dep[*App](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return &Components{App: a, Logger: log}, nil
		},
	})
}

func runAppNode(ctx context.Context) (*App, error) {
	loader, err := graft.Dep[ports.ConfigLoader](ctx)
	if err != nil {
		return nil, err
	}

	executor, err := graft.Dep[ports.Executor](ctx)
	if err != nil {
		return nil, err
	}

	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}

	hasher, err := graft.Dep[ports.Hasher](ctx)
	if err != nil {
		return nil, err
	}

	resolver, err := graft.Dep[ports.InputResolver](ctx)
	if err != nil {
		return nil, err
	}

	m, err := graft.Dep[*metrics.Metrics](ctx)
	if err != nil {
		return nil, err
	}

	newWatcher, err := graft.Dep[watcher.Factory](ctx)
	if err != nil {
		return nil, err
	}

	return New(loader, executor, log, hasher, resolver, m, newWatcher), nil
}
