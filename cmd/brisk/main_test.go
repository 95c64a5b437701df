package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/brisk/internal/adapters/fs"
	"go.trai.ch/brisk/internal/app"
	"go.trai.ch/brisk/internal/core/domain"
	"go.trai.ch/brisk/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func newProvider(t *testing.T, loader *mocks.MockConfigLoader, logger *mocks.MockLogger) ComponentProvider {
	t.Helper()
	ctrl := gomock.NewController(t)
	application := app.New(loader, mocks.NewMockExecutor(ctrl), logger, fs.NewHasher(), fs.NewResolver(), nil, nil).
		WithOutput(io.Discard, io.Discard)

	return func(_ context.Context) (*app.Components, func(), error) {
		return &app.Components{App: application, Logger: logger}, func() {}, nil
	}
}

// TestRun_Success verifies that the run function returns 0 when the command succeeds.
func TestRun_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := newProvider(t, mocks.NewMockConfigLoader(ctrl), mocks.NewMockLogger(ctrl))

	exitCode := run(context.Background(), []string{"version"}, new(bytes.Buffer), provider)
	assert.Equal(t, 0, exitCode)
}

// TestRun_InitializationError verifies that run returns 1 when component initialization fails.
func TestRun_InitializationError(t *testing.T) {
	provider := func(_ context.Context) (*app.Components, func(), error) {
		return nil, nil, errors.New("init failed")
	}

	stderr := new(bytes.Buffer)
	exitCode := run(context.Background(), []string{"version"}, stderr, provider)

	assert.Equal(t, 1, exitCode)
	assert.Contains(t, stderr.String(), "Error: init failed")
}

// TestRun_ConfigError verifies that configuration errors are logged and exit 1.
func TestRun_ConfigError(t *testing.T) {
	ctrl := gomock.NewController(t)
	loader := mocks.NewMockConfigLoader(ctrl)
	logger := mocks.NewMockLogger(ctrl)

	loader.EXPECT().Load(gomock.Any()).Return(nil, domain.ErrConfigParseFailed)
	logger.EXPECT().Error(gomock.Any()).Do(func(err error) {
		assert.ErrorIs(t, err, domain.ErrConfigParseFailed)
	})

	exitCode := run(context.Background(), []string{"build"}, new(bytes.Buffer), newProvider(t, loader, logger))
	assert.Equal(t, 1, exitCode)
}

// TestRun_CleanTask runs a real task end to end through the CLI.
func TestRun_CleanTask(t *testing.T) {
	ctrl := gomock.NewController(t)
	loader := mocks.NewMockConfigLoader(ctrl)
	logger := mocks.NewMockLogger(ctrl)

	dir := t.TempDir()
	dist := filepath.Join(dir, "dist")
	require.NoError(t, os.MkdirAll(dist, domain.DirPerm))

	cfg := domain.DefaultConfig()
	cfg.Paths.Dist = dist
	cfg.Paths.Temp = filepath.Join(dir, ".tmp")
	loader.EXPECT().Load(gomock.Any()).Return(&cfg, nil)

	exitCode := run(context.Background(), []string{"clean"}, new(bytes.Buffer), newProvider(t, loader, logger))
	assert.Equal(t, 0, exitCode)
	assert.NoDirExists(t, dist)
}

// TestRun_UnknownCommand verifies that cobra usage errors exit 1.
func TestRun_UnknownCommand(t *testing.T) {
	ctrl := gomock.NewController(t)
	logger := mocks.NewMockLogger(ctrl)
	logger.EXPECT().Error(gomock.Any())

	exitCode := run(context.Background(), []string{"deploy"}, new(bytes.Buffer),
		newProvider(t, mocks.NewMockConfigLoader(ctrl), logger))
	assert.Equal(t, 1, exitCode)
}
