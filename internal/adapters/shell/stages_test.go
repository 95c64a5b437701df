package shell_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/brisk/internal/adapters/shell"
	"go.trai.ch/brisk/internal/core/domain"
	"go.trai.ch/brisk/internal/core/ports/mocks"
	"go.trai.ch/zerr"
	"go.uber.org/mock/gomock"
)

func writeScript(t *testing.T, dir, rel, body string) {
	t.Helper()
	full := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), domain.DirPerm))
	require.NoError(t, os.WriteFile(full, []byte(body), 0o755)) //nolint:gosec // executable test script
}

func TestCompileStage_Apply(t *testing.T) {
	ctrl := gomock.NewController(t)
	exec := mocks.NewMockExecutor(ctrl)

	exec.EXPECT().
		Capture(gomock.Any(), gomock.Any(), []byte("body\n  color red"), gomock.Any()).
		DoAndReturn(func(_ context.Context, cmd *domain.Command, _ []byte, _ io.Writer) ([]byte, error) {
			assert.Equal(t, "stylus", cmd.Name)
			assert.Equal(t, []string{"--use", "nib", "--compress", "--include", filepath.Join("/p/app", "styles")}, cmd.Args)
			assert.Equal(t, "/p", cmd.Dir)
			return []byte("body{color:#f00}"), nil
		})

	stage := shell.NewCompileStage(exec, "/p")
	assert.Equal(t, "stylus", stage.Name())

	out, err := stage.Apply(t.Context(), []domain.File{
		{Base: "/p/app", Path: "styles/main.styl", Contents: []byte("body\n  color red")},
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "styles/main.css", out[0].Path)
	assert.Equal(t, "body{color:#f00}", string(out[0].Contents))
}

func TestCompileStage_Apply_Failure(t *testing.T) {
	ctrl := gomock.NewController(t)
	exec := mocks.NewMockExecutor(ctrl)

	cause := zerr.With(zerr.Wrap(errors.New("exit status 1"), "command failed"), "stderr", "ParseError: stdin:7:3\n  expected indent")
	exec.EXPECT().Capture(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, cause)

	_, err := shell.NewCompileStage(exec, "/p").Apply(t.Context(), []domain.File{
		{Base: "/p/app", Path: "styles/main.styl"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCompileFailed)

	zErr, ok := err.(*zerr.Error)
	require.True(t, ok)
	assert.Equal(t, "styles/main.styl", zErr.Metadata()["file"])
	assert.Equal(t, 7, zErr.Metadata()["line"])
}

func TestLintStage_Apply(t *testing.T) {
	ctrl := gomock.NewController(t)
	exec := mocks.NewMockExecutor(ctrl)

	files := []domain.File{
		{Base: "/p/app", Path: "scripts/main.js"},
		{Base: "/p/app", Path: "scripts/util.js"},
	}

	exec.EXPECT().
		Execute(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, cmd *domain.Command, _ io.Writer) error {
			assert.Equal(t, "jshint", cmd.Name)
			assert.Equal(t, []string{
				filepath.Join("/p/app", "scripts", "main.js"),
				filepath.Join("/p/app", "scripts", "util.js"),
			}, cmd.Args)
			return nil
		})

	stage := shell.NewLintStage(exec, "/p")
	out, err := stage.Apply(t.Context(), files)
	require.NoError(t, err)
	assert.Equal(t, files, out)
}

func TestLintStage_Apply_Failure(t *testing.T) {
	ctrl := gomock.NewController(t)
	exec := mocks.NewMockExecutor(ctrl)

	exec.EXPECT().
		Execute(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ *domain.Command, out io.Writer) error {
			_, _ = io.WriteString(out, "main.js: line 3, col 9, Missing semicolon.\n\n1 error\n")
			return zerr.With(zerr.Wrap(errors.New("exit status 2"), "command failed"), "exit_code", 2)
		})

	_, err := shell.NewLintStage(exec, "/p").Apply(t.Context(), []domain.File{{Base: "/p/app", Path: "scripts/main.js"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrLintFailed)

	zErr, ok := err.(*zerr.Error)
	require.True(t, ok)
	assert.Equal(t, "main.js: line 3, col 9, Missing semicolon.\n\n1 error", zErr.Metadata()["output"])
}

func TestLintStage_Apply_NoFiles(t *testing.T) {
	ctrl := gomock.NewController(t)
	out, err := shell.NewLintStage(mocks.NewMockExecutor(ctrl), "/p").Apply(t.Context(), nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}
