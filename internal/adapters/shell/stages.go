package shell

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"go.trai.ch/brisk/internal/core/domain"
	"go.trai.ch/brisk/internal/core/ports"
	"go.trai.ch/zerr"
)

var (
	_ ports.Stage = (*CompileStage)(nil)
	_ ports.Stage = (*LintStage)(nil)
)

// stylusLine finds the "stdin:LINE:COL" location stylus prints on syntax errors.
var stylusLine = regexp.MustCompile(`stdin:(\d+):\d+`)

// CompileStage compiles stylus sources to CSS through the external stylus command.
type CompileStage struct {
	executor ports.Executor
	dir      string
}

// NewCompileStage returns a stage that runs stylus from dir.
func NewCompileStage(executor ports.Executor, dir string) *CompileStage {
	return &CompileStage{executor: executor, dir: dir}
}

// Name identifies the stage.
func (s *CompileStage) Name() string { return "stylus" }

// Apply compiles every file, renaming it to .css. Imports resolve relative to the source file.
func (s *CompileStage) Apply(ctx context.Context, files []domain.File) ([]domain.File, error) {
	out := make([]domain.File, 0, len(files))

	for _, f := range files {
		cmd := &domain.Command{
			Name: "stylus",
			Args: []string{"--use", "nib", "--compress", "--include", filepath.Dir(f.AbsPath())},
			Dir:  s.dir,
		}

		css, err := s.executor.Capture(ctx, cmd, f.Contents, ports.OutputFromContext(ctx))
		if err != nil {
			return nil, compileError(f.Path, err)
		}

		out = append(out, f.WithExt(".css").WithContents(css))
	}

	return out, nil
}

func compileError(path string, cause error) error {
	err := zerr.With(zerr.Wrap(domain.ErrCompileFailed, "failed to compile "+path), "file", path)
	if m := stylusLine.FindStringSubmatch(cause.Error() + " " + stderrOf(cause)); m != nil {
		if line, convErr := strconv.Atoi(m[1]); convErr == nil {
			err = zerr.With(err, "line", line)
		}
	}
	return zerr.With(err, "reason", cause.Error())
}

// stderrOf returns the captured stderr metadata of an executor error, if any.
func stderrOf(err error) string {
	type metadataer interface{ Metadata() map[string]any }
	if md, ok := err.(metadataer); ok {
		if s, ok := md.Metadata()["stderr"].(string); ok {
			return s
		}
	}
	return ""
}

// LintStage runs jshint over all files at once. Files pass through unchanged.
type LintStage struct {
	executor ports.Executor
	dir      string
}

// NewLintStage returns a stage that runs jshint from dir.
func NewLintStage(executor ports.Executor, dir string) *LintStage {
	return &LintStage{executor: executor, dir: dir}
}

// Name identifies the stage.
func (s *LintStage) Name() string { return "jshint" }

// Apply lints files. A non-zero exit is reported as ErrLintFailed with the reporter output attached.
func (s *LintStage) Apply(ctx context.Context, files []domain.File) ([]domain.File, error) {
	if len(files) == 0 {
		return files, nil
	}

	args := make([]string, 0, len(files))
	for _, f := range files {
		args = append(args, f.AbsPath())
	}

	var report bytes.Buffer
	out := io.MultiWriter(ports.OutputFromContext(ctx), &report)

	if err := s.executor.Execute(ctx, &domain.Command{Name: "jshint", Args: args, Dir: s.dir}, out); err != nil {
		lintErr := zerr.With(zerr.Wrap(domain.ErrLintFailed, "jshint reported problems"), "files", len(files))
		lintErr = zerr.With(lintErr, "output", strings.TrimSpace(report.String()))
		return nil, zerr.With(lintErr, "reason", err.Error())
	}

	return files, nil
}
