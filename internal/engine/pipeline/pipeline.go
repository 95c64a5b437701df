// Package pipeline moves files from a source through stages into a destination directory.
package pipeline

import (
	"context"
	"os"
	"path/filepath"

	"go.trai.ch/brisk/internal/core/domain"
	"go.trai.ch/brisk/internal/core/ports"
	"go.trai.ch/zerr"
)

// Source produces the initial set of files.
type Source func(ctx context.Context) ([]domain.File, error)

// Src resolves patterns under base and reads every match.
func Src(resolver ports.InputResolver, base string, patterns []string, includeDot bool) Source {
	return func(_ context.Context) ([]domain.File, error) {
		paths, err := resolver.ResolveInputs(patterns, base, includeDot)
		if err != nil {
			return nil, err
		}
		return readFiles(base, paths)
	}
}

// Files reads the given slash-separated paths relative to base.
func Files(base string, paths []string) Source {
	return func(_ context.Context) ([]domain.File, error) {
		return readFiles(base, paths)
	}
}

func readFiles(base string, paths []string) ([]domain.File, error) {
	files := make([]domain.File, 0, len(paths))
	for _, p := range paths {
		f := domain.File{Base: base, Path: p}

		info, err := os.Stat(f.AbsPath())
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, domain.ErrFileReadFailed.Error()), "file", f.AbsPath())
		}
		contents, err := os.ReadFile(f.AbsPath())
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, domain.ErrFileReadFailed.Error()), "file", f.AbsPath())
		}

		f.Contents = contents
		f.Mode = info.Mode().Perm()
		files = append(files, f)
	}
	return files, nil
}

// Pipeline is a source followed by an ordered list of stages.
type Pipeline struct {
	src    Source
	stages []ports.Stage
}

// New creates a pipeline.
func New(src Source, stages ...ports.Stage) *Pipeline {
	return &Pipeline{src: src, stages: stages}
}

// Run reads the source and applies every stage in order.
func (p *Pipeline) Run(ctx context.Context) ([]domain.File, error) {
	files, err := p.src(ctx)
	if err != nil {
		return nil, err
	}

	for _, stage := range p.stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		files, err = stage.Apply(ctx, files)
		if err != nil {
			return nil, zerr.With(err, "stage", stage.Name())
		}
	}
	return files, nil
}

// To runs the pipeline and writes the result under dir.
// Nothing is written unless every stage succeeded.
func (p *Pipeline) To(ctx context.Context, dir string) ([]domain.File, error) {
	files, err := p.Run(ctx)
	if err != nil {
		return nil, err
	}
	if err := Dest(dir, files); err != nil {
		return nil, err
	}
	return files, nil
}

// Dest writes files under dir. Each file is written to a temporary sibling
// and renamed into place, so readers never observe partial contents.
func Dest(dir string, files []domain.File) error {
	for _, f := range files {
		target := filepath.Join(dir, filepath.FromSlash(f.Path))
		if err := writeAtomic(target, f); err != nil {
			return zerr.With(zerr.Wrap(err, domain.ErrFileWriteFailed.Error()), "file", target)
		}
	}
	return nil
}

func writeAtomic(target string, f domain.File) error {
	if err := os.MkdirAll(filepath.Dir(target), domain.DirPerm); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(f.Contents); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	mode := f.Mode
	if mode == 0 {
		mode = domain.FilePerm
	}
	if err := os.Chmod(tmp.Name(), mode); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), target)
}
