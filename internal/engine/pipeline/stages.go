package pipeline

import (
	"context"
	"fmt"
	"path"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/dustin/go-humanize"
	"go.trai.ch/brisk/internal/core/domain"
	"go.trai.ch/brisk/internal/core/ports"
	"go.trai.ch/zerr"
)

type funcStage struct {
	name string
	fn   func(ctx context.Context, files []domain.File) ([]domain.File, error)
}

func (s *funcStage) Name() string { return s.name }

func (s *funcStage) Apply(ctx context.Context, files []domain.File) ([]domain.File, error) {
	return s.fn(ctx, files)
}

// StageFunc adapts a function to ports.Stage.
func StageFunc(name string, fn func(ctx context.Context, files []domain.File) ([]domain.File, error)) ports.Stage {
	return &funcStage{name: name, fn: fn}
}

// Filter applies stage only to files whose path matches pattern. When stage
// returns one file per input, each result goes back to its input's slot.
// Otherwise the transformed partition takes the place of the first matching
// file. All other files keep their relative order.
func Filter(pattern string, stage ports.Stage) (ports.Stage, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, zerr.With(zerr.Wrap(domain.ErrInvalidGlob, "invalid stage pattern"), "pattern", pattern)
	}

	return StageFunc("filter("+pattern+")|"+stage.Name(), func(ctx context.Context, files []domain.File) ([]domain.File, error) {
		var matched []domain.File
		var slots []int
		for i, f := range files {
			if doublestar.MatchUnvalidated(pattern, f.Path) {
				matched = append(matched, f)
				slots = append(slots, i)
			}
		}

		if len(matched) == 0 {
			return files, nil
		}

		transformed, err := stage.Apply(ctx, matched)
		if err != nil {
			return nil, err
		}

		if len(transformed) == len(matched) {
			out := slices.Clone(files)
			for i, slot := range slots {
				out[slot] = transformed[i]
			}
			return out, nil
		}

		return splice(files, slots, transformed), nil
	}), nil
}

// splice drops the files at slots and inserts transformed where the first
// of them was.
func splice(files []domain.File, slots []int, transformed []domain.File) []domain.File {
	out := make([]domain.File, 0, len(files)-len(slots)+len(transformed))
	next := 0
	for i, f := range files {
		if next < len(slots) && slots[next] == i {
			if next == 0 {
				out = append(out, transformed...)
			}
			next++
			continue
		}
		out = append(out, f)
	}
	return out
}

// Match keeps only files whose path matches pattern.
func Match(pattern string) (ports.Stage, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, zerr.With(zerr.Wrap(domain.ErrInvalidGlob, "invalid stage pattern"), "pattern", pattern)
	}

	return StageFunc("match("+pattern+")", func(_ context.Context, files []domain.File) ([]domain.File, error) {
		out := make([]domain.File, 0, len(files))
		for _, f := range files {
			if doublestar.MatchUnvalidated(pattern, f.Path) {
				out = append(out, f)
			}
		}
		return out, nil
	}), nil
}

// Flatten drops the directory part of every path.
func Flatten() ports.Stage {
	return StageFunc("flatten", func(_ context.Context, files []domain.File) ([]domain.File, error) {
		out := make([]domain.File, len(files))
		for i, f := range files {
			out[i] = f.WithPath(path.Base(f.Path))
		}
		return out, nil
	})
}

// Size logs the total size of the files passing through, prefixed by title.
func Size(logger ports.Logger, title string) ports.Stage {
	return StageFunc("size", func(_ context.Context, files []domain.File) ([]domain.File, error) {
		var total uint64
		for _, f := range files {
			total += uint64(len(f.Contents))
		}
		logger.Info(fmt.Sprintf("%s all files %s", title, humanize.Bytes(total)))
		return files, nil
	})
}
