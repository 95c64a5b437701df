package fs

import (
	"os"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"go.trai.ch/brisk/internal/core/domain"
	"go.trai.ch/brisk/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.InputResolver = (*Resolver)(nil)

// Resolver implements the InputResolver interface using doublestar globs.
type Resolver struct{}

// NewResolver creates a new Resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// ResolveInputs expands include patterns, then removes anything matched by a "!" pattern.
// A pattern without matches is not an error.
func (r *Resolver) ResolveInputs(patterns []string, root string, includeDot bool) ([]string, error) {
	var includes, excludes []string
	for _, pattern := range patterns {
		negated := strings.HasPrefix(pattern, "!")
		pattern = strings.TrimPrefix(pattern, "!")
		if !doublestar.ValidatePattern(pattern) {
			return nil, zerr.With(zerr.Wrap(domain.ErrInvalidGlob, domain.ErrInputResolutionFailed.Error()), "pattern", pattern)
		}
		if negated {
			excludes = append(excludes, pattern)
		} else {
			includes = append(includes, pattern)
		}
	}

	fsys := os.DirFS(root)
	unique := make(map[string]bool)

	for _, pattern := range includes {
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, zerr.With(zerr.With(zerr.Wrap(err, domain.ErrInputResolutionFailed.Error()), "pattern", pattern), "root", root)
		}

		for _, match := range matches {
			if !includeDot && hiddenBeyondPattern(pattern, match) {
				continue
			}
			if excluded(excludes, match) {
				continue
			}
			unique[match] = true
		}
	}

	result := make([]string, 0, len(unique))
	for path := range unique {
		result = append(result, path)
	}
	slices.Sort(result)

	return result, nil
}

func excluded(excludes []string, path string) bool {
	for _, pattern := range excludes {
		if doublestar.MatchUnvalidated(pattern, path) {
			return true
		}
	}
	return false
}

// hiddenBeyondPattern reports whether match has a dot-prefixed segment that the
// pattern did not name literally.
func hiddenBeyondPattern(pattern, match string) bool {
	literal := make(map[string]bool)
	for _, seg := range strings.Split(pattern, "/") {
		if strings.HasPrefix(seg, ".") {
			literal[seg] = true
		}
	}

	for _, seg := range strings.Split(match, "/") {
		if strings.HasPrefix(seg, ".") && !literal[seg] {
			return true
		}
	}
	return false
}
