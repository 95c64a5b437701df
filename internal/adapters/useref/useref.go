// Package useref consolidates the assets referenced inside HTML build blocks.
//
// A build block is delimited by comments:
//
//	<!-- build:js(.tmp,app) scripts/app.js -->
//	<script src="scripts/vendor.js"></script>
//	<script src="scripts/main.js"></script>
//	<!-- endbuild -->
//
// The block is replaced by a single reference to the output path and the
// referenced files are concatenated into a new file at that path.
// The parenthesised search roots are optional.
package useref

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"go.trai.ch/brisk/internal/core/domain"
	"go.trai.ch/brisk/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var _ ports.Stage = (*Stage)(nil)

var (
	startBlock = regexp.MustCompile(`^\s*build:(\w+)(?:\(([^)]*)\))?(?:\s+(\S+))?\s*$`)
	endBlock   = regexp.MustCompile(`^\s*endbuild\s*$`)
)

const (
	blockJS     = "js"
	blockCSS    = "css"
	blockRemove = "remove"
)

// Stage rewrites HTML files and emits the consolidated bundles after each of them.
type Stage struct {
	projectDir  string
	searchRoots []string
}

// New returns a stage resolving asset references against searchRoots, which are
// relative to projectDir and tried in order.
func New(projectDir string, searchRoots ...string) *Stage {
	return &Stage{projectDir: projectDir, searchRoots: searchRoots}
}

// Name identifies the stage.
func (s *Stage) Name() string { return "useref" }

// Apply processes every file. A bundle path referenced by several pages is emitted once.
func (s *Stage) Apply(ctx context.Context, files []domain.File) ([]domain.File, error) {
	out := make([]domain.File, 0, len(files))
	seen := make(map[string]bool)

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, bundles, err := s.rewrite(f)
		if err != nil {
			return nil, err
		}

		out = append(out, page)
		for _, b := range bundles {
			if seen[b.Path] {
				continue
			}
			seen[b.Path] = true
			out = append(out, b)
		}
	}

	return out, nil
}

type block struct {
	kind   string
	output string
	roots  []string
	refs   []string
}

func (s *Stage) rewrite(f domain.File) (domain.File, []domain.File, error) {
	var buf bytes.Buffer
	var bundles []domain.File
	var current *block

	z := html.NewTokenizer(bytes.NewReader(f.Contents))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if !errors.Is(z.Err(), io.EOF) {
				return f, nil, zerr.With(zerr.Wrap(z.Err(), domain.ErrFileReadFailed.Error()), "file", f.Path)
			}
			break
		}

		// Token lowercases tag names in place, so Raw must be copied first.
		raw := slices.Clone(z.Raw())
		tok := z.Token()

		if current == nil {
			if tt == html.CommentToken {
				if m := startBlock.FindStringSubmatch(tok.Data); m != nil {
					b, err := newBlock(f.Path, m)
					if err != nil {
						return f, nil, err
					}
					current = b
					continue
				}
			}
			buf.Write(raw)
			continue
		}

		switch {
		case tt == html.CommentToken && endBlock.MatchString(tok.Data):
			bundle, err := s.closeBlock(f, current, &buf)
			if err != nil {
				return f, nil, err
			}
			if bundle != nil {
				bundles = append(bundles, *bundle)
			}
			current = nil
		case tt == html.StartTagToken || tt == html.SelfClosingTagToken:
			if ref := reference(tok); ref != "" {
				current.refs = append(current.refs, ref)
			}
		}
	}

	if current != nil {
		return f, nil, zerr.With(zerr.With(zerr.Wrap(domain.ErrUnterminatedBlock, "build block is never closed"),
			"file", f.Path), "output", current.output)
	}

	return f.WithContents(buf.Bytes()), bundles, nil
}

func newBlock(file string, m []string) (*block, error) {
	b := &block{kind: m[1], output: strings.TrimPrefix(m[3], "/")}

	switch b.kind {
	case blockJS, blockCSS:
		if b.output == "" {
			return nil, zerr.With(zerr.Wrap(domain.ErrInvalidBuildBlock, "build block has no output path"), "file", file)
		}
	case blockRemove:
	default:
		return nil, zerr.With(zerr.With(zerr.Wrap(domain.ErrInvalidBuildBlock, "unknown build block type"),
			"file", file), "type", b.kind)
	}

	if m[2] != "" {
		for _, root := range strings.Split(strings.Trim(m[2], "{}"), ",") {
			if root = strings.TrimSpace(root); root != "" {
				b.roots = append(b.roots, root)
			}
		}
	}
	return b, nil
}

// reference returns the asset a script or stylesheet tag points at.
func reference(tok html.Token) string {
	var attr string
	switch tok.DataAtom {
	case atom.Script:
		attr = "src"
	case atom.Link:
		attr = "href"
	default:
		return ""
	}

	for _, a := range tok.Attr {
		if a.Key == attr {
			return a.Val
		}
	}
	return ""
}

func (s *Stage) closeBlock(page domain.File, b *block, buf *bytes.Buffer) (*domain.File, error) {
	switch b.kind {
	case blockJS:
		buf.WriteString(`<script src="` + b.output + `"></script>`)
	case blockCSS:
		buf.WriteString(`<link rel="stylesheet" href="` + b.output + `">`)
	default:
		return nil, nil
	}

	roots := b.roots
	if len(roots) == 0 {
		roots = s.searchRoots
	}

	parts := make([][]byte, 0, len(b.refs))
	for _, ref := range b.refs {
		contents, err := s.find(roots, path.Dir(page.Path), ref)
		if err != nil {
			return nil, zerr.With(zerr.With(err, "file", page.Path), "asset", ref)
		}
		parts = append(parts, bytes.TrimRight(contents, "\n"))
	}

	bundle := domain.File{
		Base:     page.Base,
		Path:     b.output,
		Contents: append(bytes.Join(parts, []byte("\n")), '\n'),
		Mode:     domain.FilePerm,
	}
	return &bundle, nil
}

func (s *Stage) find(roots []string, pageDir, ref string) ([]byte, error) {
	ref, _, _ = strings.Cut(ref, "?")
	rel := path.Join(pageDir, ref)
	if strings.HasPrefix(ref, "/") {
		rel = strings.TrimPrefix(path.Clean(ref), "/")
	}

	for _, root := range roots {
		candidate := filepath.Join(s.projectDir, filepath.FromSlash(root), filepath.FromSlash(rel))
		contents, err := os.ReadFile(candidate) //nolint:gosec // assets are resolved under the project roots
		if err == nil {
			return contents, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, zerr.With(zerr.Wrap(err, domain.ErrFileReadFailed.Error()), "path", candidate)
		}
	}

	return nil, zerr.With(zerr.Wrap(domain.ErrAssetNotFound, "no search root contains the asset"),
		"search_roots", strings.Join(roots, ","))
}
