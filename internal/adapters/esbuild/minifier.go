// Package esbuild minifies scripts and stylesheets with the esbuild transform API.
package esbuild

import (
	"context"

	"github.com/evanw/esbuild/pkg/api"
	"go.trai.ch/brisk/internal/core/domain"
	"go.trai.ch/brisk/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Stage = (*Minifier)(nil)

// Minifier is a stage that minifies every file it receives with one loader.
type Minifier struct {
	name   string
	loader api.Loader
}

// NewScriptMinifier returns a stage for JavaScript files.
func NewScriptMinifier() *Minifier {
	return &Minifier{name: "minify-js", loader: api.LoaderJS}
}

// NewStyleMinifier returns a stage for CSS files.
func NewStyleMinifier() *Minifier {
	return &Minifier{name: "minify-css", loader: api.LoaderCSS}
}

// Name identifies the stage.
func (m *Minifier) Name() string { return m.name }

// Apply minifies each file in place. The first file with errors aborts the stage.
func (m *Minifier) Apply(ctx context.Context, files []domain.File) ([]domain.File, error) {
	out := make([]domain.File, 0, len(files))

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result := api.Transform(string(f.Contents), api.TransformOptions{
			Loader:            m.loader,
			Sourcefile:        f.Path,
			MinifyWhitespace:  true,
			MinifyIdentifiers: true,
			MinifySyntax:      true,
			LogLevel:          api.LogLevelSilent,
		})
		if len(result.Errors) > 0 {
			return nil, minifyError(f.Path, result.Errors[0])
		}

		out = append(out, f.WithContents(result.Code))
	}

	return out, nil
}

func minifyError(path string, msg api.Message) error {
	err := zerr.With(zerr.Wrap(domain.ErrMinifyFailed, msg.Text), "file", path)
	if msg.Location != nil {
		err = zerr.With(err, "line", msg.Location.Line)
		err = zerr.With(err, "column", msg.Location.Column)
	}
	return err
}
