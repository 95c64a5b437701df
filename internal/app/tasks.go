package app

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"go.trai.ch/brisk/internal/adapters/bower"      //nolint:depguard // Wired in app layer
	"go.trai.ch/brisk/internal/adapters/devserver"  //nolint:depguard // Wired in app layer
	"go.trai.ch/brisk/internal/adapters/esbuild"    //nolint:depguard // Wired in app layer
	"go.trai.ch/brisk/internal/adapters/livereload" //nolint:depguard // Wired in app layer
	"go.trai.ch/brisk/internal/adapters/preprocess" //nolint:depguard // Wired in app layer
	"go.trai.ch/brisk/internal/adapters/shell"      //nolint:depguard // Wired in app layer
	"go.trai.ch/brisk/internal/adapters/useref"     //nolint:depguard // Wired in app layer
	"go.trai.ch/brisk/internal/adapters/watcher"    //nolint:depguard // Wired in app layer
	"go.trai.ch/brisk/internal/core/domain"
	"go.trai.ch/brisk/internal/engine/bridge"
	"go.trai.ch/brisk/internal/engine/pipeline"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

const (
	taskDefault = "default"
	taskBuild   = "build"
	taskServe   = "serve"
	taskWatch   = "watch"
	taskConnect = "connect"
	taskClean   = "clean"
	taskHTML    = "html"
	taskStylus  = "stylus"
	taskJSHint  = "jshint"
	taskFonts   = "fonts"
	taskExtras  = "extras"
)

// stylusEntries are the stylesheets compiled by the stylus task, relative to paths.app.
var stylusEntries = []string{"styles/main.styl", "styles/development.styl"}

// fontPattern selects the bower main files copied by the fonts task.
const fontPattern = "**/*.{eot,svg,ttf,woff}"

// project binds the fixed task graph to one configuration. Long-running
// servers started by tasks join group and stop when ctx is cancelled.
type project struct {
	app    *App
	cfg    domain.Config
	group  *errgroup.Group
	ctx    context.Context
	runDep func(ctx context.Context, name string) error
}

func (p *project) graph() (*domain.Graph, error) {
	g := domain.NewGraph()

	tasks := []struct {
		name   string
		deps   []string
		action domain.Action
	}{
		{taskDefault, []string{taskClean}, p.buildAfterClean},
		{taskBuild, []string{taskHTML, taskFonts, taskExtras}, nil},
		{taskHTML, []string{taskStylus, taskJSHint}, p.html},
		{taskServe, []string{taskWatch}, nil},
		{taskWatch, []string{taskStylus, taskConnect}, p.watch},
		{taskClean, nil, p.clean},
		{taskStylus, nil, p.stylus},
		{taskJSHint, nil, p.jshint},
		{taskFonts, nil, p.fonts},
		{taskExtras, nil, p.extras},
		{taskConnect, nil, p.connect},
	}

	for _, t := range tasks {
		if err := g.Register(t.name, t.deps, t.action); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// servesInBackground reports whether running name starts the dev server or
// the watcher, directly or through a dependency.
func servesInBackground(g *domain.Graph, name string) bool {
	seen := make(map[string]bool)
	var visit func(name string) bool
	visit = func(name string) bool {
		if name == taskConnect || name == taskWatch {
			return true
		}
		if seen[name] {
			return false
		}
		seen[name] = true
		task, ok := g.GetTask(domain.NewInternedString(name))
		if !ok {
			return false
		}
		for _, dep := range task.Dependencies {
			if visit(dep.String()) {
				return true
			}
		}
		return false
	}
	return visit(name)
}

func (p *project) dir(rel string) string {
	return domain.ProjectPath(p.app.projectDir, rel)
}

// buildAfterClean runs build once clean has finished, so the two never
// touch dist at the same time.
func (p *project) buildAfterClean(ctx context.Context) error {
	return p.runDep(ctx, taskBuild)
}

func (p *project) clean(_ context.Context) error {
	for _, rel := range []string{p.cfg.Paths.Temp, p.cfg.Paths.Dist} {
		if err := os.RemoveAll(p.dir(rel)); err != nil {
			return zerr.With(zerr.Wrap(err, domain.ErrCleanFailed.Error()), "path", rel)
		}
	}
	return nil
}

func (p *project) stylus(ctx context.Context) error {
	_, err := pipeline.New(
		pipeline.Src(p.app.resolver, p.dir(p.cfg.Paths.App), stylusEntries, false),
		shell.NewCompileStage(p.app.executor, p.app.projectDir),
	).To(ctx, p.dir(p.cfg.Paths.Temp))
	return err
}

func (p *project) jshint(ctx context.Context) error {
	_, err := pipeline.New(
		pipeline.Src(p.app.resolver, p.dir(p.cfg.Paths.App), []string{"scripts/**/*.js"}, false),
		shell.NewLintStage(p.app.executor, p.app.projectDir),
	).Run(ctx)
	return err
}

func (p *project) html(ctx context.Context) error {
	scripts, err := pipeline.Filter("**/*.js", esbuild.NewScriptMinifier())
	if err != nil {
		return err
	}
	styles, err := pipeline.Filter("**/*.css", esbuild.NewStyleMinifier())
	if err != nil {
		return err
	}

	_, err = pipeline.New(
		pipeline.Src(p.app.resolver, p.dir(p.cfg.Paths.App), []string{"*.html"}, false),
		preprocess.New(map[string]string{"NODE_ENV": domain.ProductionEnv}),
		useref.New(p.app.projectDir, p.cfg.Paths.Temp, p.cfg.Paths.App),
		scripts,
		styles,
		pipeline.Size(p.app.logger, taskHTML),
	).To(ctx, p.dir(p.cfg.Paths.Dist))
	return err
}

func (p *project) fonts(ctx context.Context) error {
	mains, err := bower.MainFiles(p.app.projectDir, p.dir(p.cfg.Paths.Bower))
	if err != nil {
		return err
	}
	onlyFonts, err := pipeline.Match(fontPattern)
	if err != nil {
		return err
	}

	_, err = pipeline.New(
		pipeline.Files(p.dir(p.cfg.Paths.Bower), mains),
		onlyFonts,
		pipeline.Flatten(),
	).To(ctx, filepath.Join(p.dir(p.cfg.Paths.Dist), "fonts"))
	return err
}

func (p *project) extras(ctx context.Context) error {
	_, err := pipeline.New(
		pipeline.Src(p.app.resolver, p.dir(p.cfg.Paths.App), []string{"*.*", "!*.html"}, true),
	).To(ctx, p.dir(p.cfg.Paths.Dist))
	return err
}

// connect binds the dev server and leaves it serving in the background.
func (p *project) connect(ctx context.Context) error {
	srv, err := devserver.New(p.app.projectDir, p.cfg, p.app.logger, p.app.metrics)
	if err != nil {
		return err
	}
	if err := srv.Listen(ctx); err != nil {
		return err
	}
	p.group.Go(func() error { return srv.Serve(p.ctx) })
	return nil
}

// watch starts the live-reload server and the file watcher. Changes run
// tasks through runDep and reach browsers through the hub.
func (p *project) watch(ctx context.Context) error {
	hub := livereload.NewHub(p.app.logger, p.app.metrics)
	lr := livereload.NewServer(p.cfg.LivereloadPort, hub, p.app.logger, p.app.metrics)
	if err := lr.Listen(ctx); err != nil {
		return err
	}
	p.group.Go(func() error { return lr.Serve(p.ctx) })

	watchBindings := bindings(p.cfg.Paths)
	br, err := bridge.New(p.app.projectDir, watchBindings, p.runDep, hub, p.app.hasher, p.app.logger)
	if err != nil {
		return err
	}
	for _, b := range watchBindings {
		p.app.logger.Debug("watch " + describe(b))
	}
	if p.app.metrics != nil {
		br.WithObserver(p.app.metrics)
	}

	w, err := p.app.newWatcher()
	if err != nil {
		return err
	}
	debouncer := watcher.NewDebouncer(watcher.DefaultDebounceWindow, func(paths []string) {
		br.Handle(p.ctx, paths)
	})
	p.group.Go(func() error { return br.Run(p.ctx, w, debouncer) })
	return nil
}

// bindings maps source changes to reactions. Compiled CSS is picked up from
// the temp directory, so a stylesheet edit reaches browsers as a .css path.
func bindings(paths domain.Paths) []domain.WatchBinding {
	app := path.Clean(filepath.ToSlash(paths.App))
	temp := path.Clean(filepath.ToSlash(paths.Temp))

	return []domain.WatchBinding{
		{
			Patterns: []string{
				app + "/*.html",
				temp + "/styles/**/*.css",
				app + "/scripts/**/*.js",
				app + "/images/**/*",
			},
			Reaction: domain.NotifyReload(),
		},
		{Patterns: []string{app + "/styles/**/*.styl"}, Reaction: domain.RunTask(taskStylus)},
		{Patterns: []string{app + "/scripts/**/*.js"}, Reaction: domain.RunTask(taskJSHint)},
	}
}

func describe(b domain.WatchBinding) string {
	return fmt.Sprintf("%v -> %s", b.Patterns, b.Reaction)
}
