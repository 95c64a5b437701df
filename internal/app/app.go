// Package app implements the application layer for brisk.
package app

import (
	"context"
	"errors"
	"io"
	"os"
	"runtime"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"go.trai.ch/brisk/internal/adapters/detector"  //nolint:depguard // Wired in app layer
	"go.trai.ch/brisk/internal/adapters/linear"    //nolint:depguard // Wired in app layer
	"go.trai.ch/brisk/internal/adapters/metrics"   //nolint:depguard // Wired in app layer
	"go.trai.ch/brisk/internal/adapters/telemetry" //nolint:depguard // Wired in app layer
	"go.trai.ch/brisk/internal/adapters/tui"       //nolint:depguard // Wired in app layer
	"go.trai.ch/brisk/internal/adapters/watcher"   //nolint:depguard // Wired in app layer
	"go.trai.ch/brisk/internal/core/domain"
	"go.trai.ch/brisk/internal/core/ports"
	"go.trai.ch/brisk/internal/engine/scheduler"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// App represents the main application logic.
type App struct {
	configLoader ports.ConfigLoader
	executor     ports.Executor
	logger       ports.Logger
	hasher       ports.Hasher
	resolver     ports.InputResolver
	metrics      *metrics.Metrics
	newWatcher   watcher.Factory

	projectDir string
	stdout     io.Writer
	stderr     io.Writer
	teaOptions []tea.ProgramOption
}

// New creates a new App instance working in the current directory.
func New(
	loader ports.ConfigLoader,
	executor ports.Executor,
	log ports.Logger,
	hasher ports.Hasher,
	resolver ports.InputResolver,
	m *metrics.Metrics,
	newWatcher watcher.Factory,
) *App {
	return &App{
		configLoader: loader,
		executor:     executor,
		logger:       log,
		hasher:       hasher,
		resolver:     resolver,
		metrics:      m,
		newWatcher:   newWatcher,
		projectDir:   ".",
		stdout:       os.Stdout,
		stderr:       os.Stderr,
	}
}

// WithProjectDir sets the directory holding brisk.yaml and the source tree.
func (a *App) WithProjectDir(dir string) *App {
	a.projectDir = dir
	return a
}

// WithOutput redirects task output and progress lines.
// This is primarily used for testing.
func (a *App) WithOutput(stdout, stderr io.Writer) *App {
	a.stdout = stdout
	a.stderr = stderr
	return a
}

// WithTeaOptions passes options to the interactive task list.
// This is primarily used for testing.
func (a *App) WithTeaOptions(opts ...tea.ProgramOption) *App {
	a.teaOptions = opts
	return a
}

// RunOptions configuration for the Run method.
type RunOptions struct {
	// Parallelism bounds concurrently running tasks. Zero means one per CPU.
	Parallelism int
	// OutputMode is "auto", "tui", "linear" or "ci". Empty means auto.
	OutputMode string
}

// TaskNames lists every task Run accepts.
func (a *App) TaskNames() []string {
	p := &project{}
	graph, err := p.graph()
	if err != nil {
		return nil
	}
	return graph.Names()
}

// Run executes the named task after its dependencies. Servers started by the
// task keep running until ctx is cancelled.
func (a *App) Run(ctx context.Context, task string, opts RunOptions) error {
	// 1. Load the configuration
	cfg, err := a.configLoader.Load(a.projectDir)
	if err != nil {
		return zerr.Wrap(err, "failed to load configuration")
	}

	parallelism := opts.Parallelism
	if parallelism < 1 {
		parallelism = runtime.NumCPU()
	}

	// 2. Build and validate the task graph
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	group, groupCtx := errgroup.WithContext(ctx)

	p := &project{
		app:   a,
		cfg:   *cfg,
		group: group,
		ctx:   groupCtx,
	}
	graph, err := p.graph()
	if err != nil {
		return err
	}
	if err := graph.Validate(); err != nil {
		return zerr.Wrap(err, "invalid task graph")
	}
	if _, ok := graph.GetTask(domain.NewInternedString(task)); !ok {
		return zerr.With(zerr.Wrap(domain.ErrTaskNotFound, "cannot run task"), "task", task)
	}

	// 3. Initialize rendering and telemetry
	renderer, stopRenderer := a.startRenderer(opts.OutputMode, graph, task, cancel)
	defer stopRenderer()
	tracer := telemetry.NewOTelTracer(renderer)
	defer func() {
		_ = tracer.Shutdown(context.WithoutCancel(ctx))
	}()

	sched := scheduler.NewScheduler(tracer)
	p.runDep = func(ctx context.Context, name string) error {
		return sched.Run(ctx, graph, name, parallelism)
	}

	// 4. Run the task, then wait for anything it left serving
	if err := sched.Run(ctx, graph, task, parallelism); err != nil {
		cancel()
		_ = group.Wait()
		_ = tracer.Shutdown(context.WithoutCancel(ctx))
		stopRenderer()
		a.logTaskErrors(err)
		return errors.Join(domain.ErrBuildExecutionFailed, err)
	}

	if err := group.Wait(); err != nil {
		return err
	}
	return nil
}

// startRenderer picks the renderer for a run of task. The interactive task
// list is used only when the output mode resolves to it and task starts no
// server, whose requests and reloads keep logging after the list is done.
// The returned stop function may be called more than once.
func (a *App) startRenderer(mode string, graph *domain.Graph, task string, interrupt func()) (ports.Renderer, func()) {
	resolved := detector.ResolveMode(detector.DetectOutputMode(), mode)
	if resolved != detector.ModeTUI || servesInBackground(graph, task) {
		return linear.NewRenderer(a.stdout, a.stderr), func() {}
	}

	r := tui.NewRenderer(a.stderr, a.teaOptions...)
	r.Start(interrupt)

	// Log records are printed above the task list while it is on screen.
	redirect, _ := a.logger.(interface{ SetOutput(w io.Writer) })
	if redirect != nil {
		redirect.SetOutput(r.LogWriter())
	}

	var once sync.Once
	return r, func() {
		once.Do(func() {
			r.Stop()
			err := r.Wait()
			if redirect != nil {
				redirect.SetOutput(a.stderr)
			}
			if err != nil {
				a.logger.Warn("task list exited: " + err.Error())
			}
		})
	}
}

// logTaskErrors logs each joined task error on its own so that every chain
// keeps its metadata.
func (a *App) logTaskErrors(err error) {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			a.logTaskErrors(e)
		}
		return
	}
	if errors.Is(err, context.Canceled) {
		return
	}
	a.logger.Error(err)
}
